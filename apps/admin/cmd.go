package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/academy/core/assessment"
	"github.com/trezcool/academy/core/catalog"
	"github.com/trezcool/academy/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp       = errors.New("help provided")
	errNoDatabase = errors.New("migrations need the postgres engine")
)

type commandLine struct {
	db          *sql.DB // nil with the memory engine
	usrRepo     user.Repository
	catalog     *catalog.Service
	assessments *assessment.Service
	out         io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run goose COMMAND (up, up-by-one, up-to, down, down-to, redo, reset, status, version, create, fix)")
	fmt.Println("  adduser -username USERNAME -email EMAIL [-name NAME] [-admin] - create or update a user")
	fmt.Println("  resetpassword -username USERNAME|EMAIL - reset user's password")
	fmt.Println("  import-courses -file PATH - import courses from a CSV file")
	fmt.Println("  import-modules -file PATH - import modules from a CSV file")
	fmt.Println("  export -what courses|modules|attempts [-out PATH] - export as CSV (stdout by default)")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ExitOnError)
	addUserUname := addUserCmd.String("username", "", "The user's username.")
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserName := addUserCmd.String("name", "", "The user's full name.")
	addUserAdmin := addUserCmd.Bool("admin", false, "Grant every role to the user.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	importCoursesCmd := flag.NewFlagSet("import-courses", flag.ExitOnError)
	importCoursesFile := importCoursesCmd.String("file", "", "The CSV file to import.")

	importModulesCmd := flag.NewFlagSet("import-modules", flag.ExitOnError)
	importModulesFile := importModulesCmd.String("file", "", "The CSV file to import.")

	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	exportWhat := exportCmd.String("what", "", "What to export: courses, modules or attempts.")
	exportOut := exportCmd.String("out", "", "The output file; stdout if empty.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserUname == "" || *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserName, *addUserUname, *addUserEmail, pwd, *addUserAdmin)
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordUname, pwd)
	case "import-courses":
		if err := importCoursesCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *importCoursesFile == "" {
			importCoursesCmd.Usage()
			return errHelp
		}
		return cli.importCSV(*importCoursesFile, cli.catalog.ImportCourses)
	case "import-modules":
		if err := importModulesCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *importModulesFile == "" {
			importModulesCmd.Usage()
			return errHelp
		}
		return cli.importCSV(*importModulesFile, cli.catalog.ImportModules)
	case "export":
		if err := exportCmd.Parse(args[2:]); err != nil {
			return err
		}
		switch *exportWhat {
		case "courses":
			return cli.export(*exportOut, cli.catalog.ExportCourses)
		case "modules":
			return cli.export(*exportOut, cli.catalog.ExportModules)
		case "attempts":
			return cli.export(*exportOut, cli.assessments.ExportAttempts)
		default:
			exportCmd.Usage()
			return errHelp
		}
	default:
		cli.printUsage()
		return errHelp
	}
}

func promptPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

func (cli *commandLine) output() io.Writer {
	if cli.out == nil {
		return os.Stdout
	}
	return cli.out
}
