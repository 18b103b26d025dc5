package main

import (
	"database/sql"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academy/core"
	"github.com/trezcool/academy/core/assessment"
	"github.com/trezcool/academy/core/catalog"
	"github.com/trezcool/academy/core/certification"
	"github.com/trezcool/academy/core/progress"
	"github.com/trezcool/academy/core/user"
	logsvc "github.com/trezcool/academy/services/logger"
	"github.com/trezcool/academy/storage"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	// set up DB
	repos, err := storage.Open(conf, false /* migrate */)
	if err != nil {
		logger.Fatal(err.Error(), err)
	}

	validate := validator.New()
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	catalogSvc := catalog.NewService(repos.Catalog, validate, translator)
	certSvc := certification.NewService(repos.Certifications, nil, nil, logger)
	progressSvc := progress.NewService(repos.Progress, catalogSvc, nil)

	// start CLI
	cli := commandLine{
		usrRepo:     repos.Users,
		catalog:     catalogSvc,
		assessments: assessment.NewService(repos.Attempts, catalogSvc, certSvc, progressSvc, nil),
	}
	var db *sql.DB
	if repos.DB != nil {
		db = repos.DB.DB
	}
	cli.db = db

	err = cli.run(os.Args)
	if cErr := repos.Close(); cErr != nil {
		logger.Error("closing database", cErr)
	}
	if err != nil {
		if err != errHelp {
			logger.Error(err.Error(), err)
		}
		os.Exit(1)
	}
}
