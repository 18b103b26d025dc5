package logsvc

import (
	"log"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/academy/core"
	"github.com/trezcool/academy/core/user"
)

// RollbarLogger prints every entry to a standard logger and reports it to Rollbar when enabled.
// Arguments may be errors, extra data maps or the user.User the entry is about.
type RollbarLogger struct {
	std *log.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

var levelNames = map[string]string{
	rollbar.DEBUG: "DEBUG",
	rollbar.INFO:  "INFO",
	rollbar.WARN:  "WARN",
	rollbar.ERR:   "ERROR",
	rollbar.CRIT:  "FATAL",
}

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(conf.RollbarToken != "" && !conf.TestMode)
	return &RollbarLogger{std: std}
}

func (l RollbarLogger) Enable(enabled bool) { rollbar.SetEnabled(enabled) }

// Close waits for the queued items to be sent.
func (l RollbarLogger) Close() { rollbar.Close() }

func (l RollbarLogger) log(level, msg string, args []interface{}) {
	items := []interface{}{msg}
	person := false
	l.std.Printf("[%s] %s", levelNames[level], msg)
	for _, arg := range args {
		usr, ok := arg.(user.User)
		switch {
		case ok && !person:
			rollbar.SetPerson(usr.ID, usr.Username, usr.Email)
			person = true
		case !ok:
			items = append(items, arg)
			l.std.Printf("%+v\n", arg)
		}
	}
	if !person {
		rollbar.ClearPerson()
	}
	rollbar.Log(level, items...)
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) { l.log(rollbar.DEBUG, msg, args) }
func (l RollbarLogger) Info(msg string, args ...interface{})  { l.log(rollbar.INFO, msg, args) }
func (l RollbarLogger) Warn(msg string, args ...interface{})  { l.log(rollbar.WARN, msg, args) }
func (l RollbarLogger) Error(msg string, args ...interface{}) { l.log(rollbar.ERR, msg, args) }

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.log(rollbar.CRIT, msg, args)
	rollbar.Close()
	l.std.Fatal(msg)
}
