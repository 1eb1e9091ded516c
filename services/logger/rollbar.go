package logsvc

import (
	"fmt"
	"log"
	"strings"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/access"
)

// RollbarLogger prints every entry to a standard logger and reports it to Rollbar when enabled.
//
// After the message, an entry takes any of: the error it is about, extra fields
// (map[string]interface{}) and the access.Principal who triggered it.
// Debug entries are printed in debug mode only and never reported.
type RollbarLogger struct {
	std   *log.Logger
	debug bool
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(strings.ToLower(conf.Env))
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetServerRoot("github.com/trezcool/masomo-console")
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetCustom(map[string]interface{}{"storage_engine": conf.Database.Engine})
	rollbar.SetEnabled(conf.RollbarToken != "")
	return &RollbarLogger{std: std, debug: conf.Debug}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

type entry struct {
	msg    string
	err    error
	person *access.Principal
	extras map[string]interface{}
}

func newEntry(msg string, args []interface{}) entry {
	e := entry{msg: msg, extras: make(map[string]interface{})}
	var rest []interface{}
	for _, arg := range args {
		switch a := arg.(type) {
		case error:
			if e.err == nil {
				e.err = a
			} else {
				rest = append(rest, a)
			}
		case map[string]interface{}:
			for k, v := range a {
				e.extras[k] = v
			}
		case access.Principal:
			if e.person == nil && a.ID != "" { // anonymous requests carry an empty principal
				p := a
				e.person = &p
				e.extras["role"] = p.Role
				if len(p.Departments) > 0 {
					e.extras["departments"] = strings.Join(p.Departments, ", ")
				}
			}
		default:
			rest = append(rest, a)
		}
	}
	if len(rest) > 0 {
		e.extras["args"] = rest
	}
	if e.err != nil && e.err.Error() != msg {
		e.extras["message"] = msg
	}
	return e
}

func (l RollbarLogger) report(level string, e entry) {
	if e.person != nil {
		rollbar.SetPerson(e.person.ID, e.person.Name, e.person.Email)
	} else {
		rollbar.ClearPerson()
	}
	if e.err != nil {
		rollbar.ErrorWithExtras(level, e.err, e.extras)
	} else {
		rollbar.MessageWithExtras(level, e.msg, e.extras)
	}
}

func (l RollbarLogger) print(level string, e entry) {
	l.std.Printf("%s: %s", strings.ToUpper(level), e.msg)
	if e.err != nil {
		l.std.Printf("%+v", e.err)
	}
	for k, v := range e.extras {
		l.std.Printf("  %s=%s", k, fmt.Sprint(v))
	}
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	if l.debug {
		l.print(rollbar.DEBUG, newEntry(msg, args))
	}
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	e := newEntry(msg, args)
	l.report(rollbar.INFO, e)
	l.print(rollbar.INFO, e)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	e := newEntry(msg, args)
	l.report(rollbar.WARN, e)
	l.print(rollbar.WARN, e)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	e := newEntry(msg, args)
	l.report(rollbar.ERR, e)
	l.print(rollbar.ERR, e)
}

// Fatal reports the entry, waits for Rollbar to deliver it, then exits.
func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	e := newEntry(msg, args)
	l.report(rollbar.CRIT, e)
	l.print(rollbar.CRIT, e)
	rollbar.Wait()
	l.std.Fatal(msg)
}
