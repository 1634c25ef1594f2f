package logsvc

import (
	"io"
	"os"
	"time"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"
	"github.com/rs/zerolog"

	"github.com/academictoken/registry/core"
	"github.com/academictoken/registry/core/account"
)

// RollbarLogger reports to rollbar and writes structured lines through zerolog.
type RollbarLogger struct {
	zl    zerolog.Logger
	fatal func()
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(w io.Writer, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)

	if w == nil {
		w = os.Stdout
	}
	if conf.Debug {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	zerolog.DurationFieldUnit = time.Millisecond
	zl := zerolog.New(w).With().
		Timestamp().
		Str("app", conf.AppName).
		Str("env", conf.Env).
		Logger()
	if !conf.Debug {
		zl = zl.Level(zerolog.InfoLevel)
	}
	return &RollbarLogger{zl: zl, fatal: func() { os.Exit(1) }}
}

func (l *RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// prepare splits args into rollbar args and zerolog fields.
// expected fmt: msg | error, map[string]interface{}, account.Account
func (l *RollbarLogger) prepare(ev *zerolog.Event, msg string, args []interface{}) []interface{} {
	var accSet bool
	rbArgs := make([]interface{}, 0, len(args)+1)
	rbArgs = append(rbArgs, msg)
	for _, arg := range args {
		switch a := arg.(type) {
		case account.Account:
			if !accSet { // only set one account
				rollbar.SetPerson(a.ID, a.Name, a.Email)
				ev.Str("account", a.Address)
				accSet = true
			}
			continue
		case error:
			ev.Err(a)
		case map[string]interface{}:
			ev.Fields(a)
		default:
			ev.Interface("arg", a)
		}
		rbArgs = append(rbArgs, arg)
	}
	if !accSet {
		rollbar.ClearPerson()
	}
	return rbArgs
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) {
	ev := l.zl.Debug()
	rollbar.Debug(l.prepare(ev, msg, args)...)
	ev.Msg(msg)
}

func (l *RollbarLogger) Info(msg string, args ...interface{}) {
	ev := l.zl.Info()
	rollbar.Info(l.prepare(ev, msg, args)...)
	ev.Msg(msg)
}

func (l *RollbarLogger) Warn(msg string, args ...interface{}) {
	ev := l.zl.Warn()
	rollbar.Warning(l.prepare(ev, msg, args)...)
	ev.Msg(msg)
}

func (l *RollbarLogger) Error(msg string, args ...interface{}) {
	ev := l.zl.Error()
	rollbar.Error(l.prepare(ev, msg, args)...)
	ev.Msg(msg)
}

func (l *RollbarLogger) Fatal(msg string, args ...interface{}) {
	ev := l.zl.WithLevel(zerolog.FatalLevel)
	rollbar.Critical(l.prepare(ev, msg, args)...)
	ev.Msg(msg)
	rollbar.Wait()
	l.fatal()
}
