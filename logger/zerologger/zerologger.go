// Package zerologger adapts a github.com/rs/zerolog Logger to the logger.Logger interface.
package zerologger

import (
	"github.com/rs/zerolog"

	"github.com/get-eventually/go-replay/logger"
)

var _ logger.Logger = Logger{}

// Logger is a zerolog wrapper that implements the logger.Logger interface.
type Logger struct {
	zerolog.Logger
}

// Wrap wraps a zerolog.Logger into a zerologger.Logger instance.
func Wrap(l zerolog.Logger) Logger {
	return Logger{Logger: l}
}

func write(evt *zerolog.Event, msg string, fields []logger.Field) {
	for _, field := range fields {
		if err, ok := field.Value.(error); ok {
			evt = evt.AnErr(field.Key, err)
			continue
		}

		evt = evt.Interface(field.Key, field.Value)
	}

	evt.Msg(msg)
}

// Debug prints a debug log message.
func (l Logger) Debug(msg string, fields ...logger.Field) { write(l.Logger.Debug(), msg, fields) }

// Info prints an info log message.
func (l Logger) Info(msg string, fields ...logger.Field) { write(l.Logger.Info(), msg, fields) }

// Error prints an error log message.
func (l Logger) Error(msg string, fields ...logger.Field) { write(l.Logger.Error(), msg, fields) }
