package logger_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/get-eventually/go-replay/logger"
)

type recorder struct {
	entries []string
	fields  [][]logger.Field
}

func (r *recorder) record(level, msg string, fields []logger.Field) {
	r.entries = append(r.entries, level+":"+msg)
	r.fields = append(r.fields, fields)
}

func (r *recorder) Debug(msg string, fields ...logger.Field) { r.record("debug", msg, fields) }
func (r *recorder) Info(msg string, fields ...logger.Field)  { r.record("info", msg, fields) }
func (r *recorder) Error(msg string, fields ...logger.Field) { r.record("error", msg, fields) }

func TestHelpers(t *testing.T) {
	t.Run("nil logger is a no-op", func(t *testing.T) {
		assert.NotPanics(t, func() {
			logger.Debug(nil, "debug")
			logger.Info(nil, "info")
			logger.Error(nil, "error")
		})
	})

	t.Run("helpers forward to the provided logger", func(t *testing.T) {
		rec := new(recorder)
		err := errors.New("boom")

		logger.Debug(rec, "first", logger.With("k", 1))
		logger.Info(rec, "second")
		logger.Error(rec, "third", logger.Err(err))

		assert.Equal(t, []string{"debug:first", "info:second", "error:third"}, rec.entries)
		assert.Equal(t, logger.Field{Key: "k", Value: 1}, rec.fields[0][0])
		assert.Equal(t, logger.Field{Key: "error", Value: err}, rec.fields[2][0])
	})

	t.Run("test logger writes through testing.T", func(t *testing.T) {
		l := logger.NewTest(t)
		l.Info("hello", logger.With("name", "world"))
	})
}
