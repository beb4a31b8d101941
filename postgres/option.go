package postgres

import "github.com/get-eventually/go-replay/logger"

// Option can be used to change the configuration of an object.
type Option[T any] interface {
	apply(T)
}

type option[T any] func(T)

func newOption[T any](f func(T)) option[T] { return option[T](f) }

func (apply option[T]) apply(val T) { apply(val) }

// WithLogger sets the logger.Logger the EventLog uses to report
// appended events. No logging happens by default.
func WithLogger(l logger.Logger) Option[*EventLog] {
	return newOption(func(el *EventLog) {
		el.logger = l
	})
}
