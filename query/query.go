// Package query contains the read side counterpart of the command package:
// Domain Queries and the Handlers that answer them.
package query

import (
	"context"

	"github.com/get-eventually/go-replay/message"
)

// Query is a Message requesting information, without side effects.
// Name Query types in the imperative tense, such as "GetAccount".
type Query message.Message

// Envelope carries both a Query and some metadata attached to it.
type Envelope[T Query] message.Envelope[T]

// ToEnvelope wraps the provided Query into an Envelope, with no metadata attached.
func ToEnvelope[T Query](query T) Envelope[T] {
	return Envelope[T]{
		Message:  query,
		Metadata: nil,
	}
}

// Handler answers a specific kind of Query with a result of type R.
type Handler[T Query, R any] interface {
	Handle(ctx context.Context, query Envelope[T]) (R, error)
}

// HandlerFunc is a functional type that implements the Handler interface.
type HandlerFunc[T Query, R any] func(ctx context.Context, query Envelope[T]) (R, error)

// Handle implements query.Handler.
func (fn HandlerFunc[T, R]) Handle(ctx context.Context, query Envelope[T]) (R, error) {
	return fn(ctx, query)
}
