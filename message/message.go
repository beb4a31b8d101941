// Package message defines Message, the common shape of everything
// exchanged in the system: Domain Events, Commands and Queries.
package message

// Message is anything with a stable name, used to tell payload
// types apart once serialized.
type Message interface {
	Name() string
}

// Metadata holds supporting key-value pairs attached to a Message,
// such as correlation or causation identifiers.
type Metadata map[string]string

// With sets key to value, allocating the map if needed,
// and returns the resulting Metadata.
func (m Metadata) With(key, value string) Metadata {
	if m == nil {
		m = make(Metadata, 1)
	}

	m[key] = value

	return m
}

// Clone returns a copy of the Metadata that does not share
// the underlying map. A nil Metadata stays nil.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}

	clone := make(Metadata, len(m))
	for k, v := range m {
		clone[k] = v
	}

	return clone
}

// Envelope carries a Message of type T with its Metadata.
type Envelope[T Message] struct {
	Message  T
	Metadata Metadata
}

// GenericEnvelope is an Envelope whose Message type is not known statically.
type GenericEnvelope Envelope[Message]
