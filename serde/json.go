package serde

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/get-eventually/go-replay/message"
)

// NewJSON returns a Bytes serde for T values using encoding/json.
//
// Deserialization decodes into the value returned by factory,
// so factory must return a non-nil pointer when T is a pointer type.
func NewJSON[T any](factory func() T) Fused[T, []byte] {
	serialize := func(v T) ([]byte, error) {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("serde.JSON: failed to serialize data, %w", err)
		}

		return data, nil
	}

	deserialize := func(data []byte) (T, error) {
		v := factory()
		if err := json.Unmarshal(data, &v); err != nil {
			var zero T
			return zero, fmt.Errorf("serde.JSON: failed to deserialize data, %w", err)
		}

		return v, nil
	}

	return Fuse[T, []byte](AsSerializerFunc(serialize), AsDeserializerFunc(deserialize))
}

// ErrUnknownMessage is returned by MessageJSON when deserializing
// a message whose name has no registered factory.
var ErrUnknownMessage = errors.New("serde.MessageJSON: unknown message name")

type namedJSON struct {
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload"`
}

// MessageJSON is a Bytes serde for message.Message values, which stores
// the message name next to the JSON payload and uses it to resolve
// the concrete type on deserialization.
//
// Use NewMessageJSON to create new instances of this type.
type MessageJSON struct {
	factories map[string]func() message.Message
}

// NewMessageJSON returns a MessageJSON serde that can deserialize
// all the messages created by the provided factories.
//
// Factories are indexed by the name of the message they return, and
// must return pointers for json.Unmarshal to fill them.
// An error is returned if two factories produce messages with the same name.
func NewMessageJSON(factories ...func() message.Message) (MessageJSON, error) {
	registry := make(map[string]func() message.Message, len(factories))

	for _, factory := range factories {
		name := factory().Name()

		if _, ok := registry[name]; ok {
			return MessageJSON{}, fmt.Errorf("serde.NewMessageJSON: message '%s' already registered", name)
		}

		registry[name] = factory
	}

	return MessageJSON{factories: registry}, nil
}

// Serialize implements the serde.Serializer interface.
func (s MessageJSON) Serialize(msg message.Message) ([]byte, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("serde.MessageJSON: failed to serialize payload, %w", err)
	}

	data, err := json.Marshal(namedJSON{Name: msg.Name(), Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("serde.MessageJSON: failed to serialize message, %w", err)
	}

	return data, nil
}

// Deserialize implements the serde.Deserializer interface.
func (s MessageJSON) Deserialize(data []byte) (message.Message, error) {
	var named namedJSON
	if err := json.Unmarshal(data, &named); err != nil {
		return nil, fmt.Errorf("serde.MessageJSON: failed to deserialize message, %w", err)
	}

	factory, ok := s.factories[named.Name]
	if !ok {
		return nil, fmt.Errorf("%w, '%s'", ErrUnknownMessage, named.Name)
	}

	msg := factory()
	if err := json.Unmarshal(named.Payload, msg); err != nil {
		return nil, fmt.Errorf("serde.MessageJSON: failed to deserialize '%s' payload, %w", named.Name, err)
	}

	return msg, nil
}
