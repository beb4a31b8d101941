// Package serde contains the contracts used to map Domain types
// to and from their persisted representation, together with
// JSON and Protobuf based implementations.
package serde

import "fmt"

// Serializer maps a Src value into its Dst representation.
type Serializer[Src any, Dst any] interface {
	Serialize(src Src) (Dst, error)
}

// Deserializer maps a Dst representation back into a Src value.
type Deserializer[Src any, Dst any] interface {
	Deserialize(dst Dst) (Src, error)
}

// Serde both serializes Src values to Dst and deserializes them back.
type Serde[Src any, Dst any] interface {
	Serializer[Src, Dst]
	Deserializer[Src, Dst]
}

// Bytes is a Serde whose representation is a byte slice,
// which is what the durable Event Logs persist.
type Bytes[Src any] interface {
	Serde[Src, []byte]
}

// SerializerFunc is a function implementing Serializer.
type SerializerFunc[Src any, Dst any] func(src Src) (Dst, error)

// Serialize calls the function itself.
func (fn SerializerFunc[Src, Dst]) Serialize(src Src) (Dst, error) { return fn(src) }

// AsSerializerFunc turns a plain function into a SerializerFunc,
// letting the compiler infer the type parameters.
func AsSerializerFunc[Src, Dst any](f func(src Src) (Dst, error)) SerializerFunc[Src, Dst] {
	return f
}

// DeserializerFunc is a function implementing Deserializer.
type DeserializerFunc[Src any, Dst any] func(dst Dst) (Src, error)

// Deserialize calls the function itself.
func (fn DeserializerFunc[Src, Dst]) Deserialize(dst Dst) (Src, error) { return fn(dst) }

// AsDeserializerFunc turns a plain function into a DeserializerFunc,
// letting the compiler infer the type parameters.
func AsDeserializerFunc[Src, Dst any](f func(dst Dst) (Src, error)) DeserializerFunc[Src, Dst] {
	return f
}

// Fused pairs a Serializer and a Deserializer written separately into a Serde.
type Fused[Src any, Dst any] struct {
	Serializer[Src, Dst]
	Deserializer[Src, Dst]
}

// Fuse returns a Fused serde out of the two halves.
func Fuse[Src, Dst any](serializer Serializer[Src, Dst], deserializer Deserializer[Src, Dst]) Fused[Src, Dst] {
	return Fused[Src, Dst]{
		Serializer:   serializer,
		Deserializer: deserializer,
	}
}

// Chain composes two serdes sharing an intermediate representation (Mid).
//
// Serialize goes through outer and then inner, Deserialize walks
// the same path backwards.
func Chain[Src, Mid, Dst any](outer Serde[Src, Mid], inner Serde[Mid, Dst]) Fused[Src, Dst] {
	serialize := func(src Src) (Dst, error) {
		mid, err := outer.Serialize(src)
		if err != nil {
			var zero Dst
			return zero, fmt.Errorf("serde.Chain: outer serialization failed, %w", err)
		}

		dst, err := inner.Serialize(mid)
		if err != nil {
			var zero Dst
			return zero, fmt.Errorf("serde.Chain: inner serialization failed, %w", err)
		}

		return dst, nil
	}

	deserialize := func(dst Dst) (Src, error) {
		var zero Src

		mid, err := inner.Deserialize(dst)
		if err != nil {
			return zero, fmt.Errorf("serde.Chain: inner deserialization failed, %w", err)
		}

		src, err := outer.Deserialize(mid)
		if err != nil {
			return zero, fmt.Errorf("serde.Chain: outer deserialization failed, %w", err)
		}

		return src, nil
	}

	return Fuse[Src, Dst](AsSerializerFunc(serialize), AsDeserializerFunc(deserialize))
}
