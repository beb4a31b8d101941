package serde

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

type (
	protoMarshalFunc   func(proto.Message) ([]byte, error)
	protoUnmarshalFunc func([]byte, proto.Message) error
)

func newProtoSerde[T proto.Message](
	name string,
	factory func() T,
	marshal protoMarshalFunc,
	unmarshal protoUnmarshalFunc,
) Fused[T, []byte] {
	serializer := func(t T) ([]byte, error) {
		data, err := marshal(t)
		if err != nil {
			return nil, fmt.Errorf("serde.%s: failed to serialize data, %w", name, err)
		}

		return data, nil
	}

	deserializer := func(data []byte) (T, error) {
		var zeroValue T

		model := factory()
		if err := unmarshal(data, model); err != nil {
			return zeroValue, fmt.Errorf("serde.%s: failed to deserialize data, %w", name, err)
		}

		return model, nil
	}

	return Fuse[T, []byte](
		SerializerFunc[T, []byte](serializer),
		DeserializerFunc[T, []byte](deserializer),
	)
}

// NewProto returns a new serde instance where some data (`T`) gets serialized to
// and deserialized from a Protobuf byte-array.
//
// A data factory function is required for creating new instances of type `T`.
func NewProto[T proto.Message](factory func() T) Fused[T, []byte] {
	return newProtoSerde(
		"Proto",
		factory,
		proto.Marshal,
		proto.Unmarshal,
	)
}

// NewProtoJSON returns a new serde instance where some data (`T`) gets serialized to
// and deserialized from Protobuf JSON.
//
// A data factory function is required for creating new instances of type `T`.
func NewProtoJSON[T proto.Message](factory func() T) Fused[T, []byte] {
	return newProtoSerde(
		"ProtoJSON",
		factory,
		protojson.Marshal,
		protojson.Unmarshal,
	)
}
