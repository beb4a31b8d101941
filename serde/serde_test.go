package serde_test

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/get-eventually/go-replay/message"
	"github.com/get-eventually/go-replay/serde"
)

type myEnum uint8

const (
	enumFirst myEnum = iota + 1
	enumSecond
)

type myData struct {
	Enum      myEnum
	Something int64
	Else      string
}

type myJSONData struct {
	Enum      string `json:"enum"`
	Something int64  `json:"something"`
	Else      string `json:"else"`
}

func serializeMyData(data myData) (*myJSONData, error) {
	jsonData := &myJSONData{Something: data.Something, Else: data.Else}

	switch data.Enum {
	case enumFirst:
		jsonData.Enum = "FIRST"
	case enumSecond:
		jsonData.Enum = "SECOND"
	default:
		return nil, fmt.Errorf("unexpected enum value, %v", data.Enum)
	}

	return jsonData, nil
}

func deserializeMyData(jsonData *myJSONData) (myData, error) {
	data := myData{Something: jsonData.Something, Else: jsonData.Else}

	switch jsonData.Enum {
	case "FIRST":
		data.Enum = enumFirst
	case "SECOND":
		data.Enum = enumSecond
	default:
		return myData{}, fmt.Errorf("unexpected enum value, %v", jsonData.Enum)
	}

	return data, nil
}

var myDataSerde = serde.Fuse[myData, *myJSONData](
	serde.AsSerializerFunc(serializeMyData),
	serde.AsDeserializerFunc(deserializeMyData),
)

func TestJSON(t *testing.T) {
	myJSONSerde := serde.NewJSON(func() *myJSONData { return new(myJSONData) })

	t.Run("it works with valid data", func(t *testing.T) {
		myJSON := &myJSONData{Enum: "FIRST", Something: 1, Else: "Else"}

		expected, err := json.Marshal(myJSON)
		require.NoError(t, err)

		serialized, err := myJSONSerde.Serialize(myJSON)
		require.NoError(t, err)
		assert.Equal(t, expected, serialized)

		deserialized, err := myJSONSerde.Deserialize(serialized)
		require.NoError(t, err)
		assert.Equal(t, myJSON, deserialized)
	})

	t.Run("it fails deserialization of invalid json data", func(t *testing.T) {
		deserialized, err := myJSONSerde.Deserialize([]byte("{"))
		assert.Error(t, err)
		assert.Zero(t, deserialized)
	})
}

func TestChain(t *testing.T) {
	chained := serde.Chain[myData, *myJSONData, []byte](
		myDataSerde,
		serde.NewJSON(func() *myJSONData { return new(myJSONData) }),
	)

	t.Run("it maps through both stages", func(t *testing.T) {
		data := myData{Enum: enumSecond, Something: 42, Else: "else"}

		serialized, err := chained.Serialize(data)
		require.NoError(t, err)
		assert.JSONEq(t, `{"enum":"SECOND","something":42,"else":"else"}`, string(serialized))

		deserialized, err := chained.Deserialize(serialized)
		require.NoError(t, err)
		assert.Equal(t, data, deserialized)
	})

	t.Run("outer serialization errors are reported", func(t *testing.T) {
		_, err := chained.Serialize(myData{Enum: 99})
		assert.ErrorContains(t, err, "outer serialization failed")
	})

	t.Run("outer deserialization errors are reported", func(t *testing.T) {
		_, err := chained.Deserialize([]byte(`{"enum":"NOPE"}`))
		assert.ErrorContains(t, err, "outer deserialization failed")
	})
}

func TestProto(t *testing.T) {
	t.Run("binary encoding", func(t *testing.T) {
		s := serde.NewProto(func() *wrapperspb.StringValue { return new(wrapperspb.StringValue) })

		data, err := s.Serialize(wrapperspb.String("hello"))
		require.NoError(t, err)

		value, err := s.Deserialize(data)
		require.NoError(t, err)
		assert.Equal(t, "hello", value.GetValue())

		_, err = s.Deserialize([]byte{0xff, 0xff})
		assert.ErrorContains(t, err, "serde.Proto")
	})

	t.Run("json encoding", func(t *testing.T) {
		s := serde.NewProtoJSON(func() *structpb.Struct { return new(structpb.Struct) })

		original, err := structpb.NewStruct(map[string]any{"balance": 12500, "holder": "John"})
		require.NoError(t, err)

		data, err := s.Serialize(original)
		require.NoError(t, err)
		assert.JSONEq(t, `{"balance":12500,"holder":"John"}`, string(data))

		value, err := s.Deserialize(data)
		require.NoError(t, err)
		assert.True(t, proto.Equal(original, value))
	})
}

type greeted struct {
	Who string `json:"who"`
}

func (*greeted) Name() string { return "Greeted" }

func TestMessageJSON(t *testing.T) {
	s, err := serde.NewMessageJSON(func() message.Message { return new(greeted) })
	require.NoError(t, err)

	t.Run("it resolves the concrete type by name", func(t *testing.T) {
		data, err := s.Serialize(&greeted{Who: "world"})
		require.NoError(t, err)
		assert.JSONEq(t, `{"name":"Greeted","payload":{"who":"world"}}`, string(data))

		msg, err := s.Deserialize(data)
		require.NoError(t, err)
		assert.Equal(t, &greeted{Who: "world"}, msg)
	})

	t.Run("unknown names are reported", func(t *testing.T) {
		_, err := s.Deserialize([]byte(`{"name":"Waved","payload":{}}`))
		assert.ErrorIs(t, err, serde.ErrUnknownMessage)
	})

	t.Run("duplicate registrations fail", func(t *testing.T) {
		_, err := serde.NewMessageJSON(
			func() message.Message { return new(greeted) },
			func() message.Message { return new(greeted) },
		)
		assert.Error(t, err)
	})
}
