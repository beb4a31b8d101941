package account

import (
	"errors"
	"fmt"
	"math"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/get-eventually/go-replay/message"
	"github.com/get-eventually/go-replay/serde"
)

// ErrUnsupportedMessage is returned by the Account event serdes when
// asked to serialize or deserialize something that is not an Account Domain Event.
var ErrUnsupportedMessage = errors.New("account: unsupported message")

// Amounts are carried as JSON numbers, so only the integer range
// a float64 represents exactly can be used.
const maxExactAmount = 1 << 53

const (
	fieldType       = "type"
	fieldID         = "id"
	fieldRecordTime = "recordTime"
	fieldNumber     = "number"
	fieldHolder     = "holder"
	fieldAmount     = "amount"
	fieldBalance    = "balance"
)

// EventStructSerde is the serde.Serde implementation for Account Domain Events
// to map to a Protobuf Struct value, which holds the event type, the Account id,
// the record time and the kind-specific payload fields.
var EventStructSerde = serde.Fused[message.Message, *structpb.Struct]{
	Serializer:   serde.AsSerializerFunc(serializeEventStruct),
	Deserializer: serde.AsDeserializerFunc(deserializeEventStruct),
}

// EventSerde is the serde.Bytes implementation for Account Domain Events,
// used by the durable Event Log implementations.
//
// Domain Events are mapped to a Protobuf Struct first, and then encoded as Protobuf JSON.
var EventSerde serde.Bytes[message.Message] = serde.Chain[message.Message, *structpb.Struct, []byte](
	EventStructSerde,
	serde.NewProtoJSON(func() *structpb.Struct { return new(structpb.Struct) }),
)

type structEncoder struct {
	fields map[string]any
}

func (e *structEncoder) amounts(amount, balance Amount) error {
	for _, a := range []Amount{amount, balance} {
		if a > maxExactAmount || a < -maxExactAmount {
			return fmt.Errorf("account.structEncoder: amount %s out of serializable range", a)
		}
	}

	e.fields[fieldAmount] = int64(amount)
	e.fields[fieldBalance] = int64(balance)

	return nil
}

func (e *structEncoder) VisitWasOpened(kind *WasOpened) error {
	e.fields[fieldNumber] = kind.Number
	e.fields[fieldHolder] = kind.Holder

	return nil
}

func (e *structEncoder) VisitFundsWereDeposited(kind *FundsWereDeposited) error {
	return e.amounts(kind.Amount, kind.Balance)
}

func (e *structEncoder) VisitFundsWereWithdrawn(kind *FundsWereWithdrawn) error {
	return e.amounts(kind.Amount, kind.Balance)
}

func serializeEventStruct(msg message.Message) (*structpb.Struct, error) {
	evt, ok := msg.(*Event)
	if !ok || evt.Kind == nil {
		return nil, fmt.Errorf("account.serializeEventStruct: %w, %T", ErrUnsupportedMessage, msg)
	}

	encoder := structEncoder{fields: map[string]any{
		fieldType:       evt.Kind.Name(),
		fieldID:         evt.ID.String(),
		fieldRecordTime: evt.RecordTime.UTC().Format(time.RFC3339Nano),
	}}

	if err := evt.Kind.Accept(&encoder); err != nil {
		return nil, fmt.Errorf("account.serializeEventStruct: failed to encode '%s', %w", evt.Name(), err)
	}

	result, err := structpb.NewStruct(encoder.fields)
	if err != nil {
		return nil, fmt.Errorf("account.serializeEventStruct: failed to build struct, %w", err)
	}

	return result, nil
}

var kindFactories = map[string]func() Kind{
	new(WasOpened).Name():          func() Kind { return new(WasOpened) },
	new(FundsWereDeposited).Name(): func() Kind { return new(FundsWereDeposited) },
	new(FundsWereWithdrawn).Name(): func() Kind { return new(FundsWereWithdrawn) },
}

type structDecoder struct {
	fields map[string]*structpb.Value
}

func (d structDecoder) string(key string) (string, error) {
	value, ok := d.fields[key].GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", fmt.Errorf("account.structDecoder: field '%s' is not a string", key)
	}

	return value.StringValue, nil
}

func (d structDecoder) amount(key string) (Amount, error) {
	value, ok := d.fields[key].GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("account.structDecoder: field '%s' is not a number", key)
	}

	n := value.NumberValue
	if n != math.Trunc(n) || math.Abs(n) > maxExactAmount {
		return 0, fmt.Errorf("account.structDecoder: field '%s' is not a valid amount, %v", key, n)
	}

	return Amount(n), nil
}

func (d structDecoder) amounts() (amount, balance Amount, err error) {
	if amount, err = d.amount(fieldAmount); err != nil {
		return 0, 0, err
	}

	if balance, err = d.amount(fieldBalance); err != nil {
		return 0, 0, err
	}

	return amount, balance, nil
}

func (d structDecoder) VisitWasOpened(kind *WasOpened) (err error) {
	if kind.Number, err = d.string(fieldNumber); err != nil {
		return err
	}

	kind.Holder, err = d.string(fieldHolder)

	return err
}

func (d structDecoder) VisitFundsWereDeposited(kind *FundsWereDeposited) (err error) {
	kind.Amount, kind.Balance, err = d.amounts()
	return err
}

func (d structDecoder) VisitFundsWereWithdrawn(kind *FundsWereWithdrawn) (err error) {
	kind.Amount, kind.Balance, err = d.amounts()
	return err
}

func deserializeEventStruct(src *structpb.Struct) (message.Message, error) {
	decoder := structDecoder{fields: src.GetFields()}

	typ, err := decoder.string(fieldType)
	if err != nil {
		return nil, fmt.Errorf("account.deserializeEventStruct: %w", err)
	}

	factory, ok := kindFactories[typ]
	if !ok {
		return nil, fmt.Errorf("account.deserializeEventStruct: %w, '%s'", ErrUnsupportedMessage, typ)
	}

	rawID, err := decoder.string(fieldID)
	if err != nil {
		return nil, fmt.Errorf("account.deserializeEventStruct: %w", err)
	}

	id, err := ParseID(rawID)
	if err != nil {
		return nil, fmt.Errorf("account.deserializeEventStruct: %w", err)
	}

	rawRecordTime, err := decoder.string(fieldRecordTime)
	if err != nil {
		return nil, fmt.Errorf("account.deserializeEventStruct: %w", err)
	}

	recordTime, err := time.Parse(time.RFC3339Nano, rawRecordTime)
	if err != nil {
		return nil, fmt.Errorf("account.deserializeEventStruct: failed to parse record time, %w", err)
	}

	kind := factory()
	if err := kind.Accept(decoder); err != nil {
		return nil, fmt.Errorf("account.deserializeEventStruct: failed to decode '%s', %w", typ, err)
	}

	return &Event{
		ID:         id,
		RecordTime: recordTime,
		Kind:       kind,
	}, nil
}
