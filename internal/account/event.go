package account

import (
	"time"

	"github.com/get-eventually/go-replay/event"
)

var _ event.Event = new(Event)

// Event is the Domain Event recorded by an Account.
//
// The payload specific to each Domain Event is held in Kind.
type Event struct {
	ID         ID
	RecordTime time.Time
	Kind       Kind
}

// Name implements event.Event.
// An Event with no Kind has an empty name.
func (evt *Event) Name() string {
	if evt.Kind == nil {
		return ""
	}

	return evt.Kind.Name()
}

// Kind is the closed set of Account Domain Event payloads.
//
// New kinds must add a method to KindVisitor, so that every place
// dispatching on the kind stops compiling until it handles the new one.
type Kind interface {
	event.Event
	Accept(KindVisitor) error
	isKind()
}

// KindVisitor dispatches on the concrete Kind of an Account Domain Event.
type KindVisitor interface {
	VisitWasOpened(*WasOpened) error
	VisitFundsWereDeposited(*FundsWereDeposited) error
	VisitFundsWereWithdrawn(*FundsWereWithdrawn) error
}

var (
	_ Kind = new(WasOpened)
	_ Kind = new(FundsWereDeposited)
	_ Kind = new(FundsWereWithdrawn)
)

// WasOpened is the Domain Event fired after an Account is opened.
type WasOpened struct {
	Number string
	Holder string
}

// Name implements message.Message.
func (*WasOpened) Name() string { return "AccountWasOpened" }

// Accept implements Kind.
func (k *WasOpened) Accept(v KindVisitor) error { return v.VisitWasOpened(k) }

func (*WasOpened) isKind() {}

// FundsWereDeposited is the Domain Event fired after some funds
// are deposited into an Account.
type FundsWereDeposited struct {
	Amount  Amount
	Balance Amount
}

// Name implements message.Message.
func (*FundsWereDeposited) Name() string { return "AccountFundsWereDeposited" }

// Accept implements Kind.
func (k *FundsWereDeposited) Accept(v KindVisitor) error { return v.VisitFundsWereDeposited(k) }

func (*FundsWereDeposited) isKind() {}

// FundsWereWithdrawn is the Domain Event fired after some funds
// are withdrawn from an Account.
type FundsWereWithdrawn struct {
	Amount  Amount
	Balance Amount
}

// Name implements message.Message.
func (*FundsWereWithdrawn) Name() string { return "AccountFundsWereWithdrawn" }

// Accept implements Kind.
func (k *FundsWereWithdrawn) Accept(v KindVisitor) error { return v.VisitFundsWereWithdrawn(k) }

func (*FundsWereWithdrawn) isKind() {}
