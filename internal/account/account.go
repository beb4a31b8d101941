// Package account is a small bank account domain, modeled as an
// event-sourced Aggregate.
//
// This package is used by tests across the module and by the ledger command.
package account

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/get-eventually/go-replay/aggregate"
	"github.com/get-eventually/go-replay/event"
)

// ID is the Account aggregate identifier.
type ID uuid.UUID

// NewID returns a new random Account identifier.
func NewID() ID { return ID(uuid.New()) }

// ParseID parses an Account identifier from its string representation.
func ParseID(s string) (ID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return ID(uuid.Nil), fmt.Errorf("account.ParseID: failed to parse id, %w", err)
	}

	return ID(id), nil
}

func (id ID) String() string { return uuid.UUID(id).String() }

// Type is the Account aggregate type.
var Type = aggregate.Type[ID, *Account]{
	Name:    "Account",
	Factory: func() *Account { return new(Account) },
}

// Repository is the repository type for Account aggregates.
type Repository = aggregate.Repository[ID, *Account]

// All the errors returned by Account operations.
var (
	ErrEmptyID           = errors.New("account: invalid id, is empty")
	ErrEmptyNumber       = errors.New("account: invalid number, is empty")
	ErrEmptyHolder       = errors.New("account: invalid holder, is empty")
	ErrInvalidAmount     = errors.New("account: invalid amount, must be positive")
	ErrNotOpened         = errors.New("account: account has not been opened")
	ErrInsufficientFunds = errors.New("account: insufficient funds")
	ErrIDMismatch        = errors.New("account: event belongs to another account")
)

// State is the state of an Account, rebuilt by folding its Domain Events.
type State struct {
	ID       ID
	Number   string
	Holder   string
	Balance  Amount
	OpenedAt time.Time
}

// Account is a bank account holding a balance, which can be
// deposited to and withdrawn from.
type Account struct {
	aggregate.BaseRoot

	state State
}

// AggregateID implements aggregate.Root.
func (a *Account) AggregateID() ID { return a.state.ID }

// State returns a copy of the current Account state.
func (a *Account) State() State { return a.state }

// Apply implements aggregate.Aggregate.
func (a *Account) Apply(evt event.Event) error {
	accountEvent, ok := evt.(*Event)
	if !ok || accountEvent.Kind == nil {
		return fmt.Errorf("account.Apply: %w, %T", aggregate.ErrUnknownEvent, evt)
	}

	next, err := evolve(a.state, accountEvent)
	if err != nil {
		return fmt.Errorf("account.Apply: %w", err)
	}

	a.state = next

	return nil
}

// evolve computes the State following the one provided, once the Domain Event
// is applied. It works on a copy, so a failure leaves the original untouched.
func evolve(state State, evt *Event) (State, error) {
	if state.ID != (ID{}) && state.ID != evt.ID {
		return state, fmt.Errorf("%w, account: %s, event: %s", ErrIDMismatch, state.ID, evt.ID)
	}

	folder := stateFolder{state: state, evt: evt}
	if err := evt.Kind.Accept(&folder); err != nil {
		return state, err
	}

	return folder.state, nil
}

type stateFolder struct {
	state State
	evt   *Event
}

func (f *stateFolder) VisitWasOpened(kind *WasOpened) error {
	f.state = State{
		ID:       f.evt.ID,
		Number:   kind.Number,
		Holder:   kind.Holder,
		Balance:  0,
		OpenedAt: f.evt.RecordTime,
	}

	return nil
}

func (f *stateFolder) VisitFundsWereDeposited(kind *FundsWereDeposited) error {
	f.state.ID = f.evt.ID
	f.state.Balance = kind.Balance

	return nil
}

func (f *stateFolder) VisitFundsWereWithdrawn(kind *FundsWereWithdrawn) error {
	f.state.ID = f.evt.ID
	f.state.Balance = kind.Balance

	return nil
}

// recordTime drops the zone and the monotonic clock reading, so that
// Domain Events compare equal to their deserialized form.
func recordTime(now time.Time) time.Time { return now.UTC().Round(0) }

// Open opens a new Account using the provided input.
func Open(id ID, number, holder string, now time.Time) (*Account, error) {
	var errs []error

	if id == ID(uuid.Nil) {
		errs = append(errs, ErrEmptyID)
	}

	if number == "" {
		errs = append(errs, ErrEmptyNumber)
	}

	if holder == "" {
		errs = append(errs, ErrEmptyHolder)
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("account.Open: invalid arguments, %w", err)
	}

	account := Type.Factory()

	if err := aggregate.RecordThat[ID](account, event.ToEnvelope(&Event{
		ID:         id,
		RecordTime: recordTime(now),
		Kind:       &WasOpened{Number: number, Holder: holder},
	})); err != nil {
		return nil, fmt.Errorf("account.Open: failed to record domain event, %w", err)
	}

	return account, nil
}

// Deposit adds the specified amount to the Account balance.
func (a *Account) Deposit(amount Amount, now time.Time) error {
	if a.Version().IsUnborn() {
		return fmt.Errorf("account.Deposit: %w", ErrNotOpened)
	}

	if amount <= 0 {
		return fmt.Errorf("account.Deposit: %w", ErrInvalidAmount)
	}

	if a.state.Balance > math.MaxInt64-amount {
		return fmt.Errorf("account.Deposit: balance would overflow, %w", ErrInvalidAmount)
	}

	if err := aggregate.RecordThat[ID](a, event.ToEnvelope(&Event{
		ID:         a.state.ID,
		RecordTime: recordTime(now),
		Kind: &FundsWereDeposited{
			Amount:  amount,
			Balance: a.state.Balance + amount,
		},
	})); err != nil {
		return fmt.Errorf("account.Deposit: failed to record domain event, %w", err)
	}

	return nil
}

// Withdraw removes the specified amount from the Account balance.
//
// ErrInsufficientFunds is returned if the balance does not cover the amount.
func (a *Account) Withdraw(amount Amount, now time.Time) error {
	if a.Version().IsUnborn() {
		return fmt.Errorf("account.Withdraw: %w", ErrNotOpened)
	}

	if amount <= 0 {
		return fmt.Errorf("account.Withdraw: %w", ErrInvalidAmount)
	}

	if amount > a.state.Balance {
		return fmt.Errorf("account.Withdraw: balance %s, requested %s, %w", a.state.Balance, amount, ErrInsufficientFunds)
	}

	if err := aggregate.RecordThat[ID](a, event.ToEnvelope(&Event{
		ID:         a.state.ID,
		RecordTime: recordTime(now),
		Kind: &FundsWereWithdrawn{
			Amount:  amount,
			Balance: a.state.Balance - amount,
		},
	})); err != nil {
		return fmt.Errorf("account.Withdraw: failed to record domain event, %w", err)
	}

	return nil
}
