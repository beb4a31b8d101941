package account

import (
	"context"
	"fmt"
	"time"

	"github.com/get-eventually/go-replay/aggregate"
	"github.com/get-eventually/go-replay/command"
)

//nolint:exhaustruct // Interface implementation assertion.
var (
	_ command.Command = OpenAccount{}
	_ command.Command = DepositFunds{}
	_ command.Command = WithdrawFunds{}

	_ command.Handler[OpenAccount]   = OpenAccountHandler{}
	_ command.Handler[DepositFunds]  = DepositFundsHandler{}
	_ command.Handler[WithdrawFunds] = WithdrawFundsHandler{}
)

// OpenAccount is the domain command used to open a new Account.
type OpenAccount struct {
	ID     ID
	Number string
	Holder string
}

// Name implements command.Command.
func (OpenAccount) Name() string { return "OpenAccount" }

// OpenAccountHandler is the command handler for OpenAccount domain commands.
type OpenAccountHandler struct {
	Clock      func() time.Time
	Repository aggregate.Saver[ID, *Account]
}

// Handle implements command.Handler.
func (h OpenAccountHandler) Handle(ctx context.Context, cmd command.Envelope[OpenAccount]) error {
	account, err := Open(cmd.Message.ID, cmd.Message.Number, cmd.Message.Holder, h.Clock())
	if err != nil {
		return fmt.Errorf("account.OpenAccountHandler: failed to open new Account, %w", err)
	}

	if err := h.Repository.Save(ctx, account); err != nil {
		return fmt.Errorf("account.OpenAccountHandler: failed to save new Account to repository, %w", err)
	}

	return nil
}

// DepositFunds is the domain command used to deposit funds into an existing Account.
type DepositFunds struct {
	AccountID ID
	Amount    Amount
}

// Name implements command.Command.
func (DepositFunds) Name() string { return "DepositFunds" }

// DepositFundsHandler is the command handler for DepositFunds domain commands.
type DepositFundsHandler struct {
	Clock      func() time.Time
	Repository aggregate.Updater[ID, *Account]
}

// Handle implements command.Handler.
func (h DepositFundsHandler) Handle(ctx context.Context, cmd command.Envelope[DepositFunds]) error {
	if err := h.Repository.Update(ctx, cmd.Message.AccountID, func(account *Account) error {
		return account.Deposit(cmd.Message.Amount, h.Clock())
	}); err != nil {
		return fmt.Errorf("account.DepositFundsHandler: failed to deposit funds, %w", err)
	}

	return nil
}

// WithdrawFunds is the domain command used to withdraw funds from an existing Account.
type WithdrawFunds struct {
	AccountID ID
	Amount    Amount
}

// Name implements command.Command.
func (WithdrawFunds) Name() string { return "WithdrawFunds" }

// WithdrawFundsHandler is the command handler for WithdrawFunds domain commands.
type WithdrawFundsHandler struct {
	Clock      func() time.Time
	Repository aggregate.Updater[ID, *Account]
}

// Handle implements command.Handler.
func (h WithdrawFundsHandler) Handle(ctx context.Context, cmd command.Envelope[WithdrawFunds]) error {
	if err := h.Repository.Update(ctx, cmd.Message.AccountID, func(account *Account) error {
		return account.Withdraw(cmd.Message.Amount, h.Clock())
	}); err != nil {
		return fmt.Errorf("account.WithdrawFundsHandler: failed to withdraw funds, %w", err)
	}

	return nil
}
