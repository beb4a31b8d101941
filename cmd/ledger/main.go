// Package main contains a small ledger application, opening an Account and
// moving funds in and out of it through the Account command handlers,
// on top of the Event Log backend configured through the environment.
//
// The application reads the following environment variables:
//
//	LEDGER_BACKEND                 memory (default), sqlite, postgres or firestore
//	LEDGER_SQLITE_PATH             path of the SQLite database file (default: ledger.db)
//	LEDGER_POSTGRES_DSN            PostgreSQL connection string
//	LEDGER_FIRESTORE_PROJECT_ID    Google Cloud project hosting the Firestore database
//	LEDGER_LOG_FORMAT              zap (default) or zerolog
//	LEDGER_LOG_DEBUG               enables debug logs
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/zap"

	"github.com/get-eventually/go-replay/aggregate"
	"github.com/get-eventually/go-replay/command"
	"github.com/get-eventually/go-replay/event"
	"github.com/get-eventually/go-replay/internal/account"
	"github.com/get-eventually/go-replay/logger"
	"github.com/get-eventually/go-replay/logger/zaplogger"
	"github.com/get-eventually/go-replay/logger/zerologger"
	"github.com/get-eventually/go-replay/otelreplay"
	"github.com/get-eventually/go-replay/query"
	"github.com/get-eventually/go-replay/version"
)

func newLogger(cfg *config) (logger.Logger, func(), error) {
	if cfg.Log.Format == logFormatZerolog {
		level := zerolog.InfoLevel
		if cfg.Log.Debug {
			level = zerolog.DebugLevel
		}

		l := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

		return zerologger.Wrap(l), func() {}, nil
	}

	newZapLogger := zap.NewProduction
	if cfg.Log.Debug {
		newZapLogger = zap.NewDevelopment
	}

	l, err := newZapLogger()
	if err != nil {
		return nil, nil, fmt.Errorf("ledger: failed to initialize logger, %w", err)
	}

	//nolint:errcheck // No need for this error to come up if it happens.
	return zaplogger.Wrap(l), func() { l.Sync() }, nil
}

type handlers struct {
	open       command.Handler[account.OpenAccount]
	deposit    command.Handler[account.DepositFunds]
	withdraw   command.Handler[account.WithdrawFunds]
	getAccount query.Handler[account.GetAccount, account.View]
}

func newHandlers(repository *otelreplay.InstrumentedRepository[account.ID, *account.Account]) handlers {
	return handlers{
		open:     account.OpenAccountHandler{Clock: time.Now, Repository: repository},
		deposit:  account.DepositFundsHandler{Clock: time.Now, Repository: repository},
		withdraw: account.WithdrawFundsHandler{Clock: time.Now, Repository: repository},

		getAccount: account.GetAccountHandler{Repository: repository},
	}
}

func mustParseAmount(s string) account.Amount {
	amount, err := account.ParseAmount(s)
	if err != nil {
		panic(err)
	}

	return amount
}

// runScenario opens a new Account, deposits 100.00 and 50.00, withdraws 25.00
// and attempts to withdraw 1000.00, which must be rejected.
func runScenario(ctx context.Context, h handlers, id account.ID) error {
	if err := h.open.Handle(ctx, command.ToEnvelope(account.OpenAccount{
		ID:     id,
		Number: "0001",
		Holder: "John Doe",
	})); err != nil {
		return err
	}

	for _, amount := range []string{"100.00", "50.00"} {
		if err := h.deposit.Handle(ctx, command.ToEnvelope(account.DepositFunds{
			AccountID: id,
			Amount:    mustParseAmount(amount),
		})); err != nil {
			return err
		}
	}

	if err := h.withdraw.Handle(ctx, command.ToEnvelope(account.WithdrawFunds{
		AccountID: id,
		Amount:    mustParseAmount("25.00"),
	})); err != nil {
		return err
	}

	err := h.withdraw.Handle(ctx, command.ToEnvelope(account.WithdrawFunds{
		AccountID: id,
		Amount:    mustParseAmount("1000.00"),
	}))
	if !errors.Is(err, account.ErrInsufficientFunds) {
		return fmt.Errorf("ledger: expected overdraft to be rejected, got %v", err)
	}

	return nil
}

func run(ctx context.Context, cfg *config, out io.Writer) error {
	l, syncLogger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	defer syncLogger()

	eventLog, closeEventLog, err := openEventLog(ctx, cfg, l)
	if err != nil {
		return fmt.Errorf("ledger: failed to open %s event log, %w", cfg.Backend, err)
	}

	defer closeEventLog()

	instrumentedLog, err := otelreplay.NewInstrumentedLog(event.NewVerboseLog(eventLog, l))
	if err != nil {
		return err
	}

	repository, err := otelreplay.NewInstrumentedRepository(
		account.Type,
		aggregate.NewEventSourcedRepository(instrumentedLog, account.Type),
	)
	if err != nil {
		return err
	}

	id := account.NewID()
	h := newHandlers(repository)

	if err := runScenario(ctx, h, id); err != nil {
		return err
	}

	view, err := h.getAccount.Handle(ctx, query.ToEnvelope(account.GetAccount{ID: id}))
	if err != nil {
		return fmt.Errorf("ledger: failed to load account, %w", err)
	}

	history, err := event.StreamToSlice(ctx, func(ctx context.Context, stream event.StreamWrite) error {
		return instrumentedLog.Stream(ctx, stream, event.StreamID(id.String()), version.SelectFromBeginning)
	})
	if err != nil {
		return fmt.Errorf("ledger: failed to stream account history, %w", err)
	}

	logger.Info(l, "Scenario completed",
		logger.With("account_id", id.String()),
		logger.With("events", len(history)),
	)

	_, err = fmt.Fprintf(out, "account %s: balance %s, version %d\n", id, view.Balance, view.Version)

	return err
}

func main() {
	cfg, err := parseConfig()
	if err != nil {
		panic(err)
	}

	if err := run(context.Background(), cfg, os.Stdout); err != nil {
		panic(err)
	}
}
