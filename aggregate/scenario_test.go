package aggregate_test

import (
	"testing"

	"github.com/get-eventually/go-replay/aggregate"
	"github.com/get-eventually/go-replay/internal/account"
)

func TestScenario(t *testing.T) {
	id := account.NewID()

	t.Run("test an aggregate function with one factory", func(t *testing.T) {
		aggregate.
			Scenario(account.Type).
			When(func() (*account.Account, error) {
				return account.Open(id, "123", "John Doe", now)
			}).
			Then(0, accountEvent(id, &account.WasOpened{Number: "123", Holder: "John Doe"})).
			AssertOn(t)
	})

	t.Run("test an aggregate function with one factory call that returns an error", func(t *testing.T) {
		aggregate.
			Scenario(account.Type).
			When(func() (*account.Account, error) {
				return account.Open(id, "", "John Doe", now)
			}).
			ThenFails().
			AssertOn(t)
	})

	t.Run("test an aggregate function with one factory call that returns specific errors", func(t *testing.T) {
		aggregate.
			Scenario(account.Type).
			When(func() (*account.Account, error) {
				return account.Open(id, "", "", now)
			}).
			ThenErrors(account.ErrEmptyNumber, account.ErrEmptyHolder).
			AssertOn(t)
	})

	t.Run("test an aggregate function with an already-existing AggregateRoot instance", func(t *testing.T) {
		aggregate.
			Scenario(account.Type).
			Given(
				accountEvent(id, &account.WasOpened{Number: "123", Holder: "John Doe"}),
				accountEvent(id, &account.FundsWereDeposited{Amount: 100, Balance: 100}),
			).
			When(func(acc *account.Account) error {
				return acc.Withdraw(75, now)
			}).
			Then(2, accountEvent(id, &account.FundsWereWithdrawn{Amount: 75, Balance: 25})).
			AssertOn(t)
	})

	t.Run("test a failing aggregate function with an already-existing AggregateRoot instance", func(t *testing.T) {
		aggregate.
			Scenario(account.Type).
			Given(accountEvent(id, &account.WasOpened{Number: "123", Holder: "John Doe"})).
			When(func(acc *account.Account) error {
				return acc.Withdraw(75, now)
			}).
			ThenError(account.ErrInsufficientFunds).
			AssertOn(t)
	})

	t.Run("test a chain of operations recorded on an already-existing AggregateRoot instance", func(t *testing.T) {
		aggregate.
			Scenario(account.Type).
			Given(accountEvent(id, &account.WasOpened{Number: "123", Holder: "John Doe"})).
			When(func(acc *account.Account) error {
				if err := acc.Deposit(10000, now); err != nil {
					return err
				}

				return acc.Withdraw(2500, now)
			}).
			Then(2,
				accountEvent(id, &account.FundsWereDeposited{Amount: 10000, Balance: 10000}),
				accountEvent(id, &account.FundsWereWithdrawn{Amount: 2500, Balance: 7500}),
			).
			AssertOn(t)
	})

	t.Run("test an aggregate function on an account that was never opened", func(t *testing.T) {
		aggregate.
			Scenario(account.Type).
			Given().
			When(func(acc *account.Account) error {
				return acc.Deposit(10000, now)
			}).
			ThenError(account.ErrNotOpened).
			AssertOn(t)
	})
}
