package account

import (
	"context"
	"fmt"

	"github.com/get-eventually/go-replay/aggregate"
	"github.com/get-eventually/go-replay/query"
)

var (
	_ query.Query                     = GetAccount{}
	_ query.Handler[GetAccount, View] = GetAccountHandler{}
)

// GetAccount is the domain query used to read the current state of an Account.
type GetAccount struct {
	ID ID
}

// Name implements query.Query.
func (GetAccount) Name() string { return "GetAccount" }

// View is the read-only representation of an Account returned by GetAccount.
type View struct {
	State
	Version int64
}

// GetAccountHandler is the query handler for GetAccount domain queries.
type GetAccountHandler struct {
	Repository aggregate.Getter[ID, *Account]
}

// Handle implements query.Handler.
func (h GetAccountHandler) Handle(ctx context.Context, q query.Envelope[GetAccount]) (View, error) {
	account, err := h.Repository.Get(ctx, q.Message.ID)
	if err != nil {
		return View{}, fmt.Errorf("account.GetAccountHandler: failed to get Account from repository, %w", err)
	}

	return View{
		State:   account.State(),
		Version: int64(account.Version()),
	}, nil
}
