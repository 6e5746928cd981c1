package accounts

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/guminc/EvolvableArchetype/api/utils"
	"github.com/guminc/EvolvableArchetype/archetype"
	"github.com/guminc/EvolvableArchetype/token"
)

type Accounts struct {
	token *token.Token
}

func New(tok *token.Token) *Accounts {
	return &Accounts{tok}
}

// AccountResponse per-address aggregate counters.
type AccountResponse struct {
	Address archetype.Address `json:"address"`
	Balance uint64            `json:"balance"`
	Minted  uint64            `json:"minted"`
	Aux     uint64            `json:"aux"`
}

func (a *Accounts) handleGetAccount(w http.ResponseWriter, req *http.Request) error {
	parsed, err := archetype.ParseAddress(mux.Vars(req)["address"])
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "address"))
	}
	addr := *parsed
	balance, err := a.token.BalanceOf(addr)
	if err != nil {
		return err
	}
	minted, err := a.token.NumberMinted(addr)
	if err != nil {
		return err
	}
	aux, err := a.token.AuxOf(addr)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, &AccountResponse{
		Address: addr,
		Balance: balance,
		Minted:  minted,
		Aux:     aux,
	})
}

func (a *Accounts) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/{address}").
		Methods(http.MethodGet).
		Name("accounts_get_account").
		HandlerFunc(utils.WrapHandlerFunc(a.handleGetAccount))
}
