package tokens

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/guminc/EvolvableArchetype/api/utils"
	"github.com/guminc/EvolvableArchetype/token"
	"github.com/guminc/EvolvableArchetype/transferdb"
)

var logger = log.New("pkg", "tokens")

type Tokens struct {
	token    *token.Token
	journal  *transferdb.TransferDB
	strategy token.EvolutionStrategy
}

func New(tok *token.Token, journal *transferdb.TransferDB, strategy token.EvolutionStrategy) *Tokens {
	return &Tokens{
		tok,
		journal,
		strategy,
	}
}

func (t *Tokens) handleGetToken(w http.ResponseWriter, req *http.Request) error {
	id, err := parseID(mux.Vars(req)["id"])
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "id"))
	}
	now := uint64(time.Now().Unix())
	owner, err := t.token.OwnerOf(id)
	if err != nil {
		return convertTokenError(err)
	}
	stake, err := t.token.StakeInfoOf(id, now)
	if err != nil {
		return convertTokenError(err)
	}
	resp := &TokenResponse{
		ID:    id,
		Owner: owner,
		Stake: stake,
	}
	if t.strategy != nil {
		stage := t.strategy.Evolve(id, stake.TotalStakedTime)
		resp.Evolution = &stage
	}
	return utils.WriteJSON(w, resp)
}

func (t *Tokens) handleMint(w http.ResponseWriter, req *http.Request) error {
	var mintReq MintRequest
	if err := utils.ParseJSON(req.Body, &mintReq); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	now := uint64(time.Now().Unix())
	first, last, err := t.token.Mint(mintReq.To, mintReq.Quantity, mintReq.AutoStake, now)
	if err != nil {
		return convertTokenError(err)
	}
	t.record(transferdb.NewMint(now, mintReq.To, first, last))
	return utils.WriteJSON(w, &MintResponse{FirstID: first, LastID: last})
}

func (t *Tokens) handleTransfer(w http.ResponseWriter, req *http.Request) error {
	id, err := parseID(mux.Vars(req)["id"])
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "id"))
	}
	var transferReq TransferRequest
	if err := utils.ParseJSON(req.Body, &transferReq); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	now := uint64(time.Now().Unix())
	if err := t.token.Transfer(transferReq.From, transferReq.To, id, now); err != nil {
		return convertTokenError(err)
	}
	t.record(transferdb.NewTransfer(now, transferReq.From, transferReq.To, id))
	return utils.WriteJSON(w, utils.M{"ok": true})
}

// record appends to the event journal. State is already committed at this
// point, so a journal failure is logged rather than surfaced.
func (t *Tokens) record(ev *transferdb.Event) {
	if t.journal == nil {
		return
	}
	if err := t.journal.Insert([]*transferdb.Event{ev}); err != nil {
		logger.Warn("journal insert failed", "err", err, "event", ev)
	}
}

func parseID(s string) (uint64, error) {
	return strconv.ParseUint(s, 10, 64)
}

func convertTokenError(err error) error {
	switch {
	case errors.Is(err, token.ErrNonexistentToken):
		return utils.NotFound(err)
	case errors.Is(err, token.ErrTokenLocked):
		return utils.Forbidden(err)
	case errors.Is(err, token.ErrInvalidQuantity),
		errors.Is(err, token.ErrInvalidTransfer):
		return utils.BadRequest(err)
	default:
		return err
	}
}

func (t *Tokens) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodPost).
		Name("tokens_mint").
		HandlerFunc(utils.WrapHandlerFunc(t.handleMint))
	sub.Path("/{id}").
		Methods(http.MethodGet).
		Name("tokens_get_token").
		HandlerFunc(utils.WrapHandlerFunc(t.handleGetToken))
	sub.Path("/{id}/transfer").
		Methods(http.MethodPost).
		Name("tokens_transfer").
		HandlerFunc(utils.WrapHandlerFunc(t.handleTransfer))
}
