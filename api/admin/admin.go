package admin

import (
	"math/big"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/guminc/EvolvableArchetype/api/utils"
	"github.com/guminc/EvolvableArchetype/archetype"
	"github.com/guminc/EvolvableArchetype/params"
	"github.com/guminc/EvolvableArchetype/token"
)

// paramKeys named params reachable through the admin surface.
// deploy-epoch is deliberately absent; it is fixed at first run.
var paramKeys = map[string]archetype.Bytes32{
	"auto-stake-mint":  archetype.KeyAutoStakeMint,
	"auto-stake-tx":    archetype.KeyAutoStakeTx,
	"min-staking-time": archetype.KeyMinStakingTime,
}

// Admin mutates params through the token engine so that writes stay
// serialized with ledger operations.
type Admin struct {
	token *token.Token
}

func New(tok *token.Token) *Admin {
	return &Admin{tok}
}

// ParamResponse value and lock status of one param.
type ParamResponse struct {
	Key    string `json:"key"`
	Value  uint64 `json:"value"`
	Locked bool   `json:"locked"`
}

// SetParamRequest body of POST /admin/params/{key}.
type SetParamRequest struct {
	Value uint64 `json:"value"`
}

func (a *Admin) handleGetParam(w http.ResponseWriter, req *http.Request) error {
	name, key, err := paramKey(req)
	if err != nil {
		return err
	}
	value, err := a.token.GetParam(key)
	if err != nil {
		return err
	}
	locked, err := a.token.ParamLocked(key)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, &ParamResponse{Key: name, Value: value, Locked: locked})
}

func (a *Admin) handleSetParam(w http.ResponseWriter, req *http.Request) error {
	name, key, err := paramKey(req)
	if err != nil {
		return err
	}
	var setReq SetParamRequest
	if err := utils.ParseJSON(req.Body, &setReq); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	// Auto-stake durations of 0 mean disabled; any non-zero duration must
	// meet the min-staking-time floor.
	if (key == archetype.KeyAutoStakeMint || key == archetype.KeyAutoStakeTx) && setReq.Value != 0 {
		floor, err := a.token.GetParam(archetype.KeyMinStakingTime)
		if err != nil {
			return err
		}
		if setReq.Value < floor {
			return utils.BadRequest(errors.Errorf("value: below min-staking-time %d", floor))
		}
	}
	if err := a.token.SetParam(key, new(big.Int).SetUint64(setReq.Value)); err != nil {
		if errors.Is(err, params.ErrKeyLocked) {
			return utils.Forbidden(err)
		}
		return err
	}
	return utils.WriteJSON(w, &ParamResponse{Key: name, Value: setReq.Value})
}

func (a *Admin) handleLockParam(w http.ResponseWriter, req *http.Request) error {
	name, key, err := paramKey(req)
	if err != nil {
		return err
	}
	if err := a.token.LockParam(key); err != nil {
		return err
	}
	value, err := a.token.GetParam(key)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, &ParamResponse{Key: name, Value: value, Locked: true})
}

func paramKey(req *http.Request) (string, archetype.Bytes32, error) {
	name := mux.Vars(req)["key"]
	key, ok := paramKeys[name]
	if !ok {
		return "", archetype.Bytes32{}, utils.BadRequest(errors.Errorf("key: unknown param %q", name))
	}
	return name, key, nil
}

func (a *Admin) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/params/{key}").
		Methods(http.MethodGet).
		Name("admin_get_param").
		HandlerFunc(utils.WrapHandlerFunc(a.handleGetParam))
	sub.Path("/params/{key}").
		Methods(http.MethodPost).
		Name("admin_set_param").
		HandlerFunc(utils.WrapHandlerFunc(a.handleSetParam))
	sub.Path("/params/{key}/lock").
		Methods(http.MethodPost).
		Name("admin_lock_param").
		HandlerFunc(utils.WrapHandlerFunc(a.handleLockParam))
}
