package events

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/guminc/EvolvableArchetype/api/utils"
	"github.com/guminc/EvolvableArchetype/archetype"
	"github.com/guminc/EvolvableArchetype/transferdb"
)

const defaultLimit = 20

type Events struct {
	journal *transferdb.TransferDB
}

func New(journal *transferdb.TransferDB) *Events {
	return &Events{journal}
}

func (e *Events) handleGetEvents(w http.ResponseWriter, req *http.Request) error {
	query := req.URL.Query()
	limit, offset, err := parsePaging(query)
	if err != nil {
		return utils.BadRequest(err)
	}

	tokenParam := query.Get("token")
	addressParam := query.Get("address")
	if tokenParam != "" && addressParam != "" {
		return utils.BadRequest(errors.New("token and address filters are exclusive"))
	}

	var events []*transferdb.Event
	switch {
	case tokenParam != "":
		id, err := strconv.ParseUint(tokenParam, 10, 64)
		if err != nil {
			return utils.BadRequest(errors.WithMessage(err, "token"))
		}
		events, err = e.journal.QueryByToken(id, limit, offset)
		if err != nil {
			return err
		}
	case addressParam != "":
		addr, err := archetype.ParseAddress(addressParam)
		if err != nil {
			return utils.BadRequest(errors.WithMessage(err, "address"))
		}
		events, err = e.journal.QueryByAddress(*addr, limit, offset)
		if err != nil {
			return err
		}
	default:
		return utils.BadRequest(errors.New("token or address filter required"))
	}
	return utils.WriteJSON(w, events)
}

func parsePaging(query map[string][]string) (limit uint64, offset uint64, err error) {
	limit = defaultLimit
	if vals := query["limit"]; len(vals) > 0 {
		if limit, err = strconv.ParseUint(vals[0], 10, 32); err != nil {
			return 0, 0, errors.WithMessage(err, "limit")
		}
	}
	if vals := query["offset"]; len(vals) > 0 {
		if offset, err = strconv.ParseUint(vals[0], 10, 32); err != nil {
			return 0, 0, errors.WithMessage(err, "offset")
		}
	}
	return limit, offset, nil
}

func (e *Events) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodGet).
		Name("events_get_events").
		HandlerFunc(utils.WrapHandlerFunc(e.handleGetEvents))
}
