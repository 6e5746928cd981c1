package api

import (
	"net/http"
	"net/http/pprof"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/guminc/EvolvableArchetype/api/accounts"
	"github.com/guminc/EvolvableArchetype/api/admin"
	"github.com/guminc/EvolvableArchetype/api/events"
	"github.com/guminc/EvolvableArchetype/api/tokens"
	"github.com/guminc/EvolvableArchetype/metrics"
	"github.com/guminc/EvolvableArchetype/token"
	"github.com/guminc/EvolvableArchetype/transferdb"
)

var logger = log.New("pkg", "api")

type Options struct {
	AllowedOrigins  string
	PprofOn         bool
	EnableReqLogger bool
	EnableMetrics   bool
}

// New return api router
func New(
	tok *token.Token,
	journal *transferdb.TransferDB,
	strategy token.EvolutionStrategy,
	opts Options,
) http.HandlerFunc {
	origins := strings.Split(strings.TrimSpace(opts.AllowedOrigins), ",")
	for i, o := range origins {
		origins[i] = strings.ToLower(strings.TrimSpace(o))
	}

	router := mux.NewRouter()

	tokens.New(tok, journal, strategy).
		Mount(router, "/tokens")
	accounts.New(tok).
		Mount(router, "/accounts")
	if journal != nil {
		events.New(journal).
			Mount(router, "/events")
	}
	admin.New(tok).
		Mount(router, "/admin")

	if opts.PprofOn {
		router.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		router.HandleFunc("/debug/pprof/profile", pprof.Profile)
		router.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		router.HandleFunc("/debug/pprof/trace", pprof.Trace)
		router.PathPrefix("/debug/pprof/").HandlerFunc(pprof.Index)
	}

	if opts.EnableMetrics {
		router.Use(metricsHandler)
		if h := metrics.HTTPHandler(); h != nil {
			router.Path("/metrics").Handler(h)
		}
	}

	handler := handlers.CompressHandler(router)
	handler = handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedHeaders([]string{"content-type"}),
	)(handler)

	if opts.EnableReqLogger {
		handler = RequestLoggerHandler(handler, logger)
	}

	return handler.ServeHTTP
}
