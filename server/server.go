// Package server provides an HTTP REST server for parsing sources and
// re-parsing them incrementally as clients edit them.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/dekarrin/remora/languages/bolt"
	"github.com/dekarrin/remora/server/api"
	"github.com/dekarrin/remora/server/service"
	"github.com/go-chi/chi/v5"
	"github.com/tliron/commonlog"
)

// RemoraServer is an HTTP REST server that holds parse sessions. The
// zero-value of a RemoraServer should not be used directly; call New() to get
// one ready for use.
type RemoraServer struct {
	router chi.Router
	svc    *service.Service
	log    commonlog.Logger
	listen string
}

// New creates a new RemoraServer from cfg. Unset values in cfg are replaced
// with their defaults. The built-in languages and every grammar in
// cfg.Grammars are loaded before New returns.
func New(ctx context.Context, cfg Config, log commonlog.Logger) (*RemoraServer, error) {
	cfg = cfg.FillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	db, err := cfg.DB.Connect()
	if err != nil {
		return nil, err
	}
	svc := service.New(db, cfg.ParserOptions())

	boltLang, err := bolt.Language()
	if err != nil {
		svc.Close()
		return nil, err
	}
	if err := svc.AddLanguage(boltLang); err != nil {
		svc.Close()
		return nil, err
	}

	for _, path := range cfg.Grammars {
		data, err := os.ReadFile(path)
		if err != nil {
			svc.Close()
			return nil, fmt.Errorf("read grammar: %w", err)
		}
		lang, cached, err := svc.LoadGrammar(ctx, data)
		if err != nil {
			svc.Close()
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if cached {
			log.Infof("loaded language %s from cached automaton", lang.Name())
		} else {
			log.Infof("compiled language %s from %s", lang.Name(), path)
		}
	}

	rs := &RemoraServer{
		svc:    svc,
		log:    log,
		listen: cfg.Listen,
	}
	rs.router = newRouter(api.API{Backend: svc, Log: log})

	return rs, nil
}

// Service returns the backend the server's API calls into.
func (rs *RemoraServer) Service() *service.Service {
	return rs.svc
}

// ServeHTTP routes req to the API.
func (rs *RemoraServer) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	rs.router.ServeHTTP(w, req)
}

// ServeForever begins listening on the configured address for HTTP REST
// client requests. It only returns if the server could not be started or
// stops.
func (rs *RemoraServer) ServeForever() error {
	rs.log.Noticef("listening on %s", rs.listen)
	return http.ListenAndServe(rs.listen, rs)
}

// Close releases the server's persistence store.
func (rs *RemoraServer) Close() error {
	return rs.svc.Close()
}
