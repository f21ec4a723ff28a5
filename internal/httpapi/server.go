// Package httpapi is the HTTP surface spec.md §4.H describes: routes
// "/{route}/{uid}" for GET/PUT/POST/DELETE, mode-flag dispatch to either the
// local model or the replication strategy, and response ETags.
package httpapi

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/westial/minstore/internal/kvstore"
	"github.com/westial/minstore/internal/kvstore/cache"
	"github.com/westial/minstore/internal/kvstore/spread"
)

// Server wires the injected model, replication strategy and optional cache
// into request handlers. There are no process-wide statics — every
// dependency arrives through NewServer, unlike the global
// storage/model/strategy singletons design note §9 flags for replacement.
type Server struct {
	model  *kvstore.Model
	spread *spread.Spread
	cache  cache.Cache
	route  string
	log    *logrus.Logger
}

// NewServer constructs a Server. cache may be nil: a node that never runs in
// cache mode needs none.
func NewServer(model *kvstore.Model, sp *spread.Spread, c cache.Cache, route string, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{model: model, spread: sp, cache: c, route: route, log: log}
}

// Routes builds the node's HTTP handler: the four text verbs behind a
// request-ID and access-logging middleware.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	pattern := "/" + s.route + "/{uid}"
	mux.HandleFunc("GET "+pattern, s.handleGet)
	mux.HandleFunc("PUT "+pattern, s.handlePut)
	mux.HandleFunc("POST "+pattern, s.handlePost)
	mux.HandleFunc("DELETE "+pattern, s.handleDelete)
	return s.withLogging(mux)
}
