// Package spread implements the replication strategy spec.md §4.G calls the
// hard part: fire-and-forget fan-out (spread_put/spread_delete) for origin
// writes, and sequential cache-backed read-through (bounce_*) for cache-mode
// nodes that own no authoritative storage of their own.
package spread

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"

	"github.com/westial/minstore/internal/kvstore"
	"github.com/westial/minstore/internal/kvstore/cache"
	"github.com/westial/minstore/internal/kvstore/peerclient"
	"github.com/westial/minstore/internal/kvstore/registry"
)

// DefaultWorkers bounds the fan-out worker pool. Design note §9 in
// SPEC_FULL.md calls for a bounded pool rather than one goroutine per peer
// per call, to prevent resource exhaustion under write load.
const DefaultWorkers = 8

// defaultQueueSize bounds the fan-out job backlog. While the queue has room a
// job waits for a free worker; once it is full, further jobs are dropped with
// a warning instead of blocking the caller.
const defaultQueueSize = 1024

type fanoutJob struct {
	method string
	peer   string
	uid    string
	form   url.Values
	query  map[string]string
}

// errCacheAlreadySet guards SetCache's once-only contract.
var errCacheAlreadySet = fmt.Errorf("spread: cache already set")

// Spread orchestrates both fan-out families against a fixed peer registry.
type Spread struct {
	reg   *registry.Registry
	route string
	log   *logrus.Logger

	cache    cache.Cache
	cacheSet bool

	jobs chan fanoutJob
	done chan struct{}

	clients map[string]*peerclient.Client
}

// New constructs a Spread over reg, fanning out to "<peer>/<route>/<uid>".
// It starts a bounded worker pool immediately; there is no separate Start.
func New(reg *registry.Registry, route string, logger *logrus.Logger) *Spread {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	s := &Spread{
		reg:     reg,
		route:   route,
		log:     logger,
		jobs:    make(chan fanoutJob, defaultQueueSize),
		done:    make(chan struct{}),
		clients: make(map[string]*peerclient.Client),
	}
	for _, peer := range reg.Peers() {
		s.clients[peer] = peerclient.New(peer)
	}

	for i := 0; i < DefaultWorkers; i++ {
		go s.worker()
	}

	return s
}

// Close stops the fan-out worker pool. Already-enqueued jobs are dropped —
// fan-out was never guaranteed to complete, only to be attempted.
func (s *Spread) Close() {
	close(s.done)
}

// SetCache attaches a Cache for bounce_* to populate. May only be called
// once; a second call returns errCacheAlreadySet. If the cache is enabled,
// the registry must already have at least one peer configured, or
// ErrServerMissing is raised.
func (s *Spread) SetCache(c cache.Cache) error {
	if s.cacheSet {
		return errCacheAlreadySet
	}
	if c != nil && c.IsEnabled() && len(s.reg.Peers()) == 0 {
		return kvstore.ErrServerMissing
	}
	s.cache = c
	s.cacheSet = true
	return nil
}

func (s *Spread) worker() {
	for {
		select {
		case <-s.done:
			return
		case job := <-s.jobs:
			s.runJob(job)
		}
	}
}

func (s *Spread) runJob(job fanoutJob) {
	client := s.clients[job.peer]
	if client == nil {
		client = peerclient.New(job.peer)
	}

	segments := []string{s.route, job.uid}
	ctx := context.Background()

	var (
		resp *http.Response
		err  error
	)
	switch job.method {
	case http.MethodPut:
		resp, err = client.Put(ctx, segments, job.query, job.form)
	case http.MethodDelete:
		resp, err = client.Delete(ctx, segments, job.query)
	default:
		s.log.WithField("method", job.method).Error("spread: unknown fan-out method")
		return
	}

	entry := s.log.WithFields(logrus.Fields{
		"peer":   job.peer,
		"uid":    job.uid,
		"method": job.method,
	})
	if err != nil {
		entry.WithError(err).Warn("spread: fan-out failed")
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		entry.WithField("status", resp.StatusCode).Warn("spread: fan-out rejected by peer")
		return
	}
	entry.Debug("spread: fan-out delivered")
}

func (s *Spread) enqueue(job fanoutJob) {
	select {
	case s.jobs <- job:
	default:
		s.log.WithFields(logrus.Fields{"peer": job.peer, "uid": job.uid}).
			Warn("spread: fan-out queue full, dropping job")
	}
}

func (s *Spread) fanoutQuery() map[string]string {
	q := map[string]string{"mirror": "1"}
	if s.reg.Bridge() {
		q["bridge"] = "1"
	}
	return q
}

// SpreadPut fires an asynchronous PUT to every peer carrying r. Workers do
// not block the caller and their outcome is not reported back.
func (s *Spread) SpreadPut(r kvstore.Record) {
	content, err := json.Marshal(r)
	if err != nil {
		s.log.WithError(err).Error("spread: marshal record for fan-out")
		return
	}
	query := s.fanoutQuery()
	for _, peer := range s.reg.Peers() {
		s.enqueue(fanoutJob{
			method: http.MethodPut,
			peer:   peer,
			uid:    r.UID,
			form:   url.Values{"value": {string(content)}},
			query:  query,
		})
	}
}

// SpreadDelete fires an asynchronous DELETE to every peer for uid.
func (s *Spread) SpreadDelete(uid string) {
	query := s.fanoutQuery()
	for _, peer := range s.reg.Peers() {
		s.enqueue(fanoutJob{
			method: http.MethodDelete,
			peer:   peer,
			uid:    uid,
			query:  query,
		})
	}
}

func parseRecordBody(resp *http.Response) (kvstore.Record, error) {
	defer resp.Body.Close()
	var r kvstore.Record
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return kvstore.Record{}, fmt.Errorf("parse peer response: %w", err)
	}
	return r, nil
}

// BounceGet walks peers in declaration order and returns the first record
// whose peer answers 200 with a body that parses as a valid record. Does not
// write the cache — cache population is driven by the write paths only.
func (s *Spread) BounceGet(uid string) (kvstore.Record, error) {
	for _, peer := range s.reg.Peers() {
		client := s.clients[peer]
		resp, err := client.Get(context.Background(), []string{s.route, uid}, nil)
		if err != nil {
			s.log.WithFields(logrus.Fields{"peer": peer, "uid": uid}).WithError(err).Debug("bounce: get failed")
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			continue
		}
		r, err := parseRecordBody(resp)
		if err != nil {
			s.log.WithFields(logrus.Fields{"peer": peer, "uid": uid}).WithError(err).Debug("bounce: malformed peer response")
			continue
		}
		return r, nil
	}
	return kvstore.Record{}, kvstore.ErrRecordMissing
}

// bouncePeer issues method (PUT or POST) with form to a single peer and
// reports whether it succeeded, and the parsed record when it did.
func (s *Spread) bouncePeer(method, peer, uid string, form url.Values) (kvstore.Record, bool) {
	client := s.clients[peer]
	var (
		resp *http.Response
		err  error
	)
	ctx := context.Background()
	switch method {
	case http.MethodPut:
		resp, err = client.Put(ctx, []string{s.route, uid}, nil, form)
	case http.MethodPost:
		resp, err = client.Post(ctx, []string{s.route, uid}, nil, form)
	}
	if err != nil {
		s.log.WithFields(logrus.Fields{"peer": peer, "uid": uid}).WithError(err).Debug("bounce: write failed")
		return kvstore.Record{}, false
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return kvstore.Record{}, false
	}
	r, err := parseRecordBody(resp)
	if err != nil {
		return kvstore.Record{}, false
	}
	return r, true
}

// bounceWrite is the shared sequential-proxy loop for bounce_put/bounce_post:
// only once a previous peer has already answered successfully does a later
// peer's response get admitted to the cache.
func (s *Spread) bounceWrite(method, uid, value string) (kvstore.Record, bool) {
	form := url.Values{"value": {value}}

	validResponse := false
	var last kvstore.Record
	anySuccess := false

	for _, peer := range s.reg.Peers() {
		toCache := validResponse

		r, ok := s.bouncePeer(method, peer, uid, form)
		if ok {
			anySuccess = true
			last = r
			if toCache && s.cache != nil {
				s.cache.Put(r)
			}
		}
		validResponse = ok
	}

	return last, anySuccess
}

// BouncePut proxies a PUT to every peer sequentially, returning the last
// successful response's record, or false if none succeeded.
func (s *Spread) BouncePut(uid, value string) (kvstore.Record, bool) {
	return s.bounceWrite(http.MethodPut, uid, value)
}

// BouncePost proxies a POST to every peer sequentially, returning the last
// successful response's record, or false if none succeeded.
func (s *Spread) BouncePost(uid, value string) (kvstore.Record, bool) {
	return s.bounceWrite(http.MethodPost, uid, value)
}

// BounceDelete proxies a DELETE to every peer sequentially. If at least one
// peer answered 200, the cache entry for uid is evicted and nil is returned;
// otherwise ErrRecordMissing.
func (s *Spread) BounceDelete(uid string) error {
	anySuccess := false
	for _, peer := range s.reg.Peers() {
		client := s.clients[peer]
		resp, err := client.Delete(context.Background(), []string{s.route, uid}, nil)
		if err != nil {
			s.log.WithFields(logrus.Fields{"peer": peer, "uid": uid}).WithError(err).Debug("bounce: delete failed")
			continue
		}
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			anySuccess = true
		}
	}

	if !anySuccess {
		return kvstore.ErrRecordMissing
	}
	if s.cache != nil {
		_ = s.cache.Forget(uid)
	}
	return nil
}
