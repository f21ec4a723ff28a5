package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/westial/minstore/internal/kvstore"
)

// mode identifies which of the three replication modes, if any, tagged an
// inbound request. At most one of mirror/bridge/cache is set per spec.md
// §4.G; bridge implies mirror semantics.
type mode int

const (
	modeOrigin mode = iota
	modeMirror
	modeBridge
	modeCache
)

func requestMode(r *http.Request) mode {
	q := r.URL.Query()
	switch {
	case q.Get("cache") == "1":
		return modeCache
	case q.Get("bridge") == "1":
		return modeBridge
	case q.Get("mirror") == "1":
		return modeMirror
	default:
		return modeOrigin
	}
}

func uidParam(r *http.Request) string {
	return r.PathValue("uid")
}

// requireCache rejects a cache-mode request on a node with no cache
// configured. It guards the write handlers only; handleGet does not reject
// such a request, it skips the cache lookup when s.cache is nil. Returns
// true if the request was rejected (the caller must not proceed).
func requireCache(s *Server, w http.ResponseWriter, r *http.Request) bool {
	if requestMode(r) == modeCache && s.cache == nil {
		http.Error(w, "cache mode is not enabled on this node", http.StatusBadRequest)
		return true
	}
	return false
}

func writeRecord(w http.ResponseWriter, r kvstore.Record, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(r)
}

// setETag sets the opaque ETag spec.md §4.G defines for GET responses.
func setETag(w http.ResponseWriter, r kvstore.Record) {
	w.Header().Set("ETag", fmt.Sprintf("%q", fmt.Sprintf("%s:%d", r.UID, r.CheckSum)))
}

// writeError maps ErrRecordMissing to 404 and ErrRecordExists to 400
// (spec.md §7); anything else, ErrServerMissing included, is a 500.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, kvstore.ErrRecordMissing):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, kvstore.ErrRecordExists):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleGet serves GET /{route}/{uid}. In cache mode, a local cache hit
// short-circuits before consulting anything else. Otherwise (and on a cache
// miss) it tries the local model; on RecordMissing from the model it falls
// back to bounce_get before surfacing 404 — the mirror/bridge/origin
// distinction doesn't matter for reads, only whether this node has peers to
// repair from (spec.md §4.H; scenario S5's "repair by read" after an
// out-of-band file loss exercises this on a plain mirror head, not just a
// cache-mode node).
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	uid := uidParam(r)

	if requestMode(r) == modeCache && s.cache != nil {
		if rec, err := s.cache.Get(uid); err == nil {
			setETag(w, rec)
			writeRecord(w, rec, http.StatusOK)
			return
		}
	}

	rec, err := s.model.Get(uid)
	if err == nil {
		setETag(w, rec)
		writeRecord(w, rec, http.StatusOK)
		return
	}
	if !errors.Is(err, kvstore.ErrRecordMissing) {
		writeError(w, err)
		return
	}

	if rec, berr := s.spread.BounceGet(uid); berr == nil {
		setETag(w, rec)
		writeRecord(w, rec, http.StatusOK)
		return
	}
	writeError(w, err)
}

// handlePost serves POST /{route}/{uid}: origin create, or cache-mode
// bounce_post. There is no mirror/bridge semantics for POST — a mirror only
// ever receives copies via PUT (spec.md §4.C "copy" lifecycle).
func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	uid := uidParam(r)
	value := r.FormValue("value")
	if value == "" {
		http.Error(w, "missing value", http.StatusBadRequest)
		return
	}
	if requireCache(s, w, r) {
		return
	}

	if requestMode(r) == modeCache {
		rec, ok := s.spread.BouncePost(uid, value)
		if !ok {
			writeError(w, kvstore.ErrRecordMissing)
			return
		}
		writeRecord(w, rec, http.StatusOK)
		return
	}

	rec, err := s.model.Insert(uid, value)
	if err != nil {
		writeError(w, err)
		return
	}
	s.spread.SpreadPut(rec)
	writeRecord(w, rec, http.StatusOK)
}

// handlePut serves PUT /{route}/{uid}: origin update, mirror/bridge copy, or
// cache-mode bounce_put.
func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	uid := uidParam(r)
	value := r.FormValue("value")
	if value == "" {
		http.Error(w, "missing value", http.StatusBadRequest)
		return
	}
	if requireCache(s, w, r) {
		return
	}

	m := requestMode(r)
	switch m {
	case modeCache:
		rec, ok := s.spread.BouncePut(uid, value)
		if !ok {
			writeError(w, kvstore.ErrRecordMissing)
			return
		}
		writeRecord(w, rec, http.StatusOK)

	case modeMirror, modeBridge:
		var rec kvstore.Record
		if err := json.Unmarshal([]byte(value), &rec); err != nil {
			http.Error(w, "invalid record body", http.StatusBadRequest)
			return
		}
		rec, err := s.model.Copy(rec)
		if err != nil {
			writeError(w, err)
			return
		}
		if m == modeBridge {
			s.spread.SpreadPut(rec)
		}
		writeRecord(w, rec, http.StatusOK)

	default:
		rec, err := s.model.Update(uid, value)
		if err != nil {
			writeError(w, err)
			return
		}
		s.spread.SpreadPut(rec)
		writeRecord(w, rec, http.StatusOK)
	}
}

// handleDelete serves DELETE /{route}/{uid}: origin delete, mirror/bridge
// local delete, or cache-mode bounce_delete.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	uid := uidParam(r)
	if requireCache(s, w, r) {
		return
	}

	m := requestMode(r)
	switch m {
	case modeCache:
		if err := s.spread.BounceDelete(uid); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)

	case modeMirror, modeBridge:
		if err := s.model.Delete(uid); err != nil {
			writeError(w, err)
			return
		}
		if m == modeBridge {
			s.spread.SpreadDelete(uid)
		}
		w.WriteHeader(http.StatusOK)

	default:
		if err := s.model.Delete(uid); err != nil {
			writeError(w, err)
			return
		}
		s.spread.SpreadDelete(uid)
		w.WriteHeader(http.StatusOK)
	}
}
