package kvstore

import (
	"encoding/hex"
	"fmt"
	"hash/fnv"
	"time"
)

// Record is the sole first-class entity persisted by a node. Its wire/disk
// form is a compact JSON object carrying exactly these fields.
type Record struct {
	UID       string  `json:"uid"`
	Value     string  `json:"value"`
	Timestamp float64 `json:"timestamp"`
	CheckSum  int64   `json:"check_sum"`
	Size      int     `json:"size"`
	Lang      string  `json:"lang"`
}

// Sign computes the deterministic, content-addressed digest used as
// check_sum. It is a pure function of the raw, pre-processed value only —
// never of any other field, and never process-seeded, so the same value
// signs identically on every node (see SPEC_FULL.md's resolution of the
// mirror byte-equality open question).
func Sign(value string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(value))
	return int64(h.Sum64())
}

// fieldSize reproduces the original engine's "size" derivation: the
// byte-length of the hex encoding of every field name except size
// concatenated with its value, in field declaration order. Computed only
// after every other field,
// including processor output, has been set.
func fieldSize(r Record) int {
	raw := fmt.Sprintf("uid%svalue%stimestamp%vcheck_sum%dlang%s",
		r.UID, r.Value, r.Timestamp, r.CheckSum, r.Lang)
	return len(hex.EncodeToString([]byte(raw)))
}

// Create builds a new record from a client-supplied uid and raw value,
// computing the checksum from the raw value before any processor runs, then
// running processors in order, then computing Size over the final field set.
func Create(uid, value string, processors []Processor) Record {
	r := Record{
		UID:       uid,
		Value:     value,
		Timestamp: float64(time.Now().UnixNano()) / 1e9,
		CheckSum:  Sign(value),
	}

	for _, p := range processors {
		p.Process(&r)
	}

	r.Size = fieldSize(r)
	return r
}
