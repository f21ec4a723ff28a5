package kvstore

import "fmt"

// Model is the record lifecycle: build, validate, checksum, and wrap storage
// with the exists/no-exists preconditions spec.md §4.C describes.
type Model struct {
	storage    Storage
	processors []Processor
}

// NewModel constructs a Model over storage, running processors (in order) on
// every client-originated record it builds.
func NewModel(storage Storage, processors []Processor) *Model {
	return &Model{storage: storage, processors: processors}
}

// Get returns the stored record for uid unchanged.
func (m *Model) Get(uid string) (Record, error) {
	if !m.storage.Exists(uid) {
		return Record{}, fmt.Errorf("get %s: %w", uid, ErrRecordMissing)
	}
	return m.storage.Select(uid)
}

// Insert builds a new record from value and persists it. uid must not
// already exist.
func (m *Model) Insert(uid, value string) (Record, error) {
	if m.storage.Exists(uid) {
		return Record{}, fmt.Errorf("insert %s: %w", uid, ErrRecordExists)
	}
	r := Create(uid, value, m.processors)
	if err := m.storage.Insert(r); err != nil {
		return Record{}, err
	}
	return r, nil
}

// Update replaces the record for uid with one built from value. uid must
// already exist, and value must produce a different checksum than the
// stored record's — an equal checksum is refused as "no change".
func (m *Model) Update(uid, value string) (Record, error) {
	if !m.storage.Exists(uid) {
		return Record{}, fmt.Errorf("update %s: %w", uid, ErrRecordMissing)
	}
	stored, err := m.storage.Select(uid)
	if err != nil {
		return Record{}, err
	}
	if Sign(value) == stored.CheckSum {
		return Record{}, fmt.Errorf("update %s: no change: %w", uid, ErrRecordExists)
	}
	r := Create(uid, value, m.processors)
	if err := m.storage.Update(r); err != nil {
		return Record{}, err
	}
	return r, nil
}

// Delete removes the record for uid. uid must already exist.
func (m *Model) Delete(uid string) error {
	if !m.storage.Exists(uid) {
		return fmt.Errorf("delete %s: %w", uid, ErrRecordMissing)
	}
	return m.storage.Delete(uid)
}

// Copy writes r exactly as received, bypassing processors and checksum
// rules. Used on the receiving side of a fan-out so a mirror stores a
// byte-identical copy of the origin record, regardless of whether uid
// already exists locally.
func (m *Model) Copy(r Record) (Record, error) {
	if err := m.storage.Update(r); err != nil {
		return Record{}, err
	}
	return r, nil
}
