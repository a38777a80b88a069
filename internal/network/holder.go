package network

import (
	"sync/atomic"
	"time"

	"github.com/starford/redoxflux/internal/checksum"
)

// Source provides raw network documents by name.
type Source interface {
	Read(path string) ([]byte, error)
}

// Snapshot is one loaded revision of the base network.
type Snapshot struct {
	Model    *Model
	Checksum string
	LoadedAt time.Time
}

// Holder publishes the current base network. Readers get an immutable
// snapshot; a reload swaps the whole snapshot atomically.
type Holder struct {
	cur atomic.Pointer[Snapshot]
}

// NewHolder returns a holder seeded with m.
func NewHolder(m *Model, sum string) *Holder {
	h := &Holder{}
	h.Store(m, sum)
	return h
}

// Load returns the current snapshot, or nil before the first Store.
func (h *Holder) Load() *Snapshot {
	return h.cur.Load()
}

// Model returns the current base model. Callers must treat it as read-only.
func (h *Holder) Model() *Model {
	if s := h.cur.Load(); s != nil {
		return s.Model
	}
	return nil
}

// Store replaces the current snapshot.
func (h *Holder) Store(m *Model, sum string) {
	h.cur.Store(&Snapshot{Model: m, Checksum: sum, LoadedAt: time.Now()})
}

// LoadFrom reads name from src and decodes it.
func LoadFrom(src Source, name string) (*Model, string, error) {
	data, err := src.Read(name)
	if err != nil {
		return nil, "", &LoadError{Source: name, Err: err}
	}
	m, err := Decode(name, data)
	if err != nil {
		return nil, "", err
	}
	return m, checksum.Sum(data), nil
}
