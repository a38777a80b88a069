// Package storage gives access to the network library: a directory of YAML
// network documents and the scenario variants exported next to them.
package storage

import "time"

// Entry describes one network document in the library.
type Entry struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Provider is the interface for library file operations. Paths are
// relative to the library root.
type Provider interface {
	// List returns every network document under dir.
	List(dir string) ([]Entry, error)
	// Read returns the raw bytes of the document at path.
	Read(path string) ([]byte, error)
	// Write atomically replaces the document at path.
	Write(path string, content []byte) error
	// Delete removes the document at path.
	Delete(path string) error
}
