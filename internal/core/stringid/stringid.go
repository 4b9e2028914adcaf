// Package stringid provides hashed string identifiers used for sockets,
// component and system kinds, and resource paths.
package stringid

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// ID is the 64-bit xxhash of a string. The zero ID is reserved as "invalid".
type ID uint64

const Invalid ID = 0

var (
	namesMu sync.RWMutex
	names   = make(map[ID]string)
)

// New hashes s and remembers the original string for debugging output.
// The empty string maps to Invalid.
func New(s string) ID {
	if s == "" {
		return Invalid
	}
	id := ID(xxhash.Sum64String(s))
	if id == Invalid {
		id = 1
	}

	namesMu.RLock()
	_, known := names[id]
	namesMu.RUnlock()
	if !known {
		namesMu.Lock()
		names[id] = s
		namesMu.Unlock()
	}
	return id
}

func (id ID) IsValid() bool { return id != Invalid }

// String returns the original string if this ID was created in this process.
func (id ID) String() string {
	if id == Invalid {
		return "<invalid>"
	}
	namesMu.RLock()
	s, ok := names[id]
	namesMu.RUnlock()
	if !ok {
		return "<unknown>"
	}
	return s
}
