// Package session keeps the last reconciliation result of a process.
package session

import (
	"encoding/binary"
	"encoding/hex"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint hashes the parts that identify a request. Parts are length
// prefixed so that ("ab","c") and ("a","bc") differ.
func Fingerprint(parts ...[]byte) string {
	d := xxhash.New()
	var size [8]byte
	for _, p := range parts {
		binary.LittleEndian.PutUint64(size[:], uint64(len(p)))
		_, _ = d.Write(size[:])
		_, _ = d.Write(p)
	}
	return hex.EncodeToString(d.Sum(nil))
}

// Cache is a one-slot store: a new entry replaces the previous one.
type Cache[V any] struct {
	mu          sync.Mutex
	fingerprint string
	value       V
	set         bool
}

// Get returns the stored value when fp matches the stored fingerprint.
func (c *Cache[V]) Get(fp string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.set || c.fingerprint != fp {
		var zero V
		return zero, false
	}
	return c.value, true
}

func (c *Cache[V]) Put(fp string, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fingerprint, c.value, c.set = fp, v, true
}

// Last returns the stored value regardless of fingerprint.
func (c *Cache[V]) Last() (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.set
}

func (c *Cache[V]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero V
	c.fingerprint, c.value, c.set = "", zero, false
}
