// Package logring implements the bounded request log and per-(profile,
// request) counters.
package logring

import (
	"sync"
	"time"

	"github.com/eeu479/proxyman-helper/internal/respond"
)

// MaxEntries is the bounded FIFO capacity.
const MaxEntries = 500

// Entry records one dispatched request and whichever identifiers apply.
type Entry struct {
	TimestampMs int64             `json:"timestampMs"`
	Method      string            `json:"method"`
	Path        string            `json:"path"`
	Query       map[string]string `json:"query"`
	Matched     bool              `json:"matched"`
	Profile     *string           `json:"profile,omitempty"`
	SubProfile  *string           `json:"subProfile,omitempty"`
	Request     *string           `json:"request,omitempty"`
	Block       *string           `json:"block,omitempty"`
	Response    *respond.Logged   `json:"response,omitempty"`
}

type matchKey struct {
	profile string
	request string
}

// Count pairs a (profile, request) counter with its current total.
type Count struct {
	Profile string `json:"profile"`
	Request string `json:"request"`
	Count   uint64 `json:"count"`
}

// Ring is a mutex-guarded bounded FIFO of Entry plus the match counter map.
type Ring struct {
	mu      sync.Mutex
	entries []Entry
	counts  map[matchKey]uint64
}

// New creates an empty Ring.
func New() *Ring {
	return &Ring{counts: map[matchKey]uint64{}}
}

// Record appends an entry, evicting the oldest on overflow, and increments
// the (profile, request) counter when both are known.
func (r *Ring) Record(method, path string, query map[string]string, profile, subProfile, request, block *string, matched bool, response *respond.Logged) {
	entry := Entry{
		TimestampMs: time.Now().UnixMilli(),
		Method:      method,
		Path:        path,
		Query:       query,
		Matched:     matched,
		Profile:     profile,
		SubProfile:  subProfile,
		Request:     request,
		Block:       block,
		Response:    response,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, entry)
	if len(r.entries) > MaxEntries {
		r.entries = r.entries[len(r.entries)-MaxEntries:]
	}

	if profile != nil && request != nil {
		key := matchKey{profile: *profile, request: *request}
		r.counts[key]++
	}
}

// Snapshot returns a copy of the current entries, oldest first.
func (r *Ring) Snapshot() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Counts returns a copy of the current per-(profile, request) counters.
func (r *Ring) Counts() []Count {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Count, 0, len(r.counts))
	for key, count := range r.counts {
		out = append(out, Count{Profile: key.profile, Request: key.request, Count: count})
	}
	return out
}
