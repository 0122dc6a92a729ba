package model

import (
	"encoding/json"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// PlaceholderPrefix starts every placeholder id on the wire.
const PlaceholderPrefix = "temp-"

// Ref identifies a list entry: either a placeholder for an in-flight save or
// the id assigned by the store. The zero Ref is neither.
type Ref struct {
	id      string
	pending bool
}

// PendingRef wraps a placeholder id.
func PendingRef(placeholderID string) Ref {
	return Ref{id: placeholderID, pending: true}
}

// PersistedRef wraps a store-assigned id.
func PersistedRef(id string) Ref {
	return Ref{id: id}
}

// IsPending reports whether r is a placeholder.
func (r Ref) IsPending() bool { return r.pending }

// IsZero reports whether r was never set.
func (r Ref) IsZero() bool { return r.id == "" }

// PlaceholderID returns the placeholder id of a pending ref.
func (r Ref) PlaceholderID() (string, bool) {
	if !r.pending {
		return "", false
	}
	return r.id, true
}

// PersistedID returns the store id of a persisted ref.
func (r Ref) PersistedID() (string, bool) {
	if r.pending || r.id == "" {
		return "", false
	}
	return r.id, true
}

// String returns the wire id.
func (r Ref) String() string { return r.id }

// MarshalJSON encodes the wire id.
func (r Ref) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.id)
}

// UnmarshalJSON decodes a wire id. The placeholder prefix is only consulted
// here, at the boundary.
func (r *Ref) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err != nil {
		return err
	}
	*r = ParseRef(id)
	return nil
}

// ParseRef classifies a wire id.
func ParseRef(id string) Ref {
	if strings.HasPrefix(id, PlaceholderPrefix) {
		return PendingRef(id)
	}
	return PersistedRef(id)
}

// PlaceholderGenerator issues placeholder refs from the current time plus a
// sequence, so two saves in the same instant still differ.
type PlaceholderGenerator struct {
	now func() time.Time
	seq atomic.Uint64
}

// NewPlaceholderGenerator creates a generator reading time from now.
func NewPlaceholderGenerator(now func() time.Time) *PlaceholderGenerator {
	if now == nil {
		now = time.Now
	}
	return &PlaceholderGenerator{now: now}
}

// Next returns a fresh placeholder ref.
func (g *PlaceholderGenerator) Next() Ref {
	n := g.seq.Add(1)
	id := PlaceholderPrefix + strconv.FormatInt(g.now().UnixMilli(), 10) + "-" + strconv.FormatUint(n, 10)
	return PendingRef(id)
}
