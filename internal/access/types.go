package access

import (
	"context"
	"time"
)

// Forever marks an expiry column as "never expires".
const Forever int64 = -1

// Record is the per-user entitlement state. The zero value is the
// default-deny record used whenever no row exists or storage is unreachable.
type Record struct {
	UserID       int64     `json:"user_id"`
	IsFree       bool      `json:"is_free"`
	IsPaid       bool      `json:"is_paid"`
	IsBlocked    bool      `json:"is_blocked"`
	FreeUntil    int64     `json:"free_until,omitempty"`
	BlockedUntil int64     `json:"blocked_until,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// activeAt reports whether a flag with the given expiry is in force at now.
// A zero expiry means the flag alone governs; Forever never lapses.
func activeAt(flag bool, until int64, now time.Time) bool {
	if !flag {
		return false
	}
	if until == 0 || until == Forever {
		return true
	}
	return now.Unix() < until
}

// BlockedAt reports whether the user is blocked at the given instant.
func (r Record) BlockedAt(now time.Time) bool {
	return activeAt(r.IsBlocked, r.BlockedUntil, now)
}

// FreeAt reports whether the free grant is active at the given instant.
func (r Record) FreeAt(now time.Time) bool {
	return activeAt(r.IsFree, r.FreeUntil, now)
}

// AuthorizedAt evaluates the entitlement rule: blocked always denies, any
// active grant admits, absence of both denies.
func (r Record) AuthorizedAt(now time.Time) bool {
	if r.BlockedAt(now) {
		return false
	}
	return r.FreeAt(now) || r.IsPaid
}

// Store is the authoritative per-user entitlement store. Get never fails from
// the caller's perspective: implementations degrade to the default-deny
// record on read errors. Writes are upserts that preserve sibling fields.
type Store interface {
	Get(ctx context.Context, userID int64) Record
	SetFree(ctx context.Context, userID int64, enabled bool) error
	SetPaid(ctx context.Context, userID int64, enabled bool) error
	SetBlocked(ctx context.Context, userID int64, enabled bool) error
	SetFreeUntil(ctx context.Context, userID int64, until int64) error
	SetBlockedUntil(ctx context.Context, userID int64, until int64) error
	Close() error
}
