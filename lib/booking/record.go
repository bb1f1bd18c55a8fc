// Package booking holds the canonical availability model: normalized
// site records, poll results, and the user watchlist.
package booking

import (
	"strings"
	"time"
)

// Status is the normalized availability state of a site.
type Status int

const (
	// StatusUnknown: the source gave no signal either way. Page
	// snapshots cannot distinguish "unavailable" from "not yet
	// rendered", so absent sites simply never get a record.
	StatusUnknown Status = iota
	StatusAvailable
	StatusUnavailable
)

func (s Status) String() string {
	switch s {
	case StatusAvailable:
		return "available"
	case StatusUnavailable:
		return "unavailable"
	}
	return "unknown"
}

// SiteRecord is the canonical unit after normalization. ID is unique
// within one cycle's record set.
type SiteRecord struct {
	ID          string
	DisplayName string
	Status      Status
}

// PollResult is the outcome of one poll cycle: the cycle timestamp and
// the available records that passed the watchlist, in canonical order.
type PollResult struct {
	Time      time.Time
	Available []SiteRecord
}

// Names returns the display names of the available records, in order.
func (r PollResult) Names() []string {
	names := make([]string, len(r.Available))
	for i, rec := range r.Available {
		names[i] = rec.DisplayName
	}
	return names
}

// Summary renders the comma-joined site list used in report lines and
// notification bodies.
func (r PollResult) Summary() string {
	return strings.Join(r.Names(), ",")
}
