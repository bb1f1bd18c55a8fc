// Package extract defines the availability extraction contract: the
// raw snapshot one attempt produces, the strategy capability, and the
// failure taxonomy the retry policy keys off.
package extract

import "context"

// Snapshot is the raw, unnormalized output of one extraction attempt.
//
// A page-derived snapshot only carries positive signals in Available;
// a site missing from it was either unavailable or not rendered, the
// page cannot tell us which. An API-derived snapshot carries the full
// id to display-name and id to status-code mappings instead.
type Snapshot struct {
	// Available holds display names of sites the rendered page
	// flagged as available. Page snapshots only.
	Available []string
	// Names maps site id to display name. API snapshots only.
	Names map[string]string
	// Statuses maps site id to its raw status code. API snapshots
	// only.
	Statuses map[string]int
}

// FromPage reports whether the snapshot came from page inspection
// rather than the structured API.
func (s Snapshot) FromPage() bool {
	return s.Names == nil && s.Statuses == nil
}

// Strategy is one way of producing an availability snapshot. The two
// implementations (rendered page, JSON API) are selected at startup
// and never mixed within a run.
type Strategy interface {
	// Extract runs one full extraction attempt. Errors are tagged
	// with a Kind so the retry controller can decide what to do.
	Extract(ctx context.Context) (Snapshot, error)
	// Close releases the underlying session (browser or HTTP
	// client). Safe to call more than once.
	Close() error
}
