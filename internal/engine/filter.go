package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"strings"
	"time"
)

// ErrInvalidDateRange is returned when a filter's start date falls after its
// end date. It is the only way a FilterSpec can be malformed.
var ErrInvalidDateRange = errors.New("filter start date is after end date")

// DateRange is an inclusive [Start, End] window at date granularity.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the range, bounds included.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// FilterSpec is the full set of user-chosen predicates. An empty set means
// "no restriction" for that dimension. Values are matched by exact,
// case-sensitive equality, including the "(not set)" sentinel.
type FilterSpec struct {
	DateRange   DateRange `json:"date_range"`
	Campaigns   []string  `json:"campaigns,omitempty"`
	Channels    []string  `json:"channels,omitempty"`
	LandingURLs []string  `json:"landing_urls,omitempty"`
}

// Validate rejects a malformed spec before it reaches any engine.
func (s FilterSpec) Validate() error {
	if s.DateRange.Start.After(s.DateRange.End) {
		return ErrInvalidDateRange
	}
	return nil
}

// Apply returns the subset of records satisfying every predicate of the
// spec. The source slice is never mutated; an empty result is a valid
// outcome, not an error.
func Apply(records []Record, spec FilterSpec) []Record {
	campaigns := toSet(spec.Campaigns)
	channels := toSet(spec.Channels)
	urls := toSet(spec.LandingURLs)

	out := make([]Record, 0, len(records))
	for _, rec := range records {
		if !spec.DateRange.Contains(rec.Date) {
			continue
		}
		if campaigns != nil && !campaigns[rec.Campaign] {
			continue
		}
		if channels != nil && !channels[rec.Channel] {
			continue
		}
		if urls != nil && !urls[rec.LandingURL] {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// Fingerprint returns a stable digest of the filter. The ordering of the
// value sets does not affect the digest, so two filters that select the same
// subset share a fingerprint.
func (s FilterSpec) Fingerprint() string {
	var b strings.Builder
	b.WriteString(s.DateRange.Start.UTC().Format("2006-01-02"))
	b.WriteByte('|')
	b.WriteString(s.DateRange.End.UTC().Format("2006-01-02"))
	for _, set := range [][]string{s.Campaigns, s.Channels, s.LandingURLs} {
		b.WriteByte('|')
		sorted := append([]string(nil), set...)
		sort.Strings(sorted)
		for _, v := range sorted {
			b.WriteString(v)
			b.WriteByte(0x1f)
		}
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func toSet(values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
