// Package dataset owns loading and holding the normalized event table. The
// table is immutable once loaded: engines receive the record slice by
// reference and must treat it as read-only, which the engine package
// guarantees. Each load produces a version fingerprint so cached query
// results can be tied to the exact table they were computed from.
package dataset

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"time"

	"github.com/funnelboard/funnelboard-backend/internal/engine"
)

// Table is one immutable snapshot of the event table.
type Table struct {
	records  []engine.Record
	version  string
	loadedAt time.Time
}

// NewTable fingerprints the records and freezes them into a snapshot.
func NewTable(records []engine.Record) *Table {
	return &Table{
		records:  records,
		version:  fingerprint(records),
		loadedAt: time.Now().UTC(),
	}
}

// Records returns the underlying rows. Callers must not modify them.
func (t *Table) Records() []engine.Record {
	return t.records
}

// Version is the content fingerprint of this snapshot.
func (t *Table) Version() string {
	return t.version
}

func (t *Table) LoadedAt() time.Time {
	return t.loadedAt
}

func (t *Table) Len() int {
	return len(t.records)
}

func fingerprint(records []engine.Record) string {
	h := sha256.New()
	var buf [8]byte
	for _, rec := range records {
		h.Write([]byte(rec.EventAction))
		h.Write([]byte{0})
		h.Write([]byte(rec.Date.UTC().Format("2006-01-02")))
		h.Write([]byte{0})
		h.Write([]byte(rec.Campaign))
		h.Write([]byte{0})
		h.Write([]byte(rec.Channel))
		h.Write([]byte{0})
		h.Write([]byte(rec.LandingURL))
		h.Write([]byte{0})
		binary.BigEndian.PutUint64(buf[:], uint64(rec.Count))
		h.Write(buf[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}
