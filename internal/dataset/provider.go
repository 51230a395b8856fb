package dataset

import (
	"context"
	"sync"

	"github.com/funnelboard/funnelboard-backend/internal/engine"
	pkgerrors "github.com/funnelboard/funnelboard-backend/pkg/errors"
	"github.com/funnelboard/funnelboard-backend/pkg/logger"
)

// Source produces one snapshot of the event table.
type Source interface {
	Name() string
	Load(ctx context.Context) ([]engine.Record, error)
}

// Provider holds the current table snapshot and swaps it atomically on
// reload. Readers keep the snapshot they grabbed; a reload never mutates
// records already handed out.
type Provider struct {
	source Source
	logg   *logger.Logger

	mu    sync.RWMutex
	table *Table
}

func NewProvider(source Source, logg *logger.Logger) *Provider {
	return &Provider{source: source, logg: logg}
}

// Current returns the active snapshot, or a dependency error before the
// first successful load.
func (p *Provider) Current() (*Table, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.table == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "event table has not been loaded")
	}
	return p.table, nil
}

// Reload loads a fresh snapshot from the source and swaps it in. On
// failure the previous snapshot stays active.
func (p *Provider) Reload(ctx context.Context) (*Table, error) {
	records, err := p.source.Load(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading event table")
	}
	table := NewTable(records)

	p.mu.Lock()
	p.table = table
	p.mu.Unlock()

	ctx = p.logg.WithFields(ctx, map[string]any{
		"source":  p.source.Name(),
		"rows":    table.Len(),
		"version": table.Version()[:12],
	})
	p.logg.Info(ctx, "event table reloaded")
	return table, nil
}
