package tool

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Manager instantiates and caches one adapter per tool id for a run.
// It is mutated only by the single orchestrating flow; it carries no
// internal locking.
type Manager struct {
	registry Registry
	params   Params
	cache    map[string]Adapter
	log      *zap.Logger
}

// NewManager creates a manager over the given registry.
func NewManager(registry Registry, params Params, log *zap.Logger) *Manager {
	return &Manager{
		registry: registry,
		params:   params,
		cache:    make(map[string]Adapter),
		log:      log,
	}
}

// SetLanguage selects the command language for adapters constructed
// after this call. Cached adapters are unaffected.
func (m *Manager) SetLanguage(lang string) {
	m.params.Language = lang
}

// Initialize classifies and instantiates one adapter per distinct tool
// id. Duplicates collapse to a single instantiation. Any constructor
// or Initialize failure aborts before any tool executes; the cache is
// left unchanged, so nothing from the failed set is committed and
// adapters from an earlier successful Initialize stay available.
func (m *Manager) Initialize(ctx context.Context, ids []string) error {
	fresh := make(map[string]Adapter, len(ids))

	for _, id := range ids {
		if _, ok := fresh[id]; ok {
			continue
		}
		if cached, ok := m.cache[id]; ok {
			fresh[id] = cached
			continue
		}

		construct, ok := m.registry[id]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownTool, id)
		}
		adapter, err := construct(m.params)
		if err != nil {
			return fmt.Errorf("constructing adapter for %s: %w", id, err)
		}
		if err := adapter.Initialize(ctx); err != nil {
			return fmt.Errorf("initializing adapter for %s: %w", id, err)
		}
		fresh[id] = adapter

		if m.log != nil {
			m.log.Debug("adapter initialized",
				zap.String("tool", id),
				zap.String("dimension", string(adapter.Dimension())),
				zap.Bool("critical", adapter.Critical()))
		}
	}

	for id, adapter := range fresh {
		m.cache[id] = adapter
	}
	return nil
}

// Get returns the cached adapter for id, or nil when the id is unknown
// or was never initialized. It never fails.
func (m *Manager) Get(id string) Adapter {
	return m.cache[id]
}

// ClearCache discards all cached adapters, calling Cleanup on those
// that hold resources. Used between independent runs.
func (m *Manager) ClearCache() {
	for id, adapter := range m.cache {
		if c, ok := adapter.(Cleaner); ok {
			if err := c.Cleanup(); err != nil && m.log != nil {
				m.log.Warn("adapter cleanup failed", zap.String("tool", id), zap.Error(err))
			}
		}
	}
	m.cache = make(map[string]Adapter)
}
