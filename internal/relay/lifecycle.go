package relay

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mossy-p/peer-signaling/internal/metrics"
	"github.com/mossy-p/peer-signaling/internal/registry"
	"github.com/mossy-p/peer-signaling/internal/sdpcache"
)

// DefaultSweepInterval is how often expired offers are purged.
const DefaultSweepInterval = 10 * time.Minute

// Manager connects transport events to the registry and router and runs
// the periodic offer sweep.
type Manager struct {
	registry      *registry.Registry
	cache         *sdpcache.Cache
	router        *Router
	metrics       *metrics.Relay
	sweepInterval time.Duration
	now           func() time.Time
}

func NewManager(reg *registry.Registry, cache *sdpcache.Cache, router *Router, opts Options) *Manager {
	opts = opts.withDefaults()
	return &Manager{
		registry:      reg,
		cache:         cache,
		router:        router,
		metrics:       opts.Metrics,
		sweepInterval: opts.SweepInterval,
		now:           opts.Now,
	}
}

// OnOpen tracks a freshly accepted, not yet authenticated connection.
func (m *Manager) OnOpen(conn Conn) {
	m.registry.Put(conn)
	m.metrics.Connections.Set(float64(m.registry.Len()))
	log.Info().Str("module", "relay").Str("connection", conn.ID()).Msg("connection opened")
}

// OnMessage handles one inbound message. Calls for the same connection must
// be made sequentially to preserve arrival order.
func (m *Manager) OnMessage(ctx context.Context, connID string, raw []byte) {
	m.router.HandleInbound(ctx, connID, raw)
}

// OnClose forgets the connection and any identity bound to it.
func (m *Manager) OnClose(connID string) {
	m.registry.Remove(connID)
	m.registry.UnbindByConnection(connID)
	m.metrics.Connections.Set(float64(m.registry.Len()))
	log.Info().Str("module", "relay").Str("connection", connID).Msg("connection closed")
}

// Sweep removes offers that expired before now.
func (m *Manager) Sweep(now time.Time) int {
	removed := m.cache.SweepExpired(now)
	m.metrics.Swept.Add(float64(removed))
	m.metrics.Offers.Set(float64(m.cache.Len()))
	if removed > 0 {
		log.Debug().Str("module", "relay").Int("removed", removed).Msg("swept expired offers")
	}
	return removed
}

// Run sweeps the offer cache every sweep interval until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(m.now())
		}
	}
}
