// Package session maps API session ids onto analyst agents. The core agent
// is single-writer by contract, so the per-session lock lives here, in the
// hosting layer.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"analyst-agent/internal/analyst"
	"analyst-agent/internal/config"
	"analyst-agent/internal/entity"
)

// Session pairs one agent with its lock. Handlers must hold Mu for the
// duration of any agent operation.
type Session struct {
	ID        string
	Agent     *analyst.Agent
	CreatedAt time.Time

	Mu sync.Mutex
}

// Registry stores sessions with TTL eviction. Session state is memory-only;
// an expired session simply disappears.
type Registry struct {
	cache  *gocache.Cache
	aiCfg  config.AIConfig
	logger *zap.Logger
}

func NewRegistry(ttl time.Duration, aiCfg config.AIConfig, logger *zap.Logger) *Registry {
	return &Registry{
		cache:  gocache.New(ttl, ttl/2),
		aiCfg:  aiCfg,
		logger: logger,
	}
}

// Create builds a new session around a fresh agent.
func (r *Registry) Create(bcfg entity.BackendConfig) *Session {
	s := &Session{
		ID:        uuid.NewString(),
		Agent:     analyst.New(bcfg, r.aiCfg, r.logger),
		CreatedAt: time.Now(),
	}
	r.cache.SetDefault(s.ID, s)

	r.logger.Info("session created",
		zap.String("session_id", s.ID),
		zap.String("backend_kind", string(s.Agent.Backend().Kind())),
	)
	return s
}

// Get fetches a live session and refreshes its TTL.
func (r *Registry) Get(id string) (*Session, error) {
	v, ok := r.cache.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", entity.ErrSessionNotFound, id)
	}
	s := v.(*Session)
	r.cache.SetDefault(id, s)
	return s, nil
}

// Delete removes a session; deleting an unknown id is a no-op.
func (r *Registry) Delete(id string) {
	r.cache.Delete(id)
}

// Count reports the number of live sessions.
func (r *Registry) Count() int {
	return r.cache.ItemCount()
}
