package analyst

import (
	"analyst-agent/internal/entity"
	"analyst-agent/internal/session"
)

// SessionStore is the session registry surface the handler needs.
type SessionStore interface {
	Create(bcfg entity.BackendConfig) *session.Session
	Get(id string) (*session.Session, error)
	Delete(id string)
}
