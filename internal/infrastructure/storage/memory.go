package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jhoicas/Trazabilidad-api/internal/application/custody"
	"github.com/jhoicas/Trazabilidad-api/internal/domain"
)

var (
	_ custody.EvidenceStore  = (*MemoryStore)(nil)
	_ custody.EvidenceReader = (*MemoryStore)(nil)
)

// MemoryStore evidencias en memoria (PERSISTENCE=memory y tests).
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]custody.Evidence
}

// NewMemoryStore construye un store vacío.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]custody.Evidence)}
}

// Store copia los bytes y devuelve mem://key.
func (s *MemoryStore) Store(ctx context.Context, ev custody.Evidence) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key := "mem://" + objectKey("", ev.Filename, time.Now())
	ev.Data = append([]byte(nil), ev.Data...)
	s.mu.Lock()
	s.objects[key] = ev
	s.mu.Unlock()
	return key, nil
}

// Fetch devuelve una copia de la evidencia guardada en ref.
func (s *MemoryStore) Fetch(ctx context.Context, ref string) (*custody.Evidence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	ev, ok := s.objects[ref]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: evidencia %s", domain.ErrNotFound, ref)
	}
	ev.Data = append([]byte(nil), ev.Data...)
	return &ev, nil
}
