package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"scrutin/contexts/election-core/tally-engine/domain/entities"
	domainerrors "scrutin/contexts/election-core/tally-engine/domain/errors"
	"scrutin/contexts/election-core/tally-engine/ports"
)

// Store holds certified results and consumed event IDs in memory.
type Store struct {
	mu      sync.RWMutex
	results map[string]entities.CertifiedResult
	dedup   map[string]struct{}
}

func NewStore() *Store {
	return &Store{
		results: make(map[string]entities.CertifiedResult),
		dedup:   make(map[string]struct{}),
	}
}

func (s *Store) SaveCertifiedResult(_ context.Context, result entities.CertifiedResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sessionID := strings.TrimSpace(result.SessionID)
	if sessionID == "" {
		return domainerrors.ErrInvalidTallyInput
	}
	s.results[sessionID] = result
	return nil
}

func (s *Store) GetCertifiedResult(_ context.Context, sessionID string) (entities.CertifiedResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.results[strings.TrimSpace(sessionID)]
	if !ok {
		return entities.CertifiedResult{}, domainerrors.ErrResultNotCertified
	}
	return result, nil
}

func (s *Store) ReserveEvent(_ context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	eventID = strings.TrimSpace(eventID)
	if _, seen := s.dedup[eventID]; seen {
		return true, nil
	}
	s.dedup[eventID] = struct{}{}
	return false, nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

var _ ports.ResultStore = (*Store)(nil)
var _ ports.EventDedupStore = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
