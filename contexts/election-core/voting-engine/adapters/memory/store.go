package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	registryentities "scrutin/contexts/election-core/elector-registry/domain/entities"
	registryerrors "scrutin/contexts/election-core/elector-registry/domain/errors"
	registryports "scrutin/contexts/election-core/elector-registry/ports"
	"scrutin/contexts/election-core/voting-engine/domain/entities"
	domainerrors "scrutin/contexts/election-core/voting-engine/domain/errors"
	"scrutin/contexts/election-core/voting-engine/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
}

// Store is the in-memory election ledger. Electoral roll, sessions, urn, and
// outbox share one mutex, which is what makes RecordCast and ResetSession
// atomic: a cast's flag flip, urn append, and outbox row become visible
// together or not at all.
type Store struct {
	mu sync.RWMutex

	electors map[string]registryentities.Elector
	sessions map[string]entities.VotingSession
	ballots  map[string][]entities.Ballot
	outbox   map[string]outboxRecord
}

func NewStore() *Store {
	return &Store{
		electors: make(map[string]registryentities.Elector),
		sessions: make(map[string]entities.VotingSession),
		ballots:  make(map[string][]entities.Ballot),
		outbox:   make(map[string]outboxRecord),
	}
}

func (s *Store) SaveElector(_ context.Context, elector registryentities.Elector) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	electorID := strings.TrimSpace(elector.ElectorID)
	if electorID == "" {
		return registryerrors.ErrInvalidElectorInput
	}
	s.electors[electorID] = elector
	return nil
}

func (s *Store) GetElector(_ context.Context, electorID string) (registryentities.Elector, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	elector, ok := s.electors[strings.TrimSpace(electorID)]
	if !ok {
		return registryentities.Elector{}, registryerrors.ErrElectorNotFound
	}
	return elector, nil
}

func (s *Store) ListElectors(_ context.Context) ([]registryentities.Elector, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]registryentities.Elector, 0, len(s.electors))
	for _, elector := range s.electors {
		items = append(items, elector)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ElectorID < items[j].ElectorID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

func (s *Store) MarkVoted(_ context.Context, electorID string, sessionID string, votedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markVotedLocked(electorID, sessionID, votedAt)
}

func (s *Store) CountVoted(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, elector := range s.electors {
		if elector.HasVoted {
			count++
		}
	}
	return count, nil
}

func (s *Store) HasVerificationHash(_ context.Context, hash string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hash = strings.TrimSpace(hash)
	for _, elector := range s.electors {
		if elector.VerificationHash == hash {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) SaveSession(_ context.Context, session entities.VotingSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[strings.TrimSpace(session.SessionID)] = session
	return nil
}

func (s *Store) GetSession(_ context.Context, sessionID string) (entities.VotingSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[strings.TrimSpace(sessionID)]
	if !ok {
		return entities.VotingSession{}, domainerrors.ErrSessionNotFound
	}
	return session, nil
}

func (s *Store) ListSessions(_ context.Context) ([]entities.VotingSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.VotingSession, 0, len(s.sessions))
	for _, session := range s.sessions {
		items = append(items, session)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

func (s *Store) ListExpiredOpenSessions(_ context.Context, now time.Time) ([]entities.VotingSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.VotingSession, 0)
	for _, session := range s.sessions {
		if session.Status != entities.SessionStatusOpen {
			continue
		}
		if session.EndsAt == nil || !session.EndsAt.UTC().Before(now.UTC()) {
			continue
		}
		items = append(items, session)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

// Snapshot copies the urn for one session so tallying never observes a
// mutating slice.
func (s *Store) Snapshot(_ context.Context, sessionID string) ([]entities.Ballot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.ballots[strings.TrimSpace(sessionID)]
	items := make([]entities.Ballot, len(stored))
	copy(items, stored)
	return items, nil
}

func (s *Store) CountBallots(_ context.Context, sessionID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ballots[strings.TrimSpace(sessionID)]), nil
}

func (s *Store) RecordCast(
	_ context.Context,
	electorID string,
	ballot entities.Ballot,
	event ports.EventEnvelope,
) (entities.Ballot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	electorID = strings.TrimSpace(electorID)
	elector, ok := s.electors[electorID]
	if !ok {
		return entities.Ballot{}, domainerrors.ErrIneligibleElector
	}
	if elector.HasVoted {
		return entities.Ballot{}, domainerrors.ErrAlreadyVoted
	}
	if err := s.appendOutboxLocked(event); err != nil {
		return entities.Ballot{}, err
	}

	sessionID := strings.TrimSpace(ballot.SessionID)
	votedAt := ballot.RecordedAt.UTC()
	elector.HasVoted = true
	elector.VotedSessionID = sessionID
	elector.VotedAt = &votedAt
	elector.UpdatedAt = votedAt
	s.electors[electorID] = elector

	ballot.Position = len(s.ballots[sessionID]) + 1
	s.ballots[sessionID] = append(s.ballots[sessionID], ballot)
	return ballot, nil
}

func (s *Store) ResetSession(_ context.Context, sessionID string, resetAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessionID = strings.TrimSpace(sessionID)
	delete(s.ballots, sessionID)
	// Only voters consumed by this session get their flag back; electors who
	// voted in another session stay marked.
	for key, elector := range s.electors {
		if !elector.HasVoted || elector.VotedSessionID != sessionID {
			continue
		}
		elector.HasVoted = false
		elector.VotedSessionID = ""
		elector.VotedAt = nil
		elector.UpdatedAt = resetAt.UTC()
		s.electors[key] = elector
	}
	return nil
}

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendOutboxLocked(envelope)
}

func (s *Store) appendOutboxLocked(envelope ports.EventEnvelope) error {
	payload, err := envelopePayload(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	if _, exists := s.outbox[outboxID]; exists {
		return domainerrors.ErrConflict
	}
	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	s.outbox[outboxID] = outboxRecord{
		message: ports.OutboxMessage{
			OutboxID:     outboxID,
			EventType:    strings.TrimSpace(envelope.EventType),
			PartitionKey: strings.TrimSpace(envelope.PartitionKey),
			Payload:      payload,
			CreatedAt:    createdAt,
		},
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 100
	}
	items := make([]ports.OutboxMessage, 0, len(s.outbox))
	for _, row := range s.outbox {
		if row.published {
			continue
		}
		items = append(items, row.message)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].OutboxID < items[j].OutboxID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return domainerrors.ErrConflict
	}
	row.published = true
	s.outbox[strings.TrimSpace(outboxID)] = row
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func envelopePayload(envelope ports.EventEnvelope) ([]byte, error) {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("marshal event envelope: %w", err)
	}
	return payload, nil
}

func (s *Store) markVotedLocked(electorID string, sessionID string, votedAt time.Time) error {
	electorID = strings.TrimSpace(electorID)
	elector, ok := s.electors[electorID]
	if !ok {
		return registryerrors.ErrElectorNotFound
	}
	if elector.HasVoted {
		return registryerrors.ErrAlreadyVoted
	}
	at := votedAt.UTC()
	elector.HasVoted = true
	elector.VotedSessionID = strings.TrimSpace(sessionID)
	elector.VotedAt = &at
	elector.UpdatedAt = at
	s.electors[electorID] = elector
	return nil
}

var _ registryports.ElectorRepository = (*Store)(nil)
var _ ports.SessionRepository = (*Store)(nil)
var _ ports.BallotStore = (*Store)(nil)
var _ ports.CastLedger = (*Store)(nil)
var _ ports.OutboxWriter = (*Store)(nil)
var _ ports.OutboxRepository = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
