package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	registryentities "scrutin/contexts/election-core/elector-registry/domain/entities"
	registryerrors "scrutin/contexts/election-core/elector-registry/domain/errors"
)

func seedElector(t *testing.T, store *Store, id string) {
	t.Helper()
	err := store.SaveElector(context.Background(), registryentities.Elector{
		ElectorID:   id,
		DisplayName: "Test Elector",
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed elector failed: %v", err)
	}
}

func TestMarkVotedIsCompareAndSet(t *testing.T) {
	store := NewStore()
	seedElector(t, store, "elector-1")

	now := time.Now().UTC()
	if err := store.MarkVoted(context.Background(), "elector-1", "session-1", now); err != nil {
		t.Fatalf("first mark failed: %v", err)
	}
	if err := store.MarkVoted(context.Background(), "elector-1", "session-1", now); !errors.Is(err, registryerrors.ErrAlreadyVoted) {
		t.Fatalf("expected ErrAlreadyVoted, got %v", err)
	}
	if err := store.MarkVoted(context.Background(), "nobody", "session-1", now); !errors.Is(err, registryerrors.ErrElectorNotFound) {
		t.Fatalf("expected ErrElectorNotFound, got %v", err)
	}

	count, err := store.CountVoted(context.Background())
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 voted elector, got %d", count)
	}
}

func TestMarkVotedConcurrentSingleWinner(t *testing.T) {
	store := NewStore()
	seedElector(t, store, "elector-1")

	const attempts = 16
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- store.MarkVoted(context.Background(), "elector-1", "session-1", time.Now().UTC())
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, conflicted int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, registryerrors.ErrAlreadyVoted):
			conflicted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 || conflicted != attempts-1 {
		t.Fatalf("expected exactly one winner, got %d successes and %d conflicts", succeeded, conflicted)
	}
}

func TestResetSessionRestoresOnlyItsVoters(t *testing.T) {
	store := NewStore()
	seedElector(t, store, "elector-a")
	seedElector(t, store, "elector-b")

	now := time.Now().UTC()
	if err := store.MarkVoted(context.Background(), "elector-a", "session-a", now); err != nil {
		t.Fatalf("mark a failed: %v", err)
	}
	if err := store.MarkVoted(context.Background(), "elector-b", "session-b", now); err != nil {
		t.Fatalf("mark b failed: %v", err)
	}

	if err := store.ResetSession(context.Background(), "session-b", now); err != nil {
		t.Fatalf("reset failed: %v", err)
	}

	kept, err := store.GetElector(context.Background(), "elector-a")
	if err != nil {
		t.Fatalf("get elector a failed: %v", err)
	}
	if !kept.HasVoted || kept.VotedSessionID != "session-a" {
		t.Fatalf("reset of another session must not touch elector a: %+v", kept)
	}
	restored, err := store.GetElector(context.Background(), "elector-b")
	if err != nil {
		t.Fatalf("get elector b failed: %v", err)
	}
	if restored.HasVoted || restored.VotedSessionID != "" || restored.VotedAt != nil {
		t.Fatalf("reset must restore elector b: %+v", restored)
	}
}
