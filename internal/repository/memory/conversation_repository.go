package memory

import (
	"context"
	"sync"

	"studyrag-be/pkg/rag/chat"

	"github.com/patrickmn/go-cache"
)

// ConversationRepository keeps chat turns per session for the life of the
// process. Entries never expire.
type ConversationRepository struct {
	mu    sync.Mutex
	cache *cache.Cache
}

func NewConversationRepository() *ConversationRepository {
	return &ConversationRepository{cache: cache.New(cache.NoExpiration, 0)}
}

// Load returns a copy of the session's turns, empty for an unknown session.
func (r *ConversationRepository) Load(_ context.Context, sessionID string) ([]chat.Turn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]chat.Turn(nil), r.turns(sessionID)...), nil
}

// Append adds all turns in one step so a turn pair is never split.
func (r *ConversationRepository) Append(_ context.Context, sessionID string, turns ...chat.Turn) error {
	if len(turns) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	current := r.turns(sessionID)
	next := make([]chat.Turn, 0, len(current)+len(turns))
	next = append(append(next, current...), turns...)
	r.cache.Set(sessionID, next, cache.NoExpiration)
	return nil
}

// Sessions reports how many conversations are held.
func (r *ConversationRepository) Sessions() int {
	return r.cache.ItemCount()
}

func (r *ConversationRepository) turns(sessionID string) []chat.Turn {
	if x, found := r.cache.Get(sessionID); found {
		return x.([]chat.Turn)
	}
	return nil
}
