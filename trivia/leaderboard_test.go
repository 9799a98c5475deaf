package trivia

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"leobot-go/utils"
)

// memStore is an in-memory utils.Store for tests.
type memStore struct {
	mu   sync.Mutex
	docs map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{docs: make(map[string][]byte)}
}

func (m *memStore) Load(name string, v interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.docs[name]
	if !ok {
		return utils.ErrNotFound
	}
	return json.Unmarshal(data, v)
}

func (m *memStore) Save(name string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.docs[name] = data
	m.mu.Unlock()
	return nil
}

func TestLeaderboardMergeIsAdditive(t *testing.T) {
	board := NewLeaderboard(newMemStore())

	game := map[string]int{"alice": 3, "bob": 1}
	totals := board.Merge(game)
	if totals["alice"] != 3 || totals["bob"] != 1 {
		t.Errorf("Unexpected totals after first merge: %v", totals)
	}

	// Merging the same scores again sums, never overwrites.
	totals = board.Merge(game)
	if totals["alice"] != 6 {
		t.Errorf("Expected alice at 6 after double merge, got %d", totals["alice"])
	}
	if totals["bob"] != 2 {
		t.Errorf("Expected bob at 2 after double merge, got %d", totals["bob"])
	}
}

func TestLeaderboardPersistsAcrossLoads(t *testing.T) {
	store := newMemStore()
	board := NewLeaderboard(store)
	board.Merge(map[string]int{"alice": 2})
	board.IncrementRounds()
	board.IncrementRounds()

	reloaded := NewLeaderboard(store)
	if got := reloaded.Score("alice"); got != 2 {
		t.Errorf("Expected persisted score 2, got %d", got)
	}
	if got := reloaded.Rounds(); got != 2 {
		t.Errorf("Expected persisted rounds 2, got %d", got)
	}
}

func TestLeaderboardTopFiveTruncates(t *testing.T) {
	board := NewLeaderboard(newMemStore())
	game := make(map[string]int)
	for i := 0; i < 8; i++ {
		game[fmt.Sprintf("user%d", i)] = i + 1
	}
	board.Merge(game)

	top := board.Top(5)
	if len(top) != 5 {
		t.Fatalf("Expected 5 entries, got %d", len(top))
	}
	if top[0].UserID != "user7" || top[0].Score != 8 {
		t.Errorf("Expected user7 with 8 on top, got %+v", top[0])
	}
	for i := 1; i < len(top); i++ {
		if top[i].Score > top[i-1].Score {
			t.Errorf("Top entries not sorted descending at %d: %+v", i, top)
		}
	}
}

func TestLeaderboardTopHandlesTies(t *testing.T) {
	board := NewLeaderboard(newMemStore())
	board.Merge(map[string]int{"alice": 3, "bob": 3, "carol": 1})

	top := board.Top(5)
	if len(top) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(top))
	}
	if top[0].Score != 3 || top[1].Score != 3 {
		t.Errorf("Expected both tied leaders present, got %+v", top)
	}
}
