package trivia

import (
	"errors"
	"log"
	"sort"
	"sync"

	"leobot-go/utils"
)

const (
	leaderboardKey = "trivia_leaderboard"
	roundsKey      = "trivia_rounds"
)

// Entry is one leaderboard row.
type Entry struct {
	UserID string
	Score  int
}

// Leaderboard accumulates all-time trivia scores and a rounds-played
// counter. Every mutation is persisted write-through.
type Leaderboard struct {
	mu     sync.Mutex
	store  utils.Store
	scores map[string]int
	rounds int
}

type roundsDoc struct {
	Rounds int `json:"rounds"`
}

// NewLeaderboard loads persisted scores, starting empty on first run.
func NewLeaderboard(store utils.Store) *Leaderboard {
	l := &Leaderboard{store: store, scores: make(map[string]int)}

	var scores map[string]int
	if err := store.Load(leaderboardKey, &scores); err == nil {
		l.scores = scores
	} else if !errors.Is(err, utils.ErrNotFound) {
		log.Printf("Failed to load trivia leaderboard: %v", err)
	}

	var rounds roundsDoc
	if err := store.Load(roundsKey, &rounds); err == nil {
		l.rounds = rounds.Rounds
	} else if !errors.Is(err, utils.ErrNotFound) {
		log.Printf("Failed to load trivia rounds: %v", err)
	}
	return l
}

// Merge adds one game's scores into the all-time totals, persists them, and
// returns a copy of the updated totals.
func (l *Leaderboard) Merge(gameScores map[string]int) map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	for userID, score := range gameScores {
		l.scores[userID] += score
	}
	if err := l.store.Save(leaderboardKey, l.scores); err != nil {
		log.Printf("Failed to save trivia leaderboard: %v", err)
	}
	totals := make(map[string]int, len(l.scores))
	for userID, score := range l.scores {
		totals[userID] = score
	}
	return totals
}

// IncrementRounds bumps and persists the rounds-played counter.
func (l *Leaderboard) IncrementRounds() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rounds++
	if err := l.store.Save(roundsKey, roundsDoc{Rounds: l.rounds}); err != nil {
		log.Printf("Failed to save trivia rounds: %v", err)
	}
	return l.rounds
}

// Rounds returns the rounds-played counter.
func (l *Leaderboard) Rounds() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rounds
}

// Score returns a user's all-time score.
func (l *Leaderboard) Score(userID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.scores[userID]
}

// Top returns up to n entries sorted by score descending. Equal scores are
// ordered by user ID to keep output stable.
func (l *Leaderboard) Top(n int) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	entries := make([]Entry, 0, len(l.scores))
	for userID, score := range l.scores {
		entries = append(entries, Entry{UserID: userID, Score: score})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].UserID < entries[j].UserID
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}
