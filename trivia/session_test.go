package trivia

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type stubSource struct {
	mu        sync.Mutex
	questions []Question
	err       error
	calls     int
}

func (s *stubSource) FetchQuestions(ctx context.Context, category, difficulty string) ([]Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.questions, s.err
}

type stubAwarder struct {
	mu     sync.Mutex
	awards map[string]int
}

func (a *stubAwarder) AddTokens(userID string, amount int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.awards == nil {
		a.awards = make(map[string]int)
	}
	a.awards[userID] += amount
	return nil
}

func (a *stubAwarder) awarded(userID string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.awards[userID]
}

func fastConfig() Config {
	return Config{
		QuestionCount:    10,
		QuestionDuration: 80 * time.Millisecond,
		PollDuration:     5 * time.Millisecond,
	}
}

func waterQuestion() Question {
	return Question{
		Category:     "Science",
		Difficulty:   "Easy",
		Text:         "Is water wet?",
		Options:      []string{"No", "Yes", "Maybe", "Never"},
		CorrectIndex: 1,
	}
}

func TestGameScoresCorrectGuessesAtTimerExpiry(t *testing.T) {
	platform := newFakePlatform()
	board := NewLeaderboard(newMemStore())
	awarder := &stubAwarder{}
	source := &stubSource{questions: []Question{waterQuestion()}}
	m := NewManager(platform, source, board, awarder, fastConfig())

	done := make(chan error, 1)
	go func() { done <- m.Run("chan") }()

	msg := platform.waitForMessage(t, "Question 1/1")
	if !m.IsActive() {
		t.Error("Expected session to be active during the question phase")
	}
	m.HandleReaction("chan", msg.ID, "🇧", "user1")
	m.HandleReaction("chan", msg.ID, "🇨", "user2")

	if err := <-done; err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if m.IsActive() {
		t.Error("Expected session to be idle after the game ended")
	}

	if got := board.Score("user1"); got != 1 {
		t.Errorf("Expected user1 score 1, got %d", got)
	}
	if got := board.Score("user2"); got != 0 {
		t.Errorf("Expected user2 score 0, got %d", got)
	}

	answer, ok := platform.findMessage("Time's up!")
	if !ok {
		t.Fatal("Expected an answer announcement")
	}
	if !strings.Contains(answer.Content, "Correct answer: Yes (Option B)") {
		t.Errorf("Answer announcement wrong: %q", answer.Content)
	}
	if !strings.Contains(answer.Content, "Correct: <@user1>") {
		t.Errorf("Expected user1 listed as correct: %q", answer.Content)
	}
	if strings.Contains(answer.Content, "<@user2>") {
		t.Errorf("user2 must not be listed as correct: %q", answer.Content)
	}

	settlement, ok := platform.findMessage("Trivia ended!")
	if !ok {
		t.Fatal("Expected a settlement announcement")
	}
	if !strings.Contains(settlement.Content, "<@user1>: 1") {
		t.Errorf("Game leaderboard missing user1: %q", settlement.Content)
	}
	if !strings.Contains(settlement.Content, "Awarded 1 Sleep Token to <@user1>!") {
		t.Errorf("Expected token award announcement: %q", settlement.Content)
	}
	if got := awarder.awarded("user1"); got != 1 {
		t.Errorf("Expected 1 token for user1, got %d", got)
	}
	if got := awarder.awarded("user2"); got != 0 {
		t.Errorf("Expected no tokens for user2, got %d", got)
	}
	if got := board.Rounds(); got != 1 {
		t.Errorf("Expected rounds counter 1, got %d", got)
	}
}

func TestGuessOverwriteLastReactionWins(t *testing.T) {
	platform := newFakePlatform()
	board := NewLeaderboard(newMemStore())
	source := &stubSource{questions: []Question{waterQuestion()}}
	m := NewManager(platform, source, board, nil, fastConfig())

	done := make(chan error, 1)
	go func() { done <- m.Run("chan") }()

	msg := platform.waitForMessage(t, "Question 1/1")
	m.HandleReaction("chan", msg.ID, "🇦", "user1")
	m.HandleReaction("chan", msg.ID, "🇧", "user1")

	if err := <-done; err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := board.Score("user1"); got != 1 {
		t.Errorf("Expected overwritten guess B to score, got score %d", got)
	}
	// Both recorded reactions must have been stripped from the message.
	if got := platform.removedCount(); got != 2 {
		t.Errorf("Expected 2 stripped reactions, got %d", got)
	}
}

func TestGuessesOnUnrelatedMessagesIgnored(t *testing.T) {
	platform := newFakePlatform()
	board := NewLeaderboard(newMemStore())
	source := &stubSource{questions: []Question{waterQuestion()}}
	m := NewManager(platform, source, board, nil, fastConfig())

	done := make(chan error, 1)
	go func() { done <- m.Run("chan") }()

	msg := platform.waitForMessage(t, "Question 1/1")
	m.HandleReaction("chan", "some-other-message", "🇧", "user1")
	m.HandleReaction("chan", msg.ID, "🎉", "user1")

	if err := <-done; err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := board.Score("user1"); got != 0 {
		t.Errorf("Expected no score from ignored reactions, got %d", got)
	}
}

func TestEmptyFetchAbortsBeforeActivation(t *testing.T) {
	platform := newFakePlatform()
	board := NewLeaderboard(newMemStore())
	source := &stubSource{}
	m := NewManager(platform, source, board, nil, fastConfig())

	err := m.Run("chan")
	if !errors.Is(err, ErrNoQuestions) {
		t.Fatalf("Expected ErrNoQuestions, got %v", err)
	}
	if m.IsActive() {
		t.Error("Expected session idle after aborted fetch")
	}
	if _, ok := platform.findMessage("Unable to fetch questions. Try again later."); !ok {
		t.Error("Expected a fetch-failure announcement")
	}

	// The abort must leave the session restartable, not stuck as active.
	err = m.Run("chan")
	if errors.Is(err, ErrSessionActive) {
		t.Fatal("Second invocation rejected as concurrent after abort")
	}
	if !errors.Is(err, ErrNoQuestions) {
		t.Fatalf("Expected ErrNoQuestions on the retry, got %v", err)
	}
}

func TestProviderErrorAbortsAsNoQuestions(t *testing.T) {
	platform := newFakePlatform()
	board := NewLeaderboard(newMemStore())
	source := &stubSource{err: errors.New("connection refused")}
	m := NewManager(platform, source, board, nil, fastConfig())

	err := m.Run("chan")
	if !errors.Is(err, ErrNoQuestions) {
		t.Fatalf("Expected ErrNoQuestions for provider error, got %v", err)
	}
}

func TestConcurrentSessionRejected(t *testing.T) {
	platform := newFakePlatform()
	board := NewLeaderboard(newMemStore())
	source := &stubSource{}
	cfg := fastConfig()
	cfg.PollDuration = 50 * time.Millisecond
	m := NewManager(platform, source, board, nil, cfg)

	done := make(chan error, 1)
	go func() { done <- m.Run("chan") }()

	platform.waitForMessage(t, "Choose a category:")
	if m.IsActive() {
		t.Error("Session must not report active during category selection")
	}
	if err := m.Run("chan"); !errors.Is(err, ErrSessionActive) {
		t.Fatalf("Expected ErrSessionActive, got %v", err)
	}
	<-done
}

func TestTiedGameLeaderboardListsBothPlayers(t *testing.T) {
	platform := newFakePlatform()
	board := NewLeaderboard(newMemStore())
	awarder := &stubAwarder{}
	source := &stubSource{questions: []Question{waterQuestion()}}
	m := NewManager(platform, source, board, awarder, fastConfig())

	done := make(chan error, 1)
	go func() { done <- m.Run("chan") }()

	msg := platform.waitForMessage(t, "Question 1/1")
	m.HandleReaction("chan", msg.ID, "🇧", "user1")
	m.HandleReaction("chan", msg.ID, "🇧", "user2")

	if err := <-done; err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	settlement, ok := platform.findMessage("Trivia ended!")
	if !ok {
		t.Fatal("Expected a settlement announcement")
	}
	if !strings.Contains(settlement.Content, "<@user1>: 1") || !strings.Contains(settlement.Content, "<@user2>: 1") {
		t.Errorf("Expected both tied players on the game leaderboard: %q", settlement.Content)
	}
	if awarder.awarded("user1") != 1 || awarder.awarded("user2") != 1 {
		t.Errorf("Expected a token each, got %v", awarder.awards)
	}
}

func TestQuestionCountCapsFetchedQuestions(t *testing.T) {
	questions := make([]Question, 5)
	for i := range questions {
		questions[i] = waterQuestion()
	}
	platform := newFakePlatform()
	board := NewLeaderboard(newMemStore())
	source := &stubSource{questions: questions}
	cfg := fastConfig()
	cfg.QuestionCount = 2
	cfg.QuestionDuration = 20 * time.Millisecond
	m := NewManager(platform, source, board, nil, cfg)

	if err := m.Run("chan"); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if _, ok := platform.findMessage("Question 2/2"); !ok {
		t.Error("Expected the capped game to reach question 2/2")
	}
	if _, ok := platform.findMessage("Question 3/"); ok {
		t.Error("Game ran past the question cap")
	}
}

func TestQuestionWithFewerOptionsRendersGracefully(t *testing.T) {
	q := Question{
		Category:     "Science",
		Difficulty:   "Easy",
		Text:         "True or false?",
		Options:      []string{"True", "False"},
		CorrectIndex: 0,
	}
	platform := newFakePlatform()
	board := NewLeaderboard(newMemStore())
	source := &stubSource{questions: []Question{q}}
	cfg := fastConfig()
	cfg.QuestionDuration = 40 * time.Millisecond
	m := NewManager(platform, source, board, nil, cfg)

	done := make(chan error, 1)
	go func() { done <- m.Run("chan") }()

	msg := platform.waitForMessage(t, "Question 1/1")
	// Only the markers for existing options are attached.
	counts, _ := platform.ReactionCounts("chan", msg.ID)
	if counts["🇦"] != 1 || counts["🇧"] != 1 {
		t.Errorf("Expected seed reactions for A and B, got %v", counts)
	}
	if counts["🇨"] != 0 || counts["🇩"] != 0 {
		t.Errorf("Expected no seed reactions for missing options, got %v", counts)
	}
	// A guess on a marker without an option is ignored.
	m.HandleReaction("chan", msg.ID, "🇨", "user1")

	if err := <-done; err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := board.Score("user1"); got != 0 {
		t.Errorf("Expected guess on missing option to be ignored, got score %d", got)
	}
}

func TestMarkerLetter(t *testing.T) {
	if letter, ok := markerLetter("🇩", 4); !ok || letter != "D" {
		t.Errorf("Expected D, got %q (%v)", letter, ok)
	}
	if _, ok := markerLetter("🇩", 3); ok {
		t.Error("Marker beyond the attached set must not resolve")
	}
	if _, ok := markerLetter("🎉", 4); ok {
		t.Error("Unknown emoji must not resolve")
	}
}

func TestSampleCategoriesDistinct(t *testing.T) {
	for trial := 0; trial < 20; trial++ {
		picked := sampleCategories(3)
		if len(picked) != 3 {
			t.Fatalf("Expected 3 categories, got %d", len(picked))
		}
		seen := make(map[string]bool)
		for _, c := range picked {
			if seen[c] {
				t.Fatalf("Duplicate category %q in sample", c)
			}
			seen[c] = true
			if _, ok := categoryIDs[c]; !ok {
				t.Fatalf("Sampled category %q not in provider map", c)
			}
		}
	}
}
