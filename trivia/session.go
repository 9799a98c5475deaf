package trivia

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"
)

// Sentinel errors the command layer turns into user-visible messages.
var (
	// ErrSessionActive rejects a trivia command while a game is selecting
	// or running.
	ErrSessionActive = errors.New("trivia: a game is already in progress")
	// ErrNoQuestions aborts a game whose question fetch failed or came
	// back empty.
	ErrNoQuestions = errors.New("trivia: unable to fetch questions")
)

// answerMarkers are the guess reactions, in answer-letter order.
var answerMarkers = []string{"🇦", "🇧", "🇨", "🇩"}

var answerLetters = []string{"A", "B", "C", "D"}

type sessionState int

const (
	stateIdle sessionState = iota
	stateSelecting
	stateActive
)

// guessEvent is one reaction-added event forwarded into the game loop.
type guessEvent struct {
	channelID string
	messageID string
	userID    string
	emoji     string
}

// Config holds the session timings. Zero values take the defaults the game
// was designed around.
type Config struct {
	QuestionCount    int
	QuestionDuration time.Duration
	PollDuration     time.Duration
}

func (c Config) withDefaults() Config {
	if c.QuestionCount <= 0 {
		c.QuestionCount = 10
	}
	if c.QuestionDuration <= 0 {
		c.QuestionDuration = 25 * time.Second
	}
	if c.PollDuration <= 0 {
		c.PollDuration = 10 * time.Second
	}
	return c
}

// Manager runs trivia games. At most one game exists at a time; the
// goroutine running Run owns all session state, and reaction handlers and
// the round timer deliver events into its loop instead of touching state
// themselves.
type Manager struct {
	platform Platform
	source   QuestionSource
	board    *Leaderboard
	tokens   TokenAwarder
	cfg      Config

	mu      sync.Mutex
	state   sessionState
	guesses chan guessEvent
}

// NewManager wires a session manager. tokens may be nil when no token
// economy is attached.
func NewManager(platform Platform, source QuestionSource, board *Leaderboard, tokens TokenAwarder, cfg Config) *Manager {
	return &Manager{
		platform: platform,
		source:   source,
		board:    board,
		tokens:   tokens,
		cfg:      cfg.withDefaults(),
	}
}

// IsActive reports whether a game is in its question phase, from Active
// entry through settlement.
func (m *Manager) IsActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == stateActive
}

// Busy reports whether a session is anywhere past Idle, selection polls
// included. Run still guards authoritatively; this is for fast rejection
// at the command boundary.
func (m *Manager) Busy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state != stateIdle
}

// HandleReaction forwards a non-bot reaction-added event to the running
// game, if any. Safe to call from any goroutine; events arriving while no
// question is open are dropped.
func (m *Manager) HandleReaction(channelID, messageID, emoji, userID string) {
	m.mu.Lock()
	ch := m.guesses
	active := m.state == stateActive
	m.mu.Unlock()
	if !active || ch == nil {
		return
	}
	select {
	case ch <- guessEvent{channelID: channelID, messageID: messageID, userID: userID, emoji: emoji}:
	default:
		// Game loop is settling and no longer draining; drop the event.
	}
}

// Run plays one full game in the calling goroutine: category poll,
// difficulty poll, question fetch, question rounds, settlement. It returns
// ErrSessionActive when a game is already running. Whatever happens, the
// session is back to Idle when Run returns.
func (m *Manager) Run(channelID string) error {
	m.mu.Lock()
	if m.state != stateIdle {
		m.mu.Unlock()
		return ErrSessionActive
	}
	m.state = stateSelecting
	m.mu.Unlock()
	defer m.reset()

	categories := sampleCategories(3)
	category, err := m.runPoll(channelID, "Choose a category:", categories)
	if err != nil {
		return err
	}
	if _, err := m.platform.Send(channelID, fmt.Sprintf("Selected category: **%s**", category)); err != nil {
		return err
	}

	difficulty, err := m.runPoll(channelID, "Choose the difficulty:", Difficulties)
	if err != nil {
		return err
	}
	if _, err := m.platform.Send(channelID, fmt.Sprintf("Selected difficulty: **%s**", difficulty)); err != nil {
		return err
	}

	// The session is marked active before the fetch outcome is known; a
	// failed fetch reverts it via the deferred reset.
	m.mu.Lock()
	m.state = stateActive
	m.guesses = make(chan guessEvent, 64)
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	questions, err := m.source.FetchQuestions(ctx, category, difficulty)
	if err != nil || len(questions) == 0 {
		if _, sendErr := m.platform.Send(channelID, "Unable to fetch questions. Try again later."); sendErr != nil {
			return sendErr
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrNoQuestions, err)
		}
		return ErrNoQuestions
	}
	if len(questions) > m.cfg.QuestionCount {
		questions = questions[:m.cfg.QuestionCount]
	}

	gameScores := make(map[string]int)
	for i, q := range questions {
		if err := m.runQuestion(channelID, i, len(questions), q, gameScores); err != nil {
			return err
		}
	}
	return m.settle(channelID, gameScores)
}

// runQuestion posts one question, collects guesses until the round timer
// fires, then scores and announces the result.
func (m *Manager) runQuestion(channelID string, index, total int, q Question, gameScores map[string]int) error {
	markers := answerMarkers
	if len(q.Options) < len(markers) {
		markers = markers[:len(q.Options)]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Question %d/%d: %s\n", index+1, total, q.Text)
	for i, opt := range q.Options {
		if i >= len(answerLetters) {
			break
		}
		fmt.Fprintf(&b, "\n%s: %s", answerLetters[i], opt)
	}
	fmt.Fprintf(&b, "\n\nReact with %s! Time: %d seconds.",
		strings.Join(markers, ", "), int(m.cfg.QuestionDuration/time.Second))

	messageID, err := m.platform.Send(channelID, b.String())
	if err != nil {
		return err
	}
	for _, marker := range markers {
		if err := m.platform.AddReaction(channelID, messageID, marker); err != nil {
			return err
		}
	}

	guesses := make(map[string]string)
	timer := time.NewTimer(m.cfg.QuestionDuration)
	defer timer.Stop()

	for {
		select {
		case g := <-m.guessChannel():
			if g.messageID != messageID {
				continue
			}
			letter, ok := markerLetter(g.emoji, len(markers))
			if !ok {
				continue
			}
			// Last write wins; the user's reaction is stripped so one
			// live vote shows per user.
			guesses[g.userID] = letter
			if err := m.platform.RemoveReaction(g.channelID, g.messageID, g.emoji, g.userID); err != nil {
				log.Printf("Failed to remove reaction for %s: %v", g.userID, err)
			}
		case <-timer.C:
			return m.scoreQuestion(channelID, q, guesses, gameScores)
		}
	}
}

// scoreQuestion awards a point per correct guess and announces the answer.
func (m *Manager) scoreQuestion(channelID string, q Question, guesses map[string]string, gameScores map[string]int) error {
	correctLetter := answerLetters[q.CorrectIndex]
	var correctMentions []string
	for userID, letter := range guesses {
		if letter == correctLetter {
			gameScores[userID]++
			correctMentions = append(correctMentions, m.platform.Mention(userID))
		}
	}
	sort.Strings(correctMentions)

	var b strings.Builder
	fmt.Fprintf(&b, "Time's up! Correct answer: %s (Option %s)\n", q.Options[q.CorrectIndex], correctLetter)
	if len(correctMentions) > 0 {
		fmt.Fprintf(&b, "Correct: %s", strings.Join(correctMentions, ", "))
	} else {
		b.WriteString("No one got it right!")
	}
	_, err := m.platform.Send(channelID, b.String())
	return err
}

// settle merges game scores into the all-time leaderboard, awards tokens,
// and announces both boards.
func (m *Manager) settle(channelID string, gameScores map[string]int) error {
	m.board.Merge(gameScores)
	m.board.IncrementRounds()

	gameEntries := make([]Entry, 0, len(gameScores))
	for userID, score := range gameScores {
		gameEntries = append(gameEntries, Entry{UserID: userID, Score: score})
	}
	sort.Slice(gameEntries, func(i, j int) bool {
		if gameEntries[i].Score != gameEntries[j].Score {
			return gameEntries[i].Score > gameEntries[j].Score
		}
		return gameEntries[i].UserID < gameEntries[j].UserID
	})

	var b strings.Builder
	b.WriteString("Trivia ended!\n\n")
	if len(gameEntries) > 0 {
		b.WriteString("Game Leaderboard:")
		for _, e := range gameEntries {
			fmt.Fprintf(&b, "\n%s: %d", m.platform.Mention(e.UserID), e.Score)
		}
	} else {
		b.WriteString("No scores this game.")
	}

	b.WriteString("\n\n")
	topEntries := m.board.Top(5)
	if len(topEntries) > 0 {
		b.WriteString("All-Time Leaderboard (Top 5):")
		for _, e := range topEntries {
			fmt.Fprintf(&b, "\n%s: %d", m.platform.Mention(e.UserID), e.Score)
		}
	} else {
		b.WriteString("No scores yet.")
	}

	if m.tokens != nil {
		var awards strings.Builder
		for _, e := range gameEntries {
			if e.Score <= 0 {
				continue
			}
			if err := m.tokens.AddTokens(e.UserID, e.Score); err != nil {
				log.Printf("Failed to award tokens to %s: %v", e.UserID, err)
				continue
			}
			plural := ""
			if e.Score > 1 {
				plural = "s"
			}
			fmt.Fprintf(&awards, "Awarded %d Sleep Token%s to %s!\n", e.Score, plural, m.platform.Mention(e.UserID))
		}
		if awards.Len() > 0 {
			b.WriteString("\n\n")
			b.WriteString(strings.TrimRight(awards.String(), "\n"))
		}
	}

	_, err := m.platform.Send(channelID, b.String())
	return err
}

func (m *Manager) guessChannel() chan guessEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.guesses
}

// reset returns the session to Idle. It runs unconditionally when a game
// ends, aborts, or fails mid-question.
func (m *Manager) reset() {
	m.mu.Lock()
	m.state = stateIdle
	m.guesses = nil
	m.mu.Unlock()
}

// markerLetter maps an answer marker to its letter, restricted to the
// markers actually attached to the question.
func markerLetter(emoji string, count int) (string, bool) {
	for i := 0; i < count && i < len(answerMarkers); i++ {
		if answerMarkers[i] == emoji {
			return answerLetters[i], true
		}
	}
	return "", false
}

// sampleCategories picks n distinct categories from the fixed pool.
func sampleCategories(n int) []string {
	perm := rand.Perm(len(CategoryPool))
	picked := make([]string, n)
	for i := 0; i < n; i++ {
		picked[i] = CategoryPool[perm[i]]
	}
	return picked
}
