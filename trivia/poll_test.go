package trivia

import (
	"strings"
	"testing"
	"time"
)

func pollManager(platform *fakePlatform) *Manager {
	return NewManager(platform, nil, nil, nil, Config{
		PollDuration:     5 * time.Millisecond,
		QuestionDuration: 5 * time.Millisecond,
	})
}

func TestRunPollNoVotesDefaultsToFirstOption(t *testing.T) {
	platform := newFakePlatform()
	m := pollManager(platform)

	winner, err := m.runPoll("chan", "Choose a category:", []string{"History", "Science", "Art"})
	if err != nil {
		t.Fatalf("runPoll failed: %v", err)
	}
	if winner != "History" {
		t.Errorf("Expected default winner 'History', got %q", winner)
	}
	if _, ok := platform.findMessage("No votes received, defaulting to: **History**"); !ok {
		t.Error("Expected a no-engagement announcement")
	}
}

func TestRunPollUniqueMaximumWins(t *testing.T) {
	platform := newFakePlatform()
	platform.setVotes("2️⃣", 3)
	platform.setVotes("3️⃣", 1)
	m := pollManager(platform)

	winner, err := m.runPoll("chan", "Choose a category:", []string{"History", "Science", "Art"})
	if err != nil {
		t.Fatalf("runPoll failed: %v", err)
	}
	if winner != "Science" {
		t.Errorf("Expected 'Science' to win, got %q", winner)
	}
}

func TestRunPollPostsAllMarkers(t *testing.T) {
	platform := newFakePlatform()
	m := pollManager(platform)

	if _, err := m.runPoll("chan", "Choose the difficulty:", Difficulties); err != nil {
		t.Fatalf("runPoll failed: %v", err)
	}
	msg, ok := platform.findMessage("Choose the difficulty:")
	if !ok {
		t.Fatal("Poll message was not sent")
	}
	for _, marker := range pollMarkers {
		if !strings.Contains(msg.Content, marker) {
			t.Errorf("Poll message missing marker %s", marker)
		}
		if platform.reactions[msg.ID][marker] != 1 {
			t.Errorf("Expected bot seed reaction for %s", marker)
		}
	}
}

func TestRunPollTieBreaksWithinTiedSet(t *testing.T) {
	options := []string{"History", "Science", "Art"}
	seen := make(map[string]bool)

	for trial := 0; trial < 60; trial++ {
		platform := newFakePlatform()
		platform.setVotes("1️⃣", 2)
		platform.setVotes("3️⃣", 2)
		m := pollManager(platform)

		winner, err := m.runPoll("chan", "Choose a category:", options)
		if err != nil {
			t.Fatalf("runPoll failed: %v", err)
		}
		if winner != "History" && winner != "Art" {
			t.Fatalf("Winner %q is outside the tied set", winner)
		}
		seen[winner] = true
	}

	// Uniform tie-breaking should hit both tied options over 60 trials.
	if !seen["History"] || !seen["Art"] {
		t.Errorf("Expected both tied options to win at least once, saw %v", seen)
	}
}
