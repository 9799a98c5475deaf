package trivia

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakePlatform records sends and reactions in memory. Vote totals returned
// by ReactionCounts can be programmed per emoji to simulate user votes.
type fakePlatform struct {
	mu        sync.Mutex
	nextID    int
	messages  []fakeMessage
	reactions map[string]map[string]int
	votes     map[string]int
	removed   []string
}

type fakeMessage struct {
	ID        string
	ChannelID string
	Content   string
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		reactions: make(map[string]map[string]int),
		votes:     make(map[string]int),
	}
}

func (f *fakePlatform) Send(channelID, content string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("msg-%d", f.nextID)
	f.messages = append(f.messages, fakeMessage{ID: id, ChannelID: channelID, Content: content})
	return id, nil
}

func (f *fakePlatform) AddReaction(channelID, messageID, emoji string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reactions[messageID] == nil {
		f.reactions[messageID] = make(map[string]int)
	}
	f.reactions[messageID][emoji]++
	return nil
}

func (f *fakePlatform) RemoveReaction(channelID, messageID, emoji, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, messageID+"/"+emoji+"/"+userID)
	return nil
}

func (f *fakePlatform) ReactionCounts(channelID, messageID string) (map[string]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[string]int)
	for emoji, n := range f.reactions[messageID] {
		counts[emoji] = n
	}
	for emoji, n := range f.votes {
		counts[emoji] += n
	}
	return counts, nil
}

func (f *fakePlatform) Mention(userID string) string {
	return "<@" + userID + ">"
}

// setVotes programs user votes for an emoji, on top of the bot's own seed
// reactions.
func (f *fakePlatform) setVotes(emoji string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.votes[emoji] = n
}

// findMessage returns the first message whose content contains substr.
func (f *fakePlatform) findMessage(substr string) (fakeMessage, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.messages {
		if strings.Contains(m.Content, substr) {
			return m, true
		}
	}
	return fakeMessage{}, false
}

func (f *fakePlatform) removedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.removed)
}

// waitForMessage polls until a message containing substr shows up.
func (f *fakePlatform) waitForMessage(t *testing.T, substr string) fakeMessage {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m, ok := f.findMessage(substr); ok {
			return m
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for message containing %q", substr)
	return fakeMessage{}
}
