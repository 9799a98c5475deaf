package trivia

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// pollMarkers are the poll vote reactions. They are a separate set from the
// answer markers so a poll vote can never be read as an answer guess.
var pollMarkers = []string{"1️⃣", "2️⃣", "3️⃣"}

// runPoll posts a 3-option reaction poll, waits out the voting window, then
// re-fetches the message for authoritative counts. No votes means the first
// option wins; ties are broken uniformly at random.
func (m *Manager) runPoll(channelID, prompt string, options []string) (string, error) {
	var b strings.Builder
	b.WriteString(prompt)
	for i, opt := range options {
		fmt.Fprintf(&b, "\n%s: %s", pollMarkers[i], opt)
	}
	fmt.Fprintf(&b, "\nPoll closes in %d seconds!", int(m.cfg.PollDuration/time.Second))

	messageID, err := m.platform.Send(channelID, b.String())
	if err != nil {
		return "", err
	}
	for _, marker := range pollMarkers {
		if err := m.platform.AddReaction(channelID, messageID, marker); err != nil {
			return "", err
		}
	}

	time.Sleep(m.cfg.PollDuration)

	counts, err := m.platform.ReactionCounts(channelID, messageID)
	if err != nil {
		return "", err
	}

	maxVotes := 0
	votes := make([]int, len(pollMarkers))
	for i, marker := range pollMarkers {
		// Exclude the bot's own seed reaction.
		votes[i] = counts[marker] - 1
		if votes[i] < 0 {
			votes[i] = 0
		}
		if votes[i] > maxVotes {
			maxVotes = votes[i]
		}
	}

	if maxVotes == 0 {
		if _, err := m.platform.Send(channelID, fmt.Sprintf("No votes received, defaulting to: **%s**", options[0])); err != nil {
			return "", err
		}
		return options[0], nil
	}

	tied := make([]int, 0, len(options))
	for i, v := range votes {
		if v == maxVotes {
			tied = append(tied, i)
		}
	}
	return options[tied[rand.Intn(len(tied))]], nil
}
