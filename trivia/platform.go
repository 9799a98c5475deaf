package trivia

import "context"

// Platform is the slice of the chat platform the trivia engine needs. The
// discord cog implements it against a live session; tests use a fake.
type Platform interface {
	// Send posts a message to a channel and returns its message ID.
	Send(channelID, content string) (string, error)
	// AddReaction adds the bot's own reaction to a message.
	AddReaction(channelID, messageID, emoji string) error
	// RemoveReaction removes a specific user's reaction from a message.
	RemoveReaction(channelID, messageID, emoji, userID string) error
	// ReactionCounts re-fetches a message and returns reaction totals by
	// emoji, bot reactions included.
	ReactionCounts(channelID, messageID string) (map[string]int, error)
	// Mention renders a user mention for announcements.
	Mention(userID string) string
}

// QuestionSource supplies the questions for one game.
type QuestionSource interface {
	FetchQuestions(ctx context.Context, category, difficulty string) ([]Question, error)
}

// TokenAwarder is the token economy hook notified at settlement.
type TokenAwarder interface {
	AddTokens(userID string, amount int) error
}
