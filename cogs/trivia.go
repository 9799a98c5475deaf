package cogs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"leobot-go/trivia"
	"leobot-go/utils"

	"github.com/bwmarrin/discordgo"
)

// TriviaCog wires the trivia engine to Discord: the slash command with its
// entry guards, and the reaction listener feeding guesses to the session.
type TriviaCog struct {
	Manager  *trivia.Manager
	settings *utils.Settings
}

// NewTriviaCog builds the trivia stack: provider client, persisted
// leaderboard, session manager over a discordgo-backed platform.
func NewTriviaCog(session *discordgo.Session, settings *utils.Settings, store utils.Store, tokens *TokenCog) *TriviaCog {
	client := trivia.NewClient()
	board := trivia.NewLeaderboard(store)
	manager := trivia.NewManager(&discordPlatform{session: session}, client, board, tokens, trivia.Config{})

	// The provider session token is fetched once at startup and reused
	// across games; it scopes duplicate-question avoidance.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := client.FetchSessionToken(ctx); err != nil {
			log.Printf("Failed to fetch trivia session token: %v", err)
		}
	}()

	return &TriviaCog{Manager: manager, settings: settings}
}

// RegisterTriviaCommand returns the slash command definition.
func RegisterTriviaCommand() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "trivia",
		Description: "Start a trivia game (mods only)",
	}
}

// HandleTriviaCommand enforces the entry guards and starts a game.
func (c *TriviaCog) HandleTriviaCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	user := interactionUser(i)
	if !c.settings.IsAdmin(user.ID) {
		respond(s, i, "Only mods can start a trivia game.", true)
		return
	}
	if channelID := c.settings.TriviaChannel(); channelID != "" && i.ChannelID != channelID {
		respond(s, i, fmt.Sprintf("Trivia commands are only allowed in <#%s>!", channelID), true)
		return
	}
	if c.Manager.Busy() {
		respond(s, i, "A trivia game is already in progress!", true)
		return
	}

	respond(s, i, "Setting up a trivia game!", false)

	channelID := i.ChannelID
	go func() {
		err := c.Manager.Run(channelID)
		switch {
		case err == nil:
		case errors.Is(err, trivia.ErrSessionActive):
			if _, sendErr := s.ChannelMessageSend(channelID, "A trivia game is already in progress!"); sendErr != nil {
				log.Printf("Failed to send session-conflict notice: %v", sendErr)
			}
		case errors.Is(err, trivia.ErrNoQuestions):
			// Already announced by the session; just log the cause.
			log.Printf("Trivia game aborted: %v", err)
		default:
			log.Printf("Trivia game failed: %v", err)
		}
	}()
}

// HandleReactionAdd forwards guess reactions to the running game.
func (c *TriviaCog) HandleReactionAdd(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	if s.State.User != nil && r.UserID == s.State.User.ID {
		return
	}
	c.Manager.HandleReaction(r.ChannelID, r.MessageID, r.Emoji.Name, r.UserID)
}

// discordPlatform implements trivia.Platform over a live discordgo session.
type discordPlatform struct {
	session *discordgo.Session
}

func (p *discordPlatform) Send(channelID, content string) (string, error) {
	msg, err := p.session.ChannelMessageSend(channelID, content)
	if err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}
	return msg.ID, nil
}

func (p *discordPlatform) AddReaction(channelID, messageID, emoji string) error {
	return p.session.MessageReactionAdd(channelID, messageID, emoji)
}

func (p *discordPlatform) RemoveReaction(channelID, messageID, emoji, userID string) error {
	return p.session.MessageReactionRemove(channelID, messageID, emoji, userID)
}

func (p *discordPlatform) ReactionCounts(channelID, messageID string) (map[string]int, error) {
	// Re-fetch for authoritative counts instead of trusting gateway state.
	msg, err := p.session.ChannelMessage(channelID, messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch message: %w", err)
	}
	counts := make(map[string]int, len(msg.Reactions))
	for _, r := range msg.Reactions {
		counts[r.Emoji.Name] = r.Count
	}
	return counts, nil
}

func (p *discordPlatform) Mention(userID string) string {
	return "<@" + userID + ">"
}
