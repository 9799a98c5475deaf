package cogs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"leobot-go/utils"

	"github.com/bwmarrin/discordgo"
	openai "github.com/sashabaranov/go-openai"
)

const violationsKey = "violations"

// ModerationCog screens messages through the Moderations API and keeps a
// persisted per-user violation count.
type ModerationCog struct {
	ai *openai.Client

	mu         sync.Mutex
	store      utils.Store
	violations map[string]int
}

// NewModerationCog loads the persisted violation counts.
func NewModerationCog(ai *openai.Client, store utils.Store) *ModerationCog {
	cog := &ModerationCog{ai: ai, store: store, violations: make(map[string]int)}
	var violations map[string]int
	if err := store.Load(violationsKey, &violations); err == nil {
		cog.violations = violations
	} else if !errors.Is(err, utils.ErrNotFound) {
		log.Printf("Failed to load violation counts: %v", err)
	}
	return cog
}

// HandleMessage screens one message; flagged content bumps the author's
// violation count and is called out in channel.
func (c *ModerationCog) HandleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author.Bot || m.Content == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	resp, err := c.ai.Moderations(ctx, openai.ModerationRequest{Input: m.Content})
	if err != nil {
		log.Printf("Moderation request failed: %v", err)
		return
	}
	if len(resp.Results) == 0 || !resp.Results[0].Flagged {
		return
	}

	c.mu.Lock()
	c.violations[m.Author.ID]++
	count := c.violations[m.Author.ID]
	if err := c.store.Save(violationsKey, c.violations); err != nil {
		log.Printf("Failed to save violation counts: %v", err)
	}
	c.mu.Unlock()

	notice := fmt.Sprintf("<@%s>, your message was flagged for inappropriate behavior. Violation count: %d", m.Author.ID, count)
	if _, err := s.ChannelMessageSend(m.ChannelID, notice); err != nil {
		log.Printf("Failed to send moderation notice: %v", err)
	}
}

// Violations returns a user's violation count.
func (c *ModerationCog) Violations(userID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.violations[userID]
}
