package cogs

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	openai "github.com/sashabaranov/go-openai"
)

const (
	conversationTimeout = 5 * time.Minute
	conversationHistory = 10
)

type convKey struct {
	userID    string
	channelID string
}

type convState struct {
	messages    []openai.ChatCompletionMessage
	lastMessage time.Time
}

// ConversationCog runs per-user, per-channel chat sessions against the LLM.
// Sessions expire after five minutes of inactivity.
type ConversationCog struct {
	ai *openai.Client

	mu       sync.Mutex
	sessions map[convKey]*convState

	cleanupTicker *time.Ticker
	done          chan bool
}

// NewConversationCog builds the cog around an OpenAI-compatible client.
func NewConversationCog(ai *openai.Client) *ConversationCog {
	return &ConversationCog{
		ai:       ai,
		sessions: make(map[convKey]*convState),
		done:     make(chan bool),
	}
}

// RegisterConversationCommands returns the conversation slash commands.
func RegisterConversationCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "conversation",
			Description: "Start a conversation with the bot in this channel",
		},
		{
			Name:        "endconversation",
			Description: "End your conversation in this channel",
		},
	}
}

// Start launches the inactivity sweep. Call once after the session opens.
func (c *ConversationCog) Start(s *discordgo.Session) {
	c.cleanupTicker = time.NewTicker(time.Minute)
	go func() {
		for {
			select {
			case <-c.cleanupTicker.C:
				c.expireIdleSessions(s)
			case <-c.done:
				return
			}
		}
	}()
}

// Close stops the inactivity sweep.
func (c *ConversationCog) Close() {
	if c.cleanupTicker != nil {
		c.cleanupTicker.Stop()
		c.done <- true
	}
}

func (c *ConversationCog) expireIdleSessions(s *discordgo.Session) {
	now := time.Now()
	expired := make([]convKey, 0)

	c.mu.Lock()
	for key, state := range c.sessions {
		if now.Sub(state.lastMessage) > conversationTimeout {
			delete(c.sessions, key)
			expired = append(expired, key)
		}
	}
	c.mu.Unlock()

	for _, key := range expired {
		if _, err := s.ChannelMessageSend(key.channelID, fmt.Sprintf("<@%s>, conversation ended due to inactivity.", key.userID)); err != nil {
			log.Printf("Failed to announce conversation expiry: %v", err)
		}
	}
}

// HandleConversationCommand opens a session for the caller in this channel.
func (c *ConversationCog) HandleConversationCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	user := interactionUser(i)
	key := convKey{userID: user.ID, channelID: i.ChannelID}

	c.mu.Lock()
	_, exists := c.sessions[key]
	if !exists {
		c.sessions[key] = &convState{lastMessage: time.Now()}
	}
	c.mu.Unlock()

	if exists {
		respond(s, i, "You're already in a conversation in this channel!", true)
		return
	}
	respond(s, i, fmt.Sprintf("<@%s>, conversation started! Type your messages, and I'll respond.", user.ID), false)
}

// HandleEndConversationCommand closes the caller's session.
func (c *ConversationCog) HandleEndConversationCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	user := interactionUser(i)
	key := convKey{userID: user.ID, channelID: i.ChannelID}

	c.mu.Lock()
	_, exists := c.sessions[key]
	delete(c.sessions, key)
	c.mu.Unlock()

	if !exists {
		respond(s, i, "No active conversation in this channel.", true)
		return
	}
	respond(s, i, "Conversation ended.", false)
}

// HandleMessage continues a session when its owner speaks in its channel.
func (c *ConversationCog) HandleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author.Bot {
		return
	}
	key := convKey{userID: m.Author.ID, channelID: m.ChannelID}

	c.mu.Lock()
	state, exists := c.sessions[key]
	if !exists {
		c.mu.Unlock()
		return
	}
	state.messages = append(state.messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: m.Content,
	})
	state.lastMessage = time.Now()
	history := state.messages
	if len(history) > conversationHistory {
		history = history[len(history)-conversationHistory:]
	}
	prompt := make([]openai.ChatCompletionMessage, len(history))
	copy(prompt, history)
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	resp, err := c.ai.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     openai.GPT3Dot5Turbo,
		Messages:  prompt,
		MaxTokens: 100,
	})
	if err != nil || len(resp.Choices) == 0 {
		log.Printf("Conversation completion failed: %v", err)
		c.mu.Lock()
		delete(c.sessions, key)
		c.mu.Unlock()
		if _, sendErr := s.ChannelMessageSend(m.ChannelID, "Sorry, I had an issue responding. Conversation ended."); sendErr != nil {
			log.Printf("Failed to send conversation error notice: %v", sendErr)
		}
		return
	}
	reply := resp.Choices[0].Message.Content

	c.mu.Lock()
	if state, ok := c.sessions[key]; ok {
		state.messages = append(state.messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleAssistant,
			Content: reply,
		})
	}
	c.mu.Unlock()

	if _, err := s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("<@%s> %s", m.Author.ID, reply)); err != nil {
		log.Printf("Failed to send conversation reply: %v", err)
	}
}
