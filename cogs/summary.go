package cogs

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	openai "github.com/sashabaranov/go-openai"
)

// SummaryCog summarizes recent channel activity through the LLM.
type SummaryCog struct {
	ai *openai.Client
}

// NewSummaryCog builds the cog around an OpenAI-compatible client.
func NewSummaryCog(ai *openai.Client) *SummaryCog {
	return &SummaryCog{ai: ai}
}

// RegisterSummaryCommand returns the summary slash command.
func RegisterSummaryCommand() *discordgo.ApplicationCommand {
	minMinutes := 1.0
	return &discordgo.ApplicationCommand{
		Name:        "summary",
		Description: "Summarize recent messages in this channel",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "minutes",
				Description: "How many minutes back to summarize",
				Required:    true,
				MinValue:    &minMinutes,
			},
		},
	}
}

// HandleSummaryCommand collects recent non-bot messages and replies with a
// short topical summary.
func (c *SummaryCog) HandleSummaryCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opt, ok := commandOptions(i)["minutes"]
	if !ok || opt.IntValue() <= 0 {
		respond(s, i, "Please specify a positive number of minutes.", true)
		return
	}
	minutes := int(opt.IntValue())

	// The completion call is slow; acknowledge first, edit later.
	deferResponse(s, i)

	cutoff := time.Now().Add(-time.Duration(minutes) * time.Minute)
	history, err := s.ChannelMessages(i.ChannelID, 100, "", "", "")
	if err != nil {
		log.Printf("Failed to fetch channel history: %v", err)
		editResponse(s, i, "Failed to read the channel history. Try again later.")
		return
	}
	var messages []string
	for _, msg := range history {
		if msg.Author.Bot || msg.Timestamp.Before(cutoff) {
			continue
		}
		messages = append(messages, msg.Content)
	}
	if len(messages) == 0 {
		editResponse(s, i, "No messages found in the specified time frame.")
		return
	}

	prompt := "Summarize the following conversation briefly, focusing on hot topics discussed. Do not list user names:\n" +
		strings.Join(messages, "\n")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	resp, err := c.ai.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: openai.GPT3Dot5Turbo,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil || len(resp.Choices) == 0 {
		log.Printf("Summary completion failed: %v", err)
		editResponse(s, i, "Failed to generate summary. Try again later.")
		return
	}

	editResponse(s, i, fmt.Sprintf("Summary of the last %d minutes:\n%s", minutes, resp.Choices[0].Message.Content))
}
