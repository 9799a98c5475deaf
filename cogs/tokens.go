package cogs

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"leobot-go/utils"

	"github.com/bwmarrin/discordgo"
)

const tokensKey = "tokens"

// TokenCog is the Sleep Token economy: per-user balances persisted
// write-through. It also serves the trivia session as its token awarder.
type TokenCog struct {
	settings *utils.Settings

	mu       sync.Mutex
	store    utils.Store
	balances map[string]int
}

// NewTokenCog loads persisted balances, starting empty on first run.
func NewTokenCog(store utils.Store, settings *utils.Settings) *TokenCog {
	cog := &TokenCog{settings: settings, store: store, balances: make(map[string]int)}
	var balances map[string]int
	if err := store.Load(tokensKey, &balances); err == nil {
		cog.balances = balances
	} else if !errors.Is(err, utils.ErrNotFound) {
		log.Printf("Failed to load token balances: %v", err)
	}
	return cog
}

// RegisterTokenCommands returns the token slash commands.
func RegisterTokenCommands() []*discordgo.ApplicationCommand {
	minAmount := 1.0
	return []*discordgo.ApplicationCommand{
		{
			Name:        "tokens",
			Description: "Check your sleep token balance",
		},
		{
			Name:        "givetokens",
			Description: "Give sleep tokens to a member (mods only)",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "member",
					Description: "Member to receive the tokens",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "amount",
					Description: "Number of tokens to give",
					Required:    true,
					MinValue:    &minAmount,
				},
			},
		},
	}
}

// AddTokens credits a user and persists the balances. Used by both the
// givetokens command and trivia settlement.
func (c *TokenCog) AddTokens(userID string, amount int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balances[userID] += amount
	if err := c.store.Save(tokensKey, c.balances); err != nil {
		return fmt.Errorf("failed to save token balances: %w", err)
	}
	return nil
}

// Balance returns a user's token balance.
func (c *TokenCog) Balance(userID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balances[userID]
}

// HandleTokensCommand reports the caller's balance.
func (c *TokenCog) HandleTokensCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	user := interactionUser(i)
	respond(s, i, fmt.Sprintf("You have %d sleep tokens.", c.Balance(user.ID)), true)
}

// HandleGiveTokensCommand credits another member, mods only.
func (c *TokenCog) HandleGiveTokensCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	user := interactionUser(i)
	if !c.settings.IsAdmin(user.ID) {
		respond(s, i, "Only mods can use this command.", true)
		return
	}
	options := commandOptions(i)
	memberOpt, ok := options["member"]
	amountOpt, amountOK := options["amount"]
	if !ok || !amountOK {
		respond(s, i, "Both a member and an amount are required.", true)
		return
	}
	member := memberOpt.UserValue(s)
	amount := int(amountOpt.IntValue())
	if member == nil || amount <= 0 {
		respond(s, i, "Invalid member or amount.", true)
		return
	}
	if err := c.AddTokens(member.ID, amount); err != nil {
		log.Printf("Failed to give tokens: %v", err)
		respond(s, i, "Failed to update token balances.", true)
		return
	}
	respond(s, i, fmt.Sprintf("Gave %d sleep tokens to <@%s>. They now have %d tokens.",
		amount, member.ID, c.Balance(member.ID)), false)
}
