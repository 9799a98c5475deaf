package cogs

import (
	"fmt"
	"strings"

	"leobot-go/utils"

	"github.com/bwmarrin/discordgo"
)

// SetupCog holds the owner-only configuration commands plus the mod
// command listing.
type SetupCog struct {
	settings *utils.Settings
	ownerID  string
}

// NewSetupCog wires the setup commands. ownerID comes from the environment.
func NewSetupCog(settings *utils.Settings, ownerID string) *SetupCog {
	return &SetupCog{settings: settings, ownerID: ownerID}
}

// RegisterSetupCommands returns the configuration slash commands.
func RegisterSetupCommands() []*discordgo.ApplicationCommand {
	channelOption := func(desc string) []*discordgo.ApplicationCommandOption {
		return []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionChannel,
				Name:        "channel",
				Description: desc,
				Required:    true,
			},
		}
	}
	return []*discordgo.ApplicationCommand{
		{
			Name:        "settriviachannel",
			Description: "Restrict trivia commands to a channel (owner only)",
			Options:     channelOption("Channel trivia games run in"),
		},
		{
			Name:        "setmodchannel",
			Description: "Set the mod-only channel (owner only)",
			Options:     channelOption("Channel for mod-only commands"),
		},
		{
			Name:        "setplayercardchannel",
			Description: "Set the player card channel (owner only)",
			Options:     channelOption("Channel for player cards"),
		},
		{
			Name:        "setadmins",
			Description: "Replace the admin allow-list (owner only)",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "ids",
					Description: "Comma-separated admin user IDs",
					Required:    true,
				},
			},
		},
		{
			Name:        "modcommands",
			Description: "List mod-only commands",
		},
	}
}

func (c *SetupCog) requireOwner(s *discordgo.Session, i *discordgo.InteractionCreate) bool {
	if interactionUser(i).ID != c.ownerID {
		respond(s, i, "Only the bot owner can run this command.", true)
		return false
	}
	return true
}

func channelOptionValue(s *discordgo.Session, i *discordgo.InteractionCreate) string {
	opt, ok := commandOptions(i)["channel"]
	if !ok {
		return ""
	}
	channel := opt.ChannelValue(s)
	if channel == nil {
		return ""
	}
	return channel.ID
}

// HandleSetTriviaChannel updates the trivia channel restriction.
func (c *SetupCog) HandleSetTriviaChannel(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !c.requireOwner(s, i) {
		return
	}
	channelID := channelOptionValue(s, i)
	if channelID == "" {
		respond(s, i, "A channel is required.", true)
		return
	}
	c.settings.SetTriviaChannel(channelID)
	respond(s, i, "Trivia channel updated successfully.", true)
}

// HandleSetModChannel updates the mod-only channel.
func (c *SetupCog) HandleSetModChannel(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !c.requireOwner(s, i) {
		return
	}
	channelID := channelOptionValue(s, i)
	if channelID == "" {
		respond(s, i, "A channel is required.", true)
		return
	}
	c.settings.SetModChannel(channelID)
	respond(s, i, "Mod-only channel updated successfully.", true)
}

// HandleSetPlayerCardChannel updates the player card channel.
func (c *SetupCog) HandleSetPlayerCardChannel(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !c.requireOwner(s, i) {
		return
	}
	channelID := channelOptionValue(s, i)
	if channelID == "" {
		respond(s, i, "A channel is required.", true)
		return
	}
	c.settings.SetPlayerCardChannel(channelID)
	respond(s, i, "Player card channel updated successfully.", true)
}

// HandleSetAdmins replaces the admin allow-list; the owner stays on it.
func (c *SetupCog) HandleSetAdmins(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !c.requireOwner(s, i) {
		return
	}
	opt, ok := commandOptions(i)["ids"]
	if !ok {
		respond(s, i, "A comma-separated ID list is required.", true)
		return
	}
	var ids []string
	for _, id := range strings.Split(opt.StringValue(), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	c.settings.SetAdmins(c.ownerID, ids)
	respond(s, i, "Admins updated successfully.", true)
}

// HandleModCommands lists the mod-only commands, restricted to admins in
// the mod channel when one is configured.
func (c *SetupCog) HandleModCommands(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !c.settings.IsAdmin(interactionUser(i).ID) {
		respond(s, i, "You don't have permission to use this command.", true)
		return
	}
	if modChannel := c.settings.ModChannel(); modChannel != "" && i.ChannelID != modChannel {
		respond(s, i, "This command can only be used in the mod-only channel.", true)
		return
	}
	commands := []struct{ name, desc string }{
		{"givetokens", "Give sleep tokens to members"},
		{"trivia", "Start a trivia game"},
	}
	var b strings.Builder
	b.WriteString("Mod Commands:")
	for _, cmd := range commands {
		fmt.Fprintf(&b, "\n- %s: %s", cmd.name, cmd.desc)
	}
	respond(s, i, b.String(), true)
}
