package cogs

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"

	"leobot-go/utils"

	"github.com/bwmarrin/discordgo"
)

const userConfigKey = "user_config"

// userConfig is the per-user profile document.
type userConfig struct {
	Color string `json:"color,omitempty"`
}

// ColorCog assigns color roles from the configured palette.
type ColorCog struct {
	settings *utils.Settings

	mu      sync.Mutex
	store   utils.Store
	configs map[string]userConfig
}

// NewColorCog loads the per-user color selections.
func NewColorCog(store utils.Store, settings *utils.Settings) *ColorCog {
	cog := &ColorCog{settings: settings, store: store, configs: make(map[string]userConfig)}
	var configs map[string]userConfig
	if err := store.Load(userConfigKey, &configs); err == nil {
		cog.configs = configs
	} else if !errors.Is(err, utils.ErrNotFound) {
		log.Printf("Failed to load user config: %v", err)
	}
	return cog
}

// RegisterColorCommand returns the changecolor slash command.
func RegisterColorCommand() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "changecolor",
		Description: "Pick a name color from the palette",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "color",
				Description: "Color name (e.g. Teal)",
				Required:    true,
			},
		},
	}
}

// HandleChangeColor swaps the caller's color role for the requested one,
// creating the role on demand.
func (c *ColorCog) HandleChangeColor(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Member == nil {
		respond(s, i, "This command only works in a server.", true)
		return
	}
	opt, ok := commandOptions(i)["color"]
	if !ok {
		respond(s, i, "A color name is required.", true)
		return
	}
	palette := c.settings.ColorRoles()
	requested := strings.TrimSpace(opt.StringValue())
	name, hex := matchColor(palette, requested)
	if name == "" {
		respond(s, i, fmt.Sprintf("Unknown color %q. Options: %s", requested, strings.Join(paletteNames(palette), ", ")), true)
		return
	}

	role, err := findOrCreateRole(s, i.GuildID, name, hex)
	if err != nil {
		log.Printf("Failed to resolve color role %s: %v", name, err)
		respond(s, i, "Failed to update your color role.", true)
		return
	}

	// Drop any other palette role the member holds before adding the new one.
	userID := interactionUser(i).ID
	guildRoles, err := s.GuildRoles(i.GuildID)
	if err != nil {
		log.Printf("Failed to list guild roles: %v", err)
		respond(s, i, "Failed to update your color role.", true)
		return
	}
	roleNames := make(map[string]string, len(guildRoles))
	for _, r := range guildRoles {
		roleNames[r.ID] = r.Name
	}
	for _, roleID := range i.Member.Roles {
		heldName := roleNames[roleID]
		if _, isColor := palette[heldName]; isColor && roleID != role.ID {
			if err := s.GuildMemberRoleRemove(i.GuildID, userID, roleID); err != nil {
				log.Printf("Failed to remove color role %s: %v", heldName, err)
			}
		}
	}
	if err := s.GuildMemberRoleAdd(i.GuildID, userID, role.ID); err != nil {
		log.Printf("Failed to add color role %s: %v", name, err)
		respond(s, i, "Failed to update your color role.", true)
		return
	}

	c.mu.Lock()
	cfg := c.configs[userID]
	cfg.Color = hex
	c.configs[userID] = cfg
	if err := c.store.Save(userConfigKey, c.configs); err != nil {
		log.Printf("Failed to save user config: %v", err)
	}
	c.mu.Unlock()

	respond(s, i, fmt.Sprintf("Color updated to %s! Hex code: %s", name, hex), false)
}

// EnsureColorRoles creates any palette role missing from the guild. Run on
// ready so the palette is always assignable.
func EnsureColorRoles(s *discordgo.Session, guildID string, settings *utils.Settings) {
	existing, err := s.GuildRoles(guildID)
	if err != nil {
		log.Printf("Failed to list roles for guild %s: %v", guildID, err)
		return
	}
	present := make(map[string]bool, len(existing))
	for _, r := range existing {
		present[r.Name] = true
	}
	for name, hex := range settings.ColorRoles() {
		if present[name] {
			continue
		}
		if _, err := createColorRole(s, guildID, name, hex); err != nil {
			log.Printf("Failed to create color role %s: %v", name, err)
		}
	}
}

// matchColor resolves a case-insensitive palette lookup.
func matchColor(palette map[string]string, requested string) (string, string) {
	for name, hex := range palette {
		if strings.EqualFold(name, requested) {
			return name, hex
		}
	}
	return "", ""
}

func paletteNames(palette map[string]string) []string {
	names := make([]string, 0, len(palette))
	for name := range palette {
		names = append(names, name)
	}
	return names
}

func findOrCreateRole(s *discordgo.Session, guildID, name, hex string) (*discordgo.Role, error) {
	roles, err := s.GuildRoles(guildID)
	if err != nil {
		return nil, err
	}
	for _, r := range roles {
		if r.Name == name {
			return r, nil
		}
	}
	return createColorRole(s, guildID, name, hex)
}

func createColorRole(s *discordgo.Session, guildID, name, hex string) (*discordgo.Role, error) {
	color, err := parseHexColor(hex)
	if err != nil {
		return nil, err
	}
	return s.GuildRoleCreate(guildID, &discordgo.RoleParams{Name: name, Color: &color})
}

func parseHexColor(hex string) (int, error) {
	value, err := strconv.ParseInt(strings.TrimPrefix(hex, "#"), 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid hex color %q: %w", hex, err)
	}
	return int(value), nil
}
