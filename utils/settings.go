package utils

import (
	"errors"
	"log"
	"sync"
)

const settingsKey = "bot_settings"

// ChannelIDs holds the channels specific commands are restricted to.
// An empty ID means the restriction is not configured.
type ChannelIDs struct {
	PlayerCardChannel string `json:"playerCardChannel,omitempty"`
	TriviaChannel     string `json:"triviaChannel,omitempty"`
	ModChannel        string `json:"modChannel,omitempty"`
}

type settingsData struct {
	ChannelIDs ChannelIDs        `json:"channelIds"`
	Admins     []string          `json:"admins"`
	ColorRoles map[string]string `json:"colorRoles"`
}

// Settings is the persisted bot configuration: restricted channels, the
// admin allow-list and the color role palette.
type Settings struct {
	mu    sync.RWMutex
	store Store
	data  settingsData
}

// LoadSettings reads settings from the store, falling back to defaults when
// nothing has been saved yet.
func LoadSettings(store Store) *Settings {
	s := &Settings{store: store, data: defaultSettings()}
	var saved settingsData
	err := store.Load(settingsKey, &saved)
	switch {
	case err == nil:
		if saved.ColorRoles == nil {
			saved.ColorRoles = defaultSettings().ColorRoles
		}
		s.data = saved
	case errors.Is(err, ErrNotFound):
		// First run, keep defaults.
	default:
		log.Printf("Failed to load bot settings, using defaults: %v", err)
	}
	return s
}

func defaultSettings() settingsData {
	return settingsData{
		ColorRoles: map[string]string{
			"Red":         "#FF0000",
			"Green":       "#00FF00",
			"Blue":        "#0000FF",
			"Yellow":      "#FFFF00",
			"Purple":      "#800080",
			"Cyan":        "#00FFFF",
			"Orange":      "#FF6600",
			"Pink":        "#FFC0CB",
			"Brown":       "#A52A2A",
			"Gray":        "#808080",
			"Navy":        "#000080",
			"Teal":        "#008080",
			"Violet":      "#EE82EE",
			"Salmon":      "#FA8072",
			"Gold":        "#FFD700",
			"Silver":      "#C0C0C0",
			"Turquoise":   "#40E0D0",
			"Magenta":     "#FF00FF",
			"The Archive": "#9bdeed",
			"Lime":        "#00FF00",
		},
	}
}

func (s *Settings) save() {
	if err := s.store.Save(settingsKey, &s.data); err != nil {
		log.Printf("Failed to save bot settings: %v", err)
	}
}

// IsAdmin reports whether the user is on the admin allow-list.
func (s *Settings) IsAdmin(userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.data.Admins {
		if id == userID {
			return true
		}
	}
	return false
}

// SetAdmins replaces the admin allow-list. The owner ID is always kept on it.
func (s *Settings) SetAdmins(ownerID string, ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hasOwner := false
	for _, id := range ids {
		if id == ownerID {
			hasOwner = true
			break
		}
	}
	if !hasOwner && ownerID != "" {
		ids = append(ids, ownerID)
	}
	s.data.Admins = ids
	s.save()
}

// TriviaChannel returns the configured trivia channel ID, or "" when any
// channel is allowed.
func (s *Settings) TriviaChannel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.ChannelIDs.TriviaChannel
}

// SetTriviaChannel updates the trivia channel restriction.
func (s *Settings) SetTriviaChannel(channelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.ChannelIDs.TriviaChannel = channelID
	s.save()
}

// ModChannel returns the configured mod-only channel ID.
func (s *Settings) ModChannel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.ChannelIDs.ModChannel
}

// SetModChannel updates the mod-only channel restriction.
func (s *Settings) SetModChannel(channelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.ChannelIDs.ModChannel = channelID
	s.save()
}

// PlayerCardChannel returns the configured player card channel ID.
func (s *Settings) PlayerCardChannel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.ChannelIDs.PlayerCardChannel
}

// SetPlayerCardChannel updates the player card channel.
func (s *Settings) SetPlayerCardChannel(channelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.ChannelIDs.PlayerCardChannel = channelID
	s.save()
}

// ColorRoles returns a copy of the color role palette (name -> hex).
func (s *Settings) ColorRoles() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	roles := make(map[string]string, len(s.data.ColorRoles))
	for name, hex := range s.data.ColorRoles {
		roles[name] = hex
	}
	return roles
}
