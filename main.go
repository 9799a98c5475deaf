package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"leobot-go/cogs"
	"leobot-go/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"
	openai "github.com/sashabaranov/go-openai"
)

var botStatus = "starting"

type bot struct {
	session      *discordgo.Session
	settings     *utils.Settings
	trivia       *cogs.TriviaCog
	tokens       *cogs.TokenCog
	setup        *cogs.SetupCog
	colors       *cogs.ColorCog
	conversation *cogs.ConversationCog
	summary      *cogs.SummaryCog
	moderation   *cogs.ModerationCog
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using process environment")
	}

	// HTTP server for hosting-platform health checks.
	go startHealthServer()

	store := setupStorage()
	settings := utils.LoadSettings(store)

	token := os.Getenv("BOT_TOKEN")
	if token == "" {
		log.Println("BOT_TOKEN not set - Discord bot will not connect")
		botStatus = "no_token"
		select {}
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		log.Printf("Failed to create Discord session: %v", err)
		botStatus = "error"
		select {}
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentMessageContent

	b := &bot{session: session, settings: settings}
	b.tokens = cogs.NewTokenCog(store, settings)
	b.trivia = cogs.NewTriviaCog(session, settings, store, b.tokens)
	b.setup = cogs.NewSetupCog(settings, os.Getenv("BOT_OWNER_ID"))
	b.colors = cogs.NewColorCog(store, settings)

	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		ai := openai.NewClient(apiKey)
		b.conversation = cogs.NewConversationCog(ai)
		b.summary = cogs.NewSummaryCog(ai)
		b.moderation = cogs.NewModerationCog(ai, store)
	} else {
		log.Println("OPENAI_API_KEY not set - conversation, summary and moderation disabled")
	}

	session.AddHandler(b.onReady)
	session.AddHandler(b.onGuildCreate)
	session.AddHandler(b.onInteractionCreate)
	session.AddHandler(b.onMessageCreate)
	session.AddHandler(b.onReactionAdd)

	if err := session.Open(); err != nil {
		log.Printf("Failed to open Discord connection: %v", err)
		botStatus = "connection_failed"
		select {}
	}
	defer session.Close()

	if b.conversation != nil {
		b.conversation.Start(session)
		defer b.conversation.Close()
	}

	log.Println("Bot is now running. Press CTRL+C to exit.")
	botStatus = "running"

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-stop

	log.Println("Gracefully shutting down...")
	botStatus = "shutting_down"
}

// setupStorage prefers Postgres when DATABASE_URL is set and falls back to
// JSON files under data/.
func setupStorage() utils.Store {
	pg, err := utils.SetupPostgresStore()
	if err != nil {
		log.Printf("Database setup failed: %v", err)
		log.Println("Bot will continue with file storage")
	} else if pg != nil {
		log.Println("Database connected successfully")
		return pg
	}

	fileStore, err := utils.NewFileStore("data")
	if err != nil {
		log.Fatalf("Failed to set up file storage: %v", err)
	}
	return fileStore
}

func (b *bot) onReady(s *discordgo.Session, event *discordgo.Ready) {
	log.Printf("Logged in as %s (ID: %s)", event.User.Username, event.User.ID)
	botStatus = "online"

	if err := s.UpdateStatusComplex(discordgo.UpdateStatusData{
		Activities: []*discordgo.Activity{
			{
				Name: "with Sleep Tokens!",
				Type: discordgo.ActivityTypeGame,
			},
		},
		Status: "online",
	}); err != nil {
		log.Printf("Failed to update status: %v", err)
	}

	if err := b.registerSlashCommands(s); err != nil {
		log.Printf("Failed to register slash commands: %v", err)
	}
}

func (b *bot) onGuildCreate(s *discordgo.Session, event *discordgo.GuildCreate) {
	// Make sure the whole color palette exists as assignable roles.
	cogs.EnsureColorRoles(s, event.ID, b.settings)
}

func (b *bot) registerSlashCommands(s *discordgo.Session) error {
	commands := []*discordgo.ApplicationCommand{
		{
			Name:        "ping",
			Description: "Check bot latency and status",
		},
		cogs.RegisterTriviaCommand(),
		cogs.RegisterColorCommand(),
	}
	commands = append(commands, cogs.RegisterTokenCommands()...)
	commands = append(commands, cogs.RegisterSetupCommands()...)
	if b.conversation != nil {
		commands = append(commands, cogs.RegisterConversationCommands()...)
		commands = append(commands, cogs.RegisterSummaryCommand())
	}

	for _, command := range commands {
		if _, err := s.ApplicationCommandCreate(s.State.User.ID, "", command); err != nil {
			return fmt.Errorf("failed to create command %s: %w", command.Name, err)
		}
	}

	log.Printf("Successfully registered %d slash commands", len(commands))
	return nil
}

func (b *bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	switch i.ApplicationCommandData().Name {
	case "ping":
		handlePingCommand(s, i)
	case "trivia":
		b.trivia.HandleTriviaCommand(s, i)
	case "tokens":
		b.tokens.HandleTokensCommand(s, i)
	case "givetokens":
		b.tokens.HandleGiveTokensCommand(s, i)
	case "changecolor":
		b.colors.HandleChangeColor(s, i)
	case "settriviachannel":
		b.setup.HandleSetTriviaChannel(s, i)
	case "setmodchannel":
		b.setup.HandleSetModChannel(s, i)
	case "setplayercardchannel":
		b.setup.HandleSetPlayerCardChannel(s, i)
	case "setadmins":
		b.setup.HandleSetAdmins(s, i)
	case "modcommands":
		b.setup.HandleModCommands(s, i)
	case "conversation":
		if b.conversation != nil {
			b.conversation.HandleConversationCommand(s, i)
		}
	case "endconversation":
		if b.conversation != nil {
			b.conversation.HandleEndConversationCommand(s, i)
		}
	case "summary":
		if b.summary != nil {
			b.summary.HandleSummaryCommand(s, i)
		}
	}
}

func (b *bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	if b.moderation != nil {
		go b.moderation.HandleMessage(s, m)
	}
	if b.conversation != nil {
		go b.conversation.HandleMessage(s, m)
	}
}

func (b *bot) onReactionAdd(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	b.trivia.HandleReactionAdd(s, r)
}

func handlePingCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	latency := s.HeartbeatLatency()
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: fmt.Sprintf("Pong! Latency: %dms", latency.Milliseconds()),
		},
	})
	if err != nil {
		log.Printf("Failed to respond to ping: %v", err)
	}
}

func startHealthServer() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "Discord Bot Status: %s", botStatus)
	})

	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy","service":"leobot","bot_status":"%s"}`, botStatus)
	})

	log.Printf("Health server starting on port %s", port)
	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Printf("Health server error: %v", err)
	}
}
