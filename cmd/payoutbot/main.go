package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/copperx/payout-bot/internal/api"
	"github.com/copperx/payout-bot/internal/bot"
	"github.com/copperx/payout-bot/internal/config"
	"github.com/copperx/payout-bot/internal/discord"
	"github.com/copperx/payout-bot/internal/flow"
	"github.com/copperx/payout-bot/internal/notify"
	"github.com/copperx/payout-bot/internal/session"
	"github.com/copperx/payout-bot/internal/web"
)

const sessionTTL = time.Hour

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	// Session store: Postgres when configured, in-memory otherwise
	var store session.Store
	if cfg.DatabaseURL != "" {
		pgStore, err := session.NewPGStore(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer pgStore.Close()
		store = pgStore
	} else {
		log.Println("DATABASE_URL not set, sessions are in-memory only")
		store = session.NewMemoryStore()
	}

	apiClient := api.NewClient(cfg.APIBaseURL)

	// Notification source: Pusher when credentials are present, the webhook
	// endpoint otherwise
	webhookProvider := notify.NewWebhookProvider()
	var provider notify.Provider = webhookProvider
	if cfg.PusherEnabled() {
		pusher := notify.NewPusherClient(cfg.PusherAppKey, cfg.PusherCluster,
			func(ctx context.Context, socketID, channel string) (string, error) {
				auth, err := apiClient.AuthorizeChannel(ctx, socketID, channel)
				if err != nil {
					return "", err
				}
				return auth.Auth, nil
			})
		if err := pusher.Connect(ctx); err != nil {
			log.Fatalf("Failed to connect to pusher: %v", err)
		}
		defer pusher.Close()
		provider = pusher
	}
	manager := notify.NewManager(provider)

	machine := flow.NewMachine(apiClient, manager)
	pipeline := bot.New(store, machine,
		bot.Logging(),
		bot.Recovery(),
		bot.SessionTimeout(sessionTTL),
		bot.AuthGate(),
	)

	adapter, err := discord.New(cfg.BotToken, pipeline)
	if err != nil {
		log.Fatalf("Failed to create discord bot: %v", err)
	}
	manager.SetMessenger(adapter)

	if err := adapter.Start(); err != nil {
		log.Fatalf("Failed to start discord bot: %v", err)
	}
	defer adapter.Stop()

	webServer := web.New(cfg.WebBind, cfg.WebhookSecret, webhookProvider)
	go func() {
		if err := webServer.Start(); err != nil {
			log.Printf("Web server error: %v", err)
		}
	}()

	// Wait for signal to stop
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down...")
}
