package discord

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"

	"github.com/nextlevelbuilder/formrelay/internal/config"
	"github.com/nextlevelbuilder/formrelay/internal/identity"
	"github.com/nextlevelbuilder/formrelay/internal/proxy"
	"github.com/nextlevelbuilder/formrelay/internal/store"
)

// Per-user budget for alias-triggered proxy attempts. Bursty by design:
// role-players often fire a handful of proxied lines back to back.
const (
	proxyRateInterval = 2 // seconds per regained token
	proxyRateBurst    = 5
)

// Bot connects to the Discord gateway and serves the proxy flow plus the
// form/alias management commands.
type Bot struct {
	session  *discordgo.Session
	config   config.DiscordConfig
	stores   *store.Stores
	identity *identity.Service
	guard    *PermissionGuard
	channel  *ChannelProxy
	coord    *proxy.Coordinator

	botUserID string   // populated on start
	limiters  sync.Map // userID string → *rate.Limiter
}

// New creates the bot and wires the proxy pipeline onto the stores.
func New(cfg config.DiscordConfig, stores *store.Stores) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent

	// The channel proxy owns the rate-limit retry policy.
	session.ShouldRetryOnRateLimit = false
	session.MaxRestRetries = 0

	guard := NewPermissionGuard(session)
	channel := NewChannelProxy(session, NewWebhookRegistry(session))

	return &Bot{
		session:  session,
		config:   cfg,
		stores:   stores,
		identity: identity.NewService(stores.Forms, stores.Aliases),
		guard:    guard,
		channel:  channel,
		coord:    proxy.NewCoordinator(stores.Forms, stores.Proxied, channel, guard),
	}, nil
}

// Start opens the gateway connection and begins receiving events.
func (b *Bot) Start(_ context.Context) error {
	slog.Info("starting discord bot")

	b.session.AddHandler(b.handleMessage)
	b.session.AddHandler(b.handleInteraction)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}

	user, err := b.session.User("@me")
	if err != nil {
		b.session.Close()
		return fmt.Errorf("fetch discord bot identity: %w", err)
	}
	b.botUserID = user.ID

	slog.Info("discord bot connected", "username", user.Username, "id", user.ID)
	return nil
}

// Stop closes the gateway connection.
func (b *Bot) Stop(_ context.Context) error {
	slog.Info("stopping discord bot")
	return b.session.Close()
}

// RegisterCommands bulk-overwrites the application commands, guild-scoped
// when a dev guild is configured, global otherwise.
func (b *Bot) RegisterCommands() error {
	appID := b.config.ApplicationID
	if appID == "" {
		return fmt.Errorf("application ID is not configured")
	}
	return registerCommands(b.session, appID, b.config.DevGuildID)
}

// allowProxy applies the per-user token bucket for alias-triggered sends.
func (b *Bot) allowProxy(userID string) bool {
	v, _ := b.limiters.LoadOrStore(userID,
		rate.NewLimiter(rate.Limit(1.0/float64(proxyRateInterval)), proxyRateBurst))
	return v.(*rate.Limiter).Allow()
}
