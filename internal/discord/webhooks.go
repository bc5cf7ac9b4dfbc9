package discord

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// proxyWebhookName identifies the reusable webhook this bot owns on each
// channel. Lookup is by name so a restarted bot finds its old webhook
// instead of creating a second one.
const proxyWebhookName = "FormRelay Proxy"

// webhookAPI is the slice of discordgo.Session the registry and channel
// proxy need. Narrowed for tests.
type webhookAPI interface {
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelWebhooks(channelID string, options ...discordgo.RequestOption) ([]*discordgo.Webhook, error)
	WebhookCreate(channelID, name, avatar string, options ...discordgo.RequestOption) (*discordgo.Webhook, error)
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
	WebhookMessageEdit(webhookID, token, messageID string, data *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	WebhookMessageDelete(webhookID, token, messageID string, options ...discordgo.RequestOption) error
}

type webhookCall struct {
	done chan struct{}
	wh   *discordgo.Webhook
	err  error
}

// WebhookRegistry caches the per-channel delivery webhook. Concurrent
// first access for the same channel is deduplicated through an in-flight
// map so two invocations never create two live webhooks.
type WebhookRegistry struct {
	api webhookAPI

	mu       sync.Mutex
	cache    map[string]*discordgo.Webhook
	inflight map[string]*webhookCall
}

func NewWebhookRegistry(api webhookAPI) *WebhookRegistry {
	return &WebhookRegistry{
		api:      api,
		cache:    make(map[string]*discordgo.Webhook),
		inflight: make(map[string]*webhookCall),
	}
}

// GetOrCreate returns the channel's delivery webhook, creating it on first
// use. An existing webhook with the proxy name on the channel is reused.
func (r *WebhookRegistry) GetOrCreate(channelID string) (*discordgo.Webhook, error) {
	r.mu.Lock()
	if wh, ok := r.cache[channelID]; ok {
		r.mu.Unlock()
		return wh, nil
	}
	if call, ok := r.inflight[channelID]; ok {
		r.mu.Unlock()
		<-call.done
		return call.wh, call.err
	}
	call := &webhookCall{done: make(chan struct{})}
	r.inflight[channelID] = call
	r.mu.Unlock()

	call.wh, call.err = r.fetchOrCreate(channelID)

	r.mu.Lock()
	delete(r.inflight, channelID)
	if call.err == nil {
		r.cache[channelID] = call.wh
	}
	r.mu.Unlock()
	close(call.done)

	return call.wh, call.err
}

// Invalidate drops the cached webhook for a channel, forcing re-discovery
// on next use. Called when Discord reports the webhook gone.
func (r *WebhookRegistry) Invalidate(channelID string) {
	r.mu.Lock()
	delete(r.cache, channelID)
	r.mu.Unlock()
}

func (r *WebhookRegistry) fetchOrCreate(channelID string) (*discordgo.Webhook, error) {
	hooks, err := r.api.ChannelWebhooks(channelID)
	if err != nil {
		return nil, fmt.Errorf("list channel webhooks: %w", err)
	}
	for _, wh := range hooks {
		if wh.Name == proxyWebhookName && wh.Token != "" {
			return wh, nil
		}
	}

	wh, err := r.api.WebhookCreate(channelID, proxyWebhookName, "")
	if err != nil {
		return nil, fmt.Errorf("create channel webhook: %w", err)
	}
	slog.Info("delivery webhook created", "channel_id", channelID, "webhook_id", wh.ID)
	return wh, nil
}
