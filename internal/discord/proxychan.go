package discord

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"github.com/nextlevelbuilder/formrelay/internal/proxy"
)

const (
	// maxDispatchAttempts bounds the rate-limit retry loop, counting the
	// first try.
	maxDispatchAttempts = 3
	// defaultRetryAfter is used when a rate-limit response carries no
	// advised delay.
	defaultRetryAfter = time.Second

	messageCharLimit = 2000
)

// ChannelProxy implements proxy.ChannelProxy on the Discord webhook API.
type ChannelProxy struct {
	api      webhookAPI
	registry *WebhookRegistry

	// sleep and openAttachment are swappable for tests.
	sleep          func(time.Duration)
	openAttachment func(url string) (io.ReadCloser, error)
}

func NewChannelProxy(api webhookAPI, registry *WebhookRegistry) *ChannelProxy {
	return &ChannelProxy{
		api:            api,
		registry:       registry,
		sleep:          time.Sleep,
		openAttachment: openAttachmentHTTP,
	}
}

// Send delivers the payload to channelID through the channel's webhook.
// A non-nil reply triggers a best-effort fetch of the target message for
// reply styling; a failed fetch degrades to a plain send.
func (p *ChannelProxy) Send(ctx context.Context, channelID string, payload proxy.Payload, reply *proxy.ReplyRef) (*proxy.SendResult, error) {
	ch, err := p.api.Channel(channelID)
	if err != nil {
		return nil, fmt.Errorf("resolve channel %s: %w", channelID, err)
	}
	if !textCapable(ch) {
		return nil, fmt.Errorf("%w: channel %s type %d", proxy.ErrInvalidChannel, channelID, ch.Type)
	}

	if reply != nil {
		if style, ok := p.replyStyle(ch, reply.MessageID); ok {
			proxy.ApplyReplyStyle(&payload, style)
		}
	}

	wh, err := p.registry.GetOrCreate(channelID)
	if err != nil {
		return nil, fmt.Errorf("acquire delivery webhook: %w", err)
	}

	files := p.loadAttachments(payload.Attachments)

	params := &discordgo.WebhookParams{
		Content:         truncateContent(payload.Content),
		Username:        payload.Username,
		AvatarURL:       payload.AvatarURL,
		AllowedMentions: allowedMentions(payload.Mentions),
	}

	var msg *discordgo.Message
	err = p.withRetry(ctx, func() error {
		// The multipart encoder drains file readers, so every attempt
		// gets fresh ones over the buffered bytes.
		params.Files = webhookFiles(files)
		var execErr error
		msg, execErr = p.api.WebhookExecute(wh.ID, wh.Token, true, params)
		return execErr
	})
	if err != nil {
		return nil, fmt.Errorf("execute webhook: %w", err)
	}

	return &proxy.SendResult{
		WebhookID:    wh.ID,
		WebhookToken: wh.Token,
		MessageID:    msg.ID,
	}, nil
}

// Edit updates a previously proxied message in place.
func (p *ChannelProxy) Edit(ctx context.Context, webhookID, token, messageID string, payload proxy.Payload) error {
	content := truncateContent(payload.Content)
	edit := &discordgo.WebhookEdit{
		Content:         &content,
		AllowedMentions: allowedMentions(payload.Mentions),
	}
	err := p.withRetry(ctx, func() error {
		_, editErr := p.api.WebhookMessageEdit(webhookID, token, messageID, edit)
		return editErr
	})
	if err != nil {
		return fmt.Errorf("edit webhook message: %w", err)
	}
	return nil
}

// Delete removes a previously proxied message.
func (p *ChannelProxy) Delete(ctx context.Context, webhookID, token, messageID string) error {
	err := p.withRetry(ctx, func() error {
		return p.api.WebhookMessageDelete(webhookID, token, messageID)
	})
	if err != nil {
		return fmt.Errorf("delete webhook message: %w", err)
	}
	return nil
}

// withRetry runs op up to maxDispatchAttempts times, sleeping the advised
// interval between rate-limited attempts. Any other error propagates
// immediately.
func (p *ChannelProxy) withRetry(ctx context.Context, op func() error) error {
	wait := defaultRetryAfter
	for attempt := 0; attempt < maxDispatchAttempts; attempt++ {
		if attempt > 0 {
			// Waits happen between attempts only; once the last attempt
			// fails there is nothing left to wait for.
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.sleep(wait)
		}
		err := op()
		if err == nil {
			return nil
		}
		var rle *discordgo.RateLimitError
		if !errors.As(err, &rle) {
			return err
		}
		wait = rle.RetryAfter
		if wait <= 0 {
			wait = defaultRetryAfter
		}
		slog.Debug("webhook dispatch rate limited",
			"attempt", attempt+1, "retry_after", wait)
	}
	return proxy.ErrRetryExhausted
}

// replyStyle fetches the reply target and builds the quote header.
// Returns ok=false when the enrichment cannot be done.
func (p *ChannelProxy) replyStyle(ch *discordgo.Channel, messageID string) (proxy.ReplyStyle, bool) {
	msg, err := p.api.ChannelMessage(ch.ID, messageID)
	if err != nil {
		slog.Debug("reply target fetch failed, sending without reply header",
			"channel_id", ch.ID, "message_id", messageID, "error", err)
		return proxy.ReplyStyle{}, false
	}

	authorID := ""
	if msg.Author != nil {
		authorID = msg.Author.ID
	}
	url := ""
	if ch.GuildID != "" {
		url = fmt.Sprintf("https://discord.com/channels/%s/%s/%s", ch.GuildID, ch.ID, msg.ID)
	}
	style := proxy.BuildReplyStyle(authorID, url, msg.Content, len(msg.Embeds) > 0, len(msg.Attachments) > 0)
	return style, true
}

type bufferedFile struct {
	name        string
	contentType string
	data        []byte
}

// loadAttachments fetches every attachment body into memory up front so
// the bytes survive rate-limit retries. Unfetchable attachments are
// skipped rather than failing the whole send.
func (p *ChannelProxy) loadAttachments(attachments []proxy.Attachment) []bufferedFile {
	var files []bufferedFile
	for _, att := range attachments {
		rc, err := p.openAttachment(att.URL)
		if err != nil {
			slog.Warn("attachment fetch failed, skipping", "name", att.Name, "error", err)
			continue
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			slog.Warn("attachment read failed, skipping", "name", att.Name, "error", err)
			continue
		}
		files = append(files, bufferedFile{name: att.Name, contentType: att.ContentType, data: data})
	}
	return files
}

func webhookFiles(files []bufferedFile) []*discordgo.File {
	if len(files) == 0 {
		return nil
	}
	out := make([]*discordgo.File, 0, len(files))
	for _, f := range files {
		out = append(out, &discordgo.File{
			Name:        f.name,
			ContentType: f.contentType,
			Reader:      bytes.NewReader(f.data),
		})
	}
	return out
}

func openAttachmentHTTP(url string) (io.ReadCloser, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch attachment: status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

func textCapable(ch *discordgo.Channel) bool {
	if ch.GuildID == "" {
		return false
	}
	switch ch.Type {
	case discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews,
		discordgo.ChannelTypeGuildPublicThread, discordgo.ChannelTypeGuildPrivateThread,
		discordgo.ChannelTypeGuildNewsThread:
		return true
	default:
		return false
	}
}

// truncateContent is the dispatch-layer safety net on top of the builder's
// own truncation.
func truncateContent(s string) string {
	if utf8.RuneCountInString(s) <= messageCharLimit {
		return s
	}
	return string([]rune(s)[:messageCharLimit])
}

func allowedMentions(p proxy.MentionPolicy) *discordgo.MessageAllowedMentions {
	m := &discordgo.MessageAllowedMentions{
		Parse:       []discordgo.AllowedMentionType{},
		RepliedUser: p.RepliedUser,
	}
	if p.ParseUsers {
		m.Parse = append(m.Parse, discordgo.AllowedMentionTypeUsers)
	}
	return m
}
