package proxy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nextlevelbuilder/formrelay/internal/store"
)

// SendResult carries the identifiers returned by a successful dispatch,
// needed for persistence and later edit/delete.
type SendResult struct {
	WebhookID    string
	WebhookToken string
	MessageID    string
}

// ReplyRef points at the message a proxied message replies to.
type ReplyRef struct {
	MessageID string
}

// ChannelProxy delivers a built payload to a channel under the payload's
// identity. Implementations own webhook caching and rate-limit retry.
// When reply is non-nil the implementation fetches the target message
// best-effort and prepends reply styling; a failed fetch degrades to a
// plain send rather than failing.
type ChannelProxy interface {
	Send(ctx context.Context, channelID string, payload Payload, reply *ReplyRef) (*SendResult, error)
	Edit(ctx context.Context, webhookID, token, messageID string, payload Payload) error
	Delete(ctx context.Context, webhookID, token, messageID string) error
}

// Request is one proxy transaction: re-send Body in ChannelID under the
// form's identity on behalf of UserID.
type Request struct {
	UserID      string
	FormID      string
	GuildID     string
	ChannelID   string
	Body        string
	Attachments []Attachment
	ReplyTo     *ReplyRef
}

// PermissionChecker answers whether a user may proxy into a channel.
type PermissionChecker interface {
	CanProxy(ctx context.Context, userID, channelID string, hasAttachments bool) (bool, error)
}

// Coordinator orchestrates a proxy transaction end to end: resolve form,
// check permissions, build payload, dispatch, persist the delivery record.
type Coordinator struct {
	forms   store.FormStore
	proxied store.ProxiedStore
	channel ChannelProxy
	perms   PermissionChecker // nil skips the ACL gate
	tracer  trace.Tracer
}

func NewCoordinator(forms store.FormStore, proxied store.ProxiedStore, channel ChannelProxy, perms PermissionChecker) *Coordinator {
	return &Coordinator{
		forms:   forms,
		proxied: proxied,
		channel: channel,
		perms:   perms,
		tracer:  otel.Tracer("formrelay/proxy"),
	}
}

// Proxy runs one transaction. Failure before dispatch leaves no trace;
// dispatch failure leaves no delivery record. A record-insert failure
// after a delivered message propagates (the send is not undone).
func (c *Coordinator) Proxy(ctx context.Context, req Request) (*SendResult, error) {
	ctx, span := c.tracer.Start(ctx, "proxy.send", trace.WithAttributes(
		attribute.String("form.id", req.FormID),
		attribute.String("channel.id", req.ChannelID),
	))
	defer span.End()

	form, err := c.forms.GetByID(ctx, req.FormID)
	if err != nil {
		span.SetStatus(codes.Error, "form lookup failed")
		return nil, fmt.Errorf("resolve form %s: %w", req.FormID, err)
	}

	if c.perms != nil {
		allowed, permErr := c.perms.CanProxy(ctx, req.UserID, req.ChannelID, len(req.Attachments) > 0)
		if permErr != nil {
			span.SetStatus(codes.Error, "permission check failed")
			return nil, fmt.Errorf("check channel permissions: %w", permErr)
		}
		if !allowed {
			span.SetStatus(codes.Error, "permission denied")
			return nil, ErrPermissionDenied
		}
	}

	payload := BuildMessage(form, req.Body, req.Attachments)

	res, err := c.channel.Send(ctx, req.ChannelID, payload, req.ReplyTo)
	if err != nil {
		span.SetStatus(codes.Error, "dispatch failed")
		return nil, fmt.Errorf("dispatch proxy message: %w", err)
	}

	rec := &store.ProxiedMessage{
		ID:           uuid.Must(uuid.NewV7()).String(),
		UserID:       req.UserID,
		FormID:       req.FormID,
		GuildID:      req.GuildID,
		ChannelID:    req.ChannelID,
		WebhookID:    res.WebhookID,
		WebhookToken: res.WebhookToken,
		MessageID:    res.MessageID,
	}
	if _, err := c.proxied.Insert(ctx, rec); err != nil {
		// The message is already out; surface the gap instead of hiding it.
		slog.Error("proxied message delivered but audit record insert failed",
			"user_id", req.UserID,
			"form_id", req.FormID,
			"message_id", res.MessageID,
			"error", err,
		)
		span.SetStatus(codes.Error, "record insert failed")
		return nil, fmt.Errorf("persist delivery record: %w", err)
	}

	slog.Info("message proxied",
		"user_id", req.UserID,
		"form_id", req.FormID,
		"guild_id", req.GuildID,
		"channel_id", req.ChannelID,
		"message_id", res.MessageID,
	)
	return res, nil
}
