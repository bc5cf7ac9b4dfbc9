package proxy

import "errors"

var (
	// ErrInvalidChannel means the target channel cannot receive proxied
	// messages (not a guild text channel).
	ErrInvalidChannel = errors.New("channel cannot receive proxied messages")

	// ErrRetryExhausted is returned after the bounded rate-limit retry
	// budget is used up without a successful dispatch.
	ErrRetryExhausted = errors.New("retry budget exhausted for channel dispatch")

	// ErrPermissionDenied means the acting user may not send (or attach
	// files) in the target channel.
	ErrPermissionDenied = errors.New("user lacks permission to proxy in channel")
)
