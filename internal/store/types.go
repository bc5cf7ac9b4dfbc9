package store

import "time"

// AliasKind distinguishes how a trigger is matched against message text.
type AliasKind string

const (
	// KindPrefix triggers match by literal-prefix comparison against the
	// start of the message ("n:text").
	KindPrefix AliasKind = "prefix"
	// KindPattern triggers match by a fixed prefix/suffix wrapping a
	// captured body ("{text}").
	KindPattern AliasKind = "pattern"
)

// Form is a named sender identity a user proxies messages as.
type Form struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	AvatarURL string    `json:"avatarUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Alias is a trigger string bound to exactly one form. UserID is
// denormalized so per-user lookup and uniqueness don't need a join.
type Alias struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	FormID      string    `json:"formId"`
	TriggerRaw  string    `json:"triggerRaw"`
	TriggerNorm string    `json:"triggerNorm"`
	Kind        AliasKind `json:"kind"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ProxiedMessage is the audit record linking an externally sent webhook
// message back to the real acting user and the form used. Written once per
// successful dispatch, never mutated.
type ProxiedMessage struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	FormID       string    `json:"formId"`
	GuildID      string    `json:"guildId"`
	ChannelID    string    `json:"channelId"`
	WebhookID    string    `json:"webhookId"`
	WebhookToken string    `json:"webhookToken"`
	MessageID    string    `json:"messageId"`
	CreatedAt    time.Time `json:"createdAt"`
}
