package discord

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/nextlevelbuilder/formrelay/internal/proxy"
)

// fakeAPI implements webhookAPI with programmable responses and call
// counters.
type fakeAPI struct {
	channel    *discordgo.Channel
	channelErr error

	message    *discordgo.Message
	messageErr error

	hooks    []*discordgo.Webhook
	hooksErr error

	createCalls int
	createErr   error

	executeCalls  int
	executeErrs   []error // consumed per call; nil past the end means success
	lastParams    *discordgo.WebhookParams
	executeResult *discordgo.Message
	fileReads     [][]string // file bytes drained per execute call

	editCalls   int
	deleteCalls int
	deleteErr   error
}

func (f *fakeAPI) Channel(channelID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	if f.channelErr != nil {
		return nil, f.channelErr
	}
	return f.channel, nil
}

func (f *fakeAPI) ChannelMessage(channelID, messageID string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	if f.messageErr != nil {
		return nil, f.messageErr
	}
	return f.message, nil
}

func (f *fakeAPI) ChannelWebhooks(channelID string, _ ...discordgo.RequestOption) ([]*discordgo.Webhook, error) {
	if f.hooksErr != nil {
		return nil, f.hooksErr
	}
	return f.hooks, nil
}

func (f *fakeAPI) WebhookCreate(channelID, name, avatar string, _ ...discordgo.RequestOption) (*discordgo.Webhook, error) {
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &discordgo.Webhook{
		ID:        fmt.Sprintf("wh-%s-%d", channelID, f.createCalls),
		Token:     "token",
		Name:      name,
		ChannelID: channelID,
	}, nil
}

func (f *fakeAPI) WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	call := f.executeCalls
	f.executeCalls++
	f.lastParams = data
	// Drain the file readers the way the real multipart encoder does.
	contents := []string{}
	for _, file := range data.Files {
		b, _ := io.ReadAll(file.Reader)
		contents = append(contents, string(b))
	}
	f.fileReads = append(f.fileReads, contents)
	if call < len(f.executeErrs) && f.executeErrs[call] != nil {
		return nil, f.executeErrs[call]
	}
	if f.executeResult != nil {
		return f.executeResult, nil
	}
	return &discordgo.Message{ID: "msg-1"}, nil
}

func (f *fakeAPI) WebhookMessageEdit(webhookID, token, messageID string, data *discordgo.WebhookEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.editCalls++
	return &discordgo.Message{ID: messageID}, nil
}

func (f *fakeAPI) WebhookMessageDelete(webhookID, token, messageID string, _ ...discordgo.RequestOption) error {
	f.deleteCalls++
	return f.deleteErr
}

func guildChannel() *discordgo.Channel {
	return &discordgo.Channel{
		ID:      "chan-1",
		GuildID: "guild-1",
		Type:    discordgo.ChannelTypeGuildText,
	}
}

func newTestProxy(api *fakeAPI) (*ChannelProxy, *[]time.Duration) {
	p := NewChannelProxy(api, NewWebhookRegistry(api))
	sleeps := &[]time.Duration{}
	p.sleep = func(d time.Duration) { *sleeps = append(*sleeps, d) }
	p.openAttachment = func(url string) (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader("data")), nil
	}
	return p, sleeps
}

func rateLimited(after time.Duration) error {
	return &discordgo.RateLimitError{
		RateLimit: &discordgo.RateLimit{
			TooManyRequests: &discordgo.TooManyRequests{RetryAfter: after},
			URL:             "https://discord.com/api/webhooks",
		},
	}
}

func TestSendDeliversPayload(t *testing.T) {
	api := &fakeAPI{channel: guildChannel()}
	p, _ := newTestProxy(api)

	res, err := p.Send(context.Background(), "chan-1", proxy.Payload{
		Username: "Naia",
		Content:  "hello there",
		Mentions: proxy.DefaultMentions,
	}, nil)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.MessageID != "msg-1" {
		t.Errorf("message id = %q, want msg-1", res.MessageID)
	}
	if res.WebhookID == "" || res.WebhookToken == "" {
		t.Errorf("result missing webhook identity: %+v", res)
	}
	if api.lastParams.Username != "Naia" {
		t.Errorf("username = %q, want Naia", api.lastParams.Username)
	}
	if api.lastParams.Content != "hello there" {
		t.Errorf("content = %q", api.lastParams.Content)
	}
}

func TestSendRejectsNonTextChannel(t *testing.T) {
	api := &fakeAPI{channel: &discordgo.Channel{ID: "dm-1", Type: discordgo.ChannelTypeDM}}
	p, _ := newTestProxy(api)

	_, err := p.Send(context.Background(), "dm-1", proxy.Payload{Content: "x"}, nil)
	if !errors.Is(err, proxy.ErrInvalidChannel) {
		t.Fatalf("err = %v, want ErrInvalidChannel", err)
	}
	if api.executeCalls != 0 {
		t.Errorf("execute calls = %d, want 0", api.executeCalls)
	}
}

func TestSendRetryExhausted(t *testing.T) {
	api := &fakeAPI{
		channel: guildChannel(),
		executeErrs: []error{
			rateLimited(10 * time.Millisecond),
			rateLimited(10 * time.Millisecond),
			rateLimited(10 * time.Millisecond),
		},
	}
	p, sleeps := newTestProxy(api)

	_, err := p.Send(context.Background(), "chan-1", proxy.Payload{Content: "x"}, nil)
	if !errors.Is(err, proxy.ErrRetryExhausted) {
		t.Fatalf("err = %v, want ErrRetryExhausted", err)
	}
	if api.executeCalls != maxDispatchAttempts {
		t.Errorf("execute calls = %d, want %d", api.executeCalls, maxDispatchAttempts)
	}
	// Waits happen between attempts, not after the last failure.
	if len(*sleeps) != maxDispatchAttempts-1 {
		t.Errorf("sleeps = %d, want %d", len(*sleeps), maxDispatchAttempts-1)
	}
}

func TestSendRecoversAfterRateLimit(t *testing.T) {
	advised := 25 * time.Millisecond
	api := &fakeAPI{
		channel:     guildChannel(),
		executeErrs: []error{rateLimited(advised)},
	}
	p, sleeps := newTestProxy(api)

	res, err := p.Send(context.Background(), "chan-1", proxy.Payload{Content: "x"}, nil)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.MessageID != "msg-1" {
		t.Errorf("message id = %q", res.MessageID)
	}
	if api.executeCalls != 2 {
		t.Errorf("execute calls = %d, want 2", api.executeCalls)
	}
	if len(*sleeps) != 1 || (*sleeps)[0] != advised {
		t.Errorf("sleeps = %v, want one sleep of %v", *sleeps, advised)
	}
}

func TestSendDefaultRetryDelay(t *testing.T) {
	api := &fakeAPI{
		channel:     guildChannel(),
		executeErrs: []error{rateLimited(0)},
	}
	p, sleeps := newTestProxy(api)

	if _, err := p.Send(context.Background(), "chan-1", proxy.Payload{Content: "x"}, nil); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(*sleeps) != 1 || (*sleeps)[0] != defaultRetryAfter {
		t.Errorf("sleeps = %v, want one sleep of %v", *sleeps, defaultRetryAfter)
	}
}

func TestSendNonRateLimitErrorFailsFast(t *testing.T) {
	api := &fakeAPI{
		channel:     guildChannel(),
		executeErrs: []error{errors.New("webhook gone")},
	}
	p, sleeps := newTestProxy(api)

	_, err := p.Send(context.Background(), "chan-1", proxy.Payload{Content: "x"}, nil)
	if err == nil || errors.Is(err, proxy.ErrRetryExhausted) {
		t.Fatalf("err = %v, want immediate non-retry failure", err)
	}
	if api.executeCalls != 1 {
		t.Errorf("execute calls = %d, want 1", api.executeCalls)
	}
	if len(*sleeps) != 0 {
		t.Errorf("sleeps = %v, want none", *sleeps)
	}
}

func TestSendReplyHeaderPrepended(t *testing.T) {
	api := &fakeAPI{
		channel: guildChannel(),
		message: &discordgo.Message{
			ID:      "target-1",
			Author:  &discordgo.User{ID: "user-9"},
			Content: "original words",
		},
	}
	p, _ := newTestProxy(api)

	_, err := p.Send(context.Background(), "chan-1", proxy.Payload{
		Content:  "a reply",
		Mentions: proxy.DefaultMentions,
	}, &proxy.ReplyRef{MessageID: "target-1"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	content := api.lastParams.Content
	if !strings.Contains(content, "<@user-9>") {
		t.Errorf("content missing reply mention: %q", content)
	}
	if !strings.Contains(content, "https://discord.com/channels/guild-1/chan-1/target-1") {
		t.Errorf("content missing jump link: %q", content)
	}
	if !strings.HasSuffix(content, "a reply") {
		t.Errorf("content does not end with body: %q", content)
	}
}

func TestSendReplyFetchFailureDegrades(t *testing.T) {
	api := &fakeAPI{
		channel:    guildChannel(),
		messageErr: errors.New("unknown message"),
	}
	p, _ := newTestProxy(api)

	_, err := p.Send(context.Background(), "chan-1", proxy.Payload{
		Content:  "a reply",
		Mentions: proxy.DefaultMentions,
	}, &proxy.ReplyRef{MessageID: "target-1"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if api.lastParams.Content != "a reply" {
		t.Errorf("content = %q, want plain body", api.lastParams.Content)
	}
}

func TestSendTruncatesOversizedContent(t *testing.T) {
	api := &fakeAPI{channel: guildChannel()}
	p, _ := newTestProxy(api)

	if _, err := p.Send(context.Background(), "chan-1", proxy.Payload{
		Content: strings.Repeat("é", messageCharLimit+50),
	}, nil); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got := len([]rune(api.lastParams.Content)); got != messageCharLimit {
		t.Errorf("content runes = %d, want %d", got, messageCharLimit)
	}
}

func TestSendSkipsUnfetchableAttachments(t *testing.T) {
	api := &fakeAPI{channel: guildChannel()}
	p, _ := newTestProxy(api)
	p.openAttachment = func(url string) (io.ReadCloser, error) {
		if strings.Contains(url, "bad") {
			return nil, errors.New("status 404")
		}
		return io.NopCloser(strings.NewReader("data")), nil
	}

	if _, err := p.Send(context.Background(), "chan-1", proxy.Payload{
		Content: "with files",
		Attachments: []proxy.Attachment{
			{Name: "a.png", URL: "https://cdn/good/a.png"},
			{Name: "b.png", URL: "https://cdn/bad/b.png"},
		},
	}, nil); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(api.lastParams.Files) != 1 {
		t.Fatalf("files = %d, want 1", len(api.lastParams.Files))
	}
	if api.lastParams.Files[0].Name != "a.png" {
		t.Errorf("file name = %q, want a.png", api.lastParams.Files[0].Name)
	}
}

type closeRecorder struct {
	*strings.Reader
	closed *bool
}

func (c *closeRecorder) Close() error {
	*c.closed = true
	return nil
}

func TestSendRetriedAttachmentsKeepBytes(t *testing.T) {
	api := &fakeAPI{
		channel:     guildChannel(),
		executeErrs: []error{rateLimited(5 * time.Millisecond)},
	}
	p, _ := newTestProxy(api)
	closed := false
	p.openAttachment = func(url string) (io.ReadCloser, error) {
		return &closeRecorder{Reader: strings.NewReader("payload-bytes"), closed: &closed}, nil
	}

	if _, err := p.Send(context.Background(), "chan-1", proxy.Payload{
		Content:     "with file",
		Attachments: []proxy.Attachment{{Name: "a.png", URL: "https://cdn/a.png"}},
	}, nil); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if api.executeCalls != 2 {
		t.Fatalf("execute calls = %d, want 2", api.executeCalls)
	}
	for call, files := range api.fileReads {
		if len(files) != 1 || files[0] != "payload-bytes" {
			t.Errorf("attempt %d file bytes = %q, want full payload", call+1, files)
		}
	}
	if !closed {
		t.Error("attachment body was not closed")
	}
}

func TestDeleteRetries(t *testing.T) {
	api := &fakeAPI{channel: guildChannel(), deleteErr: rateLimited(time.Millisecond)}
	p, sleeps := newTestProxy(api)

	err := p.Delete(context.Background(), "wh-1", "token", "msg-1")
	if !errors.Is(err, proxy.ErrRetryExhausted) {
		t.Fatalf("err = %v, want ErrRetryExhausted", err)
	}
	if api.deleteCalls != maxDispatchAttempts {
		t.Errorf("delete calls = %d, want %d", api.deleteCalls, maxDispatchAttempts)
	}
	if len(*sleeps) != maxDispatchAttempts-1 {
		t.Errorf("sleeps = %d, want %d", len(*sleeps), maxDispatchAttempts-1)
	}
}
