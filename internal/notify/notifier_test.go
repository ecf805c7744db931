package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/snipebot/internal/config"
)

type fakeSender struct {
	name  string
	err   error
	calls []string
}

func (f *fakeSender) Send(_ context.Context, title, _ string) error {
	f.calls = append(f.calls, title)
	return f.err
}

func (f *fakeSender) Name() string { return f.name }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifyFiltersEvents(t *testing.T) {
	s := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{s}, []string{EventSafetyTripped}, discardLogger())

	require.NoError(t, n.Notify(context.Background(), EventPositionOpened, "Opened", "body"))
	assert.Empty(t, s.calls)

	require.NoError(t, n.Notify(context.Background(), EventSafetyTripped, "Tripped", "body"))
	assert.Equal(t, []string{"Tripped"}, s.calls)
}

func TestNotifyEmptyFilterAllowsEverything(t *testing.T) {
	s := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{s}, nil, discardLogger())

	require.NoError(t, n.Notify(context.Background(), EventError, "Err", "body"))
	assert.Len(t, s.calls, 1)
}

func TestNotifyAllBypassesFilter(t *testing.T) {
	s := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{s}, []string{EventSafetyTripped}, discardLogger())

	require.NoError(t, n.NotifyAll(context.Background(), "Manual", "body"))
	assert.Equal(t, []string{"Manual"}, s.calls)
}

func TestDispatchCollectsSenderErrors(t *testing.T) {
	bad := &fakeSender{name: "bad", err: errors.New("boom")}
	good := &fakeSender{name: "good"}
	n := NewNotifier([]Sender{bad, good}, nil, discardLogger())

	err := n.Notify(context.Background(), EventError, "T", "body")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad: boom")
	// The failing sender does not block the healthy one.
	assert.Len(t, good.calls, 1)
}

func TestNotifierNoSendersIsNoop(t *testing.T) {
	n := NewNotifier(nil, nil, discardLogger())
	require.NoError(t, n.Notify(context.Background(), EventError, "T", "body"))
}

func TestFromConfigBuildsConfiguredChannels(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.NotifyConfig
		want int
	}{
		{"none", config.NotifyConfig{}, 0},
		{"telegram only", config.NotifyConfig{TelegramToken: "tok", TelegramChatID: "42"}, 1},
		{"telegram missing chat id", config.NotifyConfig{TelegramToken: "tok"}, 0},
		{"discord only", config.NotifyConfig{DiscordWebhookURL: "https://discord.test/hook"}, 1},
		{"both", config.NotifyConfig{
			TelegramToken:     "tok",
			TelegramChatID:    "42",
			DiscordWebhookURL: "https://discord.test/hook",
		}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := FromConfig(tt.cfg, discardLogger())
			assert.Len(t, n.senders, tt.want)
		})
	}
}
