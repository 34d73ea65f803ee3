package main

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kokistudios/mailvox/internal/store"
	"github.com/kokistudios/mailvox/internal/ui"
	"github.com/kokistudios/mailvox/internal/voice/voicetest"
)

func TestVocabMarkdownListsPhrasesAndIntents(t *testing.T) {
	md := vocabMarkdown(store.DefaultConfig())
	assert.Contains(t, md, `- "hey assistant"`)
	assert.Contains(t, md, `- "go to sleep"`)
	assert.Contains(t, md, "`READ_UNREAD_EMAILS`")
	assert.NotContains(t, md, "`UNKNOWN`")
	assert.Contains(t, md, "After 2 misunderstood commands in a row")
}

func TestConversationFromConfig(t *testing.T) {
	home := filepath.Join(t.TempDir(), ".mailvox")
	require.NoError(t, store.Init(home, false))
	s, err := store.Load(home)
	require.NoError(t, err)
	require.NoError(t, s.SetConfigValue("dialog.command_seconds", "7"))

	conv, err := conversation(s, voicetest.New().Kit())
	require.NoError(t, err)
	assert.Equal(t, 7*time.Second, conv.Timing().Command)
	assert.Equal(t, 3*time.Second, conv.Timing().Wake)

	s.Config.Dialog.ConfirmScope = "maybe"
	_, err = conversation(s, voicetest.New().Kit())
	assert.Error(t, err)
}

func TestVoiceKitModes(t *testing.T) {
	s := &store.Store{Home: t.TempDir(), Config: store.DefaultConfig()}
	kit, err := voiceKit(s, true)
	require.NoError(t, err)
	assert.NotNil(t, kit.Transcriber)
}

func TestIssueSummaryCountsBySeverity(t *testing.T) {
	ui.Init(true, false)
	defer ui.Init(false, false)

	line, hasError := issueSummary([]store.Issue{
		{Severity: "warning", Message: "no token"},
		{Severity: "error", Message: "bad yaml"},
		{Severity: "warning", Message: "no credentials"},
	})
	assert.True(t, hasError)
	assert.Contains(t, line, "1 error, 2 warnings")
	assert.Contains(t, line, "doctor --fix")

	line, hasError = issueSummary([]store.Issue{{Severity: "warning", Message: "no token"}})
	assert.False(t, hasError)
	assert.Contains(t, line, "0 errors, 1 warning")
}
