package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kokistudios/mailvox/internal/action"
	"github.com/kokistudios/mailvox/internal/contacts"
	"github.com/kokistudios/mailvox/internal/dialog"
	"github.com/kokistudios/mailvox/internal/intent"
	"github.com/kokistudios/mailvox/internal/llm"
	"github.com/kokistudios/mailvox/internal/mail"
	"github.com/kokistudios/mailvox/internal/mail/mailtest"
	"github.com/kokistudios/mailvox/internal/voice/voicetest"
)

// =============================================================================
// Machine
// =============================================================================

func TestMachine_ValidPath(t *testing.T) {
	m := NewMachine()
	assert.Equal(t, StateIdle, m.State())

	steps := []struct {
		sig  Signal
		want State
	}{
		{SignalSilence, StateIdle},
		{SignalWake, StateAwake},
		{SignalCommand, StateAwake},
		{SignalSilence, StateAwake},
		{SignalThreshold, StateClosing},
		{SignalSlept, StateIdle},
		{SignalWake, StateAwake},
		{SignalShutdown, StateTerminated},
	}
	for _, s := range steps {
		got, err := m.Fire(s.sig)
		require.NoError(t, err, "fire %s", s.sig)
		assert.Equal(t, s.want, got)
	}
}

func TestMachine_InvalidTransitions(t *testing.T) {
	m := NewMachine()
	_, err := m.Fire(SignalCommand)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid transition")
	assert.Equal(t, StateIdle, m.State())

	_, err = m.Fire(SignalSlept)
	assert.Error(t, err)
}

func TestMachine_TerminatedIsFinal(t *testing.T) {
	m := NewMachine()
	_, err := m.Fire(SignalShutdown)
	require.NoError(t, err)

	for _, sig := range []Signal{SignalWake, SignalSilence, SignalSlept, SignalShutdown} {
		_, err := m.Fire(sig)
		assert.Error(t, err, "terminated machine accepted %s", sig)
	}
	assert.Equal(t, StateTerminated, m.State())
}

func TestMachine_ShutdownReachableEverywhere(t *testing.T) {
	for state, edges := range validTransitions {
		assert.Equal(t, StateTerminated, edges[SignalShutdown], "no shutdown edge from %s", state)
	}
}

// =============================================================================
// Classification and policy
// =============================================================================

func TestClassifyUtterance(t *testing.T) {
	v := DefaultVocabulary()
	tests := []struct {
		name  string
		state State
		text  string
		want  Signal
	}{
		{"wake phrase", StateIdle, "Hey Assistant", SignalWake},
		{"idle chatter", StateIdle, "what time is it", SignalSilence},
		{"idle exit phrase is ignored", StateIdle, "go to sleep", SignalSilence},
		{"shutdown while idle", StateIdle, "please shut down", SignalShutdown},
		{"shutdown beats wake", StateIdle, "hey assistant exit", SignalShutdown},
		{"exit while awake", StateAwake, "okay stop", SignalExit},
		{"sleep while awake", StateAwake, "Go to sleep now", SignalExit},
		{"blank while awake", StateAwake, "   ", SignalSilence},
		{"command", StateAwake, "read my latest email", SignalCommand},
		{"shutdown while awake", StateAwake, "shutdown", SignalShutdown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyUtterance(tt.state, tt.text, v))
		})
	}
}

func TestParseSleepPolicy(t *testing.T) {
	p, err := ParseSleepPolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyMisunderstandings, p)

	p, err = ParseSleepPolicy(" Commands ")
	require.NoError(t, err)
	assert.Equal(t, PolicyCommands, p)

	_, err = ParseSleepPolicy("forever")
	assert.Error(t, err)
}

func TestCounter(t *testing.T) {
	c := &Counter{Policy: PolicyMisunderstandings, Threshold: 2}
	assert.False(t, c.Record(false))
	assert.False(t, c.Record(true))
	assert.Equal(t, 0, c.Count())
	assert.False(t, c.Record(false))
	assert.True(t, c.Record(false))

	c = &Counter{Policy: PolicyCommands, Threshold: 2}
	assert.False(t, c.Record(true))
	assert.True(t, c.Record(true))

	c = &Counter{Policy: PolicyCommands}
	for i := 0; i < 10; i++ {
		assert.False(t, c.Record(false))
	}
}

// =============================================================================
// Controller
// =============================================================================

type recorder struct {
	wakes   int
	intents []intent.Kind
	actions []string
	ends    []string
}

func (r *recorder) Wake()                 { r.wakes++ }
func (r *recorder) Intent(k intent.Kind)  { r.intents = append(r.intents, k) }
func (r *recorder) SessionEnd(why string) { r.ends = append(r.ends, why) }
func (r *recorder) Action(k intent.Kind, result string) {
	r.actions = append(r.actions, string(k)+":"+result)
}

type harness struct {
	c      *Controller
	script *voicetest.Script
	box    *mailtest.Mailbox
	rec    *recorder
	polls  int
}

func newHarness(t *testing.T, cfg Config, box *mailtest.Mailbox, replies ...string) *harness {
	t.Helper()
	script := voicetest.New(replies...)
	conv := dialog.New(script.Kit(), dialog.WithAudioDir(t.TempDir()))
	d := action.NewDispatcher(action.Deps{
		Conversation: conv,
		Mail:         box,
		Contacts:     contacts.New(contacts.Contact{Name: "Bob Stone", Email: "bob@example.com"}),
		Improver:     llm.NewImprover(nil),
	})
	h := &harness{script: script, box: box, rec: &recorder{}}
	h.c = NewController(conv, intent.NewResolver(llm.KeywordOracle{}), d, cfg, WithRecorder(h.rec))
	h.c.newID = func() string { return "test" }
	h.c.wake.sleep = func(context.Context, time.Duration) error {
		h.polls++
		return nil
	}
	return h
}

func (h *harness) run(t *testing.T) error {
	t.Helper()
	return h.c.Run(context.Background())
}

func inbox() *mailtest.Mailbox {
	return mailtest.New(mail.Email{ID: "m1", From: "Bob Stone <bob@example.com>", Subject: "Lunch", Body: "See you at noon"})
}

const greeting = "Assistant is loaded. Say hey assistant to wake me up."

func TestRun_ShutdownWhileIdle(t *testing.T) {
	h := newHarness(t, DefaultConfig(), inbox(), "good morning", "exit")

	err := h.run(t)
	assert.ErrorIs(t, err, dialog.ErrShutdown)
	assert.Equal(t, StateTerminated, h.c.State())
	assert.Equal(t, []string{greeting}, h.script.Spoken)
	assert.Equal(t, 1, h.polls)
	assert.Zero(t, h.rec.wakes)
}

func TestRun_HangupIsShutdown(t *testing.T) {
	h := newHarness(t, DefaultConfig(), inbox())
	assert.ErrorIs(t, h.run(t), dialog.ErrShutdown)
	assert.Equal(t, StateTerminated, h.c.State())
}

func TestRun_CommandThenExitPhrase(t *testing.T) {
	h := newHarness(t, DefaultConfig(), inbox(), "hey assistant", "what's the latest", "go to sleep")

	assert.ErrorIs(t, h.run(t), dialog.ErrShutdown)
	assert.Equal(t, []string{
		greeting,
		"Yes, I am listening",
		"Latest email subject is Lunch",
		"Anything else?",
		"Okay. Going back to sleep.",
	}, h.script.Spoken)
	assert.Equal(t, 1, h.rec.wakes)
	assert.Equal(t, []intent.Kind{intent.KindSummarizeLatestEmail}, h.rec.intents)
	assert.Equal(t, []string{"SUMMARIZE_LATEST_EMAIL:ok"}, h.rec.actions)
	assert.Equal(t, []string{"exit phrase"}, h.rec.ends)
}

func TestRun_MisunderstandingsPutAssistantToSleep(t *testing.T) {
	h := newHarness(t, DefaultConfig(), inbox(), "hello assistant", "banana", "")

	assert.ErrorIs(t, h.run(t), dialog.ErrShutdown)
	assert.Equal(t, []string{
		greeting,
		"Yes, I am listening",
		"Sorry, I did not understand",
		"Anything else?",
		"Sorry, I did not understand",
		"I am going back to sleep.",
	}, h.script.Spoken)
	assert.Equal(t, []string{"misunderstandings limit"}, h.rec.ends)
}

func TestRun_UnderstoodCommandResetsCount(t *testing.T) {
	h := newHarness(t, DefaultConfig(), inbox(),
		"hey assistant", "banana", "what's the latest", "banana", "stop")

	assert.ErrorIs(t, h.run(t), dialog.ErrShutdown)
	assert.False(t, h.script.Said("I am going back to sleep."))
	assert.Equal(t, "Okay. Going back to sleep.", h.script.Last())
}

func TestRun_CommandsPolicyCountsEverything(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Policy = PolicyCommands
	h := newHarness(t, cfg, inbox(), "hey assistant", "what's the latest", "what's the latest")

	assert.ErrorIs(t, h.run(t), dialog.ErrShutdown)
	assert.Equal(t, "I am going back to sleep.", h.script.Last())
	assert.Equal(t, []string{"commands limit"}, h.rec.ends)
}

func TestRun_ShutdownInsideActionSkipsFollowUp(t *testing.T) {
	h := newHarness(t, DefaultConfig(), inbox(), "hey assistant", "send an email to bob", "shut down")

	assert.ErrorIs(t, h.run(t), dialog.ErrShutdown)
	assert.Equal(t, StateTerminated, h.c.State())
	assert.False(t, h.script.Said("Anything else?"))
	assert.Empty(t, h.box.Sent)
	assert.Empty(t, h.rec.ends)
}

func TestRun_CancelIntentEndsSession(t *testing.T) {
	h := newHarness(t, DefaultConfig(), inbox(), "hey assistant", "never mind", "hey assistant", "go to sleep")

	assert.ErrorIs(t, h.run(t), dialog.ErrShutdown)
	assert.Equal(t, []string{
		greeting,
		"Yes, I am listening",
		"Okay. Going back to sleep.",
		"Yes, I am listening",
		"Okay. Going back to sleep.",
	}, h.script.Spoken)
	assert.Equal(t, 2, h.rec.wakes)
	assert.Equal(t, []string{"cancelled", "exit phrase"}, h.rec.ends)
}

func TestRun_MailboxFailureKeepsSessionAlive(t *testing.T) {
	box := inbox()
	box.Err = errors.New("connection reset")
	h := newHarness(t, DefaultConfig(), box, "hey assistant", "what's the latest", "go to sleep")

	assert.ErrorIs(t, h.run(t), dialog.ErrShutdown)
	assert.True(t, h.script.Said("Sorry, something went wrong with your mailbox"))
	assert.True(t, h.script.Said("Anything else?"))
	assert.Equal(t, []string{"SUMMARIZE_LATEST_EMAIL:error"}, h.rec.actions)
}

func TestRun_ContextCancelled(t *testing.T) {
	h := newHarness(t, DefaultConfig(), inbox(), "hey assistant")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := h.c.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, h.script.Remaining())
}

func TestGreetingUsesFirstWakePhrase(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Vocabulary.Wake = []string{"computer"}
	h := newHarness(t, cfg, inbox())
	assert.Equal(t, "Assistant is loaded. Say computer to wake me up.", h.c.Greeting())
}

func TestWakeDetector_UsesWakeWindow(t *testing.T) {
	script := voicetest.New("", "hey assistant")
	conv := dialog.New(script.Kit(), dialog.WithAudioDir(t.TempDir()))
	w := NewWakeDetector(conv, DefaultVocabulary(), 0)
	w.sleep = func(context.Context, time.Duration) error { return nil }

	require.NoError(t, w.Await(context.Background()))
	require.Len(t, script.Captures, 2)
	assert.Equal(t, conv.Timing().Wake, script.Captures[0].Duration)
	assert.Equal(t, DefaultIdlePoll, w.poll)
}
