package main

import (
	"context"
	"fmt"
	"time"

	"github.com/kokistudios/mailvox/internal/action"
	"github.com/kokistudios/mailvox/internal/contacts"
	"github.com/kokistudios/mailvox/internal/dialog"
	"github.com/kokistudios/mailvox/internal/intent"
	"github.com/kokistudios/mailvox/internal/llm"
	"github.com/kokistudios/mailvox/internal/mail/gmail"
	"github.com/kokistudios/mailvox/internal/session"
	"github.com/kokistudios/mailvox/internal/store"
	"github.com/kokistudios/mailvox/internal/voice"
)

func loadStore() (*store.Store, error) {
	return store.Load(store.Home())
}

func openMailbox(ctx context.Context, s *store.Store) (*gmail.Client, error) {
	if s.Config.Mail.Provider != "gmail" {
		return nil, fmt.Errorf("unsupported mail provider: %s", s.Config.Mail.Provider)
	}
	cfg, err := gmail.LoadConfig(s.CredentialsPath())
	if err != nil {
		return nil, err
	}
	hc, err := gmail.HTTPClient(ctx, cfg, s.TokenPath())
	if err != nil {
		return nil, fmt.Errorf("%w (run 'mailvox auth')", err)
	}
	return gmail.New(ctx, hc, s.Config.Mail.User)
}

func openBackend(ctx context.Context, s *store.Store) (llm.Backend, error) {
	return llm.New(ctx, llm.Config{
		Provider:  s.Config.LLM.Provider,
		Model:     s.Config.LLM.Model,
		BaseURL:   s.Config.LLM.BaseURL,
		APIKeyEnv: s.Config.LLM.APIKeyEnv,
	})
}

func voiceKit(s *store.Store, console bool) (voice.Kit, error) {
	mode := "device"
	if console {
		mode = "console"
	}
	return voice.New(mode, voice.Config{
		CaptureCommand: s.Config.Audio.Command,
		SampleRate:     s.Config.Audio.SampleRate,
		STTCommand:     s.Config.STT.Command,
		STTModel:       s.Config.STT.Model,
		Language:       s.Config.STT.Language,
		TTSCommand:     s.Config.TTS.Command,
	})
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

// conversation builds the dialog layer from config.yaml.
func conversation(s *store.Store, kit voice.Kit) (*dialog.Conversation, error) {
	scope, err := dialog.ParseScope(s.Config.Dialog.ConfirmScope)
	if err != nil {
		return nil, err
	}
	c := s.Config
	return dialog.New(kit,
		dialog.WithShutdown(c.Vocabulary.Shutdown),
		dialog.WithKeywords(dialog.Keywords{Affirmative: c.Vocabulary.Affirmative, Scope: scope}),
		dialog.WithTiming(dialog.Timing{
			Wake:    seconds(c.Dialog.WakeSeconds),
			Command: seconds(c.Dialog.CommandSeconds),
			Body:    seconds(c.Dialog.BodySeconds),
		}),
		dialog.WithAudioDir(s.AudioDir()),
	), nil
}

// assemble wires every layer of the assistant for listen.
func assemble(ctx context.Context, s *store.Store, console bool, rec session.Recorder) (*session.Controller, error) {
	kit, err := voiceKit(s, console)
	if err != nil {
		return nil, err
	}
	conv, err := conversation(s, kit)
	if err != nil {
		return nil, err
	}
	backend, err := openBackend(ctx, s)
	if err != nil {
		return nil, err
	}
	box, err := openMailbox(ctx, s)
	if err != nil {
		return nil, err
	}
	dir, err := contacts.Load(s.ContactsPath())
	if err != nil {
		return nil, err
	}
	policy, err := session.ParseSleepPolicy(s.Config.Session.SleepPolicy)
	if err != nil {
		return nil, err
	}

	c := s.Config
	dispatcher := action.NewDispatcher(action.Deps{
		Conversation: conv,
		Mail:         box,
		Contacts:     dir,
		Improver:     backend.Improver,
		Limits: action.Limits{
			Unread:         c.Dialog.UnreadLimit,
			Sender:         c.Dialog.SenderLimit,
			BulkDelete:     c.Dialog.BulkDeleteLimit,
			DefaultSubject: c.Dialog.DefaultSubject,
		},
	})
	cfg := session.Config{
		Vocabulary: session.Vocabulary{
			Wake:     c.Vocabulary.Wake,
			Exit:     c.Vocabulary.Exit,
			Shutdown: c.Vocabulary.Shutdown,
		},
		Policy:    policy,
		Threshold: c.Session.SleepThreshold,
		IdlePoll:  time.Duration(c.Session.IdlePollMS) * time.Millisecond,
	}
	return session.NewController(conv, intent.NewResolver(backend.Oracle), dispatcher, cfg, session.WithRecorder(rec)), nil
}
