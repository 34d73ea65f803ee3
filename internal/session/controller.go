package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kokistudios/mailvox/internal/action"
	"github.com/kokistudios/mailvox/internal/dialog"
	"github.com/kokistudios/mailvox/internal/intent"
	"github.com/kokistudios/mailvox/internal/ui"
)

// Resolver turns an utterance into an intent.
type Resolver interface {
	Resolve(ctx context.Context, utterance string) intent.Intent
}

// Dispatcher executes an intent.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd action.Command) (action.Outcome, error)
}

// Recorder receives lifecycle events. The metrics package implements it.
type Recorder interface {
	Wake()
	Intent(kind intent.Kind)
	Action(kind intent.Kind, result string)
	SessionEnd(reason string)
}

type nopRecorder struct{}

func (nopRecorder) Wake()                      {}
func (nopRecorder) Intent(intent.Kind)         {}
func (nopRecorder) Action(intent.Kind, string) {}
func (nopRecorder) SessionEnd(string)          {}

// Config tunes the controller.
type Config struct {
	Vocabulary Vocabulary
	Policy     SleepPolicy
	Threshold  int
	IdlePoll   time.Duration
}

// DefaultConfig mirrors the shipped config.yaml defaults.
func DefaultConfig() Config {
	return Config{
		Vocabulary: DefaultVocabulary(),
		Policy:     PolicyMisunderstandings,
		Threshold:  2,
		IdlePoll:   DefaultIdlePoll,
	}
}

// Option configures a Controller.
type Option func(*Controller)

// WithRecorder reports lifecycle events to r.
func WithRecorder(r Recorder) Option {
	return func(c *Controller) {
		if r != nil {
			c.rec = r
		}
	}
}

// Controller owns the idle/awake lifecycle.
type Controller struct {
	conv     *dialog.Conversation
	resolver Resolver
	dispatch Dispatcher
	cfg      Config
	wake     *WakeDetector
	machine  *Machine
	rec      Recorder
	newID    func() string
}

func NewController(conv *dialog.Conversation, r Resolver, d Dispatcher, cfg Config, opts ...Option) *Controller {
	if cfg.Policy == "" {
		cfg.Policy = PolicyMisunderstandings
	}
	c := &Controller{
		conv:     conv,
		resolver: r,
		dispatch: d,
		cfg:      cfg,
		wake:     NewWakeDetector(conv, cfg.Vocabulary, cfg.IdlePoll),
		machine:  NewMachine(),
		rec:      nopRecorder{},
		newID:    func() string { return uuid.NewString()[:8] },
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// State reports the lifecycle state.
func (c *Controller) State() State { return c.machine.State() }

// Greeting is spoken once at startup.
func (c *Controller) Greeting() string {
	phrase := "hey assistant"
	if len(c.cfg.Vocabulary.Wake) > 0 {
		phrase = c.cfg.Vocabulary.Wake[0]
	}
	return fmt.Sprintf("Assistant is loaded. Say %s to wake me up.", phrase)
}

// Run alternates idle wake detection and awake sessions until a shutdown
// phrase is heard or ctx ends. A shutdown returns dialog.ErrShutdown.
func (c *Controller) Run(ctx context.Context) error {
	c.conv.Say(ctx, c.Greeting())
	for {
		err := c.wake.Await(ctx)
		if errors.Is(err, dialog.ErrShutdown) {
			return c.terminate()
		}
		if err != nil {
			return err
		}
		if _, err := c.machine.Fire(SignalWake); err != nil {
			return err
		}
		if err := c.session(ctx); err != nil {
			if errors.Is(err, dialog.ErrShutdown) {
				return c.terminate()
			}
			return err
		}
		if _, err := c.machine.Fire(SignalSlept); err != nil {
			return err
		}
	}
}

func (c *Controller) terminate() error {
	if _, err := c.machine.Fire(SignalShutdown); err != nil {
		ui.Logger.Debug("shutdown transition", "err", err)
	}
	return dialog.ErrShutdown
}

// session runs one awake conversation and leaves the machine in Closing.
func (c *Controller) session(ctx context.Context) error {
	id := c.newID()
	ui.SessionBanner(id)
	c.rec.Wake()
	c.conv.Say(ctx, "Yes, I am listening")

	counter := &Counter{Policy: c.cfg.Policy, Threshold: c.cfg.Threshold}
	end := func(sig Signal, reason string) error {
		if _, err := c.machine.Fire(sig); err != nil {
			return err
		}
		ui.SessionEnd(id, reason)
		c.rec.SessionEnd(reason)
		return nil
	}

	for {
		text, err := c.conv.Listen(ctx, dialog.ClipCommand, c.conv.Timing().Command)
		if err != nil {
			return err
		}

		understood := true
		switch ClassifyUtterance(StateAwake, text, c.cfg.Vocabulary) {
		case SignalShutdown:
			return dialog.ErrShutdown
		case SignalExit:
			c.conv.Say(ctx, "Okay. Going back to sleep.")
			return end(SignalExit, "exit phrase")
		case SignalSilence:
			c.conv.Say(ctx, "Sorry, I did not understand")
			understood = false
		default:
			ok, more, err := c.command(ctx, text)
			if err != nil {
				return err
			}
			if !more {
				return end(SignalStop, "cancelled")
			}
			understood = ok
		}

		if counter.Record(understood) {
			c.conv.Say(ctx, "I am going back to sleep.")
			return end(SignalThreshold, fmt.Sprintf("%s limit", c.cfg.Policy))
		}
		c.conv.Say(ctx, "Anything else?")
		if _, err := c.machine.Fire(SignalCommand); err != nil {
			return err
		}
	}
}

// command resolves and dispatches one utterance. Mailbox failures are
// spoken and the session goes on.
func (c *Controller) command(ctx context.Context, text string) (understood, more bool, err error) {
	in := c.resolver.Resolve(ctx, text)
	c.rec.Intent(in.Kind)

	out, err := c.dispatch.Dispatch(ctx, action.Command{Utterance: text, Intent: in})
	switch {
	case errors.Is(err, action.ErrMailbox):
		ui.Logger.Error("mail action failed", "intent", in.Kind, "err", err)
		c.rec.Action(in.Kind, "error")
		c.conv.Say(ctx, "Sorry, something went wrong with your mailbox")
		return true, true, nil
	case err != nil:
		return false, false, err
	}
	result := "ok"
	if !out.Understood {
		result = "unknown"
	}
	c.rec.Action(in.Kind, result)
	return out.Understood, out.Continue, nil
}
