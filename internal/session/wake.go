package session

import (
	"context"
	"time"

	"github.com/kokistudios/mailvox/internal/dialog"
	"github.com/kokistudios/mailvox/internal/ui"
)

// DefaultIdlePoll is the pause between idle listening windows.
const DefaultIdlePoll = 400 * time.Millisecond

// WakeDetector listens in short windows until a wake phrase is heard.
type WakeDetector struct {
	conv  *dialog.Conversation
	vocab Vocabulary
	poll  time.Duration
	sleep func(context.Context, time.Duration) error
}

func NewWakeDetector(conv *dialog.Conversation, vocab Vocabulary, poll time.Duration) *WakeDetector {
	if poll <= 0 {
		poll = DefaultIdlePoll
	}
	return &WakeDetector{conv: conv, vocab: vocab, poll: poll, sleep: pause}
}

// Await blocks until a wake phrase is heard. It returns dialog.ErrShutdown
// when a shutdown phrase is heard and the context error on cancellation.
func (w *WakeDetector) Await(ctx context.Context) error {
	for {
		text, err := w.conv.Listen(ctx, dialog.ClipWake, w.conv.Timing().Wake)
		if err != nil {
			return err
		}
		switch ClassifyUtterance(StateIdle, text, w.vocab) {
		case SignalWake:
			ui.Logger.Debug("wake phrase", "text", text)
			return nil
		case SignalShutdown:
			return dialog.ErrShutdown
		}
		if err := w.sleep(ctx, w.poll); err != nil {
			return err
		}
	}
}

func pause(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
