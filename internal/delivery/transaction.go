package delivery

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	// DefaultSettleDelay is the wait after writing the clipboard, before
	// the paste chord. Some clipboard managers need a beat to pick up
	// the new content.
	DefaultSettleDelay = 80 * time.Millisecond

	// DefaultHoldDelay is the wait after the paste chord, before the
	// original clipboard content is restored. Restoring too early races
	// the target application's paste handling.
	DefaultHoldDelay = 120 * time.Millisecond
)

// Transaction delivers text through the clipboard and always restores
// the prior clipboard content, whether or not the paste succeeded.
type Transaction struct {
	clip   Clipboard
	keys   KeySender
	settle time.Duration
	hold   time.Duration
	sleep  func(d time.Duration) // tests override
}

// NewTransaction wires a transaction over the given clipboard and key
// sender. Non-positive delays fall back to the defaults.
func NewTransaction(clip Clipboard, keys KeySender, settle, hold time.Duration) *Transaction {
	if settle <= 0 {
		settle = DefaultSettleDelay
	}
	if hold <= 0 {
		hold = DefaultHoldDelay
	}
	return &Transaction{
		clip:   clip,
		keys:   keys,
		settle: settle,
		hold:   hold,
		sleep:  time.Sleep,
	}
}

// Deliver pastes text into the focused application. Empty or
// whitespace-only text is a no-op that never touches the clipboard.
func (t *Transaction) Deliver(text string) (err error) {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	snapshot, readErr := t.clip.Read()
	if readErr != nil {
		// Unreadable content (an image, an empty clipboard) restores
		// to empty rather than aborting the delivery.
		slog.Debug("clipboard snapshot unavailable", "error", readErr)
		snapshot = ""
	}

	if writeErr := t.clip.Write(text); writeErr != nil {
		return fmt.Errorf("write clipboard: %w", writeErr)
	}

	defer func() {
		t.sleep(t.hold)
		if restoreErr := t.clip.Write(snapshot); restoreErr != nil {
			slog.Warn("failed to restore clipboard", "error", restoreErr)
		}
	}()

	t.sleep(t.settle)
	if pasteErr := t.keys.SimulatePaste(); pasteErr != nil {
		return fmt.Errorf("simulate paste: %w", pasteErr)
	}
	return nil
}
