package delivery

import (
	"fmt"
	"runtime"

	"github.com/micmonay/keybd_event"

	"github.com/voxtype/voxtype/internal/command"
)

// KeySender abstracts synthetic keyboard input for testing.
type KeySender interface {
	SimulatePaste() error
	SendCommand(id command.ID) error
}

// SystemKeys sends key chords through the OS input layer.
type SystemKeys struct{}

// NewSystemKeys creates the real key sender.
func NewSystemKeys() *SystemKeys {
	return &SystemKeys{}
}

// SimulatePaste sends the platform paste chord (Cmd+V on macOS, Ctrl+V
// elsewhere).
func (k *SystemKeys) SimulatePaste() error {
	return chord(true, false, keybd_event.VK_V)
}

// SendCommand translates a voice command into the matching key chord.
func (k *SystemKeys) SendCommand(id command.ID) error {
	switch id {
	case command.NewLine:
		return chord(false, false, keybd_event.VK_ENTER)
	case command.NewParagraph:
		if err := chord(false, false, keybd_event.VK_ENTER); err != nil {
			return err
		}
		return chord(false, false, keybd_event.VK_ENTER)
	case command.Tab:
		return chord(false, false, keybd_event.VK_TAB)
	case command.SelectAll:
		return chord(true, false, keybd_event.VK_A)
	case command.Undo:
		return chord(true, false, keybd_event.VK_Z)
	case command.Redo:
		// macOS convention is Cmd+Shift+Z; elsewhere Ctrl+Y.
		if runtime.GOOS == "darwin" {
			return chord(true, true, keybd_event.VK_Z)
		}
		return chord(true, false, keybd_event.VK_Y)
	case command.Copy:
		return chord(true, false, keybd_event.VK_C)
	case command.Cut:
		return chord(true, false, keybd_event.VK_X)
	case command.Paste:
		return chord(true, false, keybd_event.VK_V)
	case command.Delete:
		return chord(false, false, keybd_event.VK_DELETE)
	default:
		return fmt.Errorf("no key chord for command %q", id)
	}
}

// chord presses a single key, optionally with the platform primary
// modifier (Cmd on macOS, Ctrl elsewhere) and shift.
func chord(primary, shift bool, key int) error {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return fmt.Errorf("open keyboard: %w", err)
	}
	if primary {
		if runtime.GOOS == "darwin" {
			kb.HasSuper(true)
		} else {
			kb.HasCTRL(true)
		}
	}
	if shift {
		kb.HasSHIFT(true)
	}
	kb.SetKeys(key)
	if err := kb.Launching(); err != nil {
		return fmt.Errorf("send key chord: %w", err)
	}
	return nil
}
