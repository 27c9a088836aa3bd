// Package notify surfaces short status messages to the user.
package notify

import (
	"log/slog"

	"github.com/gen2brain/beeep"
)

// Notifier delivers a titled message to the user. Implementations must
// never block the recording pipeline.
type Notifier interface {
	Notify(title, message string)
}

// Desktop shows native desktop notifications.
type Desktop struct{}

// NewDesktop creates a desktop notifier.
func NewDesktop() *Desktop {
	return &Desktop{}
}

// Notify shows a desktop notification, logging on failure. Notification
// failures are never propagated; dictation must keep working on systems
// without a notification daemon.
func (*Desktop) Notify(title, message string) {
	if err := beeep.Notify(title, message, ""); err != nil {
		slog.Warn("desktop notification failed", "title", title, "error", err)
	}
}

// Log writes notifications to the structured log instead of the desktop.
// Used for headless runs and as the test double.
type Log struct{}

func (Log) Notify(title, message string) {
	slog.Info("notification", "title", title, "message", message)
}
