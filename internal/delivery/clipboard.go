// Package delivery places transcribed text into the focused application
// via the clipboard and a synthetic paste chord, restoring the user's
// clipboard afterwards.
package delivery

import "github.com/atotto/clipboard"

// Clipboard abstracts the system clipboard for testing.
type Clipboard interface {
	Read() (string, error)
	Write(text string) error
}

// SystemClipboard is the real system clipboard.
type SystemClipboard struct{}

func (SystemClipboard) Read() (string, error) {
	return clipboard.ReadAll()
}

func (SystemClipboard) Write(text string) error {
	return clipboard.WriteAll(text)
}
