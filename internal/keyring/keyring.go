// Package keyring stores the transcription and polish API keys in the
// system keychain, so dictation works without secrets in the environment.
package keyring

import (
	"fmt"

	"github.com/zalando/go-keyring"
)

// All entries live under one keychain service so `config list-keys` can
// enumerate them.
const serviceName = "voxtype"

// APIKey names one keychain entry.
type APIKey string

const (
	// OpenAI is the Whisper transcription key.
	OpenAI APIKey = "openai-api-key"
	// Anthropic is the transcript polish key.
	Anthropic APIKey = "anthropic-api-key"
)

// AllAPIKeys lists every key the CLI knows how to store.
func AllAPIKeys() []APIKey {
	return []APIKey{OpenAI, Anthropic}
}

// DisplayName is the name shown in CLI output and accepted as the
// `config set-key` service argument.
func (k APIKey) DisplayName() string {
	switch k {
	case OpenAI:
		return "openai"
	case Anthropic:
		return "anthropic"
	default:
		return string(k)
	}
}

// Get reads a key's value from the keychain.
func Get(apiKey APIKey) (string, error) {
	value, err := keyring.Get(serviceName, string(apiKey))
	if err != nil {
		return "", fmt.Errorf("failed to get %s from keychain: %w", apiKey.DisplayName(), err)
	}

	return value, nil
}

// Set writes a key's value to the keychain.
func Set(apiKey APIKey, value string) error {
	if err := keyring.Set(serviceName, string(apiKey), value); err != nil {
		return fmt.Errorf("failed to set %s in keychain: %w", apiKey.DisplayName(), err)
	}

	return nil
}

// IsSet reports whether the key has a stored value. Used by
// `config list-keys`; the value itself is never read.
func IsSet(apiKey APIKey) bool {
	_, err := keyring.Get(serviceName, string(apiKey))

	return err == nil
}

// APIKeyFromServiceName resolves a CLI service argument ("openai",
// "anthropic") to its keychain entry.
func APIKeyFromServiceName(name string) (APIKey, error) {
	switch name {
	case "openai":
		return OpenAI, nil
	case "anthropic":
		return Anthropic, nil
	default:
		return "", fmt.Errorf("unknown service: %s", name)
	}
}
