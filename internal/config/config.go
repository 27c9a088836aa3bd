package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "VOXTYPE"

// Config holds all application configuration.
type Config struct {
	// Environment settings
	Env      string `envconfig:"ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Audio capture settings
	SampleRate int `envconfig:"SAMPLE_RATE" default:"16000"`
	Channels   int `envconfig:"CHANNELS" default:"1"`

	// Silence auto-stop settings
	SilenceAutoStop  bool          `envconfig:"SILENCE_AUTO_STOP" default:"true"`
	SilenceThreshold float64       `envconfig:"SILENCE_THRESHOLD" default:"0.005"`
	SilenceDuration  time.Duration `envconfig:"SILENCE_DURATION" default:"3s"`

	// Transcription settings
	Endpoint       string        `envconfig:"ENDPOINT" default:""`
	Model          string        `envconfig:"MODEL" default:"whisper-1"`
	Language       string        `envconfig:"LANGUAGE" default:""`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`

	// Retry policy
	MaxRetries        int           `envconfig:"MAX_RETRIES" default:"3"`
	RetryInitialDelay time.Duration `envconfig:"RETRY_INITIAL_DELAY" default:"1s"`

	// Delivery settings
	PasteSettleDelay   time.Duration `envconfig:"PASTE_SETTLE_DELAY" default:"80ms"`
	ClipboardHoldDelay time.Duration `envconfig:"CLIPBOARD_HOLD_DELAY" default:"120ms"`

	// Voice command settings
	CommandMode bool `envconfig:"COMMAND_MODE" default:"true"`

	// Transcript polish settings (optional Anthropic cleanup pass)
	PolishEnabled bool   `envconfig:"POLISH_ENABLED" default:"false"`
	PolishModel   string `envconfig:"POLISH_MODEL" default:""`

	// Control server settings (empty address disables the server)
	ControlAddr string `envconfig:"CONTROL_ADDR" default:"127.0.0.1:4785"`
}

// LoadConfig loads configuration from .env file and environment variables.
func LoadConfig() (*Config, error) {
	// Try to load .env file (optional for development)
	if err := godotenv.Load(); err != nil {
		// Not an error if file doesn't exist (expected outside development)
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	}

	// Parse environment variables into config struct
	var config Config
	if err := envconfig.Process(envPrefix, &config); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	return &config, nil
}
