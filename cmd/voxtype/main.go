package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/gen2brain/malgo"

	"github.com/voxtype/voxtype/internal/audio"
	"github.com/voxtype/voxtype/internal/command"
	"github.com/voxtype/voxtype/internal/config"
	"github.com/voxtype/voxtype/internal/control"
	"github.com/voxtype/voxtype/internal/delivery"
	"github.com/voxtype/voxtype/internal/keyring"
	"github.com/voxtype/voxtype/internal/logger"
	"github.com/voxtype/voxtype/internal/notify"
	"github.com/voxtype/voxtype/internal/polish"
	"github.com/voxtype/voxtype/internal/session"
	"github.com/voxtype/voxtype/internal/silence"
	"github.com/voxtype/voxtype/internal/stt"
)

// CLI defines the voxtype command structure.
type CLI struct {
	// Default dictation command (runs when no subcommand given)
	Run RunCmd `cmd:"" default:"withargs" help:"Run the dictation session"`

	// Subcommands
	Transcribe     TranscribeCmd     `cmd:"" help:"Transcribe an audio file and print the text"`
	Devices        DevicesCmd        `cmd:"" help:"List available audio devices"`
	TestConnection TestConnectionCmd `cmd:"" name:"test-connection" help:"Probe the transcription service"`
	Config         ConfigCmd         `cmd:"" help:"Manage configuration"`
}

// RunCmd is the default command that runs the interactive dictation loop.
type RunCmd struct {
	OpenAIAPIKey    string `flag:"" env:"OPENAI_API_KEY" help:"OpenAI API key for transcription"`
	AnthropicAPIKey string `flag:"" env:"ANTHROPIC_API_KEY" help:"Anthropic API key for transcript polish"`
	NoNotify        bool   `flag:"" help:"Log notifications instead of showing desktop popups"`
}

// Run executes the dictation loop.
//
//nolint:funlen // CLI command with multiple setup steps
func (c *RunCmd) Run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	apiKey := resolveKey(c.OpenAIAPIKey, keyring.OpenAI)
	if apiKey == "" && cfg.Endpoint == "" {
		return errors.New("missing OpenAI API key: set OPENAI_API_KEY or run 'voxtype config set-key openai <key>'")
	}

	source := audio.NewSource(audio.NewDevice(&audio.DeviceConfig{
		Format:          malgo.FormatS16,
		SampleRate:      cfg.SampleRate,
		CaptureChannels: cfg.Channels,
	}))

	var detector *silence.Detector
	if cfg.SilenceAutoStop {
		detector = silence.NewDetector(silence.Config{
			Threshold: cfg.SilenceThreshold,
			Duration:  cfg.SilenceDuration,
		})
		source.Attach(detector.ProcessChunk)
	}

	var notifier notify.Notifier = notify.NewDesktop()
	if c.NoNotify {
		notifier = notify.Log{}
	}

	var parser *command.Parser
	var keys session.CommandRunner
	if cfg.CommandMode {
		parser = command.NewParser(nil)
		keys = delivery.NewSystemKeys()
	}

	var polisher session.Polisher
	if cfg.PolishEnabled {
		anthropicKey := resolveKey(c.AnthropicAPIKey, keyring.Anthropic)
		if anthropicKey == "" {
			return errors.New(
				"polish enabled but no Anthropic API key: set ANTHROPIC_API_KEY or run 'voxtype config set-key anthropic <key>'",
			)
		}
		polisher = polish.NewPolisher(anthropicKey, cfg.PolishModel)
	}

	sessionCfg := session.Config{
		Source:      source,
		Encode:      audio.EncodeMP3,
		Transcriber: newTranscriber(cfg, apiKey),
		Deliverer: delivery.NewTransaction(
			delivery.SystemClipboard{},
			delivery.NewSystemKeys(),
			cfg.PasteSettleDelay,
			cfg.ClipboardHoldDelay,
		),
		Keys:       keys,
		Parser:     parser,
		Polisher:   polisher,
		Notifier:   notifier,
		SampleRate: cfg.SampleRate,
		Channels:   cfg.Channels,
		STTOptions: sttOptions(cfg),
	}
	if detector != nil {
		sessionCfg.Detector = detector
	}
	sessionCfg.Display = consoleDisplay{}
	orch := session.New(sessionCfg)

	if cfg.ControlAddr != "" {
		srv := control.New(orch, source, cfg.Env, slog.Default())
		go func() {
			if err := srv.Run(ctx, cfg.ControlAddr); err != nil {
				slog.Error("control API stopped", "error", err)
			}
		}()
	}

	if detector != nil {
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-detector.C():
					slog.Info("silence detected, stopping recording")
					if err := orch.Stop(ctx); err != nil {
						slog.Error("auto-stop failed", "error", err)
					}
				}
			}
		}()
	}

	fmt.Println("voxtype ready. Press Enter to start/stop recording, Ctrl+C to quit.")

	inputC := make(chan struct{})
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case inputC <- struct{}{}:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			// Flush an in-flight recording before exiting.
			if orch.CurrentState() == session.Recording {
				if err := orch.Stop(context.Background()); err != nil {
					slog.Error("final stop failed", "error", err)
				}
			}
			fmt.Println("\nbye!")
			return nil
		case <-inputC:
			if _, err := orch.Toggle(ctx); err != nil {
				slog.Error("toggle failed", "error", err)
			}
		}
	}
}

// consoleDisplay prints state transitions to the terminal.
type consoleDisplay struct{}

func (consoleDisplay) OnStateChange(state session.State) {
	fmt.Printf("state: %s\n", state)
}

// TranscribeCmd transcribes a single audio file and prints the text.
type TranscribeCmd struct {
	File         string `arg:"" required:"" help:"Path to an MP3 file"`
	OpenAIAPIKey string `flag:"" env:"OPENAI_API_KEY" help:"OpenAI API key for transcription"`
}

// Run executes the transcribe command.
func (c *TranscribeCmd) Run(cfg *config.Config) error {
	data, err := os.ReadFile(c.File)
	if err != nil {
		return fmt.Errorf("read audio file: %w", err)
	}

	apiKey := resolveKey(c.OpenAIAPIKey, keyring.OpenAI)
	transcriber := newTranscriber(cfg, apiKey)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()

	result, err := transcriber.Transcribe(ctx, data, sttOptions(cfg))
	if err != nil {
		return fmt.Errorf("%s: %w", stt.TitleOf(err), err)
	}

	fmt.Println(result.Text)
	return nil
}

// DevicesCmd lists available audio devices.
type DevicesCmd struct{}

// Run executes the devices command.
func (c *DevicesCmd) Run() error {
	dev := audio.NewDevice(nil)
	devices, err := dev.EnumerateDevices(context.Background())
	if err != nil {
		return fmt.Errorf("failed to enumerate audio devices: %w", err)
	}

	for _, d := range devices {
		slog.Info("Audio Device",
			"name", d.Name,
			"isDefault", d.IsDefault,
			"formatCount", d.FormatCount,
			"formats", d.Formats,
		)
	}

	return nil
}

// TestConnectionCmd probes the configured transcription service.
type TestConnectionCmd struct {
	OpenAIAPIKey string `flag:"" env:"OPENAI_API_KEY" help:"OpenAI API key for transcription"`
}

// Run executes the test-connection command.
func (c *TestConnectionCmd) Run(cfg *config.Config) error {
	apiKey := resolveKey(c.OpenAIAPIKey, keyring.OpenAI)
	transcriber := newTranscriber(cfg, apiKey)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()

	if err := transcriber.TestConnection(ctx); err != nil {
		return fmt.Errorf("%s: %w", stt.TitleOf(err), err)
	}

	fmt.Printf("%s: connection ok\n", transcriber.Name())
	return nil
}

// ConfigCmd groups configuration-related subcommands.
type ConfigCmd struct {
	SetKey   SetKeyCmd   `cmd:"" help:"Store an API key in system keychain"`
	ListKeys ListKeysCmd `cmd:"" name:"list-keys" help:"Show which API keys are configured"`
}

// SetKeyCmd stores an API key in the system keychain.
type SetKeyCmd struct {
	Service string `arg:"" enum:"openai,anthropic" help:"Service name (openai or anthropic)"`
	Secret  string `arg:"" help:"API key value"`
}

// Run executes the set-key command.
func (c *SetKeyCmd) Run() error {
	if strings.TrimSpace(c.Secret) == "" {
		return errors.New("API key cannot be empty")
	}

	apiKey, err := keyring.APIKeyFromServiceName(c.Service)
	if err != nil {
		return fmt.Errorf("invalid service: %w", err)
	}

	if err := keyring.Set(apiKey, c.Secret); err != nil {
		return fmt.Errorf("failed to store API key: %w", err)
	}

	fmt.Printf("%s API key stored in keychain\n", c.Service)

	return nil
}

// ListKeysCmd shows which API keys are configured.
type ListKeysCmd struct{}

// Run executes the list-keys command.
//
//nolint:unparam // error return required by Kong interface
func (c *ListKeysCmd) Run() error {
	allSet := true

	for _, apiKey := range keyring.AllAPIKeys() {
		if keyring.IsSet(apiKey) {
			fmt.Printf("%s: configured\n", apiKey.DisplayName())
		} else {
			fmt.Printf("%s: not set\n", apiKey.DisplayName())
			allSet = false
		}
	}

	if !allSet {
		fmt.Println("\nRun 'voxtype config set-key <service> <key>' to configure.")
	}

	return nil
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.SetupLogger(cfg)

	cli := &CLI{} //nolint:exhaustruct // Kong fills in command fields
	ctx := kong.Parse(cli, kong.Bind(cfg))
	err = ctx.Run()
	ctx.FatalIfErrorf(err)
}

// resolveKey prefers the flag/environment value and falls back to the
// system keychain.
func resolveKey(explicit string, key keyring.APIKey) string {
	if explicit != "" {
		return explicit
	}
	secret, err := keyring.Get(key)
	if err != nil {
		slog.Debug("keychain lookup failed", "key", key.DisplayName(), "error", err)
		return ""
	}
	return secret
}

func newTranscriber(cfg *config.Config, apiKey string) *stt.Transcriber {
	adapter := stt.NewAdapter(stt.AdapterConfig{
		Endpoint: cfg.Endpoint,
		APIKey:   apiKey,
		Timeout:  cfg.RequestTimeout,
	})
	return stt.NewTranscriber(adapter, stt.RetryPolicy{
		MaxRetries:   cfg.MaxRetries,
		InitialDelay: cfg.RetryInitialDelay,
	})
}

func sttOptions(cfg *config.Config) stt.Options {
	return stt.Options{
		Model:    cfg.Model,
		Language: cfg.Language,
	}
}
