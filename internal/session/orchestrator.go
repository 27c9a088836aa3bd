// Package session drives a dictation session through its lifecycle:
// capture audio, transcribe it, and deliver the text to the focused
// application.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/voxtype/voxtype/internal/command"
	"github.com/voxtype/voxtype/internal/notify"
	"github.com/voxtype/voxtype/internal/stt"
)

// State is the dictation session's lifecycle position.
type State int

const (
	// Idle: no capture in progress, ready to start.
	Idle State = iota
	// Recording: microphone capture running.
	Recording
	// Processing: capture stopped, transcription and delivery in flight.
	Processing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Processing:
		return "processing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// AudioSource captures microphone audio between StartCapture and
// StopCapture, returning the accumulated PCM.
type AudioSource interface {
	StartCapture(ctx context.Context) error
	StopCapture(ctx context.Context) ([]byte, error)
}

// EncodeFunc compresses raw PCM for upload.
type EncodeFunc func(pcm []byte, sampleRate, channels int) ([]byte, error)

// Transcriber turns encoded audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, opts stt.Options) (stt.Result, error)
}

// Deliverer places text into the focused application.
type Deliverer interface {
	Deliver(text string) error
}

// CommandRunner executes a recognized voice command.
type CommandRunner interface {
	SendCommand(id command.ID) error
}

// Polisher optionally cleans a transcript before delivery.
type Polisher interface {
	Polish(ctx context.Context, transcript string) (string, error)
}

// Resetter clears per-session detector state when a recording starts.
type Resetter interface {
	Reset()
}

// Display observes state transitions (tray icon, status line). Calls are
// fire-and-forget; the orchestrator ignores whatever the display does.
type Display interface {
	OnStateChange(state State)
}

// Config wires an Orchestrator's collaborators. Source, Encode,
// Transcriber and Deliverer are required; the rest are optional.
type Config struct {
	Source      AudioSource
	Encode      EncodeFunc
	Transcriber Transcriber
	Deliverer   Deliverer
	Keys        CommandRunner   // nil delivers command phrases as plain text
	Parser      *command.Parser // nil disables command parsing
	Polisher    Polisher        // nil skips the cleanup pass
	Notifier    notify.Notifier // nil logs instead
	Detector    Resetter        // nil skips detector resets
	Display     Display         // nil skips state-change callbacks

	SampleRate int // defaults to 16000
	Channels   int // defaults to 1
	STTOptions stt.Options
}

// Orchestrator owns the session state machine. State transitions happen
// under the mutex; the transcription pipeline itself runs unlocked so a
// slow provider never blocks state queries.
type Orchestrator struct {
	mu    sync.Mutex
	state State

	source     AudioSource
	encode     EncodeFunc
	stt        Transcriber
	deliverer  Deliverer
	keys       CommandRunner
	parser     *command.Parser
	polisher   Polisher
	notifier   notify.Notifier
	detector   Resetter
	display    Display
	sampleRate int
	channels   int
	opts       stt.Options
}

// New creates an orchestrator in the Idle state.
func New(cfg Config) *Orchestrator {
	if cfg.Notifier == nil {
		cfg.Notifier = notify.Log{}
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	return &Orchestrator{
		state:      Idle,
		source:     cfg.Source,
		encode:     cfg.Encode,
		stt:        cfg.Transcriber,
		deliverer:  cfg.Deliverer,
		keys:       cfg.Keys,
		parser:     cfg.Parser,
		polisher:   cfg.Polisher,
		notifier:   cfg.Notifier,
		detector:   cfg.Detector,
		display:    cfg.Display,
		sampleRate: cfg.SampleRate,
		channels:   cfg.Channels,
		opts:       cfg.STTOptions,
	}
}

// CurrentState returns the session state.
func (o *Orchestrator) CurrentState() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Toggle starts a recording from Idle, stops one from Recording, and is
// a no-op during Processing. It returns the state after the transition.
func (o *Orchestrator) Toggle(ctx context.Context) (State, error) {
	switch o.CurrentState() {
	case Idle:
		err := o.Start(ctx)
		return o.CurrentState(), err
	case Recording:
		err := o.Stop(ctx)
		return o.CurrentState(), err
	default:
		return Processing, nil
	}
}

// Start begins capturing. Only valid from Idle; any other state is a
// no-op. When the capture device fails to start, the session stays Idle
// and the user is notified once.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()

	if o.state != Idle {
		o.mu.Unlock()
		return nil
	}

	if o.detector != nil {
		o.detector.Reset()
	}

	if err := o.source.StartCapture(ctx); err != nil {
		o.mu.Unlock()
		cerr := stt.NewError(stt.AudioFailure, err)
		slog.Error("failed to start capture", "error", err)
		o.notifier.Notify(cerr.Kind.Title(), causeMessage(cerr))
		return cerr
	}

	o.state = Recording
	o.mu.Unlock()

	o.stateChanged(Recording)
	slog.Info("recording started")
	return nil
}

// Stop ends the capture and runs the transcription pipeline. Only valid
// from Recording; any other state is a no-op. The session always
// returns to Idle, and a failure produces exactly one notification.
func (o *Orchestrator) Stop(ctx context.Context) (err error) {
	o.mu.Lock()
	if o.state != Recording {
		o.mu.Unlock()
		return nil
	}
	o.state = Processing
	o.mu.Unlock()
	o.stateChanged(Processing)
	slog.Info("recording stopped, processing")

	// Finalization runs exactly once on every exit path, including a
	// panicking collaborator; the machine never strands in Processing.
	defer func() {
		o.mu.Lock()
		o.state = Idle
		o.mu.Unlock()
		o.stateChanged(Idle)

		if err != nil {
			slog.Error("dictation failed", "error", err)
			o.notifier.Notify(stt.TitleOf(err), causeMessage(err))
		}
	}()

	err = o.process(ctx)
	return err
}

func (o *Orchestrator) process(ctx context.Context) error {
	pcm, err := o.source.StopCapture(ctx)
	if err != nil {
		return stt.NewError(stt.AudioFailure, err)
	}
	if len(pcm) == 0 {
		slog.Debug("no audio captured, nothing to transcribe")
		return nil
	}

	encoded, err := o.encode(pcm, o.sampleRate, o.channels)
	if err != nil {
		return stt.NewError(stt.AudioFailure, err)
	}

	result, err := o.stt.Transcribe(ctx, encoded, o.opts)
	if err != nil {
		return err
	}

	text := result.Text
	if o.polisher != nil && strings.TrimSpace(text) != "" {
		polished, perr := o.polisher.Polish(ctx, text)
		if perr != nil {
			// A failed cleanup never loses a dictation.
			slog.Warn("polish failed, delivering raw transcript", "error", perr)
		} else {
			text = polished
		}
	}

	if strings.TrimSpace(text) == "" {
		slog.Debug("empty transcript, nothing to deliver")
		return nil
	}

	return o.deliverSegments(text)
}

// deliverSegments splits the transcript into prose and commands and
// applies them in order. Without a parser or key sender the whole
// transcript is delivered verbatim.
func (o *Orchestrator) deliverSegments(text string) error {
	if o.parser == nil || o.keys == nil {
		if err := o.deliverer.Deliver(text); err != nil {
			return stt.NewError(stt.Unknown, err)
		}
		return nil
	}

	for _, seg := range o.parser.Parse(text) {
		if seg.IsCommand() {
			// Commands are best-effort; a failed chord must not drop
			// the rest of the transcript.
			if err := o.keys.SendCommand(seg.Command); err != nil {
				slog.Warn("skipping voice command", "command", seg.Command, "error", err)
			}
			continue
		}
		if err := o.deliverer.Deliver(seg.Text); err != nil {
			return stt.NewError(stt.Unknown, err)
		}
	}
	return nil
}

// stateChanged reports a transition to the display. Called outside the
// mutex so a display may query the orchestrator.
func (o *Orchestrator) stateChanged(state State) {
	if o.display != nil {
		o.display.OnStateChange(state)
	}
}

// causeMessage extracts the human-readable cause for a notification body.
func causeMessage(err error) string {
	var cerr *stt.Error
	if errors.As(err, &cerr) && cerr.Err != nil {
		return cerr.Err.Error()
	}
	return err.Error()
}
