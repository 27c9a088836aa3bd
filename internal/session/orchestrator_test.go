package session_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxtype/voxtype/internal/command"
	"github.com/voxtype/voxtype/internal/session"
	"github.com/voxtype/voxtype/internal/stt"
)

type fakeSource struct {
	startErr error
	stopErr  error
	pcm      []byte
	started  int
	stopped  int
}

func (s *fakeSource) StartCapture(context.Context) error {
	s.started++
	return s.startErr
}

func (s *fakeSource) StopCapture(context.Context) ([]byte, error) {
	s.stopped++
	return s.pcm, s.stopErr
}

type fakeTranscriber struct {
	text  string
	err   error
	calls int
	audio []byte
}

func (t *fakeTranscriber) Transcribe(_ context.Context, audio []byte, _ stt.Options) (stt.Result, error) {
	t.calls++
	t.audio = audio
	if t.err != nil {
		return stt.Result{}, t.err
	}
	return stt.Result{Text: t.text}, nil
}

type fakeDeliverer struct {
	texts []string
	err   error
}

func (d *fakeDeliverer) Deliver(text string) error {
	d.texts = append(d.texts, text)
	return d.err
}

type fakeKeys struct {
	commands []command.ID
}

func (k *fakeKeys) SendCommand(id command.ID) error {
	k.commands = append(k.commands, id)
	return nil
}

type fakeNotifier struct {
	titles   []string
	messages []string
}

func (n *fakeNotifier) Notify(title, message string) {
	n.titles = append(n.titles, title)
	n.messages = append(n.messages, message)
}

func passthroughEncode(pcm []byte, _, _ int) ([]byte, error) {
	return pcm, nil
}

type fixture struct {
	source      *fakeSource
	transcriber *fakeTranscriber
	deliverer   *fakeDeliverer
	keys        *fakeKeys
	notifier    *fakeNotifier
	orch        *session.Orchestrator
}

func newFixture(mutate func(*session.Config)) *fixture {
	f := &fixture{
		source:      &fakeSource{pcm: []byte("pcm data")},
		transcriber: &fakeTranscriber{text: "hello world"},
		deliverer:   &fakeDeliverer{},
		keys:        &fakeKeys{},
		notifier:    &fakeNotifier{},
	}
	cfg := session.Config{
		Source:      f.source,
		Encode:      passthroughEncode,
		Transcriber: f.transcriber,
		Deliverer:   f.deliverer,
		Keys:        f.keys,
		Parser:      command.NewParser(nil),
		Notifier:    f.notifier,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	f.orch = session.New(cfg)
	return f
}

func TestOrchestrator_FullSessionDeliversTranscript(t *testing.T) {
	t.Parallel()

	f := newFixture(nil)
	ctx := context.Background()

	require.Equal(t, session.Idle, f.orch.CurrentState())
	require.NoError(t, f.orch.Start(ctx))
	require.Equal(t, session.Recording, f.orch.CurrentState())

	require.NoError(t, f.orch.Stop(ctx))
	assert.Equal(t, session.Idle, f.orch.CurrentState())
	assert.Equal(t, []string{"hello world"}, f.deliverer.texts)
	assert.Empty(t, f.notifier.titles, "successful sessions do not notify")
}

func TestOrchestrator_StartFailureStaysIdleAndNotifiesOnce(t *testing.T) {
	t.Parallel()

	f := newFixture(func(cfg *session.Config) {
		cfg.Source.(*fakeSource).startErr = errors.New("device busy")
	})
	ctx := context.Background()

	err := f.orch.Start(ctx)
	require.Error(t, err)
	assert.Equal(t, session.Idle, f.orch.CurrentState())
	assert.Equal(t, []string{"Recording Failed"}, f.notifier.titles)
	assert.Zero(t, f.source.stopped)
}

func TestOrchestrator_StartIsNoOpUnlessIdle(t *testing.T) {
	t.Parallel()

	f := newFixture(nil)
	ctx := context.Background()

	require.NoError(t, f.orch.Start(ctx))
	require.NoError(t, f.orch.Start(ctx), "second start is a no-op")
	assert.Equal(t, 1, f.source.started)
}

func TestOrchestrator_StopIsNoOpUnlessRecording(t *testing.T) {
	t.Parallel()

	f := newFixture(nil)

	require.NoError(t, f.orch.Stop(context.Background()))
	assert.Zero(t, f.source.stopped)
	assert.Zero(t, f.transcriber.calls)
}

func TestOrchestrator_ToggleCyclesStates(t *testing.T) {
	t.Parallel()

	f := newFixture(nil)
	ctx := context.Background()

	state, err := f.orch.Toggle(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.Recording, state)

	state, err = f.orch.Toggle(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.Idle, state)
	assert.Equal(t, []string{"hello world"}, f.deliverer.texts)
}

// blockingTranscriber parks inside Transcribe until released, keeping the
// orchestrator observably in Processing.
type blockingTranscriber struct {
	entered chan struct{}
	release chan struct{}
}

func newBlockingTranscriber() *blockingTranscriber {
	return &blockingTranscriber{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (t *blockingTranscriber) Transcribe(_ context.Context, _ []byte, _ stt.Options) (stt.Result, error) {
	close(t.entered)
	<-t.release
	return stt.Result{Text: "hello world"}, nil
}

func TestOrchestrator_ToggleWhileProcessingIsNoOp(t *testing.T) {
	t.Parallel()

	transcriber := newBlockingTranscriber()
	f := newFixture(func(cfg *session.Config) {
		cfg.Transcriber = transcriber
	})
	ctx := context.Background()

	require.NoError(t, f.orch.Start(ctx))

	stopDone := make(chan error, 1)
	go func() {
		stopDone <- f.orch.Stop(ctx)
	}()
	<-transcriber.entered
	require.Equal(t, session.Processing, f.orch.CurrentState())

	state, err := f.orch.Toggle(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.Processing, state, "toggle during processing must not transition")
	assert.Equal(t, 1, f.source.started, "toggle during processing must not start a capture")
	assert.Equal(t, 1, f.source.stopped, "toggle during processing must not stop again")

	close(transcriber.release)
	require.NoError(t, <-stopDone)
	assert.Equal(t, session.Idle, f.orch.CurrentState())
	assert.Equal(t, []string{"hello world"}, f.deliverer.texts)
}

// panickyDeliverer simulates a collaborator blowing up mid-pipeline.
type panickyDeliverer struct{}

func (panickyDeliverer) Deliver(string) error {
	panic("clipboard backend gone")
}

func TestOrchestrator_PanicInPipelineStillFinalizesToIdle(t *testing.T) {
	t.Parallel()

	f := newFixture(func(cfg *session.Config) {
		cfg.Deliverer = panickyDeliverer{}
	})
	ctx := context.Background()

	require.NoError(t, f.orch.Start(ctx))
	assert.Panics(t, func() {
		_ = f.orch.Stop(ctx)
	})

	assert.Equal(t, session.Idle, f.orch.CurrentState(), "finalization must run even on panic")

	// The machine stays usable for the next session.
	require.NoError(t, f.orch.Start(ctx))
	assert.Equal(t, session.Recording, f.orch.CurrentState())
}

func TestOrchestrator_TranscriptionFailureNotifiesWithClassifiedTitle(t *testing.T) {
	t.Parallel()

	f := newFixture(func(cfg *session.Config) {
		cfg.Transcriber.(*fakeTranscriber).err = stt.NewError(stt.NetworkTimeout, errors.New("deadline exceeded"))
	})
	ctx := context.Background()

	require.NoError(t, f.orch.Start(ctx))
	err := f.orch.Stop(ctx)
	require.Error(t, err)

	assert.Equal(t, session.Idle, f.orch.CurrentState(), "failure still returns to idle")
	assert.Equal(t, []string{"Connection Timed Out"}, f.notifier.titles)
	assert.Empty(t, f.deliverer.texts)
}

func TestOrchestrator_EmptyRecordingFinishesQuietly(t *testing.T) {
	t.Parallel()

	f := newFixture(func(cfg *session.Config) {
		cfg.Source.(*fakeSource).pcm = nil
	})
	ctx := context.Background()

	require.NoError(t, f.orch.Start(ctx))
	require.NoError(t, f.orch.Stop(ctx))

	assert.Zero(t, f.transcriber.calls, "nothing to transcribe")
	assert.Empty(t, f.notifier.titles)
	assert.Equal(t, session.Idle, f.orch.CurrentState())
}

func TestOrchestrator_CommandSegmentsRunAsKeyChords(t *testing.T) {
	t.Parallel()

	f := newFixture(func(cfg *session.Config) {
		cfg.Transcriber.(*fakeTranscriber).text = "dear sir new line thanks"
	})
	ctx := context.Background()

	require.NoError(t, f.orch.Start(ctx))
	require.NoError(t, f.orch.Stop(ctx))

	assert.Equal(t, []command.ID{command.NewLine}, f.keys.commands)
	assert.Equal(t, []string{"dear sir ", " thanks"}, f.deliverer.texts)
}

func TestOrchestrator_WithoutParserDeliversVerbatim(t *testing.T) {
	t.Parallel()

	f := newFixture(func(cfg *session.Config) {
		cfg.Parser = nil
		cfg.Transcriber.(*fakeTranscriber).text = "please select all of it"
	})
	ctx := context.Background()

	require.NoError(t, f.orch.Start(ctx))
	require.NoError(t, f.orch.Stop(ctx))

	assert.Empty(t, f.keys.commands)
	assert.Equal(t, []string{"please select all of it"}, f.deliverer.texts)
}

type fakePolisher struct {
	out string
	err error
}

func (p *fakePolisher) Polish(_ context.Context, transcript string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	return p.out, nil
}

func TestOrchestrator_PolishFailureFallsBackToRawTranscript(t *testing.T) {
	t.Parallel()

	f := newFixture(func(cfg *session.Config) {
		cfg.Polisher = &fakePolisher{err: errors.New("api down")}
	})
	ctx := context.Background()

	require.NoError(t, f.orch.Start(ctx))
	require.NoError(t, f.orch.Stop(ctx))

	assert.Equal(t, []string{"hello world"}, f.deliverer.texts)
	assert.Empty(t, f.notifier.titles)
}

func TestOrchestrator_PolishedTranscriptIsDelivered(t *testing.T) {
	t.Parallel()

	f := newFixture(func(cfg *session.Config) {
		cfg.Polisher = &fakePolisher{out: "Hello, world."}
	})
	ctx := context.Background()

	require.NoError(t, f.orch.Start(ctx))
	require.NoError(t, f.orch.Stop(ctx))

	assert.Equal(t, []string{"Hello, world."}, f.deliverer.texts)
}

type fakeDisplay struct {
	states []session.State
}

func (d *fakeDisplay) OnStateChange(state session.State) {
	d.states = append(d.states, state)
}

func TestOrchestrator_DisplaySeesEveryTransition(t *testing.T) {
	t.Parallel()

	display := &fakeDisplay{}
	f := newFixture(func(cfg *session.Config) {
		cfg.Display = display
	})
	ctx := context.Background()

	require.NoError(t, f.orch.Start(ctx))
	require.NoError(t, f.orch.Stop(ctx))

	assert.Equal(t, []session.State{session.Recording, session.Processing, session.Idle}, display.states)
}

func TestState_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "idle", session.Idle.String())
	assert.Equal(t, "recording", session.Recording.String())
	assert.Equal(t, "processing", session.Processing.String())
}
