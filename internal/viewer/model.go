// Package viewer is the client-side state machine of the smile viewer: it
// starts and stops the remote camera session, polls detection results while
// the session runs, and lets the user browse saved snapshots once it ends.
//
// All state is owned by Model and mutated only from Update, which bubbletea
// calls on a single goroutine. Network calls run as tea.Cmds and report back
// as messages tagged with the session epoch they were issued under; replies
// from an ended session are discarded.
package viewer

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/iksnae/smile-viewer/internal"
	"github.com/iksnae/smile-viewer/internal/metrics"
)

// Remote is the part of the smile-detection service the viewer needs.
// *internal.Client satisfies it.
type Remote interface {
	StartCamera(ctx context.Context) error
	StopCamera(ctx context.Context) error
	DetectSmile(ctx context.Context) (internal.DetectionResult, error)
	ListSnapshots(ctx context.Context) ([]internal.SnapshotRecord, error)
	FrameURL(token string) string
	SnapshotURL(filename string) string
}

// Options tunes a Model. Zero fields fall back to internal.DefaultConfig.
type Options struct {
	PollInterval   time.Duration
	RequestTimeout time.Duration
	StallThreshold int
	Clock          func() time.Time
	Metrics        *metrics.Metrics
}

// OptionsFromConfig copies the viewer settings out of cfg
func OptionsFromConfig(cfg internal.Config) Options {
	return Options{
		PollInterval:   cfg.PollInterval,
		RequestTimeout: cfg.RequestTimeout,
		StallThreshold: cfg.StallThreshold,
	}
}

// Model implements tea.Model
type Model struct {
	remote  Remote
	opts    Options
	clock   func() time.Time
	tokens  *internal.FrameTokens
	metrics *metrics.Metrics
	keys    keyMap
	help    help.Model

	session sessionController
	poll    pollLoop
	store   detectionStore
	history historyBrowser

	width             int
	quitting          bool
	exitedWhileActive bool
}

// New creates an idle viewer
func New(remote Remote, opts Options) *Model {
	defaults := internal.DefaultConfig()
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaults.PollInterval
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaults.RequestTimeout
	}
	if opts.StallThreshold < 0 {
		opts.StallThreshold = 0
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Model{
		remote:  remote,
		opts:    opts,
		clock:   clock,
		tokens:  internal.NewFrameTokens(clock),
		metrics: opts.Metrics,
		keys:    defaultKeyMap(),
		help:    help.New(),
		poll:    pollLoop{interval: opts.PollInterval},
	}
}

// Init implements tea.Model
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case startResultMsg:
		return m, m.handleStartResult(msg)

	case stopSentMsg:
		if msg.err != nil {
			internal.LogWarn("Stop command not confirmed by service: %v", msg.err)
		}
		return m, m.Refresh()

	case tickMsg:
		if !m.poll.accepts(msg) {
			internal.LogDebug("Dropping tick for epoch %d", msg.epoch)
			return m, nil
		}
		m.poll.inFlight = true
		return m, m.pollCmd(msg.epoch)

	case pollResultMsg:
		return m, m.handlePollResult(msg)

	case snapshotsMsg:
		m.handleSnapshots(msg)
		return m, nil
	}

	return m, nil
}

// View implements tea.Model
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	return Render(m.ViewState(), m.width)
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.Shutdown()
		return tea.Quit
	case key.Matches(msg, m.keys.Start):
		return m.Start()
	case key.Matches(msg, m.keys.Stop):
		return m.Stop()
	case key.Matches(msg, m.keys.Refresh):
		return m.Refresh()
	case key.Matches(msg, m.keys.Up):
		m.history.move(-1)
	case key.Matches(msg, m.keys.Down):
		m.history.move(1)
	case key.Matches(msg, m.keys.Choose):
		m.Select(m.history.underCursor())
	case key.Matches(msg, m.keys.Clear):
		m.Select("")
	}
	return nil
}

// Start sends the start command. It is a no-op while a session is running or
// a start is already pending.
func (m *Model) Start() tea.Cmd {
	if !m.session.canStart() {
		return nil
	}
	m.session.starting = true
	internal.LogInfo("Starting camera session")

	remote, timeout := m.remote, m.opts.RequestTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return startResultMsg{err: remote.StartCamera(ctx)}
	}
}

func (m *Model) handleStartResult(msg startResultMsg) tea.Cmd {
	m.session.starting = false
	m.metrics.ObserveStart(msg.err)
	if m.quitting {
		return nil
	}
	if msg.err != nil {
		internal.LogWarn("Camera did not start: %v", msg.err)
		return nil
	}
	if m.session.state == Running {
		return nil
	}

	epoch := m.session.begin()
	m.store.reset()
	m.history.clearSelection()
	internal.Logger().Info("Session running", "epoch", epoch, "interval", m.opts.PollInterval)
	return m.poll.arm(epoch)
}

// Stop ends the session locally, whatever the service answers, and fires the
// stop command. Once the command settles the snapshot list is refreshed.
// No-op while idle.
func (m *Model) Stop() tea.Cmd {
	if !m.session.canStop() {
		return nil
	}
	m.session.end()
	m.poll.disarm()
	m.store.reset()
	m.metrics.ObserveStop()
	internal.LogInfo("Camera session stopped")

	remote, timeout := m.remote, m.opts.RequestTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return stopSentMsg{err: remote.StopCamera(ctx)}
	}
}

// Shutdown tears the viewer down: the loop is disarmed and live state
// cleared. It records whether a session was running or still starting so
// the caller can stop the remote camera.
func (m *Model) Shutdown() {
	m.quitting = true
	if m.session.state == Running || m.session.starting {
		m.exitedWhileActive = true
	}
	if m.session.state == Running {
		m.session.end()
	}
	m.session.starting = false
	m.poll.disarm()
	m.store.reset()
}

// ExitedWhileRunning reports whether Shutdown interrupted a running session
// or one whose start command had not been answered yet
func (m *Model) ExitedWhileRunning() bool {
	return m.exitedWhileActive
}

func (m *Model) pollCmd(epoch uint64) tea.Cmd {
	remote, timeout := m.remote, m.opts.RequestTimeout
	started := m.clock()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		result, err := remote.DetectSmile(ctx)
		return pollResultMsg{epoch: epoch, started: started, result: result, err: err}
	}
}

func (m *Model) handlePollResult(msg pollResultMsg) tea.Cmd {
	if !m.session.current(msg.epoch) || !m.poll.armed || msg.epoch != m.poll.epoch {
		m.metrics.ObserveStale()
		internal.LogDebug("Discarding poll reply from ended session (epoch %d)", msg.epoch)
		return nil
	}

	m.poll.inFlight = false
	m.metrics.ObservePoll(msg.err)
	if msg.err != nil {
		m.poll.failures++
		internal.LogWarn("Detection poll failed (%d in a row): %v", m.poll.failures, msg.err)
	} else {
		m.poll.failures = 0
		m.store.update(msg.result, m.remote.FrameURL(m.tokens.Next()))
	}
	m.metrics.SetConsecutiveFailures(m.poll.failures)

	return m.poll.schedule(m.poll.nextDelay(msg.started, m.clock()))
}

// Refresh fetches the snapshot list. Only the most recent refresh is applied.
func (m *Model) Refresh() tea.Cmd {
	m.history.seq++
	m.history.loading = true
	seq := m.history.seq

	remote, timeout := m.remote, m.opts.RequestTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		records, err := remote.ListSnapshots(ctx)
		return snapshotsMsg{seq: seq, records: records, err: err}
	}
}

func (m *Model) handleSnapshots(msg snapshotsMsg) {
	if msg.seq != m.history.seq {
		internal.LogDebug("Discarding superseded snapshot list #%d", msg.seq)
		return
	}
	m.history.loading = false
	m.metrics.ObserveRefresh(msg.err)
	if msg.err != nil {
		internal.LogWarn("Could not fetch past smiles, keeping %d cached: %v", len(m.history.records), msg.err)
		return
	}
	m.history.replace(msg.records)
	internal.LogDebug("Loaded %d past smile(s)", len(msg.records))
}

// Select shows the snapshot with the given timestamp instead of the live
// frame. The empty timestamp clears the selection. Unknown timestamps are
// ignored and reported as false.
func (m *Model) Select(timestamp string) bool {
	if timestamp == "" {
		m.history.clearSelection()
		return true
	}
	return m.history.choose(timestamp)
}

// State returns the session state
func (m *Model) State() SessionState {
	return m.session.state
}

// PollArmed reports whether the polling loop is armed
func (m *Model) PollArmed() bool {
	return m.poll.armed
}

// Detection returns the latest detection result
func (m *Model) Detection() internal.DetectionResult {
	return m.store.result
}

// FrameReference returns the live frame locator, empty while idle
func (m *Model) FrameReference() string {
	return m.store.frame
}

// Snapshots returns a copy of the current snapshot list
func (m *Model) Snapshots() []internal.SnapshotRecord {
	out := make([]internal.SnapshotRecord, len(m.history.records))
	copy(out, m.history.records)
	return out
}

// DisplayedImage returns the locator of the image the left pane shows, or
// "" for the no-feed placeholder.
func (m *Model) DisplayedImage() string {
	img, _ := m.displayed()
	return img
}

func (m *Model) displayed() (string, ImageSource) {
	if sel := m.history.selected; sel != nil {
		return m.remote.SnapshotURL(sel.Filename), ImageSnapshot
	}
	if m.session.state == Running && m.store.frame != "" {
		return m.store.frame, ImageLive
	}
	return "", ImageNone
}

// ViewState projects the model for Render
func (m *Model) ViewState() ViewState {
	image, source := m.displayed()
	v := ViewState{
		Session:      m.session.state,
		Starting:     m.session.starting,
		StartEnabled: m.session.canStart(),
		StopEnabled:  m.session.canStop(),
		Image:        image,
		Source:       source,
		Stalled:      m.session.state == Running && m.poll.stalled(m.opts.StallThreshold),
		Failures:     m.poll.failures,
		Snapshots:    m.Snapshots(),
		Cursor:       m.history.cursor,
		Loading:      m.history.loading,
		Help:         m.help.View(m.keys),
	}
	if m.session.state == Running {
		v.Detection = m.store.result
	}
	if sel := m.history.selected; sel != nil {
		v.Selected = sel.Timestamp
	}
	return v
}
