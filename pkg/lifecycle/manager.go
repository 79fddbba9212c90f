// Package lifecycle supervises a gateway subprocess for embedding
// applications. The manager spawns the gateway, discovers which port
// it actually bound by polling the health endpoint across the
// negotiation window, and guarantees the subprocess is torn down when
// the embedding application exits.
//
// Manager and gateway share no memory. Their whole contract is the
// negotiated port and the health endpoint, so every interaction is
// bounded by timeout and retry rather than locks.
package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// State is the manager's view of the subprocess.
type State int32

// States are monotonic within one spawn attempt.
const (
	StateUnstarted State = iota
	StateStarting
	StateReady
	StateCrashed
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateUnstarted:
		return "unstarted"
	case StateStarting:
		return "starting"
	case StateReady:
		return "ready"
	case StateCrashed:
		return "crashed"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Options configures a Manager.
type Options struct {
	// Command is the argv used to spawn the gateway.
	Command []string

	// Port is the port requested of the gateway. The actually bound
	// port may be higher; health polling covers the window
	// Port..Port+PortAttempts-1.
	Port int

	// PortAttempts is the width of the negotiation window. Default 10.
	PortAttempts int

	// StartTimeout bounds the whole spawn-and-poll sequence. Default 30s.
	StartTimeout time.Duration

	// PollInterval is the health polling cadence. Default 250ms.
	PollInterval time.Duration

	// GracePeriod is how long Stop waits after SIGTERM before SIGKILL.
	// Default 5s.
	GracePeriod time.Duration

	// Env is appended to the subprocess environment. The manager adds
	// RELAYPOINT_PORT itself.
	Env []string

	Logger *slog.Logger
}

// ProcessError reports a subprocess that exited during startup.
type ProcessError struct {
	State State
	Err   error
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("lifecycle: gateway process %s: %v", e.State, e.Err)
}

func (e *ProcessError) Unwrap() error { return e.Err }

// StartupError reports that the gateway never became healthy within
// the startup timeout.
type StartupError struct {
	Timeout time.Duration
	Ports   int
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("lifecycle: gateway not healthy after %s across %d ports", e.Timeout, e.Ports)
}

// Manager supervises one gateway subprocess.
type Manager struct {
	opts   Options
	logger *slog.Logger
	client *http.Client

	// startMu serializes the whole spawn-and-poll sequence. Without it,
	// concurrent Ready calls could each observe a non-ready state and
	// spawn a second gateway, orphaning the first.
	startMu sync.Mutex

	mu      sync.Mutex
	state   State
	cmd     *exec.Cmd
	baseURL string
	exited  chan struct{}
}

// NewManager creates a manager. The subprocess is not spawned until
// Ready is called.
func NewManager(opts Options) (*Manager, error) {
	if len(opts.Command) == 0 {
		return nil, fmt.Errorf("lifecycle: empty command")
	}
	if opts.Port <= 0 {
		return nil, fmt.Errorf("lifecycle: port required")
	}
	if opts.PortAttempts <= 0 {
		opts.PortAttempts = 10
	}
	if opts.StartTimeout <= 0 {
		opts.StartTimeout = 30 * time.Second
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 250 * time.Millisecond
	}
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = 5 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		opts:   opts,
		logger: logger,
		client: &http.Client{Timeout: 2 * time.Second},
		state:  StateUnstarted,
	}, nil
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// URL returns the gateway's base URL. It errors unless the gateway is
// ready.
func (m *Manager) URL() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateReady {
		return "", fmt.Errorf("lifecycle: gateway is %s, not ready", m.state)
	}
	return m.baseURL, nil
}

// Ready ensures a healthy gateway subprocess and returns once its
// health endpoint answers. It is idempotent while the process lives
// and transparently respawns a process that died. Concurrent calls
// are serialized; callers that arrive during an in-flight startup
// wait for it and share its outcome.
func (m *Manager) Ready(ctx context.Context) error {
	m.startMu.Lock()
	defer m.startMu.Unlock()

	m.mu.Lock()
	if m.state == StateReady && m.alive() {
		m.mu.Unlock()
		return nil
	}
	m.state = StateStarting
	m.mu.Unlock()

	if err := m.spawn(); err != nil {
		m.setState(StateCrashed)
		return err
	}

	url, err := m.awaitHealthy(ctx)
	if err != nil {
		m.setState(StateCrashed)
		m.kill()
		return err
	}

	m.mu.Lock()
	m.baseURL = url
	m.state = StateReady
	m.mu.Unlock()
	m.logger.Info("gateway ready", "url", url)
	return nil
}

// alive reports whether the spawned process is still running. Caller
// holds m.mu.
func (m *Manager) alive() bool {
	if m.exited == nil {
		return false
	}
	select {
	case <-m.exited:
		return false
	default:
		return true
	}
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

func (m *Manager) spawn() error {
	cmd := exec.Command(m.opts.Command[0], m.opts.Command[1:]...)
	cmd.Env = append(os.Environ(), m.opts.Env...)
	cmd.Env = append(cmd.Env, fmt.Sprintf("RELAYPOINT_PORT=%d", m.opts.Port))
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return &ProcessError{State: StateCrashed, Err: err}
	}

	exited := make(chan struct{})
	go func() {
		cmd.Wait()
		close(exited)
	}()

	m.mu.Lock()
	m.cmd = cmd
	m.exited = exited
	m.mu.Unlock()

	m.logger.Info("gateway spawned", "pid", cmd.Process.Pid, "port", m.opts.Port)
	return nil
}

// awaitHealthy polls the health endpoint across the port window until
// one answers as a ready relaypoint gateway. It never scrapes logs;
// the health contract is the only readiness signal.
func (m *Manager) awaitHealthy(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, m.opts.StartTimeout)
	defer cancel()

	ticker := time.NewTicker(m.opts.PollInterval)
	defer ticker.Stop()

	m.mu.Lock()
	exited := m.exited
	m.mu.Unlock()

	for {
		for i := 0; i < m.opts.PortAttempts; i++ {
			url := fmt.Sprintf("http://127.0.0.1:%d", m.opts.Port+i)
			if m.healthy(ctx, url) {
				return url, nil
			}
		}

		select {
		case <-ctx.Done():
			return "", &StartupError{Timeout: m.opts.StartTimeout, Ports: m.opts.PortAttempts}
		case <-exited:
			return "", &ProcessError{State: StateCrashed, Err: fmt.Errorf("exited before becoming healthy")}
		case <-ticker.C:
		}
	}
}

// healthy checks whether url hosts a ready gateway of ours. The
// service marker rules out an unrelated server squatting a port in
// the window.
func (m *Manager) healthy(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}
	var body struct {
		Service string `json:"service"`
		Status  string `json:"status"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return false
	}
	return body.Service == "relaypoint" && body.Status == "ok"
}

// Stop terminates the subprocess: SIGTERM, a grace period, then
// SIGKILL. It resets cached state so a later Ready spawns fresh.
func (m *Manager) Stop() error {
	m.mu.Lock()
	cmd := m.cmd
	exited := m.exited
	m.cmd = nil
	m.baseURL = ""
	m.state = StateStopped
	m.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return nil
	}

	select {
	case <-exited:
		return nil
	default:
	}

	cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-exited:
		return nil
	case <-time.After(m.opts.GracePeriod):
	}

	m.logger.Warn("gateway ignored SIGTERM, killing", "pid", cmd.Process.Pid)
	cmd.Process.Kill()
	<-exited
	return nil
}

// kill force-kills without state bookkeeping, used on failed startups.
func (m *Manager) kill() {
	m.mu.Lock()
	cmd := m.cmd
	exited := m.exited
	m.cmd = nil
	m.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return
	}
	select {
	case <-exited:
		return
	default:
	}
	cmd.Process.Kill()
	<-exited
}

// StopOnSignal installs a SIGINT/SIGTERM handler that stops the
// subprocess, so an interrupted embedding application never orphans
// its gateway. The returned function uninstalls the handler.
func (m *Manager) StopOnSignal() func() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		select {
		case <-ch:
			m.Stop()
		case <-done:
		}
	}()
	return func() {
		signal.Stop(ch)
		close(done)
	}
}
