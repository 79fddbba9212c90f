package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"
	"syscall"
	"testing"
	"time"
)

// TestHelperProcess is re-executed as the gateway subprocess. It
// mimics the real gateway's bind behavior: try the requested port,
// advance on address-in-use, and serve the health contract.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_HELPER_PROCESS") != "1" {
		return
	}

	if os.Getenv("HELPER_MODE") == "silent" {
		time.Sleep(time.Hour)
		os.Exit(0)
	}

	port, err := strconv.Atoi(os.Getenv("RELAYPOINT_PORT"))
	if err != nil {
		os.Exit(1)
	}

	var ln net.Listener
	for i := 0; i < 10; i++ {
		ln, err = net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port+i))
		if err == nil {
			break
		}
	}
	if ln == nil {
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"service": "relaypoint",
			"status":  "ok",
			"pid":     os.Getpid(),
		})
	})
	http.Serve(ln, mux)
	os.Exit(0)
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return port
}

func newManager(t *testing.T, port int, mode string) *Manager {
	t.Helper()
	m, err := NewManager(Options{
		Command:      []string{os.Args[0], "-test.run=TestHelperProcess"},
		Port:         port,
		PortAttempts: 10,
		StartTimeout: 10 * time.Second,
		PollInterval: 50 * time.Millisecond,
		GracePeriod:  1 * time.Second,
		Env:          []string{"GO_HELPER_PROCESS=1", "HELPER_MODE=" + mode},
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { m.Stop() })
	return m
}

func gatewayPID(t *testing.T, url string) int {
	t.Helper()
	resp, err := http.Get(url + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var body struct {
		PID int `json:"pid"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	return body.PID
}

func TestReadySpawnsGateway(t *testing.T) {
	port := freePort(t)
	m := newManager(t, port, "serve")

	if m.State() != StateUnstarted {
		t.Fatalf("initial state = %s", m.State())
	}
	if _, err := m.URL(); err == nil {
		t.Fatal("URL before Ready should error")
	}

	if err := m.Ready(context.Background()); err != nil {
		t.Fatal(err)
	}
	if m.State() != StateReady {
		t.Errorf("state = %s, want ready", m.State())
	}

	url, err := m.URL()
	if err != nil {
		t.Fatal(err)
	}
	if want := fmt.Sprintf("http://127.0.0.1:%d", port); url != want {
		t.Errorf("URL = %q, want %q", url, want)
	}

	if err := m.Stop(); err != nil {
		t.Fatal(err)
	}
	if m.State() != StateStopped {
		t.Errorf("state after Stop = %s", m.State())
	}
}

func TestReadyIdempotent(t *testing.T) {
	m := newManager(t, freePort(t), "serve")

	if err := m.Ready(context.Background()); err != nil {
		t.Fatal(err)
	}
	url, _ := m.URL()
	pid := gatewayPID(t, url)

	if err := m.Ready(context.Background()); err != nil {
		t.Fatal(err)
	}
	if again := gatewayPID(t, url); again != pid {
		t.Errorf("process respawned while healthy: pid %d -> %d", pid, again)
	}
}

func TestConcurrentReadySpawnsOneGateway(t *testing.T) {
	port := freePort(t)
	m := newManager(t, port, "serve")

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = m.Ready(context.Background())
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("Ready #%d: %v", i, err)
		}
	}

	url, err := m.URL()
	if err != nil {
		t.Fatal(err)
	}
	if want := fmt.Sprintf("http://127.0.0.1:%d", port); url != want {
		t.Errorf("URL = %q, want %q", url, want)
	}
	pid := gatewayPID(t, url)

	// A second spawn would have lost the bind race and advanced to the
	// next port. Nothing may answer there.
	probe := &http.Client{Timeout: 500 * time.Millisecond}
	if resp, err := probe.Get(fmt.Sprintf("http://127.0.0.1:%d/health", port+1)); err == nil {
		resp.Body.Close()
		t.Errorf("second gateway answering on port %d", port+1)
	}

	if err := m.Stop(); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for syscall.Kill(pid, 0) == nil && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if syscall.Kill(pid, 0) == nil {
		t.Errorf("pid %d still running after Stop", pid)
	}
}

func TestStopThenReadyRespawnsFresh(t *testing.T) {
	m := newManager(t, freePort(t), "serve")

	if err := m.Ready(context.Background()); err != nil {
		t.Fatal(err)
	}
	url, _ := m.URL()
	pid := gatewayPID(t, url)

	if err := m.Stop(); err != nil {
		t.Fatal(err)
	}
	if m.State() != StateStopped {
		t.Fatalf("state after Stop = %s", m.State())
	}
	if _, err := m.URL(); err == nil {
		t.Fatal("URL after Stop should error")
	}

	if err := m.Ready(context.Background()); err != nil {
		t.Fatal(err)
	}
	url, err := m.URL()
	if err != nil {
		t.Fatal(err)
	}
	again := gatewayPID(t, url)
	if again == pid {
		t.Errorf("pid unchanged after Stop then Ready: %d", again)
	}
}

func TestReadyRespawnsDeadProcess(t *testing.T) {
	m := newManager(t, freePort(t), "serve")

	if err := m.Ready(context.Background()); err != nil {
		t.Fatal(err)
	}
	url, _ := m.URL()
	pid := gatewayPID(t, url)

	if err := syscall.Kill(pid, syscall.SIGKILL); err != nil {
		t.Fatal(err)
	}
	// Wait for the monitor goroutine to observe the exit.
	running := func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.alive()
	}
	deadline := time.Now().Add(5 * time.Second)
	for running() && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}

	if err := m.Ready(context.Background()); err != nil {
		t.Fatal(err)
	}
	url, err := m.URL()
	if err != nil {
		t.Fatal(err)
	}
	if again := gatewayPID(t, url); again == pid {
		t.Errorf("pid unchanged after respawn: %d", again)
	}
}

func TestStartupTimeout(t *testing.T) {
	m, err := NewManager(Options{
		Command:      []string{os.Args[0], "-test.run=TestHelperProcess"},
		Port:         freePort(t),
		PortAttempts: 3,
		StartTimeout: 1 * time.Second,
		PollInterval: 50 * time.Millisecond,
		GracePeriod:  500 * time.Millisecond,
		Env:          []string{"GO_HELPER_PROCESS=1", "HELPER_MODE=silent"},
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { m.Stop() })

	err = m.Ready(context.Background())
	var startupErr *StartupError
	if !errors.As(err, &startupErr) {
		t.Fatalf("err = %v, want *StartupError", err)
	}
	if m.State() != StateCrashed {
		t.Errorf("state = %s, want crashed", m.State())
	}
}

func TestFindsNegotiatedPortBehindImposter(t *testing.T) {
	port := freePort(t)

	// An unrelated server answers /health on the requested port. The
	// gateway helper has to bind the next port; the manager must skip
	// the imposter and find it there.
	imposter := http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"service":"someone-else","status":"ok"}`)
	})}
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		t.Skipf("could not occupy port: %v", err)
	}
	go imposter.Serve(ln)
	t.Cleanup(func() { imposter.Close() })

	m := newManager(t, port, "serve")
	if err := m.Ready(context.Background()); err != nil {
		t.Fatal(err)
	}

	url, err := m.URL()
	if err != nil {
		t.Fatal(err)
	}
	if want := fmt.Sprintf("http://127.0.0.1:%d", port+1); url != want {
		t.Errorf("URL = %q, want %q", url, want)
	}
}

func TestNewManagerValidation(t *testing.T) {
	if _, err := NewManager(Options{Port: 8080}); err == nil {
		t.Error("empty command accepted")
	}
	if _, err := NewManager(Options{Command: []string{"gw"}}); err == nil {
		t.Error("missing port accepted")
	}
}
