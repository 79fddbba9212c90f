package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// modelListServer answers GET /v1/models for the given auth scheme only.
func modelListServer(t *testing.T, acceptBearer, acceptAPIKey bool, models []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models" {
			http.NotFound(w, r)
			return
		}

		bearer := r.Header.Get("Authorization") != ""
		apiKey := r.Header.Get("x-api-key") != ""
		if (bearer && !acceptBearer) || (apiKey && !acceptAPIKey) || (!bearer && !apiKey) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		type entry struct {
			ID string `json:"id"`
		}
		var data []entry
		for _, m := range models {
			data = append(data, entry{ID: m})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"object": "list", "data": data})
	}))
}

func TestDiscoverSetsFormatFlags(t *testing.T) {
	openaiOnly := modelListServer(t, true, false, []string{"gpt-4"})
	defer openaiOnly.Close()
	anthropicOnly := modelListServer(t, false, true, []string{"claude-3-haiku"})
	defer anthropicOnly.Close()
	both := modelListServer(t, true, true, []string{"omni-1"})
	defer both.Close()

	pa := New("a", openaiOnly.URL, []string{"k"})
	pb := New("b", anthropicOnly.URL, []string{"k"})
	pc := New("c", both.URL, []string{"k"})
	reg := NewRegistry([]*Provider{pa, pb, pc}, RegistryOptions{})
	defer reg.Close()

	NewDiscoverer(reg, 5*time.Second).Discover(context.Background())

	if !pa.SupportsOpenAI() || pa.SupportsAnthropic() {
		t.Errorf("provider a: openai=%v anthropic=%v, want true/false",
			pa.SupportsOpenAI(), pa.SupportsAnthropic())
	}
	if pb.SupportsOpenAI() || !pb.SupportsAnthropic() {
		t.Errorf("provider b: openai=%v anthropic=%v, want false/true",
			pb.SupportsOpenAI(), pb.SupportsAnthropic())
	}
	if !pc.SupportsOpenAI() || !pc.SupportsAnthropic() {
		t.Errorf("provider c: openai=%v anthropic=%v, want true/true",
			pc.SupportsOpenAI(), pc.SupportsAnthropic())
	}

	if !pa.HasModel("gpt-4") {
		t.Error("provider a should have discovered gpt-4")
	}
	if !pb.HasModel("claude-3-haiku") {
		t.Error("provider b should have discovered claude-3-haiku")
	}
}

func TestDiscoverUnreachableProvider(t *testing.T) {
	p := New("down", "http://127.0.0.1:1", []string{"k"})
	reg := NewRegistry([]*Provider{p}, RegistryOptions{})
	defer reg.Close()

	NewDiscoverer(reg, 2*time.Second).Discover(context.Background())

	if p.Discovered() {
		t.Error("unreachable provider must not be marked discovered")
	}
	// Still registered for diagnostics.
	if reg.Get("down") == nil {
		t.Error("unreachable provider must stay registered")
	}
}

func TestDiscoverProbeTimeout(t *testing.T) {
	stall := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer stall.Close()

	p := New("slow", stall.URL, []string{"k"})
	reg := NewRegistry([]*Provider{p}, RegistryOptions{})
	defer reg.Close()

	start := time.Now()
	NewDiscoverer(reg, 100*time.Millisecond).Discover(context.Background())

	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("discovery took %s, probe timeout not enforced", elapsed)
	}
	if p.Discovered() {
		t.Error("timed-out provider must not be marked discovered")
	}
}

func TestRediscoverSkipsDiscovered(t *testing.T) {
	var hits atomic.Int32
	counted := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"object":"list","data":[{"id":"m1"}]}`))
	}))
	defer counted.Close()

	p := New("up", counted.URL, []string{"k"})
	reg := NewRegistry([]*Provider{p}, RegistryOptions{})
	defer reg.Close()

	d := NewDiscoverer(reg, 5*time.Second)
	d.Discover(context.Background())
	if !p.Discovered() {
		t.Fatal("provider should be discovered after boot probes")
	}

	before := hits.Load()
	d.Rediscover(context.Background())
	if got := hits.Load(); got != before {
		t.Errorf("rediscover probed an already-discovered provider (%d extra hits)", got-before)
	}
}

func TestParseModelList(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{
			name: "openai shape",
			body: `{"object":"list","data":[{"id":"gpt-4"},{"id":"gpt-3.5-turbo"}]}`,
			want: []string{"gpt-4", "gpt-3.5-turbo"},
		},
		{
			name: "models shape with names",
			body: `{"models":[{"name":"llama3"},{"id":"mistral"}]}`,
			want: []string{"llama3", "mistral"},
		},
		{
			name: "empty list",
			body: `{"object":"list","data":[]}`,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseModelList([]byte(tt.body))
			if err != nil {
				t.Fatalf("parseModelList: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got %v, want %v", got, tt.want)
					break
				}
			}
		})
	}

	if _, err := parseModelList([]byte("not json")); err == nil {
		t.Error("expected error for malformed body")
	}
}

// probeLog is a ProbeRecorder capturing results keyed provider/format.
type probeLog struct {
	mu      sync.Mutex
	results map[string]string
}

func (l *probeLog) RecordProbe(provider, format, result string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.results[provider+"/"+format] = result
}

func TestDiscoverReportsProbeOutcomes(t *testing.T) {
	srv := modelListServer(t, true, false, []string{"gpt-4"})
	defer srv.Close()

	p := New("a", srv.URL, []string{"k"})
	reg := NewRegistry([]*Provider{p}, RegistryOptions{})
	defer reg.Close()

	rec := &probeLog{results: make(map[string]string)}
	d := NewDiscoverer(reg, 5*time.Second)
	d.Recorder = rec
	d.Discover(context.Background())

	rec.mu.Lock()
	defer rec.mu.Unlock()
	for key, want := range map[string]string{"a/openai": "ok", "a/anthropic": "failed"} {
		if got := rec.results[key]; got != want {
			t.Errorf("probe %s = %q, want %q", key, got, want)
		}
	}
}
