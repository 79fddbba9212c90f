package proxy

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"relaypoint/gateway/pkg/providers"
)

func parseAs(t *testing.T, format providers.Format, body string) *Request {
	t.Helper()
	r := httptest.NewRequest("POST", "/", strings.NewReader(body))
	req, err := ParseRequest(r, format, 1<<20)
	if err != nil {
		t.Fatal(err)
	}
	return req
}

func TestRenderSameFormatSwapsModelOnly(t *testing.T) {
	req := parseAs(t, providers.FormatOpenAI,
		`{"model":"fast","messages":[{"role":"user","content":"hi"}],"seed":42,"logprobs":true}`)

	out, err := req.Render(providers.FormatOpenAI, "llama3:8b")
	if err != nil {
		t.Fatal(err)
	}

	var got map[string]any
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatal(err)
	}
	if got["model"] != "llama3:8b" {
		t.Errorf("model = %v", got["model"])
	}
	// Parameters the gateway does not understand must survive untouched.
	if got["seed"] != float64(42) || got["logprobs"] != true {
		t.Errorf("passthrough fields lost: %v", got)
	}
}

func TestRenderOpenAIToAnthropic(t *testing.T) {
	req := parseAs(t, providers.FormatOpenAI, `{
		"model": "fast",
		"messages": [
			{"role": "system", "content": "be brief"},
			{"role": "user", "content": "hi"}
		],
		"temperature": 0.2,
		"stop": "END"
	}`)

	out, err := req.Render(providers.FormatAnthropic, "claude-x")
	if err != nil {
		t.Fatal(err)
	}

	var got struct {
		Model     string        `json:"model"`
		System    string        `json:"system"`
		MaxTokens int           `json:"max_tokens"`
		Messages  []wireMessage `json:"messages"`
		Stop      []string      `json:"stop_sequences"`
		Temp      float64       `json:"temperature"`
	}
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatal(err)
	}
	if got.Model != "claude-x" {
		t.Errorf("model = %q", got.Model)
	}
	if got.System != "be brief" {
		t.Errorf("system = %q", got.System)
	}
	if got.MaxTokens != defaultMaxTokens {
		t.Errorf("max_tokens = %d, want default %d", got.MaxTokens, defaultMaxTokens)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != "user" {
		t.Errorf("messages = %+v", got.Messages)
	}
	if len(got.Stop) != 1 || got.Stop[0] != "END" {
		t.Errorf("stop_sequences = %v", got.Stop)
	}
	if got.Temp != 0.2 {
		t.Errorf("temperature = %v", got.Temp)
	}
}

func TestRenderOpenAIToAnthropicKeepsMaxTokens(t *testing.T) {
	req := parseAs(t, providers.FormatOpenAI, `{"model":"fast","messages":[],"max_tokens":100}`)
	out, err := req.Render(providers.FormatAnthropic, "m")
	if err != nil {
		t.Fatal(err)
	}
	var got struct {
		MaxTokens int `json:"max_tokens"`
	}
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatal(err)
	}
	if got.MaxTokens != 100 {
		t.Errorf("max_tokens = %d, want 100", got.MaxTokens)
	}
}

func TestRenderAnthropicToOpenAI(t *testing.T) {
	req := parseAs(t, providers.FormatAnthropic, `{
		"model": "smart",
		"system": "be brief",
		"messages": [{"role": "user", "content": "hi"}],
		"max_tokens": 256,
		"stop_sequences": ["END", "STOP"],
		"stream": true
	}`)

	out, err := req.Render(providers.FormatOpenAI, "gpt-local")
	if err != nil {
		t.Fatal(err)
	}

	var got struct {
		Model     string   `json:"model"`
		Messages  []wireMessage `json:"messages"`
		MaxTokens int      `json:"max_tokens"`
		Stop      []string `json:"stop"`
		Stream    bool     `json:"stream"`
	}
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatal(err)
	}
	if got.Model != "gpt-local" {
		t.Errorf("model = %q", got.Model)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" {
		t.Fatalf("messages = %+v", got.Messages)
	}
	var sys string
	if err := json.Unmarshal(got.Messages[0].Content, &sys); err != nil || sys != "be brief" {
		t.Errorf("system message content = %s", got.Messages[0].Content)
	}
	if got.MaxTokens != 256 {
		t.Errorf("max_tokens = %d", got.MaxTokens)
	}
	if len(got.Stop) != 2 || got.Stop[0] != "END" {
		t.Errorf("stop = %v", got.Stop)
	}
	if !got.Stream {
		t.Error("stream flag lost")
	}
}

func TestTextOf(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`"plain"`, "plain"},
		{`[{"type":"text","text":"a"},{"type":"text","text":"b"}]`, "a\nb"},
		{`[{"type":"image","source":{}}]`, ""},
		{`42`, ""},
	}
	for _, tc := range cases {
		if got := textOf(json.RawMessage(tc.in)); got != tc.want {
			t.Errorf("textOf(%s) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
