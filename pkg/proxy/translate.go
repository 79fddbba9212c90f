package proxy

import (
	"encoding/json"
	"strings"

	"relaypoint/gateway/pkg/providers"
)

// Anthropic requires max_tokens; translated requests that omit it get
// this default.
const defaultMaxTokens = 4096

// Render serializes the request for a target speaking the given format,
// with the target's upstream model name in place of the alias.
//
// When the target speaks the client's own format the raw body is
// forwarded with only the model swapped, so unrecognized parameters
// survive. Cross-format dispatch rebuilds the body from the fields
// both formats share; text content blocks have the same shape in both
// conventions and pass through untouched.
func (r *Request) Render(format providers.Format, model string) ([]byte, error) {
	if format == r.Format {
		out := make(map[string]json.RawMessage, len(r.raw))
		for k, v := range r.raw {
			out[k] = v
		}
		modelJSON, err := json.Marshal(model)
		if err != nil {
			return nil, err
		}
		out["model"] = modelJSON
		return json.Marshal(out)
	}

	switch format {
	case providers.FormatAnthropic:
		return r.renderAnthropic(model)
	default:
		return r.renderOpenAI(model)
	}
}

type wireMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

func (r *Request) renderAnthropic(model string) ([]byte, error) {
	var inbound []wireMessage
	if raw := r.field("messages"); raw != nil {
		if err := json.Unmarshal(raw, &inbound); err != nil {
			return nil, &BadRequestError{Message: "messages must be an array of role/content objects"}
		}
	}

	// Anthropic carries the system prompt as a top-level field.
	var system []string
	messages := make([]wireMessage, 0, len(inbound))
	for _, m := range inbound {
		if m.Role == "system" || m.Role == "developer" {
			system = append(system, textOf(m.Content))
			continue
		}
		messages = append(messages, m)
	}

	out := map[string]any{
		"model":      model,
		"messages":   messages,
		"max_tokens": defaultMaxTokens,
	}
	if len(system) > 0 {
		out["system"] = strings.Join(system, "\n\n")
	}
	if r.Stream {
		out["stream"] = true
	}
	copyRawField(out, r.raw, "max_tokens", "max_tokens")
	copyRawField(out, r.raw, "temperature", "temperature")
	copyRawField(out, r.raw, "top_p", "top_p")
	if stop := stopSequences(r.field("stop")); len(stop) > 0 {
		out["stop_sequences"] = stop
	}

	return json.Marshal(out)
}

// stopSequences normalizes the stop parameter, which may be a single
// string or an array, into the array form.
func stopSequences(raw json.RawMessage) []string {
	if raw == nil {
		return nil
	}
	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		return []string{one}
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		return many
	}
	return nil
}

func (r *Request) renderOpenAI(model string) ([]byte, error) {
	var inbound []wireMessage
	if raw := r.field("messages"); raw != nil {
		if err := json.Unmarshal(raw, &inbound); err != nil {
			return nil, &BadRequestError{Message: "messages must be an array of role/content objects"}
		}
	}

	messages := make([]wireMessage, 0, len(inbound)+1)
	if sys := r.field("system"); sys != nil {
		text, err := json.Marshal(textOf(sys))
		if err != nil {
			return nil, err
		}
		messages = append(messages, wireMessage{Role: "system", Content: text})
	}
	messages = append(messages, inbound...)

	out := map[string]any{
		"model":    model,
		"messages": messages,
	}
	if r.Stream {
		out["stream"] = true
	}
	copyRawField(out, r.raw, "max_tokens", "max_tokens")
	copyRawField(out, r.raw, "temperature", "temperature")
	copyRawField(out, r.raw, "top_p", "top_p")
	copyRawField(out, r.raw, "stop_sequences", "stop")

	return json.Marshal(out)
}

func copyRawField(dst map[string]any, src map[string]json.RawMessage, from, to string) {
	if v, ok := src[from]; ok {
		dst[to] = v
	}
}

// textOf flattens a content value to plain text. Both formats allow a
// bare string or an array of content blocks with text parts.
func textOf(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var blocks []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return ""
	}
	var parts []string
	for _, b := range blocks {
		if b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}
