package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/ironsheep/answer-eraser/internal/imaging"
)

// Provider identifies a completion backend wire format.
type Provider string

const (
	Claude Provider = "claude"
	OpenAI Provider = "openai"
	Gemini Provider = "gemini"
	Poe    Provider = "poe"
)

// Providers lists every supported provider.
var Providers = []Provider{Claude, OpenAI, Gemini, Poe}

// ParseProvider maps a configuration string to a Provider.
func ParseProvider(s string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Providers {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown provider %q", s)
}

const (
	claudeEndpoint = "https://api.anthropic.com/v1/messages"
	openAIEndpoint = "https://api.openai.com/v1/chat/completions"
	geminiEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/{model}:generateContent"
	poeEndpoint    = "https://api.poe.com/v1/chat/completions"

	anthropicVersion = "2023-06-01"

	// DefaultMaxTokens caps completion length where the wire format allows it.
	DefaultMaxTokens = 2048
)

var defaultModels = map[Provider]string{
	Claude: "claude-sonnet-4-5-20250929",
	OpenAI: "gpt-4o",
	Gemini: "gemini-pro",
	Poe:    "Claude-3.5-Sonnet",
}

var defaultCleanModels = map[Provider]string{
	Claude: "claude-sonnet-4-5-20250929",
	OpenAI: "gpt-4o",
	Gemini: "gemini-pro",
	Poe:    "Grok-Imagine-Image",
}

var defaultEndpoints = map[Provider]string{
	Claude: claudeEndpoint,
	OpenAI: openAIEndpoint,
	Gemini: geminiEndpoint,
	Poe:    poeEndpoint,
}

// Backend is the configuration of one completion backend. Provider selects
// the wire format; every other field falls back to the provider default when
// empty.
type Backend struct {
	Provider Provider
	// Endpoint overrides the provider URL. For Gemini the literal "{model}"
	// is replaced with the model name.
	Endpoint string
	// Model is used for completions.
	Model string
	// CleanModel is used for the full-image cleaning request.
	CleanModel string
	APIKey     string
	MaxTokens  int
}

// WithDefaults returns b with empty fields filled from the provider defaults.
func (b Backend) WithDefaults() Backend {
	if b.Endpoint == "" {
		b.Endpoint = defaultEndpoints[b.Provider]
	}
	if b.Model == "" {
		b.Model = defaultModels[b.Provider]
	}
	if b.CleanModel == "" {
		b.CleanModel = defaultCleanModels[b.Provider]
	}
	if b.MaxTokens == 0 {
		b.MaxTokens = DefaultMaxTokens
	}
	return b
}

// Validate reports configuration errors.
func (b Backend) Validate() error {
	if _, err := ParseProvider(string(b.Provider)); err != nil {
		return err
	}
	if b.APIKey == "" {
		return fmt.Errorf("no API key for provider %s", b.Provider)
	}
	return nil
}

// url returns the request URL for the given model.
func (b Backend) url(model string) string {
	return strings.ReplaceAll(b.Endpoint, "{model}", model)
}

// authorize sets the provider's authentication headers.
func (b Backend) authorize(h http.Header) {
	h.Set("Content-Type", "application/json")
	switch b.Provider {
	case Claude:
		h.Set("x-api-key", b.APIKey)
		h.Set("anthropic-version", anthropicVersion)
	case Gemini:
		h.Set("x-goog-api-key", b.APIKey)
	default:
		h.Set("Authorization", "Bearer "+b.APIKey)
	}
}

// buildBody encodes a single user message carrying the prompt and an optional
// image. maxTokens of 0 omits the limit.
func (b Backend) buildBody(model, prompt string, img *imaging.EncodedImage, maxTokens int) ([]byte, error) {
	switch b.Provider {
	case Claude:
		content := []claudePart{}
		if img != nil {
			content = append(content, claudePart{
				Type:   "image",
				Source: &claudeSource{Type: "base64", MediaType: img.MimeType, Data: img.ImageBase64},
			})
		}
		content = append(content, claudePart{Type: "text", Text: prompt})
		if maxTokens == 0 {
			// The messages API requires max_tokens.
			maxTokens = b.MaxTokens
		}
		return json.Marshal(claudeRequest{
			Model:     model,
			MaxTokens: maxTokens,
			Messages:  []claudeMessage{{Role: "user", Content: content}},
		})

	case OpenAI, Poe:
		content := []chatPart{{Type: "text", Text: prompt}}
		if img != nil {
			content = append(content, chatPart{Type: "image_url", ImageURL: &chatImageURL{URL: img.DataURI()}})
		}
		req := chatRequest{
			Model:     model,
			MaxTokens: maxTokens,
			Messages:  []chatMessage{{Role: "user", Content: content}},
		}
		if b.Provider == Poe {
			stream := false
			req.Stream = &stream
		}
		return json.Marshal(req)

	case Gemini:
		parts := []geminiPart{{Text: prompt}}
		if img != nil {
			parts = append(parts, geminiPart{InlineData: &geminiBlob{MimeType: img.MimeType, Data: img.ImageBase64}})
		}
		req := geminiRequest{Contents: []geminiContent{{Role: "user", Parts: parts}}}
		if maxTokens > 0 {
			req.GenerationConfig = &geminiConfig{MaxOutputTokens: maxTokens}
		}
		return json.Marshal(req)
	}
	return nil, fmt.Errorf("unknown provider %q", b.Provider)
}

// parseBody decodes a 2xx response into the assistant message.
func (b Backend) parseBody(body []byte) (*message, error) {
	switch b.Provider {
	case Claude:
		var resp claudeResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, err
		}
		if len(resp.Content) == 0 {
			return nil, fmt.Errorf("response has no content")
		}
		msg := &message{structured: true}
		for _, p := range resp.Content {
			switch {
			case p.Type == "text":
				msg.parts = append(msg.parts, part{kind: partText, text: p.Text})
			case p.Type == "image" && p.Source != nil:
				msg.parts = append(msg.parts, part{kind: partImage, url: p.Source.target()})
			}
		}
		return msg, nil

	case OpenAI, Poe:
		var resp chatResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, err
		}
		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("response has no choices")
		}
		return parseChatContent(resp.Choices[0].Message.Content)

	case Gemini:
		var resp geminiResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, err
		}
		if len(resp.Candidates) == 0 {
			return nil, fmt.Errorf("response has no candidates")
		}
		msg := &message{structured: true}
		for _, p := range resp.Candidates[0].Content.Parts {
			switch {
			case p.InlineData != nil:
				msg.parts = append(msg.parts, part{kind: partImage, url: dataURI(p.InlineData.MimeType, p.InlineData.Data)})
			case p.FileData != nil:
				msg.parts = append(msg.parts, part{kind: partImage, url: p.FileData.FileURI})
			default:
				msg.parts = append(msg.parts, part{kind: partText, text: p.Text})
			}
		}
		return msg, nil
	}
	return nil, fmt.Errorf("unknown provider %q", b.Provider)
}

// parseChatContent handles the chat-completions content field, which is
// either a string or an array of typed parts.
func parseChatContent(raw json.RawMessage) (*message, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, fmt.Errorf("message has no content")
	}

	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return &message{text: s}, nil
	}

	var parts []chatPart
	if err := json.Unmarshal(raw, &parts); err != nil {
		return nil, err
	}
	msg := &message{structured: true}
	for _, p := range parts {
		switch p.Type {
		case "text", "output_text":
			msg.parts = append(msg.parts, part{kind: partText, text: p.Text})
		case "image_url":
			if p.ImageURL != nil {
				msg.parts = append(msg.parts, part{kind: partImage, url: p.ImageURL.URL})
			}
		case "image":
			if p.URL != "" {
				msg.parts = append(msg.parts, part{kind: partImage, url: p.URL})
			}
		}
	}
	return msg, nil
}

func dataURI(mimeType, data string) string {
	if mimeType == "" {
		mimeType = "image/png"
	}
	return "data:" + mimeType + ";base64," + data
}

// Anthropic messages API.

type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	Messages  []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string       `json:"role"`
	Content []claudePart `json:"content"`
}

type claudePart struct {
	Type   string        `json:"type"`
	Text   string        `json:"text,omitempty"`
	Source *claudeSource `json:"source,omitempty"`
}

type claudeSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data,omitempty"`
	URL       string `json:"url,omitempty"`
}

func (s *claudeSource) target() string {
	if s.Type == "url" {
		return s.URL
	}
	return dataURI(s.MediaType, s.Data)
}

type claudeResponse struct {
	Content []claudePart `json:"content"`
}

// OpenAI-compatible chat completions (OpenAI, Poe).

type chatRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens,omitempty"`
	Messages  []chatMessage `json:"messages"`
	Stream    *bool         `json:"stream,omitempty"`
}

type chatMessage struct {
	Role    string     `json:"role"`
	Content []chatPart `json:"content"`
}

type chatPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
	URL      string        `json:"url,omitempty"`
}

type chatImageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Gemini generateContent.

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig *geminiConfig   `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *geminiBlob `json:"inlineData,omitempty"`
	FileData   *geminiFile `json:"fileData,omitempty"`
}

type geminiBlob struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiFile struct {
	MimeType string `json:"mimeType,omitempty"`
	FileURI  string `json:"fileUri"`
}

type geminiConfig struct {
	MaxOutputTokens int `json:"maxOutputTokens,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}
