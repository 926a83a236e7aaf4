package llm

import (
	"context"
	"fmt"
)

// Provider defines the interface for LLM extraction backends
type Provider interface {
	// Name returns the provider name
	Name() string

	// Extract asks the model to read a document and emit structured
	// evidence records as a JSON payload
	Extract(ctx context.Context, req ExtractRequest) (*ExtractResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// ExtractRequest contains the input for one extraction call
type ExtractRequest struct {
	// DocID identifies the document being read
	DocID string

	// DocText is the full normalized document text
	DocText string

	// Role biases the extraction (e.g. "dates", "amounts", "legal_refs");
	// empty means extract everything
	Role string

	// Prompt is an optional custom prompt (if empty, use default)
	Prompt string

	// Model is the specific model to use (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// ExtractResponse contains the raw payload from the model. The payload
// is handed to the decoder untouched: parsing and salvage happen
// downstream, never here.
type ExtractResponse struct {
	// Payload is the raw model output
	Payload string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:  "", // Disabled by default
		Model:     "",
		Timeout:   60,
		MaxTokens: 4000,
	}
}

// systemPrompt pins the extraction contract: structured records with
// character offsets, no commentary.
const systemPrompt = "You are an evidence extraction engine. You read documents and emit structured evidence records as JSON. You never summarize, interpret, or judge truth: you only locate and transcribe."

// BuildPrompt constructs the default extraction prompt. The offsets the
// model reports are checked downstream against the document index, so
// the prompt insists on exact character positions.
func BuildPrompt(docID, docText, role string) string {
	focus := "every fact, date, amount, legal reference, entity and visual element you can locate"
	if role != "" {
		focus = fmt.Sprintf("items of kind %q only", role)
	}

	return fmt.Sprintf(`Read the document below and extract %s.

Respond with ONLY a JSON object of this exact shape, no prose before or after:

{"items": [{"kind": "...", "value": "...", "raw_text": "...", "start_char": 0, "end_char": 0, "page": 1, "method": "text", "confidence": 0.9}]}

RULES:
1. kind is one of: fact, date, amount, legal_ref, entity, visual, other.
2. value is the normalized form (ISO dates, plain decimal amounts).
3. raw_text is the verbatim source text, unmodified.
4. start_char and end_char are exact 0-based character offsets into the
   document text below, end exclusive. They will be verified.
5. Omit items you cannot anchor to a location. Never invent offsets.

Document %s:
---
%s
---`, focus, docID, docText)
}
