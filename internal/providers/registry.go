package providers

import (
	"fmt"
	"strings"
)

// New builds a provider from its config values.
func New(name, apiKey, baseURL, model string) (Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("provider %q: api key not set", name)
	}

	switch strings.ToLower(name) {
	case "anthropic", "":
		return NewAnthropicProvider(apiKey,
			WithAnthropicModel(model),
			WithAnthropicBaseURL(baseURL),
		), nil
	case "openai":
		return NewOpenAIProvider(apiKey, baseURL, model), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}
