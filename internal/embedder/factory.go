package embedder

import (
	"fmt"
	"os"
	"strings"
)

// Provider names accepted by TSCONTEXT_EMBEDDING_PROVIDER
const (
	ProviderOpenAI = "openai"
	ProviderLocal  = "local"
)

// Environment variables consulted by NewFromEnv
const (
	EnvProvider      = "TSCONTEXT_EMBEDDING_PROVIDER"
	EnvOpenAIAPIKey  = "OPENAI_API_KEY"
	EnvOpenAIBaseURL = "OPENAI_BASE_URL"
)

// NewFromEnv selects a provider from the environment. An explicit
// TSCONTEXT_EMBEDDING_PROVIDER wins; otherwise openai is used when an API
// key is present and the offline local provider when not.
func NewFromEnv() (Embedder, error) {
	switch name := strings.ToLower(os.Getenv(EnvProvider)); name {
	case ProviderOpenAI:
		return NewOpenAI("", defaultCacheSize)
	case ProviderLocal:
		return NewLocal(defaultCacheSize), nil
	case "":
		if os.Getenv(EnvOpenAIAPIKey) != "" {
			return NewOpenAI("", defaultCacheSize)
		}
		return NewLocal(defaultCacheSize), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
}

// DetectProvider reports which provider NewFromEnv would pick
func DetectProvider() string {
	if name := strings.ToLower(os.Getenv(EnvProvider)); name != "" {
		return name
	}
	if os.Getenv(EnvOpenAIAPIKey) != "" {
		return ProviderOpenAI
	}
	return ProviderLocal
}
