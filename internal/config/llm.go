package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/Veraticus/scribe/internal/common"
	"github.com/Veraticus/scribe/internal/llm"
)

// DefaultProvider is the extraction provider used when llm.provider is unset.
const DefaultProvider = "gemini"

// apiKeyEnv lists the environment variables consulted for each provider, in order.
var apiKeyEnv = map[string][]string{
	"openai":    {"OPENAI_API_KEY"},
	"anthropic": {"ANTHROPIC_API_KEY"},
	"gemini":    {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
}

// LoadGatewayConfig builds the extraction gateway configuration from v.
func LoadGatewayConfig(v *viper.Viper) (llm.Config, error) {
	provider := strings.ToLower(strings.TrimSpace(v.GetString("llm.provider")))
	if provider == "" {
		provider = DefaultProvider
	}

	envVars, ok := apiKeyEnv[provider]
	if !ok {
		return llm.Config{}, fmt.Errorf("%w: unsupported LLM provider %q", common.ErrInvalidConfig, provider)
	}

	cfg := llm.Config{
		Provider:    provider,
		Model:       v.GetString("llm.model"),
		BaseURL:     v.GetString("llm.base_url"),
		Temperature: v.GetFloat64("llm.temperature"),
		MaxTokens:   v.GetInt("llm.max_tokens"),
		RateLimit:   v.GetInt("llm.rate_limit"),
		Timeout:     v.GetDuration("llm.timeout"),
		APIKey:      v.GetString("llm." + provider + "_api_key"),
	}

	for _, name := range envVars {
		if cfg.APIKey != "" {
			break
		}
		cfg.APIKey = os.Getenv(name)
	}
	if cfg.APIKey == "" {
		return llm.Config{}, fmt.Errorf("%w: %s API key not found in llm.%s_api_key or %s",
			common.ErrMissingConfig, provider, provider, strings.Join(envVars, "/"))
	}

	return cfg, nil
}
