package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/smartbite/assistant/backend/internal/model/speech"
)

// Config aggregates every setting of the service.
type Config struct {
	Server ServerConfig
	Chat   ChatConfig
	Speech SpeechConfig
	Log    LogConfig
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	chat, err := loadChatConfig()
	if err != nil {
		return nil, err
	}

	speechCfg, err := loadSpeechConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server: server,
		Chat:   chat,
		Speech: speechCfg,
		Log:    LogConfig{Mode: getEnvOrDefault("LOG_MODE", "development")},
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	// ":8080" and "127.0.0.1:8080" are accepted as-is.
	if strings.Contains(port, ":") {
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// ChatConfig tunes the widget behaviour.
type ChatConfig struct {
	ReplyDelayMin    time.Duration
	ReplyDelayJitter time.Duration
	ListenTimeout    time.Duration
	RateLimitRPS     float64
	RateLimitBurst   int
	AllowedOrigins   []string
}

func loadChatConfig() (ChatConfig, error) {
	cfg := ChatConfig{
		ReplyDelayMin:    time.Second,
		ReplyDelayJitter: time.Second,
		ListenTimeout:    10 * time.Second,
		RateLimitRPS:     2,
		RateLimitBurst:   5,
		AllowedOrigins:   []string{"*"},
	}

	if ms, err := parseOptionalIntEnv("CHAT_REPLY_DELAY_MIN_MS"); err != nil {
		return ChatConfig{}, err
	} else if ms != nil {
		if *ms < 0 {
			return ChatConfig{}, fmt.Errorf("invalid CHAT_REPLY_DELAY_MIN_MS value %d: must not be negative", *ms)
		}
		cfg.ReplyDelayMin = time.Duration(*ms) * time.Millisecond
	}

	if ms, err := parseOptionalIntEnv("CHAT_REPLY_DELAY_JITTER_MS"); err != nil {
		return ChatConfig{}, err
	} else if ms != nil {
		if *ms < 0 {
			return ChatConfig{}, fmt.Errorf("invalid CHAT_REPLY_DELAY_JITTER_MS value %d: must not be negative", *ms)
		}
		cfg.ReplyDelayJitter = time.Duration(*ms) * time.Millisecond
	}

	if raw := strings.TrimSpace(os.Getenv("VOICE_LISTEN_TIMEOUT")); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return ChatConfig{}, fmt.Errorf("invalid VOICE_LISTEN_TIMEOUT value %q: %w", raw, err)
		}
		cfg.ListenTimeout = d
	}

	if rps, err := parseOptionalFloatEnv("RATE_LIMIT_RPS"); err != nil {
		return ChatConfig{}, err
	} else if rps != nil {
		cfg.RateLimitRPS = *rps
	}

	if burst, err := parseOptionalIntEnv("RATE_LIMIT_BURST"); err != nil {
		return ChatConfig{}, err
	} else if burst != nil {
		if *burst < 1 {
			return ChatConfig{}, fmt.Errorf("invalid RATE_LIMIT_BURST value %d: must be positive", *burst)
		}
		cfg.RateLimitBurst = *burst
	}

	if origins := splitList(os.Getenv("CORS_ALLOWED_ORIGINS")); len(origins) > 0 {
		cfg.AllowedOrigins = origins
	}

	return cfg, nil
}

// SpeechConfig describes the Volcengine ASR credentials.
type SpeechConfig struct {
	AppID          string
	AccessToken    string
	APIKey         string
	Region         string
	BaseURL        string
	ConcurrentMode bool
	ASRModel       string
	ASRLanguage    string
	Timeout        int
	Enabled        bool
}

// Model converts the settings into the speech client configuration.
func (c SpeechConfig) Model() *speech.SpeechConfig {
	return &speech.SpeechConfig{
		AppID:          c.AppID,
		AccessToken:    c.AccessToken,
		APIKey:         c.APIKey,
		Region:         c.Region,
		BaseURL:        c.BaseURL,
		ConcurrentMode: c.ConcurrentMode,
		ASRModel:       c.ASRModel,
		ASRLanguage:    c.ASRLanguage,
		Timeout:        c.Timeout,
	}
}

func loadSpeechConfig() (SpeechConfig, error) {
	timeout, err := parseOptionalIntEnv("SPEECH_TIMEOUT")
	if err != nil {
		return SpeechConfig{}, err
	}
	timeoutSeconds := 30
	if timeout != nil {
		timeoutSeconds = *timeout
	}

	concurrent, err := parseBoolEnv("SPEECH_CONCURRENT_MODE", false)
	if err != nil {
		return SpeechConfig{}, err
	}

	appID := strings.TrimSpace(os.Getenv("SPEECH_APP_ID"))
	apiKey := strings.TrimSpace(os.Getenv("SPEECH_API_KEY"))
	accessToken := strings.TrimSpace(os.Getenv("SPEECH_ACCESS_TOKEN"))
	if accessToken == "" {
		accessToken = apiKey
	}

	return SpeechConfig{
		AppID:          appID,
		AccessToken:    accessToken,
		APIKey:         apiKey,
		Region:         getEnvOrDefault("SPEECH_REGION", "cn-beijing"),
		BaseURL:        getEnvOrDefault("SPEECH_BASE_URL", ""),
		ConcurrentMode: concurrent,
		ASRModel:       getEnvOrDefault("SPEECH_ASR_MODEL", "bigmodel"),
		ASRLanguage:    getEnvOrDefault("SPEECH_ASR_LANGUAGE", "en-US"),
		Timeout:        timeoutSeconds,
		Enabled:        appID != "" && accessToken != "",
	}, nil
}

// LogConfig selects the zap preset.
type LogConfig struct {
	Mode string
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
