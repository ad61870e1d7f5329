package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds secrets that live next to the display settings but are never
// broadcast to the overlay.
type Config struct {
	OverlayPasswordHash string  `json:"overlay_password_hash,omitempty"`
	TelegramBotToken    string  `json:"telegram_bot_token,omitempty"`
	TelegramChats       []int64 `json:"telegram_chats,omitempty"`
}

// Options is the runtime configuration assembled from .env, the process
// environment and config.json.
type Options struct {
	CaptionCommand    string
	CaptionArgs       []string
	ListenAddr        string
	TranslateEndpoint string
	TranslateClient   string
	Config            Config
}

const (
	defaultListenAddr        = "localhost:8080"
	defaultTranslateEndpoint = "https://clients5.google.com/translate_a/t"
	defaultTranslateClient   = "dict-chrome-ex"
	defaultCaptionCommand    = "livecaptions"
)

// configPathOverride allows tests to redirect config to a temp directory
var configPathOverride string

func getConfigDir() string {
	if configPathOverride != "" {
		return filepath.Dir(configPathOverride)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".livesub")
}

func getConfigPath() string {
	if configPathOverride != "" {
		dir := filepath.Dir(configPathOverride)
		os.MkdirAll(dir, 0700)
		return configPathOverride
	}
	configDir := getConfigDir()
	os.MkdirAll(configDir, 0700)
	return filepath.Join(configDir, "config.json")
}

func getSettingsPath() string {
	return filepath.Join(getConfigDir(), "settings.json")
}

func loadConfig() (*Config, error) {
	data, err := os.ReadFile(getConfigPath())
	if err != nil {
		return nil, err
	}

	var config Config
	err = json.Unmarshal(data, &config)
	return &config, err
}

func saveConfig(config *Config) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(getConfigPath(), data, 0600)
}

// loadOptions reads .env (if present) then the environment. Environment
// values win over config.json for the Telegram relay.
func loadOptions() Options {
	_ = godotenv.Load()

	opts := Options{
		CaptionCommand:    envOr("LIVESUB_CAPTION_CMD", defaultCaptionCommand),
		ListenAddr:        envOr("LIVESUB_LISTEN", defaultListenAddr),
		TranslateEndpoint: envOr("LIVESUB_TRANSLATE_ENDPOINT", defaultTranslateEndpoint),
		TranslateClient:   envOr("LIVESUB_TRANSLATE_CLIENT", defaultTranslateClient),
	}

	// The command may carry its own arguments: "whisper-stream --model base"
	if fields := strings.Fields(opts.CaptionCommand); len(fields) > 1 {
		opts.CaptionCommand = fields[0]
		opts.CaptionArgs = fields[1:]
	}

	if cfg, err := loadConfig(); err == nil {
		opts.Config = *cfg
	}
	if token := os.Getenv("LIVESUB_TELEGRAM_TOKEN"); token != "" {
		opts.Config.TelegramBotToken = token
	}
	if chats := parseChatIDs(os.Getenv("LIVESUB_TELEGRAM_CHATS")); len(chats) > 0 {
		opts.Config.TelegramChats = chats
	}
	return opts
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// parseChatIDs parses a comma separated list, skipping invalid entries.
func parseChatIDs(s string) []int64 {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
