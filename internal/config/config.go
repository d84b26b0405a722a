// Package config loads environment credentials, chat client settings, and
// the sub-service configuration file.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variable names used across the suite.
const (
	EnvTopvisorAPIKey = "TOPVISOR_API_KEY"
	EnvTopvisorUserID = "TOPVISOR_USER_ID"
	EnvAhrefsAPIKey   = "AHREFS_API_KEY"
	EnvAnthropicKey   = "ANTHROPIC_API_KEY"
	EnvTransport      = "MCP_SERVER_TRANSPORT"
	EnvPort           = "MCP_SERVER_PORT"
)

// LoadEnv loads variables from .env into the process environment. A
// missing .env file is not an error; explicit environment always wins.
func LoadEnv() {
	_ = godotenv.Load()
}

// Transport selects how the MCP server communicates with its client.
type Transport string

const (
	TransportStdio Transport = "stdio"
	TransportHTTP  Transport = "http"
)

// NormalizeTransport validates a transport mode string.
func NormalizeTransport(value string) (Transport, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "stdio":
		return TransportStdio, nil
	case "http", "streamable-http":
		return TransportHTTP, nil
	default:
		return "", fmt.Errorf("unsupported transport %q (expected stdio or http)", value)
	}
}

// ServerEnv is the MCP server's runtime configuration, read from the
// environment.
type ServerEnv struct {
	Transport Transport
	Port      int
	PapersDir string
}

// ServerFromEnv reads the server transport mode and port.
func ServerFromEnv() (ServerEnv, error) {
	transport, err := NormalizeTransport(os.Getenv(EnvTransport))
	if err != nil {
		return ServerEnv{}, err
	}
	port := 3000
	if text := strings.TrimSpace(os.Getenv(EnvPort)); text != "" {
		port, err = strconv.Atoi(text)
		if err != nil {
			return ServerEnv{}, fmt.Errorf("invalid %s %q", EnvPort, text)
		}
	}
	return ServerEnv{Transport: transport, Port: port, PapersDir: "papers"}, nil
}

// Chat holds the chat client's settings.
type Chat struct {
	Model            string `yaml:"model"`
	MaxTokens        int    `yaml:"max_tokens"`
	ServerConfigPath string `yaml:"server_config"`
	HistoryDBPath    string `yaml:"history_db"`
}

// DefaultChat returns the chat settings used when no config file exists.
func DefaultChat() Chat {
	return Chat{
		Model:            "claude-3-7-sonnet-20250219",
		MaxTokens:        2024,
		ServerConfigPath: "server_config.json",
		HistoryDBPath:    defaultHistoryDBPath(),
	}
}

func defaultHistoryDBPath() string {
	if dir := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); dir != "" {
		return filepath.Join(dir, "mcp-seo", "history.db")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "history.db")
	}
	return filepath.Join(home, ".local", "share", "mcp-seo", "history.db")
}

// LoadChat reads chat settings from a YAML file, filling defaults for
// absent fields and expanding environment references in paths. A missing
// file yields the defaults.
func LoadChat(path string) (Chat, error) {
	cfg := DefaultChat()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Chat{}, err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var loaded Chat
	if err := dec.Decode(&loaded); err != nil {
		return Chat{}, fmt.Errorf("parse %s: %w", path, err)
	}

	if loaded.Model != "" {
		cfg.Model = loaded.Model
	}
	if loaded.MaxTokens > 0 {
		cfg.MaxTokens = loaded.MaxTokens
	}
	if loaded.ServerConfigPath != "" {
		cfg.ServerConfigPath = os.ExpandEnv(loaded.ServerConfigPath)
	}
	if loaded.HistoryDBPath != "" {
		cfg.HistoryDBPath = os.ExpandEnv(loaded.HistoryDBPath)
	}
	return cfg, nil
}
