package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// ServerSpec describes how to launch one MCP sub-service over stdio.
type ServerSpec struct {
	Command string            `json:"command"`
	Args    []string          `json:"args"`
	Env     map[string]string `json:"env"`
}

// ServerConfig is the parsed sub-service configuration file.
type ServerConfig struct {
	Servers map[string]ServerSpec `json:"mcpServers"`
}

// LoadServerConfig reads and validates the sub-service configuration.
func LoadServerConfig(path string) (*ServerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read server config: %w", err)
	}
	var cfg ServerConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(cfg.Servers) == 0 {
		return nil, fmt.Errorf("%s defines no servers under mcpServers", path)
	}
	for name, spec := range cfg.Servers {
		if spec.Command == "" {
			return nil, fmt.Errorf("server %q has no command", name)
		}
	}
	return &cfg, nil
}

// Names lists the configured server names, sorted for stable startup order.
func (c *ServerConfig) Names() []string {
	names := make([]string, 0, len(c.Servers))
	for name := range c.Servers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
