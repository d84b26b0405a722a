package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNormalizeTransport(t *testing.T) {
	cases := []struct {
		in   string
		want Transport
		ok   bool
	}{
		{"", TransportStdio, true},
		{"stdio", TransportStdio, true},
		{"HTTP", TransportHTTP, true},
		{"streamable-http", TransportHTTP, true},
		{" stdio ", TransportStdio, true},
		{"sse", "", false},
	}
	for _, tc := range cases {
		got, err := NormalizeTransport(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Errorf("NormalizeTransport(%q) = (%q, %v), want %q", tc.in, got, err, tc.want)
		}
		if !tc.ok && err == nil {
			t.Errorf("NormalizeTransport(%q) should fail", tc.in)
		}
	}
}

func TestServerFromEnv(t *testing.T) {
	t.Setenv(EnvTransport, "http")
	t.Setenv(EnvPort, "8080")

	env, err := ServerFromEnv()
	if err != nil {
		t.Fatalf("ServerFromEnv: %v", err)
	}
	if env.Transport != TransportHTTP || env.Port != 8080 {
		t.Errorf("env = %+v", env)
	}
	if env.PapersDir != "papers" {
		t.Errorf("papers dir = %q", env.PapersDir)
	}

	t.Setenv(EnvPort, "not-a-port")
	if _, err := ServerFromEnv(); err == nil {
		t.Error("invalid port should fail")
	}
}

func TestLoadChatMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := LoadChat(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadChat: %v", err)
	}
	defaults := DefaultChat()
	if cfg.Model != defaults.Model || cfg.MaxTokens != defaults.MaxTokens {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadChatOverridesAndExpansion(t *testing.T) {
	t.Setenv("TEST_CONFIG_HOME", "/tmp/conf")
	path := filepath.Join(t.TempDir(), "chat.yaml")
	content := "model: claude-test\nmax_tokens: 512\nserver_config: ${TEST_CONFIG_HOME}/servers.json\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadChat(path)
	if err != nil {
		t.Fatalf("LoadChat: %v", err)
	}
	if cfg.Model != "claude-test" || cfg.MaxTokens != 512 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.ServerConfigPath != "/tmp/conf/servers.json" {
		t.Errorf("server config path = %q", cfg.ServerConfigPath)
	}
	if cfg.HistoryDBPath == "" {
		t.Error("history path must fall back to the default")
	}
}

func TestLoadChatRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat.yaml")
	if err := os.WriteFile(path, []byte("modle: typo\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadChat(path); err == nil {
		t.Error("unknown field should fail the decode")
	}
}

func TestLoadServerConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server_config.json")
	content := `{"mcpServers":{
		"research": {"command": "./seo-server", "args": ["-transport", "stdio"], "env": {"MCP_SERVER_TRANSPORT": "stdio"}}
	}}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadServerConfig(path)
	if err != nil {
		t.Fatalf("LoadServerConfig: %v", err)
	}
	spec := cfg.Servers["research"]
	if spec.Command != "./seo-server" || len(spec.Args) != 2 {
		t.Errorf("spec = %+v", spec)
	}
	if got := cfg.Names(); len(got) != 1 || got[0] != "research" {
		t.Errorf("names = %v", got)
	}
}

func TestLoadServerConfigValidation(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.json")
	os.WriteFile(empty, []byte(`{"mcpServers":{}}`), 0o644)
	if _, err := LoadServerConfig(empty); err == nil {
		t.Error("empty server set should fail")
	}

	noCommand := filepath.Join(dir, "nocmd.json")
	os.WriteFile(noCommand, []byte(`{"mcpServers":{"x":{"args":["a"]}}}`), 0o644)
	if _, err := LoadServerConfig(noCommand); err == nil {
		t.Error("missing command should fail")
	}

	if _, err := LoadServerConfig(filepath.Join(dir, "absent.json")); err == nil {
		t.Error("missing file should fail")
	}
}
