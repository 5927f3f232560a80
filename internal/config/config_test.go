package config

import "testing"

// --- FromEnv ---

func TestFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{
		"JUPYTER_BASE_URL", "JUPYTER_TOKEN", "MCP_TRANSPORT",
		"MCP_HOST", "MCP_PORT", "NBMCP_LOG_LEVEL", "NBMCP_HISTORY_PATH",
	} {
		t.Setenv(key, "")
	}

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}

	if cfg.Transport != TransportStdio {
		t.Errorf("Transport = %s, want stdio", cfg.Transport)
	}
	if got := cfg.HTTPAddr(); got != "127.0.0.1:8000" {
		t.Errorf("HTTPAddr() = %s, want 127.0.0.1:8000", got)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %s, want info", cfg.LogLevel)
	}
	if cfg.JupyterBaseURL != "" {
		t.Errorf("JupyterBaseURL = %q, want empty", cfg.JupyterBaseURL)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("JUPYTER_BASE_URL", "http://localhost:8888/")
	t.Setenv("JUPYTER_TOKEN", "secret")
	t.Setenv("MCP_TRANSPORT", "streamable-http")
	t.Setenv("MCP_HOST", "0.0.0.0")
	t.Setenv("MCP_PORT", "9000")
	t.Setenv("NBMCP_LOG_LEVEL", "debug")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}

	if cfg.JupyterBaseURL != "http://localhost:8888" {
		t.Errorf("JupyterBaseURL = %q, want trailing slash trimmed", cfg.JupyterBaseURL)
	}
	if cfg.JupyterToken != "secret" {
		t.Errorf("JupyterToken = %q, want secret", cfg.JupyterToken)
	}
	if cfg.Transport != TransportStreamableHTTP {
		t.Errorf("Transport = %s, want streamable-http", cfg.Transport)
	}
	if got := cfg.HTTPAddr(); got != "0.0.0.0:9000" {
		t.Errorf("HTTPAddr() = %s, want 0.0.0.0:9000", got)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %s, want debug", cfg.LogLevel)
	}
}

func TestFromEnv_UnknownTransportMeansStdio(t *testing.T) {
	t.Setenv("MCP_TRANSPORT", "websocket")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}
	if cfg.Transport != TransportStdio {
		t.Errorf("Transport = %s, want stdio fallback", cfg.Transport)
	}
}

func TestFromEnv_InvalidPort(t *testing.T) {
	for _, bad := range []string{"abc", "-1", "0", "70000"} {
		t.Setenv("MCP_PORT", bad)
		if _, err := FromEnv(); err == nil {
			t.Errorf("FromEnv() with MCP_PORT=%q: want error, got nil", bad)
		}
	}
}
