// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Transport names for the MCP server.
const (
	TransportStdio          = "stdio"
	TransportStreamableHTTP = "streamable-http"
)

// Config holds everything the server reads from the environment.
type Config struct {
	// JupyterBaseURL is the Jupyter Server root, e.g. "http://localhost:8888".
	// Empty means the Jupyter-facing tools refuse with a configuration error;
	// the notebook analysis tools keep working without it.
	JupyterBaseURL string
	// JupyterToken is the optional API token, sent as "Authorization: token <t>"
	// on REST calls and as the ?token= query parameter on websocket connects.
	JupyterToken string

	// Transport selects the MCP transport: stdio (default) or streamable-http.
	// Anything other than the exact streamable-http name means stdio.
	Transport string
	// HTTPHost and HTTPPort bind the streamable-http transport.
	HTTPHost string
	HTTPPort int

	// LogLevel is the logging facade level: debug, info, warn, error, fatal.
	LogLevel string

	// HistoryPath overrides the execution history database location.
	// Empty means the history store's own default applies.
	HistoryPath string
}

// FromEnv reads configuration from the process environment.
//
// Variables: JUPYTER_BASE_URL, JUPYTER_TOKEN, MCP_TRANSPORT, MCP_HOST,
// MCP_PORT, NBMCP_LOG_LEVEL, NBMCP_HISTORY_PATH.
func FromEnv() (Config, error) {
	cfg := Config{
		JupyterBaseURL: strings.TrimRight(os.Getenv("JUPYTER_BASE_URL"), "/"),
		JupyterToken:   os.Getenv("JUPYTER_TOKEN"),
		Transport:      TransportStdio,
		HTTPHost:       "127.0.0.1",
		HTTPPort:       8000,
		LogLevel:       "info",
		HistoryPath:    os.Getenv("NBMCP_HISTORY_PATH"),
	}

	if t := os.Getenv("MCP_TRANSPORT"); t == TransportStreamableHTTP {
		cfg.Transport = TransportStreamableHTTP
	}
	if h := os.Getenv("MCP_HOST"); h != "" {
		cfg.HTTPHost = h
	}
	if p := os.Getenv("MCP_PORT"); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil || port <= 0 || port > 65535 {
			return Config{}, fmt.Errorf("config: invalid MCP_PORT %q", p)
		}
		cfg.HTTPPort = port
	}
	if l := os.Getenv("NBMCP_LOG_LEVEL"); l != "" {
		cfg.LogLevel = l
	}

	return cfg, nil
}

// HTTPAddr returns the streamable-http listen address.
func (c Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.HTTPHost, c.HTTPPort)
}
