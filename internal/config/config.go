package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ServerBaseURL     string
	WSBaseURL         string
	AuthToken         string
	JournalEnabled    bool
	JournalPath       string
	DialTimeout       time.Duration
	RequestTimeout    time.Duration
	SnapshotCacheSize int
}

func Load() Config {
	dialTimeoutSec := envInt("STEWARD_DIAL_TIMEOUT_SECONDS", 10)
	requestTimeoutSec := envInt("STEWARD_REQUEST_TIMEOUT_SECONDS", 30)
	baseDir := executableDir()

	serverBase := strings.TrimRight(env("STEWARD_SERVER_URL", "http://127.0.0.1:8765"), "/")
	wsBase := strings.TrimRight(strings.TrimSpace(os.Getenv("STEWARD_WS_URL")), "/")
	if wsBase == "" {
		wsBase = deriveWSBase(serverBase)
	}

	return Config{
		ServerBaseURL:     serverBase,
		WSBaseURL:         wsBase,
		AuthToken:         env("STEWARD_AUTH_TOKEN", ""),
		JournalEnabled:    envBool("STEWARD_JOURNAL_ENABLED", true),
		JournalPath:       envPath("STEWARD_JOURNAL_PATH", filepath.Join(baseDir, "steward.db"), baseDir),
		DialTimeout:       time.Duration(dialTimeoutSec) * time.Second,
		RequestTimeout:    time.Duration(requestTimeoutSec) * time.Second,
		SnapshotCacheSize: envInt("STEWARD_SNAPSHOT_CACHE_SIZE", 8),
	}
}

// deriveWSBase maps the HTTP base URL onto its websocket counterpart when no
// explicit STEWARD_WS_URL is configured.
func deriveWSBase(serverBase string) string {
	switch {
	case strings.HasPrefix(serverBase, "https://"):
		return "wss://" + strings.TrimPrefix(serverBase, "https://")
	case strings.HasPrefix(serverBase, "http://"):
		return "ws://" + strings.TrimPrefix(serverBase, "http://")
	}
	return serverBase
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envBool(k string, def bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(k)))
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

func envPath(k, def, baseDir string) string {
	v := env(k, def)
	if v == "" {
		return v
	}
	if filepath.IsAbs(v) {
		return v
	}
	if baseDir == "" {
		return v
	}
	return filepath.Join(baseDir, v)
}

func executableDir() string {
	exe, err := os.Executable()
	if err != nil || exe == "" {
		return "."
	}
	if real, err := filepath.EvalSymlinks(exe); err == nil && real != "" {
		exe = real
	}
	dir := filepath.Dir(exe)
	if dir == "" {
		return "."
	}
	return dir
}
