package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables that override file configuration.
const (
	EnvLogLevel  = "UNIFIEDOPS_LOG_LEVEL"
	EnvLogFormat = "UNIFIEDOPS_LOG_FORMAT"
	EnvHTTPPort  = "UNIFIEDOPS_HTTP_PORT"

	// EnvHome relocates the data directory (default ~/.unifiedops).
	EnvHome = "UNIFIEDOPS_HOME"
)

// DirName is the data directory created under the user's home.
const DirName = ".unifiedops"

// BaseDir returns the data directory: $UNIFIEDOPS_HOME when set, else ~/.unifiedops.
func BaseDir() (string, error) {
	if v := strings.TrimSpace(os.Getenv(EnvHome)); v != "" {
		return filepath.Abs(v)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, DirName), nil
}

// Config holds application configuration.
type Config struct {
	// AllowedPaths is an allowlist of directories for import/export operations.
	// Paths outside ~/.unifiedops/exports require either being in this list or AllowUnsafePaths=true.
	// Paths should be absolute (relative paths are ignored).
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// AllowUnsafePaths disables directory restrictions for import/export.
	// Symlink and extension checks still apply.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes is a list of tool type names ("booking", "inventory", ...) to disable entirely.
	DisabledTypes []string `json:"disabled_types,omitempty"`

	// LogLevel is a logrus level name: debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty"`

	// LogFormat selects the log formatter: "text" (default) or "json".
	LogFormat string `json:"log_format,omitempty"`

	// ReminderSchedule is the cron spec for the form reminder job.
	ReminderSchedule string `json:"reminder_schedule,omitempty"`

	// ReminderLeadHours is how far ahead of a booking the reminder goes out.
	ReminderLeadHours int `json:"reminder_lead_hours,omitempty"`

	// HTTPBind and HTTPPort configure `unifiedops serve`.
	HTTPBind string `json:"http_bind,omitempty"`
	HTTPPort int    `json:"http_port,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		ReminderSchedule:  "0 9 * * *",
		ReminderLeadHours: 24,
		HTTPBind:          "127.0.0.1",
		HTTPPort:          8040,
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.unifiedops.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithLocal loads the global config from globalDir and overlays the nearest
// .unifiedops/config.json found walking upward from startDir.
// Local config takes precedence for scalar values; arrays are merged (deduplicated).
func LoadWithLocal(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	local, err := loadFileRaw(FindLocalConfig(startDir))
	if err != nil {
		return nil, err
	}

	return Merge(Merge(DefaultConfig(), global), local), nil
}

// FindLocalConfig walks upward from startDir to find the nearest .unifiedops/config.json.
// Returns the path if found, or empty string if not found.
func FindLocalConfig(startDir string) string {
	if startDir == "" {
		return ""
	}
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".unifiedops", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// LoadEnv reads baseDir/.env into the process environment (existing variables win)
// and applies the UNIFIEDOPS_* overrides to cfg.
func LoadEnv(baseDir string, cfg *Config) error {
	envPath := filepath.Join(baseDir, ".env")
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return err
		}
	}
	return ApplyEnv(cfg)
}

// ApplyEnv overrides cfg fields from UNIFIEDOPS_* environment variables.
func ApplyEnv(cfg *Config) error {
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.LogFormat = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvHTTPPort)); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return errors.New(EnvHTTPPort + " must be a port number")
		}
		cfg.HTTPPort = port
	}
	return nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the path is empty or the file doesn't exist.
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.DBMaxOpenConns = firstNonZero(overlay.DBMaxOpenConns, base.DBMaxOpenConns)
	result.DBMaxIdleConns = firstNonZero(overlay.DBMaxIdleConns, base.DBMaxIdleConns)
	result.ReminderLeadHours = firstNonZero(overlay.ReminderLeadHours, base.ReminderLeadHours)
	result.HTTPPort = firstNonZero(overlay.HTTPPort, base.HTTPPort)

	result.LogLevel = firstNonEmpty(overlay.LogLevel, base.LogLevel)
	result.LogFormat = firstNonEmpty(overlay.LogFormat, base.LogFormat)
	result.ReminderSchedule = firstNonEmpty(overlay.ReminderSchedule, base.ReminderSchedule)
	result.HTTPBind = firstNonEmpty(overlay.HTTPBind, base.HTTPBind)

	// Booleans: overlay wins if true, else base
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths

	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)

	return result
}

func firstNonZero(a, b int) int {
	if a != 0 {
		return a
	}
	return b
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
