package tool

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/moyoez/filetool-go/types"
)

const DefaultAPIBaseURL = "http://127.0.0.1:3000/api"

// ErrInvalidSettings wraps every validation failure of a settings update.
var ErrInvalidSettings = errors.New("invalid settings")

var (
	SettingsPath = "settings.yaml" // be aware that it can be changed, default to ./settings.yaml

	settingsMu       sync.RWMutex
	currentSettings  = DefaultSettings()
	settingsWatchers []func(types.Settings)

	apiURLPattern = regexp.MustCompile(`^https?://.+`)
)

func DefaultSettings() types.Settings {
	return types.Settings{
		CompressionQuality: 80,
		AutoSave:           true,
		VibrationEnabled:   true,
		APIBaseURL:         DefaultAPIBaseURL,
		ShowStats:          true,
	}
}

// LoadSettings reads the settings document, creating it with defaults when missing.
// Keys absent from the document keep their default values.
func LoadSettings(path string) (types.Settings, error) {
	if path == "" {
		path = SettingsPath
	}
	SettingsPath = path

	cfg := DefaultSettings()
	info, err := os.Stat(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("failed to read settings file: %w", err)
		}
		cfg.FirstUseTime = NowMillis()
		if writeErr := writeSettings(path, cfg); writeErr != nil {
			return cfg, fmt.Errorf("settings file not found, and failed to create default settings: %w", writeErr)
		}
		DefaultLogger.Infof("Created new settings file at %s", path)
		setCurrentSettings(cfg)
		return cfg, nil
	}
	if info.IsDir() {
		return cfg, fmt.Errorf("settings file path is a directory: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read settings file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse settings file: %w", err)
	}

	changed := false
	if cfg.CompressionQuality <= 0 || cfg.CompressionQuality > 100 {
		DefaultLogger.Warnf("compressionQuality %d out of range, using 80", cfg.CompressionQuality)
		cfg.CompressionQuality = 80
		changed = true
	}
	if normalized, err := NormalizeAPIBaseURL(cfg.APIBaseURL); err != nil {
		DefaultLogger.Warnf("apiBaseUrl %q is invalid (%v), using %s", cfg.APIBaseURL, err, DefaultAPIBaseURL)
		cfg.APIBaseURL = DefaultAPIBaseURL
		changed = true
	} else if normalized != cfg.APIBaseURL {
		cfg.APIBaseURL = normalized
		changed = true
	}
	if cfg.FirstUseTime == 0 {
		cfg.FirstUseTime = NowMillis()
		changed = true
	}
	if changed {
		if writeErr := writeSettings(path, cfg); writeErr != nil {
			DefaultLogger.Warnf("Failed to update settings file: %v", writeErr)
		}
	}

	setCurrentSettings(cfg)
	return cfg, nil
}

func writeSettings(path string, cfg types.Settings) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data, 0o644)
}

func setCurrentSettings(cfg types.Settings) {
	settingsMu.Lock()
	currentSettings = cfg
	settingsMu.Unlock()
}

// GetSettings returns a copy of the in-memory settings.
func GetSettings() types.Settings {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return currentSettings
}

// OnSettingsChange registers fn to run after every persisted settings change.
func OnSettingsChange(fn func(types.Settings)) {
	settingsMu.Lock()
	defer settingsMu.Unlock()
	settingsWatchers = append(settingsWatchers, fn)
}

// UpdateSettingsAndPersist validates cfg, replaces the in-memory settings and writes the document.
func UpdateSettingsAndPersist(cfg types.Settings) (types.Settings, error) {
	if cfg.CompressionQuality <= 0 || cfg.CompressionQuality > 100 {
		return GetSettings(), fmt.Errorf("%w: compressionQuality must be between 1 and 100", ErrInvalidSettings)
	}
	normalized, err := NormalizeAPIBaseURL(cfg.APIBaseURL)
	if err != nil {
		return GetSettings(), err
	}
	cfg.APIBaseURL = normalized

	settingsMu.Lock()
	if cfg.FirstUseTime == 0 {
		cfg.FirstUseTime = currentSettings.FirstUseTime
	}
	currentSettings = cfg
	watchers := make([]func(types.Settings), len(settingsWatchers))
	copy(watchers, settingsWatchers)
	settingsMu.Unlock()

	if err := writeSettings(SettingsPath, cfg); err != nil {
		DefaultLogger.Warnf("Failed to persist settings: %v", err)
		return cfg, fmt.Errorf("failed to persist settings: %w", err)
	}
	for _, fn := range watchers {
		fn(cfg)
	}
	return cfg, nil
}

// SetAPIBaseURL validates and persists a new service base URL.
func SetAPIBaseURL(raw string) (types.Settings, error) {
	cfg := GetSettings()
	cfg.APIBaseURL = raw
	return UpdateSettingsAndPersist(cfg)
}

// NormalizeAPIBaseURL trims whitespace and one trailing slash, and requires http(s).
func NormalizeAPIBaseURL(raw string) (string, error) {
	u := strings.TrimSpace(raw)
	if u == "" {
		return "", fmt.Errorf("%w: api base url must not be empty", ErrInvalidSettings)
	}
	if !apiURLPattern.MatchString(u) {
		return "", fmt.Errorf("%w: api base url must start with http:// or https://", ErrInvalidSettings)
	}
	return strings.TrimSuffix(u, "/"), nil
}

// UsageDays counts days since first use, at least 1.
func UsageDays(cfg types.Settings) int {
	if cfg.FirstUseTime == 0 {
		return 1
	}
	const day = int64(24 * 60 * 60 * 1000)
	elapsed := NowMillis() - cfg.FirstUseTime
	days := int((elapsed + day - 1) / day)
	return max(1, days)
}
