package types

// Settings is the persisted user settings document.
type Settings struct {
	CompressionQuality int    `yaml:"compressionQuality" json:"compressionQuality"` // percent, 1-100
	AutoSave           bool   `yaml:"autoSave" json:"autoSave"`
	VibrationEnabled   bool   `yaml:"vibrationEnabled" json:"vibrationEnabled"`
	APIBaseURL         string `yaml:"apiBaseUrl" json:"apiBaseUrl"`
	ShowStats          bool   `yaml:"showStats" json:"showStats"`
	FirstUseTime       int64  `yaml:"firstUseTime" json:"firstUseTime"` // epoch ms
}

// Config holds runtime overrides from CLI flags.
type Config struct {
	Log                    string
	UseConfigPath          string
	UseRegistryPath        string
	UseDownloadFolder      string
	UseAPIBaseURL          string
	UsePort                int
	UseDownloadConcurrency int     // 1 keeps artifact downloads sequential
	UseDownloadRate        float64 // downloads per second, 0 disables pacing
	UseNotifySocket        string
	SkipNotify             bool
}

// SettingsPatch is a partial settings update; nil fields are left unchanged.
type SettingsPatch struct {
	CompressionQuality *int    `json:"compressionQuality,omitempty"`
	AutoSave           *bool   `json:"autoSave,omitempty"`
	VibrationEnabled   *bool   `json:"vibrationEnabled,omitempty"`
	APIBaseURL         *string `json:"apiBaseUrl,omitempty"`
	ShowStats          *bool   `json:"showStats,omitempty"`
}
