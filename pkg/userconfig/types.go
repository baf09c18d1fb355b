package userconfig

import (
	"time"
)

// Watchlist holds the subjects a tenant tracks, grouped by category.
type Watchlist struct {
	Stocks      []string `json:"stocks"`
	Influencers []string `json:"influencers"`
	Keywords    []string `json:"keywords"`
	Sectors     []string `json:"sectors"`
}

// Preferences holds a tenant's report and notification options.
type Preferences struct {
	ReportFrequency      string   `json:"report_frequency"` // daily, weekly, realtime, both
	ReportTime           string   `json:"report_time"`      // HH:MM
	ReportFormat         string   `json:"report_format"`    // markdown, pdf, html
	Language             string   `json:"language"`         // zh, en
	MaxReportLength      int      `json:"max_report_length"`
	NotificationChannels []string `json:"notification_channels"`
}

// DefaultPreferences returns the documented defaults for a new tenant.
func DefaultPreferences() Preferences {
	return Preferences{
		ReportFrequency:      "daily",
		ReportTime:           "09:00",
		ReportFormat:         "markdown",
		Language:             "zh",
		MaxReportLength:      5000,
		NotificationChannels: []string{"push"},
	}
}

// Config is the full persisted configuration record of one tenant.
type Config struct {
	UserID      string                 `json:"user_id"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	Watchlist   Watchlist              `json:"watchlist"`
	Preferences Preferences            `json:"preferences"`
	CustomData  map[string]interface{} `json:"custom_data"`
	Version     string                 `json:"version"`
}

// NewConfig builds a fresh Config with default values.
func NewConfig(userID string, initial map[string]interface{}) *Config {
	now := time.Now()
	custom := initial
	if custom == nil {
		custom = make(map[string]interface{})
	}
	return &Config{
		UserID:      userID,
		CreatedAt:   now,
		UpdatedAt:   now,
		Watchlist:   Watchlist{},
		Preferences: DefaultPreferences(),
		CustomData:  custom,
		Version:     "1.0",
	}
}

// WatchlistPatch carries only the watchlist categories a caller wants to
// replace. Nil fields are left untouched by the merge.
type WatchlistPatch struct {
	Stocks      *[]string `json:"stocks,omitempty"`
	Influencers *[]string `json:"influencers,omitempty"`
	Keywords    *[]string `json:"keywords,omitempty"`
	Sectors     *[]string `json:"sectors,omitempty"`
}

// PreferencesPatch carries only the preference fields a caller wants to
// replace. Nil fields are left untouched by the merge.
type PreferencesPatch struct {
	ReportFrequency      *string   `json:"report_frequency,omitempty"`
	ReportTime           *string   `json:"report_time,omitempty"`
	ReportFormat         *string   `json:"report_format,omitempty"`
	Language             *string   `json:"language,omitempty"`
	MaxReportLength      *int      `json:"max_report_length,omitempty"`
	NotificationChannels *[]string `json:"notification_channels,omitempty"`
}
