package userconfig

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/finbot-ai/finbot-go/pkg/tenant"
)

const maxEntryLen = 64

var (
	validFrequencies = map[string]bool{"daily": true, "weekly": true, "realtime": true, "both": true}
	validFormats     = map[string]bool{"markdown": true, "pdf": true, "html": true}
	validLanguages   = map[string]bool{"zh": true, "en": true}
)

// Store manages one config.json per tenant inside the workspace base.
// Writes to the same tenant are serialized by a per-tenant lock; writes to
// different tenants proceed in parallel.
type Store struct {
	BasePath string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore creates a config store rooted at basePath.
func NewStore(basePath string) (*Store, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("config base: %w", err)
	}
	return &Store{
		BasePath: basePath,
		locks:    make(map[string]*sync.Mutex),
	}, nil
}

func (s *Store) lockFor(tenantID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[tenantID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[tenantID] = l
	}
	return l
}

func (s *Store) configPath(tenantID string) string {
	return filepath.Join(s.BasePath, "user_"+tenantID, "config.json")
}

// CreateUser writes the initial configuration record for a tenant. It
// fails with tenant.ErrAlreadyExists if the tenant already has one.
func (s *Store) CreateUser(tenantID string, initial map[string]interface{}) (*Config, error) {
	l := s.lockFor(tenantID)
	l.Lock()
	defer l.Unlock()

	path := s.configPath(tenantID)
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("config for %s: %w", tenantID, tenant.ErrAlreadyExists)
	}

	cfg := NewConfig(tenantID, initial)
	if err := s.save(cfg); err != nil {
		return nil, err
	}
	log.Printf("userconfig: created %s", tenantID)
	return cfg, nil
}

// Get loads a tenant's configuration. It fails with tenant.ErrNotFound if
// the tenant has never been created.
func (s *Store) Get(tenantID string) (*Config, error) {
	data, err := os.ReadFile(s.configPath(tenantID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config for %s: %w", tenantID, tenant.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: %v", tenant.ErrIOFailure, err)
	}
	cfg := NewConfig(tenantID, nil)
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parse %s config: %v", tenant.ErrIOFailure, tenantID, err)
	}
	return cfg, nil
}

// UpdateWatchlist merges only the supplied categories into the tenant's
// watchlist. Every supplied entry is validated first; on violation nothing
// is written and a ValidationError naming the field is returned.
func (s *Store) UpdateWatchlist(tenantID string, patch WatchlistPatch) (*Config, error) {
	if err := validateWatchlistPatch(patch); err != nil {
		return nil, err
	}

	l := s.lockFor(tenantID)
	l.Lock()
	defer l.Unlock()

	cfg, err := s.Get(tenantID)
	if err != nil {
		return nil, err
	}

	if patch.Stocks != nil {
		cfg.Watchlist.Stocks = *patch.Stocks
	}
	if patch.Influencers != nil {
		cfg.Watchlist.Influencers = *patch.Influencers
	}
	if patch.Keywords != nil {
		cfg.Watchlist.Keywords = *patch.Keywords
	}
	if patch.Sectors != nil {
		cfg.Watchlist.Sectors = *patch.Sectors
	}

	if err := s.save(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// UpdatePreferences merges only the supplied preference fields.
func (s *Store) UpdatePreferences(tenantID string, patch PreferencesPatch) (*Config, error) {
	if err := validatePreferencesPatch(patch); err != nil {
		return nil, err
	}

	l := s.lockFor(tenantID)
	l.Lock()
	defer l.Unlock()

	cfg, err := s.Get(tenantID)
	if err != nil {
		return nil, err
	}

	if patch.ReportFrequency != nil {
		cfg.Preferences.ReportFrequency = *patch.ReportFrequency
	}
	if patch.ReportTime != nil {
		cfg.Preferences.ReportTime = *patch.ReportTime
	}
	if patch.ReportFormat != nil {
		cfg.Preferences.ReportFormat = *patch.ReportFormat
	}
	if patch.Language != nil {
		cfg.Preferences.Language = *patch.Language
	}
	if patch.MaxReportLength != nil {
		cfg.Preferences.MaxReportLength = *patch.MaxReportLength
	}
	if patch.NotificationChannels != nil {
		cfg.Preferences.NotificationChannels = *patch.NotificationChannels
	}

	if err := s.save(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetCustomData sets one extension key on the tenant's open-ended map.
func (s *Store) SetCustomData(tenantID, key string, value interface{}) (*Config, error) {
	l := s.lockFor(tenantID)
	l.Lock()
	defer l.Unlock()

	cfg, err := s.Get(tenantID)
	if err != nil {
		return nil, err
	}
	if cfg.CustomData == nil {
		cfg.CustomData = make(map[string]interface{})
	}
	cfg.CustomData[key] = value

	if err := s.save(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Delete removes a tenant's configuration record. Idempotent.
func (s *Store) Delete(tenantID string) error {
	l := s.lockFor(tenantID)
	l.Lock()
	defer l.Unlock()

	err := os.Remove(s.configPath(tenantID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: %v", tenant.ErrIOFailure, err)
	}
	return nil
}

// ListTenants returns the ids of all tenants with a configuration record,
// sorted by id.
func (s *Store) ListTenants() ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", tenant.ErrIOFailure, err)
	}
	var ids []string
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "user_") {
			continue
		}
		id := e.Name()[len("user_"):]
		if _, err := os.Stat(s.configPath(id)); err == nil {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// save writes the record to a temp file in the same directory and renames
// it into place, bumping updated_at monotonically first.
func (s *Store) save(cfg *Config) error {
	now := time.Now()
	if !now.After(cfg.UpdatedAt) {
		now = cfg.UpdatedAt.Add(time.Nanosecond)
	}
	cfg.UpdatedAt = now

	path := s.configPath(cfg.UserID)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("%w: %v", tenant.ErrIOFailure, err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", tenant.ErrIOFailure, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".config-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %v", tenant.ErrIOFailure, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", tenant.ErrIOFailure, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", tenant.ErrIOFailure, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", tenant.ErrIOFailure, err)
	}
	return nil
}

func validateWatchlistPatch(patch WatchlistPatch) error {
	check := func(field string, entries *[]string) error {
		if entries == nil {
			return nil
		}
		seen := make(map[string]bool, len(*entries))
		for _, entry := range *entries {
			if err := validateEntry(field, entry); err != nil {
				return err
			}
			if seen[entry] {
				return &tenant.ValidationError{Field: field, Value: entry, Reason: "duplicate entry"}
			}
			seen[entry] = true
		}
		return nil
	}

	if err := check("stocks", patch.Stocks); err != nil {
		return err
	}
	if err := check("influencers", patch.Influencers); err != nil {
		return err
	}
	if err := check("keywords", patch.Keywords); err != nil {
		return err
	}
	return check("sectors", patch.Sectors)
}

func validateEntry(field, entry string) error {
	if entry == "" {
		return &tenant.ValidationError{Field: field, Value: entry, Reason: "empty entry"}
	}
	if utf8.RuneCountInString(entry) > maxEntryLen {
		return &tenant.ValidationError{Field: field, Value: entry, Reason: fmt.Sprintf("longer than %d characters", maxEntryLen)}
	}
	for _, r := range entry {
		if unicode.IsControl(r) {
			return &tenant.ValidationError{Field: field, Value: entry, Reason: "contains control characters"}
		}
	}
	return nil
}

func validatePreferencesPatch(patch PreferencesPatch) error {
	if patch.ReportFrequency != nil && !validFrequencies[*patch.ReportFrequency] {
		return &tenant.ValidationError{Field: "report_frequency", Value: *patch.ReportFrequency, Reason: "must be daily, weekly, realtime or both"}
	}
	if patch.ReportFormat != nil && !validFormats[*patch.ReportFormat] {
		return &tenant.ValidationError{Field: "report_format", Value: *patch.ReportFormat, Reason: "must be markdown, pdf or html"}
	}
	if patch.Language != nil && !validLanguages[*patch.Language] {
		return &tenant.ValidationError{Field: "language", Value: *patch.Language, Reason: "must be zh or en"}
	}
	if patch.ReportTime != nil {
		if _, err := time.Parse("15:04", *patch.ReportTime); err != nil {
			return &tenant.ValidationError{Field: "report_time", Value: *patch.ReportTime, Reason: "must be HH:MM"}
		}
	}
	if patch.MaxReportLength != nil && *patch.MaxReportLength <= 0 {
		return &tenant.ValidationError{Field: "max_report_length", Value: fmt.Sprint(*patch.MaxReportLength), Reason: "must be positive"}
	}
	return nil
}
