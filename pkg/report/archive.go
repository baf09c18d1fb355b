package report

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/finbot-ai/finbot-go/pkg/tenant"
)

var reportIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ArchiveEntry describes one archived report.
type ArchiveEntry struct {
	ReportID   string    `json:"report_id"`
	Path       string    `json:"path"`
	SizeBytes  int64     `json:"size_bytes"`
	ModifiedAt time.Time `json:"modified_at"`
}

// ListArchive returns the tenant's archived reports, newest first.
func (g *Generator) ListArchive(tenantID string) ([]ArchiveEntry, error) {
	if !g.Workspaces.Exists(tenantID) {
		return nil, fmt.Errorf("workspace for %s: %w", tenantID, tenant.ErrNotFound)
	}

	reportsDir := filepath.Join(g.Workspaces.Path(tenantID), "reports")
	entries, err := os.ReadDir(reportsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", tenant.ErrIOFailure, err)
	}

	var out []ArchiveEntry
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".md") {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, ArchiveEntry{
			ReportID:   strings.TrimSuffix(name, ".md"),
			Path:       filepath.Join(reportsDir, name),
			SizeBytes:  fi.Size(),
			ModifiedAt: fi.ModTime(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ModifiedAt.After(out[j].ModifiedAt) })
	return out, nil
}

// LoadArchived reads one archived report by id.
func (g *Generator) LoadArchived(tenantID, reportID string) (string, error) {
	if !reportIDPattern.MatchString(reportID) {
		return "", &tenant.ValidationError{Field: "report_id", Value: reportID, Reason: "malformed id"}
	}
	if !g.Workspaces.Exists(tenantID) {
		return "", fmt.Errorf("workspace for %s: %w", tenantID, tenant.ErrNotFound)
	}

	path := filepath.Join(g.Workspaces.Path(tenantID), "reports", reportID+".md")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("report %s: %w", reportID, tenant.ErrNotFound)
		}
		return "", fmt.Errorf("%w: %v", tenant.ErrIOFailure, err)
	}
	return string(data), nil
}
