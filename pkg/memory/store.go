package memory

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Store manages the persistent memory notes inside one tenant workspace.
type Store struct {
	Workspace string
	MemoryDir string
}

// NewStore creates a memory store for a tenant workspace.
func NewStore(workspace string) *Store {
	memoryDir := filepath.Join(workspace, "memory")
	os.MkdirAll(memoryDir, 0755)
	return &Store{
		Workspace: workspace,
		MemoryDir: memoryDir,
	}
}

func (s *Store) todayFile() string {
	return filepath.Join(s.MemoryDir, time.Now().Format("2006-01-02")+".md")
}

// ReadToday reads today's notes, empty if none exist yet.
func (s *Store) ReadToday() (string, error) {
	data, err := os.ReadFile(s.todayFile())
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return string(data), nil
}

// AppendToday appends content to today's notes, creating the file with a
// date header when needed.
func (s *Store) AppendToday(content string) error {
	path := s.todayFile()

	if data, err := os.ReadFile(path); err == nil {
		content = string(data) + "\n" + content
	} else {
		content = fmt.Sprintf("# %s\n\n", time.Now().Format("2006-01-02")) + content
	}

	return os.WriteFile(path, []byte(content), 0644)
}

// ReadLongTerm reads the long-term memory file (MEMORY.md).
func (s *Store) ReadLongTerm() (string, error) {
	data, err := os.ReadFile(filepath.Join(s.MemoryDir, "MEMORY.md"))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return string(data), nil
}

// WriteLongTerm replaces the long-term memory file.
func (s *Store) WriteLongTerm(content string) error {
	return os.WriteFile(filepath.Join(s.MemoryDir, "MEMORY.md"), []byte(content), 0644)
}

// Context returns the formatted memory block for the tenant's system
// context.
func (s *Store) Context() string {
	var parts []string

	longTerm, _ := s.ReadLongTerm()
	if longTerm != "" {
		parts = append(parts, "## Long-term Memory\n"+longTerm)
	}

	today, _ := s.ReadToday()
	if today != "" {
		parts = append(parts, "## Today's Notes\n"+today)
	}

	return strings.Join(parts, "\n\n")
}
