package workspace

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/finbot-ai/finbot-go/pkg/tenant"
)

// Info summarizes a workspace for inspection endpoints.
type Info struct {
	Path         string    `json:"path"`
	Dirs         int       `json:"dirs"`
	Files        int       `json:"files"`
	SizeBytes    int64     `json:"size_bytes"`
	LastModified time.Time `json:"last_modified"`
}

// Store owns the isolated per-tenant workspace roots under BasePath.
// Operations on the same tenant id are serialized; different tenants
// never contend with each other.
type Store struct {
	BasePath string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore creates a Store rooted at basePath, creating it if needed.
func NewStore(basePath string) (*Store, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("workspace base: %w", err)
	}
	return &Store{
		BasePath: basePath,
		locks:    make(map[string]*sync.Mutex),
	}, nil
}

// lockFor returns the mutex guarding a single tenant's workspace.
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

// Path returns the workspace root for a tenant without checking existence.
func (s *Store) Path(tenantID string) string {
	return filepath.Join(s.BasePath, "user_"+tenantID)
}

// Exists reports whether the tenant has a workspace.
func (s *Store) Exists(tenantID string) bool {
	_, err := os.Stat(s.Path(tenantID))
	return err == nil
}

// Create materializes the standard layout and templated artifacts for a
// new tenant. It fails with tenant.ErrAlreadyExists if the root is taken.
func (s *Store) Create(tenantID string, templateData map[string]string) (string, error) {
	l := s.lockFor(tenantID)
	l.Lock()
	defer l.Unlock()

	root := s.Path(tenantID)
	if _, err := os.Stat(root); err == nil {
		return "", fmt.Errorf("workspace for %s: %w", tenantID, tenant.ErrAlreadyExists)
	}

	if err := s.materialize(root, tenantID, templateData); err != nil {
		// Leave no partial root behind.
		os.RemoveAll(root)
		return "", err
	}

	log.Printf("workspace: created %s", root)
	return root, nil
}

func (s *Store) materialize(root, tenantID string, templateData map[string]string) error {
	if err := os.MkdirAll(root, 0755); err != nil {
		return fmt.Errorf("%w: %v", tenant.ErrIOFailure, err)
	}
	for _, dir := range StandardDirs {
		if err := os.MkdirAll(filepath.Join(root, dir), 0755); err != nil {
			return fmt.Errorf("%w: %v", tenant.ErrIOFailure, err)
		}
	}

	values := map[string]string{
		"user_id":               tenantID,
		"created_at":            time.Now().Format(time.RFC3339),
		"language":              "zh",
		"report_format":         "markdown",
		"notification_channels": "push,email",
	}
	for k, v := range templateData {
		values[k] = v
	}

	for name, tpl := range StandardFiles {
		content := substitute(tpl, values)
		if err := os.WriteFile(filepath.Join(root, name), []byte(content), 0644); err != nil {
			return fmt.Errorf("%w: %v", tenant.ErrIOFailure, err)
		}
	}

	memPath := filepath.Join(root, "memory", "MEMORY.md")
	if err := os.WriteFile(memPath, []byte(substitute(initialMemory, values)), 0644); err != nil {
		return fmt.Errorf("%w: %v", tenant.ErrIOFailure, err)
	}
	return nil
}

func substitute(tpl string, values map[string]string) string {
	pairs := make([]string, 0, len(values)*2)
	for k, v := range values {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tpl)
}

// Stat returns size and file counts for a tenant workspace. It fails with
// tenant.ErrNotFound if the workspace is absent.
func (s *Store) Stat(tenantID string) (Info, error) {
	root := s.Path(tenantID)
	rootInfo, err := os.Stat(root)
	if err != nil {
		return Info{}, fmt.Errorf("workspace for %s: %w", tenantID, tenant.ErrNotFound)
	}

	info := Info{Path: root, LastModified: rootInfo.ModTime()}
	err = filepath.Walk(root, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		if fi.IsDir() {
			info.Dirs++
		} else {
			info.Files++
			info.SizeBytes += fi.Size()
		}
		if fi.ModTime().After(info.LastModified) {
			info.LastModified = fi.ModTime()
		}
		return nil
	})
	if err != nil {
		return Info{}, fmt.Errorf("%w: %v", tenant.ErrIOFailure, err)
	}
	return info, nil
}

// Clone copies the full sub-area layout and artifact contents from one
// tenant into a fresh isolated root. The configuration record is not
// copied; the destination gets its own.
func (s *Store) Clone(sourceID, destID string) (string, error) {
	// Hold both tenant locks for the whole copy so a concurrent delete of
	// the source cannot leave a partial destination. Lock order is fixed
	// by id to rule out deadlock between concurrent clones.
	srcLock, dstLock := s.lockFor(sourceID), s.lockFor(destID)
	switch {
	case srcLock == dstLock:
		srcLock.Lock()
		defer srcLock.Unlock()
	case sourceID < destID:
		srcLock.Lock()
		defer srcLock.Unlock()
		dstLock.Lock()
		defer dstLock.Unlock()
	default:
		dstLock.Lock()
		defer dstLock.Unlock()
		srcLock.Lock()
		defer srcLock.Unlock()
	}

	src := s.Path(sourceID)
	if _, err := os.Stat(src); err != nil {
		return "", fmt.Errorf("workspace for %s: %w", sourceID, tenant.ErrNotFound)
	}

	dst := s.Path(destID)
	if _, err := os.Stat(dst); err == nil {
		return "", fmt.Errorf("workspace for %s: %w", destID, tenant.ErrAlreadyExists)
	}

	if err := s.materialize(dst, destID, nil); err != nil {
		os.RemoveAll(dst)
		return "", err
	}

	for name := range StandardFiles {
		if err := copyFile(filepath.Join(src, name), filepath.Join(dst, name)); err != nil && !os.IsNotExist(err) {
			os.RemoveAll(dst)
			return "", fmt.Errorf("%w: %v", tenant.ErrIOFailure, err)
		}
	}
	for _, dir := range StandardDirs {
		if err := copyTree(filepath.Join(src, dir), filepath.Join(dst, dir)); err != nil {
			os.RemoveAll(dst)
			return "", fmt.Errorf("%w: %v", tenant.ErrIOFailure, err)
		}
	}

	log.Printf("workspace: cloned %s -> %s", sourceID, destID)
	return dst, nil
}

// Delete removes a tenant's workspace. Deleting a missing workspace is not
// an error. The root is renamed aside first so concurrent readers never see
// a half-deleted tree.
func (s *Store) Delete(tenantID string) error {
	l := s.lockFor(tenantID)
	l.Lock()
	defer l.Unlock()

	root := s.Path(tenantID)
	if _, err := os.Stat(root); err != nil {
		return nil
	}

	tmp := filepath.Join(s.BasePath, ".trash-"+uuid.New().String()[:8])
	if err := os.Rename(root, tmp); err != nil {
		return fmt.Errorf("%w: %v", tenant.ErrIOFailure, err)
	}
	if err := os.RemoveAll(tmp); err != nil {
		return fmt.Errorf("%w: %v", tenant.ErrIOFailure, err)
	}

	log.Printf("workspace: deleted %s", root)
	return nil
}

// List returns tenant ids that currently have a workspace, sorted by the
// directory listing order (lexicographic).
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", tenant.ErrIOFailure, err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), "user_") {
			ids = append(ids, e.Name()[len("user_"):])
		}
	}
	return ids, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

func copyTree(src, dst string) error {
	return filepath.Walk(src, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if fi.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		return copyFile(path, target)
	})
}
