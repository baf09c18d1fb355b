package skills

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Metadata is the YAML frontmatter of an extension's EXTENSION.md.
type Metadata struct {
	Description string `yaml:"description"`
	Always      bool   `yaml:"always"`
}

// Extension is one tenant-defined extension loaded from the workspace
// skills area.
type Extension struct {
	Name        string
	Path        string
	Description string
	Content     string
	Always      bool
}

// Loader reads tenant extensions from one workspace.
type Loader struct {
	Workspace string
	SkillsDir string
}

// NewLoader creates a loader for a tenant workspace.
func NewLoader(workspace string) *Loader {
	return &Loader{
		Workspace: workspace,
		SkillsDir: filepath.Join(workspace, "skills"),
	}
}

// List returns all extensions present in the workspace.
func (l *Loader) List() ([]Extension, error) {
	entries, err := os.ReadDir(l.SkillsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var exts []Extension
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(l.SkillsDir, entry.Name(), "EXTENSION.md")
		content, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		meta, _ := parseFrontmatter(content)
		desc := meta.Description
		if desc == "" {
			desc = entry.Name()
		}
		exts = append(exts, Extension{
			Name:        entry.Name(),
			Path:        path,
			Description: desc,
			Content:     stripFrontmatter(content),
			Always:      meta.Always,
		})
	}
	return exts, nil
}

// Summary builds a one-line-per-extension overview for the tenant's
// system context.
func (l *Loader) Summary() string {
	exts, err := l.List()
	if err != nil || len(exts) == 0 {
		return ""
	}

	var sb strings.Builder
	for _, e := range exts {
		sb.WriteString(fmt.Sprintf("- **%s**: %s\n", e.Name, e.Description))
	}
	return sb.String()
}

// AlwaysContent concatenates the bodies of extensions marked always-on.
func (l *Loader) AlwaysContent() string {
	exts, err := l.List()
	if err != nil {
		return ""
	}

	var parts []string
	for _, e := range exts {
		if e.Always {
			parts = append(parts, fmt.Sprintf("### Extension: %s\n\n%s", e.Name, e.Content))
		}
	}
	return strings.Join(parts, "\n\n---\n\n")
}

func parseFrontmatter(content []byte) (Metadata, error) {
	var meta Metadata
	s := string(content)
	if strings.HasPrefix(s, "---") {
		parts := strings.SplitN(s, "---", 3)
		if len(parts) >= 3 {
			err := yaml.Unmarshal([]byte(parts[1]), &meta)
			return meta, err
		}
	}
	return meta, nil
}

func stripFrontmatter(content []byte) string {
	s := string(content)
	if strings.HasPrefix(s, "---") {
		parts := strings.SplitN(s, "---", 3)
		if len(parts) >= 3 {
			return strings.TrimSpace(parts[2])
		}
	}
	return s
}
