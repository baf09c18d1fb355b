package skills

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeExtension(t *testing.T, ws, name, content string) {
	t.Helper()
	dir := filepath.Join(ws, "skills", name)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "EXTENSION.md"), []byte(content), 0644))
}

func TestListParsesFrontmatter(t *testing.T) {
	ws := t.TempDir()
	writeExtension(t, ws, "earnings", `---
description: Earnings calendar lookups
always: true
---
# Earnings

Check upcoming earnings dates.`)
	writeExtension(t, ws, "plain", "no frontmatter here")

	exts, err := NewLoader(ws).List()
	require.NoError(t, err)
	require.Len(t, exts, 2)

	byName := map[string]Extension{}
	for _, e := range exts {
		byName[e.Name] = e
	}

	earnings := byName["earnings"]
	assert.Equal(t, "Earnings calendar lookups", earnings.Description)
	assert.True(t, earnings.Always)
	assert.Contains(t, earnings.Content, "# Earnings")
	assert.NotContains(t, earnings.Content, "description:")

	plain := byName["plain"]
	assert.Equal(t, "plain", plain.Description)
	assert.False(t, plain.Always)
}

func TestListMissingDir(t *testing.T) {
	exts, err := NewLoader(t.TempDir()).List()
	require.NoError(t, err)
	assert.Empty(t, exts)
}

func TestSummaryAndAlwaysContent(t *testing.T) {
	ws := t.TempDir()
	writeExtension(t, ws, "alpha", `---
description: Always-on helper
always: true
---
alpha body`)
	writeExtension(t, ws, "beta", `---
description: On-demand helper
---
beta body`)

	l := NewLoader(ws)

	summary := l.Summary()
	assert.Contains(t, summary, "alpha")
	assert.Contains(t, summary, "beta")

	always := l.AlwaysContent()
	assert.Contains(t, always, "alpha body")
	assert.NotContains(t, always, "beta body")
}
