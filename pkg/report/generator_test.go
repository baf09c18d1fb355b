package report

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finbot-ai/finbot-go/pkg/providers"
	"github.com/finbot-ai/finbot-go/pkg/tenant"
	"github.com/finbot-ai/finbot-go/pkg/userconfig"
	"github.com/finbot-ai/finbot-go/pkg/workspace"
)

// scriptedClient returns the queued errors in order, then succeeds.
type scriptedClient struct {
	errs  []error
	calls int
}

func (c *scriptedClient) Generate(ctx context.Context, payload string) (string, error) {
	c.calls++
	if len(c.errs) > 0 {
		err := c.errs[0]
		c.errs = c.errs[1:]
		if err != nil {
			return "", err
		}
	}
	return "# Market Briefing\n\nAll quiet.", nil
}

func (c *scriptedClient) GetDefaultModel() string { return "test-model" }

func newTestGenerator(t *testing.T, client providers.Generator) (*Generator, string) {
	t.Helper()
	base := t.TempDir()

	workspaces, err := workspace.NewStore(base)
	require.NoError(t, err)
	configs, err := userconfig.NewStore(base)
	require.NoError(t, err)

	_, err = workspaces.Create("alice", nil)
	require.NoError(t, err)
	_, err = configs.CreateUser("alice", nil)
	require.NoError(t, err)

	g := NewGenerator(configs, workspaces, client, nil)
	g.BackoffBase = time.Millisecond
	return g, workspaces.Path("alice")
}

func TestGenerateSuccess(t *testing.T) {
	client := &scriptedClient{}
	g, root := newTestGenerator(t, client)

	result, err := g.Generate(context.Background(), "alice", "daily", nil)
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, "alice", result.TenantID)
	assert.Contains(t, result.Content, "Market Briefing")

	// Report and metadata sidecar live in the tenant's reports area.
	assert.Equal(t, filepath.Dir(result.Path), filepath.Join(root, "reports"))
	data, err := os.ReadFile(result.Path)
	require.NoError(t, err)
	assert.Equal(t, result.Content, string(data))
	_, err = os.Stat(result.Path + ".meta.json")
	require.NoError(t, err)
}

func TestGenerateRetriesTransientFailures(t *testing.T) {
	client := &scriptedClient{errs: []error{providers.ErrTimeout, providers.ErrService}}
	g, _ := newTestGenerator(t, client)

	result, err := g.Generate(context.Background(), "alice", "daily", nil)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, 3, client.calls)
}

func TestGenerateExhaustsRetryBudget(t *testing.T) {
	client := &scriptedClient{errs: []error{providers.ErrService, providers.ErrService, providers.ErrService}}
	g, root := newTestGenerator(t, client)

	result, err := g.Generate(context.Background(), "alice", "daily", nil)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 3, result.Attempts)
	assert.NotEmpty(t, result.Error)

	// Nothing may be persisted for a failed run.
	entries, err := os.ReadDir(filepath.Join(root, "reports"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestGenerateInvalidInputNotRetried(t *testing.T) {
	client := &scriptedClient{errs: []error{providers.ErrInvalidInput}}
	g, _ := newTestGenerator(t, client)

	result, err := g.Generate(context.Background(), "alice", "daily", nil)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, 1, client.calls)
}

func TestGenerateUnknownTenant(t *testing.T) {
	g, _ := newTestGenerator(t, &scriptedClient{})

	_, err := g.Generate(context.Background(), "ghost", "daily", nil)
	assert.ErrorIs(t, err, tenant.ErrNotFound)
}

func TestGenerateUnknownKind(t *testing.T) {
	g, _ := newTestGenerator(t, &scriptedClient{})

	_, err := g.Generate(context.Background(), "alice", "quarterly", nil)
	assert.Error(t, err)
}

func TestRunScheduled(t *testing.T) {
	g, _ := newTestGenerator(t, &scriptedClient{})
	require.NoError(t, g.RunScheduled(context.Background(), "alice", "daily"))
}

func TestRunScheduledSurfacesFailures(t *testing.T) {
	client := &scriptedClient{errs: []error{providers.ErrService, providers.ErrService, providers.ErrService}}
	g, _ := newTestGenerator(t, client)

	// An exhausted retry budget is an error, not a quiet non-result.
	err := g.RunScheduled(context.Background(), "alice", "daily")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 attempts")

	err = g.RunScheduled(context.Background(), "ghost", "daily")
	assert.ErrorIs(t, err, tenant.ErrNotFound)
}

func TestArchiveListAndLoad(t *testing.T) {
	g, _ := newTestGenerator(t, &scriptedClient{})

	entries, err := g.ListArchive("alice")
	require.NoError(t, err)
	assert.Empty(t, entries)

	result, err := g.Generate(context.Background(), "alice", "daily", nil)
	require.NoError(t, err)

	entries, err = g.ListArchive("alice")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, result.ReportID, entries[0].ReportID)

	content, err := g.LoadArchived("alice", result.ReportID)
	require.NoError(t, err)
	assert.Equal(t, result.Content, content)

	_, err = g.LoadArchived("alice", "missing_report")
	assert.ErrorIs(t, err, tenant.ErrNotFound)

	_, err = g.LoadArchived("alice", "../escape")
	var ve *tenant.ValidationError
	assert.ErrorAs(t, err, &ve)

	_, err = g.ListArchive("ghost")
	assert.ErrorIs(t, err, tenant.ErrNotFound)
}

func TestGenerateReportIDShape(t *testing.T) {
	g, _ := newTestGenerator(t, &scriptedClient{})

	first, err := g.Generate(context.Background(), "alice", "daily", nil)
	require.NoError(t, err)
	second, err := g.Generate(context.Background(), "alice", "daily", nil)
	require.NoError(t, err)

	assert.Regexp(t, `^daily_\d{8}_\d{6}_[0-9a-f]{8}$`, first.ReportID)
	assert.NotEqual(t, first.ReportID, second.ReportID)
}
