package agent

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finbot-ai/finbot-go/pkg/tenant"
	"github.com/finbot-ai/finbot-go/pkg/userconfig"
	"github.com/finbot-ai/finbot-go/pkg/workspace"
)

type echoClient struct{}

func (echoClient) Generate(ctx context.Context, payload string) (string, error) {
	return "echo: " + fmt.Sprint(len(payload)), nil
}

func (echoClient) GetDefaultModel() string { return "test-model" }

func newTestRuntime(t *testing.T) *Runtime {
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

	return NewRuntime(workspaces, configs, echoClient{}, nil)
}

func TestBindResolvesTenantContext(t *testing.T) {
	r := newTestRuntime(t)

	sc, err := r.Bind("alice")
	require.NoError(t, err)
	defer sc.Release()

	assert.Equal(t, "alice", sc.TenantID)
	assert.Equal(t, r.Workspaces.Path("alice"), sc.Workspace)
	assert.Equal(t, "alice", sc.Config.UserID)
	assert.NotNil(t, sc.Sessions)
	assert.NotNil(t, sc.Memory)
	assert.NotNil(t, sc.Skills)
}

func TestBindUnknownTenant(t *testing.T) {
	r := newTestRuntime(t)

	_, err := r.Bind("ghost")
	assert.ErrorIs(t, err, tenant.ErrNotFound)
}

func TestBindExclusive(t *testing.T) {
	r := newTestRuntime(t)

	sc, err := r.Bind("alice")
	require.NoError(t, err)

	_, err = r.Bind("alice")
	assert.ErrorIs(t, err, tenant.ErrBusy)

	sc.Release()

	sc2, err := r.Bind("alice")
	require.NoError(t, err)
	sc2.Release()
}

func TestReleaseIdempotent(t *testing.T) {
	r := newTestRuntime(t)

	sc, err := r.Bind("alice")
	require.NoError(t, err)
	sc.Release()
	sc.Release()

	// A stale release must not free a newer binding.
	sc2, err := r.Bind("alice")
	require.NoError(t, err)
	sc.Release()
	_, err = r.Bind("alice")
	assert.ErrorIs(t, err, tenant.ErrBusy)
	sc2.Release()
}

func TestProcessForTenant(t *testing.T) {
	r := newTestRuntime(t)

	response, err := r.ProcessForTenant(context.Background(), "alice", "hello", "")
	require.NoError(t, err)
	assert.NotEmpty(t, response)

	// The binding is released on return.
	sc, err := r.Bind("alice")
	require.NoError(t, err)
	sc.Release()
}

func TestProcessForTenantPersistsSession(t *testing.T) {
	r := newTestRuntime(t)

	_, err := r.ProcessForTenant(context.Background(), "alice", "hello", "chat1")
	require.NoError(t, err)

	sc, err := r.Bind("alice")
	require.NoError(t, err)
	defer sc.Release()

	sess := sc.Sessions.GetOrCreate("user_alice:chat1")
	history := sess.History(10)
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "hello", history[0].Content)
	assert.Equal(t, "assistant", history[1].Role)
}

func TestBuildSystemContextIncludesBootstrap(t *testing.T) {
	r := newTestRuntime(t)

	sc, err := r.Bind("alice")
	require.NoError(t, err)
	defer sc.Release()

	builder := NewContextBuilder(sc.Workspace, sc.Memory, sc.Skills)
	out := builder.BuildSystemContext("alice")

	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "## AGENTS.md")
	assert.Contains(t, out, "## SOUL.md")
	assert.Contains(t, out, "## USER.md")
}
