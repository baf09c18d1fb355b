package templates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finbot-ai/finbot-go/pkg/userconfig"
)

func testConfig() *userconfig.Config {
	return userconfig.NewConfig("alice", nil)
}

func TestRenderDaily(t *testing.T) {
	cfg := testConfig()
	cfg.Watchlist.Stocks = []string{"AAPL", "TSLA"}

	now := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)
	out, err := Render(cfg, Params{Kind: "daily", Now: now})
	require.NoError(t, err)

	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "2026-03-15")
	assert.Contains(t, out, "AAPL, TSLA")
	assert.NotContains(t, out, "{user_id}")
	assert.NotContains(t, out, "{watchlist}")
}

func TestRenderEmptyWatchlist(t *testing.T) {
	out, err := Render(testConfig(), Params{Kind: "daily"})
	require.NoError(t, err)
	assert.Contains(t, out, "(empty watchlist)")
}

func TestRenderPersonaDefaults(t *testing.T) {
	out, err := Render(testConfig(), Params{Kind: "weekly"})
	require.NoError(t, err)
	assert.Contains(t, out, DefaultRiskPreference)
	assert.Contains(t, out, DefaultExperience)
}

func TestRenderPersonaOverrides(t *testing.T) {
	cfg := testConfig()
	cfg.CustomData["persona"] = map[string]interface{}{
		"risk_preference": "aggressive",
		"focus_areas":     []interface{}{"semiconductors", "AI"},
	}

	out, err := Render(cfg, Params{Kind: "daily"})
	require.NoError(t, err)
	assert.Contains(t, out, "aggressive")
	assert.Contains(t, out, "AI, semiconductors")
	assert.NotContains(t, out, DefaultRiskPreference)
}

func TestRenderTenantTemplateOverride(t *testing.T) {
	cfg := testConfig()
	cfg.CustomData["templates"] = map[string]interface{}{
		"daily": "Custom briefing for {user_id} on {report_date}",
	}

	now := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)
	out, err := Render(cfg, Params{Kind: "daily", Now: now})
	require.NoError(t, err)
	assert.Equal(t, "Custom briefing for alice on 2026-03-15", out)

	// Other kinds still use the shipped defaults.
	out, err = Render(cfg, Params{Kind: "weekly", Now: now})
	require.NoError(t, err)
	assert.NotContains(t, out, "Custom briefing")
}

func TestRenderUnknownKind(t *testing.T) {
	_, err := Render(testConfig(), Params{Kind: "quarterly"})
	assert.ErrorIs(t, err, ErrUnknownTemplateKind)
}

func TestRenderExtraData(t *testing.T) {
	out, err := Render(testConfig(), Params{
		Kind:  "daily",
		Extra: map[string]string{"market_data": "SPX +1.2%"},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "SPX +1.2%")
}

func TestRenderMissingDataPlaceholders(t *testing.T) {
	out, err := Render(testConfig(), Params{Kind: "daily"})
	require.NoError(t, err)
	assert.Contains(t, out, placeholderDataPending)
}

func TestKinds(t *testing.T) {
	kinds := Kinds()
	assert.ElementsMatch(t, []string{"daily", "weekly", "alert"}, kinds)
}
