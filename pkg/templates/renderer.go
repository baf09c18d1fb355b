package templates

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/finbot-ai/finbot-go/pkg/userconfig"
)

// ErrUnknownTemplateKind is returned when a kind has neither a tenant
// override nor a shipped default.
var ErrUnknownTemplateKind = errors.New("unknown template kind")

// Persona defaults used for any field the tenant has not set in the
// custom-data "persona" map.
const (
	DefaultRiskPreference  = "moderate"
	DefaultExperience      = "intermediate"
	DefaultHorizon         = "medium"
	DefaultReportLength    = "medium"
	placeholderDataPending = "data pending"
)

// Params carries the per-job inputs of one render call. Extra entries feed
// the optional data placeholders (market_data, news_summary,
// influencer_opinions); absent ones render as "data pending".
type Params struct {
	Kind  string
	Now   time.Time
	Extra map[string]string
}

// Render selects the template for params.Kind, preferring a tenant
// override from cfg.CustomData["templates"] over the shipped default, and
// substitutes the named placeholders. It performs no I/O and is safe for
// concurrent use.
func Render(cfg *userconfig.Config, params Params) (string, error) {
	tpl, err := resolve(cfg, params.Kind)
	if err != nil {
		return "", err
	}

	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}

	values := map[string]string{
		"user_id":             cfg.UserID,
		"report_date":         now.Format("2006-01-02"),
		"report_kind":         params.Kind,
		"watchlist":           FormatWatchlist(cfg.Watchlist),
		"persona":             FormatPersona(cfg.CustomData),
		"language":            cfg.Preferences.Language,
		"report_format":       cfg.Preferences.ReportFormat,
		"market_data":         placeholderDataPending,
		"news_summary":        placeholderDataPending,
		"influencer_opinions": placeholderDataPending,
	}
	for k, v := range params.Extra {
		values[k] = v
	}

	pairs := make([]string, 0, len(values)*2)
	for k, v := range values {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tpl), nil
}

// resolve returns the tenant override for kind if one exists, else the
// shipped default.
func resolve(cfg *userconfig.Config, kind string) (string, error) {
	if overrides, ok := cfg.CustomData["templates"].(map[string]interface{}); ok {
		if tpl, ok := overrides[kind].(string); ok && tpl != "" {
			return tpl, nil
		}
	}
	if tpl, ok := defaults[kind]; ok {
		return tpl, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownTemplateKind, kind)
}

// FormatWatchlist renders the watchlist as markdown bullet lines, one per
// non-empty category.
func FormatWatchlist(w userconfig.Watchlist) string {
	var lines []string
	if len(w.Stocks) > 0 {
		lines = append(lines, "**Stocks**: "+strings.Join(w.Stocks, ", "))
	}
	if len(w.Influencers) > 0 {
		lines = append(lines, "**Followed accounts**: "+strings.Join(w.Influencers, ", "))
	}
	if len(w.Keywords) > 0 {
		lines = append(lines, "**Keywords**: "+strings.Join(w.Keywords, ", "))
	}
	if len(w.Sectors) > 0 {
		lines = append(lines, "**Sectors**: "+strings.Join(w.Sectors, ", "))
	}
	if len(lines) == 0 {
		return "(empty watchlist)"
	}
	return strings.Join(lines, "\n")
}

// FormatPersona renders the persona fields from the custom-data map,
// falling back to the documented defaults for anything unset.
func FormatPersona(customData map[string]interface{}) string {
	persona := map[string]interface{}{}
	if p, ok := customData["persona"].(map[string]interface{}); ok {
		persona = p
	}

	get := func(key, fallback string) string {
		if v, ok := persona[key].(string); ok && v != "" {
			return v
		}
		return fallback
	}

	lines := []string{
		"**Risk preference**: " + get("risk_preference", DefaultRiskPreference),
		"**Investment experience**: " + get("investment_experience", DefaultExperience),
		"**Investment horizon**: " + get("investment_horizon", DefaultHorizon),
		"**Preferred report length**: " + get("preferred_report_length", DefaultReportLength),
	}

	if focus := stringList(persona["focus_areas"]); len(focus) > 0 {
		lines = append(lines, "**Focus areas**: "+strings.Join(focus, ", "))
	}
	if avoid := stringList(persona["avoid_topics"]); len(avoid) > 0 {
		lines = append(lines, "**Topics to avoid**: "+strings.Join(avoid, ", "))
	}
	return strings.Join(lines, "\n")
}

func stringList(v interface{}) []string {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
