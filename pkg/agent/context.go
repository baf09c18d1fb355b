package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/finbot-ai/finbot-go/pkg/memory"
	"github.com/finbot-ai/finbot-go/pkg/session"
	"github.com/finbot-ai/finbot-go/pkg/skills"
)

// BootstrapFiles are the workspace artifacts loaded into every tenant's
// system context, in order.
var BootstrapFiles = []string{"AGENTS.md", "SOUL.md", "USER.md"}

// ContextBuilder assembles the per-tenant instruction context from the
// workspace artifacts, memory notes and extensions.
type ContextBuilder struct {
	Workspace string
	Memory    *memory.Store
	Skills    *skills.Loader
}

// NewContextBuilder creates a builder for one tenant workspace.
func NewContextBuilder(workspace string, mem *memory.Store, ext *skills.Loader) *ContextBuilder {
	return &ContextBuilder{
		Workspace: workspace,
		Memory:    mem,
		Skills:    ext,
	}
}

// BuildSystemContext builds the tenant's system context block.
func (c *ContextBuilder) BuildSystemContext(tenantID string) string {
	var parts []string

	parts = append(parts, c.identity(tenantID))

	if bootstrap := c.loadBootstrapFiles(); bootstrap != "" {
		parts = append(parts, bootstrap)
	}

	if mem := c.Memory.Context(); mem != "" {
		parts = append(parts, "# Memory\n\n"+mem)
	}

	if always := c.Skills.AlwaysContent(); always != "" {
		parts = append(parts, "# Active Extensions\n\n"+always)
	}
	if summary := c.Skills.Summary(); summary != "" {
		parts = append(parts, "# Extensions\n\n"+summary)
	}

	return strings.Join(parts, "\n\n---\n\n")
}

func (c *ContextBuilder) identity(tenantID string) string {
	now := time.Now().Format("2006-01-02 15:04 (Monday)")
	absWorkspace, _ := filepath.Abs(c.Workspace)

	return fmt.Sprintf(`# finbot

You are finbot, the dedicated assistant of tenant %s. Answer from the
tenant's own workspace context only; never reference other tenants.

## Current Time
%s

## Workspace
%s
`, tenantID, now, absWorkspace)
}

func (c *ContextBuilder) loadBootstrapFiles() string {
	var parts []string
	for _, filename := range BootstrapFiles {
		path := filepath.Join(c.Workspace, filename)
		content, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		parts = append(parts, fmt.Sprintf("## %s\n\n%s", filename, string(content)))
	}
	return strings.Join(parts, "\n\n")
}

// BuildPayload flattens system context, recent history and the current
// message into one generation payload.
func (c *ContextBuilder) BuildPayload(tenantID string, history []session.Message, current string) string {
	var sb strings.Builder
	sb.WriteString(c.BuildSystemContext(tenantID))
	sb.WriteString("\n\n---\n\n# Conversation\n\n")
	for _, msg := range history {
		sb.WriteString(fmt.Sprintf("%s: %s\n", msg.Role, msg.Content))
	}
	sb.WriteString(fmt.Sprintf("user: %s\n\nassistant:", current))
	return sb.String()
}
