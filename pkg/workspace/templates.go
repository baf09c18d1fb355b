package workspace

// StandardDirs is the fixed sub-area layout of every tenant workspace.
var StandardDirs = []string{"memory", "reports", "data", "skills"}

// StandardFiles maps templated artifact names to their default contents.
// Placeholders are substituted once at creation time; the files are plain
// editable text afterwards.
var StandardFiles = map[string]string{
	"AGENTS.md": `# Agent Configuration

## Tenant
{user_id}

## Role
You are the tenant's dedicated financial assistant.

## Workflow
1. Understand the request
2. Gather the relevant watchlist data
3. Produce a personalized response
4. Record anything worth keeping in memory

## Output
Respond in {language} using the tenant's preferred format.
`,

	"USER.md": `# Tenant Profile

## Basics
- Tenant ID: {user_id}
- Created: {created_at}
- Language: {language}

## Personalization
- Report format: {report_format}
- Notification channels: {notification_channels}
`,

	"SOUL.md": `# Persona

I am this tenant's dedicated assistant.

## Temperament
- Professional and friendly
- Patient and thorough
- Analytical, fond of summaries

## Principles
- Tenant privacy above all
- Accurate information only
- Keep improving from feedback

## Voice
- Concise and structured
- Adjusted to the tenant's language preference
`,

	"HEARTBEAT.md": `# Periodic Tasks

## Scheduled reports
- [ ] Generate the daily market briefing
- [ ] Check price moves on watched symbols
- [ ] Summarize the latest takes from followed accounts

## Data sync
- [ ] Sync the tenant watchlist
- [ ] Refresh personalized recommendations

## Custom
(tenants can add their own periodic tasks here)
`,
}

const initialMemory = `# Long-term Memory

## Tenant {user_id}

### Basics
- Tenant ID: {user_id}
- First seen: {created_at}

### Preferences
(learned from conversations over time)

### Notable events
(milestones and events the tenant cares about)

### Conversation takeaways
(key conclusions from past sessions)
`
