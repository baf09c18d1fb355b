package agent

import (
	"context"
	"fmt"
	"log"
	"strings"
)

const maxHistoryMessages = 50

// ProcessForTenant handles one chat message inside the tenant's own
// context. It binds the tenant exclusively for the duration of the call
// and releases the binding on every exit path.
func (r *Runtime) ProcessForTenant(ctx context.Context, tenantID, message, sessionKey string) (string, error) {
	sc, err := r.Bind(tenantID)
	if err != nil {
		return "", err
	}
	defer sc.Release()

	if sessionKey == "" {
		sessionKey = "default"
	}
	// Session keys always carry the tenant id so transcripts cannot
	// collide across tenants even if a caller reuses keys.
	if !strings.HasPrefix(sessionKey, "user_"+tenantID+":") {
		sessionKey = fmt.Sprintf("user_%s:%s", tenantID, sessionKey)
	}

	sess := sc.Sessions.GetOrCreate(sessionKey)
	builder := NewContextBuilder(sc.Workspace, sc.Memory, sc.Skills)
	payload := builder.BuildPayload(tenantID, sess.History(maxHistoryMessages), message)

	response, err := r.Client.Generate(ctx, payload)
	if err != nil {
		return "", fmt.Errorf("process message for %s: %w", tenantID, err)
	}

	sess.Append("user", message)
	sess.Append("assistant", response)
	if err := sc.Sessions.Save(sess); err != nil {
		log.Printf("agent: failed to save session %s: %v", sessionKey, err)
	}

	return response, nil
}
