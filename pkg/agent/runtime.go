package agent

import (
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/finbot-ai/finbot-go/pkg/bus"
	"github.com/finbot-ai/finbot-go/pkg/memory"
	"github.com/finbot-ai/finbot-go/pkg/providers"
	"github.com/finbot-ai/finbot-go/pkg/session"
	"github.com/finbot-ai/finbot-go/pkg/skills"
	"github.com/finbot-ai/finbot-go/pkg/tenant"
	"github.com/finbot-ai/finbot-go/pkg/userconfig"
	"github.com/finbot-ai/finbot-go/pkg/workspace"
)

// Runtime is the shared multi-tenant execution engine. The generation
// client, event bus and stores are process-wide singletons; everything
// tenant-identifying is resolved per bind and handed out through a
// ScopedContext, never through shared mutable fields.
type Runtime struct {
	Workspaces *workspace.Store
	Configs    *userconfig.Store
	Client     providers.Generator
	Bus        *bus.EventBus

	mu    sync.Mutex
	bound map[string]string // tenant id -> binding id
}

// NewRuntime creates a Runtime over the shared infrastructure.
func NewRuntime(workspaces *workspace.Store, configs *userconfig.Store, client providers.Generator, eventBus *bus.EventBus) *Runtime {
	return &Runtime{
		Workspaces: workspaces,
		Configs:    configs,
		Client:     client,
		Bus:        eventBus,
		bound:      make(map[string]string),
	}
}

// ScopedContext is an exclusive binding to one tenant's workspace and
// configuration. It must be released on every exit path; Release is
// idempotent.
type ScopedContext struct {
	BindingID string
	TenantID  string
	Workspace string
	Config    *userconfig.Config
	Sessions  *session.Manager
	Memory    *memory.Store
	Skills    *skills.Loader

	runtime *Runtime
	once    sync.Once
}

// Bind acquires the exclusive execution binding for a tenant and resolves
// its workspace, configuration, sessions, memory and extensions. It fails
// with tenant.ErrBusy while another binding for the same tenant is live,
// and with tenant.ErrNotFound if the tenant does not exist.
func (r *Runtime) Bind(tenantID string) (*ScopedContext, error) {
	if !r.Workspaces.Exists(tenantID) {
		return nil, fmt.Errorf("workspace for %s: %w", tenantID, tenant.ErrNotFound)
	}

	bindingID := uuid.New().String()[:8]

	r.mu.Lock()
	if holder, ok := r.bound[tenantID]; ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("tenant %s bound by %s: %w", tenantID, holder, tenant.ErrBusy)
	}
	r.bound[tenantID] = bindingID
	r.mu.Unlock()

	cfg, err := r.Configs.Get(tenantID)
	if err != nil {
		r.release(tenantID, bindingID)
		return nil, err
	}

	ws := r.Workspaces.Path(tenantID)
	sc := &ScopedContext{
		BindingID: bindingID,
		TenantID:  tenantID,
		Workspace: ws,
		Config:    cfg,
		Sessions:  session.NewManager(ws),
		Memory:    memory.NewStore(ws),
		Skills:    skills.NewLoader(ws),
		runtime:   r,
	}
	log.Printf("agent: bound %s to tenant %s", bindingID, tenantID)
	return sc, nil
}

// Release frees the tenant binding. Safe to call more than once.
func (sc *ScopedContext) Release() {
	sc.once.Do(func() {
		sc.runtime.release(sc.TenantID, sc.BindingID)
		log.Printf("agent: released %s from tenant %s", sc.BindingID, sc.TenantID)
	})
}

func (r *Runtime) release(tenantID, bindingID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bound[tenantID] == bindingID {
		delete(r.bound, tenantID)
	}
}
