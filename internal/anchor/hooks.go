package anchor

import (
	"sync"

	"github.com/stellar-anchor-service/anchor/internal/data"
)

// DepositHook is consulted when a deposit is initiated. It may return field
// overrides (e.g. a custom "how" message); a nil return keeps the default.
type DepositHook func(t data.Transfer) (*HookResult, error)

// WithdrawHook is consulted when a withdrawal is initiated.
type WithdrawHook func(t data.Transfer) (*HookResult, error)

// InteractiveCompleteHook fires after an interactive transfer's token is
// consumed and its status has advanced.
type InteractiveCompleteHook func(t data.Transfer) error

// MoreInfoHook renders the operator-customized body of the more_info page;
// an ok=false return falls back to the package default.
type MoreInfoHook func(t data.Transfer) (html string, ok bool)

// HookResult carries the optional field overrides a deposit/withdraw hook
// may supply in place of the engine's defaults.
type HookResult struct {
	How         string
	ExtraInfo   string
	Memo        string
	MemoType    string
}

// Hooks bundles every operator-supplied callback accepted by the SEP-24 and
// SEP-6 mounts (§6.4). Nil entries are legal; the engine falls back to its
// documented defaults.
type Hooks struct {
	OnDeposit             DepositHook
	OnWithdraw            WithdrawHook
	OnInteractiveComplete InteractiveCompleteHook
	RenderMoreInfo        MoreInfoHook
}

// runDeposit invokes the deposit hook if set, treating a nil hook as "no
// override". Errors from the hook are returned unwrapped; callers decide
// how to surface them per §9 "Hook errors" (structured passes through,
// anything else gets wrapped with its message preserved).
func (h Hooks) runDeposit(t data.Transfer) (*HookResult, error) {
	if h.OnDeposit == nil {
		return nil, nil
	}
	return h.OnDeposit(t)
}

func (h Hooks) runWithdraw(t data.Transfer) (*HookResult, error) {
	if h.OnWithdraw == nil {
		return nil, nil
	}
	return h.OnWithdraw(t)
}

func (h Hooks) runInteractiveComplete(t data.Transfer) error {
	if h.OnInteractiveComplete == nil {
		return nil
	}
	return h.OnInteractiveComplete(t)
}

func (h Hooks) runMoreInfo(t data.Transfer) (string, bool) {
	if h.RenderMoreInfo == nil {
		return "", false
	}
	return h.RenderMoreInfo(t)
}

// LifecycleEvent is a named point in a transfer's life that external
// listeners (metrics, audit logging, operator dashboards) can subscribe to
// without participating in the request/response path the way Hooks does.
type LifecycleEvent string

const (
	EventDepositInitiated      LifecycleEvent = "deposit:initiated"
	EventWithdrawalInitiated   LifecycleEvent = "withdrawal:initiated"
	EventInteractiveCompleted  LifecycleEvent = "interactive:completed"
	EventTransferStatusChanged LifecycleEvent = "transfer:status_changed"
)

// HookRegistry is an observer-pattern fan-out for LifecycleEvent
// notifications: any number of listeners may subscribe to the same event and
// all run, in registration order, on Trigger. Unlike Hooks, listeners never
// influence the response; a panicking listener propagates and stops later
// listeners from running, so registrants are expected to be quick and safe.
type HookRegistry struct {
	mu       sync.RWMutex
	handlers map[LifecycleEvent][]func(data.Transfer)
}

// NewHookRegistry returns an empty registry.
func NewHookRegistry() *HookRegistry {
	return &HookRegistry{handlers: make(map[LifecycleEvent][]func(data.Transfer))}
}

// On registers handler to run whenever event fires.
func (r *HookRegistry) On(event LifecycleEvent, handler func(data.Transfer)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[event] = append(r.handlers[event], handler)
}

// Trigger runs every handler registered for event, in registration order.
func (r *HookRegistry) Trigger(event LifecycleEvent, t data.Transfer) {
	r.mu.RLock()
	handlers := r.handlers[event]
	r.mu.RUnlock()

	for _, handler := range handlers {
		handler(t)
	}
}
