// Package session fans a per-user invalidation out to the modules that keep
// user-scoped state. Subscribers register explicitly; there is no global bus.
package session

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/sis-admin/pkg/middleware/requestid"
)

// Reason explains why a user's state is being reset.
type Reason string

const (
	ReasonLogout       Reason = "logout"
	ReasonTokenExpired Reason = "token_expired"
	ReasonTokenInvalid Reason = "token_invalid"
)

// Callback resets whatever state a module holds for userID.
type Callback func(ctx context.Context, userID string, reason Reason) error

// Hub holds the registered callbacks.
type Hub struct {
	mu        sync.RWMutex
	callbacks map[string]Callback
	logger    *zap.Logger
}

// NewHub constructs an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{callbacks: make(map[string]Callback), logger: logger}
}

// Subscribe registers fn under name, replacing an earlier callback with the
// same name. The returned func removes the subscription.
func (h *Hub) Subscribe(name string, fn Callback) func() {
	h.mu.Lock()
	h.callbacks[name] = fn
	h.mu.Unlock()
	return func() {
		h.mu.Lock()
		delete(h.callbacks, name)
		h.mu.Unlock()
	}
}

// Invalidate runs every callback for userID. Failures are logged and do not
// stop the remaining callbacks; the number of failures is returned.
func (h *Hub) Invalidate(ctx context.Context, userID string, reason Reason) int {
	if h == nil || userID == "" {
		return 0
	}
	h.mu.RLock()
	names := make([]string, 0, len(h.callbacks))
	for name := range h.callbacks {
		names = append(names, name)
	}
	callbacks := make(map[string]Callback, len(h.callbacks))
	for name, fn := range h.callbacks {
		callbacks[name] = fn
	}
	h.mu.RUnlock()
	sort.Strings(names)

	log := h.logger.With(zap.String("user_id", userID), zap.String("reason", string(reason)))
	if reqID := requestid.FromContext(ctx); reqID != "" {
		log = log.With(zap.String("request_id", reqID))
	}

	failures := 0
	for _, name := range names {
		if err := callbacks[name](ctx, userID, reason); err != nil {
			failures++
			log.Warn("session invalidation callback failed", zap.String("subscriber", name), zap.Error(err))
		}
	}
	log.Debug("session invalidated", zap.Int("subscribers", len(names)))
	return failures
}

// Subscribers lists registered names in order.
func (h *Hub) Subscribers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.callbacks))
	for name := range h.callbacks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
