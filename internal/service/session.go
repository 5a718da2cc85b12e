package service

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"billpay/internal/domain"
)

// SessionRegistry holds the live flows, keyed by flow id. Flows idle for
// longer than the TTL are evicted.
type SessionRegistry struct {
	deps FlowDeps
	ttl  time.Duration
	now  func() time.Time

	mu    sync.RWMutex
	flows map[string]*Controller
}

// NewSessionRegistry creates a new SessionRegistry.
func NewSessionRegistry(deps FlowDeps, ttl time.Duration) *SessionRegistry {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &SessionRegistry{
		deps:  deps,
		ttl:   ttl,
		now:   now,
		flows: make(map[string]*Controller),
	}
}

// Create starts a flow for deviceID and returns it with the device's remembered inputs.
func (r *SessionRegistry) Create(ctx context.Context, deviceID string) (*Controller, domain.RememberedFields, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return nil, domain.RememberedFields{}, ErrMissingDeviceID
	}

	flow := NewController(uuid.New().String(), deviceID, r.deps)
	remembered := flow.Start(ctx)

	r.mu.Lock()
	r.flows[flow.ID()] = flow
	r.mu.Unlock()

	log.Printf("[FLOW] %s: started for device %s", flow.ID(), deviceID)
	return flow, remembered, nil
}

// Get returns a live flow.
func (r *SessionRegistry) Get(id string) (*Controller, error) {
	r.mu.RLock()
	flow, ok := r.flows[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrFlowNotFound
	}
	if r.expired(flow) {
		r.Remove(id)
		return nil, ErrFlowNotFound
	}
	return flow, nil
}

// Remove drops a flow and stops its poll.
func (r *SessionRegistry) Remove(id string) {
	r.mu.Lock()
	flow, ok := r.flows[id]
	delete(r.flows, id)
	r.mu.Unlock()
	if ok {
		flow.Close()
	}
}

// Sweep evicts idle flows and returns how many were removed.
func (r *SessionRegistry) Sweep() int {
	r.mu.Lock()
	var evicted []*Controller
	for id, flow := range r.flows {
		if r.expired(flow) {
			evicted = append(evicted, flow)
			delete(r.flows, id)
		}
	}
	r.mu.Unlock()

	for _, flow := range evicted {
		flow.Close()
	}
	return len(evicted)
}

// Run sweeps at interval until ctx is done.
func (r *SessionRegistry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				log.Printf("[FLOW] evicted %d idle flows", n)
			}
		}
	}
}

// Len returns the number of live flows.
func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.flows)
}

func (r *SessionRegistry) expired(flow *Controller) bool {
	return r.ttl > 0 && r.now().Sub(flow.LastActive()) > r.ttl
}

// ForgetDevice clears the remembered inputs of deviceID.
func (r *SessionRegistry) ForgetDevice(ctx context.Context, deviceID string) error {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return ErrMissingDeviceID
	}
	if r.deps.Preferences == nil {
		return nil
	}
	return r.deps.Preferences.Forget(ctx, deviceID)
}
