package usecase

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/fastygo/todo/domain"
)

// BatchCommand is the payload of a named batch action.
type BatchCommand struct {
	OwnerID   string
	IDs       []string
	Completed bool
}

// BatchHandler applies a batch command and returns how many tasks it changed.
type BatchHandler func(ctx context.Context, cmd BatchCommand) (int, error)

// Dispatcher routes batch actions by name.
type Dispatcher struct {
	handlers map[string]BatchHandler
	mu       sync.RWMutex
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]BatchHandler)}
}

func (d *Dispatcher) Register(name string, handler BatchHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[strings.ToLower(name)] = handler
}

// Actions lists registered names in order.
func (d *Dispatcher) Actions() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (d *Dispatcher) Execute(ctx context.Context, name string, cmd BatchCommand) (int, error) {
	d.mu.RLock()
	handler, ok := d.handlers[strings.ToLower(strings.TrimSpace(name))]
	d.mu.RUnlock()
	if !ok {
		return 0, domain.NewValidationError(map[string]string{
			"action": "unknown batch action, expected one of [" + strings.Join(d.Actions(), " ") + "]",
		})
	}
	return handler(ctx, cmd)
}
