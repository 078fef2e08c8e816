package chat

import (
	"fmt"
	"sync"
)

// Context 传给各事件处理器的上下文
type Context struct {
	S *Server
}

// Handler 单个上行事件的处理器
type Handler interface {
	Event() string
	Handle(ctx *Context, f *EventFrame, c *Client) error
}

// Dispatcher 事件名 -> 处理器
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]Handler)}
}

func (d *Dispatcher) Register(h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[h.Event()] = h
}

func (d *Dispatcher) Get(event string) Handler {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.handlers[event]
}

func (d *Dispatcher) Dispatch(ctx *Context, f *EventFrame, c *Client) error {
	h := d.Get(f.Event)
	if h == nil {
		return fmt.Errorf("no handler for event %q", f.Event)
	}
	return h.Handle(ctx, f, c)
}
