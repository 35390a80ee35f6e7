package parser

import (
	"errors"
)

// ErrEmptyStack is returned by Pop and Current on an empty stack.
var ErrEmptyStack = errors.New("context stack is empty")

// Context is one named parse context on the stack. Data carries
// nested-state details (current element name, view kind) used when
// building context-sensitive error messages.
type Context struct {
	Name string
	Data map[string]string
}

// NewContext creates a context with no data.
func NewContext(name string) Context {
	return Context{Name: name}
}

// WithData returns a copy of the context with one data entry added.
func (c Context) WithData(key, value string) Context {
	data := make(map[string]string, len(c.Data)+1)
	for k, v := range c.Data {
		data[k] = v
	}
	data[key] = value
	return Context{Name: c.Name, Data: data}
}

// ContextStack tracks the chain of grammar sections the parser is
// inside. It serves two purposes: giving error messages context
// ("unexpected token in container" instead of a generic message) and
// selecting synchronization token sets during error recovery.
type ContextStack struct {
	stack []Context
}

// NewContextStack returns an empty stack.
func NewContextStack() *ContextStack {
	return &ContextStack{}
}

// Push adds a context on top of the stack.
func (s *ContextStack) Push(c Context) {
	s.stack = append(s.stack, c)
}

// Pop removes and returns the top context.
func (s *ContextStack) Pop() (Context, error) {
	if len(s.stack) == 0 {
		return Context{}, ErrEmptyStack
	}
	top := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	return top, nil
}

// Current returns the top context without removing it.
func (s *ContextStack) Current() (Context, error) {
	if len(s.stack) == 0 {
		return Context{}, ErrEmptyStack
	}
	return s.stack[len(s.stack)-1], nil
}

// PopUntil unwinds the stack until the predicate matches, returning the
// matching context. If nothing matches the stack empties and ok is
// false.
func (s *ContextStack) PopUntil(pred func(Context) bool) (Context, bool) {
	for len(s.stack) > 0 {
		top := s.stack[len(s.stack)-1]
		s.stack = s.stack[:len(s.stack)-1]
		if pred(top) {
			return top, true
		}
	}
	return Context{}, false
}

// Depth returns the number of contexts on the stack.
func (s *ContextStack) Depth() int {
	return len(s.stack)
}

// Names returns context names from bottom to top.
func (s *ContextStack) Names() []string {
	names := make([]string, len(s.stack))
	for i, c := range s.stack {
		names[i] = c.Name
	}
	return names
}
