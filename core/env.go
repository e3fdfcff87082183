package listopad

import "sort"

// Frame is one lexical scope. Frames are linked innermost to outermost and
// are shared, never copied, between every Env handle that reaches them.
type Frame struct {
	vars   map[string]Value
	parent *Frame
}

func newFrame(parent *Frame) *Frame {
	return &Frame{vars: make(map[string]Value), parent: parent}
}

// Env is a handle on a frame chain. Pushing and popping move the handle's
// own top pointer; other handles over the same frames are unaffected,
// while writes into a shared frame are visible through all of them.
type Env struct {
	top    *Frame
	global *Frame
}

// NewEnv creates an environment holding only a fresh global frame.
func NewEnv() *Env {
	g := newFrame(nil)
	return &Env{top: g, global: g}
}

// Lookup scans frames from innermost to outermost.
func (e *Env) Lookup(name string) (Value, error) {
	for f := e.top; f != nil; f = f.parent {
		if val, ok := f.vars[name]; ok {
			return val, nil
		}
	}
	return Value{}, &UnboundVariableError{Name: name}
}

// Define binds name in the innermost frame, shadowing outer bindings.
func (e *Env) Define(name string, value Value) {
	e.top.vars[name] = value
}

// DefineGlobal binds name in the root frame regardless of depth.
func (e *Env) DefineGlobal(name string, value Value) {
	e.global.vars[name] = value
}

func (e *Env) PushFrame() {
	e.top = newFrame(e.top)
}

// PopFrame discards the innermost frame. Popping the global frame is a
// programming error.
func (e *Env) PopFrame() {
	if e.top == e.global {
		panic("listopad: pop of global frame")
	}
	e.top = e.top.parent
}

// Snapshot returns a new handle over the same frame chain.
func (e *Env) Snapshot() *Env {
	return &Env{top: e.top, global: e.global}
}

// Depth counts the frames visible from this handle, the global one included.
func (e *Env) Depth() int {
	n := 0
	for f := e.top; f != nil; f = f.parent {
		n++
	}
	return n
}

// Names lists the bindings of the innermost frame in sorted order.
func (e *Env) Names() []string {
	names := make([]string, 0, len(e.top.vars))
	for k := range e.top.vars {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
