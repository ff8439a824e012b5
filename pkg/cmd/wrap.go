package cmd

import "context"

// Unwrappable is implemented by wrapped commands so adapters can reach the
// underlying command, e.g. to type-assert a slash definition provider.
type Unwrappable interface {
	Command
	Unwrap() Command
}

// Wrapped replaces Run and delegates identity to Inner.
type Wrapped struct {
	Inner   Command
	RunFunc func(ctx context.Context, inv *Invocation) error
}

func (w *Wrapped) Name() string        { return w.Inner.Name() }
func (w *Wrapped) Description() string { return w.Inner.Description() }

func (w *Wrapped) Run(ctx context.Context, inv *Invocation) error {
	if w.RunFunc != nil {
		return w.RunFunc(ctx, inv)
	}
	return w.Inner.Run(ctx, inv)
}

func (w *Wrapped) Unwrap() Command { return w.Inner }

// Wrap returns a command that runs run instead of c.Run.
func Wrap(c Command, run func(ctx context.Context, inv *Invocation) error) Command {
	return &Wrapped{Inner: c, RunFunc: run}
}

// Root unwraps c until it is no longer Unwrappable.
func Root(c Command) Command {
	for {
		u, ok := c.(Unwrappable)
		if !ok {
			return c
		}
		c = u.Unwrap()
	}
}

// Func adapts a plain function into a Command.
type Func struct {
	CmdName string
	Desc    string
	Fn      func(ctx context.Context, inv *Invocation) error
}

func (f Func) Name() string        { return f.CmdName }
func (f Func) Description() string { return f.Desc }
func (f Func) Run(ctx context.Context, inv *Invocation) error {
	return f.Fn(ctx, inv)
}
