package cmd

import (
	"context"
	"strings"
	"testing"
)

func named(name string) Command {
	return Func{CmdName: name, Fn: func(context.Context, *Invocation) error { return nil }}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(named("play")); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(named("play")); err == nil {
		t.Fatal("expected duplicate error")
	}
	r.MustRegister(named("stop"), named("add"))

	var names []string
	for _, c := range r.GetAll() {
		names = append(names, c.Name())
	}
	if got := strings.Join(names, ","); got != "add,play,stop" {
		t.Fatalf("GetAll order = %s", got)
	}
	if r.Get("missing") != nil {
		t.Fatal("Get(missing) should be nil")
	}
}

func TestApplyOrderAndRoot(t *testing.T) {
	var trace []string
	mw := func(tag string) Middleware {
		return func(c Command) Command {
			return Wrap(c, func(ctx context.Context, inv *Invocation) error {
				trace = append(trace, tag)
				return c.Run(ctx, inv)
			})
		}
	}
	base := named("list")
	c := Apply(base, mw("outer"), mw("inner"))

	if err := c.Run(context.Background(), &Invocation{}); err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(trace, ","); got != "outer,inner" {
		t.Fatalf("trace = %s", got)
	}
	root, ok := Root(c).(Func)
	if !ok || root.Name() != base.Name() {
		t.Fatalf("Root = %T, want the base Func", Root(c))
	}
	if c.Name() != "list" {
		t.Fatalf("Name() = %s", c.Name())
	}
}

func TestInvocationArg(t *testing.T) {
	inv := &Invocation{Args: []string{"a"}}
	if inv.Arg(0) != "a" || inv.Arg(1) != "" || (*Invocation)(nil).Arg(0) != "" {
		t.Fatal("Arg bounds")
	}
}
