// Package cmd is the transport-agnostic command core: a command has a name, a
// description and Run(ctx, invocation). The Discord adapter and the operator
// CLI each register commands here and dispatch them with their own payload.
package cmd

import "context"

// Invocation carries what any runner can pass: positional arguments and an
// opaque payload. The Discord adapter sets Data to its interaction context;
// the CLI leaves it nil and fills Args.
type Invocation struct {
	Args []string
	Data any
}

// Arg returns the i-th argument or "".
func (inv *Invocation) Arg(i int) string {
	if inv == nil || i < 0 || i >= len(inv.Args) {
		return ""
	}
	return inv.Args[i]
}

// Command is identity plus execution. Permissions, options and registration
// with a transport stay in adapters.
type Command interface {
	Name() string
	Description() string
	Run(ctx context.Context, inv *Invocation) error
}
