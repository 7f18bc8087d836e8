// Package cmd provides a transport-agnostic command core: a command is something
// with a name, description, and Run(ctx, invocation). How it is triggered
// (chat prefix, CLI) is defined by adapters that wrap this.
package cmd

import (
	"context"
	"strings"
)

// Invocation carries the minimal input any command runner can pass: arguments
// and an opaque payload. Adapters set Data to their own context value.
type Invocation struct {
	Name string
	Args []string
	Data any
}

// Command is the universal contract: identity plus execution. Permissions and
// transport-specific registration stay in adapters.
type Command interface {
	Name() string
	Description() string
	Run(ctx context.Context, inv *Invocation) error
}

// Parse splits a prefixed chat line such as "!top-patterns 5" into the command
// name and its arguments. ok is false when text does not start with prefix or
// carries no name.
func Parse(prefix, text string) (name string, args []string, ok bool) {
	rest, found := strings.CutPrefix(strings.TrimSpace(text), prefix)
	if !found {
		return "", nil, false
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 || rest != strings.TrimLeft(rest, " \t\n") {
		return "", nil, false
	}
	return strings.ToLower(fields[0]), fields[1:], true
}
