package command

import (
	"context"
	"fmt"
	"strings"
)

func (rt *Router) helpCommand() *Command {
	return &Command{
		Name:    "help",
		Usage:   "help",
		Summary: "List the commands.",
		Run:     rt.runHelp,
	}
}

func (rt *Router) runHelp(_ context.Context, inv *Invocation) (string, error) {
	var b strings.Builder
	b.WriteString("Commands:\n")
	for _, name := range rt.names {
		c := rt.commands[name]
		fmt.Fprintf(&b, "``%s%s`` %s", inv.Prefix, c.Usage, c.Summary)
		if len(c.Aliases) > 0 {
			fmt.Fprintf(&b, " (alias: %s)", strings.Join(c.Aliases, ", "))
		}
		if c.Require != 0 {
			fmt.Fprintf(&b, " Requires %s.", c.Require)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
