package core

import (
	"fmt"
	"strings"

	"github.com/dshills/aparte/internal/command"
)

func helpCommand() *CommandSpec {
	return &CommandSpec{
		Name: "help",
		Doc:  "Lists the available commands, or describes one of them.",
		Params: []command.Param{
			{Name: "command", Type: command.TypeString, Kind: command.Optional, Doc: "command to describe"},
		},
		Handler: runHelp,
	}
}

func runHelp(c *Core, cmd *Command) error {
	name := strings.TrimPrefix(cmd.String("command"), "/")
	if name == "" {
		var b strings.Builder
		b.WriteString("commands:")
		for _, n := range c.commands.Names() {
			b.WriteString(" /")
			b.WriteString(n)
		}
		c.Notify(b.String())
		return nil
	}

	spec, ok := c.commands.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %q", command.ErrUnknownCommand, name)
	}

	var b strings.Builder
	b.WriteString("/")
	b.WriteString(spec.Help())
	for _, child := range spec.Children {
		b.WriteString("\n  /")
		b.WriteString(spec.Name)
		b.WriteString(" ")
		b.WriteString(child.UsageLine())
	}
	c.Notify(b.String())
	return nil
}
