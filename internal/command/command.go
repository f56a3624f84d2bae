package command

import (
	"strings"

	"mellium.im/xmpp/jid"
)

// Handler executes a parsed command against the core of type C.
type Handler[C any] func(core C, cmd *Command[C]) error

// Spec declares one command: either a leaf with a Handler or a group with
// Children (e.g. bookmark -> add, del, edit).
type Spec[C any] struct {
	// Name is the word that selects the command.
	Name string

	// Usage is the usage line. Generated from Params when empty.
	Usage string

	// Doc is the long description shown by help.
	Doc string

	// Params are the ordered parameters of a leaf command.
	Params []Param

	// Handler executes a leaf command.
	Handler Handler[C]

	// Children are the sub-commands of a group command.
	Children []*Spec[C]
}

// UsageLine returns Usage, or a line generated from the parameters.
func (s *Spec[C]) UsageLine() string {
	if s.Usage != "" {
		return s.Usage
	}
	parts := []string{s.Name}
	if len(s.Children) > 0 {
		names := make([]string, len(s.Children))
		for i, child := range s.Children {
			names[i] = child.Name
		}
		parts = append(parts, strings.Join(names, "|"))
	}
	for i := range s.Params {
		parts = append(parts, s.Params[i].usage())
	}
	return strings.Join(parts, " ")
}

// Help returns the usage line followed by the documentation.
func (s *Spec[C]) Help() string {
	if s.Doc == "" {
		return s.UsageLine()
	}
	return s.UsageLine() + "\n\n" + s.Doc
}

func (s *Spec[C]) child(name string) *Spec[C] {
	for _, c := range s.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (s *Spec[C]) param(name string) *Param {
	for i := range s.Params {
		if s.Params[i].Name == name {
			return &s.Params[i]
		}
	}
	return nil
}

// Command is a parsed, type-checked command ready to be dispatched.
type Command[C any] struct {
	// Path is the resolved command names, e.g. ["bookmark", "add"].
	Path []string

	// Args maps parameter names to converted values. Absent parameters
	// without a default have no entry.
	Args map[string]any

	spec *Spec[C]
}

// Spec returns the leaf spec the command was resolved to.
func (c *Command[C]) Spec() *Spec[C] {
	return c.spec
}

// Name returns the space separated command path.
func (c *Command[C]) Name() string {
	return strings.Join(c.Path, " ")
}

// Has reports whether the argument is present.
func (c *Command[C]) Has(name string) bool {
	_, ok := c.Args[name]
	return ok
}

// String returns a string argument, or "" when absent.
func (c *Command[C]) String(name string) string {
	s, _ := c.Args[name].(string)
	return s
}

// Bool returns a boolean argument and whether it was present.
func (c *Command[C]) Bool(name string) (value, ok bool) {
	value, ok = c.Args[name].(bool)
	return value, ok
}

// Address returns an address argument and whether it was present.
func (c *Command[C]) Address(name string) (jid.JID, bool) {
	addr, ok := c.Args[name].(jid.JID)
	return addr, ok
}

// Int returns an integer argument and whether it was present.
func (c *Command[C]) Int(name string) (int, bool) {
	n, ok := c.Args[name].(int)
	return n, ok
}
