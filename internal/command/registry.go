package command

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry holds the top level commands and parses input lines against them.
type Registry[C any] struct {
	mu       sync.RWMutex
	commands map[string]*Spec[C]
}

// NewRegistry creates an empty registry.
func NewRegistry[C any]() *Registry[C] {
	return &Registry[C]{
		commands: make(map[string]*Spec[C]),
	}
}

// Define registers a top level command.
func (r *Registry[C]) Define(spec *Spec[C]) error {
	if err := validateSpec(spec); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.commands[spec.Name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateCommand, spec.Name)
	}
	r.commands[spec.Name] = spec
	return nil
}

// Lookup returns the top level command named name.
func (r *Registry[C]) Lookup(name string) (*Spec[C], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.commands[name]
	return spec, ok
}

// Names returns the sorted top level command names.
func (r *Registry[C]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Parse turns an input line into a typed command. A leading '/' is optional.
// Every failure is a *ParseError; Parse never modifies any state.
func (r *Registry[C]) Parse(line string) (*Command[C], error) {
	tokens, err := Tokenize(strings.TrimPrefix(strings.TrimSpace(line), "/"))
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, &ParseError{Kind: EmptyInput, Expected: "command name"}
	}

	spec, ok := r.Lookup(tokens[0])
	if !ok {
		return nil, &ParseError{
			Kind:     UnknownCommand,
			Token:    tokens[0],
			Expected: "one of " + strings.Join(r.Names(), ", "),
		}
	}

	path := []string{spec.Name}
	pos := 1
	for len(spec.Children) > 0 {
		if pos >= len(tokens) {
			return nil, &ParseError{
				Kind:     MissingArgument,
				Command:  strings.Join(path, " "),
				Position: pos,
				Expected: childNames(spec),
				Usage:    spec.UsageLine(),
			}
		}
		child := spec.child(tokens[pos])
		if child == nil {
			return nil, &ParseError{
				Kind:     UnknownCommand,
				Command:  strings.Join(path, " "),
				Token:    tokens[pos],
				Position: pos,
				Expected: childNames(spec),
				Usage:    spec.UsageLine(),
			}
		}
		spec = child
		path = append(path, child.Name)
		pos++
	}

	args, err := bindArgs(spec, path, tokens, pos)
	if err != nil {
		return nil, err
	}

	return &Command[C]{Path: path, Args: args, spec: spec}, nil
}

// Dispatch invokes the handler of cmd.
func (r *Registry[C]) Dispatch(core C, cmd *Command[C]) error {
	if cmd == nil || cmd.spec == nil || cmd.spec.Handler == nil {
		return ErrNoHandler
	}
	if err := cmd.spec.Handler(core, cmd); err != nil {
		return fmt.Errorf("command %q: %w", cmd.Name(), err)
	}
	return nil
}

// Execute parses line and dispatches the result.
func (r *Registry[C]) Execute(core C, line string) error {
	cmd, err := r.Parse(line)
	if err != nil {
		return err
	}
	return r.Dispatch(core, cmd)
}

// bindArgs converts tokens[pos:] against the parameters of spec.
func bindArgs[C any](spec *Spec[C], path []string, tokens []string, pos int) (map[string]any, error) {
	name := strings.Join(path, " ")
	usage := spec.UsageLine()

	var positional []*Param
	for i := range spec.Params {
		if spec.Params[i].Kind != Keyword {
			positional = append(positional, &spec.Params[i])
		}
	}

	args := make(map[string]any)
	next := 0
	for i := pos; i < len(tokens); i++ {
		tok := tokens[i]

		if key, value, found := strings.Cut(tok, "="); found {
			if p := spec.param(key); p != nil && p.Kind == Keyword {
				v, err := p.convert(value)
				if err != nil {
					return nil, &ParseError{
						Kind:     InvalidArgument,
						Command:  name,
						Token:    tok,
						Position: i,
						Expected: p.Name + "=" + p.Type.String(),
						Usage:    usage,
					}
				}
				args[p.Name] = v
				continue
			}
			if next >= len(positional) {
				return nil, &ParseError{
					Kind:     UnknownKeyword,
					Command:  name,
					Token:    tok,
					Position: i,
					Expected: keywordNames(spec),
					Usage:    usage,
				}
			}
		}

		if next >= len(positional) {
			return nil, &ParseError{
				Kind:     TooManyArguments,
				Command:  name,
				Token:    tok,
				Position: i,
				Usage:    usage,
			}
		}

		p := positional[next]
		v, err := p.convert(tok)
		if err != nil {
			return nil, &ParseError{
				Kind:     InvalidArgument,
				Command:  name,
				Token:    tok,
				Position: i,
				Expected: p.Name + " (" + p.Type.String() + ")",
				Usage:    usage,
			}
		}
		args[p.Name] = v
		next++
	}

	for _, p := range positional[next:] {
		if p.Kind == Required {
			return nil, &ParseError{
				Kind:     MissingArgument,
				Command:  name,
				Position: len(tokens),
				Expected: p.Name + " (" + p.Type.String() + ")",
				Usage:    usage,
			}
		}
	}

	for i := range spec.Params {
		p := &spec.Params[i]
		if _, ok := args[p.Name]; !ok && p.Default != nil {
			args[p.Name] = p.Default
		}
	}

	return args, nil
}

func validateSpec[C any](spec *Spec[C]) error {
	if spec == nil || spec.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidSpec)
	}
	if strings.ContainsAny(spec.Name, " \t=/") {
		return fmt.Errorf("%w: invalid name %q", ErrInvalidSpec, spec.Name)
	}

	hasChildren := len(spec.Children) > 0
	if hasChildren == (spec.Handler != nil) {
		return fmt.Errorf("%w: %q needs exactly one of handler or children", ErrInvalidSpec, spec.Name)
	}
	if hasChildren && len(spec.Params) > 0 {
		return fmt.Errorf("%w: group %q cannot take parameters", ErrInvalidSpec, spec.Name)
	}

	seen := make(map[string]bool)
	optional := false
	for _, p := range spec.Params {
		if p.Name == "" || seen[p.Name] {
			return fmt.Errorf("%w: %q has empty or duplicate parameter %q", ErrInvalidSpec, spec.Name, p.Name)
		}
		seen[p.Name] = true
		switch p.Kind {
		case Optional:
			optional = true
		case Required:
			if optional {
				return fmt.Errorf("%w: %q has required parameter %q after optional", ErrInvalidSpec, spec.Name, p.Name)
			}
		}
	}

	names := make(map[string]bool)
	for _, child := range spec.Children {
		if err := validateSpec(child); err != nil {
			return err
		}
		if names[child.Name] {
			return fmt.Errorf("%w: %q has duplicate child %q", ErrInvalidSpec, spec.Name, child.Name)
		}
		names[child.Name] = true
	}
	return nil
}

func childNames[C any](spec *Spec[C]) string {
	names := make([]string, len(spec.Children))
	for i, c := range spec.Children {
		names[i] = c.Name
	}
	return "one of " + strings.Join(names, "|")
}

func keywordNames[C any](spec *Spec[C]) string {
	var names []string
	for _, p := range spec.Params {
		if p.Kind == Keyword {
			names = append(names, p.Name+"=")
		}
	}
	if len(names) == 0 {
		return "no keyword arguments"
	}
	return strings.Join(names, ", ")
}
