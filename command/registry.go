package command

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// Registry holds the set of available commands and resolves recognized
// utterances to direct command calls via their declared patterns.
//
// Pattern semantics:
//   - Patterns are compiled case-insensitively at registration time
//   - Named capture groups ((?P<site>\w+)) become call arguments
//   - Registration order decides precedence between matching commands
type Registry struct {
	mu       sync.RWMutex
	commands map[string]Command
	order    []string
	patterns map[string][]*regexp.Regexp // command name -> compiled patterns
}

// NewRegistry creates an empty command registry.
func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]Command),
		patterns: make(map[string][]*regexp.Regexp),
	}
}

// Register adds a command, compiling its utterance patterns. Registering a
// duplicate name or an invalid pattern returns an error.
func (r *Registry) Register(cmd Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := cmd.Name()
	if name == "" {
		return fmt.Errorf("command name must not be empty")
	}
	if _, exists := r.commands[name]; exists {
		return fmt.Errorf("command %q already registered", name)
	}

	var compiled []*regexp.Regexp
	for _, p := range cmd.Patterns() {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return fmt.Errorf("invalid pattern %q for command %q: %w", p, name, err)
		}
		compiled = append(compiled, re)
	}

	r.commands[name] = cmd
	r.order = append(r.order, name)
	r.patterns[name] = compiled

	return nil
}

// MustRegister registers like Register but panics on error. Intended for
// static builtin wiring at startup.
func (r *Registry) MustRegister(cmd Command) {
	if err := r.Register(cmd); err != nil {
		panic(err)
	}
}

// Get returns the command by name.
func (r *Registry) Get(name string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[name]
	return cmd, ok
}

// All returns the registered commands in registration order.
func (r *Registry) All() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Command, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.commands[name])
	}
	return out
}

// Names returns the sorted command names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	sort.Strings(out)
	return out
}

// Resolve matches the utterance against all registered patterns in
// registration order. On a hit it returns the command plus an argument map
// built from the pattern's named capture groups. The boolean reports whether
// any command matched.
func (r *Registry) Resolve(utterance string) (Command, map[string]any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	trimmed := strings.TrimSpace(utterance)
	if trimmed == "" {
		return nil, nil, false
	}

	for _, name := range r.order {
		for _, re := range r.patterns[name] {
			m := re.FindStringSubmatch(trimmed)
			if m == nil {
				continue
			}

			args := map[string]any{}
			for i, group := range re.SubexpNames() {
				if group == "" || i >= len(m) || m[i] == "" {
					continue
				}
				args[group] = strings.TrimSpace(m[i])
			}

			return r.commands[name], args, true
		}
	}

	return nil, nil, false
}
