package report

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Script is a named report procedure.
type Script struct {
	Name        string
	Group       string
	Usage       string // positional arguments after the script name
	Description string
	// MinArgs is the number of required arguments after INFILE.
	MinArgs int
	// NoInput marks scripts that take no INFILE (readme).
	NoInput bool
	// SourceArg marks Args[0] as a second input file (customer master data).
	SourceArg bool
	Run       func(ctx context.Context, env *Env) (*Result, error)
}

// Result lists the files a script produced.
type Result struct {
	RunID   string
	Script  string
	Outputs []string
	Message string
}

func (r *Result) add(other *Result) {
	if other == nil {
		return
	}
	r.Outputs = append(r.Outputs, other.Outputs...)
	if other.Message != "" {
		if r.Message != "" {
			r.Message += "\n"
		}
		r.Message += other.Message
	}
}

var (
	registry   = make(map[string]Script)
	registryMu sync.RWMutex
)

// Register adds a script to the registry.
// Panics if a script with the same name is already registered.
func Register(s Script) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[s.Name]; exists {
		panic(fmt.Sprintf("script already registered: %s", s.Name))
	}
	registry[s.Name] = s
}

// Get returns a script by name.
func Get(name string) (Script, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	s, ok := registry[name]
	return s, ok
}

// All returns all registered scripts sorted by group, then name.
func All() []Script {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]Script, 0, len(registry))
	for _, s := range registry {
		result = append(result, s)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Group != result[j].Group {
			return result[i].Group < result[j].Group
		}
		return result[i].Name < result[j].Name
	})
	return result
}

// ByGroup returns the scripts of one group sorted by name.
func ByGroup(group string) []Script {
	var result []Script
	for _, s := range All() {
		if s.Group == group {
			result = append(result, s)
		}
	}
	return result
}

// Groups returns all unique group names sorted alphabetically.
func Groups() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	seen := make(map[string]bool)
	for _, s := range registry {
		seen[s.Group] = true
	}

	groups := make([]string, 0, len(seen))
	for g := range seen {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups
}

// Clear removes all registered scripts. Only used by tests.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]Script)
}

// Count returns the number of registered scripts.
func Count() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}
