package routing

import (
	"log/slog"
	"sort"
)

// Table is the immutable alias lookup built from validated configuration.
// Hot reloads build a fresh table and swap it in atomically; a table is
// never mutated after construction.
type Table struct {
	aliases map[string]*Alias
}

// KnownProvider reports whether a provider id is registered. The table
// builder uses it to drop targets that reference unknown providers.
type KnownProvider func(id string) bool

// NewTable builds a table from the given aliases. Targets referencing
// unregistered providers are dropped with a warning; an alias left with
// zero targets is rejected and its error returned alongside the table.
// The table is still usable when some aliases were rejected, so boot
// survives partial configuration.
func NewTable(aliases []*Alias, known KnownProvider) (*Table, []error) {
	t := &Table{aliases: make(map[string]*Alias, len(aliases))}
	var errs []error

	for _, a := range aliases {
		kept := make([]Target, 0, len(a.Targets))
		for _, tgt := range a.Targets {
			if known != nil && !known(tgt.Provider) {
				slog.Warn("dropping alias target: provider not registered",
					"alias", a.Name,
					"provider", tgt.Provider,
				)
				continue
			}
			kept = append(kept, tgt)
		}

		if len(kept) == 0 {
			errs = append(errs, &NoTargetsError{Alias: a.Name})
			slog.Warn("rejecting alias with no resolvable targets", "alias", a.Name)
			continue
		}

		policy := a.FallbackOn
		if len(policy) == 0 {
			policy = DefaultFallbackPolicy()
		}

		t.aliases[a.Name] = &Alias{
			Name:       a.Name,
			Targets:    kept,
			FallbackOn: policy,
		}
	}

	return t, errs
}

// Resolve looks up an alias by public name.
func (t *Table) Resolve(name string) (*Alias, error) {
	a, ok := t.aliases[name]
	if !ok {
		return nil, &UnknownAliasError{Alias: name}
	}
	return a, nil
}

// Names returns all alias names in sorted order.
func (t *Table) Names() []string {
	out := make([]string, 0, len(t.aliases))
	for name := range t.aliases {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of aliases in the table.
func (t *Table) Len() int {
	return len(t.aliases)
}
