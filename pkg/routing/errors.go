package routing

import "fmt"

// UnknownAliasError is returned when a requested model name has no alias.
// No upstream call is made for an unknown alias.
type UnknownAliasError struct {
	// Alias is the requested public model name.
	Alias string
}

// Error implements the error interface.
func (e *UnknownAliasError) Error() string {
	return fmt.Sprintf("unknown model alias %q", e.Alias)
}

// NoTargetsError indicates an alias whose target list resolved to nothing.
// Such an alias is configuration-invalid and rejected at table build time.
type NoTargetsError struct {
	// Alias is the public model name with no resolvable targets.
	Alias string
}

// Error implements the error interface.
func (e *NoTargetsError) Error() string {
	return fmt.Sprintf("alias %q has no resolvable targets", e.Alias)
}
