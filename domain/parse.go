package domain

// parseAttempts lists the variant constructors in the order they are
// tried. The order is significant: the dynamic repository variant has an
// optional ref populated only by resolution, so any record carrying a
// populated ref must be claimed by a static variant first.
var parseAttempts = []func(Record) (Dependency, error){
	func(rec Record) (Dependency, error) { return NewPackageNamespaceVersionDependency(rec) },
	func(rec Record) (Dependency, error) { return NewPackageVersionIdDependency(rec) },
	func(rec Record) (Dependency, error) { return NewUnmanagedGitHubRefDependency(rec) },
	func(rec Record) (Dependency, error) { return NewUnmanagedZipURLDependency(rec) },
	func(rec Record) (Dependency, error) { return NewGitHubDynamicDependency(rec) },
	func(rec Record) (Dependency, error) { return NewGitHubDynamicSubfolderDependency(rec) },
}

// ParseDependency converts a raw declaration record into the first
// dependency variant that accepts it. Returns nil if no variant does.
func ParseDependency(rec Record) Dependency {
	for _, attempt := range parseAttempts {
		dep, err := attempt(rec)
		if err == nil {
			return dep
		}
	}
	return nil
}

// ParseDependencies parses every record in a declaration list. A record
// matching no variant fails the whole batch with a DependencyParseError
// naming the offending record.
func ParseDependencies(records []Record) ([]Dependency, error) {
	deps := make([]Dependency, 0, len(records))
	for _, rec := range records {
		parsed := ParseDependency(rec)
		if parsed == nil {
			return nil, newParseError("Unable to parse dependency: %+v", rec)
		}
		deps = append(deps, parsed)
	}
	return deps, nil
}
