package application

import (
	"context"
	"fmt"

	logger "github.com/sirupsen/logrus"

	"github.com/sfdcale/cumulusci/domain"
	"github.com/sfdcale/cumulusci/infrastructure/resolver"
)

// DependencyService orchestrates the full dependency flow:
// parse declarations -> resolve dynamic dependencies -> flatten ->
// deduplicate -> install in order.
type DependencyService struct {
	repos    domain.RepositoryReader
	resolver *resolver.Resolver
	env      *domain.InstallEnv
}

// NewDependencyService creates a service using the given repository
// reader and install collaborators.
func NewDependencyService(repos domain.RepositoryReader, res *resolver.Resolver, env *domain.InstallEnv) *DependencyService {
	return &DependencyService{
		repos:    repos,
		resolver: res,
		env:      env,
	}
}

// GetStaticDependencies expands declaration records into the fully
// ordered, deduplicated list of installable dependencies.
//
// Flattening a dynamic dependency can surface transitive dependencies
// that are themselves unresolved, so resolution and flattening alternate
// until every entry is flattened. Order of first occurrence is preserved
// through deduplication; install order is a correctness invariant.
func (s *DependencyService) GetStaticDependencies(ctx context.Context, records []domain.Record, strategies []resolver.Strategy) ([]domain.StaticDependency, error) {
	deps, err := domain.ParseDependencies(records)
	if err != nil {
		return nil, err
	}

	for anyUnflattened(deps) {
		for _, dep := range deps {
			dynamic, ok := dep.(domain.DynamicDependency)
			if ok && !dynamic.IsResolved() {
				if resolveErr := s.resolver.Resolve(ctx, dynamic, strategies); resolveErr != nil {
					return nil, resolveErr
				}
			}
		}

		var flattened []domain.Dependency
		for _, dep := range deps {
			expanded, flattenErr := dep.Flatten(ctx, s.repos)
			if flattenErr != nil {
				return nil, flattenErr
			}
			flattened = append(flattened, expanded...)
		}
		deps = flattened
	}

	return dedupe(deps)
}

// InstallDependencies installs each static dependency sequentially, in
// order, against a single org. Callers must not run two installs against
// the same org concurrently; package install serializes server-side.
func (s *DependencyService) InstallDependencies(ctx context.Context, org domain.OrgReader, deps []domain.StaticDependency, opts *domain.InstallOptions, retry *domain.RetryOptions) error {
	logger.Infof("Installing %d dependencies into org %s", len(deps), org.Name())

	for _, dep := range deps {
		if err := dep.Install(ctx, s.env, org, opts, retry); err != nil {
			return fmt.Errorf("failed to install %s: %w", dep.Description(), err)
		}
	}
	return nil
}

func anyUnflattened(deps []domain.Dependency) bool {
	for _, dep := range deps {
		if !dep.IsFlattened() {
			return true
		}
	}
	return false
}

// dedupe removes structural duplicates, keeping the first occurrence.
func dedupe(deps []domain.Dependency) ([]domain.StaticDependency, error) {
	seen := make(map[string]bool, len(deps))
	result := make([]domain.StaticDependency, 0, len(deps))

	for _, dep := range deps {
		static, ok := dep.(domain.StaticDependency)
		if !ok {
			return nil, &domain.DependencyResolutionError{
				Message: fmt.Sprintf("Dependency %s is not installable after flattening", dep.Description()),
			}
		}
		if seen[static.Key()] {
			continue
		}
		seen[static.Key()] = true
		result = append(result, static)
	}
	return result, nil
}
