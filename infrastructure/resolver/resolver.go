package resolver

import (
	"context"
	"fmt"

	logger "github.com/sirupsen/logrus"

	"github.com/sfdcale/cumulusci/domain"
)

// Strategy turns an unresolved dynamic dependency into a pinned ref and,
// for managed package flows, the static package dependency published at
// that ref. A strategy that does not apply returns an empty ref so the
// next one in the order can run.
type Strategy interface {
	Name() string
	Resolve(ctx context.Context, dep domain.DynamicDependency, repo domain.Repository) (string, domain.StaticDependency, error)
}

// Resolver applies an ordered list of strategies to dynamic dependencies.
type Resolver struct {
	repos domain.RepositoryReader
}

// New creates a resolver reading repository metadata through the given
// reader.
func New(repos domain.RepositoryReader) *Resolver {
	return &Resolver{repos: repos}
}

// Resolve pins the dependency's ref in place. Already resolved
// dependencies are left alone. When no strategy matches, resolution
// fails with a DependencyResolutionError naming the dependency.
func (r *Resolver) Resolve(ctx context.Context, dep domain.DynamicDependency, strategies []Strategy) error {
	if dep.IsResolved() {
		return nil
	}

	repo, err := r.repos.GetRepo(ctx, dep.RepoURL())
	if err != nil {
		return fmt.Errorf("failed to read repo %s: %w", dep.RepoURL(), err)
	}

	for _, strategy := range strategies {
		ref, managed, resolveErr := strategy.Resolve(ctx, dep, repo)
		if resolveErr != nil {
			return resolveErr
		}
		if ref == "" {
			continue
		}

		logger.Infof("Resolved %s to %s (%s)", dep.Description(), ref, strategy.Name())
		dep.SetRef(ref)
		if managed != nil {
			dep.SetManagedDependency(managed)
		}
		return nil
	}

	return &domain.DependencyResolutionError{
		Message: fmt.Sprintf("Unable to resolve dependency %s", dep.Description()),
	}
}
