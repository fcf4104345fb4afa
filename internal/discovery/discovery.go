// Package discovery locates candidate policy-document URLs for a domain.
// A Provider is the external collaborator that scans the live page for
// policy links; when it is unreachable or comes back empty-handed, the
// orchestrator degrades to the well-known path guesses in this package.
package discovery

import (
	"context"
	"errors"

	"github.com/policyscope/policyscope/internal/model"
)

// ErrUnavailable is returned by a Provider that cannot currently inspect the
// page, e.g. because the in-page collaborator has not initialized yet. It is
// a degrade signal, not a failure: the caller falls back to guessing.
var ErrUnavailable = errors.New("discovery provider unavailable")

// Provider is the external collaborator that reports candidate policy links
// for a tab. A Provider that responds with empty lists is authoritative: the
// page really has no policy links. ErrUnavailable means the caller should
// guess instead.
type Provider interface {
	Discover(ctx context.Context, tabID int) (model.CandidateLinks, error)
}

// ProviderFunc adapts a function to the Provider interface
type ProviderFunc func(ctx context.Context, tabID int) (model.CandidateLinks, error)

// Discover implements Provider
func (f ProviderFunc) Discover(ctx context.Context, tabID int) (model.CandidateLinks, error) {
	return f(ctx, tabID)
}

// Unavailable is a Provider that always reports ErrUnavailable. It is the
// right provider for CLI one-shot runs, where no live page exists to scan.
var Unavailable Provider = ProviderFunc(func(context.Context, int) (model.CandidateLinks, error) {
	return model.CandidateLinks{}, ErrUnavailable
})
