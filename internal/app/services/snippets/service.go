// Package snippets implements the legacy single-file snippet API that
// predates full packages. Each snippet is backed by a synthesized release.
package snippets

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/circuitforge/registry/internal/app/domain/account"
	"github.com/circuitforge/registry/internal/app/domain/pkg"
	"github.com/circuitforge/registry/internal/app/domain/snippet"
	"github.com/circuitforge/registry/internal/app/storage"
	svcerr "github.com/circuitforge/registry/internal/errors"
	"github.com/circuitforge/registry/pkg/logger"
)

// TrendingWindow is how far back stars count toward trending rank.
const TrendingWindow = 7 * 24 * time.Hour

// Store is the persistence surface the snippet service needs.
type Store interface {
	storage.SnippetStore
	storage.ReleaseStore
}

// Service manages snippets.
type Service struct {
	store Store
	log   *logger.Logger

	now func() time.Time
}

// New constructs a snippet service.
func New(store Store, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("snippets")
	}
	return &Service{store: store, log: log, now: time.Now}
}

// CreateInput describes a new snippet.
type CreateInput struct {
	UnscopedName string
	Code         string
	DTS          string
	CompiledJS   string
	CircuitJSON  []interface{}
	Type         snippet.Type
	Description  string
	IsPrivate    bool
	IsUnlisted   bool
}

// Create registers a snippet under the caller's username and synthesizes the
// backing package release.
func (s *Service) Create(ctx context.Context, caller account.Account, in CreateInput) (snippet.Snippet, error) {
	unscoped := strings.TrimSpace(in.UnscopedName)
	if unscoped == "" {
		return snippet.Snippet{}, svcerr.InvalidRequest("unscoped_name is required")
	}
	if in.Type == "" {
		in.Type = snippet.TypeBoard
	}
	if !snippet.ValidType(in.Type) {
		return snippet.Snippet{}, svcerr.InvalidRequest("snippet_type must be board, package, model, or footprint")
	}

	// The backing release has no package row; snippets predate packages.
	release, err := s.store.CreateRelease(ctx, pkg.Release{Version: "0.0.1", IsLatest: true})
	if err != nil {
		return snippet.Snippet{}, err
	}

	sn := snippet.Snippet{
		ReleaseID:    release.ID,
		Name:         caller.GithubUsername + "/" + unscoped,
		UnscopedName: unscoped,
		OwnerName:    caller.GithubUsername,
		Code:         in.Code,
		DTS:          in.DTS,
		CompiledJS:   in.CompiledJS,
		CircuitJSON:  in.CircuitJSON,
		Type:         in.Type,
		Description:  in.Description,
		IsPrivate:    in.IsPrivate,
		IsPublic:     !in.IsPrivate,
		IsUnlisted:   in.IsUnlisted,
	}
	created, err := s.store.CreateSnippet(ctx, sn)
	if err != nil {
		return snippet.Snippet{}, svcerr.UpdateFailed("failed to create snippet", err)
	}
	s.log.WithField("snippet_id", created.ID).
		WithField("name", created.Name).
		Info("snippet created")
	return created, nil
}

// Get returns a snippet by id or name, enforcing visibility for the caller.
func (s *Service) Get(ctx context.Context, caller account.Account, id, name string) (snippet.Snippet, error) {
	var (
		sn  snippet.Snippet
		err error
	)
	switch {
	case id != "":
		sn, err = s.store.GetSnippet(ctx, id)
	case name != "":
		sn, err = s.store.GetSnippetByName(ctx, name)
	default:
		return snippet.Snippet{}, svcerr.InvalidRequest("snippet_id or name is required")
	}
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return snippet.Snippet{}, svcerr.NotFound(svcerr.CodeSnippetNotFound, "Snippet not found")
		}
		return snippet.Snippet{}, err
	}
	if sn.IsPrivate && !s.owns(caller, sn) {
		return snippet.Snippet{}, svcerr.NotFound(svcerr.CodeSnippetNotFound, "Snippet not found")
	}
	return sn, nil
}

// UpdateInput carries optional snippet mutations; nil fields are unchanged.
type UpdateInput struct {
	Code        *string
	DTS         *string
	CompiledJS  *string
	CircuitJSON []interface{}
	Description *string
	IsPrivate   *bool
	IsUnlisted  *bool
}

// Update mutates a snippet owned by the caller.
func (s *Service) Update(ctx context.Context, caller account.Account, snippetID string, in UpdateInput) (snippet.Snippet, error) {
	sn, err := s.Get(ctx, caller, snippetID, "")
	if err != nil {
		return snippet.Snippet{}, err
	}
	if !s.owns(caller, sn) {
		return snippet.Snippet{}, svcerr.Forbidden("You do not have permission to update this snippet")
	}

	if in.Code != nil {
		sn.Code = *in.Code
	}
	if in.DTS != nil {
		sn.DTS = *in.DTS
	}
	if in.CompiledJS != nil {
		sn.CompiledJS = *in.CompiledJS
	}
	if in.CircuitJSON != nil {
		sn.CircuitJSON = in.CircuitJSON
	}
	if in.Description != nil {
		sn.Description = *in.Description
	}
	if in.IsPrivate != nil {
		sn.IsPrivate = *in.IsPrivate
		sn.IsPublic = !*in.IsPrivate
	}
	if in.IsUnlisted != nil {
		sn.IsUnlisted = *in.IsUnlisted
	}

	updated, err := s.store.UpdateSnippet(ctx, sn)
	if err != nil {
		return snippet.Snippet{}, svcerr.UpdateFailed("failed to update snippet", err)
	}
	return updated, nil
}

// Delete removes a snippet owned by the caller. The backing release is left
// in place.
func (s *Service) Delete(ctx context.Context, caller account.Account, snippetID string) error {
	sn, err := s.Get(ctx, caller, snippetID, "")
	if err != nil {
		return err
	}
	if !s.owns(caller, sn) {
		return svcerr.Forbidden("You do not have permission to delete this snippet")
	}
	if err := s.store.DeleteSnippet(ctx, sn.ID); err != nil {
		return err
	}
	s.log.WithField("snippet_id", sn.ID).Info("snippet deleted")
	return nil
}

// List returns snippets for an owner, hiding other users' private snippets.
func (s *Service) List(ctx context.Context, caller account.Account, ownerName string) ([]snippet.Snippet, error) {
	all, err := s.store.ListSnippets(ctx, ownerName)
	if err != nil {
		return nil, err
	}
	visible := make([]snippet.Snippet, 0, len(all))
	for _, sn := range all {
		if sn.IsPrivate && !s.owns(caller, sn) {
			continue
		}
		visible = append(visible, sn)
	}
	return visible, nil
}

// ListNewest returns the most recently created public snippets.
func (s *Service) ListNewest(ctx context.Context, limit int) ([]snippet.Snippet, error) {
	return s.store.ListNewestSnippets(ctx, limit)
}

// ListTrending returns public snippets ranked by stars received in the
// trending window.
func (s *Service) ListTrending(ctx context.Context, limit int) ([]snippet.Snippet, error) {
	since := s.now().UTC().Add(-TrendingWindow)
	return s.store.ListTrendingSnippets(ctx, limit, since)
}

// Search returns public snippets matching the query.
func (s *Service) Search(ctx context.Context, query string) ([]snippet.Snippet, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, svcerr.InvalidRequest("query is required")
	}
	return s.store.SearchSnippets(ctx, query)
}

// Star records the caller starring a snippet.
func (s *Service) Star(ctx context.Context, caller account.Account, snippetID string) (snippet.Snippet, error) {
	sn, err := s.Get(ctx, caller, snippetID, "")
	if err != nil {
		return snippet.Snippet{}, err
	}
	if _, err := s.store.StarSnippet(ctx, caller.ID, sn.ID); err != nil {
		return snippet.Snippet{}, err
	}
	return s.Get(ctx, caller, sn.ID, "")
}

// Unstar removes the caller's star from a snippet.
func (s *Service) Unstar(ctx context.Context, caller account.Account, snippetID string) (snippet.Snippet, error) {
	sn, err := s.Get(ctx, caller, snippetID, "")
	if err != nil {
		return snippet.Snippet{}, err
	}
	if err := s.store.UnstarSnippet(ctx, caller.ID, sn.ID); err != nil {
		return snippet.Snippet{}, err
	}
	return s.Get(ctx, caller, sn.ID, "")
}

func (s *Service) owns(caller account.Account, sn snippet.Snippet) bool {
	return caller.ID != "" && strings.EqualFold(caller.GithubUsername, sn.OwnerName)
}
