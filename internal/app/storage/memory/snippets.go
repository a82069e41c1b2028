package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/circuitforge/registry/internal/app/domain/snippet"
)

// SnippetStore implementation -------------------------------------------------

func (s *Store) CreateSnippet(_ context.Context, sn snippet.Snippet) (snippet.Snippet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sn.ID == "" {
		sn.ID = s.nextIDLocked()
	} else if _, exists := s.snippets[sn.ID]; exists {
		return snippet.Snippet{}, fmt.Errorf("snippet %s already exists", sn.ID)
	}

	nameKey := strings.ToLower(strings.TrimSpace(sn.Name))
	if nameKey == "" {
		return snippet.Snippet{}, fmt.Errorf("snippet name is required")
	}
	if existing, exists := s.snippetsByName[nameKey]; exists {
		return snippet.Snippet{}, fmt.Errorf("snippet name %s already taken by snippet %s", sn.Name, existing)
	}

	now := time.Now().UTC()
	sn.CreatedAt = now
	sn.UpdatedAt = now
	sn.StarCount = 0

	s.snippets[sn.ID] = cloneSnippet(sn)
	s.snippetsByName[nameKey] = sn.ID
	return cloneSnippet(sn), nil
}

func (s *Store) UpdateSnippet(_ context.Context, sn snippet.Snippet) (snippet.Snippet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.snippets[sn.ID]
	if !ok {
		return snippet.Snippet{}, notFound("snippet", sn.ID)
	}

	// Name and pairing with the synthesized release are immutable.
	sn.Name = original.Name
	sn.UnscopedName = original.UnscopedName
	sn.OwnerName = original.OwnerName
	sn.ReleaseID = original.ReleaseID
	sn.CreatedAt = original.CreatedAt
	sn.UpdatedAt = time.Now().UTC()

	s.snippets[sn.ID] = cloneSnippet(sn)
	return s.withSnippetStarsLocked(cloneSnippet(sn)), nil
}

func (s *Store) GetSnippet(_ context.Context, id string) (snippet.Snippet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sn, ok := s.snippets[id]
	if !ok {
		return snippet.Snippet{}, notFound("snippet", id)
	}
	return s.withSnippetStarsLocked(cloneSnippet(sn)), nil
}

func (s *Store) GetSnippetByName(_ context.Context, name string) (snippet.Snippet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id, ok := s.snippetsByName[strings.ToLower(strings.TrimSpace(name))]; ok {
		return s.withSnippetStarsLocked(cloneSnippet(s.snippets[id])), nil
	}
	return snippet.Snippet{}, notFound("snippet", name)
}

func (s *Store) ListSnippets(_ context.Context, ownerName string) ([]snippet.Snippet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]snippet.Snippet, 0)
	for _, sn := range s.snippets {
		if ownerName == "" || strings.EqualFold(sn.OwnerName, ownerName) {
			result = append(result, s.withSnippetStarsLocked(cloneSnippet(sn)))
		}
	}
	sortSnippetsNewest(result)
	return result, nil
}

func (s *Store) ListNewestSnippets(_ context.Context, limit int) ([]snippet.Snippet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]snippet.Snippet, 0, len(s.snippets))
	for _, sn := range s.snippets {
		if sn.IsPrivate || sn.IsUnlisted {
			continue
		}
		result = append(result, s.withSnippetStarsLocked(cloneSnippet(sn)))
	}
	sortSnippetsNewest(result)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// ListTrendingSnippets ranks public snippets by stars gained at or after
// since. Snippets with no qualifying stars still appear with a count of 0;
// the returned StarCount is the windowed count.
func (s *Store) ListTrendingSnippets(_ context.Context, limit int, since time.Time) ([]snippet.Snippet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]snippet.Snippet, 0, len(s.snippets))
	for _, sn := range s.snippets {
		if sn.IsPrivate || sn.IsUnlisted {
			continue
		}
		out := cloneSnippet(sn)
		out.StarCount = s.snippetStarCountSinceLocked(sn.ID, since)
		result = append(result, out)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].StarCount != result[j].StarCount {
			return result[i].StarCount > result[j].StarCount
		}
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return idLess(result[j].ID, result[i].ID)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) SearchSnippets(_ context.Context, query string) ([]snippet.Snippet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(query))
	result := make([]snippet.Snippet, 0)
	for _, sn := range s.snippets {
		if sn.IsPrivate || sn.IsUnlisted {
			continue
		}
		if q == "" ||
			strings.Contains(strings.ToLower(sn.Name), q) ||
			strings.Contains(strings.ToLower(sn.Description), q) ||
			strings.Contains(strings.ToLower(sn.Code), q) {
			result = append(result, s.withSnippetStarsLocked(cloneSnippet(sn)))
		}
	}
	sortSnippetsNewest(result)
	return result, nil
}

// DeleteSnippet removes the snippet only. The paired release is left in
// place; there is no cascade.
func (s *Store) DeleteSnippet(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sn, ok := s.snippets[id]
	if !ok {
		return notFound("snippet", id)
	}
	delete(s.snippets, id)
	delete(s.snippetsByName, strings.ToLower(sn.Name))
	delete(s.snippetStars, id)
	return nil
}

func (s *Store) StarSnippet(_ context.Context, accountID, snippetID string) (snippet.Star, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.snippets[snippetID]; !ok {
		return snippet.Star{}, notFound("snippet", snippetID)
	}

	now := time.Now().UTC()
	stars := s.snippetStars[snippetID]
	if stars == nil {
		stars = make(map[string]snippet.Star)
		s.snippetStars[snippetID] = stars
	}

	star, exists := stars[accountID]
	if !exists {
		star = snippet.Star{AccountID: accountID, SnippetID: snippetID, CreatedAt: now}
	}
	star.HasStarred = true
	star.UpdatedAt = now
	stars[accountID] = star
	return star, nil
}

func (s *Store) UnstarSnippet(_ context.Context, accountID, snippetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.snippets[snippetID]; !ok {
		return notFound("snippet", snippetID)
	}
	delete(s.snippetStars[snippetID], accountID)
	return nil
}

func (s *Store) SnippetStarCount(_ context.Context, snippetID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.snippets[snippetID]; !ok {
		return 0, notFound("snippet", snippetID)
	}
	return s.snippetStarCountLocked(snippetID), nil
}

func (s *Store) snippetStarCountLocked(snippetID string) int {
	count := 0
	for _, star := range s.snippetStars[snippetID] {
		if star.HasStarred {
			count++
		}
	}
	return count
}

func (s *Store) snippetStarCountSinceLocked(snippetID string, since time.Time) int {
	count := 0
	for _, star := range s.snippetStars[snippetID] {
		if star.HasStarred && !star.CreatedAt.Before(since) {
			count++
		}
	}
	return count
}

func (s *Store) withSnippetStarsLocked(sn snippet.Snippet) snippet.Snippet {
	sn.StarCount = s.snippetStarCountLocked(sn.ID)
	return sn
}

func cloneSnippet(sn snippet.Snippet) snippet.Snippet {
	sn.CircuitJSON = append([]interface{}(nil), sn.CircuitJSON...)
	return sn
}

func sortSnippetsNewest(list []snippet.Snippet) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return idLess(list[j].ID, list[i].ID)
	})
}
