package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/circuitforge/registry/internal/app/domain/pkg"
)

// PackageStore implementation -------------------------------------------------

func (s *Store) CreatePackage(_ context.Context, p pkg.Package) (pkg.Package, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = s.nextIDLocked()
	} else if _, exists := s.packages[p.ID]; exists {
		return pkg.Package{}, fmt.Errorf("package %s already exists", p.ID)
	}

	nameKey := strings.ToLower(strings.TrimSpace(p.Name))
	if nameKey == "" {
		return pkg.Package{}, fmt.Errorf("package name is required")
	}
	if existing, exists := s.packagesByName[nameKey]; exists {
		return pkg.Package{}, fmt.Errorf("package name %s already taken by package %s", p.Name, existing)
	}

	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	p.StarCount = 0

	s.packages[p.ID] = p
	s.packagesByName[nameKey] = p.ID
	return p, nil
}

func (s *Store) UpdatePackage(_ context.Context, p pkg.Package) (pkg.Package, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.packages[p.ID]
	if !ok {
		return pkg.Package{}, notFound("package", p.ID)
	}

	oldKey := strings.ToLower(original.Name)
	newKey := strings.ToLower(strings.TrimSpace(p.Name))
	if newKey == "" {
		p.Name = original.Name
		newKey = oldKey
	}
	if newKey != oldKey {
		if existing, exists := s.packagesByName[newKey]; exists && existing != p.ID {
			return pkg.Package{}, fmt.Errorf("package name %s already taken by package %s", p.Name, existing)
		}
		delete(s.packagesByName, oldKey)
		s.packagesByName[newKey] = p.ID
	}

	p.CreatedAt = original.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	s.packages[p.ID] = p

	return s.withPackageStarsLocked(p), nil
}

func (s *Store) GetPackage(_ context.Context, id string) (pkg.Package, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.packages[id]
	if !ok {
		return pkg.Package{}, notFound("package", id)
	}
	return s.withPackageStarsLocked(p), nil
}

func (s *Store) GetPackageByName(_ context.Context, name string) (pkg.Package, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id, ok := s.packagesByName[strings.ToLower(strings.TrimSpace(name))]; ok {
		return s.withPackageStarsLocked(s.packages[id]), nil
	}
	return pkg.Package{}, notFound("package", name)
}

func (s *Store) ListPackages(_ context.Context, ownerUsername string) ([]pkg.Package, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]pkg.Package, 0)
	for _, p := range s.packages {
		if ownerUsername == "" || strings.EqualFold(p.OwnerGithubUsername, ownerUsername) {
			result = append(result, s.withPackageStarsLocked(p))
		}
	}
	sortPackages(result)
	return result, nil
}

func (s *Store) SearchPackages(_ context.Context, query string) ([]pkg.Package, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(query))
	result := make([]pkg.Package, 0)
	for _, p := range s.packages {
		if p.IsPrivate || p.IsUnlisted {
			continue
		}
		if q == "" ||
			strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strings.ToLower(p.Description), q) ||
			strings.Contains(strings.ToLower(p.AIDescription), q) {
			result = append(result, s.withPackageStarsLocked(p))
		}
	}
	sortPackages(result)
	return result, nil
}

func (s *Store) StarPackage(_ context.Context, accountID, packageID string) (pkg.Star, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.packages[packageID]; !ok {
		return pkg.Star{}, notFound("package", packageID)
	}

	now := time.Now().UTC()
	stars := s.packageStars[packageID]
	if stars == nil {
		stars = make(map[string]pkg.Star)
		s.packageStars[packageID] = stars
	}

	star, exists := stars[accountID]
	if !exists {
		star = pkg.Star{AccountID: accountID, PackageID: packageID, CreatedAt: now}
	}
	star.IsStarred = true
	star.UpdatedAt = now
	stars[accountID] = star
	return star, nil
}

func (s *Store) UnstarPackage(_ context.Context, accountID, packageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.packages[packageID]; !ok {
		return notFound("package", packageID)
	}
	delete(s.packageStars[packageID], accountID)
	return nil
}

func (s *Store) PackageStarCount(_ context.Context, packageID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.packages[packageID]; !ok {
		return 0, notFound("package", packageID)
	}
	return s.packageStarCountLocked(packageID), nil
}

func (s *Store) packageStarCountLocked(packageID string) int {
	count := 0
	for _, star := range s.packageStars[packageID] {
		if star.IsStarred {
			count++
		}
	}
	return count
}

// withPackageStarsLocked fills the derived star count on a copy of p.
func (s *Store) withPackageStarsLocked(p pkg.Package) pkg.Package {
	p.StarCount = s.packageStarCountLocked(p.ID)
	return p
}

func sortPackages(list []pkg.Package) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return idLess(list[j].ID, list[i].ID)
	})
}

// ReleaseStore implementation -------------------------------------------------

func (s *Store) CreateRelease(_ context.Context, r pkg.Release) (pkg.Release, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = s.nextIDLocked()
	} else if _, exists := s.releases[r.ID]; exists {
		return pkg.Release{}, fmt.Errorf("release %s already exists", r.ID)
	}

	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now

	s.releases[r.ID] = r
	return r, nil
}

func (s *Store) UpdateRelease(_ context.Context, r pkg.Release) (pkg.Release, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.releases[r.ID]
	if !ok {
		return pkg.Release{}, notFound("release", r.ID)
	}

	r.CreatedAt = original.CreatedAt
	r.UpdatedAt = time.Now().UTC()
	s.releases[r.ID] = r
	return r, nil
}

func (s *Store) GetRelease(_ context.Context, id string) (pkg.Release, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.releases[id]
	if !ok {
		return pkg.Release{}, notFound("release", id)
	}
	return r, nil
}

func (s *Store) ListReleases(_ context.Context, packageID string) ([]pkg.Release, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]pkg.Release, 0)
	for _, r := range s.releases {
		if packageID == "" || r.PackageID == packageID {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return idLess(result[i].ID, result[j].ID)
	})
	return result, nil
}

// FileStore implementation ----------------------------------------------------

func (s *Store) CreatePackageFile(_ context.Context, f pkg.File) (pkg.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f.ID == "" {
		f.ID = s.nextIDLocked()
	} else if _, exists := s.packageFiles[f.ID]; exists {
		return pkg.File{}, fmt.Errorf("package file %s already exists", f.ID)
	}

	f.CreatedAt = time.Now().UTC()
	f.ContentBytes = append([]byte(nil), f.ContentBytes...)

	s.packageFiles[f.ID] = f
	return clonePackageFile(f), nil
}

func (s *Store) GetPackageFile(_ context.Context, id string) (pkg.File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.packageFiles[id]
	if !ok {
		return pkg.File{}, notFound("package file", id)
	}
	return clonePackageFile(f), nil
}

func (s *Store) GetPackageFileByPath(_ context.Context, releaseID, filePath string) (pkg.File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, f := range s.packageFiles {
		if f.ReleaseID == releaseID && f.FilePath == filePath {
			return clonePackageFile(f), nil
		}
	}
	return pkg.File{}, notFound("package file", filePath)
}

func (s *Store) ListPackageFiles(_ context.Context, releaseID string) ([]pkg.File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]pkg.File, 0)
	for _, f := range s.packageFiles {
		if f.ReleaseID == releaseID {
			result = append(result, clonePackageFile(f))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].FilePath < result[j].FilePath })
	return result, nil
}

func clonePackageFile(f pkg.File) pkg.File {
	f.ContentBytes = append([]byte(nil), f.ContentBytes...)
	return f
}

// BuildStore implementation ---------------------------------------------------

func (s *Store) CreateBuild(_ context.Context, b pkg.Build) (pkg.Build, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b.ID == "" {
		b.ID = s.nextIDLocked()
	} else if _, exists := s.builds[b.ID]; exists {
		return pkg.Build{}, fmt.Errorf("build %s already exists", b.ID)
	}

	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now

	s.builds[b.ID] = b.Clone()
	return b.Clone(), nil
}

func (s *Store) UpdateBuild(_ context.Context, b pkg.Build) (pkg.Build, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.builds[b.ID]
	if !ok {
		return pkg.Build{}, notFound("build", b.ID)
	}

	b.CreatedAt = original.CreatedAt
	b.UpdatedAt = time.Now().UTC()
	s.builds[b.ID] = b.Clone()
	return b.Clone(), nil
}

func (s *Store) GetBuild(_ context.Context, id string) (pkg.Build, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.builds[id]
	if !ok {
		return pkg.Build{}, notFound("build", id)
	}
	return b.Clone(), nil
}

func (s *Store) ListBuilds(_ context.Context, releaseID string) ([]pkg.Build, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]pkg.Build, 0)
	for _, b := range s.builds {
		if releaseID == "" || b.ReleaseID == releaseID {
			result = append(result, b.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return idLess(result[j].ID, result[i].ID)
	})
	return result, nil
}
