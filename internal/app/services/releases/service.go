// Package releases implements package release operations: release creation
// with latest-version maintenance, file uploads, and the build pipeline.
package releases

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/circuitforge/registry/internal/app/domain/account"
	"github.com/circuitforge/registry/internal/app/domain/pkg"
	"github.com/circuitforge/registry/internal/app/storage"
	svcerr "github.com/circuitforge/registry/internal/errors"
	"github.com/circuitforge/registry/pkg/logger"
)

// Store is the persistence surface the release service needs.
type Store interface {
	storage.PackageStore
	storage.ReleaseStore
	storage.FileStore
	storage.BuildStore
	storage.OrgStore
}

// Service manages releases, their files, and their builds. Every operation
// is scoped to the parent package: reads require the caller to be able to
// see the package, mutations require ownership.
type Service struct {
	store Store
	log   *logger.Logger

	now func() time.Time
}

// New constructs a release service.
func New(store Store, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("releases")
	}
	return &Service{store: store, log: log, now: time.Now}
}

// CreateInput describes a new release.
type CreateInput struct {
	PackageID string
	Version   string
	IsLatest  bool
	Branch    string
	CommitSHA string
}

// Create adds a release to a package owned by the caller. When the release is
// marked latest, the previous latest release is demoted and the package's
// latest pointers are updated. Every release starts with one queued build.
func (s *Service) Create(ctx context.Context, caller account.Account, in CreateInput) (pkg.Release, error) {
	if strings.TrimSpace(in.Version) == "" {
		return pkg.Release{}, svcerr.InvalidRequest("version is required")
	}

	p, err := s.ownedPackage(ctx, caller, in.PackageID, svcerr.CodePackageNotFound, "Package not found")
	if err != nil {
		return pkg.Release{}, err
	}

	existing, err := s.store.ListReleases(ctx, p.ID)
	if err != nil {
		return pkg.Release{}, err
	}
	for _, r := range existing {
		if r.Version == in.Version {
			return pkg.Release{}, svcerr.InvalidRequest("A release with this version already exists")
		}
	}

	if in.IsLatest {
		for _, r := range existing {
			if !r.IsLatest {
				continue
			}
			r.IsLatest = false
			if _, err := s.store.UpdateRelease(ctx, r); err != nil {
				return pkg.Release{}, err
			}
		}
	}

	release, err := s.store.CreateRelease(ctx, pkg.Release{
		PackageID: p.ID,
		Version:   in.Version,
		IsLatest:  in.IsLatest,
		Branch:    in.Branch,
		CommitSHA: in.CommitSHA,
	})
	if err != nil {
		return pkg.Release{}, err
	}

	build, err := s.store.CreateBuild(ctx, pkg.NewBuild(release.ID))
	if err != nil {
		return pkg.Release{}, err
	}
	release.LatestBuildID = build.ID
	release, err = s.store.UpdateRelease(ctx, release)
	if err != nil {
		return pkg.Release{}, err
	}

	if in.IsLatest {
		p.LatestReleaseID = release.ID
		p.LatestVersion = release.Version
		if _, err := s.store.UpdatePackage(ctx, p); err != nil {
			return pkg.Release{}, err
		}
	}

	s.log.WithField("package_id", p.ID).
		WithField("release_id", release.ID).
		WithField("version", release.Version).
		Info("release created")
	return release, nil
}

// Get returns a release by id, or the latest release of a package when
// packageID is given instead. Releases of packages the caller cannot see are
// reported as not found.
func (s *Service) Get(ctx context.Context, caller account.Account, releaseID, packageID string) (pkg.Release, error) {
	if releaseID != "" {
		r, err := s.store.GetRelease(ctx, releaseID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return pkg.Release{}, svcerr.NotFound(svcerr.CodeReleaseNotFound, "Package release not found")
			}
			return pkg.Release{}, err
		}
		if _, err := s.visiblePackage(ctx, caller, r.PackageID, svcerr.CodeReleaseNotFound, "Package release not found"); err != nil {
			return pkg.Release{}, err
		}
		return r, nil
	}
	if packageID == "" {
		return pkg.Release{}, svcerr.InvalidRequest("package_release_id or package_id is required")
	}
	if _, err := s.visiblePackage(ctx, caller, packageID, svcerr.CodePackageNotFound, "Package not found"); err != nil {
		return pkg.Release{}, err
	}
	all, err := s.store.ListReleases(ctx, packageID)
	if err != nil {
		return pkg.Release{}, err
	}
	for _, r := range all {
		if r.IsLatest {
			return r, nil
		}
	}
	return pkg.Release{}, svcerr.NotFound(svcerr.CodeReleaseNotFound, "Package has no latest release")
}

// List returns releases of a package the caller can see, oldest first.
func (s *Service) List(ctx context.Context, caller account.Account, packageID string) ([]pkg.Release, error) {
	if packageID == "" {
		return nil, svcerr.InvalidRequest("package_id is required")
	}
	if _, err := s.visiblePackage(ctx, caller, packageID, svcerr.CodePackageNotFound, "Package not found"); err != nil {
		return nil, err
	}
	return s.store.ListReleases(ctx, packageID)
}

// Lock prevents further file uploads to a release.
func (s *Service) Lock(ctx context.Context, caller account.Account, releaseID string) (pkg.Release, error) {
	r, err := s.Get(ctx, caller, releaseID, "")
	if err != nil {
		return pkg.Release{}, err
	}
	if _, err := s.ownedPackage(ctx, caller, r.PackageID, svcerr.CodeReleaseNotFound, "Package release not found"); err != nil {
		return pkg.Release{}, err
	}
	if r.IsLocked {
		return r, nil
	}
	r.IsLocked = true
	return s.store.UpdateRelease(ctx, r)
}

// FileInput describes an uploaded file. Exactly one of ContentText and
// ContentBytes should be set.
type FileInput struct {
	ReleaseID    string
	FilePath     string
	ContentText  string
	ContentBytes []byte
	Mimetype     string
}

// AddFile attaches a file to a release of a package owned by the caller.
func (s *Service) AddFile(ctx context.Context, caller account.Account, in FileInput) (pkg.File, error) {
	if strings.TrimSpace(in.FilePath) == "" {
		return pkg.File{}, svcerr.InvalidRequest("file_path is required")
	}
	r, err := s.Get(ctx, caller, in.ReleaseID, "")
	if err != nil {
		return pkg.File{}, err
	}
	if _, err := s.ownedPackage(ctx, caller, r.PackageID, svcerr.CodeReleaseNotFound, "Package release not found"); err != nil {
		return pkg.File{}, err
	}
	if r.IsLocked {
		return pkg.File{}, svcerr.UpdateFailed("release is locked", nil)
	}
	if _, err := s.store.GetPackageFileByPath(ctx, r.ID, in.FilePath); err == nil {
		return pkg.File{}, svcerr.InvalidRequest("A file already exists at this path")
	} else if !errors.Is(err, storage.ErrNotFound) {
		return pkg.File{}, err
	}

	return s.store.CreatePackageFile(ctx, pkg.File{
		ReleaseID:    r.ID,
		FilePath:     in.FilePath,
		ContentText:  in.ContentText,
		ContentBytes: in.ContentBytes,
		Mimetype:     in.Mimetype,
	})
}

// GetFile returns a file by id, or by (release, path). Files under packages
// the caller cannot see are reported as not found.
func (s *Service) GetFile(ctx context.Context, caller account.Account, fileID, releaseID, filePath string) (pkg.File, error) {
	var (
		f   pkg.File
		err error
	)
	switch {
	case fileID != "":
		f, err = s.store.GetPackageFile(ctx, fileID)
	case releaseID != "" && filePath != "":
		f, err = s.store.GetPackageFileByPath(ctx, releaseID, filePath)
	default:
		return pkg.File{}, svcerr.InvalidRequest("package_file_id or (package_release_id, file_path) is required")
	}
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return pkg.File{}, svcerr.NotFound(svcerr.CodeFileNotFound, "Package file not found")
		}
		return pkg.File{}, err
	}
	r, err := s.store.GetRelease(ctx, f.ReleaseID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return pkg.File{}, svcerr.NotFound(svcerr.CodeFileNotFound, "Package file not found")
		}
		return pkg.File{}, err
	}
	if _, err := s.visiblePackage(ctx, caller, r.PackageID, svcerr.CodeFileNotFound, "Package file not found"); err != nil {
		return pkg.File{}, err
	}
	return f, nil
}

// ListFiles returns the files of a release sorted by path.
func (s *Service) ListFiles(ctx context.Context, caller account.Account, releaseID string) ([]pkg.File, error) {
	if _, err := s.Get(ctx, caller, releaseID, ""); err != nil {
		return nil, err
	}
	return s.store.ListPackageFiles(ctx, releaseID)
}

// GetBuild returns a build by id. Builds under packages the caller cannot see
// are reported as not found.
func (s *Service) GetBuild(ctx context.Context, caller account.Account, buildID string) (pkg.Build, error) {
	b, err := s.store.GetBuild(ctx, buildID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return pkg.Build{}, svcerr.NotFound(svcerr.CodeBuildNotFound, "Package build not found")
		}
		return pkg.Build{}, err
	}
	if _, err := s.buildPackage(ctx, caller, b, svcerr.CodeBuildNotFound, "Package build not found"); err != nil {
		return pkg.Build{}, err
	}
	return b, nil
}

// ListBuilds returns builds for a release, newest first.
func (s *Service) ListBuilds(ctx context.Context, caller account.Account, releaseID string) ([]pkg.Build, error) {
	if _, err := s.Get(ctx, caller, releaseID, ""); err != nil {
		return nil, err
	}
	return s.store.ListBuilds(ctx, releaseID)
}

// Rebuild queues a fresh build for a release and points the release at it.
func (s *Service) Rebuild(ctx context.Context, caller account.Account, releaseID string) (pkg.Build, error) {
	r, err := s.Get(ctx, caller, releaseID, "")
	if err != nil {
		return pkg.Build{}, err
	}
	if _, err := s.ownedPackage(ctx, caller, r.PackageID, svcerr.CodeReleaseNotFound, "Package release not found"); err != nil {
		return pkg.Build{}, err
	}
	b, err := s.store.CreateBuild(ctx, pkg.NewBuild(r.ID))
	if err != nil {
		return pkg.Build{}, err
	}
	r.LatestBuildID = b.ID
	if _, err := s.store.UpdateRelease(ctx, r); err != nil {
		return pkg.Build{}, err
	}
	return b, nil
}

// StageAction is a requested build stage transition.
type StageAction string

const (
	ActionStart    StageAction = "start"
	ActionComplete StageAction = "complete"
	ActionFail     StageAction = "fail"
)

// AdvanceStage applies a transition to one stage of a build of a package the
// caller owns. Stages run in pipeline order, so a stage can only start once
// its predecessor completed.
func (s *Service) AdvanceStage(ctx context.Context, caller account.Account, buildID string, stage pkg.StageName, action StageAction, logs []string, failureReason string) (pkg.Build, error) {
	b, err := s.GetBuild(ctx, caller, buildID)
	if err != nil {
		return pkg.Build{}, err
	}
	p, err := s.buildPackage(ctx, caller, b, svcerr.CodeBuildNotFound, "Package build not found")
	if err != nil {
		return pkg.Build{}, err
	}
	if err := s.requireOwner(ctx, caller, p); err != nil {
		return pkg.Build{}, err
	}
	target, err := b.StageByName(stage)
	if err != nil {
		return pkg.Build{}, svcerr.InvalidRequest(err.Error())
	}

	now := s.now().UTC()
	switch action {
	case ActionStart:
		if prev := previousStage(&b, stage); prev != nil && prev.Status != pkg.StageCompleted {
			return pkg.Build{}, svcerr.UpdateFailed("previous pipeline stage has not completed", nil)
		}
		err = target.Start(now)
	case ActionComplete:
		err = target.Complete(now)
	case ActionFail:
		err = target.Fail(now, failureReason)
	default:
		return pkg.Build{}, svcerr.InvalidRequest("action must be start, complete, or fail")
	}
	if err != nil {
		return pkg.Build{}, svcerr.UpdateFailed(err.Error(), nil)
	}
	if len(logs) > 0 {
		target.Logs = append(target.Logs, logs...)
	}

	updated, err := s.store.UpdateBuild(ctx, b)
	if err != nil {
		return pkg.Build{}, err
	}
	s.log.WithField("build_id", buildID).
		WithField("stage", string(stage)).
		WithField("action", string(action)).
		Info("build stage advanced")
	return updated, nil
}

func previousStage(b *pkg.Build, name pkg.StageName) *pkg.Stage {
	switch name {
	case pkg.StageCircuitJSON:
		return &b.Transpilation
	case pkg.StageFinalBuild:
		return &b.CircuitJSON
	}
	return nil
}

// visiblePackage loads a package and masks it behind the given not-found
// error when the caller may not see it.
func (s *Service) visiblePackage(ctx context.Context, caller account.Account, packageID string, code svcerr.ErrorCode, msg string) (pkg.Package, error) {
	p, err := s.store.GetPackage(ctx, packageID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return pkg.Package{}, svcerr.NotFound(code, msg)
		}
		return pkg.Package{}, err
	}
	if p.IsPrivate {
		ok, err := s.canAccess(ctx, caller, p)
		if err != nil {
			return pkg.Package{}, err
		}
		if !ok {
			return pkg.Package{}, svcerr.NotFound(code, msg)
		}
	}
	return p, nil
}

// ownedPackage loads a package for mutation: inaccessible private packages
// are masked as not found, visible packages the caller does not own are
// rejected as forbidden.
func (s *Service) ownedPackage(ctx context.Context, caller account.Account, packageID string, code svcerr.ErrorCode, msg string) (pkg.Package, error) {
	p, err := s.visiblePackage(ctx, caller, packageID, code, msg)
	if err != nil {
		return pkg.Package{}, err
	}
	if err := s.requireOwner(ctx, caller, p); err != nil {
		return pkg.Package{}, err
	}
	return p, nil
}

// buildPackage resolves the package a build ultimately belongs to, applying
// the same visibility mask as visiblePackage.
func (s *Service) buildPackage(ctx context.Context, caller account.Account, b pkg.Build, code svcerr.ErrorCode, msg string) (pkg.Package, error) {
	r, err := s.store.GetRelease(ctx, b.ReleaseID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return pkg.Package{}, svcerr.NotFound(code, msg)
		}
		return pkg.Package{}, err
	}
	return s.visiblePackage(ctx, caller, r.PackageID, code, msg)
}

func (s *Service) requireOwner(ctx context.Context, caller account.Account, p pkg.Package) error {
	ok, err := s.canAccess(ctx, caller, p)
	if err != nil {
		return err
	}
	if !ok {
		return svcerr.Forbidden("Only the package owner can modify its releases")
	}
	return nil
}

// canAccess mirrors the package service's ownership rules: the creator always
// has access, as do members of the owning org.
func (s *Service) canAccess(ctx context.Context, caller account.Account, p pkg.Package) (bool, error) {
	if caller.ID == "" {
		return false, nil
	}
	if p.CreatorAccountID == caller.ID {
		return true, nil
	}
	if strings.EqualFold(p.OwnerGithubUsername, caller.GithubUsername) {
		return true, nil
	}
	if p.OwnerOrgID != "" {
		return s.store.IsOrgMember(ctx, p.OwnerOrgID, caller.ID)
	}
	return false, nil
}
