// Package pkg defines the package aggregate: packages, their releases, the
// files attached to a release, and build attempts against a release.
package pkg

import (
	"fmt"
	"strings"
	"time"
)

// Package is a named, versioned unit of circuit design code. Name is always
// "owner/unscoped_name"; owner is either a GitHub username or an org name.
type Package struct {
	ID                  string    `json:"package_id"`
	CreatorAccountID    string    `json:"creator_account_id"`
	OwnerOrgID          string    `json:"owner_org_id,omitempty"`
	OwnerGithubUsername string    `json:"owner_github_username"`
	Name                string    `json:"name"`
	UnscopedName        string    `json:"unscoped_name"`
	Description         string    `json:"description,omitempty"`
	AIDescription       string    `json:"ai_description,omitempty"`
	AIUsageInstructions string    `json:"ai_usage_instructions,omitempty"`
	LatestReleaseID     string    `json:"latest_package_release_id,omitempty"`
	LatestVersion       string    `json:"latest_version,omitempty"`
	StarCount           int       `json:"star_count"`
	IsSourceFromGithub  bool      `json:"is_source_from_github"`
	IsPrivate           bool      `json:"is_private"`
	IsPublic            bool      `json:"is_public"`
	IsUnlisted          bool      `json:"is_unlisted"`
	IsSnippet           bool      `json:"is_snippet"`
	IsBoard             bool      `json:"is_board"`
	IsPackage           bool      `json:"is_package"`
	IsModel             bool      `json:"is_model"`
	IsFootprint         bool      `json:"is_footprint"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// SplitName splits "owner/unscoped" into its parts.
func SplitName(name string) (owner, unscoped string, err error) {
	parts := strings.SplitN(name, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("package name %q must be owner/unscoped_name", name)
	}
	return parts[0], parts[1], nil
}

// Release is a specific version of a package, optionally tied to git metadata.
type Release struct {
	ID             string    `json:"package_release_id"`
	PackageID      string    `json:"package_id"`
	Version        string    `json:"version"`
	IsLatest       bool      `json:"is_latest"`
	IsLocked       bool      `json:"is_locked"`
	Branch         string    `json:"branch,omitempty"`
	CommitSHA      string    `json:"commit_sha,omitempty"`
	GithubPRNumber int       `json:"github_pr_number,omitempty"`
	LatestBuildID  string    `json:"latest_package_build_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// File is a single file within a release. Text content and binary content
// are mutually exclusive; binary payloads are carried base64-encoded.
type File struct {
	ID           string    `json:"package_file_id"`
	ReleaseID    string    `json:"package_release_id"`
	FilePath     string    `json:"file_path"`
	ContentText  string    `json:"content_text,omitempty"`
	ContentBytes []byte    `json:"content_b64,omitempty"`
	Mimetype     string    `json:"content_mimetype,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// StageStatus is the state of one build pipeline stage.
type StageStatus string

const (
	StageQueued    StageStatus = "queued"
	StageRunning   StageStatus = "running"
	StageCompleted StageStatus = "completed"
	StageFailed    StageStatus = "failed"
)

// Stage records one pipeline stage of a build attempt.
type Stage struct {
	Status      StageStatus `json:"status"`
	StartedAt   *time.Time  `json:"started_at,omitempty"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	Logs        []string    `json:"logs,omitempty"`
	Error       string      `json:"error,omitempty"`
}

// Start moves a queued stage to running.
func (s *Stage) Start(now time.Time) error {
	if s.Status != StageQueued {
		return fmt.Errorf("stage is %s, can only start a queued stage", s.Status)
	}
	s.Status = StageRunning
	t := now.UTC()
	s.StartedAt = &t
	return nil
}

// Complete moves a running stage to completed.
func (s *Stage) Complete(now time.Time) error {
	if s.Status != StageRunning {
		return fmt.Errorf("stage is %s, can only complete a running stage", s.Status)
	}
	s.Status = StageCompleted
	t := now.UTC()
	s.CompletedAt = &t
	return nil
}

// Fail moves a running stage to failed with a reason.
func (s *Stage) Fail(now time.Time, reason string) error {
	if s.Status != StageRunning {
		return fmt.Errorf("stage is %s, can only fail a running stage", s.Status)
	}
	s.Status = StageFailed
	t := now.UTC()
	s.CompletedAt = &t
	s.Error = reason
	return nil
}

// Clone returns a deep copy of the stage.
func (s Stage) Clone() Stage {
	out := s
	out.Logs = append([]string(nil), s.Logs...)
	if s.StartedAt != nil {
		t := *s.StartedAt
		out.StartedAt = &t
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		out.CompletedAt = &t
	}
	return out
}

// StageName identifies one of the three build pipeline stages.
type StageName string

const (
	StageTranspilation StageName = "transpilation"
	StageCircuitJSON   StageName = "circuit_json_build"
	StageFinalBuild    StageName = "final_build"
)

// Build records one build attempt against a release. Stages run in pipeline
// order: transpilation, circuit JSON generation, final build.
type Build struct {
	ID            string    `json:"package_build_id"`
	ReleaseID     string    `json:"package_release_id"`
	Transpilation Stage     `json:"transpilation"`
	CircuitJSON   Stage     `json:"circuit_json_build"`
	FinalBuild    Stage     `json:"final_build"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewBuild returns a build with all stages queued.
func NewBuild(releaseID string) Build {
	return Build{
		ReleaseID:     releaseID,
		Transpilation: Stage{Status: StageQueued},
		CircuitJSON:   Stage{Status: StageQueued},
		FinalBuild:    Stage{Status: StageQueued},
	}
}

// StageByName returns a pointer to the named stage.
func (b *Build) StageByName(name StageName) (*Stage, error) {
	switch name {
	case StageTranspilation:
		return &b.Transpilation, nil
	case StageCircuitJSON:
		return &b.CircuitJSON, nil
	case StageFinalBuild:
		return &b.FinalBuild, nil
	}
	return nil, fmt.Errorf("unknown build stage %q", name)
}

// Succeeded reports whether every stage completed.
func (b Build) Succeeded() bool {
	return b.Transpilation.Status == StageCompleted &&
		b.CircuitJSON.Status == StageCompleted &&
		b.FinalBuild.Status == StageCompleted
}

// Clone returns a deep copy of the build.
func (b Build) Clone() Build {
	out := b
	out.Transpilation = b.Transpilation.Clone()
	out.CircuitJSON = b.CircuitJSON.Clone()
	out.FinalBuild = b.FinalBuild.Clone()
	return out
}

// Star is a join row recording that an account starred a package.
type Star struct {
	AccountID string    `json:"account_id"`
	PackageID string    `json:"package_id"`
	IsStarred bool      `json:"is_starred"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
