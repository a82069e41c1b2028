package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/circuitforge/registry/internal/app/domain/pkg"
	"github.com/circuitforge/registry/internal/app/domain/snippet"
)

// --- ReleaseStore -----------------------------------------------------------

const releaseColumns = `
	id, package_id, version, is_latest, is_locked,
	branch, commit_sha, github_pr_number, latest_build_id,
	created_at, updated_at`

func (s *Store) CreateRelease(ctx context.Context, r pkg.Release) (pkg.Release, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO package_releases (`+releaseColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, r.ID, nullable(r.PackageID), r.Version, r.IsLatest, r.IsLocked,
		r.Branch, r.CommitSHA, r.GithubPRNumber, nullable(r.LatestBuildID),
		r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return pkg.Release{}, err
	}
	return r, nil
}

func (s *Store) UpdateRelease(ctx context.Context, r pkg.Release) (pkg.Release, error) {
	existing, err := s.GetRelease(ctx, r.ID)
	if err != nil {
		return pkg.Release{}, err
	}
	r.CreatedAt = existing.CreatedAt
	r.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE package_releases SET
			version = $2, is_latest = $3, is_locked = $4,
			branch = $5, commit_sha = $6, github_pr_number = $7,
			latest_build_id = $8, updated_at = $9
		WHERE id = $1
	`, r.ID, r.Version, r.IsLatest, r.IsLocked,
		r.Branch, r.CommitSHA, r.GithubPRNumber, nullable(r.LatestBuildID), r.UpdatedAt)
	if err != nil {
		return pkg.Release{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return pkg.Release{}, wrapNoRows(sql.ErrNoRows, "release", r.ID)
	}
	return r, nil
}

func (s *Store) GetRelease(ctx context.Context, id string) (pkg.Release, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+releaseColumns+` FROM package_releases WHERE id = $1
	`, id)
	r, err := scanRelease(row)
	if err != nil {
		return pkg.Release{}, wrapNoRows(err, "release", id)
	}
	return r, nil
}

func (s *Store) ListReleases(ctx context.Context, packageID string) ([]pkg.Release, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+releaseColumns+` FROM package_releases
		WHERE $1 = '' OR package_id = $1
		ORDER BY created_at
	`, packageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]pkg.Release, 0)
	for rows.Next() {
		r, err := scanRelease(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func scanRelease(row rowScanner) (pkg.Release, error) {
	var (
		r             pkg.Release
		packageID     sql.NullString
		latestBuildID sql.NullString
	)
	err := row.Scan(&r.ID, &packageID, &r.Version, &r.IsLatest, &r.IsLocked,
		&r.Branch, &r.CommitSHA, &r.GithubPRNumber, &latestBuildID,
		&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return pkg.Release{}, err
	}
	r.PackageID = packageID.String
	r.LatestBuildID = latestBuildID.String
	return r, nil
}

// --- FileStore --------------------------------------------------------------

func (s *Store) CreatePackageFile(ctx context.Context, f pkg.File) (pkg.File, error) {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	f.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO package_files (id, release_id, file_path, content_text, content_bytes, mimetype, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, f.ID, f.ReleaseID, f.FilePath, f.ContentText, f.ContentBytes, f.Mimetype, f.CreatedAt)
	if err != nil {
		return pkg.File{}, err
	}
	return f, nil
}

func (s *Store) GetPackageFile(ctx context.Context, id string) (pkg.File, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, release_id, file_path, content_text, content_bytes, mimetype, created_at
		FROM package_files WHERE id = $1
	`, id)
	f, err := scanFile(row)
	if err != nil {
		return pkg.File{}, wrapNoRows(err, "package file", id)
	}
	return f, nil
}

func (s *Store) GetPackageFileByPath(ctx context.Context, releaseID, filePath string) (pkg.File, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, release_id, file_path, content_text, content_bytes, mimetype, created_at
		FROM package_files WHERE release_id = $1 AND file_path = $2
	`, releaseID, filePath)
	f, err := scanFile(row)
	if err != nil {
		return pkg.File{}, wrapNoRows(err, "package file", filePath)
	}
	return f, nil
}

func (s *Store) ListPackageFiles(ctx context.Context, releaseID string) ([]pkg.File, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, release_id, file_path, content_text, content_bytes, mimetype, created_at
		FROM package_files WHERE release_id = $1
		ORDER BY file_path
	`, releaseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]pkg.File, 0)
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	return result, rows.Err()
}

func scanFile(row rowScanner) (pkg.File, error) {
	var f pkg.File
	err := row.Scan(&f.ID, &f.ReleaseID, &f.FilePath, &f.ContentText, &f.ContentBytes, &f.Mimetype, &f.CreatedAt)
	if err != nil {
		return pkg.File{}, err
	}
	return f, nil
}

// --- SnippetStore -----------------------------------------------------------

const snippetColumns = `
	id, release_id, name, unscoped_name, owner_name,
	code, dts, compiled_js, circuit_json, snippet_type, description,
	is_private, is_public, is_unlisted, created_at, updated_at`

func (s *Store) CreateSnippet(ctx context.Context, sn snippet.Snippet) (snippet.Snippet, error) {
	if sn.ID == "" {
		sn.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	sn.CreatedAt = now
	sn.UpdatedAt = now
	sn.StarCount = 0

	circuitJSON, err := json.Marshal(sn.CircuitJSON)
	if err != nil {
		return snippet.Snippet{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snippets (`+snippetColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`, sn.ID, nullable(sn.ReleaseID), sn.Name, sn.UnscopedName, sn.OwnerName,
		sn.Code, sn.DTS, sn.CompiledJS, circuitJSON, string(sn.Type), sn.Description,
		sn.IsPrivate, sn.IsPublic, sn.IsUnlisted, sn.CreatedAt, sn.UpdatedAt)
	if err != nil {
		return snippet.Snippet{}, err
	}
	return sn, nil
}

func (s *Store) UpdateSnippet(ctx context.Context, sn snippet.Snippet) (snippet.Snippet, error) {
	existing, err := s.GetSnippet(ctx, sn.ID)
	if err != nil {
		return snippet.Snippet{}, err
	}
	sn.Name = existing.Name
	sn.UnscopedName = existing.UnscopedName
	sn.OwnerName = existing.OwnerName
	sn.ReleaseID = existing.ReleaseID
	sn.CreatedAt = existing.CreatedAt
	sn.UpdatedAt = time.Now().UTC()

	circuitJSON, err := json.Marshal(sn.CircuitJSON)
	if err != nil {
		return snippet.Snippet{}, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE snippets SET
			code = $2, dts = $3, compiled_js = $4, circuit_json = $5,
			snippet_type = $6, description = $7,
			is_private = $8, is_public = $9, is_unlisted = $10, updated_at = $11
		WHERE id = $1
	`, sn.ID, sn.Code, sn.DTS, sn.CompiledJS, circuitJSON,
		string(sn.Type), sn.Description,
		sn.IsPrivate, sn.IsPublic, sn.IsUnlisted, sn.UpdatedAt)
	if err != nil {
		return snippet.Snippet{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return snippet.Snippet{}, wrapNoRows(sql.ErrNoRows, "snippet", sn.ID)
	}
	sn.StarCount, err = s.SnippetStarCount(ctx, sn.ID)
	if err != nil {
		return snippet.Snippet{}, err
	}
	return sn, nil
}

func (s *Store) GetSnippet(ctx context.Context, id string) (snippet.Snippet, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+snippetColumns+`,
			(SELECT count(*) FROM snippet_stars ss WHERE ss.snippet_id = snippets.id AND ss.has_starred)
		FROM snippets WHERE id = $1
	`, id)
	sn, err := scanSnippet(row)
	if err != nil {
		return snippet.Snippet{}, wrapNoRows(err, "snippet", id)
	}
	return sn, nil
}

func (s *Store) GetSnippetByName(ctx context.Context, name string) (snippet.Snippet, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+snippetColumns+`,
			(SELECT count(*) FROM snippet_stars ss WHERE ss.snippet_id = snippets.id AND ss.has_starred)
		FROM snippets WHERE lower(name) = lower($1)
	`, name)
	sn, err := scanSnippet(row)
	if err != nil {
		return snippet.Snippet{}, wrapNoRows(err, "snippet", name)
	}
	return sn, nil
}

func (s *Store) ListSnippets(ctx context.Context, ownerName string) ([]snippet.Snippet, error) {
	return s.querySnippets(ctx, `
		SELECT `+snippetColumns+`,
			(SELECT count(*) FROM snippet_stars ss WHERE ss.snippet_id = snippets.id AND ss.has_starred)
		FROM snippets
		WHERE $1 = '' OR lower(owner_name) = lower($1)
		ORDER BY created_at DESC
	`, ownerName)
}

func (s *Store) ListNewestSnippets(ctx context.Context, limit int) ([]snippet.Snippet, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.querySnippets(ctx, `
		SELECT `+snippetColumns+`,
			(SELECT count(*) FROM snippet_stars ss WHERE ss.snippet_id = snippets.id AND ss.has_starred)
		FROM snippets
		WHERE NOT is_private AND NOT is_unlisted
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
}

func (s *Store) ListTrendingSnippets(ctx context.Context, limit int, since time.Time) ([]snippet.Snippet, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.querySnippets(ctx, `
		SELECT `+snippetColumns+`,
			(SELECT count(*) FROM snippet_stars ss
			 WHERE ss.snippet_id = snippets.id AND ss.has_starred AND ss.created_at >= $2)
		FROM snippets
		WHERE NOT is_private AND NOT is_unlisted
		ORDER BY 17 DESC, created_at DESC
		LIMIT $1
	`, limit, since.UTC())
}

func (s *Store) SearchSnippets(ctx context.Context, query string) ([]snippet.Snippet, error) {
	return s.querySnippets(ctx, `
		SELECT `+snippetColumns+`,
			(SELECT count(*) FROM snippet_stars ss WHERE ss.snippet_id = snippets.id AND ss.has_starred)
		FROM snippets
		WHERE NOT is_private AND NOT is_unlisted
		  AND ($1 = '' OR name ILIKE '%' || $1 || '%'
			OR description ILIKE '%' || $1 || '%'
			OR code ILIKE '%' || $1 || '%')
		ORDER BY created_at DESC
	`, query)
}

func (s *Store) DeleteSnippet(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM snippets WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return wrapNoRows(sql.ErrNoRows, "snippet", id)
	}
	_, err = s.db.ExecContext(ctx, `DELETE FROM snippet_stars WHERE snippet_id = $1`, id)
	return err
}

func (s *Store) StarSnippet(ctx context.Context, accountID, snippetID string) (snippet.Star, error) {
	if _, err := s.GetSnippet(ctx, snippetID); err != nil {
		return snippet.Star{}, err
	}
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snippet_stars (account_id, snippet_id, has_starred, created_at, updated_at)
		VALUES ($1, $2, TRUE, $3, $3)
		ON CONFLICT (account_id, snippet_id)
		DO UPDATE SET has_starred = TRUE, updated_at = $3
	`, accountID, snippetID, now)
	if err != nil {
		return snippet.Star{}, err
	}
	return snippet.Star{AccountID: accountID, SnippetID: snippetID, HasStarred: true, CreatedAt: now, UpdatedAt: now}, nil
}

func (s *Store) UnstarSnippet(ctx context.Context, accountID, snippetID string) error {
	if _, err := s.GetSnippet(ctx, snippetID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM snippet_stars WHERE account_id = $1 AND snippet_id = $2
	`, accountID, snippetID)
	return err
}

func (s *Store) SnippetStarCount(ctx context.Context, snippetID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT count(*) FROM snippet_stars WHERE snippet_id = $1 AND has_starred
	`, snippetID).Scan(&count)
	return count, err
}

func (s *Store) querySnippets(ctx context.Context, q string, args ...interface{}) ([]snippet.Snippet, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]snippet.Snippet, 0)
	for rows.Next() {
		sn, err := scanSnippet(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, sn)
	}
	return result, rows.Err()
}

func scanSnippet(row rowScanner) (snippet.Snippet, error) {
	var (
		sn          snippet.Snippet
		releaseID   sql.NullString
		snippetType string
		circuitRaw  []byte
	)
	err := row.Scan(&sn.ID, &releaseID, &sn.Name, &sn.UnscopedName, &sn.OwnerName,
		&sn.Code, &sn.DTS, &sn.CompiledJS, &circuitRaw, &snippetType, &sn.Description,
		&sn.IsPrivate, &sn.IsPublic, &sn.IsUnlisted, &sn.CreatedAt, &sn.UpdatedAt, &sn.StarCount)
	if err != nil {
		return snippet.Snippet{}, err
	}
	sn.ReleaseID = releaseID.String
	sn.Type = snippet.Type(snippetType)
	if len(circuitRaw) > 0 && string(circuitRaw) != "null" {
		_ = json.Unmarshal(circuitRaw, &sn.CircuitJSON)
	}
	return sn, nil
}
