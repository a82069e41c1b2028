// Package postgres implements the core storage interfaces backed by
// PostgreSQL. It covers the aggregates served durably in deployments:
// accounts, packages, releases, files, snippets, and star rows. Sessions,
// orgs, and orders stay on the in-memory store.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/circuitforge/registry/internal/app/domain/account"
	"github.com/circuitforge/registry/internal/app/domain/pkg"
	"github.com/circuitforge/registry/internal/app/storage"
)

// Store implements the storage interfaces over database/sql.
type Store struct {
	db *sql.DB
}

var _ storage.AccountStore = (*Store)(nil)
var _ storage.PackageStore = (*Store)(nil)
var _ storage.ReleaseStore = (*Store)(nil)
var _ storage.FileStore = (*Store)(nil)
var _ storage.SnippetStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func wrapNoRows(err error, kind, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", kind, id, storage.ErrNotFound)
	}
	return err
}

// --- AccountStore -----------------------------------------------------------

func (s *Store) CreateAccount(ctx context.Context, acct account.Account) (account.Account, error) {
	if acct.ID == "" {
		acct.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	acct.CreatedAt = now
	acct.UpdatedAt = now

	shippingJSON, err := json.Marshal(acct.ShippingInfo)
	if err != nil {
		return account.Account{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, github_username, shipping_info, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, acct.ID, acct.GithubUsername, shippingJSON, acct.CreatedAt, acct.UpdatedAt)
	if err != nil {
		return account.Account{}, err
	}
	return acct, nil
}

func (s *Store) UpdateAccount(ctx context.Context, acct account.Account) (account.Account, error) {
	existing, err := s.GetAccount(ctx, acct.ID)
	if err != nil {
		return account.Account{}, err
	}

	acct.CreatedAt = existing.CreatedAt
	acct.UpdatedAt = time.Now().UTC()
	acct.ShippingInfo = existing.ShippingInfo.Merge(acct.ShippingInfo)
	if acct.GithubUsername == "" {
		acct.GithubUsername = existing.GithubUsername
	}

	shippingJSON, err := json.Marshal(acct.ShippingInfo)
	if err != nil {
		return account.Account{}, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE accounts
		SET github_username = $2, shipping_info = $3, updated_at = $4
		WHERE id = $1
	`, acct.ID, acct.GithubUsername, shippingJSON, acct.UpdatedAt)
	if err != nil {
		return account.Account{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return account.Account{}, wrapNoRows(sql.ErrNoRows, "account", acct.ID)
	}
	return acct, nil
}

func (s *Store) GetAccount(ctx context.Context, id string) (account.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, github_username, shipping_info, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`, id)
	acct, err := scanAccount(row)
	if err != nil {
		return account.Account{}, wrapNoRows(err, "account", id)
	}
	return acct, nil
}

func (s *Store) GetAccountByGithubUsername(ctx context.Context, username string) (account.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, github_username, shipping_info, created_at, updated_at
		FROM accounts
		WHERE lower(github_username) = lower($1)
	`, username)
	acct, err := scanAccount(row)
	if err != nil {
		return account.Account{}, wrapNoRows(err, "account", username)
	}
	return acct, nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]account.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, github_username, shipping_info, created_at, updated_at
		FROM accounts
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]account.Account, 0)
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, acct)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccount(row rowScanner) (account.Account, error) {
	var (
		acct        account.Account
		shippingRaw []byte
	)
	if err := row.Scan(&acct.ID, &acct.GithubUsername, &shippingRaw, &acct.CreatedAt, &acct.UpdatedAt); err != nil {
		return account.Account{}, err
	}
	if len(shippingRaw) > 0 && string(shippingRaw) != "null" {
		_ = json.Unmarshal(shippingRaw, &acct.ShippingInfo)
	}
	return acct, nil
}

// --- PackageStore -----------------------------------------------------------

const packageColumns = `
	id, creator_account_id, owner_org_id, owner_github_username,
	name, unscoped_name, description, ai_description, ai_usage_instructions,
	latest_release_id, latest_version, is_source_from_github,
	is_private, is_public, is_unlisted, is_snippet,
	is_board, is_package, is_model, is_footprint,
	created_at, updated_at`

func (s *Store) CreatePackage(ctx context.Context, p pkg.Package) (pkg.Package, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	p.StarCount = 0

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO packages (`+packageColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
	`, p.ID, p.CreatorAccountID, nullable(p.OwnerOrgID), p.OwnerGithubUsername,
		p.Name, p.UnscopedName, p.Description, p.AIDescription, p.AIUsageInstructions,
		nullable(p.LatestReleaseID), p.LatestVersion, p.IsSourceFromGithub,
		p.IsPrivate, p.IsPublic, p.IsUnlisted, p.IsSnippet,
		p.IsBoard, p.IsPackage, p.IsModel, p.IsFootprint,
		p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return pkg.Package{}, err
	}
	return p, nil
}

func (s *Store) UpdatePackage(ctx context.Context, p pkg.Package) (pkg.Package, error) {
	existing, err := s.GetPackage(ctx, p.ID)
	if err != nil {
		return pkg.Package{}, err
	}
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	if p.Name == "" {
		p.Name = existing.Name
		p.UnscopedName = existing.UnscopedName
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE packages SET
			owner_org_id = $2, owner_github_username = $3, name = $4, unscoped_name = $5,
			description = $6, ai_description = $7, ai_usage_instructions = $8,
			latest_release_id = $9, latest_version = $10, is_source_from_github = $11,
			is_private = $12, is_public = $13, is_unlisted = $14, is_snippet = $15,
			is_board = $16, is_package = $17, is_model = $18, is_footprint = $19,
			updated_at = $20
		WHERE id = $1
	`, p.ID, nullable(p.OwnerOrgID), p.OwnerGithubUsername, p.Name, p.UnscopedName,
		p.Description, p.AIDescription, p.AIUsageInstructions,
		nullable(p.LatestReleaseID), p.LatestVersion, p.IsSourceFromGithub,
		p.IsPrivate, p.IsPublic, p.IsUnlisted, p.IsSnippet,
		p.IsBoard, p.IsPackage, p.IsModel, p.IsFootprint,
		p.UpdatedAt)
	if err != nil {
		return pkg.Package{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return pkg.Package{}, wrapNoRows(sql.ErrNoRows, "package", p.ID)
	}
	p.StarCount, err = s.PackageStarCount(ctx, p.ID)
	if err != nil {
		return pkg.Package{}, err
	}
	return p, nil
}

func (s *Store) GetPackage(ctx context.Context, id string) (pkg.Package, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+packageColumns+`,
			(SELECT count(*) FROM package_stars ps WHERE ps.package_id = packages.id AND ps.is_starred)
		FROM packages WHERE id = $1
	`, id)
	p, err := scanPackage(row)
	if err != nil {
		return pkg.Package{}, wrapNoRows(err, "package", id)
	}
	return p, nil
}

func (s *Store) GetPackageByName(ctx context.Context, name string) (pkg.Package, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+packageColumns+`,
			(SELECT count(*) FROM package_stars ps WHERE ps.package_id = packages.id AND ps.is_starred)
		FROM packages WHERE lower(name) = lower($1)
	`, name)
	p, err := scanPackage(row)
	if err != nil {
		return pkg.Package{}, wrapNoRows(err, "package", name)
	}
	return p, nil
}

func (s *Store) ListPackages(ctx context.Context, ownerUsername string) ([]pkg.Package, error) {
	return s.queryPackages(ctx, `
		SELECT `+packageColumns+`,
			(SELECT count(*) FROM package_stars ps WHERE ps.package_id = packages.id AND ps.is_starred)
		FROM packages
		WHERE $1 = '' OR lower(owner_github_username) = lower($1)
		ORDER BY created_at DESC
	`, ownerUsername)
}

func (s *Store) SearchPackages(ctx context.Context, query string) ([]pkg.Package, error) {
	return s.queryPackages(ctx, `
		SELECT `+packageColumns+`,
			(SELECT count(*) FROM package_stars ps WHERE ps.package_id = packages.id AND ps.is_starred)
		FROM packages
		WHERE NOT is_private AND NOT is_unlisted
		  AND ($1 = '' OR name ILIKE '%' || $1 || '%'
			OR description ILIKE '%' || $1 || '%'
			OR ai_description ILIKE '%' || $1 || '%')
		ORDER BY created_at DESC
	`, query)
}

func (s *Store) queryPackages(ctx context.Context, q string, args ...interface{}) ([]pkg.Package, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]pkg.Package, 0)
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func scanPackage(row rowScanner) (pkg.Package, error) {
	var (
		p               pkg.Package
		ownerOrgID      sql.NullString
		latestReleaseID sql.NullString
	)
	err := row.Scan(&p.ID, &p.CreatorAccountID, &ownerOrgID, &p.OwnerGithubUsername,
		&p.Name, &p.UnscopedName, &p.Description, &p.AIDescription, &p.AIUsageInstructions,
		&latestReleaseID, &p.LatestVersion, &p.IsSourceFromGithub,
		&p.IsPrivate, &p.IsPublic, &p.IsUnlisted, &p.IsSnippet,
		&p.IsBoard, &p.IsPackage, &p.IsModel, &p.IsFootprint,
		&p.CreatedAt, &p.UpdatedAt, &p.StarCount)
	if err != nil {
		return pkg.Package{}, err
	}
	p.OwnerOrgID = ownerOrgID.String
	p.LatestReleaseID = latestReleaseID.String
	return p, nil
}

func (s *Store) StarPackage(ctx context.Context, accountID, packageID string) (pkg.Star, error) {
	if _, err := s.GetPackage(ctx, packageID); err != nil {
		return pkg.Star{}, err
	}
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO package_stars (account_id, package_id, is_starred, created_at, updated_at)
		VALUES ($1, $2, TRUE, $3, $3)
		ON CONFLICT (account_id, package_id)
		DO UPDATE SET is_starred = TRUE, updated_at = $3
	`, accountID, packageID, now)
	if err != nil {
		return pkg.Star{}, err
	}
	return pkg.Star{AccountID: accountID, PackageID: packageID, IsStarred: true, CreatedAt: now, UpdatedAt: now}, nil
}

func (s *Store) UnstarPackage(ctx context.Context, accountID, packageID string) error {
	if _, err := s.GetPackage(ctx, packageID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM package_stars WHERE account_id = $1 AND package_id = $2
	`, accountID, packageID)
	return err
}

func (s *Store) PackageStarCount(ctx context.Context, packageID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT count(*) FROM package_stars WHERE package_id = $1 AND is_starred
	`, packageID).Scan(&count)
	return count, err
}

func nullable(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}
