package seed

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/circuitforge/registry/internal/app/domain/pkg"
	"github.com/circuitforge/registry/internal/app/metrics"
	"github.com/circuitforge/registry/internal/httputil"
	"github.com/circuitforge/registry/pkg/logger"
)

// importPattern matches scoped package references in source text, e.g.
// "@tsci/alice.led-matrix" or "@alice/led-matrix".
var importPattern = regexp.MustCompile(`@([A-Za-z0-9_-]+)/([A-Za-z0-9._-]+)`)

// DefaultAutoloadPackages are the upstream snippets imported when autoload is
// enabled without an explicit list.
var DefaultAutoloadPackages = []string{
	"seveibar/red-led-board",
	"seveibar/usb-c-flashlight",
	"seveibar/nine-key-keyboard",
}

// RemoteSnippet is the subset of the upstream registry's snippet payload the
// autoloader consumes.
type RemoteSnippet struct {
	Name         string `json:"name"`
	UnscopedName string `json:"unscoped_name"`
	OwnerName    string `json:"owner_name"`
	Code         string `json:"code"`
	DTS          string `json:"dts"`
	CompiledJS   string `json:"compiled_js"`
}

// Fetcher retrieves one snippet from the upstream registry by scoped name.
// Tests inject a fake; production uses the HTTP fetcher.
type Fetcher interface {
	FetchSnippet(ctx context.Context, name string) (RemoteSnippet, error)
}

// HTTPFetcher fetches snippets from a live registry API.
type HTTPFetcher struct {
	client *httputil.Client
}

// NewHTTPFetcher creates a fetcher against the given registry base URL.
func NewHTTPFetcher(baseURL string) *HTTPFetcher {
	return &HTTPFetcher{client: httputil.NewClient(httputil.ClientConfig{BaseURL: baseURL})}
}

// FetchSnippet implements Fetcher.
func (f *HTTPFetcher) FetchSnippet(ctx context.Context, name string) (RemoteSnippet, error) {
	resp, err := f.client.Get(ctx, "/snippets/get?name="+url.QueryEscape(name))
	if err != nil {
		return RemoteSnippet{}, err
	}
	var body struct {
		Snippet RemoteSnippet `json:"snippet"`
	}
	if err := httputil.DecodeResponse(resp, &body); err != nil {
		return RemoteSnippet{}, err
	}
	return body.Snippet, nil
}

// Autoloader imports packages and their import graph from an upstream
// registry.
type Autoloader struct {
	store   Stores
	fetcher Fetcher
	log     *logger.Logger
}

// NewAutoloader constructs an autoloader.
func NewAutoloader(store Stores, fetcher Fetcher, log *logger.Logger) *Autoloader {
	if log == nil {
		log = logger.NewDefault("autoload")
	}
	return &Autoloader{store: store, fetcher: fetcher, log: log}
}

// Load imports each named snippet and, recursively, every scoped import its
// source references. A visited set guards against circular dependencies.
// Individual fetch failures are logged and skipped; the rest of the load
// continues.
func (a *Autoloader) Load(ctx context.Context, names []string) error {
	visited := make(map[string]bool)
	for _, name := range names {
		a.load(ctx, normalizeName(name), visited)
	}
	a.log.WithField("imported", len(visited)).Info("autoload finished")
	return nil
}

func (a *Autoloader) load(ctx context.Context, name string, visited map[string]bool) {
	if name == "" || visited[name] {
		return
	}
	visited[name] = true

	remote, err := a.fetcher.FetchSnippet(ctx, name)
	if err != nil {
		metrics.RecordAutoloadFetch(false)
		a.log.WithError(err).WithField("name", name).Warn("autoload fetch failed, skipping")
		return
	}
	metrics.RecordAutoloadFetch(true)

	if err := a.importSnippet(ctx, name, remote); err != nil {
		a.log.WithError(err).WithField("name", name).Warn("autoload import failed, skipping")
		return
	}

	for _, dep := range ScanImports(remote.Code) {
		a.load(ctx, dep, visited)
	}
}

// importSnippet stores a fetched snippet as a package + release + file
// bundle.
func (a *Autoloader) importSnippet(ctx context.Context, name string, remote RemoteSnippet) error {
	owner, unscoped, err := pkg.SplitName(name)
	if err != nil {
		return err
	}
	if remote.OwnerName != "" {
		owner = remote.OwnerName
	}
	if remote.UnscopedName != "" {
		unscoped = remote.UnscopedName
	}

	p, err := a.store.CreatePackage(ctx, pkg.Package{
		OwnerGithubUsername: owner,
		Name:                owner + "/" + unscoped,
		UnscopedName:        unscoped,
		IsPublic:            true,
		IsSnippet:           true,
	})
	if err != nil {
		return fmt.Errorf("create package: %w", err)
	}

	release, err := a.store.CreateRelease(ctx, pkg.Release{
		PackageID: p.ID,
		Version:   "0.0.1",
		IsLatest:  true,
	})
	if err != nil {
		return fmt.Errorf("create release: %w", err)
	}
	if _, err := a.store.CreatePackageFile(ctx, pkg.File{
		ReleaseID:   release.ID,
		FilePath:    "index.tsx",
		ContentText: remote.Code,
		Mimetype:    "text/tsx",
	}); err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	p.LatestReleaseID = release.ID
	p.LatestVersion = release.Version
	if _, err := a.store.UpdatePackage(ctx, p); err != nil {
		return fmt.Errorf("update package: %w", err)
	}
	return nil
}

// ScanImports extracts the scoped package names referenced in source text.
func ScanImports(code string) []string {
	matches := importPattern.FindAllStringSubmatch(code, -1)
	seen := make(map[string]bool)
	var names []string
	for _, m := range matches {
		name := normalizeName("@" + m[1] + "/" + m[2])
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// normalizeName converts the registry's import aliases into owner/unscoped
// form. "@tsci/alice.led-matrix" and "@alice/led-matrix" both become
// "alice/led-matrix".
func normalizeName(raw string) string {
	raw = strings.TrimSpace(strings.TrimPrefix(raw, "@"))
	if raw == "" {
		return ""
	}
	scope, rest, found := strings.Cut(raw, "/")
	if !found {
		return ""
	}
	if scope == "tsci" {
		owner, unscoped, ok := strings.Cut(rest, ".")
		if !ok {
			return ""
		}
		return owner + "/" + unscoped
	}
	return scope + "/" + rest
}
