package seed

import (
	"context"
	"errors"
	"testing"

	"github.com/circuitforge/registry/internal/app/storage/memory"
)

func TestSeedCreatesFixtures(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	if err := Seed(ctx, store, nil); err != nil {
		t.Fatalf("seed: %v", err)
	}

	accounts, err := store.ListAccounts(ctx)
	if err != nil {
		t.Fatalf("list accounts: %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(accounts))
	}

	p, err := store.GetPackageByName(ctx, "testuser/led-matrix")
	if err != nil {
		t.Fatalf("get package: %v", err)
	}
	if p.StarCount != 1 {
		t.Fatalf("expected 1 star, got %d", p.StarCount)
	}
	if p.LatestReleaseID == "" || p.LatestVersion != "0.0.1" {
		t.Fatalf("latest pointers not set: %+v", p)
	}

	release, err := store.GetRelease(ctx, p.LatestReleaseID)
	if err != nil {
		t.Fatalf("get release: %v", err)
	}
	build, err := store.GetBuild(ctx, release.LatestBuildID)
	if err != nil {
		t.Fatalf("get build: %v", err)
	}
	if !build.Succeeded() {
		t.Fatalf("seeded build should be completed")
	}

	sn, err := store.GetSnippetByName(ctx, "testuser/blinker")
	if err != nil {
		t.Fatalf("get snippet: %v", err)
	}
	if sn.ReleaseID == "" {
		t.Fatalf("snippet should have a backing release")
	}
}

type fakeFetcher struct {
	snippets map[string]RemoteSnippet
	calls    []string
	errOn    map[string]bool
}

func (f *fakeFetcher) FetchSnippet(_ context.Context, name string) (RemoteSnippet, error) {
	f.calls = append(f.calls, name)
	if f.errOn[name] {
		return RemoteSnippet{}, errors.New("upstream unavailable")
	}
	sn, ok := f.snippets[name]
	if !ok {
		return RemoteSnippet{}, errors.New("snippet not found")
	}
	return sn, nil
}

func TestAutoloadFollowsImports(t *testing.T) {
	store := memory.New()
	fetcher := &fakeFetcher{snippets: map[string]RemoteSnippet{
		"alice/board":     {Code: `import X from "@tsci/bob.driver"`},
		"bob/driver":      {Code: `import Y from "@carol/regulator"`},
		"carol/regulator": {Code: `// leaf, no imports`},
	}}
	loader := NewAutoloader(store, fetcher, nil)

	if err := loader.Load(context.Background(), []string{"@tsci/alice.board"}); err != nil {
		t.Fatalf("load: %v", err)
	}

	for _, name := range []string{"alice/board", "bob/driver", "carol/regulator"} {
		if _, err := store.GetPackageByName(context.Background(), name); err != nil {
			t.Fatalf("expected %s imported: %v", name, err)
		}
	}
}

func TestAutoloadCycleGuard(t *testing.T) {
	store := memory.New()
	fetcher := &fakeFetcher{snippets: map[string]RemoteSnippet{
		"alice/a": {Code: `import B from "@alice/b"`},
		"alice/b": {Code: `import A from "@alice/a"`},
	}}
	loader := NewAutoloader(store, fetcher, nil)

	if err := loader.Load(context.Background(), []string{"@alice/a"}); err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(fetcher.calls) != 2 {
		t.Fatalf("expected each snippet fetched once, got %v", fetcher.calls)
	}
}

func TestAutoloadToleratesFetchFailures(t *testing.T) {
	store := memory.New()
	fetcher := &fakeFetcher{
		snippets: map[string]RemoteSnippet{
			"alice/a": {Code: `import B from "@alice/broken"` + "\n" + `import C from "@alice/c"`},
			"alice/c": {Code: ""},
		},
		errOn: map[string]bool{"alice/broken": true},
	}
	loader := NewAutoloader(store, fetcher, nil)

	if err := loader.Load(context.Background(), []string{"@alice/a"}); err != nil {
		t.Fatalf("load: %v", err)
	}

	// The broken dependency is skipped; its sibling still loads.
	if _, err := store.GetPackageByName(context.Background(), "alice/c"); err != nil {
		t.Fatalf("sibling dependency should have loaded: %v", err)
	}
	if _, err := store.GetPackageByName(context.Background(), "alice/broken"); err == nil {
		t.Fatalf("broken dependency should not exist")
	}
}

func TestScanImports(t *testing.T) {
	code := `
import A from "@tsci/alice.led-matrix"
import B from "@bob/driver"
import B2 from "@bob/driver"
const notAnImport = "plain text"
`
	got := ScanImports(code)
	want := []string{"alice/led-matrix", "bob/driver"}
	if len(got) != len(want) {
		t.Fatalf("imports %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("imports %v, want %v", got, want)
		}
	}
}
