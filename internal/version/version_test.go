package version

import (
	"runtime/debug"
	"testing"
)

func TestFillFromBuildInfo(t *testing.T) {
	t.Parallel()
	bi := &debug.BuildInfo{
		Main: debug.Module{Version: "v1.2.3"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef0123"},
			{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
		},
	}
	var info Info
	fillFromBuildInfo(&info, bi)
	if info.Version != "v1.2.3" || info.Commit != "0123456789abcdef0123" || info.BuildTime != "2026-01-02T03:04:05Z" {
		t.Fatalf("unexpected info %+v", info)
	}

	pinned := Info{Version: "v9", Commit: "abc"}
	fillFromBuildInfo(&pinned, bi)
	if pinned.Version != "v9" || pinned.Commit != "abc" {
		t.Fatalf("ldflags values were overwritten: %+v", pinned)
	}
}

func TestShortCommit(t *testing.T) {
	t.Parallel()
	if got := shortCommit("0123456789abcdef"); got != "0123456789ab" {
		t.Fatalf("shortCommit = %q", got)
	}
	if got := shortCommit("abc"); got != "abc" {
		t.Fatalf("shortCommit = %q", got)
	}
}

func TestResolveNeverEmpty(t *testing.T) {
	t.Parallel()
	if info := Resolve(); info.Version == "" || info.GoVersion == "" {
		t.Fatalf("incomplete info %+v", info)
	}
}
