package builtin

import (
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"
)

func TestEnv_ReturnsIndependentCopies(t *testing.T) {
	a := Env()
	a["cwd"] = "clobbered"
	a["file"].(map[string]any)["exists"] = nil

	b := Env()

	if _, ok := b["cwd"].(func() string); !ok {
		t.Errorf("expected cwd to remain a function, got %T", b["cwd"])
	}

	if b["file"].(map[string]any)["exists"] == nil {
		t.Error("expected nested group to be unaffected by caller mutation")
	}
}

func TestNames(t *testing.T) {
	names := Names()

	for _, want := range []string{"cwd", "env", "file", "mung", "path", "platform", "target"} {
		if !slices.Contains(names, want) {
			t.Errorf("expected %q in %v", want, names)
		}
	}

	if !slices.IsSorted(names) {
		t.Errorf("expected sorted names, got %v", names)
	}
}

func TestPlatform(t *testing.T) {
	t.Setenv("GOHOSTOS", "plan9")
	t.Setenv("GOHOSTARCH", "amd64")

	p := getPlatform()
	if p.OS != "plan9" || p.Arch != "amd64" {
		t.Errorf("unexpected platform %+v", p)
	}

	if got := getTarget().Arch; got != "x86_64" {
		t.Errorf("expected GNU arch name x86_64, got %q", got)
	}
}

func TestPlatform_DefaultsToRuntime(t *testing.T) {
	for _, key := range []string{"GOHOSTOS", "GOOS", "GOHOSTARCH", "GOARCH"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	p := getPlatform()
	if p.OS != runtime.GOOS || p.Arch != runtime.GOARCH {
		t.Errorf("expected %s/%s, got %+v", runtime.GOOS, runtime.GOARCH, p)
	}
}

func TestFilePredicates(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "regular")

	if err := os.WriteFile(file, []byte("x"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	link := filepath.Join(dir, "link")
	if err := os.Symlink(file, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	tests := []struct {
		name string
		fn   func(string) bool
		path string
		want bool
	}{
		{"exists file", fileExists, file, true},
		{"exists missing", fileExists, filepath.Join(dir, "missing"), false},
		{"isDir dir", fileIsDir, dir, true},
		{"isDir file", fileIsDir, file, false},
		{"isRegular file", fileIsRegular, file, true},
		{"isRegular dir", fileIsRegular, dir, false},
		{"isSymlink link", fileIsSymlink, link, true},
		{"isSymlink file", fileIsSymlink, file, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(tt.path); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPathHelpers(t *testing.T) {
	if got := pathCat("a", "b", "c"); got != filepath.Join("a", "b", "c") {
		t.Errorf("pathCat: got %q", got)
	}

	if !filepath.IsAbs(pathAbs(".")) {
		t.Errorf("pathAbs: expected absolute path")
	}

	dir := t.TempDir()
	if got := pathRel(dir, filepath.Join(dir, "x", "y")); got != filepath.Join("x", "y") {
		t.Errorf("pathRel: got %q", got)
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("ISOLATE_BUILTIN_TEST", "value")

	if got := getEnv("ISOLATE_BUILTIN_TEST"); got != "value" {
		t.Errorf("got %q", got)
	}
}

func TestMungPrefix(t *testing.T) {
	sep := string(os.PathListSeparator)
	got := mungPrefix("/usr/bin"+sep+"/bin", "/opt/bin")

	if !strings.HasPrefix(got, "/opt/bin") {
		t.Errorf("expected prefix item first, got %q", got)
	}

	if !strings.Contains(got, "/usr/bin") {
		t.Errorf("expected subject items kept, got %q", got)
	}
}
