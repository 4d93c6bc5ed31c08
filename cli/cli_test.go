package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/adrg/xdg"
	"github.com/alecthomas/kong"

	"github.com/ardnew/isolate/pkg"
)

// isolateHome points the XDG base directories into a temporary directory
// for the duration of the test.
func isolateHome(t *testing.T) {
	t.Helper()

	t.Setenv("XDG_CONFIG_HOME", filepath.Join(t.TempDir(), "config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(t.TempDir(), "cache"))
	xdg.Reload()

	t.Cleanup(xdg.Reload)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	return path
}

func TestRun(t *testing.T) {
	isolateHome(t)

	bindings := writeFile(t, "bindings.yaml", `
constants:
  greeting: Hello
  limits: [10, 20]
functions:
  greet:
    params: [name]
    expr: greeting + ", " + name
`)
	receiver := writeFile(t, "receiver.json", `{"name": "Ada"}`)
	jsonConfig := writeFile(t, "config.yaml", "eval:\n  output: json\n")
	noConfig := filepath.Join(t.TempDir(), "absent.yaml")

	tests := []struct {
		name   string
		config string
		args   []string
		want   string
	}{
		{
			name:   "default_command",
			config: noConfig,
			args:   []string{"-b", bindings, "-r", receiver, "greet(this.name)"},
			want:   "Hello, Ada\n",
		},
		{
			name:   "explicit_eval",
			config: noConfig,
			args:   []string{"--bindings", bindings, "eval", "limits[1]", "len(greeting)"},
			want:   "20\n5\n",
		},
		{
			name:   "config_output",
			config: jsonConfig,
			args:   []string{"-b", bindings, "eval", "greeting"},
			want:   "\"Hello\"\n",
		},
		{
			name:   "flag_overrides_config",
			config: jsonConfig,
			args:   []string{"-b", bindings, "eval", "-o", "native", "greeting"},
			want:   "Hello\n",
		},
		{
			name:   "builtins",
			config: noConfig,
			args:   []string{"eval", "platform == platform"},
			want:   "true\n",
		},
		{
			name:   "names",
			config: noConfig,
			args:   []string{"-b", bindings, "--no-builtins", "names"},
			want:   "greeting\nlimits\ngreet\n",
		},
		{
			name:   "version",
			config: noConfig,
			args:   []string{"version"},
			want:   pkg.Name + " " + pkg.Version() + "\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer

			err := run(context.Background(), func(int) {}, tt.config, tt.args,
				[]kong.Option{kong.Writers(&out, &out)})
			if err != nil {
				t.Fatalf("run(%q): %v", tt.args, err)
			}

			if got := out.String(); got != tt.want {
				t.Errorf("run(%q) printed %q, want %q", tt.args, got, tt.want)
			}
		})
	}

	for _, dir := range []string{configDir(), cacheDir()} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Errorf("directory %s not created: %v", dir, err)
		}
	}
}

func TestRun_Failures(t *testing.T) {
	isolateHome(t)

	noConfig := filepath.Join(t.TempDir(), "absent.yaml")

	tests := []struct {
		name string
		args []string
	}{
		{"missing_bindings", []string{"-b", filepath.Join(t.TempDir(), "nope.yaml"), "1"}},
		{"unknown_flag", []string{"--frobnicate", "1"}},
		{"bad_output", []string{"eval", "-o", "xml", "1"}},
		{"undefined_name", []string{"--no-builtins", "nowhere"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer

			err := run(context.Background(), func(int) {}, noConfig, tt.args,
				[]kong.Option{kong.Writers(&out, &out)})
			if err == nil {
				t.Errorf("run(%q) succeeded, want error", tt.args)
			}
		})
	}
}
