package config_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/jeffreyurban/uniqseq/internal/config"
	"github.com/jeffreyurban/uniqseq/internal/fs"
)

func noGlobalEnv(t *testing.T) []string {
	t.Helper()

	return []string{"XDG_CONFIG_HOME=" + t.TempDir()}
}

func Test_Load_DefaultsWhenNoConfigFilePresent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	cfg, sources, err := config.Load(fs.NewReal(), dir, "", config.Config{}, config.FieldSet{}, noGlobalEnv(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.WindowSize != config.Default().WindowSize {
		t.Fatalf("WindowSize = %d, want default %d", cfg.WindowSize, config.Default().WindowSize)
	}

	if sources.Project != "" {
		t.Fatalf("Sources.Project = %q, want empty", sources.Project)
	}
}

func Test_Load_ProjectConfigOverridesDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, config.FileName), `{
		// project override
		"window_size": 5,
		"annotate": true,
	}`)

	cfg, sources, err := config.Load(fs.NewReal(), dir, "", config.Config{}, config.FieldSet{}, noGlobalEnv(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.WindowSize != 5 {
		t.Fatalf("WindowSize = %d, want 5", cfg.WindowSize)
	}

	if !cfg.Annotate {
		t.Fatalf("Annotate = false, want true")
	}

	if sources.Project == "" {
		t.Fatalf("Sources.Project not recorded")
	}
}

func Test_Load_CLIOverridesBeatProjectConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, config.FileName), `{"window_size": 5}`)

	cfg, _, err := config.Load(
		fs.NewReal(), dir, "",
		config.Config{WindowSize: 8},
		config.FieldSet{WindowSize: true},
		noGlobalEnv(t),
	)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.WindowSize != 8 {
		t.Fatalf("WindowSize = %d, want 8 (CLI override)", cfg.WindowSize)
	}
}

func Test_Load_ExplicitPathMustExist(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, _, err := config.Load(fs.NewReal(), dir, filepath.Join(dir, "missing.json"), config.Config{}, config.FieldSet{}, noGlobalEnv(t))
	if err == nil {
		t.Fatalf("Load with a missing explicit path succeeded, want ErrFileNotFound")
	}
}

func Test_Load_RejectsInvalidJSONC(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, config.FileName), `{not valid json`)

	_, _, err := config.Load(fs.NewReal(), dir, "", config.Config{}, config.FieldSet{}, noGlobalEnv(t))
	if err == nil {
		t.Fatalf("Load with malformed JSONC succeeded, want an error")
	}
}

func Test_Load_RejectsWindowSizeBelowTwo(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, config.FileName), `{"window_size": 1}`)

	_, _, err := config.Load(fs.NewReal(), dir, "", config.Config{}, config.FieldSet{}, noGlobalEnv(t))
	if err == nil {
		t.Fatalf("Load with window_size=1 succeeded, want ErrWindowSizeTooSmall")
	}
}

// Test_Load_PropagatesReadFailure_FromInjectedFault uses fs.Chaos to
// make every config file read fail outright (EIO), verifying Load
// surfaces the failure instead of silently falling back to defaults.
func Test_Load_PropagatesReadFailure_FromInjectedFault(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, config.FileName), `{"window_size": 5}`)

	chaos := fs.NewChaos(fs.NewReal(), 1, fs.ChaosConfig{ReadFailRate: 1.0})

	_, _, err := config.Load(chaos, dir, "", config.Config{}, config.FieldSet{}, noGlobalEnv(t))
	if err == nil {
		t.Fatalf("Load with a fully-injected read failure succeeded, want an error")
	}
}

func Test_FormatJSON_RoundTripsThroughStandardDecoder(t *testing.T) {
	t.Parallel()

	cfg := config.Config{WindowSize: 4, Annotate: true}

	out, err := config.FormatJSON(cfg)
	if err != nil {
		t.Fatalf("FormatJSON: %v", err)
	}

	if out == "" {
		t.Fatalf("FormatJSON returned empty output")
	}

	var decoded config.Config
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("json.Unmarshal(FormatJSON output): %v", err)
	}

	if decoded.WindowSize != 4 || !decoded.Annotate {
		t.Fatalf("decoded = %+v, want WindowSize 4 and Annotate true", decoded)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}
