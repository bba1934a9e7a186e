// Package config loads the uniqseq engine configuration with the same
// layered-precedence scheme the rest of the toolchain uses: defaults,
// then a global user config, then a project config, then CLI overrides.
// Config files are JSONC (JSON with comments), standardized via hujson
// before being unmarshaled.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tailscale/hujson"

	"github.com/jeffreyurban/uniqseq/internal/fs"
)

// FileName is the default project config file name.
const FileName = ".uniqseq.json"

// Config is the on-disk/CLI-overridable shape of an engine run. Fields
// mirror internal/engine.Config's spec.md §6 knobs but stay JSON/flag
// friendly (e.g. plain ints instead of pointer-typed "unlimited"
// markers: 0 means unlimited throughout).
type Config struct {
	WindowSize         int    `json:"window_size"`
	MaxHistory         int    `json:"max_history,omitempty"`
	MaxKnownSequences  int    `json:"max_known_sequences,omitempty"`
	InverseMode        bool   `json:"inverse_mode,omitempty"`
	Annotate           bool   `json:"annotate,omitempty"`
	AnnotationTemplate string `json:"annotation_template,omitempty"`
	SkipChars          int    `json:"skip_chars,omitempty"`
	Transform          string `json:"transform,omitempty"` // external command, empty = identity
	SequenceLibrary    string `json:"sequence_library,omitempty"`
	TrackPatterns      []string `json:"track_patterns,omitempty"`
	BypassPatterns     []string `json:"bypass_patterns,omitempty"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		WindowSize: 3,
	}
}

// Sources records which config files, if any, were loaded.
type Sources struct {
	Global  string
	Project string
}

// Load applies, in increasing precedence: defaults, global config,
// project config (or an explicit path), then those cliOverrides fields
// that set marks as set. set identifies which cliOverrides fields the
// caller actually set on the command line, so a zero value there isn't
// mistaken for "not set". fsys is the filesystem to read config files
// from; pass fs.NewReal() in production, fs.NewChaos(...) to exercise
// failure paths in tests.
func Load(fsys fs.FS, workDir, explicitPath string, cliOverrides Config, set FieldSet, env []string) (Config, Sources, error) {
	cfg := Default()

	var sources Sources

	globalCfg, globalPath, err := loadGlobal(fsys, env)
	if err != nil {
		return Config{}, Sources{}, err
	}

	sources.Global = globalPath
	cfg = merge(cfg, globalCfg)

	projectCfg, projectPath, err := loadProject(fsys, workDir, explicitPath)
	if err != nil {
		return Config{}, Sources{}, err
	}

	sources.Project = projectPath
	cfg = merge(cfg, projectCfg)
	cfg = applyOverrides(cfg, cliOverrides, set)

	if err := Validate(cfg); err != nil {
		return Config{}, Sources{}, err
	}

	return cfg, sources, nil
}

// FieldSet marks which fields a CLI layer explicitly set, so Load can
// distinguish "not provided" from "provided as the zero value".
type FieldSet struct {
	WindowSize         bool
	MaxHistory         bool
	MaxKnownSequences  bool
	InverseMode        bool
	Annotate           bool
	AnnotationTemplate bool
	SkipChars          bool
	Transform          bool
	SequenceLibrary    bool
	TrackPatterns      bool
	BypassPatterns     bool
}

func loadGlobal(fsys fs.FS, env []string) (Config, string, error) {
	path := globalConfigPath(env)
	if path == "" {
		return Config{}, "", nil
	}

	cfg, loaded, err := loadFile(fsys, path, false)
	if err != nil {
		return Config{}, "", err
	}

	if !loaded {
		return Config{}, "", nil
	}

	return cfg, path, nil
}

func loadProject(fsys fs.FS, workDir, explicitPath string) (Config, string, error) {
	var (
		path      string
		mustExist bool
	)

	if explicitPath != "" {
		path = explicitPath
		if !filepath.IsAbs(path) {
			path = filepath.Join(workDir, path)
		}

		mustExist = true

		if ok, err := fsys.Exists(path); err != nil || !ok {
			return Config{}, "", fmt.Errorf("%w: %s", ErrFileNotFound, explicitPath)
		}
	} else {
		path = filepath.Join(workDir, FileName)
		mustExist = false
	}

	cfg, loaded, err := loadFile(fsys, path, mustExist)
	if err != nil {
		return Config{}, "", err
	}

	if !loaded {
		return Config{}, "", nil
	}

	return cfg, path, nil
}

func loadFile(fsys fs.FS, path string, mustExist bool) (Config, bool, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if mustExist {
				return Config{}, false, fmt.Errorf("%w: %s", ErrFileNotFound, path)
			}

			return Config{}, false, nil
		}

		return Config{}, false, fmt.Errorf("%w: %s: %w", ErrFileRead, path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, false, fmt.Errorf("%w %s: %w", ErrInvalid, path, err)
	}

	var cfg Config
	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, false, fmt.Errorf("%w %s: %w", ErrInvalid, path, err)
	}

	return cfg, true, nil
}

func globalConfigPath(env []string) string {
	for _, e := range env {
		if after, ok := strings.CutPrefix(e, "XDG_CONFIG_HOME="); ok {
			return filepath.Join(after, "uniqseq", "config.json")
		}
	}

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "uniqseq", "config.json")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".config", "uniqseq", "config.json")
}

func merge(base, overlay Config) Config {
	if overlay.WindowSize != 0 {
		base.WindowSize = overlay.WindowSize
	}

	if overlay.MaxHistory != 0 {
		base.MaxHistory = overlay.MaxHistory
	}

	if overlay.MaxKnownSequences != 0 {
		base.MaxKnownSequences = overlay.MaxKnownSequences
	}

	base.InverseMode = base.InverseMode || overlay.InverseMode
	base.Annotate = base.Annotate || overlay.Annotate

	if overlay.AnnotationTemplate != "" {
		base.AnnotationTemplate = overlay.AnnotationTemplate
	}

	if overlay.SkipChars != 0 {
		base.SkipChars = overlay.SkipChars
	}

	if overlay.Transform != "" {
		base.Transform = overlay.Transform
	}

	if overlay.SequenceLibrary != "" {
		base.SequenceLibrary = overlay.SequenceLibrary
	}

	if len(overlay.TrackPatterns) > 0 {
		base.TrackPatterns = overlay.TrackPatterns
	}

	if len(overlay.BypassPatterns) > 0 {
		base.BypassPatterns = overlay.BypassPatterns
	}

	return base
}

func applyOverrides(base, cli Config, set FieldSet) Config {
	if set.WindowSize {
		base.WindowSize = cli.WindowSize
	}

	if set.MaxHistory {
		base.MaxHistory = cli.MaxHistory
	}

	if set.MaxKnownSequences {
		base.MaxKnownSequences = cli.MaxKnownSequences
	}

	if set.InverseMode {
		base.InverseMode = cli.InverseMode
	}

	if set.Annotate {
		base.Annotate = cli.Annotate
	}

	if set.AnnotationTemplate {
		base.AnnotationTemplate = cli.AnnotationTemplate
	}

	if set.SkipChars {
		base.SkipChars = cli.SkipChars
	}

	if set.Transform {
		base.Transform = cli.Transform
	}

	if set.SequenceLibrary {
		base.SequenceLibrary = cli.SequenceLibrary
	}

	if set.TrackPatterns {
		base.TrackPatterns = cli.TrackPatterns
	}

	if set.BypassPatterns {
		base.BypassPatterns = cli.BypassPatterns
	}

	return base
}

// Validate applies the configuration-error checks spec.md §7.1 assigns
// to the collaborator shell (window_size, max_history relationship);
// the engine re-validates independently when constructed.
func Validate(cfg Config) error {
	if cfg.WindowSize < 2 {
		return fmt.Errorf("%w: window_size=%d", ErrWindowSizeTooSmall, cfg.WindowSize)
	}

	if cfg.MaxHistory > 0 && cfg.WindowSize > cfg.MaxHistory {
		return fmt.Errorf("%w: window_size=%d max_history=%d", ErrWindowExceedsHistory, cfg.WindowSize, cfg.MaxHistory)
	}

	return nil
}

// FormatJSON renders cfg as indented JSON, for "print effective config"
// diagnostics.
func FormatJSON(cfg Config) (string, error) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return "", fmt.Errorf("config: formatting: %w", err)
	}

	return string(data), nil
}
