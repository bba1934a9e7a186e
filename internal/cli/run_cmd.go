package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/jeffreyurban/uniqseq/internal/classify"
	"github.com/jeffreyurban/uniqseq/internal/config"
	"github.com/jeffreyurban/uniqseq/internal/engine"
	"github.com/jeffreyurban/uniqseq/internal/fs"
	"github.com/jeffreyurban/uniqseq/internal/record"
	"github.com/jeffreyurban/uniqseq/internal/seqlib"
	"github.com/jeffreyurban/uniqseq/internal/transform"
)

// RunCmd streams in to stdout through the dedup engine.
func RunCmd(in io.Reader, workDir, configPath string, env []envVar) *Command {
	flags := flag.NewFlagSet("run", flag.ContinueOnError)

	windowSize := flags.IntP("window-size", "w", 0, "Window size W (records per window)")
	maxHistory := flags.Int("max-history", 0, "History capacity H (0 = unlimited)")
	maxKnown := flags.Int("max-known-sequences", 0, "Registry capacity U (0 = unlimited)")
	inverse := flags.Bool("inverse", false, "Emit only skipped records instead of deduplicating")
	annotate := flags.Bool("annotate", false, "Insert an annotation line at each confirmed duplicate")
	annotationTemplate := flags.String("annotation-template", "", "Override the annotation template")
	skipChars := flags.Int("skip-chars", 0, "Characters to strip from the hashed view's prefix")
	transformCmd := flags.String("transform", "", "External command pre-filtering the hashed view")
	sequenceLibrary := flags.String("sequence-library", "", "Path to a sequence library to import and/or export")
	track := flags.StringArray("track", nil, "Regex: records matching are tracked (repeatable)")
	bypass := flags.StringArray("bypass", nil, "Regex: records matching are bypassed (repeatable)")
	delim := flags.String("delim", "\n", "Record delimiter (single character)")
	printStats := flags.Bool("stats", false, "Print run statistics to stderr after EOS")

	return &Command{
		Flags: flags,
		Usage: "run [flags]",
		Short: "Deduplicate repeated record sequences from stdin to stdout",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			set := config.FieldSet{
				WindowSize:         flags.Changed("window-size"),
				MaxHistory:         flags.Changed("max-history"),
				MaxKnownSequences:  flags.Changed("max-known-sequences"),
				InverseMode:        flags.Changed("inverse"),
				Annotate:           flags.Changed("annotate"),
				AnnotationTemplate: flags.Changed("annotation-template"),
				SkipChars:          flags.Changed("skip-chars"),
				Transform:          flags.Changed("transform"),
				SequenceLibrary:    flags.Changed("sequence-library"),
				TrackPatterns:      flags.Changed("track"),
				BypassPatterns:     flags.Changed("bypass"),
			}

			overrides := config.Config{
				WindowSize:         *windowSize,
				MaxHistory:         *maxHistory,
				MaxKnownSequences:  *maxKnown,
				InverseMode:        *inverse,
				Annotate:           *annotate,
				AnnotationTemplate: *annotationTemplate,
				SkipChars:          *skipChars,
				Transform:          *transformCmd,
				SequenceLibrary:    *sequenceLibrary,
				TrackPatterns:      *track,
				BypassPatterns:     *bypass,
			}

			envList := make([]string, 0, len(env))
			for _, e := range env {
				envList = append(envList, e.key+"="+e.val)
			}

			cfg, _, err := config.Load(fs.NewReal(), workDir, configPath, overrides, set, envList)
			if err != nil {
				return err
			}

			return runStream(ctx, o, in, cfg, *delim, *printStats)
		},
	}
}

// envVar lets main.go pass os.Environ() without cli importing os
// directly in its exported surface.
type envVar struct{ key, val string }

// EnvVars converts an environ slice ("K=V") into the run command's
// internal representation.
func EnvVars(environ []string) []envVar {
	out := make([]envVar, 0, len(environ))

	for _, e := range environ {
		for i := 0; i < len(e); i++ {
			if e[i] == '=' {
				out = append(out, envVar{key: e[:i], val: e[i+1:]})
				break
			}
		}
	}

	return out
}

func runStream(ctx context.Context, o *IO, in io.Reader, cfg config.Config, delimFlag string, printStats bool) error {
	if len(delimFlag) != 1 {
		return fmt.Errorf("%w: --delim must be exactly one character", ErrBadFlag)
	}

	delim := delimFlag[0]

	classifier, err := classify.New(cfg.TrackPatterns, cfg.BypassPatterns)
	if err != nil {
		return err
	}

	var xform *transform.Transform
	if cfg.Transform != "" {
		xform, err = transform.Start(ctx, cfg.Transform)
		if err != nil {
			return err
		}

		defer xform.Close() //nolint:errcheck // best-effort cleanup; the run's own error takes precedence
	}

	var (
		preload []engine.PreloadedSequence
		hashKey []byte
	)

	realFS := fs.NewReal()

	if cfg.SequenceLibrary != "" {
		if lib, err := seqlib.Open(realFS, cfg.SequenceLibrary); err == nil {
			hashKey = lib.Key
			for _, e := range lib.Entries {
				preload = append(preload, engine.PreloadedSequence{Length: e.Length, WindowHashes: e.WindowHashes})
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}

	writer := record.NewWriter(o.Writer())

	eng, err := engine.New(engine.Config{
		WindowSize:         cfg.WindowSize,
		MaxHistory:         cfg.MaxHistory,
		MaxKnownSequences:  cfg.MaxKnownSequences,
		InverseMode:        cfg.InverseMode,
		Annotate:           cfg.Annotate,
		AnnotationTemplate: cfg.AnnotationTemplate,
		HashKey:            hashKey,
		Preload:            preload,
		Output:             writer,
	})
	if err != nil {
		return err
	}

	reader := record.NewReader(in, classifier, xform, cfg.SkipChars, delim)

	for {
		rec, err := reader.Next()
		if err == io.EOF {
			break
		}

		if err != nil {
			return err
		}

		classification := engine.Tracked
		if rec.Classification == record.Bypassed {
			classification = engine.Bypassed
		}

		eng.Push(rec.OutputView, rec.HashedView, classification)
	}

	eng.Flush()

	if err := writer.Flush(); err != nil {
		return err
	}

	if cfg.SequenceLibrary != "" {
		const defaultDigestWidth = 16 // hashutil's default WindowHash/SequenceFingerprint width

		lib := seqlib.FromRegistry(eng.HashKey(), defaultDigestWidth, defaultDigestWidth, eng.ExportSequences())

		if err := seqlib.Export(realFS, cfg.SequenceLibrary, lib); err != nil {
			return err
		}
	}

	if printStats {
		s := eng.Stats()
		o.ErrPrintf("%s\n", s.String())
	}

	return nil
}
