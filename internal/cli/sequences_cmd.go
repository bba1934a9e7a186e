package cli

import (
	"context"
	"encoding/hex"
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/jeffreyurban/uniqseq/internal/fs"
	"github.com/jeffreyurban/uniqseq/internal/seqlib"
)

// SequencesCmd inspects a persisted sequence library.
func SequencesCmd() *Command {
	flags := flag.NewFlagSet("sequences", flag.ContinueOnError)
	library := flags.StringP("library", "l", "", "Path to the sequence library (required)")

	return &Command{
		Flags: flags,
		Usage: "sequences --library <path>",
		Short: "List the entries of a persisted sequence library",
		Exec: func(_ context.Context, o *IO, _ []string) error {
			if *library == "" {
				return fmt.Errorf("%w: --library is required", ErrBadFlag)
			}

			lib, err := seqlib.Open(fs.NewReal(), *library)
			if err != nil {
				return err
			}

			o.Printf("key=%s window_width=%d seq_width=%d entries=%d\n",
				hex.EncodeToString(lib.Key), lib.WindowWidth, lib.SeqWidth, len(lib.Entries))

			for i, e := range lib.Entries {
				o.Printf("%d: length=%d windows=%d\n", i, e.Length, len(e.WindowHashes))
			}

			return nil
		},
	}
}
