package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/etnz/holdings"
	"github.com/google/subcommands"
	"github.com/rs/zerolog/log"
)

// --- Export Command ---

type exportCmd struct {
	output string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "write a backup of the transaction log" }
func (*exportCmd) Usage() string {
	return `hold export [-o <file>]

  Writes every transaction as a versioned JSON backup, to stdout by default.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.output, "o", "", "Backup file, stdout when empty")
}

func (c *exportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	txs, err := loadTransactions(ctx)
	if err != nil {
		return fail("Error loading transactions: %v", err)
	}
	var w io.Writer = os.Stdout
	if c.output != "" {
		f, err := os.Create(c.output)
		if err != nil {
			return fail("Error creating %s: %v", c.output, err)
		}
		defer f.Close()
		w = f
	}
	if err := holdings.EncodeBackup(w, holdings.NewBackup(txs)); err != nil {
		return fail("Error writing backup: %v", err)
	}
	log.Info().Int("transactions", len(txs)).Str("file", c.output).Msg("exported")
	return subcommands.ExitSuccess
}

// --- Import Command ---

type importCmd struct {
	input string
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "replace the transaction log with a backup" }
func (*importCmd) Usage() string {
	return `hold import -i <file>

  Validates a backup written by export and replaces the whole transaction
  log with its content. Nothing is written when the backup is invalid.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.input, "i", "", "Backup file to import")
}

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.input == "" {
		fmt.Fprintln(os.Stderr, "Error: -i is required")
		f.Usage()
		return subcommands.ExitUsageError
	}
	in, err := os.Open(c.input)
	if err != nil {
		return fail("Error opening %s: %v", c.input, err)
	}
	defer in.Close()
	b, err := holdings.DecodeBackup(in)
	if err != nil {
		return fail("Error reading backup: %v", err)
	}

	s, err := openStore()
	if err != nil {
		return fail("Error: %v", err)
	}
	defer s.Close()
	if err := s.ReplaceAll(ctx, b.Transactions); err != nil {
		return fail("Error replacing transactions: %v", err)
	}
	log.Info().Int("transactions", len(b.Transactions)).Time("exported", b.ExportDate).Msg("imported")
	return subcommands.ExitSuccess
}
