// Command hold records stock trades of several markets and reports their
// FIFO cost basis and profit and loss.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/etnz/holdings"
	"github.com/etnz/holdings/cmd"
	"github.com/etnz/holdings/config"
	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	conf, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	setupLogger(conf.LogLevel, conf.LogPretty)

	name := path.Base(os.Args[0])
	commander := subcommands.NewCommander(flag.CommandLine, name)
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	cmd.Register(commander, conf)

	completion(commander).Complete(name)

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

// setupLogger configures the global logger. Logs go to stderr, stdout is
// kept for reports.
func setupLogger(level string, pretty bool) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339

	if pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}

// completion returns the shell completion of every registered subcommand.
func completion(commander *subcommands.Commander) *complete.Command {
	markets := make([]string, len(holdings.Markets))
	currencies := make([]string, len(holdings.Markets))
	for i, m := range holdings.Markets {
		markets[i] = string(m)
		currencies[i] = m.Currency()
	}

	root := &complete.Command{Sub: map[string]*complete.Command{}}
	commander.VisitCommands(func(_ *subcommands.CommandGroup, c subcommands.Command) {
		fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
		c.SetFlags(fs)
		flags := map[string]complete.Predictor{}
		fs.VisitAll(func(f *flag.Flag) {
			switch f.Name {
			case "m":
				flags[f.Name] = predict.Set(markets)
			case "c":
				flags[f.Name] = predict.Set(currencies)
			case "i", "o":
				flags[f.Name] = predict.Files("*.json")
			default:
				flags[f.Name] = predict.Something
			}
		})
		root.Sub[c.Name()] = &complete.Command{Flags: flags}
	})
	return root
}
