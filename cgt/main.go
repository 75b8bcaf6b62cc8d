// Command cgt reports capital gains and account values from a JSONL ledger.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path"

	"github.com/etnz/costbasis/cmd"
	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// completion describes the command line for shell completion.
var completion = &complete.Command{
	Sub: map[string]*complete.Command{
		"gains": {
			Flags: map[string]complete.Predictor{
				"l":                predict.Files("*.jsonl"),
				"period":           predict.Set{"day", "week", "month", "quarter", "year", "all"},
				"s":                predict.Nothing,
				"d":                predict.Nothing,
				"consolidate-sold": predict.Nothing,
				"ignore-deferred":  predict.Nothing,
				"txf":              predict.Files("*.txf"),
				"categories":       predict.Files("*.tsv"),
			},
		},
		"trend": {
			Flags: map[string]complete.Predictor{
				"l":        predict.Files("*.jsonl"),
				"a":        predict.Something,
				"security": predict.Something,
				"balance":  predict.Nothing,
				"period":   predict.Set{"day", "week", "month", "quarter", "year"},
				"s":        predict.Nothing,
				"d":        predict.Nothing,
			},
		},
		"fetch": {
			Flags: map[string]complete.Predictor{
				"l":        predict.Files("*.jsonl"),
				"exchange": predict.Something,
				"from":     predict.Nothing,
			},
			Args: predict.Something,
		},
		"help":     {},
		"commands": {},
		"flags":    {},
	},
}

func main() {
	// answers the shell when invoked for completion, otherwise returns.
	completion.Complete("cgt")

	cfg, err := cmd.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(int(subcommands.ExitUsageError))
	}

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	cmd.Register(commander, cfg)

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
