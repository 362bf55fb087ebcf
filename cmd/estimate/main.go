// Command estimate prices a construction project from the command line.
//
// Usage:
//
//	estimate --area 1000 --floors 1 --type residential [--catalog catalog.json | --db dev.db]
//	         [--include aggregate] [--exclude ready_mix] [--qty cement=80] [--format text|json]
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:      "estimate",
		Usage:     "Estimate material quantities and cost for a construction project",
		Writer:    out,
		ErrWriter: os.Stderr,
		Flags: []cli.Flag{
			&cli.Float64Flag{
				Name:     "area",
				Aliases:  []string{"a"},
				Usage:    "Built-up area per floor in square feet",
				Required: true,
			},
			&cli.IntFlag{
				Name:    "floors",
				Aliases: []string{"f"},
				Value:   1,
				Usage:   "Number of floors",
			},
			&cli.StringFlag{
				Name:    "type",
				Aliases: []string{"t"},
				Value:   "residential",
				Usage:   "Project type (residential, commercial, industrial)",
			},
			&cli.StringFlag{
				Name:  "catalog",
				Usage: "Path to a JSON catalog document",
			},
			&cli.StringFlag{
				Name:    "db",
				Usage:   "Path to a migrated sqlite catalog database",
				EnvVars: []string{"ESTIMATOR_DB_PATH"},
			},
			&cli.StringSliceFlag{
				Name:  "include",
				Usage: "Include an optional line by requirement id",
			},
			&cli.StringSliceFlag{
				Name:  "exclude",
				Usage: "Exclude a line by requirement id (essential lines stay included)",
			},
			&cli.StringSliceFlag{
				Name:  "qty",
				Usage: "Override a quantity, as id=value",
			},
			&cli.StringFlag{
				Name:  "format",
				Value: "text",
				Usage: "Output format (text, json)",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"ESTIMATOR_LOG_LEVEL"},
			},
		},
		Action: runEstimate,
	}
}
