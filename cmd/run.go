package main

import (
	"fmt"
	"time"

	"pokemon-investigator/criteria"
	"pokemon-investigator/investigation"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var runFlags struct {
	input       string
	output      string
	concurrency int
	timeoutMs   int
	retries     int
	minMatches  int
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one investigation over the names in an input file",
	Long: `Run fetches every name listed in the input file ({"names": [...]}, JSON or
YAML) in batches, stops once enough matches are found and writes the run
output as JSON to --output or stdout.

Unset flags fall back to the INVESTIGATOR_* environment defaults.`,
	Args: cobra.NoArgs,
	RunE: runInvestigation,
}

func init() {
	f := runCmd.Flags()
	f.StringVarP(&runFlags.input, "input", "i", "", "input file with the names to investigate")
	f.StringVarP(&runFlags.output, "output", "o", "", "write the run output here instead of stdout")
	f.IntVar(&runFlags.concurrency, "concurrency", investigation.DefaultConcurrency, "names fetched per batch")
	f.IntVar(&runFlags.timeoutMs, "timeout-ms", int(investigation.DefaultTimeout/time.Millisecond), "per-attempt fetch timeout in milliseconds")
	f.IntVar(&runFlags.retries, "retries", investigation.DefaultRetries, "retries after the first attempt")
	f.IntVar(&runFlags.minMatches, "min-matches", investigation.DefaultMinMatches, "stop after the batch that reaches this many matches")
	_ = runCmd.MarkFlagRequired("input")
}

func runInvestigation(cmd *cobra.Command, args []string) error {
	names, err := investigation.LoadInput(runFlags.input)
	if err != nil {
		return err
	}

	rc := cfg.RunDefaults()
	rc.Names = names
	f := cmd.Flags()
	if f.Changed("concurrency") {
		rc.Concurrency = runFlags.concurrency
	}
	if f.Changed("timeout-ms") {
		rc.Timeout = time.Duration(runFlags.timeoutMs) * time.Millisecond
	}
	if f.Changed("retries") {
		rc.Retries = runFlags.retries
	}
	if f.Changed("min-matches") {
		rc.MinMatches = runFlags.minMatches
	}

	log.Info().
		Int("names", len(names)).
		Int("concurrency", rc.Concurrency).
		Dur("timeout", rc.Timeout).
		Int("retries", rc.Retries).
		Int("minMatches", rc.MinMatches).
		Strs("types", criteria.AllowedTypes()).
		Strs("moves", criteria.AllowedMoves()).
		Msg("run: starting investigation")

	out, err := newRunner(cfg).Run(cmd.Context(), rc)
	if err != nil {
		return err
	}

	if runFlags.output == "" {
		if err := investigation.EncodeOutput(cmd.OutOrStdout(), out); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	} else if err := investigation.WriteOutput(runFlags.output, out); err != nil {
		return err
	}

	log.Info().
		Str("runId", out.Report.RunID).
		Int("processed", out.Report.Processed).
		Int("matched", out.Report.Matched).
		Int("failed", out.Report.Failed).
		Int64("durationMs", out.Report.DurationMs).
		Msg("run: investigation complete")
	if out.Report.Matched < rc.MinMatches {
		log.Warn().Int("matched", out.Report.Matched).Int("minMatches", rc.MinMatches).Msg("run: stopped before reaching min matches")
	}
	return nil
}
