// wcvm-metrics appends OpenAlex author metrics (h-index, i10-index, works
// and citation counts) to a roster file. Rows with only one of
// OpenAlexID/ORCID get the missing identifier resolved via the API.
//
// Usage:
//
//	wcvm-metrics -i data/full_time_faculty.csv \
//	    -o data/roster_with_metrics.csv --email you@university.ca --log-diffs
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	vetmic "github.com/ResonanceResearch/WCVM-VetMic"
	"github.com/ResonanceResearch/WCVM-VetMic/config"
	"github.com/ResonanceResearch/WCVM-VetMic/metrics"
	"github.com/ResonanceResearch/WCVM-VetMic/roster"
)

var docs = `wcvm-metrics - append OpenAlex author metrics to a roster file

Supported input types: .csv, .tsv, .xlsx, .xls. Output is always CSV with
Display_name, H_index, I10_index, Works_count and Total_citations appended.

`

var (
	input    string
	output   string
	email    = flag.String("email", "", "contact email for the mailto parameter and user agent")
	delay    = flag.Duration("delay", 250*time.Millisecond, "delay between API calls")
	logDiffs = flag.Bool("log-diffs", false, "if an older output exists, log per-column metric deltas")
)

func init() {
	flag.StringVar(&input, "input", "", "path to the input roster (.csv, .tsv, .xlsx, .xls)")
	flag.StringVar(&input, "i", "", "short for -input")
	flag.StringVar(&output, "output", "", "path to output CSV (default: <input>_with_metrics.csv)")
	flag.StringVar(&output, "o", "", "short for -output")
}

func main() {
	flag.Usage = func() {
		io.WriteString(os.Stderr, docs)
		flag.PrintDefaults()
	}
	flag.Parse()
	if input == "" {
		flag.Usage()
		os.Exit(2)
	}
	if output == "" {
		output = strings.TrimSuffix(input, filepath.Ext(input)) + "_with_metrics.csv"
	}
	if err := run(); err != nil {
		logrus.Errorf("run failed: %v", err)
		if errors.Is(err, metrics.ErrNoIDColumn) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	if *email != "" {
		cfg.Mailto = *email
	}
	vetmic.SetupLogging(filepath.Join(filepath.Dir(output), "logs"))
	if cfg.Mailto != "" {
		logrus.Infof("using contact email for mailto and user agent: %s", cfg.Mailto)
	} else {
		logrus.Warn("no contact email set (--email, OPENALEX_MAILTO or CONTACT_EMAIL); requests may be throttled")
	}

	table, err := roster.Read(input)
	if err != nil {
		return fmt.Errorf("read roster %s: %w", input, err)
	}
	runner := &metrics.Runner{
		Client:   metrics.NewClient(cfg),
		Delay:    *delay,
		LogDiffs: *logDiffs,
	}
	fetched, err := runner.Run(table, output)
	if err != nil {
		return err
	}
	if fetched == 0 {
		return fmt.Errorf("no metrics fetched for any roster row")
	}
	return nil
}
