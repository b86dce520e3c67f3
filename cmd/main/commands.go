package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/CTAG07/Nepenthes/pkg/evaluation"
	"github.com/CTAG07/Nepenthes/pkg/ngram"
	"github.com/natefinch/atomic"
)

// command is a CLI subcommand.
type command struct {
	name    string
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

func commandList() []command {
	return []command{
		{name: "score", summary: "print the probability of a sequence", run: runScore},
		{name: "predict", summary: "extend a sequence by its most likely next word", run: runPredict},
		{name: "sample", summary: "generate a random sentence", run: runSample},
		{name: "table", summary: "dump a frequency table", run: runTable},
		{name: "eval", summary: "run an intrinsic evaluation over an order range", run: runEval},
		{name: "runs", summary: "list recorded evaluation runs", run: runRuns},
		{name: "unk", summary: "report unknown-word rates", run: runUnknown},
		{name: "stats", summary: "print corpus statistics", run: runStats},
	}
}

func lookupCommand(name string) (command, bool) {
	for _, cmd := range commandList() {
		if cmd.name == name {
			return cmd, true
		}
	}
	return command{}, false
}

func (a *app) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

// loadModel reads the corpus at path and builds a model with the configured
// engine settings.
func (a *app) loadModel(path string) (*ngram.Model, error) {
	if path == "" {
		return nil, errors.New("-corpus is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus: %w", err)
	}

	m, err := ngram.NewModel(string(data), a.config.Engine.modelOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to build model: %w", err)
	}
	m.SetLogger(a.logger)
	a.logger.Debug("Corpus loaded", "path", path, "bytes", len(data), "vocabulary", len(m.Vocabulary()))
	return m, nil
}

// writeOutput writes buf to the file at path atomically, or to stdout when
// path is empty.
func (a *app) writeOutput(path string, buf *bytes.Buffer) error {
	if path == "" {
		_, err := buf.WriteTo(a.stdout)
		return err
	}
	if err := atomic.WriteFile(path, buf); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	a.logger.Info("Output written", "path", path)
	return nil
}

func runScore(_ context.Context, a *app, args []string) error {
	fs := a.flagSet("score")
	corpus := fs.String("corpus", "", "path to the training corpus")
	sequence := fs.String("sequence", "", "sequence to score")
	n := fs.Int("n", 2, "n-gram order")
	smooth := fs.Bool("smooth", false, "score with smoothed tables")
	logSpace := fs.Bool("log", false, "print the natural log-probability instead")
	if err := fs.Parse(args); err != nil {
		return err
	}

	m, err := a.loadModel(*corpus)
	if err != nil {
		return err
	}

	var lp float64
	if *smooth {
		lp = m.SmoothedLogProbability(*sequence, *n)
	} else {
		lp = m.LogProbability(*sequence, *n)
	}
	if !*logSpace {
		lp = math.Exp(lp)
	}
	_, err = fmt.Fprintf(a.stdout, "%g\n", lp)
	return err
}

func runPredict(_ context.Context, a *app, args []string) error {
	fs := a.flagSet("predict")
	corpus := fs.String("corpus", "", "path to the training corpus")
	sequence := fs.String("sequence", "", "prefix to extend")
	n := fs.Int("n", 2, "n-gram order")
	if err := fs.Parse(args); err != nil {
		return err
	}

	m, err := a.loadModel(*corpus)
	if err != nil {
		return err
	}
	pred, err := m.Predict(*sequence, *n)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(a.stdout, "%s\t%g\n", pred, pred.Probability())
	return err
}

func runSample(ctx context.Context, a *app, args []string) error {
	cfg := a.config.Sampler
	fs := a.flagSet("sample")
	corpus := fs.String("corpus", "", "path to the training corpus")
	seed := fs.String("seed", "", "words to start the sentence with")
	n := fs.Int("n", 2, "n-gram order")
	eos := fs.Float64("eos", cfg.EOSProbability, "probability of ending the sentence after each word")
	maxLength := fs.Int("max-length", cfg.MaxLength, "maximum sentence length, 0 for none")
	smooth := fs.Bool("smooth", cfg.Smoothed, "sample from smoothed tables")
	randSeed := fs.Uint64("rand-seed", 0, "seed for reproducible sampling, 0 for a random one")
	count := fs.Int("count", 1, "number of sentences")
	if err := fs.Parse(args); err != nil {
		return err
	}

	m, err := a.loadModel(*corpus)
	if err != nil {
		return err
	}

	opts := []ngram.SampleOption{
		ngram.WithEOSProbability(*eos),
		ngram.WithMaxLength(*maxLength),
		ngram.WithSmoothedSampling(*smooth),
	}
	if *randSeed != 0 {
		opts = append(opts, ngram.WithRand(rand.New(rand.NewPCG(*randSeed, *randSeed))))
	}

	for i := 0; i < *count; i++ {
		sentence, err := m.SampleFromString(ctx, *seed, *n, opts...)
		if err != nil {
			return err
		}
		if _, err = fmt.Fprintln(a.stdout, strings.Join(sentence, " ")); err != nil {
			return err
		}
	}
	return nil
}

func runTable(_ context.Context, a *app, args []string) error {
	fs := a.flagSet("table")
	corpus := fs.String("corpus", "", "path to the training corpus")
	n := fs.Int("n", 2, "n-gram order")
	smooth := fs.Bool("smooth", false, "include every smoothed arrangement")
	k := fs.Float64("k", 0, "smoothing constant, 0 for the configured one")
	limit := fs.Int("limit", a.config.Engine.MaxSmoothedKeys, "maximum arrangements to enumerate when smoothing")
	prune := fs.Float64("prune", 0, "drop observed n-grams with a count at or below this value")
	out := fs.String("out", "", "write the table to this file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	m, err := a.loadModel(*corpus)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if !*smooth {
		t := m.Table(*n).Pruned(*prune)
		for _, key := range t.Keys() {
			c, _ := t.Count(key)
			_, _ = fmt.Fprintf(&buf, "%s\t%g\n", key, c)
		}
		return a.writeOutput(*out, &buf)
	}

	t := m.SmoothedTable(*n)
	if *k > 0 {
		t = ngram.BuildTable(m.Tokens(), *n, ngram.WithSmoothing(*k))
	}
	counts, err := t.Pruned(*prune).Smoothed(*limit)
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		_, _ = fmt.Fprintf(&buf, "%s\t%g\n", key, counts[key])
	}
	return a.writeOutput(*out, &buf)
}

func runEval(ctx context.Context, a *app, args []string) error {
	cfg := *a.config.Evaluation
	fs := a.flagSet("eval")
	corpus := fs.String("corpus", "", "path to the training corpus")
	suitePath := fs.String("suite", "", "YAML suite file, empty for the built-in suite")
	fs.IntVar(&cfg.MinOrder, "min", cfg.MinOrder, "lowest order to score")
	fs.IntVar(&cfg.MaxOrder, "max", cfg.MaxOrder, "highest order to score")
	fs.BoolVar(&cfg.Smoothed, "smooth", cfg.Smoothed, "score with smoothed tables")
	record := fs.Bool("record", false, "record the run in the results database")
	dbPath := fs.String("db", a.config.ResultsDatabasePath, "results database path")
	out := fs.String("out", "", "also write the report as YAML to this file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	m, err := a.loadModel(*corpus)
	if err != nil {
		return err
	}

	suite := evaluation.DefaultSuite()
	if *suitePath != "" {
		if suite, err = evaluation.LoadSuiteFile(*suitePath); err != nil {
			return err
		}
	}

	evaluator, err := evaluation.NewEvaluator(a.logger, m, cfg)
	if err != nil {
		return err
	}
	report, err := evaluator.Run(ctx, suite)
	if err != nil {
		return err
	}

	if err = printReport(a.stdout, suite, report); err != nil {
		return err
	}

	if *out != "" {
		var buf bytes.Buffer
		if err = report.WriteYAML(&buf); err != nil {
			return err
		}
		if err = a.writeOutput(*out, &buf); err != nil {
			return err
		}
	}

	if *record {
		store, closeStore, err := a.openResultsStore(*dbPath)
		if err != nil {
			return err
		}
		defer closeStore()

		runID, err := store.RecordRun(ctx, *corpus, report)
		if err != nil {
			return fmt.Errorf("failed to record run: %w", err)
		}
		_, err = fmt.Fprintf(a.stdout, "run_id\t%s\n", runID)
		return err
	}
	return nil
}

func printReport(w io.Writer, suite *evaluation.Suite, report *evaluation.Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "SEQUENCE\tORDER\tPROBABILITY\tLOG_PROBABILITY\n")
	for _, res := range report.Results {
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%g\t%g\n", res.Sequence, res.Order, res.Probability, res.LogProbability)
	}
	_, _ = fmt.Fprintf(tw, "\nSEQUENCE\tBEST_ORDER\n")
	for _, seq := range suite.Sequences {
		_, _ = fmt.Fprintf(tw, "%s\t%d\n", seq.Name, report.Best[seq.Name])
	}
	_, _ = fmt.Fprintf(tw, "\nORDER\tMEAN_LOG_PROBABILITY\n")
	for n := report.Config.MinOrder; n <= report.Config.MaxOrder; n++ {
		_, _ = fmt.Fprintf(tw, "%d\t%g\n", n, report.MeanLogProbability(n))
	}
	return tw.Flush()
}

// openResultsStore opens the results database, creating its directory and
// schema when needed. The returned function closes both store and database.
func (a *app) openResultsStore(path string) (*ResultsStore, func(), error) {
	if path == "" {
		return nil, nil, errors.New("no results database configured")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create results directory: %w", err)
		}
	}

	db, err := initDB(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err = SetupResultsSchema(db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to setup results schema: %w", err)
	}
	store, err := NewResultsStore(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	store.SetLogger(a.logger)

	return store, func() {
		store.Close()
		if err := db.Close(); err != nil {
			a.logger.Error("Failed to close database", "error", err)
		}
	}, nil
}

func runRuns(ctx context.Context, a *app, args []string) error {
	fs := a.flagSet("runs")
	dbPath := fs.String("db", a.config.ResultsDatabasePath, "results database path")
	runID := fs.String("run", "", "show the results of this run instead of listing runs")
	deleteID := fs.String("delete", "", "delete this run")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, closeStore, err := a.openResultsStore(*dbPath)
	if err != nil {
		return err
	}
	defer closeStore()

	if *deleteID != "" {
		return store.DeleteRun(ctx, *deleteID)
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	if *runID != "" {
		results, err := store.RunResults(ctx, *runID)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(tw, "SEQUENCE\tORDER\tPROBABILITY\tLOG_PROBABILITY\n")
		for _, res := range results {
			_, _ = fmt.Fprintf(tw, "%s\t%d\t%g\t%g\n", res.Sequence, res.Order, res.Probability, res.LogProbability)
		}
		return tw.Flush()
	}

	runs, err := store.ListRuns(ctx)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(tw, "RUN_ID\tCREATED\tCORPUS\tSUITE\tORDERS\tSMOOTHED\n")
	for _, run := range runs {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d-%d\t%t\n",
			run.ID, run.CreatedAt.Format(time.RFC3339), run.Corpus, run.Suite,
			run.Config.MinOrder, run.Config.MaxOrder, run.Config.Smoothed)
	}
	return tw.Flush()
}

func runUnknown(_ context.Context, a *app, args []string) error {
	fs := a.flagSet("unk")
	corpus := fs.String("corpus", "", "path to the training corpus")
	validation := fs.String("validation", "", "path to a validation text")
	threshold := fs.Float64("threshold", 2, "unigram count below which a word counts as rare")
	if err := fs.Parse(args); err != nil {
		return err
	}

	m, err := a.loadModel(*corpus)
	if err != nil {
		return err
	}

	if *validation != "" {
		data, err := os.ReadFile(*validation)
		if err != nil {
			return fmt.Errorf("failed to read validation text: %w", err)
		}
		_, _ = fmt.Fprintf(a.stdout, "unknown_rate\t%g\n", m.UnknownRate(string(data)))
	}
	_, err = fmt.Fprintf(a.stdout, "rare_type_rate\t%g\n", ngram.UnknownRateByThreshold(m.Table(1), *threshold))
	return err
}

func runStats(_ context.Context, a *app, args []string) error {
	fs := a.flagSet("stats")
	corpus := fs.String("corpus", "", "path to the training corpus")
	maxOrder := fs.Int("max-order", a.config.Evaluation.MaxOrder, "highest order to report")
	if err := fs.Parse(args); err != nil {
		return err
	}

	m, err := a.loadModel(*corpus)
	if err != nil {
		return err
	}
	stats := m.Stats(*maxOrder)

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "tokens\t%d\n", stats.Tokens)
	_, _ = fmt.Fprintf(tw, "vocabulary\t%d\n", stats.Vocabulary)
	_, _ = fmt.Fprintf(tw, "\nORDER\tDISTINCT\tWINDOWS\n")
	for _, o := range stats.Orders {
		_, _ = fmt.Fprintf(tw, "%d\t%d\t%g\n", o.Order, o.DistinctKeys, o.Windows)
	}
	return tw.Flush()
}
