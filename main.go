package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"LocalMR/internal/jobs"
	"LocalMR/internal/journal"
	"LocalMR/internal/logger"
	"LocalMR/internal/mapreduce"
	"LocalMR/internal/types"
)

type options struct {
	job            string
	pattern        string
	parallelMap    bool
	parallelReduce bool
	workers        int
	isolate        bool
	logLevel       string
	journal        bool
	journalDir     string
	paths          []string
}

func main() {
	var opts options
	flag.StringVar(&opts.job, "job", "wordcount", "Job to run: 'wordcount', 'sum' or 'grep'")
	flag.StringVar(&opts.pattern, "pattern", "", "Regular expression for the grep job")
	flag.BoolVar(&opts.parallelMap, "parallel-map", false, "Run map tasks on a worker pool")
	flag.BoolVar(&opts.parallelReduce, "parallel-reduce", false, "Run reduce tasks on a worker pool")
	flag.IntVar(&opts.workers, "workers", 0, "Worker pool size (0 = GOMAXPROCS)")
	flag.BoolVar(&opts.isolate, "isolate", false, "Keep running when a task fails and report failures at the end")
	flag.StringVar(&opts.logLevel, "log-level", "INFO", "Log level: DEBUG, INFO, WARN or ERROR")
	flag.BoolVar(&opts.journal, "journal", false, "Record runs in the raft-backed journal")
	flag.StringVar(&opts.journalDir, "journal-dir", "", "Persist the journal in this directory (implies -journal)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <file or directory>...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	opts.paths = flag.Args()

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	lg := logger.New(opts.logLevel)

	inputs, err := jobs.ReadInputs(opts.paths)
	if err != nil {
		return err
	}
	lg.Info("Loaded %d input files", len(inputs))

	observers := mapreduce.Observers{mapreduce.NewLogObserver(lg)}

	var jr *journal.Cluster
	if opts.journal || opts.journalDir != "" {
		jr, err = journal.NewCluster(journal.Config{DataDir: opts.journalDir, Logger: lg})
		if err != nil {
			return fmt.Errorf("failed to open journal: %w", err)
		}
		defer jr.Close()
		observers = append(observers, journal.NewRecorder(jr))
	}

	cfg := mapreduce.Config{
		Workers:         opts.workers,
		IsolateFailures: opts.isolate,
		Observer:        observers,
	}

	var runErr error
	switch opts.job {
	case "wordcount":
		runErr = execute(inputs, jobs.WordCountMap, jobs.SumReduce, cfg, opts, formatKeyValue[int])
	case "sum":
		runErr = execute(inputs, jobs.SumLinesMap, jobs.SumReduce, cfg, opts, formatKeyValue[int])
	case "grep":
		if opts.pattern == "" {
			return fmt.Errorf("the grep job needs -pattern")
		}
		g, err := jobs.NewGrep(opts.pattern)
		if err != nil {
			return err
		}
		runErr = execute(inputs, g.Map, g.Reduce, cfg, opts, func(p types.ResultPair[string, string]) string {
			return p.Value
		})
	default:
		return fmt.Errorf("unknown job: %s", opts.job)
	}

	if jr != nil {
		printJournal(jr, opts.journalDir != "", lg)
	}

	return runErr
}

// execute pushes inputs through one engine run and prints the results
// sorted by key.
func execute[K2 comparable, V2, V3 any](
	inputs []types.InputPair[string, string],
	mapFn mapreduce.MapFunc[string, string, K2, V2],
	reduceFn mapreduce.ReduceFunc[K2, V2, string, V3],
	cfg mapreduce.Config,
	opts options,
	format func(types.ResultPair[string, V3]) string,
) error {
	engine, err := mapreduce.New(mapFn, reduceFn, cfg)
	if err != nil {
		return err
	}

	for _, in := range inputs {
		engine.Push(in)
	}

	runErr := engine.RunWith(opts.parallelMap, opts.parallelReduce)
	if runErr != nil && !opts.isolate {
		return runErr
	}

	results := engine.GetResults()
	if len(results) == 0 {
		fmt.Println("No results")
		return runErr
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Key < results[j].Key })
	for _, r := range results {
		fmt.Println(format(r))
	}

	return runErr
}

func formatKeyValue[V any](p types.ResultPair[string, V]) string {
	return fmt.Sprintf("%s\t%v", p.Key, p.Value)
}

// printJournal logs every journaled run. A journal kept on disk is compacted
// into its snapshot store before the process exits.
func printJournal(jr *journal.Cluster, persistent bool, lg *logger.Logger) {
	if err := jr.Sync(); err != nil {
		lg.Warn("Journal sync failed: %v", err)
		return
	}

	for _, r := range jr.Runs() {
		lg.Info("Journal: run_id=%s status=%s map_tasks=%d reduce_tasks=%d completed=%d skipped=%d failed=%d results=%d",
			r.ID, r.Status, r.MapTasks, r.ReduceTasks, r.TasksCompleted, r.TasksSkipped, r.TasksFailed, r.Results)
	}

	if persistent {
		if err := jr.Snapshot(); err != nil {
			lg.Warn("Journal snapshot failed: %v", err)
		}
	}

	state, stats := jr.GetState(), jr.Stats()
	lg.Info("Journal state: version=%d runs=%d last_log_index=%s applied_index=%s last_snapshot_index=%s",
		state.Version, len(state.Runs), stats["last_log_index"], stats["applied_index"], stats["last_snapshot_index"])
}
