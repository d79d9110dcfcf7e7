package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeInputs(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func TestRunJobs(t *testing.T) {
	docs := writeInputs(t, map[string]string{
		"doc1.txt": "the cat sat",
		"doc2.txt": "the dog sat",
	})
	ledger := writeInputs(t, map[string]string{
		"ledger.txt": "A 1\nA 2\nB 3\n",
	})

	cases := []options{
		{job: "wordcount", paths: []string{docs}},
		{job: "wordcount", paths: []string{docs}, parallelMap: true, parallelReduce: true, workers: 2},
		{job: "sum", paths: []string{ledger}},
		{job: "grep", pattern: "sat", paths: []string{docs}, parallelMap: true},
	}

	for _, opts := range cases {
		opts.logLevel = "ERROR"
		if err := run(opts); err != nil {
			t.Fatalf("run(%+v) failed: %v", opts, err)
		}
	}
}

func TestRunWithJournal(t *testing.T) {
	docs := writeInputs(t, map[string]string{"doc.txt": "a b a"})

	opts := options{
		job:        "wordcount",
		logLevel:   "ERROR",
		journalDir: filepath.Join(t.TempDir(), "journal"),
		paths:      []string{docs},
	}
	if err := run(opts); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(opts.journalDir, "journal-logs.db")); err != nil {
		t.Fatalf("journal log store not created: %v", err)
	}

	snaps, err := os.ReadDir(filepath.Join(opts.journalDir, "snapshots"))
	if err != nil || len(snaps) == 0 {
		t.Fatalf("journal snapshot not written: %v", err)
	}

	// A second run starts from the snapshot left by the first.
	if err := run(opts); err != nil {
		t.Fatalf("second run failed: %v", err)
	}
}

func TestRunErrors(t *testing.T) {
	docs := writeInputs(t, map[string]string{"doc.txt": "x"})
	bad := writeInputs(t, map[string]string{"ledger.txt": "A one\n"})

	cases := map[string]options{
		"unknown job":     {job: "nope", paths: []string{docs}},
		"grep no pattern": {job: "grep", paths: []string{docs}},
		"bad pattern":     {job: "grep", pattern: "(", paths: []string{docs}},
		"no inputs":       {job: "wordcount"},
		"map failure":     {job: "sum", paths: []string{bad}},
		"isolated fail":   {job: "sum", paths: []string{bad}, isolate: true},
	}

	for name, opts := range cases {
		opts.logLevel = "ERROR"
		if err := run(opts); err == nil {
			t.Fatalf("%s: expected an error", name)
		}
	}
}
