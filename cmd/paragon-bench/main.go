// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// paragon-bench loads a Paragon network library and compares its baseline
// and accelerated forward passes on a fixed suite of MNIST-sized networks.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"k8s.io/examples/AI/paragonbench/pkg/bench"
	"k8s.io/examples/AI/paragonbench/pkg/blobs"
	"k8s.io/examples/AI/paragonbench/pkg/capability"
	"k8s.io/examples/AI/paragonbench/pkg/fixedinput"
)

func main() {
	ctx := context.Background()
	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

type options struct {
	library       string
	quiet         bool
	csvPath       string
	warmup        int
	maxOutput     int
	cacheDir      string
	reportBucket  string
	fetchAttempts int
}

// run only returns an error for invalid flags; benchmark failures are
// reported and logged.
func run(ctx context.Context, args []string, stdout io.Writer) error {
	opt := options{
		library:       os.Getenv("PARAGON_LIBRARY"),
		maxOutput:     1024,
		cacheDir:      os.Getenv("PARAGON_CACHE_DIR"),
		reportBucket:  os.Getenv("REPORT_BUCKET"),
		fetchAttempts: 5,
	}
	if opt.cacheDir == "" {
		opt.cacheDir = filepath.Join(os.TempDir(), "paragon-bench")
	}

	fs := flag.NewFlagSet("paragon-bench", flag.ContinueOnError)
	fs.StringVar(&opt.library, "lib", opt.library, "path, gs:// or http(s):// URL of the library to load; the first positional argument also works. Empty uses the default library name.")
	fs.BoolVar(&opt.quiet, "quiet", opt.quiet, "omit the raw output replies")
	fs.StringVar(&opt.csvPath, "csv", opt.csvPath, "append results to this CSV file")
	fs.IntVar(&opt.warmup, "warmup", opt.warmup, "untimed forward passes before each timed pass")
	fs.IntVar(&opt.maxOutput, "max-output", opt.maxOutput, "maximum number of output values decoded per reply")
	fs.StringVar(&opt.cacheDir, "cache-dir", opt.cacheDir, "directory where downloaded libraries are kept and reused")
	fs.StringVar(&opt.reportBucket, "report-bucket", opt.reportBucket, "upload the CSV report to gs://<bucket>[/prefix]")
	fs.IntVar(&opt.fetchAttempts, "fetch-attempts", opt.fetchAttempts, "download attempts for a remote library")
	klog.InitFlags(fs)

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 && !strings.HasPrefix(fs.Arg(0), "-") {
		opt.library = fs.Arg(0)
	}
	if opt.warmup < 0 || opt.maxOutput <= 0 {
		return fmt.Errorf("-warmup must be >= 0 and -max-output > 0")
	}

	var uploader *blobs.ReportUploader
	if opt.reportBucket != "" {
		u, err := blobs.NewReportUploader(opt.reportBucket)
		if err != nil {
			return err
		}
		uploader = u
	}

	runID := uuid.NewString()
	log := klog.FromContext(ctx).WithValues("run", runID)
	ctx = klog.NewContext(ctx, log)

	libraryPath := resolveLibrary(ctx, opt)

	resolver := capability.Load(ctx, libraryPath)
	defer func() {
		if err := resolver.Close(); err != nil {
			log.Error(err, "releasing library")
		}
	}()

	table := resolver.Table()
	log.Info("library resolved",
		"path", resolver.Path(),
		"construct5", table.Export(capability.Construct5),
		"construct3", table.Export(capability.Construct3),
		"call", table.Export(capability.Dispatch))

	runner := bench.NewRunner(table, fixedinput.Default())
	runner.Warmup = opt.warmup
	runner.MaxOutput = opt.maxOutput

	reporter := &bench.Reporter{Out: stdout, Quiet: opt.quiet}
	reporter.Header("Simple Paragon CPU vs GPU Benchmark (Go)")
	results := runner.Run(ctx, bench.DefaultSuite, reporter.Case)
	reporter.Summary(results)

	writeReports(ctx, opt, runID, uploader, results)
	return nil
}

// resolveLibrary returns a local path for the library, downloading it first
// when it is remote. On a failed download the source itself is returned;
// loading it fails and the run continues with no capabilities.
func resolveLibrary(ctx context.Context, opt options) string {
	log := klog.FromContext(ctx)

	if opt.library == "" {
		return ""
	}
	localPath, err := blobs.FetchLibrary(ctx, opt.library, opt.cacheDir, opt.fetchAttempts)
	if err != nil {
		log.Error(err, "library unavailable, continuing without it", "source", opt.library)
		return opt.library
	}
	return localPath
}

func writeReports(ctx context.Context, opt options, runID string, uploader *blobs.ReportUploader, results []*bench.Result) {
	log := klog.FromContext(ctx)

	if opt.csvPath != "" {
		if err := bench.AppendCSV(opt.csvPath, results); err != nil {
			log.Error(err, "writing CSV", "path", opt.csvPath)
		} else {
			log.Info("CSV appended", "path", opt.csvPath)
		}
	}

	if uploader == nil {
		return
	}

	// The upload holds only this run, even when -csv appends to a longer file.
	tempFile, err := os.CreateTemp("", "paragon-bench-*.csv")
	if err != nil {
		log.Error(err, "creating report file")
		return
	}
	defer os.Remove(tempFile.Name())

	if err := bench.WriteCSV(tempFile, results, true); err != nil {
		tempFile.Close()
		log.Error(err, "writing report file", "path", tempFile.Name())
		return
	}
	if err := tempFile.Close(); err != nil {
		log.Error(err, "closing report file", "path", tempFile.Name())
		return
	}
	if err := uploader.UploadCSV(ctx, runID, tempFile.Name()); err != nil {
		log.Error(err, "uploading report")
	}
}
