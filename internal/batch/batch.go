// Package batch holds the options and the execution loop shared by the
// commands which run the target on a corpus.
package batch

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"code-intelligence.com/crashtriage/internal/progress_handler"
	"code-intelligence.com/crashtriage/pkg/cmdutils"
	"code-intelligence.com/crashtriage/pkg/corpus"
	"code-intelligence.com/crashtriage/pkg/desktop"
	"code-intelligence.com/crashtriage/pkg/log"
	"code-intelligence.com/crashtriage/pkg/record"
	"code-intelligence.com/crashtriage/pkg/report"
	"code-intelligence.com/crashtriage/pkg/runner"
	"code-intelligence.com/crashtriage/pkg/storage"
	"code-intelligence.com/crashtriage/pkg/triage"
	"code-intelligence.com/crashtriage/util/fileutil"
)

type Opts struct {
	Target       string        `mapstructure:"target"`
	Mode         string        `mapstructure:"mode"`
	CorpusDir    string        `mapstructure:"corpus-dir"`
	Pattern      string        `mapstructure:"pattern"`
	Timeout      time.Duration `mapstructure:"timeout"`
	Limit        int           `mapstructure:"limit"`
	OutDir       string        `mapstructure:"out-dir"`
	KeepLogs     bool          `mapstructure:"keep-logs"`
	Jobs         int           `mapstructure:"jobs"`
	ASanOptions  string        `mapstructure:"asan-options"`
	UBSanOptions string        `mapstructure:"ubsan-options"`
	Sink         string        `mapstructure:"sink"`
	Keywords     []string      `mapstructure:"keywords"`
	Samples      int           `mapstructure:"samples"`
	Seed         int64         `mapstructure:"seed"`
	Notify       bool          `mapstructure:"notify"`
	PrintJSON    bool          `mapstructure:"print-json"`

	Fs *afero.Afero `mapstructure:"-"`

	mode runner.Mode
}

func (opts *Opts) Validate() error {
	if opts.Target == "" {
		err := errors.New("No target specified, use --target or set 'target' in crashtriage.yaml")
		log.Error(err)
		return cmdutils.WrapIncorrectUsageError(err)
	}
	if opts.CorpusDir == "" {
		err := errors.New("No corpus directory specified, use --corpus-dir or set 'corpus-dir' in crashtriage.yaml")
		log.Error(err)
		return cmdutils.WrapIncorrectUsageError(err)
	}

	var err error
	opts.mode, err = runner.ParseMode(opts.Mode)
	if err != nil {
		log.Error(err)
		return cmdutils.WrapIncorrectUsageError(err)
	}

	if opts.Timeout <= 0 {
		err := errors.Errorf("Invalid timeout %s, it must be positive", opts.Timeout)
		log.Error(err)
		return cmdutils.WrapIncorrectUsageError(err)
	}
	if opts.Limit < 0 || opts.Jobs < 0 || opts.Samples < 0 {
		err := errors.New("--limit, --jobs and --samples must not be negative")
		log.Error(err)
		return cmdutils.WrapIncorrectUsageError(err)
	}

	err = runner.ValidateTarget(opts.Target)
	if err != nil {
		log.Error(err, fmt.Sprintf("%s: %s", opts.Target, err.Error()))
		return cmdutils.WrapSilentError(err)
	}

	if opts.Fs == nil {
		opts.Fs = storage.WrapFileSystem()
	}
	return nil
}

// Rand returns the random source for the summary samples.
func (opts *Opts) Rand() *rand.Rand {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// Enumerate lists the corpus items. A missing corpus directory is
// logged and returned as silent error.
func (opts *Opts) Enumerate() ([]*corpus.Item, error) {
	items, err := corpus.Enumerate(opts.Fs, opts.CorpusDir, opts.Pattern, opts.Limit)
	if errors.Is(err, corpus.ErrCorpusNotFound) {
		log.Error(err)
		return nil, cmdutils.WrapSilentError(err)
	}
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		log.Warnf("No inputs in %s match the pattern %q", opts.CorpusDir, opts.Pattern)
	}
	return items, nil
}

// PrepareOutDir creates the output directory.
func (opts *Opts) PrepareOutDir() error {
	outDir, err := storage.GetOutDir(opts.OutDir, opts.Fs)
	if err != nil {
		log.Errorf(err, "Failed to create output directory %s: %v", opts.OutDir, err.Error())
		return cmdutils.WrapSilentError(err)
	}
	opts.OutDir = outDir
	return nil
}

// PrepareArtifact makes sure that the artifact can be written to path
// before any input is processed.
func (opts *Opts) PrepareArtifact(path string) error {
	err := report.Prepare(path)
	if err != nil {
		log.Error(err)
		return cmdutils.WrapSilentError(err)
	}
	return nil
}

// notifySignals returns a channel which receives the termination
// signals and a function which stops the delivery.
var notifySignals = func() (<-chan os.Signal, func()) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	return sigs, func() { signal.Stop(sigs) }
}

// Run executes the target on every item and returns the records in the
// order of items, with nil for skipped items. If the process receives a
// termination signal, the running executions are terminated and a
// cmdutils.SignalError is returned.
func Run(opts *Opts, items []*corpus.Item) ([]*record.CrashRecord, error) {
	env, err := runner.SanitizerEnvironment(os.Environ(), opts.ASanOptions, opts.UBSanOptions)
	if err != nil {
		log.Error(err)
		return nil, cmdutils.WrapIncorrectUsageError(err)
	}

	progressHandler, err := progress_handler.NewProgressHandler(&progress_handler.ProgressHandlerOptions{
		PrintCrashes: true,
		PrintJSON:    opts.PrintJSON,
	})
	if err != nil {
		return nil, err
	}

	engine := &triage.Engine{
		Target:  opts.Target,
		Mode:    opts.mode,
		Sink:    opts.Sink,
		Timeout: opts.Timeout,
		Env:     env,
		Builder: &record.Builder{
			Mode:     opts.mode,
			Target:   opts.Target,
			Sink:     opts.Sink,
			LogDir:   cmdutils.LogsDir(opts.OutDir),
			KeepLogs: opts.KeepLogs,
			Keywords: opts.Keywords,
			Fs:       opts.Fs,
		},
	}
	pool := &triage.Pool{
		Jobs:            opts.Jobs,
		ProgressHandler: progressHandler,
	}

	signalHandlerCtx, cancelSignalHandler := context.WithCancel(context.Background())
	routines, routinesCtx := errgroup.WithContext(signalHandlerCtx)

	// Cancel the routines context when receiving a termination signal
	sigs, stopSignals := notifySignals()
	defer stopSignals()
	routines.Go(func() error {
		select {
		case <-routinesCtx.Done():
			return nil
		case s := <-sigs:
			log.Warnf("Received %s", s.String())
			return cmdutils.NewSignalError(s.(syscall.Signal))
		}
	})

	var records []*record.CrashRecord
	routines.Go(func() error {
		defer cancelSignalHandler()
		var err error
		records, err = pool.Run(routinesCtx, items, engine.Process)
		return err
	})

	err = routines.Wait()
	stopErr := progressHandler.Stop()
	if err != nil {
		var signalErr *cmdutils.SignalError
		if errors.As(err, &signalErr) {
			log.Warn("Batch interrupted, no report is written")
		}
		return nil, err
	}
	if stopErr != nil {
		return nil, stopErr
	}

	progress := progressHandler.Progress()
	log.Infof("Processed %d inputs in %s: %d crashes, %d timeouts, %d skipped",
		progress.Done, progressHandler.Duration().Round(time.Millisecond),
		progress.Crashes, progress.Timeouts, progress.Skipped)
	return records, nil
}

// Finish logs where the artifact was written and sends a desktop
// notification if requested.
func Finish(opts *Opts, title, artifactPath string, records []*record.CrashRecord) {
	log.Successf("Report written to %s", fileutil.PrettifyPath(artifactPath))
	if opts.Notify {
		crashes := 0
		for _, rec := range records {
			if rec != nil && rec.SanitizerBug {
				crashes++
			}
		}
		desktop.Notify(title, fmt.Sprintf("%d of %d inputs triggered a sanitizer report", crashes, len(records)))
	}
}

// NonNil returns the records of the items which were not skipped.
func NonNil(records []*record.CrashRecord) []*record.CrashRecord {
	res := make([]*record.CrashRecord, 0, len(records))
	for _, rec := range records {
		if rec != nil {
			res = append(res, rec)
		}
	}
	return res
}
