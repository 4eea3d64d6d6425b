package triage

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"code-intelligence.com/crashtriage/pkg/corpus"
	"code-intelligence.com/crashtriage/pkg/log"
	"code-intelligence.com/crashtriage/pkg/parser/sanitizer"
	"code-intelligence.com/crashtriage/pkg/record"
	"code-intelligence.com/crashtriage/pkg/runner"
)

// Engine executes the target on a single item and turns the outcome
// into a record. Process can be used as the ProcessFunc of a Pool.
type Engine struct {
	Target  string
	Mode    runner.Mode
	Sink    string
	Timeout time.Duration
	// The environment of the target, see runner.SanitizerEnvironment
	Env     []string
	Builder *record.Builder
}

func (e *Engine) Process(ctx context.Context, item *corpus.Item) (*record.CrashRecord, error) {
	outcome, err := runner.Run(ctx, &runner.Options{
		Target:  e.Target,
		Input:   item.Path,
		Mode:    e.Mode,
		Sink:    e.Sink,
		Timeout: e.Timeout,
		Env:     e.Env,
	})
	if errors.Is(err, runner.ErrInputNotFound) {
		return nil, NewItemError(err)
	}
	if err != nil {
		return nil, err
	}

	sig := sanitizer.Classify(outcome.Output)
	log.Debugf("%s: exit code %d, %s, took %s", item.Path, outcome.ExitCode, sig.BugKind, outcome.Duration)

	rec, err := e.Builder.Build(item, outcome, sig)
	if err != nil {
		return rec, NewItemError(errors.WithMessage(err, "failed to write log"))
	}
	return rec, nil
}
