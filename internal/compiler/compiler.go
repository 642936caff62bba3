// Package compiler drives one compilation end to end: it builds the IR
// tree of a traversal, lowers the root node and assembles the result into
// a single logical plan. Each call owns a fresh label manager, plan
// builder and node arena, so Compile is safe to call concurrently as long
// as the schema is.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/roach88/gplan/internal/builder"
	"github.com/roach88/gplan/internal/ir"
	"github.com/roach88/gplan/internal/metrics"
	"github.com/roach88/gplan/internal/plan"
	"github.com/roach88/gplan/internal/schema"
	"github.com/roach88/gplan/internal/traversal"
	"github.com/roach88/gplan/internal/tree"
)

// Options tune a compilation.
type Options struct {
	// DefaultMaxLoops bounds repeat() steps with neither times() nor a
	// loops() guard.
	DefaultMaxLoops int64 `yaml:"default_max_loops"`

	// MaxDepth bounds the nesting of sub-traversals.
	MaxDepth int `yaml:"max_depth"`

	// Logger receives debug records for each compilation. Nil means
	// slog.Default().
	Logger *slog.Logger `yaml:"-"`

	// QueryID tags logs and spans. A random id is used when empty.
	QueryID string `yaml:"-"`
}

// DefaultOptions returns the options Compile uses for zero fields.
func DefaultOptions() Options {
	return Options{
		DefaultMaxLoops: builder.DefaultMaxLoops,
		MaxDepth:        builder.DefaultMaxDepth,
	}
}

// LoadOptions reads compiler options from a YAML file over the defaults.
// Unknown fields are errors. An empty path returns the defaults.
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()
	if path == "" {
		return opts, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return opts, fmt.Errorf("failed to open compiler options: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(&opts); err != nil {
		return opts, fmt.Errorf("failed to parse compiler options: %w", err)
	}
	if opts.DefaultMaxLoops < 0 {
		return opts, fmt.Errorf("default_max_loops must not be negative, got %d", opts.DefaultMaxLoops)
	}
	if opts.MaxDepth < 0 {
		return opts, fmt.Errorf("max_depth must not be negative, got %d", opts.MaxDepth)
	}
	return opts, nil
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.DefaultMaxLoops <= 0 {
		o.DefaultMaxLoops = d.DefaultMaxLoops
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = d.MaxDepth
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.QueryID == "" {
		o.QueryID = uuid.NewString()
	}
	return o
}

// Compile compiles t against sc. On any error it returns a nil plan: no
// partial plan ever leaves a failed compilation.
//
// ctx carries tracing only; a compilation is not cancelled midway.
func Compile(ctx context.Context, t *traversal.Traversal, sc schema.Schema, opts Options) (*plan.LogicalPlan, error) {
	if sc == nil {
		return nil, errors.New("compile: no schema")
	}
	opts = opts.withDefaults()
	log := opts.Logger.With("query_id", opts.QueryID)

	steps := traversal.CountSteps(t)
	ctx, span := startCompileSpan(ctx, opts.QueryID, steps)
	defer span.End()

	log.Debug("compile start", "steps", steps)
	start := time.Now()
	lp, err := compile(t, sc, opts)
	elapsed := time.Since(start)

	if err != nil {
		code := ir.CodeOf(err)
		outcome := string(code)
		if outcome == "" {
			outcome = "ERROR"
		}
		var step string
		var ce *ir.CompileError
		if errors.As(err, &ce) {
			step = ce.Step
		}
		if code == ir.CodeUnsupportedFeature {
			log.Warn("unsupported traversal", "step", step, "error", err)
		} else {
			log.Debug("compile failed", "code", outcome, "error", err)
		}
		metrics.ObserveCompile(outcome, elapsed.Seconds(), 0)
		metrics.ObserveRejection(step, outcome)
		setCompileSpanError(span, err)
		recordCompileMetrics(ctx, elapsed, 0, outcome)
		return nil, err
	}

	n := lp.CountVertices()
	log.Debug("compile finished", "vertices", n, "duration", elapsed)
	metrics.ObserveCompile(metrics.OutcomeOK, elapsed.Seconds(), n)
	setCompileSpanResult(span, n)
	recordCompileMetrics(ctx, elapsed, n, metrics.OutcomeOK)
	return lp, nil
}

func compile(t *traversal.Traversal, sc schema.Schema, opts Options) (*plan.LogicalPlan, error) {
	res, err := builder.Build(t, sc, builder.Options{
		MaxLoops: opts.DefaultMaxLoops,
		MaxDepth: opts.MaxDepth,
	})
	if err != nil {
		return nil, err
	}
	p, err := tree.Lower(res.Tree, plan.NewBuilder(), res.Root)
	if err != nil {
		return nil, fmt.Errorf("lower: %w", err)
	}
	return plan.Assemble(p, res.Labels.Names(), res.Config), nil
}
