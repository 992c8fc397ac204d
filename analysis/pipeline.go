// Package analysis runs the keyword pipeline: parse transcript lines, bucket
// the records into time windows, count keywords per window and build the
// sorted result table.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/chatpulse/fsio"
	"github.com/onnwee/chatpulse/keywords"
	"github.com/onnwee/chatpulse/report"
	"github.com/onnwee/chatpulse/telemetry"
	"github.com/onnwee/chatpulse/transcript"
	"github.com/onnwee/chatpulse/window"
)

const tracerName = "chatpulse/analysis"

// Options configures one pipeline run.
type Options struct {
	Interval window.Interval
	Keywords []string
	Parser   transcript.Parser
	// Strict aborts the run on the first malformed line.
	Strict bool
	// Location, when set, is the zone RunRecords aligns windows in. Records
	// from a live capture or the database carry UTC timestamps.
	Location *time.Location
	Logger   *slog.Logger
}

// Result is the outcome of a run.
type Result struct {
	Table    report.Table
	Records  int
	Failures []*transcript.LineError
}

// Empty reports whether no records were found.
func (r Result) Empty() bool { return r.Records == 0 }

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default().With(slog.String("component", "analysis"))
}

// Run parses lines and produces the keyword table. Malformed lines are skipped
// and reported in Result.Failures unless Options.Strict is set.
func Run(ctx context.Context, lines []string, opts Options) (Result, error) {
	if opts.Interval.Duration() <= 0 {
		return Result{}, fmt.Errorf("%w: interval not set", window.ErrInvalidInterval)
	}
	if telemetry.PipelineRuns != nil {
		telemetry.PipelineRuns.Inc()
	}
	start := time.Now()
	ctx, span := telemetry.StartSpan(ctx, tracerName, "analysis.run",
		attribute.Int("lines", len(lines)),
		attribute.String("interval", opts.Interval.String()),
		attribute.Int("keywords", len(opts.Keywords)),
	)
	defer span.End()

	_, aggSpan := telemetry.StartSpan(ctx, tracerName, "analysis.aggregate")
	parsed, err := transcript.Aggregate(lines, transcript.AggregateOptions{
		Parser: opts.Parser,
		Strict: opts.Strict,
		Logger: opts.logger(),
	})
	aggSpan.SetAttributes(attribute.Int("records", len(parsed.Records)), attribute.Int("failures", len(parsed.Failures)))
	telemetry.RecordError(aggSpan, err)
	aggSpan.End()
	telemetry.AddLines(len(parsed.Records), len(parsed.Failures))
	if err != nil {
		telemetry.RecordError(span, err)
		if telemetry.PipelineFailed != nil {
			telemetry.PipelineFailed.Inc()
		}
		return Result{Records: len(parsed.Records), Failures: parsed.Failures}, fmt.Errorf("aggregate transcript: %w", err)
	}

	res := runRecords(ctx, parsed.Records, opts)
	res.Failures = parsed.Failures
	if len(res.Failures) > 0 {
		opts.logger().Warn("malformed transcript lines skipped", slog.Int("count", len(res.Failures)))
	}
	if telemetry.PipelineDuration != nil {
		telemetry.PipelineDuration.Observe(time.Since(start).Seconds())
	}
	telemetry.SetSpanSuccess(span)
	return res, nil
}

// RunRecords builds the keyword table from already parsed records, e.g. a
// live capture or a stored session.
func RunRecords(ctx context.Context, records []transcript.ChatRecord, opts Options) (Result, error) {
	if opts.Interval.Duration() <= 0 {
		return Result{}, fmt.Errorf("%w: interval not set", window.ErrInvalidInterval)
	}
	if telemetry.PipelineRuns != nil {
		telemetry.PipelineRuns.Inc()
	}
	ctx, span := telemetry.StartSpan(ctx, tracerName, "analysis.run_records", attribute.Int("records", len(records)))
	defer span.End()
	if opts.Location != nil {
		records = inLocation(records, opts.Location)
	}
	var res Result
	telemetry.TimeFunc(telemetry.PipelineDuration, func() {
		res = runRecords(ctx, records, opts)
	})
	telemetry.SetSpanSuccess(span)
	return res, nil
}

// inLocation returns a copy of records with timestamps converted to loc.
func inLocation(records []transcript.ChatRecord, loc *time.Location) []transcript.ChatRecord {
	out := make([]transcript.ChatRecord, len(records))
	for i, rec := range records {
		rec.Timestamp = rec.Timestamp.In(loc)
		out[i] = rec
	}
	return out
}

func runRecords(ctx context.Context, records []transcript.ChatRecord, opts Options) Result {
	_, bucketSpan := telemetry.StartSpan(ctx, tracerName, "analysis.bucket")
	windows := window.Bucket(records, opts.Interval)
	bucketSpan.SetAttributes(attribute.Int("windows", len(windows)))
	bucketSpan.End()

	_, countSpan := telemetry.StartSpan(ctx, tracerName, "analysis.count")
	tbl := report.Build(windows, keywords.NewCounter(opts.Keywords))
	countSpan.End()

	if telemetry.WindowsEmitted != nil {
		telemetry.WindowsEmitted.Add(float64(len(tbl.Rows)))
	}
	if len(records) == 0 {
		opts.logger().Warn("no parseable chat records; result table is empty", slog.Any("err", ErrEmptyInput))
	}
	return Result{Table: tbl, Records: len(records)}
}

// LoadTranscript reads the transcript file at path into lines.
func LoadTranscript(fsys afero.Fs, path string) ([]string, error) {
	f, err := fsio.Open(fsys, path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Warn("failed to close transcript", slog.Any("err", err))
		}
	}()
	return transcript.ReadLines(f)
}
