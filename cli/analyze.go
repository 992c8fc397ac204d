package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/onnwee/chatpulse/analysis"
	"github.com/onnwee/chatpulse/chart"
	"github.com/onnwee/chatpulse/config"
	"github.com/onnwee/chatpulse/db"
	"github.com/onnwee/chatpulse/fsio"
	"github.com/onnwee/chatpulse/keywords"
	"github.com/onnwee/chatpulse/report"
	"github.com/onnwee/chatpulse/transcript"
	"github.com/onnwee/chatpulse/window"
)

type renderOptions struct {
	width int
	plain bool
}

func newAnalyzeCmd(a *app) *cobra.Command {
	var (
		session string
		render  renderOptions
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Count keywords per time window in a transcript",
		Long: `Analyze reads a chat transcript (or a stored capture session), counts
every keyword per time window and prints a stacked bar chart, or writes
the table as CSV when an output file is given.

Intervals are <n><unit> with unit S (seconds), T or min (minutes), H (hours).

Examples:
  chatpulse analyze -f chat.txt -k keywords.txt
  chatpulse analyze -t 30S -o counts.csv
  chatpulse analyze --session 6f1c... --tz Europe/Madrid`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fs := cmd.Flags()
			overrideString(fs, "file", &a.cfg.ChatFile)
			overrideString(fs, "keywords-file", &a.cfg.KeywordsFile)
			overrideString(fs, "output", &a.cfg.OutputCSV)
			overrideString(fs, "time-interval", &a.cfg.TimeInterval)
			overrideString(fs, "tz", &a.cfg.Timezone)
			overrideString(fs, "format", &a.cfg.TimestampFormat)
			overrideBool(fs, "strict", &a.cfg.StrictLines)
			if session != "" {
				return a.analyzeSession(cmd.Context(), session, render)
			}
			return a.analyzeFile(cmd.Context(), render)
		},
	}
	f := cmd.Flags()
	f.StringP("file", "f", config.DefaultChatFile, "chat transcript to process")
	f.StringP("keywords-file", "k", config.DefaultKeywordsFile, "keywords file, one keyword per line")
	f.StringP("output", "o", "", "write the table as CSV to this file instead of drawing a chart")
	f.StringP("time-interval", "t", config.DefaultTimeInterval, "window size, e.g. 30S, 4T, 1H")
	f.String("tz", "", "timezone of transcript timestamps (default UTC)")
	f.String("format", report.DefaultTimestampPattern, "strftime pattern for window starts")
	f.Bool("strict", false, "fail on the first malformed line instead of skipping it")
	f.StringVar(&session, "session", "", "analyze a stored capture session instead of a file")
	f.IntVar(&render.width, "width", 60, "chart width in cells")
	f.BoolVar(&render.plain, "plain", false, "draw the chart with glyphs instead of colour")
	return cmd
}

func (a *app) analyzeFile(ctx context.Context, render renderOptions) error {
	cfg := a.cfg
	if err := cfg.ValidateAnalyze(a.fs); err != nil {
		return err
	}
	iv, err := cfg.Interval()
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	kws, err := keywords.Load(a.fs, cfg.KeywordsFile)
	if err != nil {
		return err
	}

	slog.Info("processing chat file", slog.String("file", cfg.ChatFile))
	lines, err := analysis.LoadTranscript(a.fs, cfg.ChatFile)
	if err != nil {
		return err
	}
	res, err := analysis.Run(ctx, lines, analysis.Options{
		Interval: iv,
		Keywords: kws,
		Parser:   transcript.Parser{Location: loc},
		Strict:   cfg.StrictLines,
	})
	if err != nil {
		return err
	}
	return a.emit(res, iv, cfg.ChatFile, render)
}

func (a *app) analyzeSession(ctx context.Context, id string, render renderOptions) error {
	cfg := a.cfg
	if err := cfg.ValidateSessionAnalyze(a.fs); err != nil {
		return err
	}
	iv, err := cfg.Interval()
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	kws, err := keywords.Load(a.fs, cfg.KeywordsFile)
	if err != nil {
		return err
	}

	dbx, err := a.openDB(ctx)
	if err != nil {
		return err
	}
	defer closeDB(dbx)
	sess, err := db.GetSession(ctx, dbx, id)
	if err != nil {
		return fmt.Errorf("session %s: %w", id, err)
	}
	recs, err := db.ListChatMessages(ctx, dbx, sess.ID)
	if err != nil {
		return err
	}
	slog.Info("processing stored session",
		slog.String("session", sess.ID),
		slog.String("platform", sess.Platform),
		slog.String("source", sess.SourceID),
		slog.String("messages", humanize.Comma(int64(len(recs)))))
	res, err := analyzeRecords(ctx, recs, iv, kws, loc)
	if err != nil {
		return err
	}
	return a.emit(res, iv, sess.Platform+" "+sess.SourceID, render)
}

// emit writes the result as CSV when OutputCSV is set and draws the chart
// otherwise.
func (a *app) emit(res analysis.Result, iv window.Interval, source string, render renderOptions) error {
	cfg := a.cfg
	slog.Info("analysis complete",
		slog.String("records", humanize.Comma(int64(res.Records))),
		slog.Int("windows", len(res.Table.Rows)),
		slog.Int("skipped_lines", len(res.Failures)))

	if cfg.OutputCSV != "" {
		slog.Info("saving results", slog.String("file", cfg.OutputCSV))
		err := fsio.WriteFileAtomic(a.fs, cfg.OutputCSV, 0o644, func(w io.Writer) error {
			return report.WriteCSV(w, res.Table, cfg.TimestampFormat)
		})
		if err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
		if fi, err := a.fs.Stat(cfg.OutputCSV); err == nil {
			slog.Info("results saved", slog.String("file", cfg.OutputCSV), slog.String("size", humanize.Bytes(uint64(fi.Size()))))
		}
		return nil
	}

	slog.Info("generating graph")
	return chart.Render(a.out, res.Table, chart.Options{
		Width:   render.width,
		Pattern: cfg.TimestampFormat,
		Plain:   render.plain || !chart.IsTerminal(a.out),
		Title:   fmt.Sprintf("%s: keyword mentions per %s", source, iv),
	})
}

// analyzeRecords counts already parsed records, aligning windows in loc.
func analyzeRecords(ctx context.Context, recs []transcript.ChatRecord, iv window.Interval, kws []string, loc *time.Location) (analysis.Result, error) {
	return analysis.RunRecords(ctx, recs, analysis.Options{Interval: iv, Keywords: kws, Location: loc})
}
