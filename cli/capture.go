package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/onnwee/chatpulse/chat"
	"github.com/onnwee/chatpulse/config"
	"github.com/onnwee/chatpulse/db"
	"github.com/onnwee/chatpulse/fsio"
	"github.com/onnwee/chatpulse/keywords"
	"github.com/onnwee/chatpulse/livechat"
	"github.com/onnwee/chatpulse/twitchapi"
	"github.com/onnwee/chatpulse/youtubeapi"
)

const youtubeMinPoll = time.Second

type captureOptions struct {
	output string
	store  bool
	wait   bool
	render renderOptions
}

func newCaptureCmd(a *app) *cobra.Command {
	var opts captureOptions
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture live YouTube or Twitch chat",
		Long: `Capture streams a live chat until the broadcast ends, --duration
elapses or the process is interrupted.

With --output the chat is saved as a transcript that analyze can read.
With --store it is persisted as a session in Postgres. Without either, the
captured messages are analysed as soon as the capture ends.

Examples:
  chatpulse capture --youtube dQw4w9WgXcQ --output chat.txt
  chatpulse capture --twitch somechannel --wait --store
  chatpulse capture --twitch somechannel --duration 10m -t 1T`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fs := cmd.Flags()
			overrideString(fs, "youtube", &a.cfg.YouTubeID)
			overrideString(fs, "twitch", &a.cfg.TwitchChannel)
			overrideDuration(fs, "duration", &a.cfg.CaptureDuration)
			overrideString(fs, "keywords-file", &a.cfg.KeywordsFile)
			overrideString(fs, "time-interval", &a.cfg.TimeInterval)
			overrideString(fs, "csv", &a.cfg.OutputCSV)
			overrideString(fs, "tz", &a.cfg.Timezone)
			if !fs.Changed("output") && a.cfg.YouTubeID != "" {
				opts.output = a.cfg.YouTubeOutput
			}
			return a.capture(cmd.Context(), opts)
		},
	}
	f := cmd.Flags()
	f.String("youtube", "", "YouTube video id of a live broadcast")
	f.String("twitch", "", "Twitch channel login")
	f.StringVarP(&opts.output, "output", "o", "", "save the captured chat as a transcript file")
	f.BoolVar(&opts.store, "store", false, "persist the capture as a session in Postgres")
	f.BoolVar(&opts.wait, "wait", false, "wait for the Twitch channel to go live (needs TWITCH_CLIENT_ID/SECRET)")
	f.DurationP("duration", "d", 0, "stop after this long (0 = until the broadcast ends)")
	f.StringP("keywords-file", "k", config.DefaultKeywordsFile, "keywords file for immediate analysis")
	f.StringP("time-interval", "t", config.DefaultTimeInterval, "window size for immediate analysis")
	f.String("csv", "", "write the immediate analysis as CSV instead of drawing a chart")
	f.String("tz", "", "timezone for saved timestamps and window alignment (default UTC)")
	f.IntVar(&opts.render.width, "width", 60, "chart width in cells")
	f.BoolVar(&opts.render.plain, "plain", false, "draw the chart with glyphs instead of colour")
	return cmd
}

func (a *app) capture(ctx context.Context, opts captureOptions) error {
	cfg := a.cfg
	if err := cfg.ValidateCaptureReady(); err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	analyseAfter := opts.output == "" && !opts.store
	var kws []string
	if analyseAfter {
		// fail before capturing anything we could not analyse
		if err := cfg.ValidateSessionAnalyze(a.fs); err != nil {
			return err
		}
		if kws, err = keywords.Load(a.fs, cfg.KeywordsFile); err != nil {
			return err
		}
	}

	var dbx *sql.DB
	if opts.store || (cfg.YouTubeID != "" && cfg.YTAPIKey == "") {
		if dbx, err = a.openDB(ctx); err != nil {
			return err
		}
		defer closeDB(dbx)
	}

	target, err := a.newSource(ctx, cfg, dbx, opts.wait)
	if err != nil {
		return err
	}
	slog.Info("received live source",
		slog.String("platform", target.src.Platform()),
		slog.String("id", target.sessionID))

	var (
		sinks []livechat.Sink
		mem   *livechat.MemorySink
	)
	if analyseAfter {
		mem = &livechat.MemorySink{}
		sinks = append(sinks, mem)
	}
	if opts.store {
		sess, err := db.CreateSession(ctx, dbx, target.src.Platform(), target.sessionID, target.title, time.Now().UTC())
		if err != nil {
			return err
		}
		slog.Info("session created", slog.String("session", sess.ID))
		sinks = append(sinks, &livechat.StoreSink{Store: &db.MessageStoreAdapter{DB: dbx}, SessionID: sess.ID})
		defer func() {
			if err := db.EndSession(context.WithoutCancel(ctx), dbx, sess.ID, time.Now().UTC()); err != nil {
				slog.Error("failed to close session", slog.String("session", sess.ID), slog.Any("err", err))
			}
		}()
	}

	// Opened last: Capture closes every sink, so nothing may fail after this.
	if opts.output != "" {
		f, err := fsio.Create(a.fs, opts.output)
		if err != nil {
			return err
		}
		slog.Info("saving chat", slog.String("file", opts.output))
		sinks = append(sinks, livechat.NewFileSink(f, "", loc))
	}

	captureCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if cfg.CaptureDuration > 0 {
		stop := time.AfterFunc(cfg.CaptureDuration, cancel)
		defer stop.Stop()
	}
	start := time.Now()
	n, err := livechat.Capture(captureCtx, target.src, target.sessionID, sinks...)
	if err != nil {
		return err
	}
	slog.Info("capture finished",
		slog.String("messages", humanize.Comma(int64(n))),
		slog.String("started", humanize.Time(start)))

	if !analyseAfter {
		return nil
	}
	iv, err := cfg.Interval()
	if err != nil {
		return err
	}
	res, err := analyzeRecords(context.WithoutCancel(ctx), mem.Records(), iv, kws, loc)
	if err != nil {
		return err
	}
	return a.emit(res, iv, target.src.Platform()+" "+target.sessionID, opts.render)
}

// liveSource builds the configured live chat source. YouTube uses the API
// key when set and the stored OAuth token otherwise. Twitch reads chat
// anonymously unless bot credentials are set; Helix credentials add offline
// detection and --wait.
func (a *app) liveSource(ctx context.Context, cfg *config.Config, dbx *sql.DB, wait bool) (liveTarget, error) {
	if cfg.YouTubeID != "" {
		var ts youtubeapi.TokenStore
		if dbx != nil {
			adapter, err := a.tokenStore(dbx)
			if err != nil {
				return liveTarget{}, err
			}
			ts = adapter
		}
		api, err := youtubeapi.NewClient(ctx, cfg, ts)
		if err != nil {
			return liveTarget{}, err
		}
		return liveTarget{
			src:       &youtubeapi.LiveChatSource{API: api, MinPoll: youtubeMinPoll},
			sessionID: cfg.YouTubeID,
		}, nil
	}

	src := &chat.TwitchSource{
		Username:   cfg.TwitchBotUsername,
		OAuthToken: cfg.TwitchOAuthToken,
		PollEvery:  cfg.ChatPollInterval,
	}
	target := liveTarget{src: src, sessionID: cfg.TwitchChannel}
	if !cfg.HelixEnabled() {
		if wait {
			return liveTarget{}, errors.New("--wait needs TWITCH_CLIENT_ID and TWITCH_CLIENT_SECRET")
		}
		slog.Info("twitch offline detection disabled (no helix credentials)")
		return target, nil
	}
	helix := &twitchapi.HelixClient{
		AppTokenSource: &twitchapi.TokenSource{ClientID: cfg.TwitchClientID, ClientSecret: cfg.TwitchClientSecret},
		ClientID:       cfg.TwitchClientID,
	}
	src.Helix = helix
	if wait {
		stream, err := chat.WaitForLive(ctx, helix, cfg.TwitchChannel, cfg.ChatPollInterval)
		if err != nil {
			return liveTarget{}, fmt.Errorf("wait for %s: %w", cfg.TwitchChannel, err)
		}
		target.title = stream.Title
	}
	return target, nil
}
