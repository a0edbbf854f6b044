package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/brogergvhs/mangapdf/internal/config"
	"github.com/brogergvhs/mangapdf/internal/downloader"
	"github.com/brogergvhs/mangapdf/internal/pipeline"
	"github.com/brogergvhs/mangapdf/internal/providers/manganato"
	"github.com/brogergvhs/mangapdf/internal/publish"
	"github.com/brogergvhs/mangapdf/internal/ui"
	"github.com/brogergvhs/mangapdf/internal/util"
)

// markupTimeout bounds a single search, info or chapter page request.
const markupTimeout = 30 * time.Second

// baseOptions carries the persistent flags into config.LoadMerged.
func baseOptions() config.Options {
	return config.Options{
		IgnoreConfig:     flagIgnoreConfig,
		Debug:            flagDebug,
		Cookie:           flagCookie,
		CookieFile:       flagCookieFile,
		UserAgent:        flagUserAgent,
		CloudflareBypass: flagCloudflareBypass,
	}
}

func newLogger(cfg *config.Config, w io.Writer) *ui.Logger {
	if cfg.LogFormat == "json" {
		return ui.NewJSONLogger(w, cfg.Debug)
	}
	return ui.NewLogger(cfg.Debug)
}

// app holds the collaborators built from one loaded config.
type app struct {
	cfg     *config.Config
	log     *ui.Logger
	client  *http.Client
	scraper *manganato.Scraper
}

func newApp(cfg *config.Config, log *ui.Logger) (*app, error) {
	ua := util.PickUserAgent(cfg.UserAgent)

	client, err := util.NewHTTPClient(util.HTTPClientOptions{
		UserAgent:        ua,
		Cookie:           cfg.Cookie,
		CookieFile:       cfg.CookieFile,
		CloudflareBypass: cfg.CloudflareBypass,
		DebugLogger:      log,
	})
	if err != nil {
		return nil, err
	}

	markupClient := *client
	markupClient.Timeout = markupTimeout

	return &app{
		cfg:     cfg,
		log:     log,
		client:  client,
		scraper: manganato.NewScraper(&markupClient, cfg.Site(), int(cfg.MarkupAttempts), log),
	}, nil
}

func (a *app) publisher(ctx context.Context) (publish.Publisher, error) {
	if a.cfg.Bucket == "" {
		return publish.NewLocalPublisher(a.cfg.Output), nil
	}

	s3p, err := publish.NewS3Publisher(ctx, publish.S3Options{
		Bucket:    a.cfg.Bucket,
		Region:    a.cfg.Region,
		Prefix:    a.cfg.Prefix,
		Expiry:    a.cfg.LinkExpiry,
		Endpoint:  a.cfg.Endpoint,
		PathStyle: a.cfg.PathStyle,
	})
	if err != nil {
		return nil, err
	}
	return s3p, nil
}

func (a *app) pipeline(pub publish.Publisher, opts ...pipeline.Option) *pipeline.Pipeline {
	dl := downloader.New(a.client, a.scraper, downloader.Options{
		Headers: downloader.DefaultHeaders(util.PickUserAgent(a.cfg.UserAgent), a.cfg.Referer),
		Timeout: a.cfg.ImageTimeout,
		Logger:  a.log,
	})

	opts = append([]pipeline.Option{pipeline.WithLogger(a.log)}, opts...)

	return pipeline.New(a.scraper, dl, pub, pipeline.Config{
		ScratchDir:     a.cfg.ScratchDir,
		ChapterWorkers: a.cfg.ChapterWorkers,
		PageSizes:      a.cfg.PageSizes,
	}, opts...)
}

func printConfigSource(w io.Writer, used string) {
	if used != "" {
		_, _ = fmt.Fprintf(w, "Config file: %s\n", used)
	}
}
