// Command riyaaz is a spoken-Hindi practice trainer for the terminal:
// spaced-repetition review of vocabulary, shadowing practice against native
// audio, and vocabulary management.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/riyaazhq/riyaaz/internal/config"
	"github.com/riyaazhq/riyaaz/internal/health"
	"github.com/riyaazhq/riyaaz/internal/lessons"
	"github.com/riyaazhq/riyaaz/internal/observe"
	"github.com/riyaazhq/riyaaz/internal/review"
	"github.com/riyaazhq/riyaaz/internal/vocab"
	"github.com/riyaazhq/riyaaz/pkg/provider/stt"
	"github.com/riyaazhq/riyaaz/pkg/provider/stt/whisper"
	"github.com/riyaazhq/riyaaz/pkg/provider/translate"
	translateanyllm "github.com/riyaazhq/riyaaz/pkg/provider/translate/anyllm"
	translatemock "github.com/riyaazhq/riyaaz/pkg/provider/translate/mock"
	"github.com/riyaazhq/riyaaz/pkg/provider/tts"
	"github.com/riyaazhq/riyaaz/pkg/provider/tts/coqui"
)

const usageText = `riyaaz — spoken-Hindi practice trainer

Usage:
  riyaaz [flags] [mode] [args]

Modes:
  review              run a review session over all due items (default)
  shadow <phrase>     one-off shadowing practice for a phrase
  add <word>          add a word to the vocabulary
  stats               show vocabulary statistics
  import <url> <vtt>  import a subtitle file as lesson segments
  sources             list imported lesson sources
  delete <id>         remove an item

Flags:
`

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "riyaaz.yaml", "path to the YAML configuration file")
	meaning := flag.String("meaning", "", "translation stored with the add mode")
	title := flag.String("title", "", "video title stored with the import mode")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usageText)
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "riyaaz: %v\n", err)
		return 1
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	telemetryShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{})
	if err != nil {
		slog.Error("telemetry init failed", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetryShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	store, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		slog.Error("store init failed", "driver", cfg.Store.Driver, "err", err)
		return 1
	}
	defer closeStore()

	// Metrics endpoint, when configured. It lives for the duration of the
	// session and is torn down once the mode finishes.
	g, gctx := errgroup.WithContext(ctx)
	if cfg.Server.MetricsAddr != "" {
		srv := metricsServer(cfg.Server.MetricsAddr, store)
		g.Go(func() error {
			slog.Info("metrics endpoint listening", "addr", cfg.Server.MetricsAddr)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	code := dispatch(ctx, cfg, store, flag.Args(), modeFlags{meaning: *meaning, title: *title})

	cancel()
	if err := g.Wait(); err != nil {
		slog.Warn("metrics endpoint error", "err", err)
	}
	return code
}

// loadConfig loads the YAML config, falling back to built-in defaults when
// no file exists so the trainer works out of the box.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "riyaaz: no config at %q, using defaults (sqlite riyaaz.db, no speech providers)\n", path)
		return &config.Config{}, nil
	}
	return cfg, err
}

// modeFlags carries the flag values individual modes consume.
type modeFlags struct {
	meaning string
	title   string
}

// dispatch runs the selected mode and returns the process exit code.
func dispatch(ctx context.Context, cfg *config.Config, store vocab.Store, args []string, flags modeFlags) int {
	mode := "review"
	if len(args) > 0 {
		mode = args[0]
	}

	var err error
	switch mode {
	case "review":
		err = runReview(ctx, cfg, store)
	case "shadow":
		err = runShadow(ctx, cfg, store, strings.Join(args[1:], " "))
	case "add":
		err = runAdd(ctx, cfg, store, strings.Join(args[1:], " "), flags.meaning)
	case "stats":
		err = runStats(ctx, store)
	case "import":
		err = runImport(ctx, cfg, store, args[1:], flags.title)
	case "sources":
		err = runSources(ctx, store)
	case "delete":
		err = runDelete(ctx, store, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "riyaaz: unknown mode %q\n", mode)
		flag.Usage()
		return 2
	}

	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "\nriyaaz: interrupted")
		return 1
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "riyaaz: %v\n", err)
		return 1
	}
	return 0
}

// newRunner builds a review Runner with the configured speech stack.
func newRunner(cfg *config.Config, store vocab.Store) (*review.Runner, *terminalPrompter, error) {
	prompter := newTerminalPrompter(os.Stdin, os.Stdout)

	synth, err := buildSynthesizer(cfg.Providers.TTS)
	if err != nil {
		return nil, nil, err
	}
	transcriber, err := buildTranscriber(cfg.Providers.STT)
	if err != nil {
		return nil, nil, err
	}

	var rec review.Recorder
	if transcriber != nil {
		rec = newMicRecorder(os.Stdin, os.Stdout)
	}

	r, err := review.NewRunner(store, prompter,
		review.WithScheduler(cfg.SRS.Params()),
		review.WithThresholds(cfg.Scoring.Thresholds()),
		review.WithSpeech(synth, rec, transcriber),
	)
	if err != nil {
		return nil, nil, err
	}
	return r, prompter, nil
}

func runReview(ctx context.Context, cfg *config.Config, store vocab.Store) error {
	r, prompter, err := newRunner(cfg, store)
	if err != nil {
		return err
	}

	sum, err := r.Run(ctx)
	if err != nil {
		return err
	}
	prompter.printSummary(sum)
	for _, ie := range sum.Errors {
		slog.Warn("item skipped during session", "item_id", ie.ItemID, "stage", ie.Stage, "err", ie.Err)
	}
	return nil
}

func runShadow(ctx context.Context, cfg *config.Config, store vocab.Store, text string) error {
	if strings.TrimSpace(text) == "" {
		return errors.New("shadow mode needs a phrase: riyaaz shadow <phrase>")
	}
	r, prompter, err := newRunner(cfg, store)
	if err != nil {
		return err
	}

	res, err := r.RunShadow(ctx, text)
	if err != nil {
		return err
	}
	if res.Added {
		fmt.Fprintf(prompter.out, "Added to vocabulary as item %d.\n", res.ItemID)
	}
	return nil
}

func runAdd(ctx context.Context, cfg *config.Config, store vocab.Store, content, meaning string) error {
	if strings.TrimSpace(content) == "" {
		return errors.New("add mode needs a word: riyaaz add <word>")
	}

	// Fill in the translation from the configured translator when the
	// learner did not supply one.
	if meaning == "" {
		tr, err := buildTranslator(cfg.Providers.Translate)
		if err != nil {
			return err
		}
		if tr != nil {
			m, err := tr.Translate(ctx, content, "hi", "en")
			if err != nil {
				slog.Warn("translation unavailable", "err", err)
			} else {
				meaning = m
			}
		}
	}

	id, err := store.AddItem(ctx, vocab.Draft{
		Kind:        vocab.KindWord,
		Content:     content,
		Annotations: vocab.Annotations{Meaning: meaning},
	})
	if err != nil {
		return err
	}
	observe.DefaultMetrics().ItemsAdded.Add(ctx, 1)
	fmt.Printf("Added item %d: %s\n", id, content)
	return nil
}

func runImport(ctx context.Context, cfg *config.Config, store vocab.Store, args []string, title string) error {
	if len(args) != 2 {
		return errors.New("import mode needs a source and a file: riyaaz import <url> <subtitles.vtt>")
	}
	srcURL, path := args[0], args[1]

	tr, err := buildTranslator(cfg.Providers.Translate)
	if err != nil {
		return err
	}
	var opts []lessons.Option
	if tr != nil {
		opts = append(opts, lessons.WithTranslator(tr))
	}
	im, err := lessons.NewImporter(store, opts...)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	n, err := im.ImportWebVTT(ctx, lessons.Source{URL: srcURL, Title: title}, f)
	if n > 0 {
		observe.DefaultMetrics().ItemsAdded.Add(ctx, int64(n))
		fmt.Printf("Imported %d lesson segments from %s\n", n, path)
	}
	return err
}

func runStats(ctx context.Context, store vocab.Store) error {
	stats, err := store.Statistics(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Items:     %d\n", stats.Total)
	fmt.Printf("Due today: %d\n", stats.DueToday)
	if len(stats.StageDistribution) > 0 {
		fmt.Println("By stage:")
		stages := make([]int, 0, len(stats.StageDistribution))
		for s := range stats.StageDistribution {
			stages = append(stages, s)
		}
		sort.Ints(stages)
		for _, s := range stages {
			fmt.Printf("  stage %d: %d\n", s, stats.StageDistribution[s])
		}
	}
	return nil
}

func runSources(ctx context.Context, store vocab.Store) error {
	sources, err := store.ListSources(ctx)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		fmt.Println("No lesson sources imported yet.")
		return nil
	}
	for _, src := range sources {
		fmt.Printf("%s\n  %s: %d segments, first studied %s\n",
			src.SourceTitle, src.SourceURL, src.SegmentCount, src.FirstStudied.Format("2006-01-02"))
	}
	return nil
}

func runDelete(ctx context.Context, store vocab.Store, args []string) error {
	if len(args) != 1 {
		return errors.New("delete mode needs an id: riyaaz delete <id>")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid item id %q", args[0])
	}
	if err := store.DeleteItem(ctx, id); err != nil {
		return err
	}
	fmt.Printf("Deleted item %d (if it existed).\n", id)
	return nil
}

// openStore builds the configured store backend and returns it together with
// its cleanup function.
func openStore(ctx context.Context, sc config.StoreConfig) (vocab.Store, func(), error) {
	driver := sc.Driver
	if driver == "" {
		driver = config.DriverSQLite
	}

	switch driver {
	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, sc.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		store := vocab.NewPostgresStore(pool)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, pool.Close, nil

	case config.DriverSQLite:
		path := sc.Path
		if path == "" {
			path = "riyaaz.db"
		}
		store, err := vocab.OpenSQLite(path)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				slog.Warn("sqlite close error", "err", err)
			}
		}, nil

	case config.DriverMemory:
		return vocab.NewMemStore(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", driver)
}

// buildTranscriber constructs the configured STT backend, or nil when none
// is configured.
func buildTranscriber(entry config.ProviderEntry) (stt.Transcriber, error) {
	switch entry.Name {
	case "":
		return nil, nil
	case "whisper":
		var opts []whisper.Option
		if entry.Model != "" {
			opts = append(opts, whisper.WithModel(entry.Model))
		}
		if entry.Language != "" {
			opts = append(opts, whisper.WithLanguage(entry.Language))
		}
		return whisper.New(entry.BaseURL, opts...)
	case "whisper-native":
		var opts []whisper.NativeOption
		if entry.Language != "" {
			opts = append(opts, whisper.WithNativeLanguage(entry.Language))
		}
		return whisper.NewNative(entry.Model, opts...)
	}
	return nil, fmt.Errorf("unknown stt provider %q", entry.Name)
}

// buildSynthesizer constructs the configured TTS backend, or nil when none
// is configured.
func buildSynthesizer(entry config.ProviderEntry) (tts.Synthesizer, error) {
	switch entry.Name {
	case "":
		return nil, nil
	case "coqui":
		var opts []coqui.Option
		if entry.Language != "" {
			opts = append(opts, coqui.WithLanguage(entry.Language))
		}
		return coqui.New(entry.BaseURL, opts...)
	}
	return nil, fmt.Errorf("unknown tts provider %q", entry.Name)
}

// buildTranslator constructs the configured translator, or nil when none is
// configured. Any name other than "mock" selects an LLM vendor via the
// any-llm wrapper.
func buildTranslator(entry config.ProviderEntry) (translate.Translator, error) {
	switch entry.Name {
	case "":
		return nil, nil
	case "mock":
		return &translatemock.Translator{}, nil
	}

	var opts []anyllmlib.Option
	if entry.APIKey != "" {
		opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
	}
	if entry.BaseURL != "" {
		opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
	}
	tr, err := translateanyllm.New(entry.Name, entry.Model, opts...)
	if err != nil {
		return nil, fmt.Errorf("build translator: %w", err)
	}
	return tr, nil
}

// metricsServer serves Prometheus metrics plus liveness and readiness
// probes, the latter backed by a store round trip.
func metricsServer(addr string, store vocab.Store) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	health.New(health.Checker{
		Name: "store",
		Check: func(ctx context.Context) error {
			_, err := store.Statistics(ctx)
			return err
		},
	}).Register(mux)

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
