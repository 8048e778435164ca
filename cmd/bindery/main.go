// Package main is the bindery CLI entry point.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/lucidpress/bindery/internal/assemble"
	"github.com/lucidpress/bindery/internal/book"
	"github.com/lucidpress/bindery/internal/config"
	"github.com/lucidpress/bindery/internal/embedding"
	"github.com/lucidpress/bindery/internal/enhance"
	"github.com/lucidpress/bindery/internal/export"
	"github.com/lucidpress/bindery/internal/intake"
	"github.com/lucidpress/bindery/internal/ocr"
	"github.com/lucidpress/bindery/internal/pipeline"
	"github.com/lucidpress/bindery/internal/search"
	"github.com/lucidpress/bindery/internal/state"
	"github.com/lucidpress/bindery/internal/watcher"
	"github.com/lucidpress/bindery/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/bindery/config.yaml"

// loadConfig loads config from path. When path is the default, a config.yaml
// in the current directory takes precedence, so running bindery from a book
// project directory picks up the project's config.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "run":
		runPipeline()
	case "intake":
		runIntake()
	case "ocr":
		runOCR()
	case "assemble":
		runAssemble()
	case "enhance":
		runEnhance()
	case "build":
		runBuild()
	case "search":
		runSearch()
	case "export":
		runExport()
	case "status":
		runStatus()
	case "watch":
		runWatch()
	case "version", "--version", "-v":
		fmt.Printf("bindery version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// setup parses common flags, loads config, and builds the logger. Every
// subcommand starts here.
func setup(fs *flag.FlagSet, args []string) (*config.Config, *zap.Logger) {
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(args)

	cfg, resolvedPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.Info("config loaded",
		zap.String("config_path", resolvedPath),
		zap.String("book", cfg.Book.ID),
		zap.Bool("debug", debugMode))
	return cfg, logger
}

// Components holds the shared pipeline dependencies.
type Components struct {
	Store    *state.Store
	Engine   ocr.Engine
	Embedder embedding.Embedder
}

// Close releases component resources.
func (c *Components) Close() {
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Store != nil {
		_ = c.Store.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := state.NewStore(cfg.Paths.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize state store: %w", err)
	}

	var embedder embedding.Embedder
	onnxEmbedder, err := embedding.NewONNXEmbedder(
		cfg.Embedding.ModelPath,
		cfg.Embedding.Dimensions,
		cfg.Embedding.MaxTokens,
		cfg.Embedding.CacheSize,
	)
	if err != nil {
		logger.Warn("ONNX embedder unavailable, using deterministic fallback", zap.Error(err))
		embedder = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	} else {
		embedder = onnxEmbedder
	}

	engine := ocr.NewTesseractEngine(cfg.OCR.TesseractPath)
	if !engine.Available() {
		logger.Warn("tesseract binary not found; OCR will fail unless pages are PDFs with a text layer",
			zap.String("path", cfg.OCR.TesseractPath))
	}

	return &Components{Store: store, Engine: engine, Embedder: embedder}, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runPipeline() {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	force := fs.Bool("force", false, "discard recorded progress and rerun every stage")
	cfg, logger := setup(fs, os.Args[2:])
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx, cancel := signalContext()
	defer cancel()

	p := pipeline.New(cfg, components.Store, components.Engine, components.Embedder, logger)
	if err := p.Run(ctx, *force); err != nil {
		logger.Fatal("Pipeline failed", zap.Error(err))
	}
}

func runIntake() {
	fs := flag.NewFlagSet("intake", flag.ExitOnError)
	cfg, logger := setup(fs, os.Args[2:])
	defer logger.Sync()

	report, err := intake.Scan(cfg.Paths.SourceDir, cfg.Intake)
	if err != nil {
		logger.Fatal("Intake failed", zap.Error(err))
	}
	fmt.Printf("Validated %d pages in %s\n", len(report.Pages), cfg.Paths.SourceDir)
	for _, page := range report.Pages {
		fmt.Printf("  %3d  %s\n", page.Sequence, filepath.Base(page.Path))
	}
	if len(report.LooseNames) > 0 {
		fmt.Printf("Loose filenames accepted: %s\n", strings.Join(report.LooseNames, ", "))
	}
}

func runOCR() {
	fs := flag.NewFlagSet("ocr", flag.ExitOnError)
	cfg, logger := setup(fs, os.Args[2:])
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx, cancel := signalContext()
	defer cancel()

	report, err := intake.Scan(cfg.Paths.SourceDir, cfg.Intake)
	if err != nil {
		logger.Fatal("Intake failed", zap.Error(err))
	}
	results, err := ocr.Run(ctx, cfg, report.Pages, components.Engine, logger)
	if err != nil {
		logger.Fatal("OCR failed", zap.Error(err))
	}
	fmt.Printf("Recognized %d pages into %s\n", len(results), cfg.OCRDir())
}

func runAssemble() {
	fs := flag.NewFlagSet("assemble", flag.ExitOnError)
	cfg, logger := setup(fs, os.Args[2:])
	defer logger.Sync()

	results, err := ocr.LoadResults(cfg)
	if err != nil {
		logger.Fatal("No OCR results to assemble, run the ocr command first", zap.Error(err))
	}
	b, err := assemble.Run(cfg, results, logger)
	if err != nil {
		logger.Fatal("Assembly failed", zap.Error(err))
	}
	fmt.Printf("Assembled %d chapters into %s\n", len(b.Chapters), cfg.SrcDir())
}

func runEnhance() {
	fs := flag.NewFlagSet("enhance", flag.ExitOnError)
	cfg, logger := setup(fs, os.Args[2:])
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx, cancel := signalContext()
	defer cancel()

	chapters, err := assemble.LoadChapters(cfg.MarkdownDir())
	if err != nil {
		logger.Fatal("No assembled chapters, run the assemble command first", zap.Error(err))
	}
	result, err := enhance.Run(ctx, cfg, chapters, components.Embedder, logger)
	if err != nil {
		logger.Fatal("Enhancement failed", zap.Error(err))
	}
	fmt.Printf("Extracted %d terms, added %d cross-reference links\n",
		len(result.Terms), result.LinksAdded)
}

func runBuild() {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	cfg, logger := setup(fs, os.Args[2:])
	defer logger.Sync()

	ctx, cancel := signalContext()
	defer cancel()

	if err := book.Build(ctx, cfg, logger); err != nil {
		logger.Fatal("Build failed", zap.Error(err))
	}
	fmt.Printf("Book built in %s\n", filepath.Join(cfg.InstanceDir(), "book"))
}

// searchArgsReorder moves flags ahead of the query words so that
// "bindery search chiaroscuro -limit 5" parses the same as
// "bindery search -limit 5 chiaroscuro".
func searchArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// buildSearchQuery joins positional args into one query string.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	limit := fs.Int("limit", 10, "number of results")
	cfg, logger := setup(fs, searchArgsReorder(os.Args[2:]))
	defer logger.Sync()

	query := buildSearchQuery(fs.Args())
	if query == "" {
		fmt.Println("Usage: bindery search [flags] <query>")
		os.Exit(1)
	}

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	engine, err := search.Open(cfg, components.Embedder, logger)
	if err != nil {
		logger.Fatal("Failed to open search indexes", zap.Error(err))
	}
	defer engine.Close()

	ctx, cancel := signalContext()
	defer cancel()

	results, err := engine.Search(ctx, query, *limit)
	if err != nil {
		logger.Fatal("Search failed", zap.Error(err))
	}
	if len(results) == 0 {
		fmt.Println("No results.")
		return
	}
	for i, r := range results {
		fmt.Printf("%2d. [%-7s] %-30s score=%.3f (keyword=%.3f semantic=%.3f)\n",
			i+1, r.Kind, r.Title, r.Score, r.KeywordScore, r.SemanticScore)
	}
}

func runExport() {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	out := fs.String("out", "", "output path (default: <data>/<book-id>/terms.xlsx)")
	cfg, logger := setup(fs, os.Args[2:])
	defer logger.Sync()

	terms, err := enhance.LoadTermsJSON(enhance.TermsJSONPath(cfg))
	if err != nil {
		logger.Fatal("No terms to export, run the enhance command first", zap.Error(err))
	}
	path := *out
	if path == "" {
		path = filepath.Join(cfg.BookDataDir(), "terms.xlsx")
	}
	if err := export.WriteTermsXLSX(path, terms); err != nil {
		logger.Fatal("Export failed", zap.Error(err))
	}
	fmt.Printf("Exported %d terms to %s\n", len(terms), path)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	cfg, logger := setup(fs, os.Args[2:])
	defer logger.Sync()

	store, err := state.NewStore(cfg.Paths.DatabasePath)
	if err != nil {
		logger.Fatal("Failed to open state store", zap.Error(err))
	}
	defer store.Close()

	ctx, cancel := signalContext()
	defer cancel()

	rec, err := store.Get(ctx, cfg.Book.ID)
	if err != nil {
		logger.Fatal("Failed to load state", zap.Error(err))
	}
	fmt.Printf("Book:  %s (%s)\n", cfg.Book.ID, cfg.Book.Title)
	fmt.Printf("Stage: %s\n", rec.Stage)
	fmt.Printf("Run:   %s\n", rec.RunID)
	if !rec.UpdatedAt.IsZero() {
		fmt.Printf("Updated: %s\n", rec.UpdatedAt.Format("2006-01-02 15:04:05"))
	}

	history, err := store.History(ctx, cfg.Book.ID)
	if err == nil && len(history) > 0 {
		fmt.Println("History:")
		for _, h := range history {
			fmt.Printf("  %s  %s\n", h.UpdatedAt.Format("2006-01-02 15:04:05"), h.Stage)
		}
	}
}

func runWatch() {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	cfg, logger := setup(fs, os.Args[2:])
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx, cancel := signalContext()
	defer cancel()

	p := pipeline.New(cfg, components.Store, components.Engine, components.Embedder, logger)
	rerun := func() {
		logger.Info("source changed, rerunning pipeline")
		if err := p.Run(ctx, true); err != nil {
			logger.Error("pipeline rerun failed", zap.Error(err))
		}
	}

	opts := []watcher.Option{watcher.WithLogger(logger)}
	if cfg.Watch.DebounceMillis > 0 {
		opts = append(opts, watcher.WithDebounce(cfg.Watch.Debounce()))
	}
	w := watcher.New(cfg.Paths.SourceDir, []string{"png", "jpg", "jpeg", "tif", "tiff", "pdf"}, rerun, opts...)
	if err := w.Start(ctx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	defer w.Stop()

	fmt.Printf("Watching %s, press Ctrl-C to stop\n", cfg.Paths.SourceDir)
	<-ctx.Done()
}

func printUsage() {
	fmt.Println(`bindery - scanned textbook to mdBook pipeline

Usage:
  bindery run [flags]        Run all stages (intake, ocr, assemble, enhance)
  bindery intake [flags]     Validate and list source page images
  bindery ocr [flags]        Recognize page images into text
  bindery assemble [flags]   Assemble OCR text into markdown chapters
  bindery enhance [flags]    Build glossary, embeddings, and cross-references
  bindery build [flags]      Render the book to HTML (mdbook or goldmark)
  bindery search [flags] <query>  Hybrid search over chapters and glossary
  bindery export [flags]     Export the glossary to xlsx
  bindery status [flags]     Show pipeline state for the configured book
  bindery watch [flags]      Re-run the pipeline when source images change
  bindery version            Show version
  bindery help               Show this help

Common Flags:
  --config string    Config file path (default: /usr/local/etc/bindery/config.yaml,
                     or ./config.yaml when present)
  --debug            Enable debug logging

Run Flags:
  --force            Discard recorded progress and rerun every stage

Search Flags:
  --limit int        Number of results (default: 10)

Export Flags:
  --out string       Output path (default: <data>/<book-id>/terms.xlsx)

Examples:
  bindery run
  bindery run --force
  bindery status
  bindery search "chiaroscuro"
  bindery export --out /tmp/terms.xlsx
  bindery watch`)
}
