// Package pipeline drives the four stages in order: intake, OCR, assembly,
// enhancement. Progress is checkpointed per stage so an interrupted run
// resumes after the last completed stage.
package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/lucidpress/bindery/internal/assemble"
	"github.com/lucidpress/bindery/internal/config"
	"github.com/lucidpress/bindery/internal/embedding"
	"github.com/lucidpress/bindery/internal/enhance"
	"github.com/lucidpress/bindery/internal/intake"
	"github.com/lucidpress/bindery/internal/models"
	"github.com/lucidpress/bindery/internal/ocr"
	"github.com/lucidpress/bindery/internal/state"
)

// Pipeline holds the stage dependencies for one book.
type Pipeline struct {
	cfg      *config.Config
	store    *state.Store
	engine   ocr.Engine
	embedder embedding.Embedder
	logger   *zap.Logger
}

// New creates a pipeline.
func New(cfg *config.Config, store *state.Store, engine ocr.Engine, embedder embedding.Embedder, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		store:    store,
		engine:   engine,
		embedder: embedder,
		logger:   logger,
	}
}

// Run executes all stages from the book's recorded state onward. With force,
// the recorded state is cleared first and every stage runs again. A stage
// failure aborts the run and leaves the recorded state at the last completed
// stage.
func (p *Pipeline) Run(ctx context.Context, force bool) error {
	bookID := p.cfg.Book.ID
	if force {
		if err := p.store.Reset(ctx, bookID); err != nil {
			return err
		}
	}
	rec, err := p.store.Get(ctx, bookID)
	if err != nil {
		return err
	}
	if rec.Stage == models.StageEnhancementComplete {
		p.logger.Info("book already fully processed, nothing to do",
			zap.String("book", bookID))
		return nil
	}
	p.logger.Info("starting pipeline",
		zap.String("book", bookID),
		zap.String("run", rec.RunID),
		zap.String("resume_from", string(rec.Stage)))

	// Intake runs every time: later stages need the validated page list, and
	// rescanning is cheap relative to OCR.
	report, err := intake.Scan(p.cfg.Paths.SourceDir, p.cfg.Intake)
	if err != nil {
		return fmt.Errorf("intake: %w", err)
	}
	if !rec.Stage.Reached(models.StageValidated) {
		if err := p.store.Advance(ctx, rec, models.StageValidated); err != nil {
			return err
		}
		p.logger.Info("intake complete", zap.Int("pages", len(report.Pages)))
	}

	var results []models.OCRResult
	if rec.Stage.Reached(models.StageOcrComplete) {
		results, err = ocr.LoadResults(p.cfg)
		if err != nil {
			return fmt.Errorf("load ocr results: %w", err)
		}
		p.logger.Info("reusing OCR results", zap.Int("pages", len(results)))
	} else {
		results, err = ocr.Run(ctx, p.cfg, report.Pages, p.engine, p.logger)
		if err != nil {
			return fmt.Errorf("ocr: %w", err)
		}
		if err := p.store.Advance(ctx, rec, models.StageOcrComplete); err != nil {
			return err
		}
	}

	var chapters []models.Chapter
	if rec.Stage.Reached(models.StageAssemblyComplete) {
		chapters, err = assemble.LoadChapters(p.cfg.MarkdownDir())
		if err != nil {
			return fmt.Errorf("load chapters: %w", err)
		}
		p.logger.Info("reusing assembled chapters", zap.Int("chapters", len(chapters)))
	} else {
		book, err := assemble.Run(p.cfg, results, p.logger)
		if err != nil {
			return fmt.Errorf("assemble: %w", err)
		}
		chapters = book.Chapters
		if err := p.store.Advance(ctx, rec, models.StageAssemblyComplete); err != nil {
			return err
		}
	}

	result, err := enhance.Run(ctx, p.cfg, chapters, p.embedder, p.logger)
	if err != nil {
		return fmt.Errorf("enhance: %w", err)
	}
	if err := p.store.Advance(ctx, rec, models.StageEnhancementComplete); err != nil {
		return err
	}

	p.logger.Info("pipeline complete",
		zap.String("book", bookID),
		zap.Int("chapters", len(chapters)),
		zap.Int("terms", len(result.Terms)),
		zap.Int("links", result.LinksAdded))
	return nil
}

// Status returns the recorded state for the configured book.
func (p *Pipeline) Status(ctx context.Context) (*state.Record, error) {
	return p.store.Get(ctx, p.cfg.Book.ID)
}
