// Package search answers a query in every supported language at once and
// illustrates it with a single generated image.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/ensiklopedia/internal/answer"
	"github.com/kalambet/ensiklopedia/internal/gemini"
	"github.com/kalambet/ensiklopedia/internal/i18n"
	"github.com/kalambet/ensiklopedia/internal/prompts"
)

var tracer = otel.Tracer("github.com/kalambet/ensiklopedia/internal/search")

var (
	// ErrEmptyQuery is returned for a blank query before any network call.
	ErrEmptyQuery = errors.New("query is empty")
	// ErrEmptyCompletion is returned when a language comes back without text.
	ErrEmptyCompletion = errors.New("completion has no text")
)

// Completion is one model answer with its grounding sources.
type Completion = gemini.Completion

// Completer produces a grounded completion for one system prompt.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, query string) (Completion, error)
}

// ImageGenerator returns a base64-encoded image for a prompt.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// PromptSource supplies the system prompt for every language.
type PromptSource interface {
	SystemPrompts() (prompts.Set, error)
}

// Searcher runs the multi-language fan-out.
type Searcher struct {
	completer Completer
	images    ImageGenerator
	prompts   PromptSource
	now       func() time.Time
	logger    *slog.Logger
}

// New creates a Searcher. images may be nil to skip illustrations.
func New(completer Completer, images ImageGenerator, prompts PromptSource) *Searcher {
	return &Searcher{
		completer: completer,
		images:    images,
		prompts:   prompts,
		now:       time.Now,
		logger:    slog.Default(),
	}
}

// ImagePrompt is the illustration prompt for query.
func ImagePrompt(query string) string {
	return "An artistic, high-quality photograph suitable for an encyclopedia, depicting: " +
		query + ". Style: realistic, detailed, historical context."
}

// Search asks query in Indonesian, Arabic and English concurrently and
// fetches one image alongside. Any failing language fails the whole search;
// a failing image only leaves the illustration out.
func (s *Searcher) Search(ctx context.Context, query string) (*answer.MultiLanguage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	reqID := uuid.NewString()
	ctx, span := tracer.Start(ctx, "search", trace.WithAttributes(
		attribute.String("search.request_id", reqID),
		attribute.Int("search.query_length", len(query)),
	))
	defer span.End()
	logger := s.logger.With("request_id", reqID)

	sys, err := s.prompts.SystemPrompts()
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("loading system prompts: %w", err)
	}

	start := s.now()
	completions := make([]Completion, len(i18n.All))
	var image string

	g, gCtx := errgroup.WithContext(ctx)
	for i, lang := range i18n.All {
		g.Go(func() error {
			c, err := s.complete(gCtx, lang, sys.Get(lang), query)
			if err != nil {
				return err
			}
			completions[i] = c
			return nil
		})
	}
	if s.images != nil {
		g.Go(func() error {
			img, err := s.images.Generate(gCtx, ImagePrompt(query))
			if err != nil {
				logger.Warn("image generation failed", "error", err)
				return nil
			}
			image = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("search failed", "error", err)
		return nil, err
	}

	out := &answer.MultiLanguage{}
	for i, lang := range i18n.All {
		out.Set(lang, s.assemble(lang, completions[i], image, start))
	}
	logger.Info("search completed", "duration_ms", s.now().Sub(start).Milliseconds(), "image", image != "")
	return out, nil
}

func (s *Searcher) complete(ctx context.Context, lang i18n.Lang, systemPrompt, query string) (Completion, error) {
	ctx, span := tracer.Start(ctx, "search.complete", trace.WithAttributes(attribute.String("search.lang", string(lang))))
	defer span.End()

	c, err := s.completer.Complete(ctx, systemPrompt, query)
	if err == nil && strings.TrimSpace(c.Text) == "" {
		err = ErrEmptyCompletion
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Completion{}, fmt.Errorf("completing %s: %w", lang, err)
	}
	return c, nil
}

func (s *Searcher) assemble(lang i18n.Lang, c Completion, image string, at time.Time) answer.Structured {
	p := answer.Parse(c.Text)
	return answer.Structured{
		Text:           p.Text,
		Sources:        answer.NormalizeSources(c.Sources),
		Chart:          p.Chart,
		Map:            p.Map,
		KeyTerms:       p.KeyTerms,
		Timeline:       p.Timeline,
		Figures:        p.Figures,
		GeneratedImage: image,
		AccessDate:     i18n.LongDate(lang, at),
	}
}
