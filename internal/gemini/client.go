// Package gemini wraps the Gemini API for grounded, single-turn completions.
package gemini

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"

	"github.com/kalambet/ensiklopedia/internal/answer"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

var tracer = otel.Tracer("github.com/kalambet/ensiklopedia/internal/gemini")

// ErrEmptyText is returned when the model answers with no text.
var ErrEmptyText = errors.New("model returned no text")

// Generator is the subset of the genai Models service used here.
type Generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Completion is a model answer with the web pages it was grounded on.
type Completion struct {
	Text    string
	Sources []answer.Source
}

// Client sends queries to Gemini with Google Search grounding enabled.
type Client struct {
	models Generator
	model  string
}

// New creates a Client backed by the Gemini API.
func New(ctx context.Context, apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return NewWithGenerator(gc.Models, model), nil
}

// NewWithGenerator creates a Client over an arbitrary Generator (for testing).
func NewWithGenerator(g Generator, model string) *Client {
	if model == "" {
		model = DefaultModel
	}
	return &Client{models: g, model: model}
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// Complete asks query under systemPrompt and returns the text and its
// grounding sources.
func (c *Client) Complete(ctx context.Context, systemPrompt, query string) (Completion, error) {
	ctx, span := tracer.Start(ctx, "gemini.generate_content", trace.WithAttributes(
		attribute.String("gen_ai.operation.name", "generate_content"),
		attribute.String("gen_ai.provider.name", "gemini"),
		attribute.String("gen_ai.request.model", c.model),
	))
	defer span.End()

	cfg := &genai.GenerateContentConfig{
		Tools: []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
	}
	if systemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(query), cfg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Completion{}, fmt.Errorf("generating content: %w", err)
	}
	if resp == nil || resp.Text() == "" {
		span.SetStatus(codes.Error, ErrEmptyText.Error())
		return Completion{}, ErrEmptyText
	}

	if u := resp.UsageMetadata; u != nil {
		span.SetAttributes(
			attribute.Int("gen_ai.usage.input_tokens", int(u.PromptTokenCount)),
			attribute.Int("gen_ai.usage.output_tokens", int(u.CandidatesTokenCount)),
		)
	}

	return Completion{Text: resp.Text(), Sources: groundingSources(resp)}, nil
}

// groundingSources collects the web sources of the first candidate.
func groundingSources(resp *genai.GenerateContentResponse) []answer.Source {
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return nil
	}
	gm := resp.Candidates[0].GroundingMetadata
	if gm == nil {
		return nil
	}
	var refs []answer.Source
	for _, ch := range gm.GroundingChunks {
		if ch == nil || ch.Web == nil {
			continue
		}
		refs = append(refs, answer.Source{URI: ch.Web.URI, Title: ch.Web.Title})
	}
	return answer.NormalizeSources(refs)
}
