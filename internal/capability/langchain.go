package capability

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/atlasd/internal/answer"
	"github.com/fyrsmithlabs/atlasd/internal/config"
)

var tracer = otel.Tracer("atlasd.capability")

const systemPreamble = `You answer questions about building occupancy using only the evidence provided. ` +
	`If the evidence does not contain the answer, say so plainly. Be concise.`

// LangchainClient is the langchaingo-backed Client implementation.
type LangchainClient struct {
	model   llms.Model
	name    string
	timeout time.Duration
	limiter *rate.Limiter
	logger  *zap.Logger
}

// New builds the Client for the configured provider.
func New(cfg config.LLMConfig, logger *zap.Logger) (*LangchainClient, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		model llms.Model
		err   error
	)
	switch cfg.Provider {
	case "ollama", "":
		model, err = ollama.New(
			ollama.WithModel(cfg.Model),
			ollama.WithServerURL(cfg.BaseURL),
		)
	case "openai":
		model, err = openai.New(
			openai.WithBaseURL(cfg.BaseURL),
			openai.WithToken(cfg.APIKey.Value()),
			openai.WithModel(cfg.Model),
		)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("creating %s client: %w", cfg.Provider, err)
	}

	var limiter *rate.Limiter
	if cfg.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), 1)
	}

	logger.Info("capability client ready",
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.Model),
	)
	return &LangchainClient{
		model:   model,
		name:    cfg.Model,
		timeout: time.Duration(cfg.Timeout),
		limiter: limiter,
		logger:  logger,
	}, nil
}

// Generate runs one bounded generation call. It never retries.
func (c *LangchainClient) Generate(ctx context.Context, prompt string, passages []answer.Passage) (string, error) {
	ctx, span := tracer.Start(ctx, "LangchainClient.Generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("model", c.name),
		attribute.Int("passages", len(passages)),
	)

	if c.limiter != nil {
		if !c.limiter.Allow() {
			err := &CapabilityError{Kind: KindRateLimited, Detail: "client-side rate limit exceeded"}
			span.SetStatus(codes.Error, err.Error())
			return "", err
		}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := llms.GenerateFromSinglePrompt(ctx, c.model, buildPrompt(prompt, passages),
		llms.WithTemperature(0.2),
	)
	if err != nil {
		cerr := classify(err)
		span.RecordError(cerr)
		span.SetStatus(codes.Error, cerr.Error())
		return "", cerr
	}

	c.logger.Debug("generation complete",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("prompt_passages", len(passages)),
	)
	return strings.TrimSpace(out), nil
}

// buildPrompt folds the grounding passages into a single prompt, each tagged
// with its provenance so the model can cite sources.
func buildPrompt(prompt string, passages []answer.Passage) string {
	if len(passages) == 0 {
		return systemPreamble + "\n\n" + prompt
	}

	var b strings.Builder
	b.WriteString(systemPreamble)
	b.WriteString("\n\nEvidence:\n")
	for i, p := range passages {
		fmt.Fprintf(&b, "%d. (%s/%s) %s\n", i+1, p.Source, p.ChunkID, p.Content)
	}
	b.WriteString("\n")
	b.WriteString(prompt)
	return b.String()
}

func classify(err error) *CapabilityError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &CapabilityError{Kind: KindTimeout, Detail: "generation deadline exceeded", cause: err}
	case errors.Is(err, context.Canceled):
		return &CapabilityError{Kind: KindTimeout, Detail: "generation canceled", cause: err}
	case looksRateLimited(err):
		return &CapabilityError{Kind: KindRateLimited, Detail: err.Error(), cause: err}
	default:
		return &CapabilityError{Kind: KindProviderUnavailable, Detail: err.Error(), cause: err}
	}
}

// looksRateLimited sniffs provider push-back out of the error text; the
// langchaingo clients don't expose status codes uniformly.
func looksRateLimited(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "rate limit")
}
