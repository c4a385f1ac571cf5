package narrative

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/datavex/intel-cli/pkg/anthropic"
)

const narrativeSystemPrompt = `You are a sales intelligence analyst. Given a scored company evaluation,
write a short narrative for an account executive. Respond with ONLY a JSON object:
{
  "summary": "<2-3 sentence plain-language summary of the opportunity>",
  "rationale": ["<short bullet tying a signal to the score>", ...],
  "recommended_action": "<one concrete next step>"
}
Ground every statement in the provided signals. Do not invent facts.`

// ClaudeOptions configures the model-backed generator.
type ClaudeOptions struct {
	Model string
	// Timeout bounds each attempt. Default: 30s.
	Timeout time.Duration
	// MaxAttempts is the number of model calls before falling back to the
	// rule-based generator. Default: 2.
	MaxAttempts int
}

// ClaudeGenerator narrates evaluations with an Anthropic model. Any failure
// to obtain valid JSON within the attempt budget degrades to the rules
// generator rather than failing the scan.
type ClaudeGenerator struct {
	client   anthropic.Client
	opts     ClaudeOptions
	fallback *RulesGenerator
}

// NewClaudeGenerator creates a generator backed by client.
func NewClaudeGenerator(client anthropic.Client, opts ClaudeOptions) *ClaudeGenerator {
	if opts.Model == "" {
		opts.Model = "claude-haiku-4-5-20251001"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 2
	}
	return &ClaudeGenerator{client: client, opts: opts, fallback: NewRulesGenerator()}
}

func (g *ClaudeGenerator) Generate(ctx context.Context, in Input) (*Result, error) {
	prompt, err := buildPrompt(in)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= g.opts.MaxAttempts; attempt++ {
		n, err := g.tryOnce(ctx, prompt)
		if err == nil {
			return &Result{Narrative: *n, Source: SourceModel}, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		zap.L().Warn("narrative: model attempt failed",
			zap.String("company", in.Meta.Key),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}

	zap.L().Warn("narrative: falling back to rule-based generation",
		zap.String("company", in.Meta.Key),
		zap.Error(lastErr),
	)
	return g.fallback.Generate(ctx, in)
}

func (g *ClaudeGenerator) tryOnce(ctx context.Context, prompt string) (*Narrative, error) {
	ctx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()

	resp, err := g.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     g.opts.Model,
		MaxTokens: 1024,
		System:    []anthropic.SystemBlock{{Text: narrativeSystemPrompt}},
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return nil, err
	}
	resp.Usage.LogCost(g.opts.Model, "narrative")

	var n Narrative
	if err := json.Unmarshal([]byte(cleanJSON(resp.Text())), &n); err != nil {
		return nil, eris.Wrap(err, "narrative: parse model response")
	}
	if n.Summary == "" {
		return nil, eris.New("narrative: model response missing summary")
	}
	return &n, nil
}

func buildPrompt(in Input) (string, error) {
	data, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return "", eris.Wrap(err, "narrative: marshal input")
	}
	return fmt.Sprintf("Evaluation for %s:\n\n%s", in.Meta.Name, data), nil
}

// cleanJSON strips markdown fences and extracts the JSON object.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
