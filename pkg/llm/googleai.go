package llm

import (
	"context"
	"errors"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"

	"chatrelay/pkg/logger"
)

// DefaultModel is the hosted model used when config does not name one.
const DefaultModel = "gemini-2.5-flash"

// GoogleAI talks to the hosted Gemini API. Construct one per process and
// inject it; the client handle is cheap to share across requests.
type GoogleAI struct {
	model   llms.Model
	name    string
	timeout time.Duration
}

// NewGoogleAI builds a client for the given API key and model name. The
// timeout bounds each Reply call; zero leaves the transport default.
func NewGoogleAI(ctx context.Context, apiKey, model string, timeout time.Duration) (*GoogleAI, error) {
	if apiKey == "" {
		return nil, errors.New("googleai: api key required")
	}
	if model == "" {
		model = DefaultModel
	}
	cl, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel(model),
	)
	if err != nil {
		return nil, err
	}
	return &GoogleAI{model: cl, name: model, timeout: timeout}, nil
}

// Reply sends the prior-turn history plus the new message and returns the
// model's text. History order is preserved; roles arrive already in the
// {user, model} vocabulary and map onto the SDK's human/AI message types.
func (g *GoogleAI) Reply(ctx context.Context, history []Turn, message string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	msgs := make([]llms.MessageContent, 0, len(history)+1)
	for _, t := range history {
		typ := llms.ChatMessageTypeHuman
		if t.Role == RoleModel {
			typ = llms.ChatMessageTypeAI
		}
		msgs = append(msgs, llms.TextParts(typ, t.Text))
	}
	msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeHuman, message))

	resp, err := g.model.GenerateContent(ctx, msgs)
	if err != nil {
		logger.Error("model_generate_failed", "model", g.name, "error", err)
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("model returned no choices")
	}
	return resp.Choices[0].Content, nil
}
