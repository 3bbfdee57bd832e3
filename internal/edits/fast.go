package edits

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/zenprocess/open-lovable-cf/internal/config"
	"github.com/zenprocess/open-lovable-cf/internal/errors"
	"github.com/zenprocess/open-lovable-cf/internal/logging"
	"github.com/zenprocess/open-lovable-cf/internal/sandbox"
)

// FastApplier sends the original file and the update snippet to an
// OpenAI-compatible fast-apply model and writes back its reply.
type FastApplier struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewFastApplier returns a FastApplier for cfg. An API key is required.
func NewFastApplier(cfg config.EditsConfig) (*FastApplier, error) {
	if cfg.APIKey == "" {
		return nil, errors.ConfigError("fast apply needs an API key", nil)
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	model := cfg.Model
	if model == "" {
		model = config.DefaultEditModel
	}

	return &FastApplier{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   model,
		timeout: cfg.Timeout.Duration,
	}, nil
}

func (f *FastApplier) Name() string {
	return "fast-apply"
}

// Apply merges in through the model.
func (f *FastApplier) Apply(ctx context.Context, exec sandbox.Executor, in Instruction) (string, error) {
	return applyWith(ctx, exec, in, func(ctx context.Context, original string) (string, error) {
		return f.merge(ctx, original, in)
	})
}

// Prompt builds the single user message sent to the model.
func Prompt(original string, in Instruction) string {
	return fmt.Sprintf("<instruction>%s</instruction>\n<code>%s</code>\n<update>%s</update>",
		in.Instructions, original, in.Update)
}

func (f *FastApplier) merge(ctx context.Context, original string, in Instruction) (string, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := f.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: f.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: Prompt(original, in)},
		},
	})
	if err != nil {
		return "", errors.EditBackendError("fast apply request failed", err)
	}
	logging.Debug("fast apply response", "target", in.TargetFile, "model", f.model, "elapsed", time.Since(start))

	if len(resp.Choices) == 0 {
		return "", errors.EditBackendError("fast apply returned no choices", nil)
	}
	merged := stripFence(resp.Choices[0].Message.Content)
	if strings.TrimSpace(merged) == "" {
		return "", errors.EditBackendError("fast apply returned empty content", nil)
	}
	return merged, nil
}

// stripFence removes a surrounding markdown code fence from a reply.
func stripFence(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return s
	}
	nl := strings.IndexByte(t, '\n')
	if nl < 0 {
		return ""
	}
	t = t[nl+1:]
	t = strings.TrimSuffix(strings.TrimRight(t, " \t\n"), "```")
	return strings.TrimRight(t, " \t\n") + "\n"
}
