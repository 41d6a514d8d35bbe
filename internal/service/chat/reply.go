package chat

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/smartbite/assistant/backend/internal/analysis/intent"
)

// Replier turns a user message into the assistant's reply text.
type Replier interface {
	Reply(ctx context.Context, userText string) (string, error)
}

// RulePipeline answers through a compiled chain: classify, then wrap the
// canned response as an assistant message.
type RulePipeline struct {
	runnable compose.Runnable[string, *schema.Message]
}

// NewRulePipeline compiles the reply chain around classifier.
func NewRulePipeline(ctx context.Context, classifier *intent.Classifier) (*RulePipeline, error) {
	if classifier == nil {
		classifier = intent.Default()
	}

	chain := compose.NewChain[string, *schema.Message]()
	chain.AppendLambda(compose.InvokableLambda(func(_ context.Context, text string) (intent.Decision, error) {
		return classifier.Classify(text), nil
	}))
	chain.AppendLambda(compose.InvokableLambda(func(_ context.Context, decision intent.Decision) (*schema.Message, error) {
		return schema.AssistantMessage(decision.Response, nil), nil
	}))

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile reply chain: %w", err)
	}

	return &RulePipeline{runnable: runnable}, nil
}

// Reply implements Replier.
func (p *RulePipeline) Reply(ctx context.Context, userText string) (string, error) {
	msg, err := p.runnable.Invoke(ctx, userText)
	if err != nil {
		return "", fmt.Errorf("run reply chain: %w", err)
	}
	if msg == nil {
		return "", fmt.Errorf("run reply chain: empty message")
	}
	return msg.Content, nil
}
