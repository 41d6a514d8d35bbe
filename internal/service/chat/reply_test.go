package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartbite/assistant/backend/internal/analysis/intent"
)

func TestRulePipelineUsesDefaultTable(t *testing.T) {
	p, err := NewRulePipeline(context.Background(), nil)
	require.NoError(t, err)

	reply, err := p.Reply(context.Background(), "Book a table for 4")
	require.NoError(t, err)
	assert.Equal(t, intent.Classify("Book a table for 4").Response, reply)
}

func TestRulePipelineWithCustomClassifier(t *testing.T) {
	classifier := intent.NewClassifier([]intent.Rule{
		{Intent: intent.Menu, Keywords: []string{"pizza"}, Response: "Pizza is on page two."},
	}, "Sorry?")

	p, err := NewRulePipeline(context.Background(), classifier)
	require.NoError(t, err)

	reply, err := p.Reply(context.Background(), "Any PIZZA?")
	require.NoError(t, err)
	assert.Equal(t, "Pizza is on page two.", reply)

	reply, err = p.Reply(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "Sorry?", reply)
}
