package assistant

import (
	"context"
	"fmt"

	jww "github.com/spf13/jwalterweatherman"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
)

// Assistant answers seeker questions inside a chat thread. The marketplace
// treats it as an ordinary conversation counterpart; everything behind this
// interface is replaceable.
type Assistant interface {
	Reply(ctx context.Context, question string) (string, error)
}

// The reserved assistant user. Ensured at startup when the assistant is
// enabled; messages addressed to it get automatic replies.
const (
	UserEmail = "assistant@campusgigs.internal"
	UserName  = "CampusGigs Assistant"
)

const replyPrompt = `You are a helpful assistant inside a part-time job
marketplace. A job seeker or employer asked the following question in chat.
Answer briefly and practically. If the question is about a specific
application or payment dispute, tell them to contact support instead of
guessing.

Question:
%s
`

type llmAssistant struct {
	client llms.Model
}

// New builds a googleai-backed assistant. Returns nil (assistant disabled)
// when no API key is configured.
func New(ctx context.Context, apiKey, model string) (Assistant, error) {
	if apiKey == "" {
		jww.INFO.Println("assistant disabled, no API key configured")
		return nil, nil
	}
	client, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel(model),
	)
	if err != nil {
		return nil, err
	}
	return &llmAssistant{client: client}, nil
}

func (a *llmAssistant) Reply(ctx context.Context, question string) (string, error) {
	if len(question) > 4000 {
		question = question[:4000]
	}
	return llms.GenerateFromSinglePrompt(ctx, a.client, fmt.Sprintf(replyPrompt, question))
}
