// Package chat builds the chat model used by the classifier and tone
// adviser collaborators. Ollama is the default provider; OpenAI takes over
// when an API key is configured.
package chat

import (
	"context"
	"fmt"

	ollama "github.com/cloudwego/eino-ext/components/model/ollama"
	openai "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"dunning/vars"
)

func NewChatModel(ctx context.Context) (model.ToolCallingChatModel, error) {
	if vars.OPENAI_API_KEY != "" {
		return NewOpenAIChatModel(ctx, vars.OPENAI_API_KEY, vars.OPENAI_MODEL)
	}
	return NewOllamaChatModel(ctx, vars.OLLAMA_PATH, vars.CHAT_MODEL)
}

func NewOllamaChatModel(ctx context.Context, url string, name string) (model.ToolCallingChatModel, error) {
	chatModel, err := ollama.NewChatModel(ctx, &ollama.ChatModelConfig{
		BaseURL: url,
		Model:   name,
	})
	if err != nil {
		return nil, fmt.Errorf("create ollama chat model failed: %w", err)
	}
	return chatModel, nil
}

func NewOpenAIChatModel(ctx context.Context, apiKey string, name string) (model.ToolCallingChatModel, error) {
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey: apiKey,
		Model:  name,
	})
	if err != nil {
		return nil, fmt.Errorf("create openai chat model failed: %w", err)
	}
	return chatModel, nil
}
