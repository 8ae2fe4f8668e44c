package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAILLM implements LLMClient using the official openai-go SDK (chat
// completions). DeepSeek and Gemini are reached through their OpenAI
// compatible endpoints.
type OpenAILLM struct {
	Model  string
	client openai.Client
}

func NewOpenAILLMFromConfig(cfg *LLMSettings) (*OpenAILLM, error) {
	if cfg == nil {
		return nil, errors.New("llm config is nil")
	}
	settings := *cfg
	if strings.EqualFold(settings.Provider, "gemini") {
		if settings.BaseURL == "" {
			settings.BaseURL = geminiBaseURL
		}
		if settings.Model == "" {
			settings.Model = geminiModel
		}
	}
	if settings.APIKey == "" {
		return nil, fmt.Errorf("%s api key missing; provide llm.api_key or llm.api_key_env", settings.Provider)
	}
	if settings.Model == "" {
		return nil, errors.New("llm model is required")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(settings.APIKey),
		// 失败直接交给上层处理，不做自动重试
		option.WithMaxRetries(0),
	}
	if settings.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(settings.BaseURL))
	}
	return &OpenAILLM{Model: settings.Model, client: openai.NewClient(opts...)}, nil
}

func (o *OpenAILLM) Complete(ctx context.Context, prompt Prompt) (string, error) {
	msgs := []openai.ChatCompletionMessageParamUnion{}
	if prompt.System != "" {
		msgs = append(msgs, openai.SystemMessage(prompt.System))
	}
	msgs = append(msgs, openai.UserMessage(prompt.User))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.Model),
		Messages: msgs,
	}
	if prompt.JSON {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}
