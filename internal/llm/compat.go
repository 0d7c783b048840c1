package llm

import (
	"context"
	"encoding/base64"
	"errors"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"roteirista/internal/model"
)

// compatClient fala o protocolo de chat completions da OpenAI. Atende OpenAI,
// OpenRouter, Z.AI, Kimi e Puter mudando só a URL base.
type compatClient struct {
	cfg    clientConfig
	client *openai.Client
	log    *zap.Logger
}

func newCompatClient(cfg clientConfig) (Client, error) {
	oc := openai.DefaultConfig(cfg.apiKey)
	if cfg.baseURL != "" {
		oc.BaseURL = cfg.baseURL
	}
	return &compatClient{
		cfg:    cfg,
		client: openai.NewClientWithConfig(oc),
		log:    zap.L().With(zap.String("component", "llm"), zap.String("provider", string(cfg.provider))),
	}, nil
}

func (c *compatClient) Provider() Provider { return c.cfg.provider }
func (c *compatClient) Model() string      { return c.cfg.model }

func (c *compatClient) Generate(ctx context.Context, prompt string, images []model.Image) (*Generation, error) {
	ctx, cancel := withDeadline(ctx, c.cfg.timeout)
	defer cancel()

	msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	if c.cfg.vision && len(images) > 0 {
		parts := []openai.ChatMessagePart{{Type: openai.ChatMessagePartTypeText, Text: prompt}}
		for _, img := range images {
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    dataURL(img),
					Detail: openai.ImageURLDetailAuto,
				},
			})
		}
		msg.MultiContent = parts
	} else {
		if len(images) > 0 {
			c.log.Debug("provedor sem visão, imagens descartadas", zap.Int("imagens", len(images)))
		}
		msg.Content = prompt
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.model,
		Messages:    []openai.ChatCompletionMessage{msg},
		Temperature: 0.3,
	})
	if err != nil {
		return nil, callError(c.cfg, err)
	}
	if len(resp.Choices) == 0 {
		return nil, callError(c.cfg, errors.New("resposta sem choices"))
	}

	return &Generation{
		Text:      resp.Choices[0].Message.Content,
		TokensIn:  resp.Usage.PromptTokens,
		TokensOut: resp.Usage.CompletionTokens,
	}, nil
}

func dataURL(img model.Image) string {
	mime := img.MIME
	if mime == "" {
		mime = "image/jpeg"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}
