package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"roteirista/internal/model"
)

const anthropicMaxTokens = 8192

type anthropicClient struct {
	cfg    clientConfig
	client sdk.Client
}

func newAnthropicClient(cfg clientConfig) (Client, error) {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.apiKey),
		option.WithMaxRetries(0),
	}
	if cfg.baseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.baseURL))
	}
	return &anthropicClient{cfg: cfg, client: sdk.NewClient(opts...)}, nil
}

func (c *anthropicClient) Provider() Provider { return c.cfg.provider }
func (c *anthropicClient) Model() string      { return c.cfg.model }

func (c *anthropicClient) Generate(ctx context.Context, prompt string, images []model.Image) (*Generation, error) {
	ctx, cancel := withDeadline(ctx, c.cfg.timeout)
	defer cancel()

	blocks := make([]sdk.ContentBlockParamUnion, 0, len(images)+1)
	for _, img := range images {
		mime := img.MIME
		if mime == "" {
			mime = "image/jpeg"
		}
		blocks = append(blocks, sdk.NewImageBlockBase64(mime, base64.StdEncoding.EncodeToString(img.Data)))
	}
	blocks = append(blocks, sdk.NewTextBlock(prompt))

	msg, err := c.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(c.cfg.model),
		MaxTokens: anthropicMaxTokens,
		Messages:  []sdk.MessageParam{sdk.NewUserMessage(blocks...)},
	})
	if err != nil {
		return nil, callError(c.cfg, err)
	}

	var sb strings.Builder
	for _, b := range msg.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	if sb.Len() == 0 {
		return nil, callError(c.cfg, errors.New("resposta sem bloco de texto"))
	}

	return &Generation{
		Text:      sb.String(),
		TokensIn:  int(msg.Usage.InputTokens),
		TokensOut: int(msg.Usage.OutputTokens),
	}, nil
}
