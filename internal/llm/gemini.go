package llm

import (
	"context"

	"google.golang.org/genai"

	"roteirista/internal/model"
)

type geminiClient struct {
	cfg    clientConfig
	client *genai.Client
}

func newGeminiClient(cfg clientConfig) (Client, error) {
	gc := &genai.ClientConfig{
		APIKey:  cfg.apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.baseURL != "" {
		gc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.baseURL}
	}
	client, err := genai.NewClient(context.Background(), gc)
	if err != nil {
		return nil, callError(cfg, err)
	}
	return &geminiClient{cfg: cfg, client: client}, nil
}

func (c *geminiClient) Provider() Provider { return c.cfg.provider }
func (c *geminiClient) Model() string      { return c.cfg.model }

func (c *geminiClient) Generate(ctx context.Context, prompt string, images []model.Image) (*Generation, error) {
	ctx, cancel := withDeadline(ctx, c.cfg.timeout)
	defer cancel()

	parts := make([]*genai.Part, 0, len(images)+1)
	for _, img := range images {
		mime := img.MIME
		if mime == "" {
			mime = "image/jpeg"
		}
		parts = append(parts, genai.NewPartFromBytes(img.Data, mime))
	}
	parts = append(parts, genai.NewPartFromText(prompt))

	resp, err := c.client.Models.GenerateContent(ctx, c.cfg.model,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, nil)
	if err != nil {
		return nil, callError(c.cfg, err)
	}

	gen := &Generation{Text: resp.Text()}
	if resp.UsageMetadata != nil {
		gen.TokensIn = int(resp.UsageMetadata.PromptTokenCount)
		gen.TokensOut = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return gen, nil
}
