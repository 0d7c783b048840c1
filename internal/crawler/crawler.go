// Package crawler busca a ficha técnica de um produto na página da loja.
package crawler

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"roteirista/internal/model"
)

const (
	DefaultBaseURL = "https://www.magazineluiza.com.br"
	userAgent      = "Mozilla/5.0 (compatible; roteirista/1.0)"
	maxPageBytes   = 5 << 20
	maxImageBytes  = 4 << 20
	// Abaixo disso a página não trouxe dados de verdade.
	minContentLen = 80
)

var defaultHTTPClient = &http.Client{Timeout: 60 * time.Second}

// Fetcher baixa a página do produto e monta a ficha com até MaxImages imagens.
type Fetcher struct {
	Client    *http.Client
	BaseURL   string
	MaxImages int
	Log       *zap.Logger
}

func NewFetcher(baseURL string) *Fetcher {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Fetcher{
		Client:    defaultHTTPClient,
		BaseURL:   strings.TrimRight(baseURL, "/"),
		MaxImages: 3,
		Log:       zap.L().With(zap.String("component", "crawler")),
	}
}

func (f *Fetcher) logger() *zap.Logger {
	if f.Log == nil {
		return zap.L()
	}
	return f.Log
}

func (f *Fetcher) client() *http.Client {
	if f.Client == nil {
		return defaultHTTPClient
	}
	return f.Client
}

// ProductURL devolve a URL da página de um código. URLs completas passam
// direto.
func (f *Fetcher) ProductURL(codeOrURL string) string {
	in := strings.TrimSpace(codeOrURL)
	if strings.HasPrefix(in, "http") {
		return in
	}
	return f.BaseURL + "/p/" + NormalizeCode(in) + "/"
}

// FetchFacts devolve a ficha do produto. Em qualquer falha a ficha volta com
// o aviso de extração (que o gerador reconhece) junto do erro.
func (f *Fetcher) FetchFacts(ctx context.Context, codeOrURL string) (model.Facts, error) {
	code := NormalizeCode(codeOrURL)
	pageURL := f.ProductURL(codeOrURL)
	log := f.logger().With(zap.String("produto", code), zap.String("url", pageURL))

	html, err := f.Fetch(ctx, pageURL)
	if err != nil {
		log.Warn("falha ao baixar página do produto", zap.Error(err))
		return model.FailedFacts(code), err
	}

	base, _ := url.Parse(pageURL)
	page, err := ParseProduct(html, base)
	if err != nil {
		log.Warn("falha ao ler HTML do produto", zap.Error(err))
		return model.FailedFacts(code), eris.Wrap(err, "crawler: parse")
	}
	if page.contentLen() < minContentLen {
		log.Warn("página sem dados suficientes", zap.Int("caracteres", page.contentLen()))
		return model.FailedFacts(code), eris.Errorf("crawler: página de %s sem dados suficientes", code)
	}

	facts := model.Facts{Text: page.Text(code)}
	for _, src := range page.ImageURLs {
		if len(facts.Images) >= f.MaxImages {
			break
		}
		img, err := f.fetchImage(ctx, src)
		if err != nil {
			log.Debug("imagem ignorada", zap.String("imagem", src), zap.Error(err))
			continue
		}
		facts.Images = append(facts.Images, img)
	}

	log.Info("ficha extraída", zap.Int("caracteres", len(facts.Text)), zap.Int("imagens", len(facts.Images)))
	return facts, nil
}

// Fetch baixa o HTML de uma página.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	b, _, err := f.get(ctx, pageURL, "text/html", maxPageBytes)
	return string(b), err
}

func (f *Fetcher) fetchImage(ctx context.Context, src string) (model.Image, error) {
	b, contentType, err := f.get(ctx, src, "image/*", maxImageBytes)
	if err != nil {
		return model.Image{}, err
	}
	mime := strings.TrimSpace(strings.Split(contentType, ";")[0])
	if !strings.HasPrefix(mime, "image/") {
		mime = http.DetectContentType(b)
	}
	if !strings.HasPrefix(mime, "image/") {
		return model.Image{}, eris.Errorf("crawler: %s não é imagem (%s)", src, mime)
	}
	return model.Image{Data: b, MIME: mime}, nil
}

func (f *Fetcher) get(ctx context.Context, target, accept string, limit int64) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", eris.Wrapf(err, "crawler: request %s", target)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", accept)

	resp, err := f.client().Do(req)
	if err != nil {
		return nil, "", eris.Wrapf(err, "crawler: get %s", target)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", eris.Errorf("crawler: status %d em %s", resp.StatusCode, target)
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, "", eris.Wrapf(err, "crawler: read %s", target)
	}
	return b, resp.Header.Get("Content-Type"), nil
}
