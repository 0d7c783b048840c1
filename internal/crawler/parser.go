package crawler

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const maxSpecs = 40

// Page é o que interessa de uma página de produto.
type Page struct {
	Title       string
	Description []string
	Specs       []Spec
	ImageURLs   []string
}

type Spec struct {
	Name  string
	Value string
}

// ParseProduct extrai título, textos, ficha técnica e imagens og:image do
// HTML. base resolve URLs relativas de imagem e pode ser nil.
func ParseProduct(html string, base *url.URL) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	doc.Find("script, style, noscript, nav, footer, header").Remove()

	p := &Page{}
	p.Title = clean(doc.Find("h1").First().Text())
	if p.Title == "" {
		p.Title = clean(attr(doc, `meta[property="og:title"]`))
	}

	seen := map[string]bool{p.Title: true}
	doc.Find("h2, h3, p, li").Each(func(_ int, s *goquery.Selection) {
		if s.Is("li") && s.Find("p").Length() > 0 {
			return
		}
		text := clean(s.Text())
		if text == "" || seen[text] {
			return
		}
		seen[text] = true
		p.Description = append(p.Description, text)
	})
	if len(p.Description) == 0 {
		if d := clean(attr(doc, `meta[name="description"]`)); d != "" {
			p.Description = append(p.Description, d)
		}
	}

	doc.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		cells := row.Find("th, td")
		if cells.Length() < 2 {
			return true
		}
		name := clean(cells.First().Text())
		value := clean(cells.Eq(1).Text())
		if name != "" && value != "" {
			p.Specs = append(p.Specs, Spec{Name: name, Value: value})
		}
		return len(p.Specs) < maxSpecs
	})

	doc.Find(`meta[property="og:image"]`).Each(func(_ int, s *goquery.Selection) {
		src, ok := s.Attr("content")
		if !ok || strings.TrimSpace(src) == "" {
			return
		}
		p.ImageURLs = append(p.ImageURLs, resolve(base, strings.TrimSpace(src)))
	})

	return p, nil
}

// Text formata a página no formato da ficha técnica usada no prompt.
func (p *Page) Text(code string) string {
	var sb strings.Builder
	if code != "" {
		sb.WriteString("CÓDIGO DO PRODUTO: " + code + "\n\n")
	}
	if p.Title != "" {
		sb.WriteString("TÍTULO DO PRODUTO: " + p.Title + "\n\n")
	}
	if len(p.Description) > 0 {
		sb.WriteString("DESCRIÇÃO DO FABRICANTE:\n")
		sb.WriteString(strings.Join(p.Description, "\n"))
		sb.WriteString("\n\n")
	}
	if len(p.Specs) > 0 {
		sb.WriteString("FICHA TÉCNICA PRINCIPAL:\n")
		for _, s := range p.Specs {
			sb.WriteString("- " + s.Name + ": " + s.Value + "\n")
		}
	}
	return strings.TrimSpace(sb.String())
}

// contentLen conta só o que veio da página.
func (p *Page) contentLen() int {
	n := len(p.Title)
	for _, d := range p.Description {
		n += len(d)
	}
	for _, s := range p.Specs {
		n += len(s.Name) + len(s.Value)
	}
	return n
}

func attr(doc *goquery.Document, selector string) string {
	v, _ := doc.Find(selector).First().Attr("content")
	return v
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func resolve(base *url.URL, ref string) string {
	if base == nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}
