package transcript

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

// Page is the lecture page the extractor reads. Document returns the current
// DOM; Click activates the first element matching selector.
type Page interface {
	Document(ctx context.Context) (*goquery.Document, error)
	Click(ctx context.Context, selector string) error
}

// HTMLPage is a Page backed by a saved HTML snapshot. Clicking a toggle marks
// it expanded, which is all a static snapshot can reflect.
type HTMLPage struct {
	mu  sync.Mutex
	doc *goquery.Document
}

func NewHTMLPage(r io.Reader) (*HTMLPage, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	return &HTMLPage{doc: doc}, nil
}

func OpenHTMLPage(path string) (*HTMLPage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer f.Close()
	return NewHTMLPage(f)
}

func (p *HTMLPage) Document(ctx context.Context) (*goquery.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doc, nil
}

func (p *HTMLPage) Click(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	sel := p.doc.Find(selector).First()
	if sel.Length() == 0 {
		return fmt.Errorf("no element matches %q", selector)
	}
	if _, ok := sel.Attr("aria-expanded"); ok {
		sel.SetAttr("aria-expanded", "true")
	}
	return nil
}
