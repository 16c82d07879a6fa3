package transcript

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"

	"github.com/marte113/Player-On-Caption/internal/errs"
	"github.com/marte113/Player-On-Caption/pkg/log"
)

// Selectors locate the parts of the lecture page the extractor needs.
type Selectors struct {
	TranscriptToggle string
	CueContainer     string
	CueText          string
	TitleSection     string
	TitleAttr        string
	Caption          string
	Video            string
}

func DefaultSelectors() Selectors {
	return Selectors{
		TranscriptToggle: `[data-purpose="transcript-toggle"]`,
		CueContainer:     "div.transcript--cue-container--Vuwj6",
		CueText:          `span[data-purpose="cue-text"]`,
		TitleSection:     "section.lecture-view--container--mrZSm",
		TitleAttr:        "aria-label",
		Caption:          "span.well--text--J1-Qi",
		Video:            "video",
	}
}

type Extractor struct {
	sel Selectors
}

func NewExtractor(sel Selectors) *Extractor {
	return &Extractor{sel: sel}
}

// OpenTranscript makes sure the transcript panel is mounted, clicking its
// toggle when it is collapsed. A missing toggle is only logged; extraction
// then finds whatever cues exist.
func (e *Extractor) OpenTranscript(ctx context.Context, page Page) error {
	doc, err := page.Document(ctx)
	if err != nil {
		return err
	}
	toggle := doc.Find(e.sel.TranscriptToggle).First()
	if toggle.Length() == 0 {
		log.Warn("transcript toggle not found")
		return nil
	}
	if toggle.AttrOr("aria-expanded", "") == "true" {
		return nil
	}
	return page.Click(ctx, e.sel.TranscriptToggle)
}

// Extract collects every cue as a normalized key with an empty translation.
// A page without cues yields an empty map, which means nothing to translate.
func (e *Extractor) Extract(ctx context.Context, page Page) (*Map, error) {
	doc, err := page.Document(ctx)
	if err != nil {
		return nil, err
	}

	m := NewMap()
	doc.Find(e.sel.CueContainer).Each(func(_ int, container *goquery.Selection) {
		cue := container.Find(e.sel.CueText).First()
		if cue.Length() == 0 {
			return
		}
		if key := Normalize(cue.Text()); key != "" {
			m.Set(key, "")
		}
	})
	log.Info("extracted %d transcript lines", m.Len())
	return m, nil
}

// Title returns the lecture title used as the cache key.
func (e *Extractor) Title(ctx context.Context, page Page) (string, error) {
	doc, err := page.Document(ctx)
	if err != nil {
		return "", err
	}
	section := doc.Find(e.sel.TitleSection).First()
	if section.Length() == 0 {
		return "", errs.Extraction("lecture title element not found").
			WithContext("selector", e.sel.TitleSection)
	}
	title, ok := section.Attr(e.sel.TitleAttr)
	title = strings.TrimSpace(title)
	if !ok || title == "" {
		return "", errs.Extraction("lecture title attribute missing").
			WithContext("attr", e.sel.TitleAttr)
	}
	return title, nil
}

// Caption reads the caption currently shown on the page and whether the video
// is playing.
func (e *Extractor) Caption(ctx context.Context, page Page) (string, bool, error) {
	doc, err := page.Document(ctx)
	if err != nil {
		return "", false, err
	}
	caption := doc.Find(e.sel.Caption).First()
	if caption.Length() == 0 {
		return "", false, nil
	}
	video := doc.Find(e.sel.Video).First()
	_, paused := video.Attr("paused")
	return strings.TrimSpace(caption.Text()), video.Length() > 0 && !paused, nil
}

// PageCaptions adapts the page caption span for the synchronizer's polling pass.
type PageCaptions struct {
	ctx  context.Context
	page Page
	ext  *Extractor
}

func NewPageCaptions(ctx context.Context, page Page, ext *Extractor) *PageCaptions {
	return &PageCaptions{ctx: ctx, page: page, ext: ext}
}

func (c *PageCaptions) Current() (string, bool) {
	text, _, err := c.ext.Caption(c.ctx, c.page)
	if err != nil || text == "" {
		return "", false
	}
	return text, true
}

func (c *PageCaptions) Playing() bool {
	_, playing, err := c.ext.Caption(c.ctx, c.page)
	return err == nil && playing
}

// DetectLanguage returns the majority language of lines, or language.Und.
func DetectLanguage(lines []string) language.Tag {
	if len(lines) == 0 {
		return language.Und
	}

	counts := make(map[string]int)
	for _, line := range lines {
		info := whatlanggo.Detect(line)
		if !info.IsReliable() {
			continue
		}
		counts[info.Lang.Iso6391()]++
	}

	var top string
	var topCount int
	for lang, count := range counts {
		if count > topCount || (count == topCount && lang < top) {
			top = lang
			topCount = count
		}
	}
	if top == "" {
		return language.Und
	}
	tag, err := language.Parse(top)
	if err != nil {
		return language.Und
	}
	return tag
}
