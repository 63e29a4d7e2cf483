// Package extractor turns catalog listing markup into records. Extraction is
// a pure function of the page body; per-item defects degrade to zero values
// or a silent skip, never an error.
package extractor

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/clipindex/harvester/internal/catalog"
)

const (
	itemSelector       = "div.item-video"
	titleSelector      = "h2.entry-title a"
	linkSelector       = "a.clip-link"
	thumbSelector      = "img"
	viewsSelector      = "span.views i.count"
	commentsSelector   = "span.comments i.count"
	likesSelector      = "span.dp-post-likes i.count"
	dateSelector       = "time.entry-date"
	authorSelector     = "span.author a"
	summarySelector    = "p.entry-summary"
	idClassPrefix      = "post-"
	titleLabelPrefix   = "Permalink to "
	summaryLabelPrefix = "Video "
)

// Result is the outcome of extracting one successfully fetched page.
type Result struct {
	Page    int
	Records []catalog.Record
}

// Terminal reports whether the page yielded zero records, which marks the end
// of the pagination sequence. Only successfully fetched pages produce a
// Result, so a failed fetch can never look terminal.
func (r Result) Terminal() bool {
	return len(r.Records) == 0
}

// Extractor parses listing pages. It holds only the immutable base URL used
// to resolve relative links and is safe for concurrent use.
type Extractor struct {
	base *url.URL
}

// New returns an Extractor that resolves relative links against baseURL.
func New(baseURL string) (*Extractor, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	return &Extractor{base: base}, nil
}

// Extract pulls every listing block out of body. Blocks without a recoverable
// ID are skipped; missing sub-elements yield empty strings or zero counts.
// The only error path is markup the HTML parser cannot consume at all.
func (e *Extractor) Extract(body []byte, page int) (Result, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("parse page %d: %w", page, err)
	}

	res := Result{Page: page}
	doc.Find(itemSelector).Each(func(_ int, item *goquery.Selection) {
		id, ok := postID(item)
		if !ok {
			return
		}
		res.Records = append(res.Records, catalog.Record{
			Page:      page,
			ID:        id,
			Title:     trimLabel(firstText(item, titleSelector), titleLabelPrefix),
			Link:      e.resolve(firstAttr(item, linkSelector, "href")),
			Thumbnail: e.resolve(firstAttr(item, thumbSelector, "src")),
			Views:     ParseCount(firstText(item, viewsSelector)),
			Comments:  ParseCount(firstText(item, commentsSelector)),
			Likes:     ParseCount(firstText(item, likesSelector)),
			Date:      firstAttr(item, dateSelector, "datetime"),
			Author:    firstText(item, authorSelector),
			Summary:   trimLabel(firstText(item, summarySelector), summaryLabelPrefix),
		})
	})
	return res, nil
}

// postID recovers the catalog ID from the block's post-<id> marker class.
func postID(item *goquery.Selection) (string, bool) {
	classes, _ := item.Attr("class")
	for _, class := range strings.Fields(classes) {
		if id, ok := strings.CutPrefix(class, idClassPrefix); ok && id != "" {
			return id, true
		}
	}
	return "", false
}

func firstText(s *goquery.Selection, selector string) string {
	return strings.TrimSpace(s.Find(selector).First().Text())
}

func firstAttr(s *goquery.Selection, selector, name string) string {
	val, _ := s.Find(selector).First().Attr(name)
	return strings.TrimSpace(val)
}

func trimLabel(s, label string) string {
	return strings.TrimSpace(strings.TrimPrefix(s, label))
}

func (e *Extractor) resolve(ref string) string {
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return e.base.ResolveReference(u).String()
}
