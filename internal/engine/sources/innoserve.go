// Package sources holds clients for the external collaborators of the
// pipeline: the InnoServe award site and the transcription API.
package sources

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/anatolykoptev/go_innoserve/internal/engine"
)

// awardTableID is the ASP.NET GridView holding the award rows.
const awardTableID = "ctl00_ContentPlaceHolder1_gv_award"

// editionField is the form field selecting the competition edition.
const editionField = "ctl00$ContentPlaceHolder1$ddl_year"

// InnoServe crawls the award pages of the InnoServe competition site.
// It implements both engine.Discoverer and engine.Fetcher: the award table
// carries most item fields, the optional detail link fills Description.
type InnoServe struct {
	client      *http.Client
	baseURL     string
	editionFrom int
	editionTo   int
	maxChars    int
	cache       *engine.Cache // may be nil
}

// NewInnoServe builds a client from the engine config.
func NewInnoServe(cfg engine.Config, cache *engine.Cache) *InnoServe {
	client := cfg.HTTPClient
	if client == nil {
		client = engine.NewFetchClient(cfg.FetchTimeout)
	}
	return &InnoServe{
		client:      client,
		baseURL:     cfg.BaseURL,
		editionFrom: cfg.EditionFrom,
		editionTo:   cfg.EditionTo,
		maxChars:    cfg.MaxContentChars,
		cache:       cache,
	}
}

// Discover walks the configured edition range and returns every award entry
// found, in listing order. A failed edition is logged and skipped; the crawl
// is best-effort. Only zero reachable editions is an error.
func (c *InnoServe) Discover(ctx context.Context) ([]engine.Item, error) {
	var items []engine.Item
	var lastErr error
	reached := 0

	for edition := c.editionFrom; edition <= c.editionTo; edition++ {
		if ctx.Err() != nil {
			return items, ctx.Err()
		}

		body, err := c.listingHTML(ctx, edition)
		if err != nil {
			lastErr = err
			slog.Warn("edition unreachable, skipping",
				slog.Int("edition", edition), slog.Any("error", err))
			continue
		}
		reached++

		parsed, err := parseAwardTable(body, edition, c.baseURL)
		if err != nil {
			lastErr = err
			slog.Warn("edition page unparseable, skipping",
				slog.Int("edition", edition), slog.Any("error", err))
			continue
		}

		slog.Debug("edition discovered", slog.Int("edition", edition), slog.Int("entries", len(parsed)))
		items = append(items, parsed...)
	}

	if reached == 0 {
		return nil, &engine.FetchError{Err: fmt.Errorf("no edition reachable: %w", lastErr)}
	}
	return items, nil
}

// listingHTML returns the award page HTML for one edition, through the
// tiered cache. Uncached fetches do the ASP.NET two-step: GET the page for
// the hidden form state, then POST the edition selection back.
func (c *InnoServe) listingHTML(ctx context.Context, edition int) (string, error) {
	key := engine.CacheKey("listing", c.baseURL, strconv.Itoa(edition))
	if data, ok := c.cache.Get(ctx, key); ok {
		return string(data), nil
	}

	engine.IncrListingRequests()
	resp, err := engine.FetchWithRetry(ctx, c.client, c.baseURL)
	if err != nil {
		engine.IncrFetchErrors()
		return "", &engine.FetchError{Err: err}
	}
	body, err := engine.ReadResponseBody(resp)
	resp.Body.Close()
	if err != nil {
		engine.IncrFetchErrors()
		return "", &engine.FetchError{Err: err}
	}

	form, err := parseHiddenInputs(body)
	if err != nil {
		return "", &engine.ParseError{URL: c.baseURL, Err: err}
	}
	form.Set(editionField, strconv.Itoa(edition))

	resp, err = engine.PostFormWithRetry(ctx, c.client, c.baseURL, form)
	if err != nil {
		engine.IncrFetchErrors()
		return "", &engine.FetchError{Err: err}
	}
	body, err = engine.ReadResponseBody(resp)
	resp.Body.Close()
	if err != nil {
		engine.IncrFetchErrors()
		return "", &engine.FetchError{Err: err}
	}

	c.cache.Set(ctx, key, body)
	return string(body), nil
}

// Fetch hydrates an item with its detail-page description. Items without a
// detail link pass through unchanged.
func (c *InnoServe) Fetch(ctx context.Context, item engine.Item) (engine.Item, error) {
	if item.DetailURL == "" {
		return item, nil
	}

	key := engine.CacheKey("detail", item.DetailURL)
	data, ok := c.cache.Get(ctx, key)
	if !ok {
		engine.IncrDetailRequests()
		resp, err := engine.FetchWithRetry(ctx, c.client, item.DetailURL)
		if err != nil {
			engine.IncrFetchErrors()
			return item, &engine.FetchError{Err: err}
		}
		data, err = engine.ReadResponseBody(resp)
		resp.Body.Close()
		if err != nil {
			engine.IncrFetchErrors()
			return item, &engine.FetchError{Err: err}
		}
		c.cache.Set(ctx, key, data)
	}

	desc, err := extractDescription(data)
	if err != nil {
		return item, &engine.ParseError{URL: item.DetailURL, Err: err}
	}
	item.Description = engine.TruncateRunes(desc, c.maxChars, "...")
	return item, nil
}

// parseAwardTable extracts award entries from one listing page.
// Columns follow the site's GridView: group, rank, _, school, title(+link).
func parseAwardTable(body string, edition int, pageURL string) ([]engine.Item, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, &engine.ParseError{URL: pageURL, Err: err}
	}

	table := doc.Find("table#" + awardTableID)
	if table.Length() == 0 {
		return nil, &engine.ParseError{URL: pageURL, Err: errors.New("award table not found")}
	}

	base, _ := url.Parse(pageURL)

	var items []engine.Item
	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			return // header row
		}
		cells := row.Find("td")
		if cells.Length() < 7 {
			return
		}

		group := strings.TrimSpace(cells.Eq(0).Text())
		rank := strings.TrimSpace(cells.Eq(1).Text())
		school := strings.TrimSpace(cells.Eq(3).Text())
		titleCell := cells.Eq(4)
		title := engine.CollapseWhitespace(titleCell.Text())
		if title == "" {
			return
		}

		var mediaURL, detailURL string
		titleCell.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
			href, ok := a.Attr("href")
			if !ok || href == "" {
				return true
			}
			href = resolveHref(base, href)
			if engine.YouTubeVideoID(href) != "" {
				mediaURL = href
			} else if detailURL == "" {
				detailURL = href
			}
			return mediaURL == "" // stop once a video link is found
		})

		sourceURL := pageURL
		if detailURL != "" {
			sourceURL = detailURL
		}

		items = append(items, engine.Item{
			ID:        engine.ItemID(edition, group, rank, title, mediaURL),
			Edition:   edition,
			Group:     group,
			Rank:      rank,
			School:    school,
			Title:     title,
			MediaURL:  mediaURL,
			DetailURL: detailURL,
			SourceURL: sourceURL,
		})
	})

	return items, nil
}

// extractDescription pulls the main text of a detail page as markdown-ish
// plain text.
func extractDescription(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", err
	}

	doc.Find("script, style, noscript, header, footer, nav, aside").Remove()

	sel := doc.Find("article, main, .content, #content").First()
	if sel.Length() == 0 {
		sel = doc.Find("body")
	}
	if sel.Length() == 0 {
		return "", errors.New("no content element")
	}

	inner, err := sel.Html()
	if err != nil {
		return "", err
	}
	md, err := htmltomarkdown.ConvertString(inner)
	if err != nil {
		return engine.CollapseWhitespace(sel.Text()), nil
	}
	return strings.TrimSpace(md), nil
}

// parseHiddenInputs collects the hidden form fields (__VIEWSTATE and
// friends) that ASP.NET requires on every postback.
func parseHiddenInputs(body []byte) (url.Values, error) {
	node, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "input" {
			var name, value, typ string
			for _, attr := range n.Attr {
				switch attr.Key {
				case "name":
					name = attr.Val
				case "value":
					value = attr.Val
				case "type":
					typ = attr.Val
				}
			}
			if typ == "hidden" && name != "" {
				form.Set(name, value)
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(node)

	if form.Get("__VIEWSTATE") == "" {
		return nil, errors.New("__VIEWSTATE not found")
	}
	return form, nil
}

func resolveHref(base *url.URL, href string) string {
	if base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
