package parser

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"WhiskeyIndex/internal/domain"
	"WhiskeyIndex/internal/ports"
	"WhiskeyIndex/internal/scanner"
)

const (
	defaultSearchURL  = "https://www.ttbonline.gov/colasonline/publicSearchColasBasicProcess.do?action=search"
	defaultDetailsURL = "https://www.ttbonline.gov/colasonline/viewColaDetails.do?action=publicFormDisplay"
	registryDate      = "01/02/2006"
)

// ColaOptions configures the live registry scanner.
type ColaOptions struct {
	SearchURL    string
	DetailsURL   string
	UserAgent    string
	MaxPages     int
	FetchDetails bool
}

// ColaScanner posts the COLA public basic search and reads its result tables.
type ColaScanner struct {
	client *http.Client
	opts   ColaOptions
	pacer  ports.Pacer
	logger *slog.Logger
}

// NewColaScanner wires an HTTP client; empty options fall back to the public registry.
func NewColaScanner(client *http.Client, opts ColaOptions, pacer ports.Pacer, log *slog.Logger) *ColaScanner {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.SearchURL == "" {
		opts.SearchURL = defaultSearchURL
	}
	if opts.DetailsURL == "" {
		opts.DetailsURL = defaultDetailsURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "WhiskeyIndex/1.0"
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 1
	}
	return &ColaScanner{client: client, opts: opts, pacer: pacer, logger: log}
}

// Name identifies the strategy inside the registry.
func (c *ColaScanner) Name() string {
	return "colas"
}

// Scan runs one search, follows "Next" links up to MaxPages and returns the
// de-duplicated candidates in result order.
func (c *ColaScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Candidate, error) {
	term := strings.TrimSpace(req.Query.Term)
	if term == "" {
		return nil, fmt.Errorf("empty search term for product %s", req.Query.Product)
	}

	doc, pageURL, err := c.search(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", term, err)
	}

	var results []domain.Candidate
	seen := map[string]struct{}{}
	for page := 1; ; page++ {
		rows := extractResults(doc)
		for _, fields := range rows {
			cand, ok := fields.Candidate()
			if !ok {
				continue
			}
			if _, dup := seen[cand.Identifier]; dup {
				continue
			}
			seen[cand.Identifier] = struct{}{}
			results = append(results, cand)
		}
		c.debug("registry page parsed", "term", term, "page", page, "rows", len(rows))

		next := nextPageURL(doc, pageURL)
		if next == "" || page >= c.opts.MaxPages {
			break
		}
		doc, err = c.get(ctx, next)
		if err != nil {
			return nil, fmt.Errorf("search %q page %d: %w", term, page+1, err)
		}
		pageURL = next
	}

	if c.opts.FetchDetails {
		for i := range results {
			if results[i].HasProof() {
				continue
			}
			proof, err := c.detailProof(ctx, results[i].Identifier)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				c.warn("detail page failed", "ttb_id", results[i].Identifier, "error", err)
				continue
			}
			results[i].Proof = proof
		}
	}

	return results, nil
}

func (c *ColaScanner) search(ctx context.Context, q domain.Query) (*goquery.Document, string, error) {
	form := url.Values{}
	form.Set("searchCriteria.productOrFancifulName", q.Term)
	form.Set("searchCriteria.productNameSearchType", "B")
	if !q.From.IsZero() {
		form.Set("searchCriteria.dateCompletedFrom", q.From.Format(registryDate))
	}
	if !q.To.IsZero() {
		form.Set("searchCriteria.dateCompletedTo", q.To.Format(registryDate))
	}

	if err := c.wait(ctx); err != nil {
		return nil, "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.SearchURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	doc, err := c.fetchDocument(req)
	if err != nil {
		return nil, "", err
	}
	return doc, c.opts.SearchURL, nil
}

func (c *ColaScanner) get(ctx context.Context, pageURL string) (*goquery.Document, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	return c.fetchDocument(req)
}

func (c *ColaScanner) fetchDocument(req *http.Request) (*goquery.Document, error) {
	req.Header.Set("User-Agent", c.opts.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("registry returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

func (c *ColaScanner) detailProof(ctx context.Context, id string) (*float64, error) {
	pageURL, err := withQuery(c.opts.DetailsURL, "ttbid", id)
	if err != nil {
		return nil, err
	}
	doc, err := c.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	proof, ok := ExtractProof(doc.Text())
	if !ok {
		return nil, nil
	}
	return domain.ProofValue(proof), nil
}

func (c *ColaScanner) wait(ctx context.Context) error {
	if c.pacer == nil {
		return ctx.Err()
	}
	return c.pacer.Wait(ctx)
}

// extractResults reads every table row whose first cell links to a ttbid.
// Columns are named from the table's header row when it has one.
func extractResults(doc *goquery.Document) []Fields {
	var out []Fields
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		columns := headerColumns(table)
		table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			cells := tr.ChildrenFiltered("td")
			if cells.Length() < 4 {
				return
			}
			href, ok := cells.First().Find("a[href*=\"ttbid=\"]").First().Attr("href")
			if !ok {
				return
			}
			m := ttbIDExpr.FindStringSubmatch(href)
			if m == nil {
				return
			}

			fields := Fields{}
			cells.Each(func(i int, td *goquery.Selection) {
				if i < len(columns) && columns[i] != "" {
					fields[columns[i]] = strings.TrimSpace(td.Text())
				}
			})
			fields[FieldIdentifier] = m[1]
			out = append(out, fields)
		})
	})
	return out
}

func headerColumns(table *goquery.Selection) []string {
	var columns []string
	table.Find("tr").First().ChildrenFiltered("th").Each(func(_ int, th *goquery.Selection) {
		columns = append(columns, strings.Join(strings.Fields(th.Text()), " "))
	})
	if len(columns) == 0 {
		return resultColumns
	}
	return columns
}

func nextPageURL(doc *goquery.Document, base string) string {
	var next string
	doc.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		label := strings.ToLower(strings.TrimSpace(a.Text()))
		if !strings.HasPrefix(label, "next") {
			return true
		}
		href, ok := a.Attr("href")
		if !ok || href == "" || strings.HasPrefix(href, "javascript:") {
			return true
		}
		next = resolveURL(base, href)
		return next == ""
	})
	return next
}

func resolveURL(base, href string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return b.ResolveReference(ref).String()
}

func withQuery(base, key, value string) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid registry url %s: %w", base, err)
	}
	query := parsed.Query()
	query.Set(key, value)
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func (c *ColaScanner) debug(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

func (c *ColaScanner) warn(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}
