package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Houeta/stockwatch/internal/models"
	"golang.org/x/time/rate"
)

// ErrFetch is returned when not a single catalog page could be retrieved.
var ErrFetch = errors.New("catalog fetch failed")

const (
	DefaultPageSize       = 250
	DefaultPageDelay      = 500 * time.Millisecond
	DefaultRequestTimeout = 30 * time.Second
	DefaultMaxPages       = 100

	userAgent      = "Mozilla/5.0 (compatible; stockwatch/1.0)"
	acceptLanguage = "tr-TR,tr;q=0.9,en-US;q=0.8,en;q=0.7"
)

// Options tune the pagination of a Fetcher. Zero values fall back to the defaults.
type Options struct {
	PageSize       int
	PageDelay      time.Duration
	RequestTimeout time.Duration
	MaxPages       int
}

// Fetcher pages through the upstream products.json listing.
type Fetcher struct {
	log     *slog.Logger
	client  *http.Client
	baseURL string
	opts    Options
	// limiter spaces page requests by PageDelay, across sweeps as well.
	limiter *rate.Limiter
}

type productsPage struct {
	Products []models.RawProduct `json:"products"`
}

// NewFetcher creates a Fetcher for the store at baseURL.
func NewFetcher(log *slog.Logger, baseURL string, opts Options) *Fetcher {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.PageDelay < 0 {
		opts.PageDelay = 0
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultMaxPages
	}

	return &Fetcher{
		log:     log,
		client:  http.DefaultClient,
		baseURL: baseURL,
		opts:    opts,
		limiter: rate.NewLimiter(rate.Every(opts.PageDelay), 1),
	}
}

// BaseURL returns the store root used to build product links.
func (f *Fetcher) BaseURL() string {
	return f.baseURL
}

// Fetch returns every product of the catalog.
//
// A failure after at least one page was read is not an error: the pages gathered so far
// are returned and the failure is logged. Only a failure on the first page yields ErrFetch.
func (f *Fetcher) Fetch(ctx context.Context) ([]models.RawProduct, error) {
	const opn = "catalog.Fetch"
	log := f.log.With("op", opn)

	var all []models.RawProduct
	for page := 1; page <= f.opts.MaxPages; page++ {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%s: page %d: %w", opn, page, err)
		}

		products, err := f.fetchPage(ctx, page)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("%s: %w", opn, ctxErr)
			}
			if page == 1 {
				return nil, fmt.Errorf("%s: %w: %w", opn, ErrFetch, err)
			}
			log.WarnContext(ctx, "Catalog sweep stopped early, continuing with partial catalog",
				"page", page, "products", len(all), "error", err)
			return all, nil
		}

		if len(products) == 0 {
			break
		}
		all = append(all, products...)
		log.DebugContext(ctx, "Fetched catalog page", "page", page, "count", len(products))
	}

	log.InfoContext(ctx, "Fetched catalog", "products", len(all))

	return all, nil
}

func (f *Fetcher) fetchPage(ctx context.Context, page int) ([]models.RawProduct, error) {
	reqURL, err := url.Parse(f.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL %s: %w", f.baseURL, err)
	}
	reqURL = reqURL.JoinPath("products.json")
	query := reqURL.Query()
	query.Set("limit", strconv.Itoa(f.opts.PageSize))
	query.Set("page", strconv.Itoa(page))
	reqURL.RawQuery = query.Encode()

	ctx, cancel := context.WithTimeout(ctx, f.opts.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create new request %s: %w", reqURL.String(), err)
	}
	req.Header.Add("User-Agent", userAgent)
	req.Header.Add("Accept", "application/json")
	req.Header.Add("Accept-Language", acceptLanguage)

	res, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to request %s: %w", reqURL.String(), err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status code error: [%d] %s", res.StatusCode, res.Status)
	}

	var body productsPage
	if err = json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode page %d: %w", page, err)
	}

	return body.Products, nil
}
