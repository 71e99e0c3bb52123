package openlibrary

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	domain "github.com/librilane/book-import/internal/domain/importing"
)

// DefaultBatchCap is the documented ceiling on identifiers per lookup call.
const DefaultBatchCap = 1000

type Config struct {
	BaseURL    string
	UserAgent  string
	RPS        int
	MaxRetries int
	BatchCap   int
}

// Client resolves ISBN batches against the Open Library books API. Per the
// lookup contract, a transport failure is reported as "absent for all": the
// processor counts those ISBNs as failures and moves on, it is not a
// job-level error.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	limiter    *rate.Limiter
	maxRetries int
	batchCap   int
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://openlibrary.org"
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 5
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BatchCap <= 0 {
		cfg.BatchCap = DefaultBatchCap
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:  cfg.UserAgent,
		limiter:    rate.NewLimiter(rate.Every(time.Second/time.Duration(cfg.RPS)), 1),
		maxRetries: cfg.MaxRetries,
		batchCap:   cfg.BatchCap,
	}
}

func (c *Client) BatchCap() int {
	return c.batchCap
}

// bookDetails matches api/books?jscmd=data entries.
type bookDetails struct {
	Title      string `json:"title"`
	Subtitle   string `json:"subtitle"`
	Publishers []struct {
		Name string `json:"name"`
	} `json:"publishers"`
	PublishDate string `json:"publish_date"`
	Cover       struct {
		Large string `json:"large"`
	} `json:"cover"`
	Authors []struct {
		Name string `json:"name"`
	} `json:"authors"`
	Subjects []struct {
		Name string `json:"name"`
	} `json:"subjects"`
	NumberOfPages int `json:"number_of_pages"`
}

func (c *Client) LookupBatch(ctx context.Context, isbns []string) (map[string]domain.BookMetadata, error) {
	if len(isbns) == 0 {
		return nil, nil
	}
	if len(isbns) > c.batchCap {
		return nil, fmt.Errorf("batch of %d exceeds the lookup cap of %d", len(isbns), c.batchCap)
	}

	bibkeys := make([]string, len(isbns))
	for i, isbn := range isbns {
		bibkeys[i] = "ISBN:" + isbn
	}

	url := fmt.Sprintf("%s/api/books?bibkeys=%s&jscmd=data&format=json",
		c.baseURL, strings.Join(bibkeys, ","))

	var raw map[string]bookDetails
	if err := c.get(ctx, url, &raw); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Printf("openlibrary lookup of %d isbns failed, reporting all absent: %v", len(isbns), err)
		return map[string]domain.BookMetadata{}, nil
	}

	found := make(map[string]domain.BookMetadata, len(raw))
	for key, details := range raw {
		isbn := strings.TrimPrefix(key, "ISBN:")
		found[isbn] = toMetadata(isbn, details)
	}
	return found, nil
}

func toMetadata(isbn string, details bookDetails) domain.BookMetadata {
	meta := domain.BookMetadata{
		ISBN:          isbn,
		Title:         details.Title,
		Subtitle:      details.Subtitle,
		PublishedDate: details.PublishDate,
		CoverURL:      details.Cover.Large,
		PageCount:     details.NumberOfPages,
	}
	for _, author := range details.Authors {
		meta.Authors = append(meta.Authors, author.Name)
	}
	if len(details.Publishers) > 0 {
		meta.Publisher = details.Publishers[0].Name
	}
	for _, subject := range details.Subjects {
		meta.Subjects = append(meta.Subjects, subject.Name)
	}
	return meta
}

func (c *Client) get(ctx context.Context, url string, target any) error {
	var lastErr error
	for i := 0; i <= c.maxRetries; i++ {
		if i > 0 {
			backoff := time.Duration(1<<uint(i-1)) * time.Second
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		if c.userAgent != "" {
			req.Header.Set("User-Agent", c.userAgent)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastErr = fmt.Errorf("unexpected status code: %d", resp.StatusCode)
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				continue
			}
			return lastErr
		}

		err = json.NewDecoder(resp.Body).Decode(target)
		resp.Body.Close()
		return err
	}
	return fmt.Errorf("after %d retries: %w", c.maxRetries, lastErr)
}
