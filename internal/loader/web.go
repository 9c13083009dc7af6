package loader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/viraj200524/Document-Website-Chat/internal/domain"
)

// DefaultFetchTimeout bounds worst-case ingestion latency for URL sources.
const DefaultFetchTimeout = 20 * time.Second

// DefaultMaxRedirects bounds redirect chains on URL fetches.
const DefaultMaxRedirects = 1

// maxFetchBytes caps the response body read from a URL source.
const maxFetchBytes = 8 << 20

// WebConfig configures the web loader.
type WebConfig struct {
	Timeout      time.Duration
	MaxRedirects int
	UserAgent    string
}

// Web loads web pages: it fetches the URL, strips navigational and
// boilerplate markup via readability extraction, and chunks the article
// text. Chunks carry the page title as their section anchor.
type Web struct {
	client    *http.Client
	userAgent string
	splitter  *Splitter
	log       *slog.Logger
}

// NewWeb creates a web loader.
func NewWeb(cfg WebConfig, splitter *Splitter, logger *slog.Logger) *Web {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	maxRedirects := cfg.MaxRedirects
	if maxRedirects < 0 {
		maxRedirects = DefaultMaxRedirects
	}
	client := &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}
	return &Web{client: client, userAgent: cfg.UserAgent, splitter: splitter, log: logger}
}

// Kind returns the source kind this loader handles.
func (w *Web) Kind() domain.SourceKind { return domain.KindURL }

// Load fetches and chunks the page. Identity is the hash of the
// normalized URL: refetching the same page replaces its prior chunks
// instead of duplicating them.
func (w *Web) Load(ctx context.Context, in Input) (domain.Source, []domain.Chunk, error) {
	norm, err := normalizeURL(in.URL)
	if err != nil {
		return domain.Source{}, nil, err
	}
	id := hashString(norm)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, in.URL, nil)
	if err != nil {
		return domain.Source{}, nil, fmt.Errorf("%w: %v", domain.ErrFetch, err)
	}
	if w.userAgent != "" {
		req.Header.Set("User-Agent", w.userAgent)
	}
	resp, err := w.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return domain.Source{}, nil, ctx.Err()
		}
		return domain.Source{}, nil, fmt.Errorf("%w: %s: %v", domain.ErrFetch, in.URL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.Source{}, nil, fmt.Errorf("%w: %s: %s", domain.ErrFetch, in.URL, resp.Status)
	}

	mediaType := "text/html"
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err == nil {
			mediaType = mt
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return domain.Source{}, nil, fmt.Errorf("%w: %s: %v", domain.ErrFetch, in.URL, err)
	}

	var title, content string
	switch {
	case mediaType == "text/html" || mediaType == "application/xhtml+xml":
		pageURL := resp.Request.URL
		article, err := readability.FromReader(strings.NewReader(string(body)), pageURL)
		if err != nil {
			return domain.Source{}, nil, fmt.Errorf("%w: %s: %v", domain.ErrParse, in.URL, err)
		}
		title = strings.TrimSpace(article.Title)
		content = article.TextContent
	case strings.HasPrefix(mediaType, "text/"):
		content = string(body)
	default:
		return domain.Source{}, nil, fmt.Errorf("%w: %s served %s", domain.ErrUnsupportedFormat, in.URL, mediaType)
	}
	if strings.TrimSpace(content) == "" {
		return domain.Source{}, nil, fmt.Errorf("%w: %s has no extractable text", domain.ErrParse, in.URL)
	}
	if title == "" {
		title = norm
	}
	w.log.Debug("fetched url", "url", norm, "bytes", len(body), "media_type", mediaType)

	src := domain.Source{
		ID:         id,
		Kind:       domain.KindURL,
		Origin:     in.URL,
		Title:      title,
		IngestedAt: time.Now(),
		Status:     domain.StatusPending,
	}
	spans := w.splitter.Split(content)
	chunks := make([]domain.Chunk, 0, len(spans))
	for i, sp := range spans {
		chunks = append(chunks, domain.Chunk{
			ID:       chunkID(id, i),
			SourceID: id,
			Text:     sp.Text,
			Index:    i,
			Offset:   sp.Start,
			Anchor:   title,
		})
	}
	return src, chunks, nil
}

// normalizeURL canonicalizes a URL for identity: lowercased scheme and
// host, default ports and fragments stripped, trailing slash trimmed.
func normalizeURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: invalid url %q: %v", domain.ErrFetch, raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported url scheme %q", domain.ErrFetch, u.Scheme)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if (u.Scheme == "http" && strings.HasSuffix(u.Host, ":80")) ||
		(u.Scheme == "https" && strings.HasSuffix(u.Host, ":443")) {
		u.Host = u.Host[:strings.LastIndex(u.Host, ":")]
	}
	u.Fragment = ""
	if u.Path != "/" {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}
	return u.String(), nil
}
