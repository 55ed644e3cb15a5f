package video

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"ytsummarizer/internal/domain"

	"github.com/PuerkitoBio/goquery"
)

const (
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127.0.0.0 Safari/537.36"

	infoClientTimeout   = 15 * time.Second
	infoCacheMaxEntries = 256
	infoCacheTTL        = 6 * time.Hour
)

// InfoFetcher scrapes title, uploader, description and thumbnail from a
// video's watch page.
type InfoFetcher struct {
	client  *http.Client
	cache   *infoCache
	baseURL string
	now     func() time.Time
	log     *slog.Logger
}

func NewInfoFetcher(log *slog.Logger) *InfoFetcher {
	return &InfoFetcher{
		client:  &http.Client{Timeout: infoClientTimeout},
		cache:   newInfoCache(infoCacheMaxEntries),
		baseURL: watchBaseURL,
		now:     time.Now,
		log:     log,
	}
}

// Fetch returns metadata for the video behind raw. Unrecognised links are
// scraped directly; YouTube links are fetched through the canonical watch
// URL and cached by video ID.
func (f *InfoFetcher) Fetch(ctx context.Context, raw string) (domain.VideoInfo, error) {
	u, err := domain.ParseVideoURL(raw)
	if err != nil {
		return domain.VideoInfo{}, err
	}

	pageURL := u.String()

	id, idErr := ParseVideoID(raw)
	if idErr == nil {
		if info, ok := f.cache.get(id, f.now()); ok {
			return info, nil
		}

		pageURL = f.baseURL + "?v=" + id
	}

	info, err := f.scrape(ctx, pageURL)
	if err != nil {
		return domain.VideoInfo{}, err
	}

	info.URL = u.String()

	if idErr == nil {
		info.ID = id
		if info.ThumbnailURL == "" {
			info.ThumbnailURL = ThumbnailURL(id)
		}

		f.cache.set(id, info, f.now().Add(infoCacheTTL), f.now())
	}

	if info.Title == "" {
		f.log.WarnContext(ctx, "Empty video title",
			"pageURL", pageURL,
			"fallbackTitle", info.URL)

		info.Title = info.URL
	}

	return info, nil
}

func (f *InfoFetcher) scrape(ctx context.Context, pageURL string) (domain.VideoInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return domain.VideoInfo{}, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req) //nolint:gosec // user supplied video URL
	if err != nil {
		return domain.VideoInfo{}, fmt.Errorf("do request: %w", err)
	}
	defer func() {
		if err = resp.Body.Close(); err != nil {
			f.log.ErrorContext(ctx, "Failed to close response body",
				"error", err,
				"pageURL", pageURL,
				"operation", "scrape")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return domain.VideoInfo{}, fmt.Errorf("do request: unexpected status: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return domain.VideoInfo{}, fmt.Errorf("create document from reader: %w", err)
	}

	return parseInfoDocument(doc), nil
}

func parseInfoDocument(doc *goquery.Document) domain.VideoInfo {
	uploader := firstAttr(doc, "content",
		"span[itemprop='author'] link[itemprop='name']",
		"link[itemprop='name']",
		"meta[name='author']")

	info := domain.VideoInfo{
		Title:        firstAttr(doc, "content", "meta[property='og:title']", "meta[name='title']"),
		Uploader:     uploader,
		Description:  firstAttr(doc, "content", "meta[property='og:description']", "meta[name='description']"),
		ThumbnailURL: firstAttr(doc, "content", "meta[property='og:image']"),
	}

	if info.Title == "" {
		info.Title = strings.TrimSuffix(strings.TrimSpace(doc.Find("title").First().Text()), " - YouTube")
	}

	return info
}

func firstAttr(doc *goquery.Document, attr string, selectors ...string) string {
	for _, selector := range selectors {
		if value, ok := doc.Find(selector).First().Attr(attr); ok {
			if value = strings.TrimSpace(value); value != "" {
				return value
			}
		}
	}

	return ""
}
