package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ytsummarizer/internal/domain"
	"ytsummarizer/internal/metrics"
	"ytsummarizer/internal/summarizer"
	"ytsummarizer/internal/video"

	"github.com/gin-gonic/gin"
)

type summarizeBody struct {
	Link string `json:"link"`
}

type simpleSummaryResponse struct {
	Info    domain.VideoInfo `json:"info"`
	Summary string           `json:"summary"`
}

// lineStream writes summary lines to the client. The status line and headers
// go out with the first line so a summarizer that fails before producing
// anything can still answer with an error status.
type lineStream struct {
	c       *gin.Context
	started bool
	text    strings.Builder
}

func (ls *lineStream) start() {
	if ls.started {
		return
	}

	ls.c.Header("Content-Type", "text/plain; charset=utf-8")
	ls.c.Header("X-Content-Type-Options", "nosniff")
	ls.c.Status(http.StatusOK)
	ls.started = true
}

func (ls *lineStream) write(line string) error {
	ls.start()
	ls.text.WriteString(line)

	if _, err := io.WriteString(ls.c.Writer, line); err != nil {
		return fmt.Errorf("write line: %w", err)
	}

	ls.c.Writer.Flush()
	metrics.LinesWrittenTotal.Inc()

	return nil
}

func (s *Server) handleSummarize(c *gin.Context) {
	ctx := c.Request.Context()

	link, ok := bindLink(c)
	if !ok {
		return
	}

	start := time.Now()
	metrics.InFlightStreams.Inc()
	defer metrics.InFlightStreams.Dec()

	videoID := s.videoID(ctx, link)

	if cached := s.cachedSummary(ctx, videoID); cached != nil {
		ls := &lineStream{c: c}
		if err := writeLines(ls, cached.Summary); err != nil {
			s.log.ErrorContext(ctx, "Failed to write cached summary",
				"error", err,
				"videoID", videoID)
		}
		ls.start()

		observe(metrics.ResultCached, start)

		return
	}

	info := s.info(ctx, link)
	input := inputFor(link, info)

	ls := &lineStream{c: c}
	lw := summarizer.NewLineWriter(ls.write)

	err := s.summarizer.Stream(ctx, input, lw.Write)
	if err == nil {
		err = lw.Flush()
	}

	switch {
	case ctx.Err() != nil:
		s.log.InfoContext(ctx, "Client went away while streaming",
			"link", link,
			"writtenChars", ls.text.Len())

		observe(metrics.ResultCancelled, start)
	case err != nil:
		s.log.ErrorContext(ctx, "Failed to stream summary",
			"error", err,
			"link", link,
			"writtenChars", ls.text.Len())

		if !ls.started && lw.Buffered() == 0 {
			c.JSON(http.StatusBadGateway, gin.H{
				"error": err.Error(),
			})
		} else {
			_ = lw.Flush()
			_ = ls.write("Error: " + strings.ReplaceAll(err.Error(), "\n", " ") + "\n")
		}

		observe(metrics.ResultFailed, start)
	default:
		ls.start()
		s.saveSummary(ctx, videoID, input, ls.text.String())

		observe(metrics.ResultCompleted, start)
	}
}

// handleSimpleSummary answers with the whole summary and the video info in
// one JSON document.
func (s *Server) handleSimpleSummary(c *gin.Context) {
	ctx := c.Request.Context()

	link, ok := bindLink(c)
	if !ok {
		return
	}

	start := time.Now()
	videoID := s.videoID(ctx, link)

	info, err := s.resolveInfo(ctx, link, videoID)
	if err != nil {
		s.log.WarnContext(ctx, "Failed to resolve video",
			"error", err,
			"link", link)

		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("resolve video: %v", err),
		})

		return
	}

	if cached := s.cachedSummary(ctx, videoID); cached != nil {
		c.JSON(http.StatusOK, simpleSummaryResponse{Info: info, Summary: cached.Summary})
		observe(metrics.ResultCached, start)

		return
	}

	input := inputFor(link, info)

	var text strings.Builder
	lw := summarizer.NewLineWriter(func(line string) error {
		text.WriteString(line)
		return nil
	})

	err = s.summarizer.Stream(ctx, input, lw.Write)
	if err == nil {
		err = lw.Flush()
	}

	if err != nil {
		s.log.ErrorContext(ctx, "Failed to summarize",
			"error", err,
			"link", link)

		c.JSON(http.StatusBadGateway, gin.H{
			"error": err.Error(),
		})
		observe(metrics.ResultFailed, start)

		return
	}

	s.saveSummary(ctx, videoID, input, text.String())

	c.JSON(http.StatusOK, simpleSummaryResponse{Info: info, Summary: text.String()})
	observe(metrics.ResultCompleted, start)
}

// bindLink reads the link from ?link= or the JSON body and answers 400 when
// it is missing or malformed.
func bindLink(c *gin.Context) (string, bool) {
	link := strings.TrimSpace(c.Query("link"))
	if link == "" {
		var body summarizeBody
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "request body must be a JSON object with a link",
			})
			return "", false
		}
		link = strings.TrimSpace(body.Link)
	}

	if _, err := domain.ParseVideoURL(link); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return "", false
	}

	return link, true
}

func (s *Server) videoID(ctx context.Context, link string) string {
	id, err := video.ParseVideoID(link)
	if err != nil {
		s.log.InfoContext(ctx, "Link has no YouTube video ID so cache is skipped",
			"link", link,
			"reason", err)

		return ""
	}

	return id
}

// resolveInfo fetches metadata, falling back to what the link alone tells
// when no fetcher is configured.
func (s *Server) resolveInfo(ctx context.Context, link string, videoID string) (domain.VideoInfo, error) {
	if s.infoFetcher == nil {
		info := domain.VideoInfo{ID: videoID, URL: link, Title: link}
		if videoID != "" {
			info.ThumbnailURL = video.ThumbnailURL(videoID)
		}

		return info, nil
	}

	return s.infoFetcher.Fetch(ctx, link)
}

func (s *Server) info(ctx context.Context, link string) domain.VideoInfo {
	if s.infoFetcher == nil {
		return domain.VideoInfo{URL: link}
	}

	info, err := s.infoFetcher.Fetch(ctx, link)
	if err != nil {
		s.log.WarnContext(ctx, "Failed to fetch video info so link only will be used",
			"error", err,
			"link", link)

		return domain.VideoInfo{URL: link}
	}

	return info
}

func inputFor(link string, info domain.VideoInfo) summarizer.Input {
	return summarizer.Input{
		Link:        link,
		Title:       info.Title,
		Uploader:    info.Uploader,
		Description: info.Description,
	}
}

func (s *Server) cachedSummary(ctx context.Context, videoID string) *domain.CachedSummary {
	if s.store == nil || videoID == "" {
		return nil
	}

	cached, err := s.store.GetSummary(ctx, videoID, s.now())
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to get cached summary",
			"error", err,
			"videoID", videoID)
	}

	if cached == nil {
		metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
		return nil
	}

	metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()

	return cached
}

func (s *Server) saveSummary(ctx context.Context, videoID string, input summarizer.Input, text string) {
	if s.store == nil || videoID == "" || strings.TrimSpace(text) == "" {
		return
	}

	err := s.store.SaveSummary(ctx, &domain.CachedSummary{
		VideoID:  videoID,
		Link:     input.Link,
		Title:    input.Title,
		Uploader: input.Uploader,
		Summary:  text,
	}, s.now(), s.ttl)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to save summary",
			"error", err,
			"videoID", videoID)
	}
}

func writeLines(ls *lineStream, text string) error {
	lw := summarizer.NewLineWriter(ls.write)

	if err := lw.Write(text); err != nil {
		return err
	}

	return lw.Flush()
}

func observe(result string, start time.Time) {
	metrics.StreamsTotal.WithLabelValues(result).Inc()
	metrics.StreamDurationSeconds.WithLabelValues(result).Observe(time.Since(start).Seconds())
}
