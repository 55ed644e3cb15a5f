package controller

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"ytsummarizer/internal/domain"
)

const (
	initialLineBufferBytes = 4 << 10
	maxErrorBodyBytes      = 4 << 10
)

var (
	ErrLineTooLong = errors.New("summary line is too long")
	ErrInvalidUTF8 = errors.New("summary line is not valid UTF-8")
)

// StatusError is returned when the endpoint answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("summarize endpoint returned status %d", e.StatusCode)
	}

	return fmt.Sprintf("summarize endpoint returned status %d: %s", e.StatusCode, e.Message)
}

type summarizeBody struct {
	Link string `json:"link"`
}

func (c *Controller) stream(
	ctx context.Context,
	op *operation,
	log *slog.Logger,
) (string, error) {
	payload, err := json.Marshal(summarizeBody{Link: op.req.VideoURL()})
	if err != nil {
		return "", fmt.Errorf("encode body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/plain")

	if err = ctx.Err(); err != nil {
		return "", err
	}

	resp, err := c.client.Do(req) //nolint:gosec // configured endpoint
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.ErrorContext(ctx, "Failed to close response body",
				"error", closeErr)
		}
	}()

	log.InfoContext(ctx, "Summarize response is received",
		"statusCode", resp.StatusCode)

	if err = ctx.Err(); err != nil {
		return "", err
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", readStatusError(resp)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, min(initialLineBufferBytes, c.maxLineBytes)), c.maxLineBytes)

	var partial strings.Builder
	lines := 0

	for scanner.Scan() {
		if err = ctx.Err(); err != nil {
			return partial.String(), err
		}

		line := scanner.Bytes()
		if !utf8.Valid(line) {
			return partial.String(), fmt.Errorf("%w (line = %d)", ErrInvalidUTF8, lines+1)
		}

		if lines > 0 {
			partial.WriteString(c.separator)
		}
		partial.Write(line)
		lines++

		if !c.publish(op, domain.Streaming(partial.String())) {
			return partial.String(), context.Canceled
		}
	}

	if err = scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return partial.String(), fmt.Errorf("%w (limit = %d bytes)", ErrLineTooLong, c.maxLineBytes)
		}

		return partial.String(), fmt.Errorf("read body: %w", err)
	}

	log.InfoContext(ctx, "Summary stream is finished",
		"lines", lines,
		"chars", partial.Len())

	return partial.String(), nil
}

func readStatusError(resp *http.Response) error {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if err != nil {
		return &StatusError{StatusCode: resp.StatusCode}
	}

	return &StatusError{
		StatusCode: resp.StatusCode,
		Message:    errorBodyMessage(raw),
	}
}

// errorBodyMessage extracts {"error": "..."} or {"detail": "..."} from a JSON
// error body and falls back to the trimmed text.
func errorBodyMessage(raw []byte) string {
	var body struct {
		Error  string          `json:"error"`
		Detail json.RawMessage `json:"detail"`
	}

	if err := json.Unmarshal(raw, &body); err == nil {
		if msg := strings.TrimSpace(body.Error); msg != "" {
			return msg
		}

		var detail string
		if err = json.Unmarshal(body.Detail, &detail); err == nil && strings.TrimSpace(detail) != "" {
			return strings.TrimSpace(detail)
		}

		if len(body.Detail) != 0 {
			return string(body.Detail)
		}
	}

	return strings.TrimSpace(strings.ToValidUTF8(string(raw), "?"))
}

// userMessage renders err as the text shown in the Failed state.
func userMessage(err error) string {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Error()
	}

	if errors.Is(err, ErrLineTooLong) || errors.Is(err, ErrInvalidUTF8) {
		return "Could not decode the summary stream: " + err.Error()
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return "The summarize service timed out: " + urlErr.Err.Error()
		}

		return "Could not reach the summarize service: " + urlErr.Err.Error()
	}

	return err.Error()
}
