package domain

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var ErrInvalidURL = errors.New("invalid video URL")

type StateKind int

const (
	StateIdle StateKind = iota
	StateLoading
	StateStreaming
	StateCompleted
	StateFailed
)

func (k StateKind) String() string {
	switch k {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// RequestState is a snapshot of the controller's request lifecycle.
// Text holds the partial text for Streaming, the final text for Completed
// and the error message for Failed.
type RequestState struct {
	Kind StateKind
	Text string
}

func Idle() RequestState { return RequestState{Kind: StateIdle} }

func Loading() RequestState { return RequestState{Kind: StateLoading} }

func Streaming(partial string) RequestState {
	return RequestState{Kind: StateStreaming, Text: partial}
}

func Completed(final string) RequestState {
	return RequestState{Kind: StateCompleted, Text: final}
}

func Failed(message string) RequestState {
	return RequestState{Kind: StateFailed, Text: message}
}

func (s RequestState) InFlight() bool {
	return s.Kind == StateLoading || s.Kind == StateStreaming
}

func (s RequestState) Terminal() bool {
	return s.Kind == StateCompleted || s.Kind == StateFailed
}

func (s RequestState) String() string {
	return s.Kind.String()
}

// SummarizeRequest is the validated payload of one summarization.
type SummarizeRequest struct {
	videoURL string
}

func NewSummarizeRequest(raw string) (SummarizeRequest, error) {
	u, err := ParseVideoURL(raw)
	if err != nil {
		return SummarizeRequest{}, err
	}

	return SummarizeRequest{videoURL: u.String()}, nil
}

func (r SummarizeRequest) VideoURL() string {
	return r.videoURL
}

// ParseVideoURL accepts only absolute http(s) URLs with a host.
func ParseVideoURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidURL)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}

	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("%w: not absolute (URL = %s)", ErrInvalidURL, raw)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}

	return u, nil
}

type VideoInfo struct {
	ID           string `json:"id"`
	URL          string `json:"-"`
	Title        string `json:"title"`
	Uploader     string `json:"uploader"`
	Description  string `json:"-"`
	ThumbnailURL string `json:"thumbnail_link"`
}

type CachedSummary struct {
	VideoID  string
	Link     string
	Title    string
	Uploader string
	Summary  string
}
