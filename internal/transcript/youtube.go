package transcript

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ytrag/internal/domain"
)

const (
	DefaultYouTubeBaseURL = "https://www.youtube.com"
	DefaultLanguage       = "en"
)

// YouTubeConfig configures the timed-text fetcher.
type YouTubeConfig struct {
	BaseURL  string
	Language string
	Timeout  time.Duration
}

// YouTubeFetcher reads captions from the YouTube timed-text endpoint.
type YouTubeFetcher struct {
	baseURL  string
	language string
	client   *http.Client
}

func NewYouTubeFetcher(cfg YouTubeConfig) *YouTubeFetcher {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultYouTubeBaseURL
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	t := cfg.Timeout
	if t == 0 {
		t = 30 * time.Second
	}
	return &YouTubeFetcher{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		language: cfg.Language,
		client:   &http.Client{Timeout: t},
	}
}

type timedText struct {
	XMLName xml.Name `xml:"transcript"`
	Texts   []struct {
		Start string `xml:"start,attr"`
		Dur   string `xml:"dur,attr"`
		Body  string `xml:",chardata"`
	} `xml:"text"`
}

// Fetch returns the caption segments of videoID. It does not retry.
func (f *YouTubeFetcher) Fetch(ctx context.Context, videoID string) ([]domain.Segment, error) {
	q := url.Values{}
	q.Set("v", videoID)
	q.Set("lang", f.language)
	endpoint := fmt.Sprintf("%s/api/timedtext?%s", f.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, domain.Wrap(domain.ErrUpstream, "build transcript request", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, domain.Wrap(domain.ErrUpstream, "fetch transcript "+videoID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("video %s: %w", videoID, domain.ErrTranscriptNotFound)
	}
	if resp.StatusCode >= 300 {
		return nil, domain.Wrap(domain.ErrUpstream, "fetch transcript "+videoID, fmt.Errorf("status %s", resp.Status))
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.Wrap(domain.ErrUpstream, "read transcript "+videoID, err)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, fmt.Errorf("video %s: %w", videoID, domain.ErrTranscriptNotFound)
	}

	segments, err := parseTimedText(body)
	if err != nil {
		return nil, domain.Wrap(domain.ErrUpstream, "parse transcript "+videoID, err)
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("video %s: %w", videoID, domain.ErrTranscriptNotFound)
	}
	return segments, nil
}

func parseTimedText(body []byte) ([]domain.Segment, error) {
	var doc timedText
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, err
	}
	segments := make([]domain.Segment, 0, len(doc.Texts))
	for _, t := range doc.Texts {
		text := strings.TrimSpace(html.UnescapeString(t.Body))
		if text == "" {
			continue
		}
		segments = append(segments, domain.Segment{
			Text:     text,
			Start:    seconds(t.Start),
			Duration: seconds(t.Dur),
		})
	}
	return segments, nil
}

func seconds(s string) time.Duration {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return fromSeconds(v)
}

func fromSeconds(v float64) time.Duration {
	if v < 0 {
		return 0
	}
	return time.Duration(math.Round(v * float64(time.Second)))
}
