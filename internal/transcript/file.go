package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ytrag/internal/domain"
)

// FileFetcher reads transcripts saved on disk as <dir>/<id>.json (an array of
// {"text","start","duration"} with times in seconds) or <dir>/<id>.txt.
type FileFetcher struct {
	dir string
}

func NewFileFetcher(dir string) *FileFetcher { return &FileFetcher{dir: dir} }

type fileSegment struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

func (f *FileFetcher) Fetch(_ context.Context, sourceID string) ([]domain.Segment, error) {
	if sourceID == "" || strings.ContainsAny(sourceID, `/\`) || strings.Contains(sourceID, "..") {
		return nil, fmt.Errorf("source %q: %w", sourceID, domain.ErrTranscriptNotFound)
	}

	data, err := os.ReadFile(filepath.Join(f.dir, sourceID+".json"))
	if err == nil {
		var raw []fileSegment
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, domain.Wrap(domain.ErrUpstream, "decode transcript "+sourceID, err)
		}
		segments := make([]domain.Segment, 0, len(raw))
		for _, r := range raw {
			segments = append(segments, domain.Segment{
				Text:     r.Text,
				Start:    fromSeconds(r.Start),
				Duration: fromSeconds(r.Duration),
			})
		}
		if len(segments) == 0 {
			return nil, fmt.Errorf("source %s: %w", sourceID, domain.ErrTranscriptNotFound)
		}
		return segments, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, domain.Wrap(domain.ErrUpstream, "read transcript "+sourceID, err)
	}

	data, err = os.ReadFile(filepath.Join(f.dir, sourceID+".txt"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("source %s: %w", sourceID, domain.ErrTranscriptNotFound)
	}
	if err != nil {
		return nil, domain.Wrap(domain.ErrUpstream, "read transcript "+sourceID, err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, fmt.Errorf("source %s: %w", sourceID, domain.ErrTranscriptNotFound)
	}
	return []domain.Segment{{Text: string(data)}}, nil
}
