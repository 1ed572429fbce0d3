// Package transcript fetches timed transcripts and flattens them into the
// single text stream handed to the chunker.
package transcript

import (
	"fmt"
	"strings"
	"time"

	"ytrag/internal/domain"
)

// ExtractVideoID accepts a bare id or a URL carrying "v=<id>". Everything
// after the first '=' up to the next '&' is the id; input without '=' is
// returned unchanged apart from surrounding whitespace.
func ExtractVideoID(input string) string {
	id := strings.TrimSpace(input)
	_, after, found := strings.Cut(id, "=")
	if !found {
		return id
	}
	id, _, _ = strings.Cut(after, "&")
	return id
}

// Normalize joins segments into one stream separated by single spaces. With
// timestamps each segment is prefixed by its start time as [HH:MM:SS]. The
// choice is made once at ingestion; chunks cannot be re-derived later.
func Normalize(segments []domain.Segment, withTimestamps bool) string {
	var b strings.Builder
	for _, seg := range segments {
		text := strings.Join(strings.Fields(seg.Text), " ")
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		if withTimestamps {
			b.WriteString(FormatTimestamp(seg.Start))
			b.WriteByte(' ')
		}
		b.WriteString(text)
	}
	return b.String()
}

// FormatTimestamp renders d as [HH:MM:SS], truncating fractions of a second.
func FormatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("[%02d:%02d:%02d]", total/3600, (total/60)%60, total%60)
}
