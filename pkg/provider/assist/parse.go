package assist

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/voxjot/voxjot/pkg/types"
)

// analysisPayload is the loose wire shape models respond with. Validation
// into the strict Analysis union happens in ParseAnalysis.
type analysisPayload struct {
	IsMedia  bool     `json:"isMedia"`
	Type     string   `json:"type"`
	Topic    string   `json:"topic"`
	Content  string   `json:"content"`
	Category string   `json:"category"`
	Keywords []string `json:"keywords"`
	Media    *struct {
		Title        string `json:"title"`
		Creator      string `json:"creator"`
		Genre        string `json:"genre"`
		CoverImage   string `json:"coverImage"`
		RegionOrYear string `json:"regionOrYear"`
	} `json:"media"`
}

// ParseAnalysis validates a raw model response against the Analysis JSON
// contract. Markdown code fences around the object are tolerated (several
// backends add them despite instructions). Any malformed payload — bad JSON,
// an unknown type tag, a media entry without a title — returns an error;
// callers convert that into the deterministic analysis fallback.
func ParseAnalysis(raw string) (Analysis, error) {
	cleaned := stripFences(raw)

	var p analysisPayload
	if err := json.Unmarshal([]byte(cleaned), &p); err != nil {
		return Analysis{}, fmt.Errorf("assist: unmarshal analysis: %w", err)
	}

	kind := types.RecordKind(p.Type)
	if p.Type == "" {
		kind = types.KindNote
	}
	if !kind.IsValid() {
		return Analysis{}, fmt.Errorf("assist: unknown record type %q", p.Type)
	}

	if p.IsMedia != kind.IsMedia() {
		return Analysis{}, fmt.Errorf("assist: isMedia=%v contradicts type %q", p.IsMedia, kind)
	}

	a := Analysis{
		IsMedia:  p.IsMedia,
		Kind:     kind,
		Topic:    strings.TrimSpace(p.Topic),
		Content:  p.Content,
		Category: strings.TrimSpace(p.Category),
		Keywords: p.Keywords,
	}

	if p.IsMedia {
		if p.Media == nil || strings.TrimSpace(p.Media.Title) == "" {
			return Analysis{}, fmt.Errorf("assist: media analysis without a title")
		}
		a.Media = &types.MediaMeta{
			Title:        strings.TrimSpace(p.Media.Title),
			Creator:      p.Media.Creator,
			Genre:        p.Media.Genre,
			CoverImage:   p.Media.CoverImage,
			RegionOrYear: p.Media.RegionOrYear,
		}
	}

	return a, nil
}

// ParseKeywords validates a raw model response for the keyword-extraction
// operation: a JSON array of strings, optionally fenced. Blank entries are
// dropped.
func ParseKeywords(raw string) ([]string, error) {
	cleaned := stripFences(raw)

	var kws []string
	if err := json.Unmarshal([]byte(cleaned), &kws); err != nil {
		return nil, fmt.Errorf("assist: unmarshal keywords: %w", err)
	}

	out := kws[:0]
	for _, kw := range kws {
		if kw = strings.TrimSpace(kw); kw != "" {
			out = append(out, kw)
		}
	}
	return out, nil
}

// stripFences removes a surrounding markdown code fence (``` or ```json) from
// a model response, if present.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		// Drop the language tag line ("json", "").
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
