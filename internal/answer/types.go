// Package answer turns raw model completions into structured encyclopedia
// answers and validates the optional visual facets they carry.
package answer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/kalambet/ensiklopedia/internal/i18n"
)

// Source is a grounding reference. It serializes as {"web":{"uri","title"}}
// so browser clients can render it without mapping.
type Source struct {
	URI   string
	Title string
}

type webSource struct {
	Web struct {
		URI   string `json:"uri"`
		Title string `json:"title"`
	} `json:"web"`
}

func (s Source) MarshalJSON() ([]byte, error) {
	var w webSource
	w.Web.URI = s.URI
	w.Web.Title = s.Title
	return json.Marshal(w)
}

func (s *Source) UnmarshalJSON(b []byte) error {
	var w webSource
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	s.URI, s.Title = w.Web.URI, w.Web.Title
	return nil
}

// NormalizeSources drops references without a URI and defaults a missing
// title to the URI. Order is preserved.
func NormalizeSources(refs []Source) []Source {
	out := make([]Source, 0, len(refs))
	for _, r := range refs {
		if r.URI == "" {
			continue
		}
		if r.Title == "" {
			r.Title = r.URI
		}
		out = append(out, r)
	}
	return out
}

// Year is a number-or-string year as emitted by the model ("711", 711,
// "c. 780 CE"). The zero value means no year was given.
type Year struct {
	num   float64
	str   string
	isNum bool
	set   bool
}

// NumberYear returns a numeric year.
func NumberYear(n float64) Year { return Year{num: n, isNum: true, set: true} }

// StringYear returns a free-text year.
func StringYear(s string) Year { return Year{str: s, set: true} }

// IsZero reports whether no year was given.
func (y Year) IsZero() bool { return !y.set }

// Equal reports whether both years carry the same value.
func (y Year) Equal(o Year) bool { return y == o }

func (y Year) String() string {
	switch {
	case !y.set:
		return ""
	case y.isNum:
		return strconv.FormatFloat(y.num, 'f', -1, 64)
	default:
		return y.str
	}
}

func (y Year) MarshalJSON() ([]byte, error) {
	switch {
	case !y.set:
		return []byte("null"), nil
	case y.isNum:
		return json.Marshal(y.num)
	default:
		return json.Marshal(y.str)
	}
}

func (y *Year) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*y = Year{}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*y = StringYear(s)
		return nil
	}
	var n float64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("year must be a number or a string: %w", err)
	}
	*y = NumberYear(n)
	return nil
}

// KeyTerm is a glossary entry.
type KeyTerm struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
	Etymology  string `json:"etymology,omitempty"`
}

// TimelineEvent is one entry of a historical timeline.
type TimelineEvent struct {
	Year         Year   `json:"year"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Significance string `json:"significance,omitempty"`
}

// Figure is a short biography of a key person.
type Figure struct {
	Name             string   `json:"name"`
	Lifespan         string   `json:"lifespan"`
	Summary          string   `json:"summary"`
	KeyContributions []string `json:"key_contributions,omitempty"`
}

// LatLng is a [latitude, longitude] pair.
type LatLng [2]float64

func (ll *LatLng) UnmarshalJSON(b []byte) error {
	var pair []float64
	if err := json.Unmarshal(b, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("coordinate pair has %d elements", len(pair))
	}
	ll[0], ll[1] = pair[0], pair[1]
	return nil
}

// Marker is a point of interest on the answer map.
type Marker struct {
	Position     LatLng `json:"position"`
	PopupContent string `json:"popupContent"`
	Year         Year   `json:"year,omitzero"`
}

// Map is the optional geographic facet of an answer.
type Map struct {
	Center  LatLng          `json:"center"`
	Zoom    float64         `json:"zoom"`
	GeoJSON json.RawMessage `json:"geojson,omitempty"`
	Markers []Marker        `json:"markers,omitempty"`
	// Route is the chronological numbering of Markers, filled at parse time.
	Route *Route `json:"route,omitempty"`
}

// Chart kinds accepted by the sanitizer.
const (
	ChartBar      = "bar"
	ChartLine     = "line"
	ChartTimeline = "timeline"
)

// ChartRecord is one data row. Data keys hold float64 or nil after
// sanitization; other fields are carried through as decoded.
type ChartRecord map[string]any

// Chart is the optional data-visualization facet of an answer.
type Chart struct {
	Title      string        `json:"title,omitempty"`
	Type       string        `json:"type"`
	Data       []ChartRecord `json:"data"`
	XAxisKey   string        `json:"xAxisKey"`
	DataKeys   []string      `json:"dataKeys"`
	YAxisLabel string        `json:"yAxisLabel,omitempty"`
}

// Structured is a normalized per-language answer.
type Structured struct {
	Text           string          `json:"text"`
	Sources        []Source        `json:"sources"`
	Chart          *Chart          `json:"chart,omitempty"`
	Map            *Map            `json:"map,omitempty"`
	KeyTerms       []KeyTerm       `json:"keyTerms,omitempty"`
	Timeline       []TimelineEvent `json:"timeline,omitempty"`
	Figures        []Figure        `json:"figures,omitempty"`
	GeneratedImage string          `json:"generatedImage,omitempty"`
	AccessDate     string          `json:"accessDate"`
}

// MultiLanguage holds one structured answer per supported language.
type MultiLanguage struct {
	ID Structured `json:"id"`
	AR Structured `json:"ar"`
	EN Structured `json:"en"`
}

// Get returns the answer for lang, falling back to the default language.
func (m *MultiLanguage) Get(lang i18n.Lang) Structured {
	switch lang {
	case i18n.AR:
		return m.AR
	case i18n.EN:
		return m.EN
	default:
		return m.ID
	}
}

// Set stores s as the answer for lang. Unsupported languages are ignored.
func (m *MultiLanguage) Set(lang i18n.Lang, s Structured) {
	switch lang {
	case i18n.ID:
		m.ID = s
	case i18n.AR:
		m.AR = s
	case i18n.EN:
		m.EN = s
	}
}
