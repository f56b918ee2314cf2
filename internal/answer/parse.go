package answer

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"
)

var fencePattern = regexp.MustCompile("```json\\s*([\\s\\S]*?)\\s*```")

// Parsed is the result of splitting a completion into narrative and facets.
type Parsed struct {
	Text     string
	Chart    *Chart
	Map      *Map
	KeyTerms []KeyTerm
	Timeline []TimelineEvent
	Figures  []Figure
}

// Parse separates the narrative from the trailing ```json block the model is
// instructed to append. When several blocks are present the last one is the
// payload and earlier blocks stay in the narrative. Parse never fails: a
// missing or undecodable block yields text only, and each facet that does
// not validate is dropped on its own.
func Parse(raw string) Parsed {
	locs := fencePattern.FindAllStringSubmatchIndex(raw, -1)
	if len(locs) == 0 {
		return Parsed{Text: strings.TrimSpace(raw)}
	}

	last := locs[len(locs)-1]
	text := strings.TrimSpace(raw[:last[0]] + raw[last[1]:])
	payload := raw[last[2]:last[3]]

	var facets map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &facets); err != nil {
		slog.Warn("answer: discarding undecodable JSON block", "error", err)
		return Parsed{Text: text}
	}

	p := Parsed{Text: text}
	if raw, ok := present(facets, "chart"); ok {
		p.Chart = SanitizeChart(raw)
		if p.Chart == nil {
			slog.Warn("answer: dropping invalid chart")
		}
	}
	if raw, ok := present(facets, "map"); ok {
		p.Map = decodeMap(raw)
	}
	if raw, ok := present(facets, "keyTerms"); ok {
		p.KeyTerms = decodeList[KeyTerm]("keyTerms", raw)
	}
	if raw, ok := present(facets, "timeline"); ok {
		p.Timeline = decodeList[TimelineEvent]("timeline", raw)
	}
	if raw, ok := present(facets, "figures"); ok {
		p.Figures = decodeList[Figure]("figures", raw)
	}
	return p
}

func present(facets map[string]json.RawMessage, key string) (json.RawMessage, bool) {
	raw, ok := facets[key]
	if !ok || isNull(raw) {
		return nil, false
	}
	return raw, true
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func decodeList[T any](facet string, raw json.RawMessage) []T {
	var out []T
	if err := json.Unmarshal(raw, &out); err != nil {
		slog.Warn("answer: dropping undecodable facet", "facet", facet, "error", err)
		return nil
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

type rawMap struct {
	Center  *LatLng           `json:"center"`
	Zoom    *float64          `json:"zoom"`
	GeoJSON json.RawMessage   `json:"geojson"`
	Markers []json.RawMessage `json:"markers"`
}

type rawMarker struct {
	Position     *LatLng `json:"position"`
	PopupContent string  `json:"popupContent"`
	Year         Year    `json:"year"`
}

// defaultZoom applies when the model gives a center without a zoom level.
const defaultZoom = 5

func decodeMap(raw json.RawMessage) *Map {
	var rm rawMap
	if err := json.Unmarshal(raw, &rm); err != nil {
		slog.Warn("answer: dropping undecodable map", "error", err)
		return nil
	}
	if rm.Center == nil {
		slog.Warn("answer: dropping map without center")
		return nil
	}

	m := &Map{Center: *rm.Center, Zoom: defaultZoom}
	if rm.Zoom != nil {
		m.Zoom = *rm.Zoom
	}
	if len(rm.GeoJSON) > 0 && !isNull(rm.GeoJSON) {
		if ValidGeoJSON(rm.GeoJSON) {
			m.GeoJSON = rm.GeoJSON
		} else {
			slog.Warn("answer: dropping invalid geojson")
		}
	}
	for i, mr := range rm.Markers {
		var mk rawMarker
		if err := json.Unmarshal(mr, &mk); err != nil || mk.Position == nil {
			slog.Warn("answer: dropping undecodable marker", "index", i, "error", err)
			continue
		}
		m.Markers = append(m.Markers, Marker{
			Position:     *mk.Position,
			PopupContent: mk.PopupContent,
			Year:         mk.Year,
		})
	}
	if len(m.Markers) > 0 {
		route := SequenceMarkers(m.Markers)
		m.Route = &route
	}
	return m
}
