package answer

import "github.com/kalambet/ensiklopedia/internal/i18n"

var landmarks = []struct {
	key string
	pos LatLng
}{
	{"map_mecca", LatLng{21.4225, 39.8262}},
	{"map_medina", LatLng{24.4686, 39.6142}},
	{"map_jerusalem", LatLng{31.7683, 35.2137}},
	{"map_baghdad", LatLng{33.3152, 44.3661}},
	{"map_cairo", LatLng{30.0444, 31.2357}},
	{"map_istanbul", LatLng{41.0082, 28.9784}},
}

// DefaultMap is the overview shown when an answer has no map of its own:
// the historic centers of Islamic civilization, labeled in lang.
func DefaultMap(lang i18n.Lang) *Map {
	m := &Map{Center: LatLng{25, 45}, Zoom: 4}
	for _, l := range landmarks {
		m.Markers = append(m.Markers, Marker{
			Position:     l.pos,
			PopupContent: i18n.T(lang, l.key, nil),
		})
	}
	return m
}
