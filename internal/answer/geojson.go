package answer

import (
	"bytes"
	"encoding/json"
)

var geometryTypes = map[string]bool{
	"Point":           true,
	"MultiPoint":      true,
	"LineString":      true,
	"MultiLineString": true,
	"Polygon":         true,
	"MultiPolygon":    true,
}

// ValidGeoJSON performs a shallow structural check of a GeoJSON object.
// It looks at the top-level type and the one member that type requires;
// nested features and coordinates are not inspected.
func ValidGeoJSON(raw json.RawMessage) bool {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return false
	}
	var typ string
	if err := json.Unmarshal(obj["type"], &typ); err != nil {
		return false
	}

	switch {
	case typ == "FeatureCollection":
		return isArray(obj["features"])
	case typ == "Feature":
		_, ok := obj["geometry"]
		return ok
	case typ == "GeometryCollection":
		return isArray(obj["geometries"])
	case geometryTypes[typ]:
		return isArray(obj["coordinates"])
	}
	return false
}

func isArray(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}
