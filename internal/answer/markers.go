package answer

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// RouteStop is a marker with its chronological number. Number is zero for
// markers that carry no usable year.
type RouteStop struct {
	Marker
	Number int `json:"number,omitempty"`
}

// Route orders markers chronologically and connects the dated ones.
type Route struct {
	Stops []RouteStop `json:"stops"`
	// Path joins the numbered stops in order; nil when fewer than two.
	Path []LatLng `json:"path,omitempty"`
}

// SequenceMarkers numbers markers with a parsable year 1..N in ascending
// year order (ties keep input order) and appends the rest unnumbered in
// their original order.
func SequenceMarkers(markers []Marker) Route {
	type dated struct {
		m    Marker
		year float64
	}
	var withYear []dated
	var undated []Marker
	for _, m := range markers {
		y := parseYear(m.Year)
		if math.IsInf(y, 1) {
			undated = append(undated, m)
			continue
		}
		withYear = append(withYear, dated{m: m, year: y})
	}
	sort.SliceStable(withYear, func(i, j int) bool {
		return withYear[i].year < withYear[j].year
	})

	r := Route{Stops: make([]RouteStop, 0, len(markers))}
	for i, d := range withYear {
		r.Stops = append(r.Stops, RouteStop{Marker: d.m, Number: i + 1})
	}
	for _, m := range undated {
		r.Stops = append(r.Stops, RouteStop{Marker: m})
	}
	if len(withYear) >= 2 {
		r.Path = make([]LatLng, len(withYear))
		for i, d := range withYear {
			r.Path[i] = d.m.Position
		}
	}
	return r
}

// parseYear returns +Inf for a missing year or one without digits.
// String years keep only their digits, so "c. 780 CE" reads as 780.
func parseYear(y Year) float64 {
	if y.IsZero() {
		return math.Inf(1)
	}
	if y.isNum {
		return y.num
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, y.str)
	n, err := strconv.Atoi(digits)
	if err != nil {
		return math.Inf(1)
	}
	return float64(n)
}
