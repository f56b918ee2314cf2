package answer

import (
	"bytes"
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	nonNumeric   = regexp.MustCompile(`[^0-9.-]+`)
	floatPrefix  = regexp.MustCompile(`^-?(?:[0-9]+\.?[0-9]*|\.[0-9]+)`)
	allowedChart = map[string]bool{ChartBar: true, ChartLine: true, ChartTimeline: true}
)

type rawChart struct {
	Title      any `json:"title"`
	Type       any `json:"type"`
	Data       any `json:"data"`
	XAxisKey   any `json:"xAxisKey"`
	DataKeys   any `json:"dataKeys"`
	YAxisLabel any `json:"yAxisLabel"`
}

// SanitizeChart validates a chart facet and coerces its data values to
// numbers. It returns nil when the chart is structurally invalid or no
// record survives.
func SanitizeChart(raw json.RawMessage) *Chart {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var rc rawChart
	if err := dec.Decode(&rc); err != nil {
		return nil
	}

	typ, _ := rc.Type.(string)
	if !allowedChart[typ] {
		return nil
	}
	rows, ok := rc.Data.([]any)
	if !ok {
		return nil
	}
	xKey, _ := rc.XAxisKey.(string)
	if xKey == "" {
		return nil
	}
	keyList, ok := rc.DataKeys.([]any)
	if !ok || len(keyList) == 0 {
		return nil
	}
	dataKeys := make([]string, 0, len(keyList))
	for _, k := range keyList {
		s, ok := k.(string)
		if !ok {
			return nil
		}
		dataKeys = append(dataKeys, s)
	}

	var records []ChartRecord
	for _, row := range rows {
		obj, ok := row.(map[string]any)
		if !ok {
			continue
		}
		if x, ok := obj[xKey]; !ok || x == nil {
			continue
		}
		rec := make(ChartRecord, len(obj))
		for k, v := range obj {
			rec[k] = v
		}
		hasValue := false
		for _, k := range dataKeys {
			n, ok := coerceNumber(obj[k])
			if ok {
				rec[k] = n
				hasValue = true
			} else {
				rec[k] = nil
			}
		}
		if hasValue {
			records = append(records, rec)
		}
	}
	if len(records) == 0 {
		return nil
	}

	c := &Chart{
		Type:     typ,
		Data:     records,
		XAxisKey: xKey,
		DataKeys: dataKeys,
	}
	c.Title, _ = rc.Title.(string)
	c.YAxisLabel, _ = rc.YAxisLabel.(string)
	return c
}

// coerceNumber turns a decoded JSON value into a finite float64. Strings are
// stripped down to digits, dots and minus signs and the longest numeric
// prefix is parsed, so "1,234 dinars" reads as 1234.
func coerceNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	case string:
		return parseFloatPrefix(nonNumeric.ReplaceAllString(t, ""))
	}
	return 0, false
}

func parseFloatPrefix(s string) (float64, bool) {
	m := floatPrefix.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSuffix(m, "."), 64)
	if err != nil || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
