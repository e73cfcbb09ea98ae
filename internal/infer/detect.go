package infer

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// Acceptance thresholds per detector. A detector claims the column only
// when its match ratio over the sample reaches its threshold.
const (
	thresholdUUID     = 0.98
	thresholdEmail    = 0.95
	thresholdIP       = 0.98
	thresholdURL      = 0.95
	thresholdPhone    = 0.90
	thresholdTemporal = 0.90
	thresholdNumeric  = 0.90
	thresholdJSON     = 0.90
	thresholdGeo      = 0.95
)

var (
	uuidRe  = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	ipv4Re  = regexp.MustCompile(`^(\d{1,3})\.(\d{1,3})\.(\d{1,3})\.(\d{1,3})$`)
	urlRe   = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.\-]*://\S+$`)
	geoRe   = regexp.MustCompile(`^([-+]?\d{1,2}(?:\.\d+)?),\s*([-+]?\d{1,3}(?:\.\d+)?)$`)
)

func isUUID(s string) bool { return uuidRe.MatchString(s) }

func isEmail(s string) bool { return emailRe.MatchString(s) }

func isIPv4(s string) bool {
	m := ipv4Re.FindStringSubmatch(s)
	if m == nil {
		return false
	}
	for _, octet := range m[1:] {
		n, err := strconv.Atoi(octet)
		if err != nil || n > 255 {
			return false
		}
	}
	return true
}

func isURL(s string) bool { return urlRe.MatchString(s) }

// isPhone accepts an optional leading +, then 7 to 15 digits with
// spaces, dashes, dots and parentheses as separators.
func isPhone(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	if s[0] == '+' {
		s = s[1:]
	}
	digits := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == ' ' || r == '-' || r == '.' || r == '(' || r == ')':
		default:
			return false
		}
	}
	return digits >= 7 && digits <= 15
}

func isJSONValue(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || (s[0] != '{' && s[0] != '[') {
		return false
	}
	return json.Valid([]byte(s))
}

func isGeo(s string) bool {
	m := geoRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return false
	}
	lat, err1 := strconv.ParseFloat(m[1], 64)
	lon, err2 := strconv.ParseFloat(m[2], 64)
	if err1 != nil || err2 != nil {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// Infer decides the semantic type of a column from its non-null values.
// At most sampleCap values are examined; sampleCap <= 0 means no cap.
// The returned confidence is the sample match ratio of the winning
// detector, or 1.0 for the string fallback.
func Infer(values []string, sampleCap int) (ColumnType, float64) {
	if len(values) == 0 {
		return TypeString, 1.0
	}
	sample := values
	if sampleCap > 0 && len(sample) > sampleCap {
		sample = sample[:sampleCap]
	}
	n := float64(len(sample))

	ratio := func(pred func(string) bool) float64 {
		hits := 0
		for _, v := range sample {
			if pred(v) {
				hits++
			}
		}
		return float64(hits) / n
	}

	if r := ratio(isUUID); r >= thresholdUUID {
		return TypeUUID, r
	}
	if r := ratio(isEmail); r >= thresholdEmail {
		return TypeEmail, r
	}
	if r := ratio(isIPv4); r >= thresholdIP {
		return TypeIP, r
	}
	if r := ratio(isURL); r >= thresholdURL {
		return TypeURL, r
	}
	if r := ratio(isPhone); r >= thresholdPhone {
		return TypePhone, r
	}

	// Date and timestamp share one pass: a column is temporal when
	// enough values parse under either family, and it is a timestamp
	// column when time-of-day layouts won more values than date-only.
	dateHits, tsHits := 0, 0
	for _, v := range sample {
		if _, ok := ParseTimestamp(v); ok {
			tsHits++
		} else if _, ok := ParseDate(v); ok {
			dateHits++
		}
	}
	if r := float64(dateHits+tsHits) / n; r >= thresholdTemporal {
		if tsHits > dateHits {
			return TypeTimestamp, r
		}
		return TypeDate, r
	}

	// Numeric family. Currency and percentage marks are checked on the
	// raw value before the symbol-stripping parse; rating demands every
	// sampled value be a number in [0, 5].
	var numHits, curHits, pctHits, ratingHits int
	for _, v := range sample {
		f, ok := ParseNumeric(v)
		if !ok {
			continue
		}
		numHits++
		if hasCurrencyMark(strings.TrimSpace(v)) {
			curHits++
		}
		if strings.HasSuffix(strings.TrimSpace(v), "%") {
			pctHits++
		}
		if f >= 0 && f <= 5 {
			ratingHits++
		}
	}
	if r := float64(curHits) / n; r >= thresholdNumeric {
		return TypeCurrency, r
	}
	if r := float64(pctHits) / n; r >= thresholdNumeric {
		return TypePercentage, r
	}
	if ratingHits == len(sample) {
		return TypeRating, 1.0
	}
	if r := float64(numHits) / n; r >= thresholdNumeric {
		return TypeNumber, r
	}

	if r := ratio(isJSONValue); r >= thresholdJSON {
		return TypeJSON, r
	}
	if r := ratio(isGeo); r >= thresholdGeo {
		return TypeGeo, r
	}
	return TypeString, 1.0
}

// Validate reports whether a single value conforms to the given type.
// The consistency metric re-runs the winning type's predicate over the
// full column with this.
func Validate(t ColumnType, v string) bool {
	switch t {
	case TypeUUID:
		return isUUID(v)
	case TypeEmail:
		return isEmail(v)
	case TypeIP:
		return isIPv4(v)
	case TypeURL:
		return isURL(v)
	case TypePhone:
		return isPhone(v)
	case TypeDate, TypeTimestamp:
		if _, ok := ParseTimestamp(v); ok {
			return true
		}
		_, ok := ParseDate(v)
		return ok
	case TypeCurrency, TypePercentage, TypeNumber:
		_, ok := ParseNumeric(v)
		return ok
	case TypeRating:
		f, ok := ParseNumeric(v)
		return ok && f >= 0 && f <= 5
	case TypeJSON:
		return isJSONValue(v)
	case TypeGeo:
		return isGeo(v)
	default:
		return true
	}
}
