package dataset

import (
	"crypto/sha256"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Field separator for the canonical row encoding. The unit separator
// cannot appear in valid cell text, so "a","bc" never collides with
// "ab","c".
const digestSeparator = "\x1f"

// rowDigest hashes the canonical encoding of one row: name=value pairs in
// column order, nil cells skipped. Skipping nils keeps the digest stable
// when the column set grows mid-stream (JSON inputs): a logical row hashes
// the same whether its missing columns are absent or nil-padded.
func rowDigest(columns []string, values []any, b *strings.Builder) [sha256.Size]byte {
	b.Reset()
	for i, name := range columns {
		if i >= len(values) || values[i] == nil {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(digestSeparator)
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(CanonicalString(values[i]))
	}
	return sha256.Sum256([]byte(b.String()))
}

// CanonicalString renders a cell value as a stable string. All scalar
// shapes the adapters produce are covered explicitly; the fallback is a
// last resort for values injected by tests.
func CanonicalString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return "false"
	case int:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
