// Package infer implements per-column semantic type detection.
//
// Detectors run in a fixed priority order, most structured pattern first.
// Each computes a match ratio over a bounded sample of the column's
// non-null values; the first detector whose ratio clears its acceptance
// threshold wins, and the ratio itself becomes the column's confidence.
// The engine is a pure function of its input: no randomness, no clock.
package infer

// ColumnType is the closed set of semantic column types.
type ColumnType string

const (
	TypeUUID       ColumnType = "uuid"
	TypeEmail      ColumnType = "email"
	TypeIP         ColumnType = "ip"
	TypeURL        ColumnType = "url"
	TypePhone      ColumnType = "phone"
	TypeDate       ColumnType = "date"
	TypeTimestamp  ColumnType = "timestamp"
	TypeCurrency   ColumnType = "currency"
	TypePercentage ColumnType = "percentage"
	TypeRating     ColumnType = "rating"
	TypeNumber     ColumnType = "number"
	TypeJSON       ColumnType = "json"
	TypeGeo        ColumnType = "geo"
	TypeString     ColumnType = "string"
)

// Numeric reports whether values of this type parse to floats for the
// statistics engine (after symbol stripping).
func (t ColumnType) Numeric() bool {
	switch t {
	case TypeNumber, TypeCurrency, TypePercentage, TypeRating:
		return true
	default:
		return false
	}
}

// Types lists every column type in detector priority order, with the
// universal fallback last. Exhaustiveness checks in tests iterate this.
func Types() []ColumnType {
	return []ColumnType{
		TypeUUID, TypeEmail, TypeIP, TypeURL, TypePhone,
		TypeDate, TypeTimestamp,
		TypeCurrency, TypePercentage, TypeRating, TypeNumber,
		TypeJSON, TypeGeo, TypeString,
	}
}
