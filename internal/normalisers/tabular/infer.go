package tabular

import (
	"strconv"
	"strings"
)

// Inferred column types.
const (
	TypeInt    = "int64"
	TypeFloat  = "float64"
	TypeBool   = "bool"
	TypeObject = "object"
	TypeEmpty  = "empty"
)

// isNull reports whether a cell counts as missing.
func isNull(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "nan", "none", "null":
		return true
	default:
		return false
	}
}

// inferType picks the narrowest type every non-null value parses as.
func inferType(values []string) string {
	allInt, allFloat, allBool := true, true, true
	seen := false

	for _, v := range values {
		if isNull(v) {
			continue
		}
		seen = true
		v = strings.TrimSpace(v)
		if _, err := strconv.ParseInt(v, 10, 64); err != nil {
			allInt = false
		}
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			allFloat = false
		}
		if _, err := strconv.ParseBool(strings.ToLower(v)); err != nil || isNumeric(v) {
			allBool = false
		}
	}

	switch {
	case !seen:
		return TypeEmpty
	case allInt:
		return TypeInt
	case allFloat:
		return TypeFloat
	case allBool:
		return TypeBool
	default:
		return TypeObject
	}
}

// isNumeric excludes "0" and "1", which ParseBool also accepts.
func isNumeric(v string) bool {
	_, err := strconv.ParseFloat(v, 64)
	return err == nil
}
