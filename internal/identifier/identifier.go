// Package identifier canonicalises geometry identifiers so that registry rows
// and parcel features join on the same key whatever their JSON or CSV type.
package identifier

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize converts a scalar identifier to its canonical string form.
//
// Numbers render without exponent or trailing zeros (7, 7.0 and "7" all give
// "7" except the string "7.0", which stays as written). Strings are trimmed and
// NFC-normalised. nil, NaN and infinities give "".
func Normalize(id interface{}) string {
	switch v := id.(type) {
	case nil:
		return ""
	case string:
		return norm.NFC.String(strings.TrimSpace(v))
	case float64:
		return formatFloat(v, 64)
	case float32:
		return formatFloat(float64(v), 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int16:
		return strconv.FormatInt(int64(v), 10)
	case int8:
		return strconv.FormatInt(int64(v), 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return strconv.FormatInt(i, 10)
		}
		if f, err := v.Float64(); err == nil {
			return formatFloat(f, 64)
		}
		return strings.TrimSpace(v.String())
	case bool:
		return strconv.FormatBool(v)
	case fmt.Stringer:
		return norm.NFC.String(strings.TrimSpace(v.String()))
	default:
		return fmt.Sprint(v)
	}
}

// Usable reports the canonical identifier and whether it can take part in a
// join. Identifiers that normalise to "" are not usable.
func Usable(id interface{}) (string, bool) {
	s := Normalize(id)
	return s, s != ""
}

func formatFloat(f float64, bitSize int) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, bitSize)
}
