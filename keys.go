package cache

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// KeySeparator joins the prefix and the segments of a cache key.
const KeySeparator = ":"

var segmentEscaper = strings.NewReplacer(`\`, `\\`, KeySeparator, `\`+KeySeparator)

/*
BuildKey derives a cache key from a prefix and an ordered list of query parameters.

	BuildKey("v1:ibk", "list", 1, 10, "")  == `v1:ibk:list:1:10:`
	BuildKey("v1:ibk", "list", 1, 10, nil) == `v1:ibk:list:1:10:`

The prefix is written verbatim so RemoveByPrefix(prefix) reaches every key built
from it. Each part becomes one segment:
  - nil, nil pointers, "" and the zero time.Time are the empty segment, so an
    omitted optional filter and an explicitly empty one share a key
  - non-nil pointers are dereferenced first, so &v and v share a segment
  - numbers and bools use strconv, time.Time is RFC3339Nano in UTC
  - fmt.Stringer uses String, anything else goes through fmt.Sprint

Separators and backslashes inside a segment are escaped, so two different part
lists under the same prefix never produce the same key.
*/
func BuildKey(prefix string, parts ...any) string {
	var b strings.Builder
	b.Grow(len(prefix) + 8*len(parts))
	b.WriteString(prefix)
	for _, p := range parts {
		b.WriteString(KeySeparator)
		segmentEscaper.WriteString(&b, segment(p))
	}
	return b.String()
}

func segment(p any) string {
	if p == nil {
		return ""
	}
	if rv := reflect.ValueOf(p); rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return ""
		}
		// *time.Time is a Stringer; render pointees like their values.
		return segment(rv.Elem().Interface())
	}

	switch v := p.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int8:
		return strconv.FormatInt(int64(v), 10)
	case int16:
		return strconv.FormatInt(int64(v), 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint8:
		return strconv.FormatUint(uint64(v), 10)
	case uint16:
		return strconv.FormatUint(uint64(v), 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		if v.IsZero() {
			return ""
		}
		return v.UTC().Format(time.RFC3339Nano)
	case time.Duration:
		return v.String()
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprint(p)
}
