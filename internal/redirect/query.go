package redirect

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/rulesascode/journey/internal/fisca"
)

// Destination is a resolved redirect target split into its base URL and the
// composed query string.
type Destination struct {
	URL   string
	Query string
}

// String returns the full destination, query appended with "?".
func (d Destination) String() string {
	if d.Query == "" {
		return d.URL
	}
	return d.URL + "?" + d.Query
}

// ComposeDestination merges the computed fisca fields, the query-append
// values and any parameters already present on the target URL into the
// final confirmation query. Later layers win on key collision, so
// parameters baked into the configured URL always survive. The query is
// kept in decoded form; percent-encoding is the navigating client's
// concern.
func ComposeDestination(target string, fiscaFields, queryAppend *fisca.OrderedMap) Destination {
	base, existing := splitQuery(target)

	merged := fisca.NewOrderedMap()
	copyInto(merged, fiscaFields)
	copyInto(merged, queryAppend)
	for _, p := range existing {
		merged.Set(p.key, p.value)
	}
	return Destination{URL: base, Query: EncodeQuery(merged)}
}

// EncodeQuery renders an ordered value map as a decoded query string. Nil
// values are skipped and booleans render as 1/0.
func EncodeQuery(values *fisca.OrderedMap) string {
	var parts []string
	for _, key := range values.Keys() {
		v, _ := values.Get(key)
		s, ok := queryValue(v)
		if !ok {
			continue
		}
		parts = append(parts, key+"="+s)
	}
	return strings.Join(parts, "&")
}

func queryValue(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case bool:
		if t {
			return "1", true
		}
		return "0", true
	case string:
		return t, true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	default:
		return "", false
	}
}

type queryParam struct {
	key   string
	value string
}

// splitQuery separates a URL from its query string, decoding the existing
// parameters while preserving their order. url.Values cannot be used here
// because it iterates in sorted key order.
func splitQuery(target string) (string, []queryParam) {
	base, rawQuery, found := strings.Cut(target, "?")
	if !found || rawQuery == "" {
		return base, nil
	}
	var params []queryParam
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		if dk, err := url.QueryUnescape(k); err == nil {
			k = dk
		}
		if dv, err := url.QueryUnescape(v); err == nil {
			v = dv
		}
		params = append(params, queryParam{key: k, value: v})
	}
	return base, params
}

func copyInto(dst, src *fisca.OrderedMap) {
	for _, key := range src.Keys() {
		v, _ := src.Get(key)
		dst.Set(key, v)
	}
}
