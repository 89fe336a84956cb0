// Package params implements spec component C6: query string, form, and
// multipart/form-data decoding. Cookie headers are decoded by
// httpmsg.ParseCookieHeader.
package params

import (
	"net/url"
	"strings"
)

// ParseQueryString decodes the substring of pathQuery after its first '?'
// into a name->value map. Later duplicate keys overwrite earlier ones, and
// a pair with no '=' yields an empty value.
func ParseQueryString(pathQuery string) map[string]string {
	out := make(map[string]string)

	q := pathQuery
	if i := strings.IndexByte(pathQuery, '?'); i >= 0 {
		q = pathQuery[i+1:]
	} else {
		return out
	}
	if q == "" {
		return out
	}

	for _, pair := range strings.Split(q, "&") {
		if pair == "" {
			continue
		}
		name, value := splitKeyValue(pair)
		out[percentDecode(name)] = percentDecode(value)
	}
	return out
}

func splitKeyValue(pair string) (string, string) {
	if i := strings.IndexByte(pair, '='); i >= 0 {
		return pair[:i], pair[i+1:]
	}
	return pair, ""
}

// percentDecode unescapes %XX sequences and turns '+' into a space, the
// application/x-www-form-urlencoded rule spec §4.6 requires for both the
// query string and form bodies. Malformed escapes decode to the original
// text rather than failing the whole request.
func percentDecode(s string) string {
	decoded, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}
