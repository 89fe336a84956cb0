package params

import (
	"io"
	"strings"
)

// DecodeURLEncodedForm streams an application/x-www-form-urlencoded body
// through a key/value state machine (spec §4.6): '&' flushes the current
// pair, '=' switches from key to value mode, anything else accumulates.
// The trailing pair, if non-empty, flushes at EOF.
func DecodeURLEncodedForm(body io.Reader) (map[string]string, error) {
	out := make(map[string]string)

	var key, value strings.Builder
	inValue := false

	flush := func() {
		if key.Len() == 0 && value.Len() == 0 {
			return
		}
		out[percentDecode(key.String())] = percentDecode(value.String())
		key.Reset()
		value.Reset()
		inValue = false
	}

	buf := make([]byte, 4096)
	for {
		n, err := body.Read(buf)
		for i := 0; i < n; i++ {
			switch c := buf[i]; c {
			case '&':
				flush()
			case '=':
				if inValue {
					value.WriteByte(c)
				} else {
					inValue = true
				}
			default:
				if inValue {
					value.WriteByte(c)
				} else {
					key.WriteByte(c)
				}
			}
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return out, err
		}
		if n == 0 {
			break
		}
	}
	flush()
	return out, nil
}
