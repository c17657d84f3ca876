package pump

import (
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// Decoder turns raw bytes read from a pipe into the text that sinks
// receive. It is never allowed to abort the stream on malformed input
// (spec.md §4.4): invalid bytes are replaced, not rejected — but the
// decode error, if any, is still returned so pump.Run can log it at
// debug level per spec.md §4.4 ("the error is logged at debug level").
type Decoder func(raw []byte) (out []byte, err error)

// passthrough is used when encoding is disabled: sinks get raw bytes.
func passthrough(raw []byte) ([]byte, error) { return raw, nil }

// NewDecoder resolves the Options.Encoding string into a Decoder.
// Empty selects the platform default (utf-8 on POSIX, cp437 on Windows,
// per spec.md §3); disabled selects passthrough regardless of name.
func NewDecoder(name string, disabled bool) Decoder {
	if disabled {
		return passthrough
	}
	if name == "" {
		name = platformDefaultEncoding()
	}
	switch strings.ToLower(name) {
	case "cp437", "ibm437":
		dec := charmap.CodePage437.NewDecoder()
		return func(raw []byte) ([]byte, error) {
			out, err := dec.Bytes(raw)
			if err != nil {
				// Replacement strategy: fall back to the raw chunk
				// rather than dropping it; the caller still gets to
				// know decoding was imperfect.
				return raw, err
			}
			return out, nil
		}
	case "utf-8", "utf8", "":
		return func(raw []byte) ([]byte, error) {
			// strings.ToValidUTF8 is the documented replacement
			// strategy for malformed UTF-8 (spec.md §4.4): invalid
			// sequences become U+FFFD, the stream is never aborted.
			valid := strings.ToValidUTF8(string(raw), "�")
			if valid != string(raw) {
				return []byte(valid), errInvalidUTF8
			}
			return []byte(valid), nil
		}
	default:
		// Unknown codec name: treat as UTF-8 rather than silently
		// dropping bytes.
		return func(raw []byte) ([]byte, error) {
			valid := strings.ToValidUTF8(string(raw), "�")
			if valid != string(raw) {
				return []byte(valid), errInvalidUTF8
			}
			return []byte(valid), nil
		}
	}
}

type decodeError string

func (e decodeError) Error() string { return string(e) }

const errInvalidUTF8 decodeError = "pump: invalid utf-8 sequence replaced"
