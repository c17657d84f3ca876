//go:build windows

package pump

// platformDefaultEncoding is the implicit codec when Options.Encoding is
// empty: the classic Windows console code page is CP437, not UTF-8.
func platformDefaultEncoding() string { return "cp437" }
