package textdoc

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// Decode converts data from the named charset into UTF-8. An empty charset or
// any UTF-8 alias returns data unchanged.
func Decode(data []byte, charset string) ([]byte, error) {
	name := strings.TrimSpace(charset)
	if name == "" || strings.EqualFold(name, "utf-8") || strings.EqualFold(name, "utf8") {
		return data, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("textdoc: unknown charset %q: %w", charset, err)
	}
	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), enc.NewDecoder()))
	if err != nil {
		return nil, fmt.Errorf("textdoc: decode %s: %w", name, err)
	}
	return decoded, nil
}

// Encode converts UTF-8 data into the named charset.
func Encode(data []byte, charset string) ([]byte, error) {
	name := strings.TrimSpace(charset)
	if name == "" || strings.EqualFold(name, "utf-8") || strings.EqualFold(name, "utf8") {
		return data, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("textdoc: unknown charset %q: %w", charset, err)
	}
	encoded, _, err := transform.Bytes(enc.NewEncoder(), data)
	if err != nil {
		return nil, fmt.Errorf("textdoc: encode %s: %w", name, err)
	}
	return encoded, nil
}
