package converter

import (
	"bytes"
	"io"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"
)

// ConvertToUTF8 re-encodes page content to UTF-8. The charset comes from
// the Content-Type header when it names one, otherwise from the
// document's own BOM or meta declaration; x/net's prescan implements the
// HTML rules, so nothing is hand-parsed here. Content that is already
// UTF-8, or that declares no charset at all, passes through untouched.
// On a decode failure the original bytes come back with the error, so
// callers can hand a tolerant parser something rather than nothing.
func ConvertToUTF8(content []byte, contentType string) ([]byte, error) {
	e, name, _ := charset.DetermineEncoding(content, contentType)
	if name == "utf-8" {
		return content, nil
	}

	reader := transform.NewReader(bytes.NewReader(content), e.NewDecoder())
	converted, err := io.ReadAll(reader)
	if err != nil {
		return content, err
	}
	return converted, nil
}
