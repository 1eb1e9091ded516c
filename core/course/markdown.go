package course

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// raw HTML in descriptions is not rendered (goldmark default)
var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// RenderDescription renders the markdown description of a course to HTML.
func RenderDescription(c Course) (string, error) {
	if c.Description == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := md.Convert([]byte(c.Description), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
