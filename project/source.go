package project

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// md converts Markdown templates. Raw HTML must pass through untouched so that
// marker comments and inline elements survive the conversion.
var md = goldmark.New(goldmark.WithRendererOptions(gmhtml.WithUnsafe()))

// placeholderEscapes matches the backslashes in front of a placeholder.
var placeholderEscapes = regexp.MustCompile(`\\+@\{`)

// LoadSource reads the markup of a template file. Markdown files (*.md) are
// converted to HTML first.
func LoadSource(path string) (string, error) {
	_, markup, err := readSource(path)
	return markup, err
}

// readSource returns the file content as written and the markup to compile.
// They only differ for Markdown files.
func readSource(path string) (raw, markup string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}
	if !strings.HasSuffix(path, ".md") {
		return string(data), string(data), nil
	}

	var buf bytes.Buffer
	if err := md.Convert(protectPlaceholders(data), &buf); err != nil {
		return "", "", fmt.Errorf("failed to convert Markdown %s: %w", path, err)
	}
	return string(data), buf.String(), nil
}

// protectPlaceholders doubles the backslashes in front of every placeholder.
// Markdown treats a backslash before punctuation as an escape and drops it;
// after doubling, the converted text carries the backslashes as written, so
// \@{n} stays escaped and \\@{n} stays live.
//
// Code spans and blocks do not process escapes, so placeholders there keep
// the doubled backslashes.
func protectPlaceholders(src []byte) []byte {
	return placeholderEscapes.ReplaceAllFunc(src, func(m []byte) []byte {
		slashes := len(m) - len("@{")
		out := bytes.Repeat([]byte{'\\'}, 2*slashes)
		return append(out, "@{"...)
	})
}
