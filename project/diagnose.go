package project

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/vcrobe/tplc/compiler"
	"github.com/vcrobe/tplc/dom"
)

// Escaped placeholders (\@{n}) are not references. A doubled backslash does
// not escape.
var placeholderRegex = regexp.MustCompile(`(?:^|[^\\]|\\\\)@\{\s*(\d+)`)

// Diagnose lists where each directive index is referenced in src, either by a
// placeholder or by a marker comment, and which of the expected indices are
// never referenced.
func Diagnose(src string, marker dom.Marker, expected int) string {
	markerRegex := regexp.MustCompile(`<!--` + regexp.QuoteMeta(string(marker)) + `:\s*(\d+)\s*-->`)

	lines := strings.Split(src, "\n")
	placeholders := make(map[int][]int)
	markers := make(map[int][]int)
	for i, line := range lines {
		collectIndices(placeholderRegex, line, i+1, placeholders)
		collectIndices(markerRegex, line, i+1, markers)
	}

	var sb strings.Builder
	for _, index := range sortedKeys(placeholders) {
		fmt.Fprintf(&sb, "  @{%d} found at line(s): %v\n", index, placeholders[index])
	}
	for _, index := range sortedKeys(markers) {
		fmt.Fprintf(&sb, "  marker %d found at line(s): %v\n", index, markers[index])
	}

	var missing []int
	for i := 0; i < expected; i++ {
		if _, ok := placeholders[i]; ok {
			continue
		}
		if _, ok := markers[i]; ok {
			continue
		}
		missing = append(missing, i)
	}
	if len(missing) > 0 {
		fmt.Fprintf(&sb, "  directive(s) never referenced: %v\n", missing)
	}
	for _, index := range sortedKeys(placeholders) {
		if index >= expected {
			fmt.Fprintf(&sb, "  @{%d} at line(s) %v has no directive\n", index, placeholders[index])
		}
	}
	return sb.String()
}

func collectIndices(re *regexp.Regexp, line string, lineNum int, into map[int][]int) {
	for _, m := range re.FindAllStringSubmatch(line, -1) {
		index, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		into[index] = append(into[index], lineNum)
	}
}

func sortedKeys(m map[int][]int) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// describeError decorates a compilation error with the template location and
// the diagnostics that help fixing it. The result still wraps err.
func describeError(src Source, source string, marker dom.Marker, err error) error {
	var cerr *compiler.CompilationError
	if !errors.As(err, &cerr) {
		return fmt.Errorf("%s: %w", src.Path, err)
	}

	var detail string
	switch {
	case errors.Is(err, compiler.ErrCountMismatch):
		detail = Diagnose(source, marker, cerr.Expected)
	case cerr.Index >= 0:
		needle := dom.Interpolation(cerr.Index)
		if errors.Is(err, compiler.ErrUnresolvedMarker) {
			needle = string(marker) + ":" + strconv.Itoa(cerr.Index)
		}
		if line := lineOf(source, needle); line > 0 {
			detail = getContextLines(source, line, 2)
		}
	}

	if detail == "" {
		return fmt.Errorf("%s: %w", src.Path, err)
	}
	return fmt.Errorf("%s: %w\n%s", src.Path, err, detail)
}

// lineOf returns the 1-based line of the first occurrence of text, or 0.
func lineOf(source, text string) int {
	i := strings.Index(source, text)
	if i < 0 {
		return 0
	}
	return strings.Count(source[:i], "\n") + 1
}

// getContextLines returns the lines around lineNumber, marking it with '>'.
func getContextLines(source string, lineNumber int, contextSize int) string {
	lines := strings.Split(source, "\n")

	start := max(lineNumber-contextSize-1, 0)
	end := min(lineNumber+contextSize, len(lines))

	var result strings.Builder
	for i := start; i < end; i++ {
		prefix := "  "
		if i+1 == lineNumber {
			prefix = "> "
		}
		fmt.Fprintf(&result, "%s%4d | %s\n", prefix, i+1, lines[i])
	}
	return result.String()
}
