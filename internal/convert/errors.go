package convert

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrConversionFailed matches every error returned by Convert.
var ErrConversionFailed = errors.New("conversion failed")

// ParseError describes input that could not be turned into JSON.
// Line and Column are 1-based; zero means unknown.
type ParseError struct {
	Source  string
	Line    int
	Column  int
	Message string
}

func (e *ParseError) Error() string {
	return FormatLocation("YAML parsing error", e.Source, e.Line, e.Column) + ": " + e.Message
}

func (e *ParseError) Unwrap() error {
	return ErrConversionFailed
}

// FormatLocation appends the file, line and column to message, leaving out
// any part that is unknown. A column is only reported together with a line.
func FormatLocation(message, filename string, line, column int) string {
	var b strings.Builder
	b.WriteString(message)
	if filename != "" {
		fmt.Fprintf(&b, " in file '%s'", filename)
	}
	if line > 0 {
		fmt.Fprintf(&b, " at line %d", line)
		if column > 0 {
			fmt.Fprintf(&b, ", column %d", column)
		}
	}
	return b.String()
}

var (
	yamlLineRE   = regexp.MustCompile(`^yaml: line (\d+): (.*)$`)
	yamlColumnRE = regexp.MustCompile(`^column (\d+): (.*)$`)
)

// parseErrorFrom turns a yaml.v3 error string ("yaml: line 3: ...") into a
// ParseError. yaml.v3 only reports lines, so Column stays 0 unless present.
func parseErrorFrom(source string, err error) *ParseError {
	pe := &ParseError{Source: source, Message: strings.TrimPrefix(err.Error(), "yaml: ")}
	m := yamlLineRE.FindStringSubmatch(err.Error())
	if m == nil {
		return pe
	}
	pe.Line, _ = strconv.Atoi(m[1])
	pe.Message = m[2]
	if c := yamlColumnRE.FindStringSubmatch(pe.Message); c != nil {
		pe.Column, _ = strconv.Atoi(c[1])
		pe.Message = c[2]
	}
	return pe
}
