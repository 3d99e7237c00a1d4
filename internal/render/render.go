// Package render re-indents compact JSON text in a single forward pass.
//
// The renderer never builds a tree. It tracks only whether it is inside a
// string literal, whether the previous byte was an escaping backslash, and
// the current nesting depth. It does not validate its input: unbalanced or
// otherwise malformed JSON produces malformed output, never a panic.
package render

import "bytes"

// Options controls rendering. The zero value is a pass-through.
type Options struct {
	PrettyPrint  bool
	IndentWidth  int  // indent characters per nesting level, negative is treated as 0
	IndentChar   byte // usually ' ' or '\t'
	FinalNewline bool // append '\n' unless the output already ends with one
}

// DefaultOptions returns two-space indentation with a final newline and
// pretty printing switched off.
func DefaultOptions() Options {
	return Options{
		PrettyPrint:  false,
		IndentWidth:  2,
		IndentChar:   ' ',
		FinalNewline: true,
	}
}

// PrettyOptions returns DefaultOptions with pretty printing enabled.
func PrettyOptions() Options {
	opts := DefaultOptions()
	opts.PrettyPrint = true
	return opts
}

type lexState uint8

const (
	stateNormal lexState = iota
	stateInString
	stateEscaped // one byte after a backslash inside a string
)

// Render returns json re-indented according to opts. With PrettyPrint unset
// the input is returned unchanged.
func Render(json []byte, opts Options) []byte {
	if !opts.PrettyPrint {
		return json
	}
	r := renderer{
		out:   make([]byte, 0, len(json)*2),
		width: max(opts.IndentWidth, 0),
		char:  opts.IndentChar,
	}
	for _, c := range json {
		r.feed(c)
	}
	if opts.FinalNewline && len(r.out) > 0 && r.out[len(r.out)-1] != '\n' {
		r.out = append(r.out, '\n')
	}
	return r.out
}

// RenderString is Render for string input.
func RenderString(json string, opts Options) string {
	return string(Render([]byte(json), opts))
}

// Pretty renders json with PrettyOptions.
func Pretty(json string) string {
	return RenderString(json, PrettyOptions())
}

// Compact returns json unchanged; converter output is already compact.
func Compact(json string) string {
	return json
}

type renderer struct {
	out   []byte
	state lexState
	depth int
	width int
	char  byte
}

func (r *renderer) feed(c byte) {
	switch r.state {
	case stateEscaped:
		r.out = append(r.out, c)
		r.state = stateInString
		return
	case stateInString:
		r.out = append(r.out, c)
		switch c {
		case '\\':
			r.state = stateEscaped
		case '"':
			r.state = stateNormal
		}
		return
	}

	switch c {
	case '"':
		r.out = append(r.out, c)
		r.state = stateInString
	case '{', '[':
		r.out = append(r.out, c, '\n')
		r.depth++
		r.indent()
	case '}', ']':
		r.trimIndent()
		if len(r.out) > 0 && r.out[len(r.out)-1] != '\n' {
			r.out = append(r.out, '\n')
		}
		r.depth--
		r.indent()
		r.out = append(r.out, c)
	case ',':
		r.out = append(r.out, c, '\n')
		r.indent()
	case ':':
		r.out = append(r.out, c, ' ')
	case ' ', '\t', '\n', '\r':
		// the renderer is the only source of whitespace
	default:
		r.out = append(r.out, c)
	}
}

func (r *renderer) indent() {
	if r.depth <= 0 || r.width == 0 {
		return
	}
	r.out = append(r.out, bytes.Repeat([]byte{r.char}, r.depth*r.width)...)
}

// trimIndent drops the current line when it consists only of indent
// characters. Text after the last line break that contains anything else is
// kept, even if it ends in bytes equal to IndentChar.
func (r *renderer) trimIndent() {
	start := bytes.LastIndexByte(r.out, '\n') + 1
	tail := r.out[start:]
	if len(tail) == 0 {
		return
	}
	for _, b := range tail {
		if b != r.char {
			return
		}
	}
	r.out = r.out[:start]
}
