// Package convert turns YAML text into compact JSON.
//
// Parsing is delegated to gopkg.in/yaml.v3; the node tree is walked directly
// so key order is preserved. Output uses ": " between a key and its value and
// no other whitespace, which is the form the render package expects.
package convert

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"

	gojson "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"yaml2json/internal/logging"
)

// maxDepth bounds nesting, including nesting produced by alias expansion.
const maxDepth = 10000

// maxAliasExpansions bounds how many times aliases are expanded in one stream,
// so documents built from nested aliases cannot grow output exponentially.
const maxAliasExpansions = 1 << 20

const (
	tagNull  = "!!null"
	tagBool  = "!!bool"
	tagInt   = "!!int"
	tagFloat = "!!float"
	tagMerge = "!!merge"
)

// Convert parses data as a YAML stream and returns its JSON form.
//
// source labels diagnostics and may be empty. An empty stream converts to
// null; a stream with several documents converts to an array of them.
// All errors are *ParseError and match ErrConversionFailed.
func Convert(data []byte, source string) ([]byte, error) {
	start := time.Now()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	var docs []*yaml.Node
	for {
		doc := new(yaml.Node)
		err := dec.Decode(doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, parseErrorFrom(source, err)
		}
		docs = append(docs, doc)
	}

	e := newEmitter(source, len(data))
	var err error
	switch len(docs) {
	case 0:
		e.buf.WriteString("null")
	case 1:
		err = e.emit(docs[0], 0)
	default:
		logging.Convert("%q holds %d documents, emitting a JSON array", source, len(docs))
		e.buf.WriteByte('[')
		for i, doc := range docs {
			if i > 0 {
				e.buf.WriteByte(',')
			}
			if err = e.emit(doc, 1); err != nil {
				break
			}
		}
		e.buf.WriteByte(']')
	}
	if err != nil {
		return nil, err
	}

	logging.ConvertDebug("converted %q: %d documents, %d -> %d bytes in %s",
		source, len(docs), len(data), e.buf.Len(), time.Since(start))
	return e.buf.Bytes(), nil
}

// ConvertString is Convert for string input and output.
func ConvertString(yamlText, source string) (string, error) {
	out, err := Convert([]byte(yamlText), source)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

type emitter struct {
	source  string
	buf     bytes.Buffer
	scratch bytes.Buffer
	enc     *gojson.Encoder
	aliases int
	// flattened mappings, keyed by node, so a mapping reached through many
	// merge keys is only flattened once
	flat map[*yaml.Node][]pair
}

func newEmitter(source string, sizeHint int) *emitter {
	e := &emitter{source: source, flat: make(map[*yaml.Node][]pair)}
	e.buf.Grow(sizeHint + sizeHint/10)
	e.enc = gojson.NewEncoder(&e.scratch)
	e.enc.SetEscapeHTML(false)
	return e
}

func (e *emitter) fail(n *yaml.Node, format string, args ...interface{}) error {
	return &ParseError{Source: e.source, Line: n.Line, Column: n.Column, Message: fmt.Sprintf(format, args...)}
}

func (e *emitter) emit(n *yaml.Node, depth int) error {
	if depth > maxDepth {
		return e.fail(n, "document exceeds maximum nesting depth of %d", maxDepth)
	}
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			e.buf.WriteString("null")
			return nil
		}
		return e.emit(n.Content[0], depth)
	case yaml.AliasNode:
		if n.Alias == nil {
			return e.fail(n, "unknown anchor '%s' referenced", n.Value)
		}
		e.aliases++
		if e.aliases > maxAliasExpansions {
			return e.fail(n, "document expands more than %d aliases", maxAliasExpansions)
		}
		return e.emit(n.Alias, depth+1)
	case yaml.SequenceNode:
		e.buf.WriteByte('[')
		for i, item := range n.Content {
			if i > 0 {
				e.buf.WriteByte(',')
			}
			if err := e.emit(item, depth+1); err != nil {
				return err
			}
		}
		e.buf.WriteByte(']')
		return nil
	case yaml.MappingNode:
		return e.mapping(n, depth)
	case yaml.ScalarNode:
		return e.scalar(n)
	default:
		return e.fail(n, "unsupported node kind %d", n.Kind)
	}
}

type pair struct {
	key   string
	value *yaml.Node
}

func (e *emitter) mapping(n *yaml.Node, depth int) error {
	pairs, err := e.pairs(n, depth)
	if err != nil {
		return err
	}
	e.buf.WriteByte('{')
	for i, p := range pairs {
		if i > 0 {
			e.buf.WriteByte(',')
		}
		if err := e.quote(p.key); err != nil {
			return e.fail(p.value, "%v", err)
		}
		e.buf.WriteString(": ")
		if err := e.emit(p.value, depth+1); err != nil {
			return err
		}
	}
	e.buf.WriteByte('}')
	return nil
}

// pairs flattens a mapping, applying merge keys. Explicit keys win over
// merged ones, and earlier merge sources win over later ones. Merged pairs
// appear where the merge key was written.
func (e *emitter) pairs(n *yaml.Node, depth int) ([]pair, error) {
	if depth > maxDepth {
		return nil, e.fail(n, "document exceeds maximum nesting depth of %d", maxDepth)
	}
	if cached, ok := e.flat[n]; ok {
		return cached, nil
	}
	if len(n.Content)%2 != 0 {
		return nil, e.fail(n, "mapping has a key without a value")
	}

	explicit := make(map[string]bool, len(n.Content)/2)
	for i := 0; i < len(n.Content); i += 2 {
		k := resolve(n.Content[i])
		if k.Kind == yaml.ScalarNode && k.ShortTag() == tagMerge {
			continue
		}
		key, err := e.keyString(k)
		if err != nil {
			return nil, err
		}
		explicit[key] = true
	}

	out := make([]pair, 0, len(n.Content)/2)
	merged := make(map[string]bool)
	for i := 0; i < len(n.Content); i += 2 {
		k, v := resolve(n.Content[i]), n.Content[i+1]
		if k.Kind == yaml.ScalarNode && k.ShortTag() == tagMerge {
			sources, err := e.mergeSources(v)
			if err != nil {
				return nil, err
			}
			for _, src := range sources {
				e.aliases++
				if e.aliases > maxAliasExpansions {
					return nil, e.fail(v, "document expands more than %d aliases", maxAliasExpansions)
				}
				inner, err := e.pairs(src, depth+1)
				if err != nil {
					return nil, err
				}
				for _, p := range inner {
					if explicit[p.key] || merged[p.key] {
						continue
					}
					merged[p.key] = true
					out = append(out, p)
				}
			}
			continue
		}
		key, _ := e.keyString(k)
		out = append(out, pair{key: key, value: v})
	}
	e.flat[n] = out
	return out, nil
}

func (e *emitter) mergeSources(v *yaml.Node) ([]*yaml.Node, error) {
	v = resolve(v)
	switch v.Kind {
	case yaml.MappingNode:
		return []*yaml.Node{v}, nil
	case yaml.SequenceNode:
		sources := make([]*yaml.Node, 0, len(v.Content))
		for _, item := range v.Content {
			item = resolve(item)
			if item.Kind != yaml.MappingNode {
				return nil, e.fail(item, "merge key sequence must contain only mappings")
			}
			sources = append(sources, item)
		}
		return sources, nil
	default:
		return nil, e.fail(v, "merge key value must be a mapping or a sequence of mappings")
	}
}

func (e *emitter) keyString(k *yaml.Node) (string, error) {
	if k.Kind != yaml.ScalarNode {
		return "", e.fail(k, "mapping keys must be scalars to be represented in JSON")
	}
	if k.ShortTag() == tagNull && (k.Value == "" || k.Value == "~") {
		return "null", nil
	}
	return k.Value, nil
}

func (e *emitter) scalar(n *yaml.Node) error {
	switch n.ShortTag() {
	case tagNull:
		e.buf.WriteString("null")
	case tagBool:
		switch strings.ToLower(n.Value) {
		case "true", "yes", "on", "y":
			e.buf.WriteString("true")
		default:
			e.buf.WriteString("false")
		}
	case tagInt:
		if lit, ok := intLiteral(n.Value); ok {
			e.buf.WriteString(lit)
			return nil
		}
		return e.quoteNode(n)
	case tagFloat:
		if lit, ok := floatLiteral(n.Value); ok {
			e.buf.WriteString(lit)
			return nil
		}
		return e.quoteNode(n)
	default:
		return e.quoteNode(n)
	}
	return nil
}

func (e *emitter) quoteNode(n *yaml.Node) error {
	if err := e.quote(n.Value); err != nil {
		return e.fail(n, "%v", err)
	}
	return nil
}

// quote writes s as a JSON string literal without HTML escaping.
func (e *emitter) quote(s string) error {
	e.scratch.Reset()
	if err := e.enc.Encode(s); err != nil {
		return err
	}
	e.buf.Write(bytes.TrimSuffix(e.scratch.Bytes(), []byte{'\n'}))
	return nil
}

func resolve(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

var (
	jsonIntRE    = regexp.MustCompile(`^-?(0|[1-9][0-9]*)$`)
	jsonNumberRE = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?$`)
)

// intLiteral renders a YAML integer (decimal, 0x, 0o, 0b, legacy octal,
// underscores) as a JSON integer.
func intLiteral(v string) (string, bool) {
	if jsonIntRE.MatchString(v) {
		return v, true
	}
	s := strings.ReplaceAll(v, "_", "")
	if i, err := strconv.ParseInt(s, 0, 64); err == nil {
		return strconv.FormatInt(i, 10), true
	}
	if u, err := strconv.ParseUint(strings.TrimPrefix(s, "+"), 0, 64); err == nil {
		return strconv.FormatUint(u, 10), true
	}
	if b, ok := new(big.Int).SetString(s, 0); ok {
		return b.String(), true
	}
	return "", false
}

// floatLiteral keeps JSON-compatible spellings verbatim and normalizes the
// rest. Infinities and NaN have no JSON form and are reported as not ok.
func floatLiteral(v string) (string, bool) {
	if jsonNumberRE.MatchString(v) {
		return v, true
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(v, "_", ""), 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return "", false
	}
	return strconv.FormatFloat(f, 'g', -1, 64), true
}
