package convert

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func mustConvert(t *testing.T, yamlText string) string {
	t.Helper()
	out, err := ConvertString(yamlText, "")
	require.NoError(t, err)
	return out
}

func TestConvert_ExactOutput(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"simple", "name: test\nvalue: 42", `{"name": "test","value": 42}`},
		{"nested", "parent:\n  child: value\n  number: 123", `{"parent": {"child": "value","number": 123}}`},
		{"array", "items:\n  - first\n  - second\n  - third", `{"items": ["first","second","third"]}`},
		{"with filename", "test: value", `{"test": "value"}`},
		{"quoted string", `text: "Hello World"`, `{"text": "Hello World"}`},
		{"top level sequence", "- 1\n- two\n- null", `[1,"two",null]`},
		{"flow style", "{a: [1, 2], b: {}}", `{"a": [1,2],"b": {}}`},
		{"key order preserved", "z: 1\na: 2\nm: 3", `{"z": 1,"a": 2,"m": 3}`},
		{"empty stream", "", `null`},
		{"explicit empty document", "---\n", `null`},
		{"multiple documents", "a: 1\n---\nb: 2\n", `[{"a": 1},{"b": 2}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mustConvert(t, tt.yaml))
		})
	}
}

func TestConvert_MixedTypes(t *testing.T) {
	json := mustConvert(t, "string: hello\ninteger: 42\nfloat: 3.14\nbool: true\nnull_val: null")

	assert.Contains(t, json, `"string": "hello"`)
	assert.Contains(t, json, `"integer": 42`)
	assert.Contains(t, json, `"float": 3.14`)
	assert.Contains(t, json, `"bool": true`)
	assert.Contains(t, json, `"null_val": null`)
	assert.True(t, gjson.Valid(json))
}

func TestConvert_Scalars(t *testing.T) {
	tests := []struct {
		yaml string
		want string
	}{
		{"v: 1.0", `1.0`},
		{"v: -17", `-17`},
		{"v: 0x1F", `31`},
		{"v: 0o17", `15`},
		{"v: .5", `0.5`},
		{"v: 1e3", `1e3`},
		{"v: .inf", `".inf"`},
		{"v: -.inf", `"-.inf"`},
		{"v: .nan", `".nan"`},
		{"v: True", `true`},
		{"v: FALSE", `false`},
		{"v: ~", `null`},
		{"v:", `null`},
		{`v: "42"`, `"42"`},
		{"v: '3.14'", `"3.14"`},
		{"v: 2001-12-14", `"2001-12-14"`},
		{"v: yes", `"yes"`},
		{"v: <a href=\"x\">&amp;</a>", `"<a href=\"x\">&amp;</a>"`},
		{"v: \"tab\\there\"", `"tab\there"`},
		{"v: !custom tagged", `"tagged"`},
	}

	for _, tt := range tests {
		t.Run(tt.yaml, func(t *testing.T) {
			assert.Equal(t, `{"v": `+tt.want+`}`, mustConvert(t, tt.yaml))
		})
	}
}

func TestConvert_AnchorsAndMerge(t *testing.T) {
	json := mustConvert(t, "base: &b\n  x: 1\n  y: 2\nuse: *b\nchild:\n  <<: *b\n  y: 3\n  z: 4\n")

	assert.Equal(t, `{"x": 1,"y": 2}`, gjson.Get(json, "use").Raw)
	assert.Equal(t, `{"x": 1,"y": 3,"z": 4}`, gjson.Get(json, "child").Raw)
}

func TestConvert_MergeSequenceEarlierWins(t *testing.T) {
	json := mustConvert(t, "a: &a {k: from_a, only_a: 1}\nb: &b {k: from_b, only_b: 2}\nc:\n  <<: [*a, *b]\n")

	c := gjson.Get(json, "c")
	assert.Equal(t, "from_a", c.Get("k").String())
	assert.Equal(t, int64(1), c.Get("only_a").Int())
	assert.Equal(t, int64(2), c.Get("only_b").Int())
}

func TestConvert_ComplexStructure(t *testing.T) {
	yamlText := strings.Join([]string{
		"application:",
		"  name: yaml2json",
		"  version: 2.0",
		"servers:",
		"  - name: web1",
		"    port: 8080",
		"    enabled: true",
		"  - name: web2",
		"    port: 8081",
		"    enabled: false",
		"config:",
		"  timeout: 30",
		"  retries: 3",
		"  features:",
		"    - fast_parsing",
		"    - pretty_print",
	}, "\n")

	json := mustConvert(t, yamlText)
	require.True(t, gjson.Valid(json))
	assert.Equal(t, "yaml2json", gjson.Get(json, "application.name").String())
	assert.Equal(t, "2.0", gjson.Get(json, "application.version").Raw)
	assert.Equal(t, "web2", gjson.Get(json, "servers.1.name").String())
	assert.Equal(t, int64(8081), gjson.Get(json, "servers.1.port").Int())
	assert.False(t, gjson.Get(json, "servers.1.enabled").Bool())
	assert.Equal(t, "pretty_print", gjson.Get(json, "config.features.1").String())
}

func TestConvert_InvalidYaml(t *testing.T) {
	_, err := ConvertString("key: [unclosed bracket", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConversionFailed))
	assert.True(t, strings.HasPrefix(err.Error(), "YAML parsing error"))

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Empty(t, pe.Source)
}

func TestConvert_ParseErrorLocation(t *testing.T) {
	_, err := ConvertString("a: b\n  c: d\n", "bad.yaml")
	require.Error(t, err)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "bad.yaml", pe.Source)
	assert.Equal(t, 2, pe.Line)
	assert.Contains(t, pe.Message, "mapping values are not allowed")
	assert.Contains(t, err.Error(), "YAML parsing error in file 'bad.yaml' at line 2")
}

func TestConvert_SyntaxErrorHasLineOnly(t *testing.T) {
	_, err := ConvertString("a: [1, 2\n", "flow.yaml")
	require.Error(t, err)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Positive(t, pe.Line)
	assert.Zero(t, pe.Column, "yaml.v3 reports no column for syntax errors")
	assert.NotContains(t, err.Error(), "column")
}

func TestConvert_NonScalarKey(t *testing.T) {
	_, err := ConvertString("? [a, b]\n: v\n", "keys.yaml")
	require.Error(t, err)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 1, pe.Line)
	assert.Contains(t, pe.Message, "mapping keys must be scalars")
	assert.ErrorIs(t, err, ErrConversionFailed)
}

func TestConvert_AliasExpansionLimit(t *testing.T) {
	var b strings.Builder
	b.WriteString(`l0: &l0 ["lol","lol","lol","lol","lol","lol","lol","lol","lol","lol"]` + "\n")
	for i := 1; i <= 8; i++ {
		fmt.Fprintf(&b, "l%d: &l%d [", i, i)
		for j := 0; j < 10; j++ {
			if j > 0 {
				b.WriteString(",")
			}
			fmt.Fprintf(&b, "*l%d", i-1)
		}
		b.WriteString("]\n")
	}

	_, err := ConvertString(b.String(), "bomb.yaml")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConversionFailed)
	assert.Contains(t, err.Error(), "aliases")
}

func TestConvert_MergeChainIsLinear(t *testing.T) {
	const levels = 40
	var b strings.Builder
	b.WriteString("l0: &l0 {k0: 0}\n")
	for i := 1; i < levels; i++ {
		fmt.Fprintf(&b, "l%d: &l%d {<<: [*l%d, *l%d], k%d: %d}\n", i, i, i-1, i-1, i, i)
	}

	done := make(chan struct{})
	var out string
	var err error
	go func() {
		defer close(done)
		out, err = ConvertString(b.String(), "chain.yaml")
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("merge chain conversion did not finish")
	}

	require.NoError(t, err)
	last := gjson.Get(out, fmt.Sprintf("l%d", levels-1))
	assert.Equal(t, int64(0), last.Get("k0").Int())
	assert.Equal(t, int64(levels-1), last.Get(fmt.Sprintf("k%d", levels-1)).Int())
	assert.Len(t, last.Map(), levels)
}

func TestConvert_BadMergeValue(t *testing.T) {
	_, err := ConvertString("a:\n  <<: scalar\n", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "merge key value must be a mapping")
}

func TestFormatLocation(t *testing.T) {
	assert.Equal(t, "Test error in file 'test.yaml' at line 10, column 5",
		FormatLocation("Test error", "test.yaml", 10, 5))
	assert.Equal(t, "Test error at line 10, column 5",
		FormatLocation("Test error", "", 10, 5))
	assert.Equal(t, "Test error in file 'test.yaml'",
		FormatLocation("Test error", "test.yaml", 0, 0))
	assert.Equal(t, "Test error in file 'test.yaml' at line 3",
		FormatLocation("Test error", "test.yaml", 3, 0))
	assert.Equal(t, "Test error in file 'test.yaml'",
		FormatLocation("Test error", "test.yaml", 0, 7), "column without a line is dropped")
}

func TestParseError_Message(t *testing.T) {
	err := &ParseError{Source: "test.yaml", Line: 5, Column: 10, Message: "Parse error"}
	assert.Equal(t, "YAML parsing error in file 'test.yaml' at line 5, column 10: Parse error", err.Error())
}

func TestParseErrorFrom(t *testing.T) {
	tests := []struct {
		in      string
		line    int
		column  int
		message string
	}{
		{"yaml: line 3: found character that cannot start any token", 3, 0, "found character that cannot start any token"},
		{"yaml: line 7: column 2: oops", 7, 2, "oops"},
		{"yaml: control characters are not allowed", 0, 0, "control characters are not allowed"},
	}
	for _, tt := range tests {
		pe := parseErrorFrom("f.yaml", errors.New(tt.in))
		assert.Equal(t, "f.yaml", pe.Source)
		assert.Equal(t, tt.line, pe.Line, tt.in)
		assert.Equal(t, tt.column, pe.Column, tt.in)
		assert.Equal(t, tt.message, pe.Message, tt.in)
	}
}

func TestIntAndFloatLiterals(t *testing.T) {
	lit, ok := intLiteral("1_000")
	assert.True(t, ok)
	assert.Equal(t, "1000", lit)

	lit, ok = intLiteral("+12")
	assert.True(t, ok)
	assert.Equal(t, "12", lit)

	lit, ok = intLiteral("0b101")
	assert.True(t, ok)
	assert.Equal(t, "5", lit)

	lit, ok = intLiteral("123456789012345678901234567890")
	assert.True(t, ok)
	assert.Equal(t, "123456789012345678901234567890", lit)

	_, ok = intLiteral("not a number")
	assert.False(t, ok)

	lit, ok = floatLiteral("+1.5")
	assert.True(t, ok)
	assert.Equal(t, "1.5", lit)

	_, ok = floatLiteral(".inf")
	assert.False(t, ok)
}
