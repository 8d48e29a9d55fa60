package cbf

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/elliotchance/orderedmap/v3"
)

// errIncomplete is the internal signal that the input ended before a
// production could decide whether it matched.
var errIncomplete = errors.New("incomplete input")

// Headers holds the fields of one MIME header block in wire order.
//
// Field names are stored exactly as they appear. Setting an existing name
// replaces its value but keeps the position of the first occurrence.
type Headers struct {
	fields *orderedmap.OrderedMap[string, string]
}

// NewHeaders returns an empty header set.
func NewHeaders() *Headers {
	return &Headers{fields: orderedmap.NewOrderedMap[string, string]()}
}

// Set stores a field. Duplicate names are last-write-wins.
func (h *Headers) Set(name, value string) {
	h.fields.Set(name, value)
}

// Get returns the value stored under the exact (case-sensitive) name.
func (h *Headers) Get(name string) (string, bool) {
	return h.fields.Get(name)
}

// Lookup returns the value of the last field whose name matches name
// ignoring ASCII case.
func (h *Headers) Lookup(name string) (string, bool) {
	var (
		value string
		found bool
	)
	for k, v := range h.fields.AllFromFront() {
		if strings.EqualFold(k, name) {
			value, found = v, true
		}
	}
	return value, found
}

// Len returns the number of distinct field names.
func (h *Headers) Len() int {
	return h.fields.Len()
}

// Names returns the field names in wire order.
func (h *Headers) Names() []string {
	names := make([]string, 0, h.fields.Len())
	for k := range h.fields.AllFromFront() {
		names = append(names, k)
	}
	return names
}

// Map copies the fields into a plain map.
func (h *Headers) Map() map[string]string {
	m := make(map[string]string, h.fields.Len())
	for k, v := range h.fields.AllFromFront() {
		m[k] = v
	}
	return m
}

// Field is one parsed header field.
type Field struct {
	Name string
	Body string
}

// FieldResult is the outcome of ParseField when no syntax error occurred.
//
// When Incomplete is true the input ended before the field could be
// recognised; the caller must append another line and parse the same input
// again. Otherwise Field holds the parsed field and Rest the unconsumed input.
type FieldResult struct {
	Field      Field
	Rest       string
	Incomplete bool
}

// ParseField parses one header field from the start of input:
//
//	name [ws]* ':' [ws]* body CRLF
//
// A body is a double-quoted string or text up to CRLF. It continues onto
// following lines that start with a space or tab; the CRLF and leading
// whitespace of a continuation are dropped and nothing is inserted between
// the pieces. Quoted strings are returned without their quotes but with any
// backslash escapes left in place.
//
// A *SyntaxError is returned when input cannot start a valid field.
func ParseField(input string) (FieldResult, error) {
	name, rest, err := fieldName(input)
	if err == nil {
		rest, err = fieldSeparator(rest)
	}
	var body string
	if err == nil {
		body, rest, err = fieldBody(rest)
	}
	if err == nil {
		rest, err = crlf(rest)
	}

	switch {
	case errors.Is(err, errIncomplete):
		return FieldResult{Incomplete: true}, nil
	case err != nil:
		return FieldResult{}, err
	}
	return FieldResult{Field: Field{Name: name, Body: body}, Rest: rest}, nil
}

// ReadHeaders reads header fields from r until a line consisting solely of
// CRLF (or end of stream before any field starts).
func ReadHeaders(r *bufio.Reader) (*Headers, error) {
	headers := NewHeaders()

	buf, err := r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read header line: %w", err)
	}

	for buf != "" && buf != "\r\n" {
		res, err := ParseField(buf)
		if err != nil {
			return nil, err
		}
		if res.Incomplete {
			line, err := r.ReadString('\n')
			if line == "" {
				if err == nil || errors.Is(err, io.EOF) {
					err = io.ErrUnexpectedEOF
				}
				return nil, fmt.Errorf("failed to read header continuation: %w", err)
			}
			if err != nil && !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("failed to read header continuation: %w", err)
			}
			buf += line
			continue
		}
		headers.Set(res.Field.Name, res.Field.Body)
		buf = res.Rest
	}

	return headers, nil
}

func isNameChar(c byte) bool {
	return c > ' ' && c <= '~' && c != ':'
}

func isLinearSpace(c byte) bool {
	return c == ' ' || c == '\t'
}

func fieldName(in string) (name, rest string, err error) {
	i := 0
	for i < len(in) && isNameChar(in[i]) {
		i++
	}
	if i == len(in) {
		return "", "", errIncomplete
	}
	if i == 0 {
		return "", "", &SyntaxError{Msg: "expected field name", Input: in}
	}
	return in[:i], in[i:], nil
}

func fieldSeparator(in string) (string, error) {
	in, err := spaces(in)
	if err != nil {
		return "", err
	}
	if in[0] != ':' {
		return "", &SyntaxError{Msg: "expected ':'", Input: in}
	}
	return spaces(in[1:])
}

// spaces skips optional linear whitespace. It needs one byte past the run to
// know the run has ended.
func spaces(in string) (string, error) {
	i := 0
	for i < len(in) && isLinearSpace(in[i]) {
		i++
	}
	if i == len(in) {
		return "", errIncomplete
	}
	return in[i:], nil
}

func fieldBody(in string) (body, rest string, err error) {
	body, rest, err = bodyContents(in)
	if err != nil {
		return "", "", err
	}

	next, err := continuation(rest)
	switch {
	case err == nil:
		more, after, err := fieldBody(next)
		if err != nil {
			return "", "", err
		}
		return body + more, after, nil
	case errors.Is(err, errIncomplete):
		return "", "", err
	default:
		// No continuation line follows.
		return body, rest, nil
	}
}

// continuation matches CRLF followed by at least one space or tab.
func continuation(in string) (string, error) {
	rest, err := crlf(in)
	if err != nil {
		return "", err
	}
	i := 0
	for i < len(rest) && isLinearSpace(rest[i]) {
		i++
	}
	if i == len(rest) {
		return "", errIncomplete
	}
	if i == 0 {
		return "", &SyntaxError{Msg: "expected continuation whitespace", Input: rest}
	}
	return rest[i:], nil
}

func bodyContents(in string) (string, string, error) {
	body, rest, err := quotedString(in)
	var syntaxErr *SyntaxError
	if errors.As(err, &syntaxErr) {
		return text(in)
	}
	return body, rest, err
}

func quotedString(in string) (string, string, error) {
	if in == "" {
		return "", "", errIncomplete
	}
	if in[0] != '"' {
		return "", "", &SyntaxError{Msg: "expected '\"'", Input: in}
	}
	i := 1
	for i < len(in) {
		switch in[i] {
		case '"':
			return in[1:i], in[i+1:], nil
		case '\\':
			if i+1 == len(in) {
				return "", "", errIncomplete
			}
			i += 2
		case '\r':
			return "", "", &SyntaxError{Msg: "unterminated quoted string", Input: in}
		default:
			i++
		}
	}
	return "", "", errIncomplete
}

func text(in string) (string, string, error) {
	i := strings.Index(in, "\r\n")
	if i < 0 {
		return "", "", errIncomplete
	}
	return in[:i], in[i:], nil
}

func crlf(in string) (string, error) {
	switch {
	case strings.HasPrefix(in, "\r\n"):
		return in[2:], nil
	case in == "" || in == "\r":
		return "", errIncomplete
	default:
		return "", &SyntaxError{Msg: "expected CRLF", Input: in}
	}
}
