package http

import (
	"iter"
	"slices"
	"strconv"
	"strings"

	"httpwire/application/util/rule"

	"github.com/indigo-web/utils/strcomp"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type ValueKind uint8

const (
	KindString ValueKind = iota
	KindInt
	KindUint
	KindStructured
)

// Value is a header value. Numbers render without quoting and structured
// values render as their JSON form.
type Value struct {
	kind ValueKind
	text string
	i    int64
	u    uint64
	data any
}

func StringValue(s string) Value { return Value{kind: KindString, text: s} }

func IntValue(i int64) Value {
	return Value{kind: KindInt, text: strconv.FormatInt(i, 10), i: i}
}

func UintValue(u uint64) Value {
	return Value{kind: KindUint, text: strconv.FormatUint(u, 10), u: u}
}

// StructuredValue serializes v once so that rendering never fails later.
func StructuredValue(v any) (Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return Value{}, errors.Wrap(err, "serializing structured value")
	}
	return Value{kind: KindStructured, text: string(b), data: v}, nil
}

func (v Value) Kind() ValueKind { return v.kind }

// Text returns the wire form of the value.
func (v Value) Text() string { return v.text }

func (v Value) String() string { return v.text }

func (v Value) Int() (int64, bool) {
	switch v.kind {
	case KindInt:
		return v.i, true
	case KindUint:
		if v.u <= 1<<63-1 {
			return int64(v.u), true
		}
	}
	return 0, false
}

func (v Value) Uint() (uint64, bool) {
	switch v.kind {
	case KindUint:
		return v.u, true
	case KindInt:
		if v.i >= 0 {
			return uint64(v.i), true
		}
	}
	return 0, false
}

func (v Value) Structured() (any, bool) { return v.data, v.kind == KindStructured }

var ErrInvalidField = errors.New("field is invalid")

type Field struct {
	Name  string
	Value Value
}

// validate rejects names that are not tokens and values that would break the
// line framing.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-5.5
func (f Field) validate() error {
	if !rule.IsValidToken(f.Name) {
		return errors.Wrapf(ErrInvalidField, "name %q is not a token", f.Name)
	}
	if strings.ContainsAny(f.Value.Text(), "\r\n\x00") {
		return errors.Wrapf(ErrInvalidField, "value of %q contains a line break", f.Name)
	}
	return nil
}

// Headers keeps fields in insertion order. Names keep their case but are
// looked up case-insensitively.
type Headers struct{ fields []Field }

func NewHeaders(fields ...Field) Headers {
	h := Headers{fields: make([]Field, 0, len(fields))}
	for _, f := range fields {
		h.Set(f.Name, f.Value)
	}
	return h
}

func (h Headers) index(name string) int {
	for idx, f := range h.fields {
		if strcomp.EqualFold(f.Name, name) {
			return idx
		}
	}
	return -1
}

func (h Headers) Get(name string) (Value, bool) {
	if idx := h.index(name); idx >= 0 {
		return h.fields[idx].Value, true
	}
	return Value{}, false
}

// GetText is a shortcut for the wire form of a field.
func (h Headers) GetText(name string) (string, bool) {
	v, ok := h.Get(name)
	return v.Text(), ok
}

func (h Headers) Has(name string) bool { return h.index(name) >= 0 }

// Set overwrites an existing field in place, keeping its position.
// Otherwise the field is appended.
func (h *Headers) Set(name string, value Value) {
	if idx := h.index(name); idx >= 0 {
		h.fields[idx] = Field{Name: name, Value: value}
		return
	}
	h.fields = append(h.fields, Field{Name: name, Value: value})
}

// SetIfAbsent reports whether the field was added.
func (h *Headers) SetIfAbsent(name string, value Value) bool {
	if h.Has(name) {
		return false
	}
	h.fields = append(h.fields, Field{Name: name, Value: value})
	return true
}

func (h *Headers) Del(name string) bool {
	idx := h.index(name)
	if idx < 0 {
		return false
	}
	h.fields = slices.Delete(h.fields, idx, idx+1)
	return true
}

func (h Headers) Len() int { return len(h.fields) }

func (h Headers) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		for _, f := range h.fields {
			if !yield(f.Name, f.Value) {
				return
			}
		}
	}
}

func (h Headers) Fields() []Field { return slices.Clone(h.fields) }

func (h Headers) Clone() Headers { return Headers{fields: slices.Clone(h.fields)} }
