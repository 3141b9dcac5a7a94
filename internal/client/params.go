package client

import (
	"net/url"
	"strconv"
	"strings"
)

// Params is an ordered query string. Keys keep the position of their first
// insertion; setting a key again replaces its value so every key appears
// exactly once. Absent values (empty strings, zero numbers, nil pointers,
// empty lists) are skipped by the typed setters.
//
// url.Values is not used because its Encode sorts keys.
type Params struct {
	keys   []string
	values map[string]string
}

// NewParams creates an empty parameter list.
func NewParams() *Params {
	return &Params{values: make(map[string]string)}
}

// Set stores key=value unconditionally.
func (p *Params) Set(key, value string) *Params {
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
	return p
}

// String sets key when value is non-empty.
func (p *Params) String(key, value string) *Params {
	if value == "" {
		return p
	}
	return p.Set(key, value)
}

// Int sets key when value is non-zero.
func (p *Params) Int(key string, value int) *Params {
	if value == 0 {
		return p
	}
	return p.Set(key, strconv.Itoa(value))
}

// Bool sets key when value is non-nil.
func (p *Params) Bool(key string, value *bool) *Params {
	if value == nil {
		return p
	}
	return p.Set(key, strconv.FormatBool(*value))
}

// Ints sets key to the comma-joined values when there are any.
func (p *Params) Ints(key string, values []int) *Params {
	if len(values) == 0 {
		return p
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return p.Set(key, strings.Join(parts, ","))
}

// Strings sets key to the comma-joined non-blank values when there are any.
func (p *Params) Strings(key string, values []string) *Params {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			parts = append(parts, v)
		}
	}
	if len(parts) == 0 {
		return p
	}
	return p.Set(key, strings.Join(parts, ","))
}

// Get returns the value for key.
func (p *Params) Get(key string) (string, bool) {
	v, ok := p.values[key]
	return v, ok
}

// Len returns the number of keys.
func (p *Params) Len() int {
	return len(p.keys)
}

// Encode renders the parameters in insertion order, URL-encoded.
func (p *Params) Encode() string {
	if p == nil || len(p.keys) == 0 {
		return ""
	}
	var b strings.Builder
	for i, k := range p.keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.values[k]))
	}
	return b.String()
}
