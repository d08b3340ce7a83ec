// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing request data. JSON and
// form-encoded bodies are read through one parser so handlers never care which
// one the client sent.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"famledger/internal/core"
	"famledger/internal/ledger"
)

// maxBodyBytes caps request bodies; ledger payloads are a few hundred bytes.
const maxBodyBytes = 1 << 20

var errBodyTooLarge = errors.New("request body too large")

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body == nil {
		return p
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if p.err == nil && len(p.body) > maxBodyBytes {
		p.err = errBodyTooLarge
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	body := strings.TrimSpace(string(p.body))
	if body == "" {
		p.formData = url.Values{}
		return nil
	}

	// Try JSON first if content looks like JSON
	if body[0] == '{' {
		dec := json.NewDecoder(strings.NewReader(body))
		dec.UseNumber()
		p.jsonData = make(map[string]any)
		if err := dec.Decode(&p.jsonData); err != nil {
			p.jsonData = nil
			p.err = fmt.Errorf("decode json body: %w", err)
			return p.err
		}
		return nil
	}

	// Fall back to form parsing
	p.formData, p.err = url.ParseQuery(body)
	return p.err
}

// Get returns the first non-empty value among keys from the parsed data
// (JSON or form), sanitized and trimmed.
func (p *RequestBodyParser) Get(keys ...string) string {
	for _, key := range keys {
		if v := sanitizeInput(stringValue(p.raw(key))); v != "" {
			return v
		}
	}
	return ""
}

// Value returns the first present value among keys without converting it, so
// JSON numbers keep their type.
func (p *RequestBodyParser) Value(keys ...string) any {
	for _, key := range keys {
		if v := p.raw(key); v != nil {
			return v
		}
	}
	return nil
}

// Strings returns a list value: a JSON array, repeated form keys, or a single
// comma or semicolon separated string.
func (p *RequestBodyParser) Strings(key string) []string {
	var parts []string
	switch {
	case p.jsonData != nil:
		switch v := p.jsonData[key].(type) {
		case []any:
			for _, item := range v {
				parts = append(parts, stringValue(item))
			}
		default:
			parts = []string{stringValue(v)}
		}
	case p.formData != nil:
		parts = p.formData[key]
	}

	var out []string
	for _, part := range parts {
		for _, s := range strings.FieldsFunc(part, func(r rune) bool { return r == ',' || r == ';' }) {
			if s = sanitizeInput(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func (p *RequestBodyParser) raw(key string) any {
	if p.jsonData != nil {
		return p.jsonData[key]
	}
	if p.formData != nil {
		if _, ok := p.formData[key]; ok {
			return p.formData.Get(key)
		}
	}
	return nil
}

// Spec reads the filter fields of the body.
func (p *RequestBodyParser) Spec() ledger.Spec {
	if p.jsonData != nil {
		// a nested "filter" object is what the page sends with e-mail requests
		if nested, ok := p.jsonData["filter"].(map[string]any); ok {
			return ledger.SpecFromMap(nested)
		}
		return ledger.SpecFromMap(p.jsonData)
	}
	return ledger.ParseSpec(p.formData)
}

// TransactionInput reads the mutable transaction fields, accepting the field
// names of the original sheet client as aliases.
func (p *RequestBodyParser) TransactionInput() core.TransactionInput {
	return core.TransactionInput{
		Date:        p.Get("date"),
		Category:    p.Get("category", "type"),
		Description: p.Get("description", "content"),
		Amount:      p.Value("amount"),
	}
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue converts a decoded value to string.
func stringValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}

// querySpec reads the filter of a GET request.
func querySpec(r *http.Request) ledger.Spec {
	return ledger.ParseSpec(r.URL.Query())
}
