// Package http provides HTTP server and handler implementations.
//
// This file resolves path segments, query parameters and small request
// bodies into domain values.

package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"reportes/internal/core"
	"reportes/internal/services"
)

const maxBodyBytes = 4 << 10

// workbookTarget is what one /reportes-excel/{name} route exports.
type workbookTarget struct {
	dim      core.Dimension
	top      int
	combined bool
}

var workbookTargets = map[string]workbookTarget{
	"categoria":           {dim: core.DimensionCategory},
	"instituciones":       {dim: core.DimensionInstitution},
	"actividades":         {dim: core.DimensionActivity},
	"tramo-edad":          {dim: core.DimensionAgeBracket},
	"genero":              {dim: core.DimensionGender},
	"top10-instituciones": {dim: core.DimensionInstitution, top: core.TopN},
	"top10-actividades":   {dim: core.DimensionActivity, top: core.TopN},
	"completo":            {combined: true},
}

// ParseWorkbookTarget resolves the {name} segment of a spreadsheet route.
func ParseWorkbookTarget(name string) (workbookTarget, bool) {
	t, ok := workbookTargets[strings.ToLower(strings.TrimSpace(name))]
	return t, ok
}

// ParseDimensionParam resolves the {dimension} path segment.
func ParseDimensionParam(r *http.Request) (core.Dimension, error) {
	return core.ParseDimension(r.PathValue("dimension"))
}

// ParseInstitucionParam returns the sanitized institucion query value.
func ParseInstitucionParam(query url.Values) string {
	return sanitizeInput(query.Get("institucion"))
}

// ParseExportKindParam reads formato from the query string, falling back to
// a JSON or form body.
func ParseExportKindParam(r *http.Request) (services.ExportKind, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("formato"))
	if raw == "" && r.Body != nil {
		p := NewRequestBodyParser(r)
		if err := p.Parse(); err != nil {
			return "", fmt.Errorf("invalid request body: %w", err)
		}
		raw = p.Get("formato")
	}
	return services.ParseExportKind(strings.ToLower(raw))
}

// RequestBodyParser reads a small JSON or form-encoded body once.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// Bodies over 4 KiB are rejected.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if p.err == nil && len(p.body) > maxBodyBytes {
		p.err = fmt.Errorf("request body exceeds %d bytes", maxBodyBytes)
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

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if p.body[0] == '{' || strings.HasPrefix(p.contentType, "application/json") {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key].(string); ok {
			return sanitizeInput(val)
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}
