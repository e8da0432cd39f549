package errors

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/go-chi/render"
	"github.com/iancoleman/orderedmap"
)

// ContentTypeProblem is the media type of RFC 7807 responses
const ContentTypeProblem = "application/problem+json"

// ProblemDetails implements RFC 7807 Problem Details for HTTP APIs
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	// Additional fields for extensibility
	Extensions map[string]interface{} `json:"-"`
}

// Render implements the render.Renderer interface
func (pd *ProblemDetails) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, pd.Status)
	return nil
}

// Write sends the problem as an application/problem+json response
func (pd *ProblemDetails) Write(w http.ResponseWriter) error {
	body, err := pd.MarshalJSON()
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", ContentTypeProblem)
	w.WriteHeader(pd.Status)
	_, err = w.Write(append(body, '\n'))
	return err
}

// MarshalJSON writes the standard members first, then extensions by name
func (pd *ProblemDetails) MarshalJSON() ([]byte, error) {
	m := orderedmap.New()
	m.SetEscapeHTML(false)

	m.Set("type", pd.Type)
	m.Set("title", pd.Title)
	m.Set("status", pd.Status)
	if pd.Detail != "" {
		m.Set("detail", pd.Detail)
	}
	if pd.Instance != "" {
		m.Set("instance", pd.Instance)
	}

	keys := make([]string, 0, len(pd.Extensions))
	for k := range pd.Extensions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, reserved := m.Get(k); reserved {
			continue
		}
		m.Set(k, pd.Extensions[k])
	}

	return json.Marshal(m)
}

// NewProblemDetails creates a new RFC 7807 compliant error
func NewProblemDetails(status int, problemType, title, detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:       problemType,
		Title:      title,
		Status:     status,
		Detail:     detail,
		Instance:   instance,
		Extensions: make(map[string]interface{}),
	}
}

// WithExtension adds an extension field to the problem details
func (pd *ProblemDetails) WithExtension(key string, value interface{}) *ProblemDetails {
	if pd.Extensions == nil {
		pd.Extensions = make(map[string]interface{})
	}
	pd.Extensions[key] = value
	return pd
}
