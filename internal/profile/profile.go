// Package profile holds the candidate data a resume is generated from and
// persists it as a flat record.
package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrNotFound = errors.New("profile not found")

// Profile is the candidate's career data. Every field is free text.
type Profile struct {
	Name       string `json:"name,omitempty"`
	Title      string `json:"title,omitempty"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Location   string `json:"location,omitempty"`
	LinkedIn   string `json:"linkedin,omitempty"`
	GitHub     string `json:"github,omitempty"`
	Website    string `json:"website,omitempty"`
	Summary    string `json:"summary,omitempty"`
	Experience string `json:"experience,omitempty"`
	Skills     string `json:"skills,omitempty"`
	Education  string `json:"education,omitempty"`
}

// Store persists a single profile.
type Store interface {
	Load(ctx context.Context) (Profile, error)
	Save(ctx context.Context, p Profile) error
}

// fields lists the record keys in display order.
func (p *Profile) fields() []struct {
	key string
	val *string
} {
	return []struct {
		key string
		val *string
	}{
		{"name", &p.Name},
		{"title", &p.Title},
		{"email", &p.Email},
		{"phone", &p.Phone},
		{"location", &p.Location},
		{"linkedin", &p.LinkedIn},
		{"github", &p.GitHub},
		{"website", &p.Website},
		{"summary", &p.Summary},
		{"experience", &p.Experience},
		{"skills", &p.Skills},
		{"education", &p.Education},
	}
}

// Record flattens p to its non-empty fields.
func (p Profile) Record() map[string]string {
	out := map[string]string{}
	for _, f := range p.fields() {
		if *f.val != "" {
			out[f.key] = *f.val
		}
	}
	return out
}

// FromRecord builds a profile from a flat record. Unknown keys are
// ignored.
func FromRecord(rec map[string]string) Profile {
	var p Profile
	for _, f := range p.fields() {
		*f.val = rec[f.key]
	}
	return p
}

// Normalize trims surrounding whitespace from every field.
func (p Profile) Normalize() Profile {
	for _, f := range p.fields() {
		*f.val = strings.TrimSpace(*f.val)
	}
	return p
}

func (p Profile) IsEmpty() bool {
	return p == Profile{}
}

// PromptText renders p as indented JSON of its non-empty fields.
func (p Profile) PromptText() string {
	b, _ := json.MarshalIndent(p, "", "  ")
	return string(b)
}

// DisplayName is the name used for export filenames and page titles.
func (p Profile) DisplayName() string {
	if p.Name == "" {
		return "resume"
	}
	return p.Name
}

// PromptTextFromJSON accepts a profile sent by a client. A JSON string is
// used verbatim; any other JSON value is re-indented.
func PromptTextFromJSON(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("decode profile: %w", err)
		}
		return s, nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return "", fmt.Errorf("decode profile: %w", err)
	}
	return buf.String(), nil
}
