package persona

import (
	"errors"
	"fmt"
	"strings"
)

// Palette is the fixed set of avatar colors a new persona draws from.
var Palette = []string{"#4F46E5", "#0EA5E9", "#E11D48", "#059669", "#D946EF", "#F59E0B"}

// Persona 是一个可复用的写作分身。
type Persona struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Role        string   `json:"role" yaml:"role"`
	Platform    Platform `json:"platform" yaml:"platform"`
	Tone        string   `json:"tone" yaml:"tone"`
	Description string   `json:"description" yaml:"description"`
	AvatarColor string   `json:"avatarColor" yaml:"avatar_color,omitempty"`
}

// Fields carries the user-editable part of a persona.
type Fields struct {
	Name        string   `json:"name"`
	Role        string   `json:"role"`
	Platform    Platform `json:"platform"`
	Tone        string   `json:"tone"`
	Description string   `json:"description"`
}

func (p Persona) Fields() Fields {
	return Fields{
		Name:        p.Name,
		Role:        p.Role,
		Platform:    p.Platform,
		Tone:        p.Tone,
		Description: p.Description,
	}
}

var ErrNotFound = errors.New("persona not found")

// ValidationError reports a required field that was blank or out of range.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("persona: %s %s", e.Field, e.Reason)
}

// Normalize trims text fields and checks that all of them are present.
func (f Fields) Normalize() (Fields, error) {
	f.Name = strings.TrimSpace(f.Name)
	f.Role = strings.TrimSpace(f.Role)
	f.Tone = strings.TrimSpace(f.Tone)
	f.Description = strings.TrimSpace(f.Description)
	required := []struct{ name, value string }{
		{"name", f.Name},
		{"role", f.Role},
		{"tone", f.Tone},
		{"description", f.Description},
	}
	for _, r := range required {
		if r.value == "" {
			return Fields{}, &ValidationError{Field: r.name, Reason: "is required"}
		}
	}
	if f.Platform == "" {
		return Fields{}, &ValidationError{Field: "platform", Reason: "is required"}
	}
	p, err := ParsePlatform(string(f.Platform))
	if err != nil {
		return Fields{}, &ValidationError{Field: "platform", Reason: "is not supported"}
	}
	f.Platform = p
	return f, nil
}
