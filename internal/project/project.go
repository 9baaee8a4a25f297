package project

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrValidation is matched by every ValidationError via errors.Is.
var ErrValidation = errors.New("validation error")

// ValidationError reports an invalid project field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

type Project struct {
	ID          uuid.UUID
	Name        string
	Color       string
	Description string
	CreatedAt   time.Time
}

// New builds a project with a fresh id. The name and description are
// trimmed; an empty name is rejected.
func New(name, color, description string, createdAt time.Time) (Project, error) {
	name = strings.TrimSpace(name)
	if err := ValidateName(name); err != nil {
		return Project{}, err
	}
	return Project{
		ID:          uuid.New(),
		Name:        name,
		Color:       color,
		Description: strings.TrimSpace(description),
		CreatedAt:   createdAt,
	}, nil
}

func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Field: "name", Message: "required"}
	}
	return nil
}

// Palette is the set of color tokens offered when creating a project.
var Palette = []string{
	"#3B82F6", // blue
	"#8B5CF6", // purple
	"#10B981", // emerald
	"#F59E0B", // amber
	"#EF4444", // red
	"#06B6D4", // cyan
	"#84CC16", // lime
	"#F97316", // orange
	"#EC4899", // pink
	"#6366F1", // indigo
}
