package render

import (
	"fmt"

	"PublishNotifier/internal/domain"
)

// Theme carries everything that differs between content kinds. The
// structural template is shared so every kind keeps the same sections.
type Theme struct {
	Kind          domain.ContentKind
	Label         string
	Accent        string
	BadgeColor    string
	CTALabel      string
	PathPrefix    string
	SubjectPrefix string
	NamePrefix    string
}

// Registry keeps a mapping from content kinds to their themes.
type Registry struct {
	themes map[domain.ContentKind]Theme
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{themes: map[domain.ContentKind]Theme{}}
}

// DefaultRegistry holds the article and video themes.
func DefaultRegistry() *Registry {
	reg := NewRegistry()
	reg.Register(Theme{
		Kind:          domain.KindArticle,
		Label:         "New article",
		Accent:        "#f59e0b",
		BadgeColor:    "#f59e0b",
		CTALabel:      "Read the article →",
		PathPrefix:    "/articles/",
		SubjectPrefix: "New article: ",
		NamePrefix:    "Article: ",
	})
	reg.Register(Theme{
		Kind:          domain.KindVideo,
		Label:         "New video",
		Accent:        "#dc2626",
		BadgeColor:    "#dc2626",
		CTALabel:      "Watch the video →",
		PathPrefix:    "/web-tv/",
		SubjectPrefix: "New video: ",
		NamePrefix:    "Video: ",
	})
	return reg
}

// Register adds or replaces a theme.
func (r *Registry) Register(theme Theme) {
	if r.themes == nil {
		r.themes = map[domain.ContentKind]Theme{}
	}
	r.themes[theme.Kind] = theme
}

// Resolve returns the theme for a kind or a validation error if it is absent.
func (r *Registry) Resolve(kind domain.ContentKind) (Theme, error) {
	if theme, ok := r.themes[kind]; ok {
		return theme, nil
	}
	return Theme{}, fmt.Errorf("no template for content kind %q: %w", kind, domain.ErrValidation)
}
