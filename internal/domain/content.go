package domain

import "fmt"

// ContentKind identifies the editorial type of a content item.
type ContentKind string

const (
	KindArticle ContentKind = "article"
	KindVideo   ContentKind = "video"
)

// Valid reports whether the kind is one the notifier knows how to handle.
func (k ContentKind) Valid() bool {
	return k == KindArticle || k == KindVideo
}

// ParseContentKind converts external input into a ContentKind.
func ParseContentKind(raw string) (ContentKind, error) {
	kind := ContentKind(raw)
	if !kind.Valid() {
		return "", fmt.Errorf("content kind %q: %w", raw, ErrValidation)
	}
	return kind, nil
}

// PublicationStatus mirrors the editorial workflow state.
type PublicationStatus string

const (
	StatusDraft     PublicationStatus = "draft"
	StatusPublished PublicationStatus = "published"
)

// ContentItem is owned by the editorial subsystem and is read-only here.
type ContentItem struct {
	ID            int64             `json:"id"`
	Kind          ContentKind       `json:"kind"`
	Title         string            `json:"title"`
	Excerpt       string            `json:"excerpt,omitempty"`
	BodyHTML      string            `json:"body_html,omitempty"`
	Slug          string            `json:"slug,omitempty"`
	CoverImageURL string            `json:"cover_image_url,omitempty"`
	Status        PublicationStatus `json:"status"`
	CanonicalURL  string            `json:"canonical_url,omitempty"`
	Category      string            `json:"category,omitempty"`
	Author        string            `json:"author,omitempty"`
	VideoType     string            `json:"video_type,omitempty"`
	YouTubeURL    string            `json:"youtube_url,omitempty"`
}

// IsPublished reports whether the item is in its post-publish state.
func (c ContentItem) IsPublished() bool {
	return c.Status == StatusPublished
}
