package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"PublishNotifier/internal/config"
	"PublishNotifier/internal/domain"
	"PublishNotifier/internal/ports"
)

const (
	excerptLimit      = 300
	campaignNameLimit = 50
	ellipsis          = "..."
	unsubscribePath   = "/newsletter/unsubscribe"
	youtubeLabel      = "Watch on YouTube"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Renderer builds provider-ready emails from content items and contact messages.
type Renderer struct {
	siteName       string
	frontendURL    string
	backendURL     string
	unsubscribeURL string
	registry       *Registry
	content        *template.Template
	contact        *template.Template
	now            func() time.Time
}

var _ ports.Renderer = (*Renderer)(nil)

type contentView struct {
	SiteName       string
	Theme          Theme
	Title          string
	Excerpt        string
	Link           string
	ImageURL       string
	Badge          string
	Author         string
	SecondaryURL   string
	SecondaryLabel string
	UnsubscribeURL string
	Year           int
}

type contactView struct {
	SiteName   string
	Name       string
	Email      string
	MailtoURL  string
	ReplyURL   string
	Subject    string
	Message    string
	ReceivedAt string
	Year       int
}

// New parses the embedded templates. A nil registry means DefaultRegistry.
// Without an unsubscribe or frontend URL the footer carries no unsubscribe link.
func New(cfg config.NotificationConfig, reg *Registry) (*Renderer, error) {
	if reg == nil {
		reg = DefaultRegistry()
	}
	content, err := template.ParseFS(templatesFS, "templates/content.html")
	if err != nil {
		return nil, fmt.Errorf("parse content template: %w", err)
	}
	contact, err := template.ParseFS(templatesFS, "templates/contact.html")
	if err != nil {
		return nil, fmt.Errorf("parse contact template: %w", err)
	}

	frontend := strings.TrimRight(strings.TrimSpace(cfg.FrontendURL), "/")
	unsubscribe := strings.TrimSpace(cfg.UnsubscribeURL)
	if unsubscribe == "" && frontend != "" {
		unsubscribe = frontend + unsubscribePath
	}

	return &Renderer{
		siteName:       cfg.SiteName,
		frontendURL:    frontend,
		backendURL:     strings.TrimRight(strings.TrimSpace(cfg.BackendURL), "/"),
		unsubscribeURL: unsubscribe,
		registry:       reg,
		content:        content,
		contact:        contact,
		now:            time.Now,
	}, nil
}

// RenderContent builds the campaign email for a published item. It fails
// with domain.ErrValidation when the item has no title or no resolvable link.
func (r *Renderer) RenderContent(item domain.ContentItem) (domain.RenderedEmail, error) {
	theme, err := r.registry.Resolve(item.Kind)
	if err != nil {
		return domain.RenderedEmail{}, err
	}

	title := strings.TrimSpace(item.Title)
	if title == "" {
		return domain.RenderedEmail{}, fmt.Errorf("%s %d has no title: %w", item.Kind, item.ID, domain.ErrValidation)
	}
	link, err := r.resolveLink(item, theme)
	if err != nil {
		return domain.RenderedEmail{}, err
	}

	excerpt := strings.TrimSpace(item.Excerpt)
	if excerpt == "" {
		excerpt = excerptFromHTML(item.BodyHTML)
	}

	view := contentView{
		SiteName:       r.siteName,
		Theme:          theme,
		Title:          title,
		Excerpt:        excerpt,
		Link:           link,
		ImageURL:       r.assetURL(item.CoverImageURL),
		Badge:          strings.TrimSpace(item.Category),
		Author:         strings.TrimSpace(item.Author),
		UnsubscribeURL: r.unsubscribeURL,
		Year:           r.now().Year(),
	}
	if item.Kind == domain.KindVideo && strings.TrimSpace(item.YouTubeURL) != "" {
		view.SecondaryURL = strings.TrimSpace(item.YouTubeURL)
		view.SecondaryLabel = youtubeLabel
	}

	var buf bytes.Buffer
	if err := r.content.Execute(&buf, view); err != nil {
		return domain.RenderedEmail{}, fmt.Errorf("execute %s template: %w", item.Kind, err)
	}

	return domain.RenderedEmail{
		Name:    theme.NamePrefix + truncate(title, campaignNameLimit),
		Subject: theme.SubjectPrefix + title,
		HTML:    buf.String(),
	}, nil
}

// RenderContact builds the admin notification for a stored contact message.
func (r *Renderer) RenderContact(msg domain.ContactMessage) (domain.RenderedEmail, error) {
	email := strings.TrimSpace(msg.Email)
	if email == "" {
		return domain.RenderedEmail{}, fmt.Errorf("contact message %s has no email: %w", msg.ID, domain.ErrValidation)
	}

	received := msg.ReceivedAt
	if received.IsZero() {
		received = r.now()
	}

	view := contactView{
		SiteName:   r.siteName,
		Name:       msg.Name,
		Email:      email,
		MailtoURL:  "mailto:" + email,
		ReplyURL:   "mailto:" + email + "?subject=" + url.PathEscape("Re: "+msg.Subject),
		Subject:    msg.Subject,
		Message:    msg.Message,
		ReceivedAt: received.UTC().Format("02 Jan 2006 15:04 MST"),
		Year:       r.now().Year(),
	}

	var buf bytes.Buffer
	if err := r.contact.Execute(&buf, view); err != nil {
		return domain.RenderedEmail{}, fmt.Errorf("execute contact template: %w", err)
	}

	return domain.RenderedEmail{
		Name:    "contact-" + msg.ID,
		Subject: "Contact: " + msg.Subject,
		HTML:    buf.String(),
	}, nil
}

func (r *Renderer) resolveLink(item domain.ContentItem, theme Theme) (string, error) {
	if canonical := strings.TrimSpace(item.CanonicalURL); canonical != "" {
		return canonical, nil
	}
	slug := strings.Trim(strings.TrimSpace(item.Slug), "/")
	if slug == "" || r.frontendURL == "" {
		return "", fmt.Errorf("%s %d has no resolvable link: %w", item.Kind, item.ID, domain.ErrValidation)
	}
	return r.frontendURL + theme.PathPrefix + url.PathEscape(slug), nil
}

func (r *Renderer) assetURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") || strings.HasPrefix(raw, "//") {
		return raw
	}
	if r.backendURL == "" {
		return raw
	}
	return r.backendURL + "/" + strings.TrimLeft(raw, "/")
}

func excerptFromHTML(body string) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return ""
	}
	doc.Find("script, style").Remove()
	text := strings.Join(strings.Fields(doc.Text()), " ")
	return truncate(text, excerptLimit)
}

// truncate cuts s to at most limit runes, marking the cut with an ellipsis.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimRight(string(runes[:limit]), " ") + ellipsis
}
