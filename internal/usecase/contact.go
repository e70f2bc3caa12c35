package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"PublishNotifier/internal/domain"
	"PublishNotifier/internal/metrics"
	"PublishNotifier/internal/ports"
)

// ContactAlerter tells the newsroom about a stored contact message.
type ContactAlerter interface {
	Notify(ctx context.Context, msg domain.ContactMessage) error
}

// ContactDeps wires the contact service.
type ContactDeps struct {
	Repository ports.ContactRepository
	Notifier   ContactAlerter
	Logger     *slog.Logger
}

// ContactService accepts contact form submissions and serves the admin workflow.
type ContactService struct {
	repo     ports.ContactRepository
	notifier ContactAlerter
	validate *validator.Validate
	logger   *slog.Logger
	now      func() time.Time
}

// NewContactService builds the service.
func NewContactService(deps ContactDeps) *ContactService {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ContactService{
		repo:     deps.Repository,
		notifier: deps.Notifier,
		validate: newValidator(),
		logger:   logger.With("component", "contact"),
		now:      time.Now,
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Submit validates and stores a submission, then notifies the admin. A
// notification failure is logged and never undoes the stored message.
func (s *ContactService) Submit(ctx context.Context, sub domain.ContactSubmission, ip string) (domain.ContactMessage, error) {
	sub = domain.ContactSubmission{
		Name:    strings.TrimSpace(sub.Name),
		Email:   strings.TrimSpace(sub.Email),
		Subject: strings.TrimSpace(sub.Subject),
		Message: strings.TrimSpace(sub.Message),
	}
	if err := s.check(sub); err != nil {
		metrics.ObserveContactSubmission("invalid")
		return domain.ContactMessage{}, err
	}

	msg := domain.ContactMessage{
		ID:         uuid.NewString(),
		Name:       sub.Name,
		Email:      sub.Email,
		Subject:    sub.Subject,
		Message:    sub.Message,
		Status:     domain.ContactNew,
		IPAddress:  ip,
		ReceivedAt: s.now().UTC(),
	}
	if err := s.repo.Save(ctx, msg); err != nil {
		return domain.ContactMessage{}, fmt.Errorf("save contact message: %w", err)
	}
	metrics.ObserveContactSubmission("accepted")

	log := s.logger.With("message_id", msg.ID)
	if s.notifier == nil {
		log.Warn("no contact notifier configured")
		return msg, nil
	}
	if err := s.notifier.Notify(context.WithoutCancel(ctx), msg); err != nil {
		log.Error("contact notification failed", "err", err)
		return msg, nil
	}
	log.Info("contact notification sent")
	return msg, nil
}

// List returns messages newest first. An empty status lists everything.
func (s *ContactService) List(ctx context.Context, status domain.ContactStatus, limit int) ([]domain.ContactMessage, error) {
	if status != "" && !status.Valid() {
		fields := domain.FieldErrors{}
		fields.Add("status", fmt.Sprintf("%q is not a valid choice.", status))
		return nil, &domain.ValidationError{Fields: fields}
	}
	return s.repo.List(ctx, status, limit)
}

// Stats counts messages per status for the admin dashboard.
func (s *ContactService) Stats(ctx context.Context) (domain.ContactStats, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return domain.ContactStats{}, fmt.Errorf("contact stats: %w", err)
	}
	return domain.NewContactStats(counts), nil
}

// Get loads a message and marks it read if it was new.
func (s *ContactService) Get(ctx context.Context, id string) (domain.ContactMessage, error) {
	msg, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.ContactMessage{}, err
	}
	if msg.MarkRead() {
		if err := s.repo.Update(ctx, msg); err != nil {
			return domain.ContactMessage{}, fmt.Errorf("mark read: %w", err)
		}
	}
	return msg, nil
}

// MarkReplied records who answered the message.
func (s *ContactService) MarkReplied(ctx context.Context, id, operator string) (domain.ContactMessage, error) {
	operator = strings.TrimSpace(operator)
	if operator == "" {
		fields := domain.FieldErrors{}
		fields.Add("operator", "This field is required.")
		return domain.ContactMessage{}, &domain.ValidationError{Fields: fields}
	}
	msg, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.ContactMessage{}, err
	}
	msg.MarkReplied(operator, s.now())
	if err := s.repo.Update(ctx, msg); err != nil {
		return domain.ContactMessage{}, fmt.Errorf("mark replied: %w", err)
	}
	s.logger.Info("contact message replied", "message_id", id, "operator", operator)
	return msg, nil
}

// Archive moves a message out of the inbox.
func (s *ContactService) Archive(ctx context.Context, id string) (domain.ContactMessage, error) {
	msg, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.ContactMessage{}, err
	}
	msg.Archive()
	if err := s.repo.Update(ctx, msg); err != nil {
		return domain.ContactMessage{}, fmt.Errorf("archive: %w", err)
	}
	return msg, nil
}

func (s *ContactService) check(sub domain.ContactSubmission) error {
	err := s.validate.Struct(sub)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate contact submission: %w", err)
	}
	fields := domain.FieldErrors{}
	for _, fe := range verrs {
		fields.Add(fe.Field(), fieldMessage(fe))
	}
	return &domain.ValidationError{Fields: fields}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field may not be blank."
	case "email":
		return "Enter a valid email address."
	case "min":
		return fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	}
	return "Invalid value."
}

// ContactNotifier emails the newsroom admin through the transactional API.
type ContactNotifier struct {
	provider  ports.EmailProvider
	renderer  ports.Renderer
	adminTo   string
	adminName string
}

// NewContactNotifier targets adminEmail.
func NewContactNotifier(provider ports.EmailProvider, renderer ports.Renderer, adminEmail, adminName string) *ContactNotifier {
	return &ContactNotifier{provider: provider, renderer: renderer, adminTo: adminEmail, adminName: adminName}
}

// Notify renders and sends the admin notification. Replies go to the submitter.
func (n *ContactNotifier) Notify(ctx context.Context, msg domain.ContactMessage) error {
	if strings.TrimSpace(n.adminTo) == "" {
		metrics.ObserveContactNotification("failed")
		return fmt.Errorf("admin email is not configured: %w", domain.ErrValidation)
	}
	email, err := n.renderer.RenderContact(msg)
	if err != nil {
		metrics.ObserveContactNotification("failed")
		return fmt.Errorf("render contact notification: %w", err)
	}
	if _, err := n.provider.SendTransactional(ctx, domain.TransactionalEmail{
		To:          n.adminTo,
		ToName:      n.adminName,
		Subject:     email.Subject,
		HTML:        email.HTML,
		ReplyTo:     msg.Email,
		ReplyToName: msg.Name,
	}); err != nil {
		metrics.ObserveContactNotification("failed")
		return fmt.Errorf("send contact notification: %w", err)
	}
	metrics.ObserveContactNotification("sent")
	return nil
}
