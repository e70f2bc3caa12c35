package http

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"PublishNotifier/internal/domain"
	"PublishNotifier/internal/metrics"
	"PublishNotifier/internal/ports"
	"PublishNotifier/internal/usecase"
)

const (
	maxBodyBytes   = 1 << 20
	contactSuccess = "Your message has been sent successfully."
)

// ContactService is the contact workflow used by the public and admin routes.
type ContactService interface {
	Submit(ctx context.Context, sub domain.ContactSubmission, ip string) (domain.ContactMessage, error)
	List(ctx context.Context, status domain.ContactStatus, limit int) ([]domain.ContactMessage, error)
	Stats(ctx context.Context) (domain.ContactStats, error)
	Get(ctx context.Context, id string) (domain.ContactMessage, error)
	MarkReplied(ctx context.Context, id, operator string) (domain.ContactMessage, error)
	Archive(ctx context.Context, id string) (domain.ContactMessage, error)
}

// ContentWatcher receives content save events.
type ContentWatcher interface {
	OnContentSaved(ctx context.Context, item domain.ContentItem, created bool) usecase.DispatchResult
}

// LedgerReader serves the operator views of the ledger.
type LedgerReader interface {
	Get(ctx context.Context, kind domain.ContentKind, contentID int64) (domain.NotificationRecord, error)
	List(ctx context.Context, filter domain.RecordFilter) ([]domain.NotificationRecord, error)
}

// Resetter clears ledger records on operator request.
type Resetter interface {
	Reset(ctx context.Context, req domain.ResetRequest) (domain.ResetEntry, error)
}

// Pinger reports readiness of a backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds the dependencies of every route.
type Handler struct {
	contact  ContactService
	watcher  ContentWatcher
	ledger   LedgerReader
	resetter Resetter
	limiter  ports.RateLimiter
	ready    Pinger
	logger   *slog.Logger

	trustForwarded bool
}

type contentSavedRequest struct {
	Item    domain.ContentItem `json:"item"`
	Created bool               `json:"created"`
}

type dispatchResponse struct {
	usecase.DispatchResult
	Error string `json:"error,omitempty"`
}

type repliedRequest struct {
	Operator string `json:"operator"`
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready.Ping(r.Context()); err != nil {
			h.logger.Warn("readiness check failed", "err", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *Handler) submitContact(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r, h.trustForwarded)
	if h.limiter != nil {
		if decision := h.limiter.Allow(ip); !decision.Allowed() {
			metrics.ObserveContactSubmission("throttled")
			seconds := int(math.Ceil(decision.Wait.Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
			writeDetail(w, http.StatusTooManyRequests,
				fmt.Sprintf("Request was throttled. Expected available in %d seconds.", seconds))
			return
		}
	}

	var sub domain.ContactSubmission
	if !decodeJSON(w, r, &sub) {
		return
	}
	if _, err := h.contact.Submit(r.Context(), sub, ip); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": contactSuccess})
}

func (h *Handler) contentSaved(w http.ResponseWriter, r *http.Request) {
	var req contentSavedRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res := h.watcher.OnContentSaved(r.Context(), req.Item, req.Created)
	body := dispatchResponse{DispatchResult: res}
	if res.Err != nil {
		body.Error = res.Err.Error()
	}
	writeJSON(w, http.StatusAccepted, body)
}

func (h *Handler) listNotifications(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.RecordFilter{Limit: queryInt(q.Get("limit"))}

	if raw := strings.TrimSpace(q.Get("kind")); raw != "" {
		kind, err := domain.ParseContentKind(raw)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		filter.Kind = kind
	}
	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		status := domain.NotificationStatus(raw)
		switch status {
		case domain.NotificationPending, domain.NotificationSent, domain.NotificationFailed:
			filter.Status = status
		default:
			writeError(w, h.logger, fmt.Errorf("status %q: %w", raw, domain.ErrValidation))
			return
		}
	}

	records, err := h.ledger.List(r.Context(), filter)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if records == nil {
		records = []domain.NotificationRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *Handler) getNotification(w http.ResponseWriter, r *http.Request) {
	kind, id, err := contentRef(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	rec, err := h.ledger.Get(r.Context(), kind, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) resetNotification(w http.ResponseWriter, r *http.Request) {
	kind, id, err := contentRef(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req domain.ResetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Kind = kind
	req.ContentID = id

	entry, err := h.resetter.Reset(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *Handler) listContactMessages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	msgs, err := h.contact.List(r.Context(), domain.ContactStatus(strings.TrimSpace(q.Get("status"))), queryInt(q.Get("limit")))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if msgs == nil {
		msgs = []domain.ContactMessage{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (h *Handler) contactStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.contact.Stats(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) getContactMessage(w http.ResponseWriter, r *http.Request) {
	msg, err := h.contact.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (h *Handler) markContactReplied(w http.ResponseWriter, r *http.Request) {
	var req repliedRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	msg, err := h.contact.MarkReplied(r.Context(), chi.URLParam(r, "id"), req.Operator)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (h *Handler) archiveContactMessage(w http.ResponseWriter, r *http.Request) {
	msg, err := h.contact.Archive(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func contentRef(r *http.Request) (domain.ContentKind, int64, error) {
	kind, err := domain.ParseContentKind(chi.URLParam(r, "kind"))
	if err != nil {
		return "", 0, err
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return "", 0, fmt.Errorf("content id %q: %w", chi.URLParam(r, "id"), domain.ErrValidation)
	}
	return kind, id, nil
}

func queryInt(raw string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(raw))
	return n
}
