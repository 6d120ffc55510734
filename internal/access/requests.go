package access

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"strings"
	"time"

	"employee-timesheet/internal/email"
	"employee-timesheet/internal/storage"
	"employee-timesheet/web"
)

var (
	ErrDuplicateRequest = errors.New("access request already submitted")
	ErrMissingName      = errors.New("name is required")
)

// DuplicateRequestError is returned when the email already has a request on file.
type DuplicateRequestError struct {
	Email string
}

func (e *DuplicateRequestError) Error() string {
	return fmt.Sprintf("an access request for %s has already been submitted", e.Email)
}

func (e *DuplicateRequestError) Unwrap() error { return ErrDuplicateRequest }

// RequestStore is the persistence used by RequestIntake.
type RequestStore interface {
	CreateAccessRequest(ctx context.Context, req *storage.AccessRequest) error
	GetAccessRequestByEmail(ctx context.Context, email string) (*storage.AccessRequest, error)
	ListAccessRequests(ctx context.Context, pendingOnly bool) ([]storage.AccessRequest, error)
	MarkAccessRequestReviewed(ctx context.Context, id int64) error
}

const notifyTimeout = 15 * time.Second

// RequestIntake accepts account requests from people who cannot sign in yet.
type RequestIntake struct {
	store  RequestStore
	mailer email.Sender
	notify []string
	// ReviewURL is linked from notification emails when set.
	ReviewURL string

	tmpl   *template.Template
	logger *slog.Logger
}

// NewRequestIntake creates an intake. mailer may be nil, in which case no
// notifications are sent.
func NewRequestIntake(store RequestStore, mailer email.Sender, notify []string) (*RequestIntake, error) {
	tmpl, err := template.ParseFS(web.Templates, "templates/email/access_request.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse notification template: %w", err)
	}
	return &RequestIntake{
		store:  store,
		mailer: mailer,
		notify: notify,
		tmpl:   tmpl,
		logger: slog.With("component", "access_requests"),
	}, nil
}

// Submit records a pending request. A second request for an email that is
// already on file returns DuplicateRequestError and leaves the first intact.
func (ri *RequestIntake) Submit(ctx context.Context, name, emailAddr, message string) (*storage.AccessRequest, error) {
	name = strings.TrimSpace(name)
	emailAddr = strings.TrimSpace(emailAddr)
	if name == "" {
		return nil, ErrMissingName
	}
	if err := ValidEmail(emailAddr); err != nil {
		return nil, err
	}

	if _, err := ri.store.GetAccessRequestByEmail(ctx, emailAddr); err == nil {
		return nil, &DuplicateRequestError{Email: emailAddr}
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	req := &storage.AccessRequest{
		Name:    name,
		Email:   emailAddr,
		Message: strings.TrimSpace(message),
	}
	if err := ri.store.CreateAccessRequest(ctx, req); err != nil {
		// Lost a race with a concurrent submission for the same email.
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, &DuplicateRequestError{Email: emailAddr}
		}
		return nil, err
	}
	ri.logger.Info("Access request submitted", "id", req.ID, "email", req.Email)

	ri.notifyAdmins(ctx, req)
	return req, nil
}

// Pending lists requests that have not been reviewed yet.
func (ri *RequestIntake) Pending(ctx context.Context) ([]storage.AccessRequest, error) {
	return ri.store.ListAccessRequests(ctx, true)
}

// All lists every request, newest first.
func (ri *RequestIntake) All(ctx context.Context) ([]storage.AccessRequest, error) {
	return ri.store.ListAccessRequests(ctx, false)
}

// MarkReviewed flags a request as handled by an administrator.
func (ri *RequestIntake) MarkReviewed(ctx context.Context, id int64) error {
	if err := ri.store.MarkAccessRequestReviewed(ctx, id); err != nil {
		return err
	}
	ri.logger.Info("Access request reviewed", "id", id)
	return nil
}

// notifyAdmins is best effort; failures are only logged.
func (ri *RequestIntake) notifyAdmins(ctx context.Context, req *storage.AccessRequest) {
	if ri.mailer == nil || len(ri.notify) == 0 {
		return
	}

	var body bytes.Buffer
	err := ri.tmpl.Execute(&body, struct {
		*storage.AccessRequest
		ReviewURL string
	}{req, ri.ReviewURL})
	if err != nil {
		ri.logger.Error("Failed to render notification", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	err = ri.mailer.Send(ctx, &email.Message{
		To:      ri.notify,
		Subject: fmt.Sprintf("Access request from %s", req.Name),
		HTML:    body.String(),
	})
	if err != nil {
		ri.logger.Error("Failed to send access request notification", "id", req.ID, "error", err)
	}
}
