// Package dispatch implements the core of the mail-dispatch service:
// recipient validation, per-recipient template rendering, and the
// sequential batch-delivery loop over one shared SMTP session.
package dispatch

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/ignite/mail-dispatch/internal/domain"
	"github.com/ignite/mail-dispatch/internal/pkg/logger"
)

// Dispatcher orchestrates one batch: validate → partition → open one
// session → render and send per recipient → aggregate outcomes.
// A Dispatcher holds no per-batch state and is safe for concurrent
// batches; each Dispatch call owns its own session and result.
type Dispatcher struct {
	opener   Opener
	renderer *Renderer
	log      *logger.Logger
}

// NewDispatcher creates a dispatcher. The logger is a required
// capability, not a global; pass a discard-level logger in tests.
func NewDispatcher(opener Opener, renderer *Renderer, log *logger.Logger) *Dispatcher {
	return &Dispatcher{opener: opener, renderer: renderer, log: log}
}

// Dispatch processes one SendRequest and returns its BatchResult.
//
// Only whole-batch failures propagate as errors: *ValidationError for
// a malformed request, ErrNoValidRecipients when every address fails
// syntax validation, and *ConnectError when the session cannot be
// established. Everything else — rejections, timeouts, session death
// mid-batch — is absorbed into per-recipient outcomes.
//
// Recipients are sent sequentially over the shared session. This is a
// deliberate choice, not a simplification: parallel sends would break
// the session-death semantics (all unattempted recipients must fail
// with the root cause) and most SMTP servers rate-limit concurrent
// sessions from one client anyway.
func (d *Dispatcher) Dispatch(ctx context.Context, req domain.SendRequest) (*domain.BatchResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	batchID := uuid.New().String()
	valid, invalid := Partition(req.Recipients)

	d.log.Info("batch started",
		"batch_id", batchID,
		"recipients", len(req.Recipients),
		"valid", len(valid),
		"invalid", len(invalid),
		"smtp_host", req.Endpoint.Host)

	if len(valid) == 0 {
		d.log.Warn("batch rejected: no valid recipients", "batch_id", batchID)
		return nil, ErrNoValidRecipients
	}

	result := &domain.BatchResult{
		BatchID:  batchID,
		Outcomes: make([]domain.RecipientOutcome, 0, len(req.Recipients)),
	}
	for _, rec := range invalid {
		d.record(result, domain.RecipientOutcome{
			Recipient: rec,
			Status:    domain.StatusInvalidAddress,
			Detail:    "address failed syntax validation",
		}, batchID)
	}

	session, err := d.opener.Open(ctx, req.Endpoint)
	if err != nil {
		var connErr *ConnectError
		if !errors.As(err, &connErr) {
			err = &ConnectError{Err: err}
		}
		d.log.Error("batch aborted: session open failed", "batch_id", batchID, "error", err.Error())
		return nil, err
	}
	defer session.Close()

	// Once the session dies, every remaining recipient fails with the
	// same root cause and no further sends are attempted.
	var sessionDown string

	for _, rec := range valid {
		if sessionDown == "" && ctx.Err() != nil {
			// Safe point: the previous recipient's send has finished.
			sessionDown = "batch canceled: " + ctx.Err().Error()
		}
		if sessionDown != "" {
			d.record(result, domain.RecipientOutcome{
				Recipient: rec,
				Status:    domain.StatusDeliveryFailed,
				Detail:    sessionDown,
			}, batchID)
			continue
		}

		msg := d.buildMessage(req, rec)
		err := session.Send(ctx, msg)

		var sendErr *SendError
		var sessionErr *SessionError
		switch {
		case err == nil:
			d.record(result, domain.RecipientOutcome{
				Recipient: rec,
				Status:    domain.StatusSent,
			}, batchID)
		case errors.As(err, &sendErr):
			d.record(result, domain.RecipientOutcome{
				Recipient: rec,
				Status:    domain.StatusDeliveryFailed,
				Detail:    sendErr.Detail,
			}, batchID)
		case errors.As(err, &sessionErr):
			sessionDown = sessionErr.Detail
			d.record(result, domain.RecipientOutcome{
				Recipient: rec,
				Status:    domain.StatusDeliveryFailed,
				Detail:    sessionErr.Detail,
			}, batchID)
		default:
			// Unknown error: the session state is indeterminate, so
			// treat it as session death rather than keep sending.
			sessionDown = err.Error()
			d.record(result, domain.RecipientOutcome{
				Recipient: rec,
				Status:    domain.StatusDeliveryFailed,
				Detail:    err.Error(),
			}, batchID)
		}
	}

	for _, o := range result.Outcomes {
		if o.Status == domain.StatusSent {
			result.SentCount++
		} else {
			result.FailedCount++
		}
	}

	d.log.Info("batch completed",
		"batch_id", batchID,
		"sent", result.SentCount,
		"failed", result.FailedCount)

	return result, nil
}

// buildMessage renders the subject and body for one recipient and
// derives the plain-text alternative from the rendered body.
func (d *Dispatcher) buildMessage(req domain.SendRequest, rec domain.Recipient) *domain.Message {
	body := d.renderer.Render(req.Body, rec)
	return &domain.Message{
		To:        rec.Email,
		FromName:  req.Endpoint.FromName,
		FromEmail: req.Endpoint.FromEmail,
		Subject:   d.renderer.Render(req.Subject, rec),
		HTML:      body,
		Text:      PlainText(body),
	}
}

func (d *Dispatcher) record(result *domain.BatchResult, outcome domain.RecipientOutcome, batchID string) {
	result.Outcomes = append(result.Outcomes, outcome)
	d.log.Info("recipient outcome",
		"batch_id", batchID,
		"recipient", outcome.Recipient.Email,
		"status", string(outcome.Status),
		"detail", outcome.Detail)
}

func validateRequest(req domain.SendRequest) error {
	if len(req.Recipients) == 0 {
		return &ValidationError{Field: "recipients", Reason: "must not be empty"}
	}
	if strings.TrimSpace(req.Subject) == "" {
		return &ValidationError{Field: "subject", Reason: "must not be empty"}
	}
	if strings.TrimSpace(req.Body) == "" {
		return &ValidationError{Field: "body", Reason: "must not be empty"}
	}

	ep := req.Endpoint
	if ep.Host == "" {
		return &ValidationError{Field: "smtpConfig.host", Reason: "must not be empty"}
	}
	if ep.Port <= 0 || ep.Port > 65535 {
		return &ValidationError{Field: "smtpConfig.port", Reason: "must be in 1..65535"}
	}
	if ep.FromEmail == "" {
		return &ValidationError{Field: "smtpConfig.fromEmail", Reason: "must not be empty"}
	}
	if !isValidEmail(ep.FromEmail) {
		return &ValidationError{Field: "smtpConfig.fromEmail", Reason: "must be a valid address"}
	}
	return nil
}
