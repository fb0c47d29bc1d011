// Package api is the inbound HTTP gateway. It decodes send requests,
// hands them to the dispatcher, and maps the dispatcher's error
// taxonomy to HTTP statuses. Classification is by error type, never by
// message substrings.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ignite/mail-dispatch/internal/dispatch"
	"github.com/ignite/mail-dispatch/internal/domain"
	"github.com/ignite/mail-dispatch/internal/pkg/httputil"
	"github.com/ignite/mail-dispatch/internal/pkg/logger"
)

// BatchDispatcher is the core entry point the gateway drives.
type BatchDispatcher interface {
	Dispatch(ctx context.Context, req domain.SendRequest) (*domain.BatchResult, error)
}

// Handlers holds the gateway's dependencies.
type Handlers struct {
	dispatcher BatchDispatcher
	log        *logger.Logger
}

// NewHandlers creates the gateway handlers.
func NewHandlers(dispatcher BatchDispatcher, log *logger.Logger) *Handlers {
	return &Handlers{dispatcher: dispatcher, log: log}
}

type sendRequestBody struct {
	Recipients []domain.Recipient `json:"recipients"`
	Subject    string             `json:"subject"`
	Body       string             `json:"body"`
	SMTPConfig domain.Endpoint    `json:"smtpConfig"`
}

type sendSuccessResponse struct {
	Success     bool                      `json:"success"`
	Message     string                    `json:"message"`
	BatchID     string                    `json:"batchId"`
	SentCount   int                       `json:"sentCount"`
	FailedCount int                       `json:"failedCount"`
	Outcomes    []domain.RecipientOutcome `json:"outcomes"`
}

type sendErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// HandleSend accepts a batch send request and runs it to completion.
// A 200 means the batch executed, even when some individual recipients
// failed; per-recipient results are itemized in the outcomes list.
func (h *Handlers) HandleSend(w http.ResponseWriter, r *http.Request) {
	var body sendRequestBody
	if !httputil.Decode(w, r, &body) {
		return
	}

	req := domain.SendRequest{
		Recipients: body.Recipients,
		Subject:    body.Subject,
		Body:       body.Body,
		Endpoint:   body.SMTPConfig,
	}

	result, err := h.dispatcher.Dispatch(r.Context(), req)
	if err != nil {
		h.writeDispatchError(w, err)
		return
	}

	httputil.OK(w, sendSuccessResponse{
		Success:     true,
		Message:     fmt.Sprintf("Email sent successfully to %d recipient(s)", result.SentCount),
		BatchID:     result.BatchID,
		SentCount:   result.SentCount,
		FailedCount: result.FailedCount,
		Outcomes:    result.Outcomes,
	})
}

func (h *Handlers) writeDispatchError(w http.ResponseWriter, err error) {
	var vErr *dispatch.ValidationError
	var connErr *dispatch.ConnectError

	switch {
	case errors.As(err, &vErr):
		httputil.JSON(w, http.StatusBadRequest, sendErrorResponse{
			Message: "invalid send request",
			Error:   vErr.Error(),
		})
	case errors.Is(err, dispatch.ErrNoValidRecipients):
		httputil.JSON(w, http.StatusBadRequest, sendErrorResponse{
			Message: "no valid recipient addresses in request",
			Error:   err.Error(),
		})
	case errors.As(err, &connErr):
		// Connection details may include hostnames and auth hints;
		// log them, return a generic message.
		h.log.Error("smtp connect failed", "error", connErr.Error())
		httputil.JSON(w, http.StatusInternalServerError, sendErrorResponse{
			Message: "failed to connect to SMTP server",
		})
	default:
		h.log.Error("dispatch failed", "error", err.Error())
		httputil.JSON(w, http.StatusInternalServerError, sendErrorResponse{
			Message: "internal server error",
		})
	}
}

// HandleHealth reports service liveness.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]string{"status": "ok"})
}
