package responses

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	pkgerrors "github.com/ledgerdesk/portal-backend/pkg/errors"
	"github.com/ledgerdesk/portal-backend/pkg/logger"
	"github.com/ledgerdesk/portal-backend/pkg/types"
)

// WriteJSON encodes payload with status.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf(`{"level":"error","msg":"failed to encode response","err":"%v"}`, err)
	}
}

// WriteError renders err as {success:false, message, error}. Client errors
// keep their message; server errors are logged with a full dump and answered
// with the generic public message.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}

	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}

	meta := pkgerrors.MetadataFor(typed.Code())
	msg := meta.PublicMessage
	if meta.HTTPStatus < http.StatusInternalServerError {
		if m := typed.Message(); m != "" {
			msg = m
		}
	}

	payload := types.ErrorBody{
		Success: false,
		Message: msg,
		Error:   string(typed.Code()),
	}
	if meta.DetailsAllowed {
		payload.Details = typed.Details()
	}

	logError(ctx, logg, err, meta.HTTPStatus)
	WriteJSON(w, meta.HTTPStatus, payload)
}

// WriteReceived answers a webhook delivery.
func WriteReceived(w http.ResponseWriter, status int, errMsg string) {
	WriteJSON(w, status, types.ReceivedBody{Received: errMsg == "", Error: errMsg})
}

// WriteWebhookError maps err onto a webhook response, hiding server detail.
func WriteWebhookError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := pkgerrors.MetadataFor(typed.Code())
	msg := meta.PublicMessage
	if meta.HTTPStatus < http.StatusInternalServerError && typed.Message() != "" {
		msg = typed.Message()
	}
	logError(ctx, logg, err, meta.HTTPStatus)
	WriteReceived(w, meta.HTTPStatus, msg)
}

func logError(ctx context.Context, logg *logger.Logger, err error, status int) {
	if logg == nil {
		return
	}
	if status < http.StatusInternalServerError {
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "request.rejected")
		return
	}

	dump := pkgerrors.Dump(err)
	ctx = logg.WithFields(ctx, map[string]any{
		"error":         dump.TopMessage,
		"error_code":    dump.Code,
		"error_chain":   dump.Chain,
		"pg_code":       dump.PGCode,
		"pg_detail":     dump.PGDetail,
		"pg_table":      dump.PGTable,
		"pg_constraint": dump.PGConstraint,
	})
	if dump.Upstream != "" {
		ctx = logg.WithFields(ctx, map[string]any{
			"upstream":            dump.Upstream,
			"upstream_status":     dump.UpstreamStatus,
			"upstream_code":       dump.UpstreamCode,
			"upstream_request_id": dump.UpstreamRequestID,
		})
	}
	logg.Error(ctx, "request.error", err)
}
