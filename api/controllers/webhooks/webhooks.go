package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/ledgerdesk/portal-backend/api/responses"
	"github.com/ledgerdesk/portal-backend/internal/webhooks"
	pkgerrors "github.com/ledgerdesk/portal-backend/pkg/errors"
	"github.com/ledgerdesk/portal-backend/pkg/logger"
)

const maxPayloadBytes = 1 << 20

type processor interface {
	Process(ctx context.Context, body []byte, headers http.Header) (webhooks.Result, error)
}

// Receive handles one provider's deliveries. Accepted, ignored, duplicate
// and acknowledged-unconfigured deliveries all answer {received:true}.
func Receive(proc processor, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			responses.WriteReceived(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if proc == nil {
			responses.WriteWebhookError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook processor unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
		if err != nil {
			responses.WriteWebhookError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		if _, err := proc.Process(ctx, payload, r.Header); err != nil {
			responses.WriteWebhookError(ctx, logg, w, err)
			return
		}
		responses.WriteReceived(w, http.StatusOK, "")
	}
}
