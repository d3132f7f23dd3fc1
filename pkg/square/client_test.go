package square

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"

	sq "github.com/square/square-go-sdk"
	sqcore "github.com/square/square-go-sdk/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerdesk/portal-backend/pkg/config"
	pkgerrors "github.com/ledgerdesk/portal-backend/pkg/errors"
	"github.com/ledgerdesk/portal-backend/pkg/logger"
)

func TestRedact(t *testing.T) {
	assert.Equal(t, "[REDACTED]", redact("access_token", "abc123"))
	assert.Equal(t, "ok", redact("status", "ok"))
}

func TestDomainCodeForStatus(t *testing.T) {
	tests := []struct {
		status int
		code   pkgerrors.Code
	}{
		{http.StatusUnauthorized, pkgerrors.CodeMisconfigured},
		{http.StatusForbidden, pkgerrors.CodeMisconfigured},
		{http.StatusNotFound, pkgerrors.CodeNotFound},
		{http.StatusTooManyRequests, pkgerrors.CodeDependency},
		{http.StatusInternalServerError, pkgerrors.CodeDependency},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, domainCodeForStatus(tt.status), "status %d", tt.status)
	}
}

func TestMapSquareError(t *testing.T) {
	c := &Client{}

	authErr := sqcore.NewAPIError(http.StatusBadRequest, errors.New(`{"errors":[{"category":"AUTHENTICATION_ERROR","code":"UNAUTHORIZED"}]}`))
	assert.True(t, pkgerrors.IsCode(c.mapSquareError(authErr, "get payment"), pkgerrors.CodeMisconfigured))

	notFound := sqcore.NewAPIError(http.StatusNotFound, errors.New(`{"errors":[{"category":"INVALID_REQUEST_ERROR","code":"NOT_FOUND"}]}`))
	assert.True(t, pkgerrors.IsCode(c.mapSquareError(notFound, "get payment"), pkgerrors.CodeNotFound))

	timeout := fmt.Errorf("call: %w", context.DeadlineExceeded)
	assert.True(t, pkgerrors.IsCode(c.mapSquareError(timeout, "get payment"), pkgerrors.CodeDependency))

	assert.Nil(t, c.mapSquareError(nil, "noop"))
}

func TestExtractSquareErrors(t *testing.T) {
	payload := `{"errors":[{"category":"API_ERROR","code":"BAD_REQUEST","detail":"oops"}]}`
	got := extractSquareErrors(sqcore.NewAPIError(http.StatusBadRequest, errors.New(payload)))
	require.Len(t, got, 1)
	assert.Equal(t, sq.ErrorCodeBadRequest, got[0].GetCode())

	assert.Empty(t, extractSquareErrors(sqcore.NewAPIError(http.StatusBadGateway, errors.New("not json"))))
}

func TestNewClientRequiresToken(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})

	_, err := NewClient(context.Background(), config.SquareConfig{Env: "sandbox"}, logg)
	require.ErrorIs(t, err, errAccessTokenRequired)

	_, err = NewClient(context.Background(), config.SquareConfig{Env: "prod", SandboxAccessToken: "x"}, logg)
	require.ErrorIs(t, err, errInvalidSquareEnv)

	_, err = NewClient(context.Background(), config.SquareConfig{SandboxAccessToken: "x"}, nil)
	require.ErrorIs(t, err, errLoggerRequired)

	client, err := NewClient(context.Background(), config.SquareConfig{ProductionAccessToken: "tok", Env: "production"}, logg)
	require.NoError(t, err)
	assert.Equal(t, "production", client.Environment())
}
