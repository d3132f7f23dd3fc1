package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/ledgerdesk/portal-backend/pkg/errors"
)

type usagePayload struct {
	LicenseKey string `json:"license_key" validate:"required,max=8"`
	Action     string `json:"action" validate:"required,oneof=check increment"`
}

func decode(t *testing.T, body string) (usagePayload, error) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	var out usagePayload
	err := DecodeJSONBody(req, &out)
	return out, err
}

func TestDecodeJSONBodyToleratesUnknownFields(t *testing.T) {
	out, err := decode(t, `{"license_key":"PREM-1","action":"check","app_version":"2.1.0"}`)
	require.NoError(t, err)
	assert.Equal(t, "PREM-1", out.LicenseKey)
}

func TestDecodeJSONBodyReportsFirstField(t *testing.T) {
	_, err := decode(t, `{"license_key":"PREM-1","action":"reset"}`)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Equal(t, "action must be one of [check increment]", typed.Message())

	_, err = decode(t, `{"license_key":"PREM-123456789"}`)
	require.Error(t, err)
	assert.Equal(t, "action is required", pkgerrors.As(err).Message())
}

func TestDecodeJSONBodyMalformed(t *testing.T) {
	_, err := decode(t, `{"license_key":`)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestQueryHelpers(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?platform=%20win%20&flag=true&bad=maybe", nil)

	assert.Equal(t, "win", QueryString(req, "platform", 16))

	v, err := ParseQueryBool(req, "flag", false)
	require.NoError(t, err)
	assert.True(t, v)

	v, err = ParseQueryBool(req, "missing", true)
	require.NoError(t, err)
	assert.True(t, v)

	_, err = ParseQueryBool(req, "bad", false)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
