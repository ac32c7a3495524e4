package responses

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/stackfinderz-backend/pkg/errors"
	"github.com/angelmondragon/stackfinderz-backend/pkg/logger"
)

func TestWriteSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccessStatus(w, http.StatusCreated, map[string]string{"hello": "world"})

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":{"hello":"world"}}`, w.Body.String())
}

func TestWriteErrorMapsTypedError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   pkgerrors.Code
		msg    string
	}{
		{pkgerrors.New(pkgerrors.CodeValidation, "bad input").WithDetails(map[string]string{"name": "is required"}), http.StatusBadRequest, pkgerrors.CodeValidation, "bad input"},
		{pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"), http.StatusUnauthorized, pkgerrors.CodeUnauthorized, "missing credentials"},
		{pkgerrors.New(pkgerrors.CodeForbidden, "admin role required"), http.StatusForbidden, pkgerrors.CodeForbidden, "admin role required"},
		{pkgerrors.New(pkgerrors.CodeNotFound, "Contribution not found"), http.StatusNotFound, pkgerrors.CodeNotFound, "Contribution not found"},
		{pkgerrors.New(pkgerrors.CodeInvalidAction, "Invalid action"), http.StatusBadRequest, pkgerrors.CodeInvalidAction, "Invalid action"},
		{pkgerrors.New(pkgerrors.CodeConflict, "already reviewed"), http.StatusConflict, pkgerrors.CodeConflict, "already reviewed"},
		{pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("dial tcp"), "load contribution"), http.StatusServiceUnavailable, pkgerrors.CodeDependency, "dependency unavailable"},
	}
	for _, tc := range cases {
		t.Run(string(tc.code), func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(context.Background(), nil, w, tc.err)

			require.Equal(t, tc.status, w.Code)
			var body ErrorEnvelope
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.Equal(t, string(tc.code), body.Error.Code)
			assert.Equal(t, tc.msg, body.Error.Message)
		})
	}
}

func TestWriteErrorIncludesValidationDetails(t *testing.T) {
	w := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
		WithDetails(map[string]string{"description": "must be at least 10 characters"})
	WriteError(context.Background(), nil, w, err)

	assert.JSONEq(t,
		`{"error":{"code":"VALIDATION_ERROR","message":"validation failed","details":{"description":"must be at least 10 characters"}}}`,
		w.Body.String())
}

func TestWriteErrorDefaultsToInternalForUntrustedErrors(t *testing.T) {
	var logs bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &logs})
	w := httptest.NewRecorder()
	WriteError(context.Background(), logg, w, errors.New("pq: password authentication failed"))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var body ErrorEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, string(pkgerrors.CodeInternal), body.Error.Code)
	assert.Equal(t, "internal server error", body.Error.Message)
	assert.Nil(t, body.Error.Details)
	assert.Contains(t, logs.String(), "password authentication failed")
	assert.NotContains(t, w.Body.String(), "password")
}
