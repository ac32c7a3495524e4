package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/stackfinderz-backend/pkg/errors"
)

type reviewBody struct {
	Action     string `json:"action" validate:"required"`
	AdminNotes string `json:"adminNotes" validate:"max=5"`
}

func details(t *testing.T, err error) map[string]string {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	d, ok := typed.Details().(map[string]string)
	require.True(t, ok, "details type %T", typed.Details())
	return d
}

func TestDecodeJSONBody(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"action":"approve"}`))
	var body reviewBody
	require.NoError(t, DecodeJSONBody(r, &body))
	assert.Equal(t, "approve", body.Action)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"adminNotes":"too long"}`))
	err := DecodeJSONBody(r, &reviewBody{})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
	assert.Equal(t, map[string]string{"action": "is required", "adminNotes": "must be at most 5"}, details(t, err))

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"action":"approve","role":"admin"}`))
	err = DecodeJSONBody(r, &reviewBody{})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation), "unknown fields are rejected")
	assert.Equal(t, map[string]string{"role": "is not allowed"}, details(t, err))
}

func TestDecodeJSONBodyReportsShape(t *testing.T) {
	cases := []struct {
		name string
		body string
		want map[string]string
	}{
		{"empty", ``, map[string]string{"body": "is required"}},
		{"wrong type", `{"action":7}`, map[string]string{"action": "must be a string"}},
		{"two objects", `{"action":"approve"}{"action":"reject"}`, map[string]string{"body": "body must contain a single JSON object"}},
		{"blank name", `{"name":"   "}`, map[string]string{"name": "is required"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			var err error
			if tc.name == "blank name" {
				err = DecodeJSONBody(r, &struct {
					Name string `json:"name" validate:"notblank"`
				}{})
			} else {
				err = DecodeJSONBody(r, &reviewBody{})
			}
			require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
			assert.Equal(t, tc.want, details(t, err))
		})
	}

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"action":`))
	err := DecodeJSONBody(r, &reviewBody{})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
	assert.Contains(t, details(t, err), "body")
}

func TestParseQueryInt(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?page=3&limit=500&bad=x", nil)

	page, err := ParseQueryInt(r, "page", 1, 1, 1000)
	require.NoError(t, err)
	assert.Equal(t, 3, page)

	missing, err := ParseQueryInt(r, "offset", 7, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 7, missing)

	_, err = ParseQueryInt(r, "limit", 10, 1, 100)
	assert.Contains(t, details(t, err), "limit")

	_, err = ParseQueryInt(r, "bad", 10, 1, 100)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestParseURLUUID(t *testing.T) {
	id := uuid.New()
	withParam := func(value string) *http.Request {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", value)
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	}

	got, err := ParseURLUUID(withParam(id.String()), "id", "Stack")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = ParseURLUUID(withParam("not-a-uuid"), "id", "Stack")
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := BearerToken(r)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized))

	r.Header.Set("Authorization", "Bearer abc.def")
	token, err := BearerToken(r)
	require.NoError(t, err)
	assert.Equal(t, "abc.def", token)

	r.Header.Set("Authorization", "Bearer   ")
	_, err = BearerToken(r)
	assert.Error(t, err)
}

func TestSanitizeStringCountsRunes(t *testing.T) {
	assert.Equal(t, "héll", SanitizeString("  héllo ", 4))
	assert.Equal(t, "abc", SanitizeString(" abc ", 0))
}
