package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/log"
)

func TestLoggingKeepsBodyAndMasksCustomer(t *testing.T) {
	body := `{"customer":{"name":"Asha","phone":"9876543210","address":"MG Road"},"items":[{"sku":"robusta"}]}`

	var seenBody, seenRequestID string
	handler := Logging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		seenBody = string(data)
		seenRequestID = log.RequestIDFromContext(r.Context())
		zerolog.Ctx(r.Context()).Info().Msg("handled")
	}))

	var buf bytes.Buffer
	req := httptest.NewRequest(http.MethodPost, "/order", strings.NewReader(body))
	req = req.WithContext(zerolog.New(&buf).WithContext(req.Context()))
	req.Header.Set("X-Request-Id", "req-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, body, seenBody)
	assert.Equal(t, "req-1", seenRequestID)
	assert.Equal(t, "req-1", rec.Header().Get("X-Request-Id"))
	assert.Contains(t, buf.String(), `"name":"Asha"`)
	assert.NotContains(t, buf.String(), "9876543210")
	assert.NotContains(t, buf.String(), "MG Road")
}

func TestLoggingGeneratesRequestID(t *testing.T) {
	handler := Logging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Len(t, rec.Header().Get("X-Request-Id"), 36)
}

func TestLoggingBoundsBody(t *testing.T) {
	body := `{"customer":{"name":"` + strings.Repeat("a", 2*inHttp.MAX_BODY_BYTES) + `"}}`

	var (
		read    int
		readErr error
	)
	handler := Logging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		read, readErr = len(data), err
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/order", strings.NewReader(body)))

	var tooLarge *http.MaxBytesError
	require.ErrorAs(t, readErr, &tooLarge)
	assert.Equal(t, int64(inHttp.MAX_BODY_BYTES), tooLarge.Limit)
	assert.LessOrEqual(t, read, inHttp.MAX_BODY_BYTES)
}

func TestLoggingKeepsNonJSONBody(t *testing.T) {
	var seenBody string
	handler := Logging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		seenBody = string(data)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/order", strings.NewReader(`{"customer": `)))

	assert.Equal(t, `{"customer": `, seenBody)
}

func TestRecoverPanic(t *testing.T) {
	handler := RecoverPanic(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/order", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"Internal Server Error"}`, rec.Body.String())
}
