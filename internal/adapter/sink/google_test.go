package sink

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/logship/internal/domain"
)

// upcaseMapper wraps each record so tests can observe that the mapper ran.
type upcaseMapper struct{}

func (upcaseMapper) Map(ctx domain.LogContext, record domain.Record) any {
	return map[string]any{
		"project": ctx.ProjectID,
		"label":   ctx.LogLabel,
		"payload": record,
	}
}

type capturedRequest struct {
	authorization string
	contentType   string
	body          []byte
}

func newWriteServer(t *testing.T, status int, responseBody string) (*httptest.Server, *[]capturedRequest) {
	t.Helper()
	var captured []capturedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		captured = append(captured, capturedRequest{
			authorization: r.Header.Get("Authorization"),
			contentType:   r.Header.Get("Content-Type"),
			body:          body,
		})
		w.WriteHeader(status)
		io.WriteString(w, responseBody)
	}))
	t.Cleanup(server.Close)
	return server, &captured
}

func newTestSink(url string) *GoogleSink {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	lctx := domain.LogContext{ProjectID: "logship-test", LogLabel: "app"}
	return NewGoogleSink(nil, url, upcaseMapper{}, lctx, logger)
}

func TestGoogleSink_SendSuccess(t *testing.T) {
	server, captured := newWriteServer(t, http.StatusOK, `{}`)
	s := newTestSink(server.URL)

	records := []domain.Record{
		domain.Record(`{"message":"first"}`),
		domain.Record(`{"message":"second"}`),
	}
	err := s.Send(context.Background(), records, "Bearer token-123")
	require.NoError(t, err)

	require.Len(t, *captured, 1)
	req := (*captured)[0]
	assert.Equal(t, "Bearer token-123", req.authorization)
	assert.Equal(t, "application/json", req.contentType)

	var body struct {
		Entries []struct {
			Project string          `json:"project"`
			Label   string          `json:"label"`
			Payload json.RawMessage `json:"payload"`
		} `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(req.body, &body))
	require.Len(t, body.Entries, 2)
	assert.Equal(t, "logship-test", body.Entries[0].Project)
	assert.Equal(t, "app", body.Entries[0].Label)
	assert.JSONEq(t, `{"message":"first"}`, string(body.Entries[0].Payload))
	assert.JSONEq(t, `{"message":"second"}`, string(body.Entries[1].Payload))
}

func TestGoogleSink_RemoteErrorEnvelope(t *testing.T) {
	envelope := `{"error":{"code":403,"message":"permission denied on log","status":"PERMISSION_DENIED"}}`
	server, _ := newWriteServer(t, http.StatusForbidden, envelope)
	s := newTestSink(server.URL)

	err := s.Send(context.Background(), []domain.Record{domain.Record(`{}`)}, "Bearer t")
	require.Error(t, err)

	var remote *domain.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, 403, remote.Code)
	assert.Equal(t, "permission denied on log", remote.Message)
	assert.Equal(t, "PERMISSION_DENIED", remote.Status)
}

// An envelope on a 200 still counts as a rejection; some APIs report
// batch errors this way.
func TestGoogleSink_RemoteErrorEnvelopeOn200(t *testing.T) {
	envelope := `{"error":{"message":"invalid entries","status":"INVALID_ARGUMENT"}}`
	server, _ := newWriteServer(t, http.StatusOK, envelope)
	s := newTestSink(server.URL)

	err := s.Send(context.Background(), []domain.Record{domain.Record(`{}`)}, "Bearer t")

	var remote *domain.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, "INVALID_ARGUMENT", remote.Status)
	assert.Zero(t, remote.Code)
}

func TestGoogleSink_NonJSONFailureIsTransport(t *testing.T) {
	server, _ := newWriteServer(t, http.StatusServiceUnavailable, "upstream connect error")
	s := newTestSink(server.URL)

	err := s.Send(context.Background(), []domain.Record{domain.Record(`{}`)}, "Bearer t")
	assert.ErrorIs(t, err, domain.ErrTransport)
}

func TestGoogleSink_ConnectionFailureIsTransport(t *testing.T) {
	server, _ := newWriteServer(t, http.StatusOK, `{}`)
	url := server.URL
	server.Close()

	s := newTestSink(url)
	err := s.Send(context.Background(), []domain.Record{domain.Record(`{}`)}, "Bearer t")
	assert.ErrorIs(t, err, domain.ErrTransport)
}
