package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hf-quote-tgbot-go/internal/config"
)

func newTestClient(t *testing.T, url string, timeout time.Duration) *HuggingFaceClient {
	t.Helper()
	log, _ := test.NewNullLogger()
	return NewHuggingFaceClient(&config.InferenceConfig{
		URL:          url,
		APIKey:       "hf_secret",
		Timeout:      timeout,
		MaxNewTokens: 150,
		Temperature:  0.5,
	}, log)
}

func TestGenerateSendsRequest(t *testing.T) {
	var got generationRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer hf_secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		w.Write([]byte(`[{"generated_text":"Life is a journey."}]`))
	}))
	defer srv.Close()

	res := newTestClient(t, srv.URL, time.Second).Generate(context.Background(), "prompt text")

	assert.Equal(t, Success("Life is a journey."), res)
	assert.Equal(t, "prompt text", got.Inputs)
	assert.Equal(t, 150, got.Parameters.MaxNewTokens)
	assert.InDelta(t, 0.5, got.Parameters.Temperature, 1e-9)
}

func TestGenerateNormalizesBodies(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   Result
	}{
		{"list wrapped", 200, `[{"generated_text":"hi"}]`, Success("hi")},
		{"dict wrapped", 200, `{"generated_text":"hi"}`, Success("hi")},
		{"error body with 503", 503, `{"error":"Model is currently loading"}`, RemoteError("Model is currently loading")},
		{"list without field", 200, `[{"score":1}]`, Malformed(msgEmptyResponse)},
		{"empty list", 200, `[]`, Malformed(msgEmptyResponse)},
		{"list of strings", 200, `["not-a-dict"]`, Malformed(msgUnexpectedResponse)},
		{"unknown dict", 200, `{"foo":"bar"}`, Malformed(msgUnexpectedResponse)},
		{"bare string", 200, `"hello"`, Malformed(msgUnexpectedResponse)},
		{"not json", 502, `<html>bad gateway</html>`, Malformed(msgUnreadableResponse)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			res := newTestClient(t, srv.URL, time.Second).Generate(context.Background(), "p")
			assert.Equal(t, tt.want, res)
		})
	}
}

func TestGenerateTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	res := newTestClient(t, srv.URL, 50*time.Millisecond).Generate(context.Background(), "p")
	assert.Equal(t, KindTimeout, res.Kind)
	assert.NotEmpty(t, res.Text)
}

func TestGenerateTransportFault(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	res := newTestClient(t, url, time.Second).Generate(context.Background(), "p")
	require.Equal(t, KindRemoteError, res.Kind)
	assert.NotEmpty(t, res.Text)
}

func TestGenerateOversizedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"generated_text":"` + strings.Repeat("a", 2*maxResponseBytes) + `"}]`))
	}))
	defer srv.Close()

	res := newTestClient(t, srv.URL, 5*time.Second).Generate(context.Background(), "p")
	assert.Equal(t, Malformed(msgOversizedResponse), res)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "success", KindSuccess.String())
	assert.Equal(t, "remote_error", KindRemoteError.String())
	assert.Equal(t, "timeout", KindTimeout.String())
	assert.Equal(t, "malformed", KindMalformed.String())
	assert.True(t, Success("x").OK())
	assert.False(t, Timeout().OK())
}
