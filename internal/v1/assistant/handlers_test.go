package assistant

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/euphorie/Euphorie/backend/go/internal/v1/news"
	"github.com/euphorie/Euphorie/backend/go/internal/v1/vision"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestService(t *testing.T, visionURL, newsURL string) *Service {
	t.Helper()
	svc := NewService(vision.NewClient(visionURL), news.NewClient(newsURL))
	svc.now = func() time.Time { return time.Unix(1700000000, 0) }
	return svc
}

func do(t *testing.T, svc *Service, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	svc.Router().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealthEndpoints(t *testing.T) {
	svc := newTestService(t, "http://127.0.0.1:1", "")

	for _, path := range []string{"/", "/health"} {
		rec := do(t, svc, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code, path)

		body := decodeBody(t, rec)
		assert.Equal(t, "healthy", body["status"])
		assert.Equal(t, "euphorie-ai", body["service"])
		assert.Equal(t, "active", body["jarvis_status"])
		assert.Equal(t, float64(1700000000), body["timestamp"])
	}
}

func TestChatReturnsJarvisReply(t *testing.T) {
	svc := newTestService(t, "http://127.0.0.1:1", "")

	payload, _ := json.Marshal(map[string]string{
		"message":   "hello jarvis",
		"user_name": "Alice",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	rec := do(t, svc, req)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Contains(t, body["response"], "Hello Alice!")
	assert.Equal(t, "Jarvis", body["agent_name"])
	assert.Equal(t, 0.9, body["confidence"])
	assert.Equal(t, float64(1700000000), body["timestamp"])
}

func TestChatRejectsMalformedBody(t *testing.T) {
	svc := newTestService(t, "http://127.0.0.1:1", "")

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")

	rec := do(t, svc, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func visionRequest(t *testing.T, image []byte, userID string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("image", "frame.jpg")
	require.NoError(t, err)
	_, err = part.Write(image)
	require.NoError(t, err)
	require.NoError(t, w.WriteField("user_id", userID))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/vision/analyze", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestVisionForwardsToBackend(t *testing.T) {
	var gotUserID string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotUserID = req["user_id"]
		assert.NotEmpty(t, req["frame"])

		json.NewEncoder(w).Encode(map[string]any{
			"insight":           "I can see a desk.",
			"scene_description": "a desk with a laptop",
			"objects_detected":  []string{"desk", "laptop"},
			"should_respond":    true,
			"confidence":        0.8,
			"suggestions":       []string{"tidy up"},
		})
	}))
	defer backend.Close()

	svc := newTestService(t, backend.URL, "")
	rec := do(t, svc, visionRequest(t, []byte("jpegdata"), "u1"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", gotUserID)

	body := decodeBody(t, rec)
	assert.Equal(t, "I can see a desk.", body["insight"])
	assert.Equal(t, "a desk with a laptop", body["scene_description"])
	assert.Equal(t, true, body["should_respond"])
	assert.Equal(t, []any{"tidy up"}, body["suggestions"])
}

func TestVisionRequiresImageField(t *testing.T) {
	svc := newTestService(t, "http://127.0.0.1:1", "")

	req := httptest.NewRequest(http.MethodPost, "/api/vision/analyze", nil)
	rec := do(t, svc, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVisionUpstreamFailureIsBadGateway(t *testing.T) {
	svc := newTestService(t, "http://127.0.0.1:1", "")

	rec := do(t, svc, visionRequest(t, []byte("jpegdata"), "u1"))
	require.Equal(t, http.StatusBadGateway, rec.Code)

	body := decodeBody(t, rec)
	assert.NotEmpty(t, body["error"])
}

func TestNewsFeedNotConfigured(t *testing.T) {
	svc := newTestService(t, "http://127.0.0.1:1", "")

	rec := do(t, svc, httptest.NewRequest(http.MethodGet, "/api/news/feed", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	body := decodeBody(t, rec)
	assert.NotEmpty(t, body["error"])
}

func TestNewsFeedRelaysUpstream(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"articles":[{"title":"launch day"}]}`))
	}))
	defer upstream.Close()

	svc := newTestService(t, "http://127.0.0.1:1", upstream.URL)
	rec := do(t, svc, httptest.NewRequest(http.MethodGet, "/api/news/feed", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "launch day")
}

func TestCORSPreflightAllowsKnownOrigin(t *testing.T) {
	svc := newTestService(t, "http://127.0.0.1:1", "")

	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")

	rec := do(t, svc, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}
