package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"interview-hub/internal/domain"
	"interview-hub/internal/metrics"
	"interview-hub/internal/realtime"
	"interview-hub/internal/service"
	"interview-hub/internal/storage"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

type memChatRepo struct {
	mu        sync.Mutex
	rows      []domain.ChatMessage
	appendErr error
}

func (m *memChatRepo) Append(ctx context.Context, msg domain.ChatMessage) (domain.ChatMessage, error) {
	if err := ctx.Err(); err != nil {
		return domain.ChatMessage{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return domain.ChatMessage{}, m.appendErr
	}
	m.rows = append(m.rows, msg)
	return msg, nil
}

func (m *memChatRepo) History(_ context.Context, roomID string, limit int) ([]domain.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.ChatMessage, 0)
	for _, r := range m.rows {
		if r.RoomID == roomID {
			out = append(out, r)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (m *memChatRepo) MarkRead(_ context.Context, roomID, recipient string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i := range m.rows {
		r := &m.rows[i]
		if r.RoomID == roomID && strings.EqualFold(r.RecipientEmail, recipient) && !r.ReadByMentor {
			r.ReadByMentor = true
			n++
		}
	}
	return n, nil
}

func (m *memChatRepo) ListForMentor(_ context.Context, mentor string) ([]domain.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.ChatMessage, 0)
	for _, r := range m.rows {
		if strings.EqualFold(r.RecipientEmail, mentor) || strings.EqualFold(r.SenderEmail, mentor) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memChatRepo) ListDirectRooms(_ context.Context) ([]domain.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.ChatMessage, 0)
	for _, r := range m.rows {
		if strings.HasPrefix(r.RoomID, domain.DirectRoomPrefix) {
			out = append(out, r)
		}
	}
	return out, nil
}

type chatTestEnv struct {
	engine   *gin.Engine
	repo     *memChatRepo
	router   *realtime.Router
	store    *storage.LocalStore
	metrics  *metrics.Metrics
	delivery *service.DeliveryService
}

func newChatTestEnv(t *testing.T, maxBytes int64) *chatTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := &memChatRepo{}
	router := realtime.NewRouter(zap.NewNop())
	m := metrics.New()
	store, err := storage.NewLocalStore(t.TempDir(), "/uploads")
	if err != nil {
		t.Fatalf("expected store, got %v", err)
	}
	delivery := service.NewDeliveryService(zap.NewNop(), repo, router, nil, m)
	conversations := service.NewConversationService(repo)
	attachments := service.NewAttachmentService(zap.NewNop(), store, delivery, m, maxBytes)

	engine := NewRouter(zap.NewNop(), Handlers{
		Chat:       NewChatHandler(zap.NewNop(), delivery, conversations, attachments),
		Metrics:    m.Handler(),
		UploadsDir: store.Dir(),
	})
	return &chatTestEnv{engine: engine, repo: repo, router: router, store: store, metrics: m, delivery: delivery}
}

func performRequest(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func performUpload(r http.Handler, fields map[string]string, fileName, fileType string, content []byte) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		_ = w.WriteField(k, v)
	}
	if fileName != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="file"; filename="`+fileName+`"`)
		if fileType != "" {
			h.Set("Content-Type", fileType)
		}
		part, _ := w.CreatePart(h)
		_, _ = part.Write(content)
	}
	_ = w.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func sendBody(room, content string) map[string]string {
	return map[string]string{
		"roomId":         room,
		"content":        content,
		"senderEmail":    "userx@example.com",
		"recipientEmail": "mentor@y.com",
	}
}

func TestSendMessagePersistsAndReturnsMessage(t *testing.T) {
	env := newChatTestEnv(t, 0)

	rec := performRequest(env.engine, http.MethodPost, "/send", sendBody("dm:userX", "hello"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	msg := decode[domain.ChatMessage](t, rec)
	if msg.ID == "" || msg.Content != "hello" || msg.ReadByMentor || msg.CreatedAt.IsZero() {
		t.Fatalf("unexpected message %+v", msg)
	}
	if len(env.repo.rows) != 1 {
		t.Fatalf("expected 1 stored row, got %d", len(env.repo.rows))
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("expected json content type, got %q", ct)
	}
}

func TestSendMessageValidation(t *testing.T) {
	env := newChatTestEnv(t, 0)

	rec := performRequest(env.engine, http.MethodPost, "/send", sendBody("dm:userX", "   "))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	if len(env.repo.rows) != 0 {
		t.Fatalf("expected nothing stored")
	}
}

func TestSendMessageStorageFailure(t *testing.T) {
	env := newChatTestEnv(t, 0)
	env.repo.appendErr = errors.New("db down")

	rec := performRequest(env.engine, http.MethodPost, "/send", sendBody("dm:userX", "hello"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "db down") {
		t.Fatalf("storage detail must not leak: %s", rec.Body.String())
	}
}

func TestSendMessageSurvivesClientDisconnect(t *testing.T) {
	env := newChatTestEnv(t, 0)

	payload, _ := json.Marshal(sendBody("dm:userX", "still here"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/send", bytes.NewReader(payload)).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	env.engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	if len(env.repo.rows) != 1 || env.repo.rows[0].Content != "still here" {
		t.Fatalf("expected message persisted after disconnect, got %+v", env.repo.rows)
	}
}

func TestUploadSurvivesClientDisconnect(t *testing.T) {
	env := newChatTestEnv(t, 0)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	_ = w.WriteField("roomId", "dm:userX")
	_ = w.WriteField("senderEmail", "userx@example.com")
	_ = w.WriteField("recipientEmail", "mentor@y.com")
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="cv.png"`)
	h.Set("Content-Type", "image/png")
	part, _ := w.CreatePart(h)
	_, _ = part.Write(pngHeader)
	_ = w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/upload", &buf).WithContext(ctx)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	env.engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	if len(env.repo.rows) != 1 || env.repo.rows[0].Attachment == nil {
		t.Fatalf("expected attachment message persisted, got %+v", env.repo.rows)
	}
}

func TestGetHistoryOrderAndLimit(t *testing.T) {
	env := newChatTestEnv(t, 0)
	for _, c := range []string{"one", "two", "three"} {
		if rec := performRequest(env.engine, http.MethodPost, "/send", sendBody("room-1", c)); rec.Code != http.StatusCreated {
			t.Fatalf("send failed: %d", rec.Code)
		}
	}
	performRequest(env.engine, http.MethodPost, "/send", sendBody("room-2", "elsewhere"))

	rec := performRequest(env.engine, http.MethodGet, "/history/room-1?limit=2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	msgs := decode[[]domain.ChatMessage](t, rec)
	if len(msgs) != 2 || msgs[0].Content != "two" || msgs[1].Content != "three" {
		t.Fatalf("unexpected history %+v", msgs)
	}
	if !msgs[0].CreatedAt.Before(msgs[1].CreatedAt) {
		t.Fatalf("expected ascending createdAt")
	}

	rec = performRequest(env.engine, http.MethodGet, "/history/room-1?limit=abc", nil)
	if msgs := decode[[]domain.ChatMessage](t, rec); len(msgs) != 3 {
		t.Fatalf("expected default limit to return all 3, got %d", len(msgs))
	}
}

func TestGetHistoryEmptyRoom(t *testing.T) {
	env := newChatTestEnv(t, 0)
	rec := performRequest(env.engine, http.MethodGet, "/history/nobody", nil)
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("expected empty array, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestConversationsAndMarkRead(t *testing.T) {
	env := newChatTestEnv(t, 0)
	performRequest(env.engine, http.MethodPost, "/send", sendBody("dm:userx@example.com", "hi"))
	performRequest(env.engine, http.MethodPost, "/send", sendBody("dm:userx@example.com", "are you there?"))

	rec := performRequest(env.engine, http.MethodGet, "/conversations?mentorEmail=Mentor@Y.com", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	list := decode[[]domain.ConversationSummary](t, rec)
	if len(list) != 1 || list[0].UnreadCount != 2 || list[0].LastContent != "are you there?" {
		t.Fatalf("unexpected conversations %+v", list)
	}

	rec = performRequest(env.engine, http.MethodPost, "/read", map[string]string{
		"roomId":      "dm:userx@example.com",
		"mentorEmail": "mentor@y.com",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	res := decode[map[string]any](t, rec)
	if res["ok"] != true || res["updated"].(float64) != 2 {
		t.Fatalf("unexpected mark read response %+v", res)
	}

	rec = performRequest(env.engine, http.MethodPost, "/read", map[string]string{
		"roomId":      "dm:userx@example.com",
		"mentorEmail": "mentor@y.com",
	})
	if res := decode[map[string]any](t, rec); res["updated"].(float64) != 0 {
		t.Fatalf("expected idempotent mark read, got %+v", res)
	}

	rec = performRequest(env.engine, http.MethodPost, "/read", map[string]string{"roomId": "dm:x"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 without mentorEmail, got %d", rec.Code)
	}
}

func TestUploadStoresFileAndBroadcasts(t *testing.T) {
	env := newChatTestEnv(t, 0)

	rec := performUpload(env.engine, map[string]string{
		"roomId":         "dm:userX",
		"senderEmail":    "userx@example.com",
		"recipientEmail": "mentor@y.com",
	}, "cv.png", "image/png", pngHeader)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	res := decode[map[string]string](t, rec)
	if res["messageId"] == "" || !strings.HasPrefix(res["fileUrl"], "/uploads/") || res["fileId"] == "" {
		t.Fatalf("unexpected upload response %+v", res)
	}
	if _, err := os.Stat(filepath.Join(env.store.Dir(), res["fileId"])); err != nil {
		t.Fatalf("expected stored file: %v", err)
	}
	if len(env.repo.rows) != 1 || env.repo.rows[0].Attachment == nil || env.repo.rows[0].Content != "📎 cv.png" {
		t.Fatalf("unexpected stored message %+v", env.repo.rows)
	}

	get := httptest.NewRequest(http.MethodGet, res["fileUrl"], nil)
	out := httptest.NewRecorder()
	env.engine.ServeHTTP(out, get)
	if out.Code != http.StatusOK || !bytes.Equal(out.Body.Bytes(), pngHeader) {
		t.Fatalf("expected file served under /uploads, got %d", out.Code)
	}
}

func TestUploadRejections(t *testing.T) {
	fields := map[string]string{
		"roomId":         "dm:userX",
		"senderEmail":    "userx@example.com",
		"recipientEmail": "mentor@y.com",
	}

	t.Run("missing file", func(t *testing.T) {
		env := newChatTestEnv(t, 0)
		rec := performUpload(env.engine, fields, "", "", nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", rec.Code)
		}
	})

	t.Run("disallowed extension", func(t *testing.T) {
		env := newChatTestEnv(t, 0)
		rec := performUpload(env.engine, fields, "run.exe", "application/octet-stream", []byte("MZ"))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", rec.Code)
		}
		assertEmptyDir(t, env.store.Dir())
	})

	t.Run("type mismatch", func(t *testing.T) {
		env := newChatTestEnv(t, 0)
		rec := performUpload(env.engine, fields, "photo.png", "application/pdf", pngHeader)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", rec.Code)
		}
	})

	t.Run("too large", func(t *testing.T) {
		env := newChatTestEnv(t, 8)
		rec := performUpload(env.engine, fields, "photo.png", "image/png", pngHeader)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", rec.Code)
		}
		assertEmptyDir(t, env.store.Dir())
		if len(env.repo.rows) != 0 {
			t.Fatalf("expected no message for rejected upload")
		}
	})

	t.Run("storage failure removes file", func(t *testing.T) {
		env := newChatTestEnv(t, 0)
		env.repo.appendErr = errors.New("db down")
		rec := performUpload(env.engine, fields, "photo.png", "image/png", pngHeader)
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected status 500, got %d", rec.Code)
		}
		assertEmptyDir(t, env.store.Dir())
	})
}

func TestMetricsEndpoint(t *testing.T) {
	env := newChatTestEnv(t, 0)
	performRequest(env.engine, http.MethodPost, "/send", sendBody("room", "hi"))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	env.engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `chat_messages_persisted_total{path="http"} 1`) {
		t.Fatalf("expected persisted counter in exposition, got:\n%s", rec.Body.String())
	}
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no stored files, found %d", len(entries))
	}
}
