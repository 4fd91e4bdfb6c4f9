package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studymesh/studymesh/mode"
	"github.com/studymesh/studymesh/model"
	"github.com/studymesh/studymesh/session"
	"github.com/studymesh/studymesh/skill"
	"github.com/studymesh/studymesh/store"
	"github.com/studymesh/studymesh/syncer"
	"github.com/studymesh/studymesh/tool"
)

const testSecret = "test-signing-secret"

type acceptAllPusher struct{}

func (acceptAllPusher) Push(_ context.Context, batch syncer.Batch) (syncer.PushResult, error) {
	return syncer.PushResult{Synced: len(batch.Messages)}, nil
}

func signToken(t *testing.T, userID, orgID string) string {
	t.Helper()
	claims := sessionClaims{
		OrgID: orgID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func newTestServer(t *testing.T) (*Server, *model.MockModel) {
	t.Helper()

	registry, err := tool.NewDefaultRegistry(nil)
	require.NoError(t, err)
	library := skill.NewLibrary(skill.DefaultSource(), nil)
	require.NoError(t, library.Register(skill.DefaultSkills()...))
	composer := mode.NewComposer(library, registry, nil)

	mock := model.NewMockModel()
	resolver := model.NewStaticResolver(mock)
	data := store.NewInMemory()
	manager := session.NewManager(registry, composer, resolver, data.Deps, acceptAllPusher{}, time.Hour, nil)

	srv := New(manager, composer, NewAuthenticator(testSecret), NewPollingGuard(GuardConfig{}), nil)
	return srv, mock
}

func TestServer_HealthIsPublic(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestServer_ModesRequireAuth(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/modes", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/modes", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "alice", "org-1"))
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var modes []mode.Meta
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &modes))
	assert.Len(t, modes, 4)
}

func TestServer_RejectsForgedToken(t *testing.T) {
	srv, _ := newTestServer(t)

	claims := jwt.RegisteredClaims{Subject: "mallory"}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	forged, err := token.SignedString([]byte("wrong-secret"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/modes", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_PollReturnsDelta(t *testing.T) {
	srv, mock := newTestServer(t)

	// Seed the conversation with one completed turn through the manager.
	ctrl, err := srv.manager.Connect(context.Background(), "conv-1", "alice", "org-1")
	require.NoError(t, err)
	mock.Script(model.Response{Text: "Hello!", FinishReason: "stop"})
	require.NoError(t, ctrl.HandleTurn(context.Background(), session.TurnInput{Text: "hi"}, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/chat/conv-1/messages?after=1", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "alice", "org-1"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Messages []struct {
			Role     string `json:"role"`
			Sequence uint64 `json:"sequence"`
			Content  string `json:"content"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Messages, 1)
	assert.Equal(t, "assistant", body.Messages[0].Role)
	assert.Equal(t, uint64(2), body.Messages[0].Sequence)
	assert.Equal(t, "Hello!", body.Messages[0].Content)
}

func TestServer_PollRejectsForeignConversation(t *testing.T) {
	srv, _ := newTestServer(t)

	_, err := srv.manager.Connect(context.Background(), "conv-1", "alice", "org-1")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/chat/conv-1/messages", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "mallory", "org-2"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestServer_PollIsGuarded(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.guard = NewPollingGuard(GuardConfig{
		Window:      10 * time.Second,
		MaxRequests: 2,
		MinInterval: time.Nanosecond,
		Penalty:     30 * time.Second,
	})

	token := signToken(t, "alice", "org-1")
	var lastCode int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/chat/conv-1/messages", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		req.RemoteAddr = "1.2.3.4:5000"
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		lastCode = rec.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, lastCode)
}

func TestAuthenticator_VerifyClaims(t *testing.T) {
	auth := NewAuthenticator(testSecret)

	id, err := auth.Verify(signToken(t, "alice", "org-1"))
	require.NoError(t, err)
	assert.Equal(t, "alice", id.UserID)
	assert.Equal(t, "org-1", id.OrgID)

	_, err = auth.Verify("not-a-token")
	assert.Error(t, err)
}
