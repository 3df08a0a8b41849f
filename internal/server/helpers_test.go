package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"

	"taskboard/internal/domain/models"
	"taskboard/internal/notify"
	"taskboard/internal/service"
	storage "taskboard/repository/inmemory"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type outbox struct {
	mu       sync.Mutex
	messages []notify.Message
}

func (o *outbox) Dispatch(msg notify.Message) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.messages = append(o.messages, msg)
}

var otpPattern = regexp.MustCompile(`\b\d{6}\b`)

// lastOTP returns the code from the most recent message sent to email.
func (o *outbox) lastOTP(t *testing.T, email string) string {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := len(o.messages) - 1; i >= 0; i-- {
		if o.messages[i].To == email {
			code := otpPattern.FindString(o.messages[i].Body)
			require.NotEmpty(t, code, "no code in %q", o.messages[i].Body)
			return code
		}
	}
	t.Fatalf("no message sent to %s", email)
	return ""
}

type testAPI struct {
	api    *TaskAPI
	store  *storage.Storage
	outbox *outbox
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	store := storage.NewStorage()
	box := &outbox{}
	cfg := DefaultConfig()
	cfg.JWTSecret = "test-secret"

	api := NewTaskAPI(cfg,
		service.NewAuthService(store, box, nil),
		service.NewTaskService(store, store, nil),
		nil,
	)
	require.NotNil(t, api)
	return &testAPI{api: api, store: store, outbox: box}
}

// seedUser stores a verified user and returns a session token for it.
func (ta *testAPI) seedUser(t *testing.T, id, email string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, ta.store.CreateUser(context.Background(), &models.User{
		ID: id, Name: id, Email: email, PasswordHash: string(hash), IsVerified: true,
	}))
	token, err := ta.api.tokens.Issue(id)
	require.NoError(t, err)
	return token
}

type request struct {
	method string
	path   string
	body   any
	token  string
}

func (ta *testAPI) do(t *testing.T, r request) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if r.body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(r.body))
	}
	req := httptest.NewRequest(r.method, r.path, &buf)
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
	w := httptest.NewRecorder()
	ta.api.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// createTask creates a task through the API and returns its id.
func (ta *testAPI) createTask(t *testing.T, token, assignTo string) string {
	t.Helper()
	w := ta.do(t, request{
		method: http.MethodPost, path: "/tasks", token: token,
		body: gin.H{"taskname": "Prepare report", "assignTo": assignTo, "deadline": "2099-01-10"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	task := decode(t, w)["task"].(map[string]any)
	return task["id"].(string)
}
