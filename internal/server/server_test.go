package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"propertyhub/internal/config"
	"propertyhub/internal/database"
	"propertyhub/internal/domain"
	"propertyhub/internal/modules/notification"
	"propertyhub/internal/repository"
)

type recordingJournal struct {
	mu    sync.Mutex
	kinds []notification.Kind
}

func (r *recordingJournal) Record(_ context.Context, rec notification.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, rec.Kind)
	return nil
}

func (r *recordingJournal) Kinds() []notification.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notification.Kind(nil), r.kinds...)
}

type hub struct {
	app     *App
	srv     *httptest.Server
	journal *recordingJournal
	owner   *domain.User
	worker  *domain.User
	manager *domain.User
}

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:           "test",
		JWTSecret:        "test-secret",
		JWTTTL:           time.Hour,
		ChatHistoryLimit: 100,
		WS: config.WSConfig{
			WriteWait:      time.Second,
			PongWait:       10 * time.Second,
			SendBuffer:     32,
			MaxMessageSize: 4096,
		},
	}
}

func setupHub(t *testing.T) *hub {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Connect(":memory:", zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	users := repository.NewUserRepository(db)
	hash, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	require.NoError(t, err)
	mk := func(username, name string, role domain.UserRole) *domain.User {
		u := &domain.User{Username: username, Name: name, Role: role, IsActive: true, PasswordHash: string(hash)}
		require.NoError(t, users.Create(context.Background(), u))
		return u
	}

	journal := &recordingJournal{}
	h := &hub{
		journal: journal,
		owner:   mk("owner", "Dana", domain.RoleOwner),
		worker:  mk("worker", "Lee", domain.RoleWorker),
		manager: mk("manager", "Sam", domain.RoleManager),
	}
	h.app = New(testConfig(), db, journal, zap.NewNop())
	h.srv = httptest.NewServer(h.app.Router)
	t.Cleanup(func() {
		h.app.Registry.CloseAll()
		h.srv.Close()
	})
	return h
}

func (h *hub) token(t *testing.T, u *domain.User) string {
	t.Helper()
	tok, err := h.app.Tokens.GenerateToken(u.ID, string(u.Role))
	require.NoError(t, err)
	return tok
}

func (h *hub) dial(t *testing.T, u *domain.User) *websocket.Conn {
	t.Helper()
	url := fmt.Sprintf("ws%s/ws/%s/%d?token=%s", strings.TrimPrefix(h.srv.URL, "http"), u.Role, u.ID, h.token(t, u))
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.Equal(t, "connected", readJSON(t, conn)["type"])
	return conn
}

func (h *hub) call(t *testing.T, u *domain.User, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, h.srv.URL+"/api/v1"+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+h.token(t, u))

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func orderField(t *testing.T, body map[string]any, key string) any {
	t.Helper()
	data, ok := body["data"].(map[string]any)
	require.True(t, ok, "missing data in %v", body)
	order, ok := data["order"].(map[string]any)
	require.True(t, ok, "missing order in %v", body)
	return order[key]
}

func TestRepairScenario(t *testing.T) {
	h := setupHub(t)

	ownerTab1 := h.dial(t, h.owner)
	ownerTab2 := h.dial(t, h.owner)
	workerConn := h.dial(t, h.worker)
	managerConn := h.dial(t, h.manager)

	status, body := h.call(t, h.owner, http.MethodPost, "/repairs", gin.H{
		"description":   "Kitchen tap is leaking",
		"property_info": "Block 3, flat 12",
		"urgency_level": "high",
	})
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, "pending", orderField(t, body, "status"))
	id := int64(orderField(t, body, "id").(float64))
	base := fmt.Sprintf("/repairs/%d", id)

	assert.Equal(t, "new_repair", readJSON(t, managerConn)["type"])

	status, body = h.call(t, h.owner, http.MethodPost, base+"/complete", nil)
	assert.Equal(t, http.StatusForbidden, status, body)

	status, body = h.call(t, h.manager, http.MethodPost, base+"/assign", gin.H{"worker_id": h.worker.ID})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "assigned", orderField(t, body, "status"))
	assigned := readJSON(t, workerConn)
	assert.Equal(t, "new_workorder", assigned["type"])

	status, body = h.call(t, h.worker, http.MethodPost, base+"/complete", gin.H{"cost": 150})
	assert.Equal(t, http.StatusConflict, status, body)

	status, body = h.call(t, h.worker, http.MethodPost, base+"/start", nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "in_progress", orderField(t, body, "status"))
	for _, conn := range []*websocket.Conn{ownerTab1, ownerTab2, managerConn} {
		frame := readJSON(t, conn)
		assert.Equal(t, "repair_status_update", frame["type"])
		assert.Equal(t, "in_progress", frame["data"].(map[string]any)["status"])
	}

	status, body = h.call(t, h.worker, http.MethodPost, base+"/complete", gin.H{"cost": 150})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "pending_payment", orderField(t, body, "status"))
	assert.Equal(t, false, orderField(t, body, "cost_paid"))
	for _, conn := range []*websocket.Conn{ownerTab1, ownerTab2, managerConn} {
		frame := readJSON(t, conn)
		assert.Equal(t, "pending_payment", frame["data"].(map[string]any)["status"])
	}

	status, body = h.call(t, h.owner, http.MethodPost, base+"/pay", nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "pending_evaluation", orderField(t, body, "status"))
	assert.Equal(t, true, orderField(t, body, "cost_paid"))
	paid := readJSON(t, workerConn)
	assert.Equal(t, "workorder_update", paid["type"])
	assert.Equal(t, "payment", paid["update_type"])
	assert.Equal(t, "repair_status_update", readJSON(t, managerConn)["type"])

	status, body = h.call(t, h.owner, http.MethodPost, base+"/evaluate", gin.H{"rating": 5, "comment": "Quick and tidy"})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "finished", orderField(t, body, "status"))
	assert.Equal(t, "repair_evaluated", readJSON(t, workerConn)["type"])
	assert.Equal(t, "repair_evaluated", readJSON(t, managerConn)["type"])

	status, body = h.call(t, h.owner, http.MethodPost, base+"/evaluate", gin.H{"rating": 1, "comment": "changed my mind"})
	assert.Equal(t, http.StatusConflict, status, body)

	_, body = h.call(t, h.owner, http.MethodGet, base, nil)
	assert.Equal(t, float64(5), orderField(t, body, "rating"))

	assert.Contains(t, h.journal.Kinds(), notification.KindEvaluationSubmitted)
	assert.Contains(t, h.journal.Kinds(), notification.KindWorkOrderAssigned)
}

func TestHealthzCountsConnections(t *testing.T) {
	h := setupHub(t)
	h.dial(t, h.owner)
	h.dial(t, h.manager)

	resp, err := http.Get(h.srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Data struct {
			Connections map[string]int `json:"connections"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 1, body.Data.Connections["owner"])
	assert.Equal(t, 0, body.Data.Connections["worker"])
	assert.Equal(t, 1, body.Data.Connections["manager"])
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	h := setupHub(t)

	resp, err := http.Post(h.srv.URL+"/api/v1/repairs", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLoginIssuesUsableToken(t *testing.T) {
	h := setupHub(t)

	resp, err := http.Post(h.srv.URL+"/api/v1/auth/login", "application/json",
		strings.NewReader(`{"username":"worker","password":"secret1"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.Data.AccessToken)

	id, err := h.app.Tokens.Verify(body.Data.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, h.worker.Identity(), id)

	bad, err := http.Post(h.srv.URL+"/api/v1/auth/login", "application/json",
		strings.NewReader(`{"username":"worker","password":"nope"}`))
	require.NoError(t, err)
	defer bad.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, bad.StatusCode)
}
