package handler

import (
	"encoding/json"
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

	"github.com/slotswap/slotswap-api/internal/dto"
	"github.com/slotswap/slotswap-api/internal/models"
	"github.com/slotswap/slotswap-api/internal/realtime"
	"github.com/slotswap/slotswap-api/pkg/config"
	appErrors "github.com/slotswap/slotswap-api/pkg/errors"
)

type tokenValidatorStub struct {
	claims map[string]*models.JWTClaims
}

func (s tokenValidatorStub) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := s.claims[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired token")
}

func newWSServer(t *testing.T) (*httptest.Server, *realtime.Hub) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	hub := realtime.NewHub(config.RealtimeConfig{WriteTimeout: time.Second}, nil, zap.NewNop())
	validator := tokenValidatorStub{claims: map[string]*models.JWTClaims{
		"good-token": {UserID: "alice", Name: "Alice"},
	}}
	handler := NewWSHandler(hub, validator, zap.NewNop())

	r := gin.New()
	r.GET("/ws", handler.Connect)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, hub
}

func TestWSHandlerConnectRequiresToken(t *testing.T) {
	srv, _ := newWSServer(t)

	resp, err := http.Get(srv.URL + "/ws")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWSHandlerConnectRejectsBadToken(t *testing.T) {
	srv, hub := newWSServer(t)

	resp, err := http.Get(srv.URL + "/ws?token=bogus")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Empty(t, hub.ConnectedUsers())
}

func TestWSHandlerConnectSendsWelcome(t *testing.T) {
	srv, hub := newWSServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=good-token"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var frame struct {
		Type      string    `json:"type"`
		Timestamp time.Time `json:"timestamp"`
	}
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "connected", frame.Type)
	assert.False(t, frame.Timestamp.IsZero())
	assert.True(t, hub.IsOnline("alice"))
}

func TestWSHandlerConnectConcurrentWithNotify(t *testing.T) {
	srv, hub := newWSServer(t)

	// Hammer the user's channel while the connection is being established.
	// The welcome frame is written before registration, so it can never
	// interleave with Notify writes; every frame must parse cleanly and the
	// welcome must come first.
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				hub.Notify("alice", dto.EventSwapRequestReceived, dto.SwapNotification{RequestID: "req-1"})
			}
		}
	}()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=good-token"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var first struct {
		Type string `json:"type"`
	}
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "connected", first.Type)

	require.Eventually(t, func() bool { return hub.IsOnline("alice") }, time.Second, 5*time.Millisecond)
	for i := 0; i < 3; i++ {
		var frame struct {
			Type string               `json:"type"`
			Data dto.SwapNotification `json:"data"`
		}
		require.NoError(t, conn.ReadJSON(&frame))
		assert.Equal(t, string(dto.EventSwapRequestReceived), frame.Type)
		assert.Equal(t, "req-1", frame.Data.RequestID)
	}

	close(stop)
	wg.Wait()
}

func TestWSHandlerPresence(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := realtime.NewHub(config.RealtimeConfig{}, nil, zap.NewNop())
	handler := NewWSHandler(hub, tokenValidatorStub{}, zap.NewNop())

	c, w := testContext(t, http.MethodGet, "/presence", nil)
	handler.Presence(c)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data struct {
			Online []string `json:"online"`
			Self   bool     `json:"self"`
			Count  int      `json:"count"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Empty(t, body.Data.Online)
	assert.False(t, body.Data.Self)
	assert.Equal(t, 0, body.Data.Count)
}
