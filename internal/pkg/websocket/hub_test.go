package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/lingoschool/internal/pkg/events"
)

func TestDashboardReceivesPublishedEvents(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(zerolog.Nop())
	go hub.Run(ctx)

	h := NewHandler(hub, []string{"*"}, zerolog.Nop())
	r := gin.New()
	r.GET("/ws/dashboard", func(c *gin.Context) {
		c.Set("userID", int64(1))
		h.HandleDashboard(c)
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/dashboard"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.GetClientsCount(ChannelDashboard) == 1 }, time.Second, 10*time.Millisecond)

	ev, err := events.New(events.PaymentRecorded, events.PaymentPayload{PaymentID: 5, Amount: 1000})
	require.NoError(t, err)
	require.NoError(t, hub.Publish(ctx, ev))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, ChannelDashboard, msg.Channel)
	assert.Equal(t, ev.ID, msg.Event.ID)
	assert.Equal(t, events.PaymentRecorded, msg.Event.Type)
}

func TestHandleDashboardRequiresUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(NewHub(zerolog.Nop()), nil, zerolog.Nop())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/ws/dashboard", nil)
	h.HandleDashboard(c)

	assert.Equal(t, 401, w.Code)
}

func TestUpgraderOrigins(t *testing.T) {
	u := newUpgrader([]string{"https://portal.lingoschool.app"})

	req := httptest.NewRequest("GET", "/", nil)
	assert.True(t, u.CheckOrigin(req))
	req.Header.Set("Origin", "https://portal.lingoschool.app")
	assert.True(t, u.CheckOrigin(req))
	req.Header.Set("Origin", "https://evil.example")
	assert.False(t, u.CheckOrigin(req))
}
