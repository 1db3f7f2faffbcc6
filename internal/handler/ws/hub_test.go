package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"MarketPulse/internal/domain/models"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedUpdater struct{ calls atomic.Int32 }

func (u *fixedUpdater) GetMarketUpdate(context.Context) models.MarketUpdate {
	u.calls.Add(1)
	upd := models.MarketUpdate{Type: models.MarketUpdateType}
	for i, sym := range []string{"AAPL", "TSLA", "BTCUSD"} {
		upd.Data = append(upd.Data, models.LatestView{Asset: models.Asset{ID: int64(i + 1), Symbol: sym}})
	}
	return upd
}

func startHub(t *testing.T, opts ...Option) (*Hub, string) {
	t.Helper()
	hub := NewHub(&fixedUpdater{}, opts...)
	e := echo.New()
	hub.RegisterRoutes(e)
	srv := httptest.NewServer(e)
	t.Cleanup(func() {
		hub.Stop()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	return conn
}

func symbols(upd models.MarketUpdate) []string {
	out := make([]string, 0, len(upd.Data))
	for _, v := range upd.Data {
		out = append(out, v.Asset.Symbol)
	}
	return out
}

func TestInitialFrameOnConnect(t *testing.T) {
	_, url := startHub(t)
	conn := dial(t, url)

	var upd models.MarketUpdate
	require.NoError(t, conn.ReadJSON(&upd))
	assert.Equal(t, models.MarketUpdateType, upd.Type)
	assert.Equal(t, []string{"AAPL", "TSLA", "BTCUSD"}, symbols(upd))
}

func TestSubscribeFiltersBroadcast(t *testing.T) {
	hub, url := startHub(t, WithInterval(20*time.Millisecond))
	hub.Start(context.Background())
	conn := dial(t, url)

	var upd models.MarketUpdate
	require.NoError(t, conn.ReadJSON(&upd))

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "subscribe", "assets": []interface{}{3, "aapl"}}))

	var ack ackMessage
	for {
		var raw map[string]interface{}
		require.NoError(t, conn.ReadJSON(&raw))
		if raw["type"] == "subscribed" {
			ack.Type = "subscribed"
			for _, a := range raw["assets"].([]interface{}) {
				ack.Assets = append(ack.Assets, a.(string))
			}
			break
		}
	}
	assert.Equal(t, []string{"3", "AAPL"}, ack.Assets)

	// a broadcast racing the subscribe may still carry every asset
	for i := 0; i < 3; i++ {
		require.NoError(t, conn.ReadJSON(&upd))
		if len(upd.Data) == 2 {
			break
		}
	}
	assert.ElementsMatch(t, []string{"AAPL", "BTCUSD"}, symbols(upd))
}

func TestBroadcastWithoutClientsSkipsUpdater(t *testing.T) {
	u := &fixedUpdater{}
	hub := NewHub(u, WithInterval(5*time.Millisecond))
	hub.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	hub.Stop()
	assert.Zero(t, u.calls.Load())
}

func TestStopDisconnectsClients(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url)

	var upd models.MarketUpdate
	require.NoError(t, conn.ReadJSON(&upd))
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	hub.Stop()
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	assert.Zero(t, hub.Clients())
}

func TestOriginCheck(t *testing.T) {
	_, url := startHub(t, WithAllowedOrigins("http://dash.local"))

	_, _, err := websocket.DefaultDialer.Dial(url, map[string][]string{"Origin": {"http://evil.local"}})
	assert.Error(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(url, map[string][]string{"Origin": {"http://dash.local"}})
	require.NoError(t, err)
	_ = conn.Close()
}

func TestClientFilter(t *testing.T) {
	c := &client{}
	v := models.LatestView{Asset: models.Asset{ID: 2, Symbol: "TSLA"}}
	assert.True(t, c.wants(v))

	assert.Equal(t, []string{"TSLA"}, c.subscribe([]interface{}{" tsla ", 1.5, -1.0, true}))
	assert.True(t, c.wants(v))
	assert.False(t, c.wants(models.LatestView{Asset: models.Asset{ID: 1, Symbol: "AAPL"}}))

	c.subscribe(nil)
	assert.False(t, c.filtered())
}
