package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbd888/fountainscan/internal/lists"
	"github.com/mbd888/fountainscan/internal/risk"
)

func testHub() *Hub {
	return NewHub(slog.Default())
}

func verdictEvent(host string, level risk.Level) *Event {
	return &Event{
		Type: EventVerdict,
		Data: VerdictData{Verdict: &risk.Verdict{Host: host, RiskLevel: level}, Decision: risk.DecisionWarn},
	}
}

func TestClientWants(t *testing.T) {
	changed := &Event{Type: EventListsChanged, Data: ListsChangedData{Tag: lists.TagDeny, Op: "add"}}

	tests := []struct {
		name  string
		sub   Subscription
		event *Event
		want  bool
	}{
		{"all events", Subscription{AllEvents: true}, changed, true},
		{"empty subscription", Subscription{}, verdictEvent("a.com", risk.LevelLow), true},
		{"type match", Subscription{EventTypes: []EventType{EventListsChanged}}, changed, true},
		{"type miss", Subscription{EventTypes: []EventType{EventBlocked}}, verdictEvent("a.com", risk.LevelHigh), false},
		{"min level met", Subscription{MinLevel: risk.LevelMedium}, verdictEvent("a.com", risk.LevelHigh), true},
		{"min level missed", Subscription{MinLevel: risk.LevelHigh}, verdictEvent("a.com", risk.LevelMedium), false},
		{"override blocked counts as high", Subscription{MinLevel: risk.LevelHigh}, verdictEvent("a.com", risk.LevelOverrideBlocked), true},
		{"host exact", Subscription{Hosts: []string{"scam.ng"}}, verdictEvent("scam.ng", risk.LevelHigh), true},
		{"host subdomain", Subscription{Hosts: []string{"Scam.ng"}}, verdictEvent("pay.scam.ng", risk.LevelHigh), true},
		{"host suffix is not a subdomain", Subscription{Hosts: []string{"scam.ng"}}, verdictEvent("notscam.ng", risk.LevelHigh), false},
		{"host filter ignores list events", Subscription{Hosts: []string{"scam.ng"}}, changed, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := &Client{sub: tc.sub}
			assert.Equal(t, tc.want, c.wants(tc.event))
		})
	}
}

func TestHub_Stats_Initial(t *testing.T) {
	stats := testHub().Stats()
	assert.Equal(t, 0, stats["connectedClients"])
	assert.Equal(t, int64(0), stats["totalEvents"])
}

func TestHub_RegisterUnregister(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	client := &Client{hub: h, send: make(chan []byte, 256), sub: Subscription{AllEvents: true}}
	h.register <- client
	time.Sleep(50 * time.Millisecond)

	stats := h.Stats()
	assert.Equal(t, 1, stats["connectedClients"])
	assert.Equal(t, int64(1), stats["peakClients"])

	h.unregister <- client
	time.Sleep(50 * time.Millisecond)

	stats = h.Stats()
	assert.Equal(t, 0, stats["connectedClients"])
	assert.Equal(t, int64(1), stats["peakClients"], "peak is kept")
}

func TestHub_NotifyVerdict(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	client := &Client{hub: h, send: make(chan []byte, 256), sub: Subscription{EventTypes: []EventType{EventBlocked}}}
	h.register <- client
	time.Sleep(50 * time.Millisecond)

	h.NotifyVerdict(&risk.Verdict{Host: "a.com", RiskLevel: risk.LevelMedium}, risk.DecisionWarn)
	h.NotifyVerdict(&risk.Verdict{Host: "b.com", RiskLevel: risk.LevelHigh}, risk.DecisionBlock)

	select {
	case msg := <-client.send:
		var got struct {
			Type EventType `json:"type"`
			Data struct {
				Verdict  risk.Verdict  `json:"verdict"`
				Decision risk.Decision `json:"decision"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(msg, &got))
		assert.Equal(t, EventBlocked, got.Type)
		assert.Equal(t, "b.com", got.Data.Verdict.Host)
		assert.Equal(t, risk.DecisionBlock, got.Data.Decision)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for blocked event")
	}

	select {
	case <-client.send:
		t.Error("warn verdict should have been filtered")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_ContextCancellation(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop after context cancellation")
	}
}

func TestHub_WebSocketRoundTrip(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	header := map[string][]string{"Origin": {"chrome-extension://abcdefghijklmnop"}}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	require.NoError(t, conn.WriteJSON(Subscription{EventTypes: []EventType{EventListsChanged}}))
	time.Sleep(50 * time.Millisecond)

	h.NotifyVerdict(&risk.Verdict{Host: "x.com", RiskLevel: risk.LevelHigh}, risk.DecisionWarn)
	h.NotifyListsChanged(lists.TagAllow, "add", "partner.org")

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got struct {
		Type EventType        `json:"type"`
		Data ListsChangedData `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, EventListsChanged, got.Type)
	assert.Equal(t, "partner.org", got.Data.Pattern)
}

func TestUpgrader_CheckOrigin(t *testing.T) {
	for origin, want := range map[string]bool{
		"":                            true,
		"chrome-extension://abc":      true,
		"moz-extension://abc":         true,
		"http://api.fountainscan.dev": true,
		"https://evil.example":        false,
	} {
		r := httptest.NewRequest(http.MethodGet, "http://api.fountainscan.dev/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		assert.Equal(t, want, upgrader.CheckOrigin(r), origin)
	}
}
