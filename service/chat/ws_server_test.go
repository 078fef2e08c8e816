package chat

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := NewServer(ServerConf{TypingTTL: 0})
	r := gin.New()
	r.GET("/ws", s.HandleWS)

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return s, ts
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendFrame(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(&struct {
		Event string `json:"event"`
		Data  any    `json:"data,omitempty"`
	}{Event: event, Data: data}))
}

func readFrame(t *testing.T, conn *websocket.Conn) *EventFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f EventFrame
	require.NoError(t, conn.ReadJSON(&f))
	return &f
}

// readUntil 跳过其它事件直到等到目标事件（online-users 这类全量广播会穿插进来）
func readUntil(t *testing.T, conn *websocket.Conn, event string) *EventFrame {
	t.Helper()
	for i := 0; i < 10; i++ {
		f := readFrame(t, conn)
		if f.Event == event {
			return f
		}
	}
	require.FailNowf(t, "event not received", "want %s", event)
	return nil
}

func onlineSet(t *testing.T, f *EventFrame) []string {
	t.Helper()
	require.Equal(t, EventOnlineUsers, f.Event)
	var users []string
	require.NoError(t, json.Unmarshal(f.Data, &users))
	return users
}

func TestSetupHandshake(t *testing.T) {
	req := require.New(t)
	_, ts := newTestServer(t)

	conn := dialWS(t, ts)
	sendFrame(t, conn, EventSetup, map[string]string{"_id": "user-a"})

	req.Equal(EventConnected, readFrame(t, conn).Event)
	req.Equal([]string{"user-a"}, onlineSet(t, readFrame(t, conn)))
}

func TestOnlinePresenceLifecycle(t *testing.T) {
	req := require.New(t)
	_, ts := newTestServer(t)

	connA := dialWS(t, ts)
	sendFrame(t, connA, EventSetup, map[string]string{"_id": "user-a"})
	readUntil(t, connA, EventConnected)
	readUntil(t, connA, EventOnlineUsers)

	connB := dialWS(t, ts)
	sendFrame(t, connB, EventSetup, map[string]string{"_id": "user-b"})
	readUntil(t, connB, EventConnected)

	// 两边都看到两个人
	req.ElementsMatch([]string{"user-a", "user-b"},
		onlineSet(t, readUntil(t, connA, EventOnlineUsers)))
	req.ElementsMatch([]string{"user-a", "user-b"},
		onlineSet(t, readUntil(t, connB, EventOnlineUsers)))

	// B 断开后 A 收到缩水的集合
	connB.Close()
	req.Equal([]string{"user-a"},
		onlineSet(t, readUntil(t, connA, EventOnlineUsers)))
}

func TestMessageFanOutOverWire(t *testing.T) {
	req := require.New(t)
	_, ts := newTestServer(t)

	connA := dialWS(t, ts)
	sendFrame(t, connA, EventSetup, map[string]string{"_id": "user-a"})
	readUntil(t, connA, EventConnected)

	connB := dialWS(t, ts)
	sendFrame(t, connB, EventSetup, map[string]string{"_id": "user-b"})
	readUntil(t, connB, EventConnected)
	readUntil(t, connA, EventOnlineUsers)

	payload := map[string]any{
		"_id":     "m1",
		"content": "hello",
		"sender":  map[string]string{"_id": "user-a"},
		"chat": map[string]any{
			"_id":          "chat-1",
			"participants": []map[string]string{{"_id": "user-a"}, {"_id": "user-b"}},
		},
	}
	sendFrame(t, connA, EventNewMessage, payload)

	f := readUntil(t, connB, EventMessageReceived)
	var got map[string]any
	req.NoError(json.Unmarshal(f.Data, &got))
	req.Equal("hello", got["content"])
	req.Equal("m1", got["_id"])
}

func TestTypingRelayOverWire(t *testing.T) {
	req := require.New(t)
	_, ts := newTestServer(t)

	connA := dialWS(t, ts)
	sendFrame(t, connA, EventSetup, map[string]string{"_id": "user-a"})
	readUntil(t, connA, EventConnected)

	connB := dialWS(t, ts)
	sendFrame(t, connB, EventSetup, map[string]string{"_id": "user-b"})
	readUntil(t, connB, EventConnected)
	readUntil(t, connA, EventOnlineUsers)

	sendFrame(t, connA, EventJoinChat, "chat-1")
	sendFrame(t, connB, EventJoinChat, "chat-1")
	// join 没有回执，稍等房间表落定
	time.Sleep(50 * time.Millisecond)

	sendFrame(t, connA, EventTyping, "chat-1")
	f := readUntil(t, connB, EventTyping)
	var chatID string
	req.NoError(json.Unmarshal(f.Data, &chatID))
	req.Equal("chat-1", chatID)

	sendFrame(t, connA, EventStopTyping, "chat-1")
	readUntil(t, connB, EventStopTyping)
}

func TestBadFrameDoesNotKillConnection(t *testing.T) {
	req := require.New(t)
	_, ts := newTestServer(t)

	conn := dialWS(t, ts)
	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	sendFrame(t, conn, EventSetup, map[string]string{"_id": "user-a"})

	// 坏帧被丢弃，连接还活着
	req.Equal(EventConnected, readFrame(t, conn).Event)
}

func TestSecondSetupReplacesFirstSocket(t *testing.T) {
	req := require.New(t)
	s, ts := newTestServer(t)

	conn1 := dialWS(t, ts)
	sendFrame(t, conn1, EventSetup, map[string]string{"_id": "user-a"})
	readUntil(t, conn1, EventConnected)

	conn2 := dialWS(t, ts)
	sendFrame(t, conn2, EventSetup, map[string]string{"_id": "user-a"})
	readUntil(t, conn2, EventConnected)

	// 后到者赢：在线集合仍然只有一个 user-a
	req.Eventually(func() bool {
		return s.Registry().CountOnline() == 1
	}, time.Second, 10*time.Millisecond)

	// 旧 socket 被服务端关掉
	req.NoError(conn1.SetReadDeadline(time.Now().Add(2 * time.Second)))
	for {
		if _, _, err := conn1.ReadMessage(); err != nil {
			break
		}
	}
}
