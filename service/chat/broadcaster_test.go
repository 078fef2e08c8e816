package chat

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestFabric(ttl time.Duration) (*ConnManager, *RoomTable, *Broadcaster) {
	reg := NewConnManager()
	rooms := NewRoomTable()
	return reg, rooms, NewBroadcaster(reg, rooms, BroadcasterConf{TypingTTL: ttl})
}

// setupUser 模拟 setup 完成后的状态：注册在线 + 进个人房间
func setupUser(reg *ConnManager, rooms *RoomTable, userID, connID string) *Client {
	c := NewTestClient(connID, 16)
	reg.AddClient(c)
	reg.Register(userID, c)
	rooms.Join(userID, c)
	return c
}

func recvFrame(t *testing.T, c *Client) *EventFrame {
	t.Helper()
	select {
	case data := <-c.Send:
		f, err := ParseFrameJSON(data)
		require.NoError(t, err)
		return f
	default:
		require.FailNow(t, "no frame queued for "+c.ConnID)
		return nil
	}
}

func TestFanOutSkipsSender(t *testing.T) {
	req := require.New(t)
	reg, rooms, b := newTestFabric(0)

	a := setupUser(reg, rooms, "user-a", "conn-a")
	sender := setupUser(reg, rooms, "user-b", "conn-b")
	c := setupUser(reg, rooms, "user-c", "conn-c")

	raw := json.RawMessage(`{"_id":"m1","content":"hi","sender":{"_id":"user-b"},"chat":{"_id":"chat-1","participants":[{"_id":"user-a"},{"_id":"user-b"},{"_id":"user-c"}]}}`)
	p := &NewMessagePayload{
		Chat: ChatRef{
			ID:           "chat-1",
			Participants: []UserRef{{ID: "user-a"}, {ID: "user-b"}, {ID: "user-c"}},
		},
		Sender: UserRef{ID: "user-b"},
	}

	req.Equal(2, b.FanOutMessage(p, raw))

	fa := recvFrame(t, a)
	req.Equal(EventMessageReceived, fa.Event)
	req.JSONEq(string(raw), string(fa.Data))

	recvFrame(t, c)
	req.Len(sender.Send, 0) // 发送者自己不收
}

func TestFanOutOfflineParticipantSkipped(t *testing.T) {
	req := require.New(t)
	reg, rooms, b := newTestFabric(0)

	setupUser(reg, rooms, "user-a", "conn-a")

	p := &NewMessagePayload{
		Chat:   ChatRef{ID: "chat-1", Participants: []UserRef{{ID: "user-a"}, {ID: "user-offline"}}},
		Sender: UserRef{ID: "user-a"},
	}
	// 只送到了在线的 0 个非发送者（offline 不在任何房间）
	req.Equal(0, b.FanOutMessage(p, json.RawMessage(`{}`)))
}

func TestFanOutWithoutParticipantsIsNoOp(t *testing.T) {
	req := require.New(t)
	reg, rooms, b := newTestFabric(0)

	a := setupUser(reg, rooms, "user-a", "conn-a")

	p := &NewMessagePayload{Chat: ChatRef{ID: "chat-1"}, Sender: UserRef{ID: "user-b"}}
	req.Zero(b.FanOutMessage(p, json.RawMessage(`{}`)))
	req.Zero(b.FanOutMessage(nil, json.RawMessage(`{}`)))
	req.Len(a.Send, 0)
}

func TestBroadcastOnlineUsersReachesEveryConn(t *testing.T) {
	req := require.New(t)
	reg, rooms, b := newTestFabric(0)

	a := setupUser(reg, rooms, "user-a", "conn-a")
	// 连上但还没 setup 的连接也要收到
	fresh := NewTestClient("conn-fresh", 16)
	reg.AddClient(fresh)

	b.BroadcastOnlineUsers()

	fa := recvFrame(t, a)
	req.Equal(EventOnlineUsers, fa.Event)
	var online []string
	req.NoError(json.Unmarshal(fa.Data, &online))
	req.Equal([]string{"user-a"}, online)

	ff := recvFrame(t, fresh)
	req.Equal(EventOnlineUsers, ff.Event)
}

func TestTypingRelayExcludesTypist(t *testing.T) {
	req := require.New(t)
	reg, rooms, b := newTestFabric(0)

	a := setupUser(reg, rooms, "user-a", "conn-a")
	typist := setupUser(reg, rooms, "user-b", "conn-b")
	rooms.Join("chat-1", a)
	rooms.Join("chat-1", typist)

	b.RelayTyping("chat-1", typist)

	fa := recvFrame(t, a)
	req.Equal(EventTyping, fa.Event)
	var chatID string
	req.NoError(json.Unmarshal(fa.Data, &chatID))
	req.Equal("chat-1", chatID)
	req.Len(typist.Send, 0)

	b.RelayStopTyping("chat-1", typist)
	fs := recvFrame(t, a)
	req.Equal(EventStopTyping, fs.Event)
}

func TestTypingAutoClearAfterTTL(t *testing.T) {
	req := require.New(t)
	reg, rooms, b := newTestFabric(30 * time.Millisecond)

	a := setupUser(reg, rooms, "user-a", "conn-a")
	typist := setupUser(reg, rooms, "user-b", "conn-b")
	rooms.Join("chat-1", a)
	rooms.Join("chat-1", typist)

	b.RelayTyping("chat-1", typist)
	recvFrame(t, a) // typing

	// TTL 内没有 stop-typing，替客户端补发
	req.Eventually(func() bool {
		select {
		case data := <-a.Send:
			f, err := ParseFrameJSON(data)
			return err == nil && f.Event == EventStopTyping
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}

func TestTypingTimerCancelledOnStop(t *testing.T) {
	req := require.New(t)
	reg, rooms, b := newTestFabric(30 * time.Millisecond)

	a := setupUser(reg, rooms, "user-a", "conn-a")
	typist := setupUser(reg, rooms, "user-b", "conn-b")
	rooms.Join("chat-1", a)
	rooms.Join("chat-1", typist)

	b.RelayTyping("chat-1", typist)
	recvFrame(t, a) // typing
	b.RelayStopTyping("chat-1", typist)
	recvFrame(t, a) // 显式 stop-typing

	// 定时器已取消，不该再来第二条
	time.Sleep(80 * time.Millisecond)
	req.Len(a.Send, 0)
}

func TestCancelTypingOnDisconnect(t *testing.T) {
	req := require.New(t)
	reg, rooms, b := newTestFabric(30 * time.Millisecond)

	a := setupUser(reg, rooms, "user-a", "conn-a")
	typist := setupUser(reg, rooms, "user-b", "conn-b")
	rooms.Join("chat-1", a)
	rooms.Join("chat-1", typist)

	b.RelayTyping("chat-1", typist)
	recvFrame(t, a)

	b.CancelTyping(typist)
	time.Sleep(80 * time.Millisecond)
	req.Len(a.Send, 0)
}
