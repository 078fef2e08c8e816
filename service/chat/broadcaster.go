package chat

import (
	"encoding/json"
	"sync"
	"time"

	"WChat/logger"
)

// ===== 配置 =====

type BroadcasterConf struct {
	// TypingTTL 输入指示的自动清除时间：这么久没有收到 typing 续期就替客户端
	// 补发一条 stop-typing（突然断线不会留下一直在打字的残影）。<=0 关闭。
	TypingTTL time.Duration
}

// Broadcaster 投递面：在线集合广播、消息扇出、输入指示转发。
// 不落库、不排队、不回执——离线的人什么都收不到，补数据走 REST 历史接口。
type Broadcaster struct {
	reg   *ConnManager
	rooms *RoomTable
	conf  BroadcasterConf

	typingMu sync.Mutex
	typing   map[typingKey]*time.Timer
}

type typingKey struct {
	connID string
	chatID string
}

func NewBroadcaster(reg *ConnManager, rooms *RoomTable, conf BroadcasterConf) *Broadcaster {
	return &Broadcaster{
		reg:    reg,
		rooms:  rooms,
		conf:   conf,
		typing: make(map[typingKey]*time.Timer),
	}
}

// ===== 在线集合 =====

// BroadcastOnlineUsers 把当前在线 userID 集合推给所有活跃连接（含未 setup 的）
func (b *Broadcaster) BroadcastOnlineUsers() {
	frame := BuildFrame(EventOnlineUsers, b.reg.ListOnline())
	if frame == nil {
		return
	}
	for _, c := range b.reg.Conns() {
		c.Push(frame)
	}
}

// ===== 消息扇出 =====

// FanOutMessage 把一条已持久化的消息推进除发送者外每个参与者的个人房间。
// raw 是原始负载，message-received 原样回放。
// participants 缺失/为空：静默跳过（调用方已保证这不是格式错误）。
func (b *Broadcaster) FanOutMessage(p *NewMessagePayload, raw json.RawMessage) int {
	if p == nil || len(p.Chat.Participants) == 0 {
		return 0
	}
	frame := BuildFrame(EventMessageReceived, raw)
	if frame == nil {
		return 0
	}

	delivered := 0
	for _, participant := range p.Chat.Participants {
		if participant.ID == "" || participant.ID == p.Sender.ID {
			continue
		}
		// 个人房间 = userID 命名的房间；没 setup 的用户这里自然没人，静默漏投
		delivered += b.rooms.Broadcast(participant.ID, nil, frame)
	}
	return delivered
}

// ===== 输入指示 =====

// RelayTyping 把 typing 转给会话房间里除自己外的成员，并（可选）挂自动清除定时器
func (b *Broadcaster) RelayTyping(chatID string, from *Client) {
	frame := BuildFrame(EventTyping, chatID)
	if frame == nil {
		return
	}
	b.rooms.Broadcast(chatID, from, frame)
	b.armTypingTimer(chatID, from)
}

// RelayStopTyping 转发 stop-typing 并取消对应的自动清除
func (b *Broadcaster) RelayStopTyping(chatID string, from *Client) {
	b.cancelTypingTimer(typingKey{connID: from.ConnID, chatID: chatID})
	frame := BuildFrame(EventStopTyping, chatID)
	if frame == nil {
		return
	}
	b.rooms.Broadcast(chatID, from, frame)
}

// CancelTyping 连接断开时取消它挂着的全部定时器
func (b *Broadcaster) CancelTyping(c *Client) {
	b.typingMu.Lock()
	defer b.typingMu.Unlock()
	for k, t := range b.typing {
		if k.connID == c.ConnID {
			t.Stop()
			delete(b.typing, k)
		}
	}
}

func (b *Broadcaster) cancelTypingTimer(key typingKey) {
	b.typingMu.Lock()
	defer b.typingMu.Unlock()
	if t, ok := b.typing[key]; ok {
		t.Stop()
		delete(b.typing, key)
	}
}

func (b *Broadcaster) armTypingTimer(chatID string, from *Client) {
	if b.conf.TypingTTL <= 0 {
		return
	}
	key := typingKey{connID: from.ConnID, chatID: chatID}

	b.typingMu.Lock()
	defer b.typingMu.Unlock()

	if t, ok := b.typing[key]; ok {
		// 续期
		t.Reset(b.conf.TypingTTL)
		return
	}
	b.typing[key] = time.AfterFunc(b.conf.TypingTTL, func() {
		b.typingMu.Lock()
		delete(b.typing, key)
		b.typingMu.Unlock()

		frame := BuildFrame(EventStopTyping, chatID)
		if frame == nil {
			return
		}
		n := b.rooms.Broadcast(chatID, from, frame)
		logger.Infof("[Typing] auto stop-typing chat=%s conn=%s notified=%d", chatID, from.ConnID, n)
	})
}
