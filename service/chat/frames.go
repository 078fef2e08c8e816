package chat

import (
	"encoding/json"
	"fmt"

	"WChat/tools/decode"
)

// 事件名即线上契约，客户端依赖这些字符串
const (
	EventSetup      = "setup"
	EventJoinChat   = "join-chat"
	EventNewMessage = "new-message"
	EventTyping     = "typing"
	EventStopTyping = "stop-typing"

	EventConnected       = "connected"
	EventOnlineUsers     = "online-users"
	EventMessageReceived = "message-received"
)

// EventFrame 统一信封：{"event": "...", "data": ...}
type EventFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func ParseFrameJSON(raw []byte) (*EventFrame, error) {
	frame := &EventFrame{}
	if err := json.Unmarshal(raw, frame); err != nil {
		return nil, fmt.Errorf("unmarshal frame failed: %w", err)
	}
	if frame.Event == "" {
		return nil, fmt.Errorf("frame missing event name")
	}
	return frame, nil
}

// BuildFrame 组装一条下行事件；data 序列化失败时返回 nil（调用方丢弃）
func BuildFrame(event string, data any) []byte {
	b, err := json.Marshal(&struct {
		Event string `json:"event"`
		Data  any    `json:"data,omitempty"`
	}{Event: event, Data: data})
	if err != nil {
		return nil
	}
	return b
}

// ---- 各事件负载 ----

// SetupPayload setup 的负载：{_id: userId}
type SetupPayload struct {
	UserID string `json:"_id"`
}

// UserRef 消息里嵌的用户引用，只看 _id
type UserRef struct {
	ID string `json:"_id"`
}

// ChatRef 消息里嵌的会话引用；Participants 必须已经填充好，
// 缺失时整条消息不投递（静默跳过，不报错）
type ChatRef struct {
	ID           string    `json:"_id"`
	Participants []UserRef `json:"participants"`
}

// NewMessagePayload new-message 的负载，fan-out 只读 chat.participants 和 sender
type NewMessagePayload struct {
	Chat   ChatRef `json:"chat"`
	Sender UserRef `json:"sender"`
}

// ExtractSetupPayload 解析并校验 setup 负载
func ExtractSetupPayload(f *EventFrame) (*SetupPayload, error) {
	m, err := frameDataAsMap(f)
	if err != nil {
		return nil, err
	}
	id, err := decode.ReadString(m, "_id")
	if err != nil {
		return nil, fmt.Errorf("setup payload: %w", err)
	}
	if id == "" {
		return nil, fmt.Errorf("setup payload missing _id")
	}
	p, err := decode.DecodeMap[SetupPayload](m)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ExtractNewMessagePayload 解析 new-message 负载。
// 形状不对（chat/sender 不是对象等）算格式错误；participants 为空不算——
// 那是“跳过投递”的正常分支，由调用方判断。
func ExtractNewMessagePayload(f *EventFrame) (*NewMessagePayload, error) {
	m, err := frameDataAsMap(f)
	if err != nil {
		return nil, err
	}
	return decode.DecodeMap[NewMessagePayload](m)
}

// ExtractChatID join-chat / typing / stop-typing 的负载就是一个 chatId 字符串
func ExtractChatID(f *EventFrame) (string, error) {
	if len(f.Data) == 0 {
		return "", fmt.Errorf("%s payload is empty", f.Event)
	}
	var chatID string
	if err := json.Unmarshal(f.Data, &chatID); err != nil {
		return "", fmt.Errorf("%s payload not a string: %w", f.Event, err)
	}
	if chatID == "" {
		return "", fmt.Errorf("%s payload is empty", f.Event)
	}
	return chatID, nil
}

func frameDataAsMap(f *EventFrame) (map[string]any, error) {
	if f == nil || len(f.Data) == 0 {
		return nil, fmt.Errorf("frame data is empty")
	}
	var m map[string]any
	if err := json.Unmarshal(f.Data, &m); err != nil {
		return nil, fmt.Errorf("frame data not an object: %w", err)
	}
	return m, nil
}
