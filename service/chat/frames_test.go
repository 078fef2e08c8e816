package chat

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFrameJSON(t *testing.T) {
	req := require.New(t)

	f, err := ParseFrameJSON([]byte(`{"event":"setup","data":{"_id":"u1"}}`))
	req.NoError(err)
	req.Equal(EventSetup, f.Event)

	_, err = ParseFrameJSON([]byte(`{"data":{}}`))
	req.Error(err) // 缺事件名

	_, err = ParseFrameJSON([]byte(`not json`))
	req.Error(err)
}

func TestBuildFrameRoundTrip(t *testing.T) {
	req := require.New(t)

	raw := BuildFrame(EventOnlineUsers, []string{"u1", "u2"})
	req.NotNil(raw)

	f, err := ParseFrameJSON(raw)
	req.NoError(err)
	req.Equal(EventOnlineUsers, f.Event)

	var users []string
	req.NoError(json.Unmarshal(f.Data, &users))
	req.Equal([]string{"u1", "u2"}, users)
}

func TestExtractSetupPayload(t *testing.T) {
	req := require.New(t)

	f, _ := ParseFrameJSON([]byte(`{"event":"setup","data":{"_id":"u1","name":"alice"}}`))
	p, err := ExtractSetupPayload(f)
	req.NoError(err)
	req.Equal("u1", p.UserID)

	// _id 缺失是格式错误
	f, _ = ParseFrameJSON([]byte(`{"event":"setup","data":{"name":"alice"}}`))
	_, err = ExtractSetupPayload(f)
	req.Error(err)

	// data 不是对象也是格式错误
	f, _ = ParseFrameJSON([]byte(`{"event":"setup","data":"u1"}`))
	_, err = ExtractSetupPayload(f)
	req.Error(err)

	// _id 不是字符串同样拒绝
	f, _ = ParseFrameJSON([]byte(`{"event":"setup","data":{"_id":42}}`))
	_, err = ExtractSetupPayload(f)
	req.Error(err)
}

func TestExtractChatID(t *testing.T) {
	req := require.New(t)

	f, _ := ParseFrameJSON([]byte(`{"event":"join-chat","data":"chat-1"}`))
	chatID, err := ExtractChatID(f)
	req.NoError(err)
	req.Equal("chat-1", chatID)

	f, _ = ParseFrameJSON([]byte(`{"event":"typing","data":{"chat":"x"}}`))
	_, err = ExtractChatID(f)
	req.Error(err)

	f, _ = ParseFrameJSON([]byte(`{"event":"typing","data":""}`))
	_, err = ExtractChatID(f)
	req.Error(err)
}

func TestExtractNewMessagePayload(t *testing.T) {
	req := require.New(t)

	f, _ := ParseFrameJSON([]byte(`{"event":"new-message","data":{
		"_id":"m1","content":"hi",
		"sender":{"_id":"u1","name":"alice"},
		"chat":{"_id":"c1","participants":[{"_id":"u1"},{"_id":"u2"}]}}}`))
	p, err := ExtractNewMessagePayload(f)
	req.NoError(err)
	req.Equal("u1", p.Sender.ID)
	req.Equal("c1", p.Chat.ID)
	req.Len(p.Chat.Participants, 2)

	// participants 缺失不是错误，由调用方决定跳过
	f, _ = ParseFrameJSON([]byte(`{"event":"new-message","data":{"sender":{"_id":"u1"},"chat":{"_id":"c1"}}}`))
	p, err = ExtractNewMessagePayload(f)
	req.NoError(err)
	req.Empty(p.Chat.Participants)

	// chat 不是对象是格式错误
	f, _ = ParseFrameJSON([]byte(`{"event":"new-message","data":{"sender":{"_id":"u1"},"chat":"c1"}}`))
	_, err = ExtractNewMessagePayload(f)
	req.Error(err)
}
