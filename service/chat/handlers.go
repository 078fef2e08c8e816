package chat

import (
	"WChat/logger"
	"WChat/tools/errs"
)

// ===== setup =====

// SetupHandler 绑定连接和用户：登记在线、加入个人房间、回 connected、
// 广播最新在线集合。同一用户再次 setup 时顶掉旧连接（后到者赢）。
type SetupHandler struct{}

func (SetupHandler) Event() string { return EventSetup }

func (SetupHandler) Handle(ctx *Context, f *EventFrame, c *Client) error {
	p, err := ExtractSetupPayload(f)
	if err != nil {
		return errs.WrapMsg(err, "setup payload")
	}

	replaced := ctx.S.reg.Register(p.UserID, c)
	if replaced != nil && replaced != c {
		// 旧连接出局：先摘房间再关，避免关半截还收广播
		ctx.S.rooms.DropClient(replaced)
		ctx.S.bcast.CancelTyping(replaced)
		replaced.Close()
		logger.Infof("[WS] setup replaced old conn user=%s old=%s new=%s", p.UserID, replaced.ConnID, c.ConnID)
	}

	// 个人房间以 userID 命名，消息扇出按这个找人
	ctx.S.rooms.Join(p.UserID, c)

	c.Push(BuildFrame(EventConnected, nil))
	ctx.S.bcast.BroadcastOnlineUsers()
	return nil
}

// ===== join-chat =====

type JoinChatHandler struct{}

func (JoinChatHandler) Event() string { return EventJoinChat }

func (JoinChatHandler) Handle(ctx *Context, f *EventFrame, c *Client) error {
	chatID, err := ExtractChatID(f)
	if err != nil {
		return errs.WrapMsg(err, "join-chat payload")
	}
	ctx.S.rooms.Join(chatID, c)
	logger.Infof("[WS] join-chat conn=%s user=%s chat=%s", c.ConnID, c.UserID, chatID)
	return nil
}

// ===== new-message =====

// NewMessageHandler 客户端直发的扇出路径。REST 持久化后的服务端扇出
// 走 Server.FanOutRaw，两条路共用同一个 Broadcaster。
type NewMessageHandler struct{}

func (NewMessageHandler) Event() string { return EventNewMessage }

func (NewMessageHandler) Handle(ctx *Context, f *EventFrame, c *Client) error {
	p, err := ExtractNewMessagePayload(f)
	if err != nil {
		return errs.WrapMsg(err, "new-message payload")
	}
	if len(p.Chat.Participants) == 0 {
		// 没带参与者列表：没法扇出，静默跳过
		logger.Warnf("[WS] new-message without participants conn=%s chat=%s", c.ConnID, p.Chat.ID)
		return nil
	}
	ctx.S.bcast.FanOutMessage(p, f.Data)
	return nil
}

// ===== typing / stop-typing =====

type TypingHandler struct{}

func (TypingHandler) Event() string { return EventTyping }

func (TypingHandler) Handle(ctx *Context, f *EventFrame, c *Client) error {
	chatID, err := ExtractChatID(f)
	if err != nil {
		return errs.WrapMsg(err, "typing payload")
	}
	ctx.S.bcast.RelayTyping(chatID, c)
	return nil
}

type StopTypingHandler struct{}

func (StopTypingHandler) Event() string { return EventStopTyping }

func (StopTypingHandler) Handle(ctx *Context, f *EventFrame, c *Client) error {
	chatID, err := ExtractChatID(f)
	if err != nil {
		return errs.WrapMsg(err, "stop-typing payload")
	}
	ctx.S.bcast.RelayStopTyping(chatID, c)
	return nil
}
