package chat

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"WChat/logger"
	"WChat/tools/ids"
	"WChat/tools/safe"
)

// ===== 配置 =====

type ServerConf struct {
	// 写超时、心跳周期、读超时（pongWait 应大于 pingPeriod）
	WriteWait  time.Duration
	PingPeriod time.Duration
	PongWait   time.Duration
	// 单帧最大字节数
	MaxMessageSize int64
	// 每连接发送缓冲
	SendBuffer int
	// 输入指示自动清除
	TypingTTL time.Duration
	// 跨域放行判断，nil 表示全放
	CheckOrigin func(r *http.Request) bool
}

func (c *ServerConf) fillDefaults() {
	if c.WriteWait <= 0 {
		c.WriteWait = 10 * time.Second
	}
	if c.PongWait <= 0 {
		c.PongWait = 60 * time.Second
	}
	if c.PingPeriod <= 0 {
		c.PingPeriod = c.PongWait * 9 / 10
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = 64 * 1024
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = 256
	}
}

// Server 实时网关：连接登记、事件分发、广播投递都挂在这
type Server struct {
	conf  ServerConf
	reg   *ConnManager
	rooms *RoomTable
	bcast *Broadcaster
	disp  *Dispatcher

	upgrader websocket.Upgrader
}

func NewServer(conf ServerConf) *Server {
	conf.fillDefaults()

	reg := NewConnManagerWithConf(ManagerConf{SendBuffer: conf.SendBuffer})
	rooms := NewRoomTable()
	s := &Server{
		conf:  conf,
		reg:   reg,
		rooms: rooms,
		bcast: NewBroadcaster(reg, rooms, BroadcasterConf{TypingTTL: conf.TypingTTL}),
		disp:  NewDispatcher(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     conf.CheckOrigin,
		},
	}
	if s.upgrader.CheckOrigin == nil {
		s.upgrader.CheckOrigin = func(*http.Request) bool { return true }
	}

	s.disp.Register(SetupHandler{})
	s.disp.Register(JoinChatHandler{})
	s.disp.Register(NewMessageHandler{})
	s.disp.Register(TypingHandler{})
	s.disp.Register(StopTypingHandler{})
	return s
}

func (s *Server) Registry() *ConnManager   { return s.reg }
func (s *Server) Rooms() *RoomTable        { return s.rooms }
func (s *Server) Broadcaster() *Broadcaster { return s.bcast }

// FanOutRaw 给 REST 层用的投递口：消息落库后把响应体原样扇出。
// 负载形状不对或缺参与者时静默跳过，HTTP 响应不受影响。
func (s *Server) FanOutRaw(raw []byte) {
	f := &EventFrame{Event: EventNewMessage, Data: json.RawMessage(raw)}
	p, err := ExtractNewMessagePayload(f)
	if err != nil {
		logger.Warnf("[WS] fan-out payload malformed: %v", err)
		return
	}
	if len(p.Chat.Participants) == 0 {
		return
	}
	s.bcast.FanOutMessage(p, f.Data)
}

// ===== 接入 =====

// HandleWS gin 路由入口：升级、登记、起读写泵
func (s *Server) HandleWS(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Errorf("[WS] upgrade failed from %s: %v", c.ClientIP(), err)
		return
	}

	connID := ids.GenerateString()
	client := s.reg.AddConn(conn, connID)
	logger.Infof("[WS] connected conn=%s remote=%s", connID, client.Remote)

	safe.SafeGoNamed("ws-write-"+connID, func() { s.writePump(client) })
	safe.SafeGoNamed("ws-read-"+connID, func() { s.readPump(client) })
}

func (s *Server) readPump(c *Client) {
	defer s.teardown(c)

	c.Conn.SetReadLimit(s.conf.MaxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(s.conf.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		s.reg.Touch(c.ConnID)
		return c.Conn.SetReadDeadline(time.Now().Add(s.conf.PongWait))
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warnf("[WS] read error conn=%s: %v", c.ConnID, err)
			}
			return
		}
		frame, err := ParseFrameJSON(data)
		if err != nil {
			// 坏帧只记日志不踢人
			logger.Warnf("[WS] bad frame conn=%s: %v", c.ConnID, err)
			continue
		}
		if err := s.disp.Dispatch(&Context{S: s}, frame, c); err != nil {
			logger.Warnf("[WS] handle %s conn=%s: %v", frame.Event, c.ConnID, err)
		}
	}
}

func (s *Server) writePump(c *Client) {
	ticker := time.NewTicker(s.conf.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case data, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(s.conf.WriteWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(s.conf.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.Done():
			return
		}
	}
}

// teardown 断开清理：摘房间、灭掉输入指示、下线并通知
func (s *Server) teardown(c *Client) {
	s.rooms.DropClient(c)
	s.bcast.CancelTyping(c)

	userID, removed := s.reg.Unregister(c.ConnID)
	c.Close()

	if removed {
		logger.Infof("[WS] disconnected conn=%s user=%s", c.ConnID, userID)
	}
	// 只有摘掉了在线用户才广播；未 setup 的连接和未知连接静默
	if removed && userID != "" {
		s.bcast.BroadcastOnlineUsers()
	}
}
