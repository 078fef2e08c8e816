package chat

import (
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ===== 配置 =====

type ManagerConf struct {
	SendBuffer int              // 每连接发送队列长度（<=0 用默认 256）
	Clock      func() time.Time // 可注入时钟（单测用）；nil => time.Now
}

func (c *ManagerConf) norm() {
	if c.Clock == nil {
		c.Clock = time.Now
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = 256
	}
}

// ===== 数据结构 =====

// Client 一条活跃连接。UserID 在 setup 之前为空（IDENTIFIED 之前不投递）。
type Client struct {
	ConnID string
	UserID string

	Conn   *websocket.Conn // 单测里可以为 nil，只用 Send 通道
	Remote net.Addr

	Send chan []byte // 每连接独立发送队列，由写协程消费

	CreatedAt time.Time
	Heartbeat time.Time

	closeOnce sync.Once
	done      chan struct{}
}

func newClient(connID string, conn *websocket.Conn, buf int, now time.Time) *Client {
	c := &Client{
		ConnID:    connID,
		Conn:      conn,
		Send:      make(chan []byte, buf),
		CreatedAt: now,
		Heartbeat: now,
		done:      make(chan struct{}),
	}
	if conn != nil {
		c.Remote = conn.RemoteAddr()
	}
	return c
}

// Push 非阻塞入队；队列满或连接已关闭时丢弃（best-effort，无重试）
func (c *Client) Push(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

// Close 幂等关闭：通知写协程退出并关掉底层 socket
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.Conn != nil {
			_ = c.Conn.Close()
		}
	})
}

func (c *Client) Done() <-chan struct{} { return c.done }

// ConnManager 在线注册表：进程内、不持久化，重启后由客户端重连重建。
// byUser 每用户只保留一条连接（后来的 setup 顶掉前一条）；
// byConn 是 connID 反向索引，下线 O(1)，同时兜住重复断开。
type ConnManager struct {
	mu     sync.RWMutex
	byConn map[string]*Client // 所有活跃连接（含未 setup 的）
	byUser map[string]*Client // userID -> 唯一连接

	conf ManagerConf
}

// ===== 构造/关闭 =====

func NewConnManager() *ConnManager {
	return NewConnManagerWithConf(ManagerConf{})
}

func NewConnManagerWithConf(conf ManagerConf) *ConnManager {
	conf.norm()
	return &ConnManager{
		byConn: make(map[string]*Client),
		byUser: make(map[string]*Client),
		conf:   conf,
	}
}

func (m *ConnManager) Close() {
	m.mu.Lock()
	conns := make([]*Client, 0, len(m.byConn))
	for _, c := range m.byConn {
		conns = append(conns, c)
	}
	m.byConn = map[string]*Client{}
	m.byUser = map[string]*Client{}
	m.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}

// ===== 连接阶段 =====

// AddConn 连接建立即登记（还没有 userID）
func (m *ConnManager) AddConn(conn *websocket.Conn, connID string) *Client {
	now := m.conf.Clock()
	c := newClient(connID, conn, m.conf.SendBuffer, now)
	m.mu.Lock()
	m.byConn[connID] = c
	m.mu.Unlock()
	return c
}

// AddClient 登记一个外部构造好的 Client（单测用，不需要真实 socket）
func (m *ConnManager) AddClient(c *Client) {
	m.mu.Lock()
	m.byConn[c.ConnID] = c
	m.mu.Unlock()
}

// NewTestClient 构造一个不带 socket 的 Client，单测从 Send 通道读推送
func NewTestClient(connID string, buf int) *Client {
	if buf <= 0 {
		buf = 256
	}
	return newClient(connID, nil, buf, time.Now())
}

// ===== 注册表操作 =====

// Register 把连接绑定到用户（setup 成功后调用）。
// 同一 userID 再次 Register 会顶掉旧连接并返回它，由调用方负责关闭；
// 幂等：同一条连接重复 Register 返回 nil。
func (m *ConnManager) Register(userID string, c *Client) (replaced *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c.UserID = userID
	if old, ok := m.byUser[userID]; ok && old != c {
		replaced = old
		delete(m.byConn, old.ConnID)
	}
	m.byUser[userID] = c
	m.byConn[c.ConnID] = c
	return replaced
}

// Unregister 按 connID 下线。未知 connID 静默无事（支持重复断开）。
// 返回该连接归属的 userID（未 setup 的连接返回 ""）。
func (m *ConnManager) Unregister(connID string) (userID string, removed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.byConn[connID]
	if !ok {
		return "", false
	}
	delete(m.byConn, connID)
	if c.UserID != "" {
		if cur, ok := m.byUser[c.UserID]; ok && cur == c {
			delete(m.byUser, c.UserID)
			return c.UserID, true
		}
	}
	return "", true
}

// ListOnline 当前在线用户ID集合，顺序不保证
func (m *ConnManager) ListOnline() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.byUser))
	for uid := range m.byUser {
		out = append(out, uid)
	}
	return out
}

// GetUser 取某用户当前连接
func (m *ConnManager) GetUser(userID string) (*Client, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.byUser[userID]
	return c, ok
}

// GetConn 按 connID 取连接
func (m *ConnManager) GetConn(connID string) (*Client, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.byConn[connID]
	return c, ok
}

// Conns 所有活跃连接快照（含未 setup 的；online-users 全量广播用）
func (m *ConnManager) Conns() []*Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Client, 0, len(m.byConn))
	for _, c := range m.byConn {
		out = append(out, c)
	}
	return out
}

// CountConns 活跃连接数
func (m *ConnManager) CountConns() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byConn)
}

// CountOnline 已标识用户数
func (m *ConnManager) CountOnline() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byUser)
}

// Touch 刷新心跳时间（pong 回调里调用）
func (m *ConnManager) Touch(connID string) {
	now := m.conf.Clock()
	m.mu.Lock()
	if c, ok := m.byConn[connID]; ok {
		c.Heartbeat = now
	}
	m.mu.Unlock()
}
