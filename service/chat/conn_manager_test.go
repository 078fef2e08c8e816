package chat

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegisterAndListOnline(t *testing.T) {
	req := require.New(t)
	m := NewConnManager()

	c1 := NewTestClient("conn-1", 4)
	c2 := NewTestClient("conn-2", 4)
	m.AddClient(c1)
	m.AddClient(c2)

	req.Empty(m.ListOnline())

	req.Nil(m.Register("user-a", c1))
	req.Nil(m.Register("user-b", c2))

	online := m.ListOnline()
	req.Len(online, 2)
	req.ElementsMatch([]string{"user-a", "user-b"}, online)

	got, ok := m.GetUser("user-a")
	req.True(ok)
	req.Same(c1, got)
}

func TestRegisterLastSetupWins(t *testing.T) {
	req := require.New(t)
	m := NewConnManager()

	c1 := NewTestClient("conn-1", 4)
	c2 := NewTestClient("conn-2", 4)
	m.AddClient(c1)
	m.AddClient(c2)

	req.Nil(m.Register("user-a", c1))
	replaced := m.Register("user-a", c2)
	req.Same(c1, replaced)

	// 在线集合不膨胀，用户指向新连接
	req.Equal([]string{"user-a"}, m.ListOnline())
	got, ok := m.GetUser("user-a")
	req.True(ok)
	req.Same(c2, got)

	// 被顶掉的连接已经不在连接表里
	_, ok = m.GetConn("conn-1")
	req.False(ok)
}

func TestRegisterSameConnIdempotent(t *testing.T) {
	req := require.New(t)
	m := NewConnManager()

	c1 := NewTestClient("conn-1", 4)
	m.AddClient(c1)

	req.Nil(m.Register("user-a", c1))
	req.Nil(m.Register("user-a", c1))
	req.Equal(1, m.CountOnline())
	req.Equal(1, m.CountConns())
}

func TestUnregisterSequence(t *testing.T) {
	req := require.New(t)
	m := NewConnManager()

	c1 := NewTestClient("conn-1", 4)
	m.AddClient(c1)
	m.Register("user-a", c1)

	uid, removed := m.Unregister("conn-1")
	req.True(removed)
	req.Equal("user-a", uid)
	req.Empty(m.ListOnline())

	// 重复断开静默
	uid, removed = m.Unregister("conn-1")
	req.False(removed)
	req.Empty(uid)
}

func TestUnregisterUnknownConnNoOp(t *testing.T) {
	req := require.New(t)
	m := NewConnManager()

	uid, removed := m.Unregister("never-seen")
	req.False(removed)
	req.Empty(uid)
	req.Zero(m.CountConns())
}

func TestUnregisterStaleConnKeepsNewSession(t *testing.T) {
	req := require.New(t)
	m := NewConnManager()

	c1 := NewTestClient("conn-1", 4)
	c2 := NewTestClient("conn-2", 4)
	m.AddClient(c1)
	m.AddClient(c2)

	m.Register("user-a", c1)
	m.Register("user-a", c2)

	// 旧连接迟到的断开不能把新会话踢下线
	_, removed := m.Unregister("conn-1")
	req.False(removed)
	req.Equal([]string{"user-a"}, m.ListOnline())
}

func TestUnregisterPreSetupConn(t *testing.T) {
	req := require.New(t)
	m := NewConnManager()

	c1 := NewTestClient("conn-1", 4)
	m.AddClient(c1)

	uid, removed := m.Unregister("conn-1")
	req.True(removed)
	req.Empty(uid) // 没做过 setup，不归属任何用户
}

func TestPushDropsWhenFullOrClosed(t *testing.T) {
	req := require.New(t)
	c := NewTestClient("conn-1", 1)

	req.True(c.Push([]byte("one")))
	req.False(c.Push([]byte("two"))) // 队列满，丢弃不阻塞

	c.Close()
	req.False(c.Push([]byte("three")))
	c.Close() // 幂等
}
