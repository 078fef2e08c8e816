package chat

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoomJoinIdempotent(t *testing.T) {
	req := require.New(t)
	rt := NewRoomTable()

	c := NewTestClient("conn-1", 4)
	rt.Join("room-1", c)
	rt.Join("room-1", c)

	req.Len(rt.Members("room-1"), 1)
	req.True(rt.InRoom("room-1", c))
}

func TestRoomBroadcastExcludesSender(t *testing.T) {
	req := require.New(t)
	rt := NewRoomTable()

	a := NewTestClient("conn-a", 4)
	b := NewTestClient("conn-b", 4)
	c := NewTestClient("conn-c", 4)
	rt.Join("room-1", a)
	rt.Join("room-1", b)
	rt.Join("room-1", c)

	n := rt.Broadcast("room-1", b, []byte("hello"))
	req.Equal(2, n)

	req.Len(a.Send, 1)
	req.Len(b.Send, 0)
	req.Len(c.Send, 1)
}

func TestRoomBroadcastUnknownRoom(t *testing.T) {
	req := require.New(t)
	rt := NewRoomTable()
	req.Zero(rt.Broadcast("no-such-room", nil, []byte("x")))
}

func TestDropClientLeavesAllRooms(t *testing.T) {
	req := require.New(t)
	rt := NewRoomTable()

	a := NewTestClient("conn-a", 4)
	b := NewTestClient("conn-b", 4)
	rt.Join("room-1", a)
	rt.Join("room-2", a)
	rt.Join("room-1", b)

	rt.DropClient(a)

	req.False(rt.InRoom("room-1", a))
	req.False(rt.InRoom("room-2", a))
	req.True(rt.InRoom("room-1", b))

	// 再 Drop 一次不炸
	rt.DropClient(a)
}
