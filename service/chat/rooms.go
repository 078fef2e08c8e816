package chat

import "sync"

// RoomTable 房间成员表。房间名要么是 userID（个人收件房间），要么是 chatID（会话房间）。
// 成员关系不持久化，断开即丢，重连后由客户端重新 join。
type RoomTable struct {
	mu       sync.RWMutex
	rooms    map[string]map[*Client]struct{}
	byClient map[*Client]map[string]struct{} // 反向索引：断开时一次清干净
}

func NewRoomTable() *RoomTable {
	return &RoomTable{
		rooms:    make(map[string]map[*Client]struct{}),
		byClient: make(map[*Client]map[string]struct{}),
	}
}

// Join 把连接加入房间；重复 Join 幂等
func (t *RoomTable) Join(room string, c *Client) {
	if room == "" || c == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.rooms[room] == nil {
		t.rooms[room] = make(map[*Client]struct{})
	}
	t.rooms[room][c] = struct{}{}

	if t.byClient[c] == nil {
		t.byClient[c] = make(map[string]struct{})
	}
	t.byClient[c][room] = struct{}{}
}

// DropClient 连接断开：退出其加入的全部房间
func (t *RoomTable) DropClient(c *Client) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for room := range t.byClient[c] {
		if members := t.rooms[room]; members != nil {
			delete(members, c)
			if len(members) == 0 {
				delete(t.rooms, room)
			}
		}
	}
	delete(t.byClient, c)
}

// Members 房间成员快照
func (t *RoomTable) Members(room string) []*Client {
	t.mu.RLock()
	defer t.mu.RUnlock()
	members := t.rooms[room]
	out := make([]*Client, 0, len(members))
	for c := range members {
		out = append(out, c)
	}
	return out
}

// InRoom 连接是否在房间里
func (t *RoomTable) InRoom(room string, c *Client) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.rooms[room][c]
	return ok
}

// Broadcast 把数据推给房间内除 except 外的所有连接（except 可为 nil）
func (t *RoomTable) Broadcast(room string, except *Client, data []byte) int {
	n := 0
	for _, c := range t.Members(room) {
		if c == except {
			continue
		}
		if c.Push(data) {
			n++
		}
	}
	return n
}
