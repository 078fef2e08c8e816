package model

import (
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// 投影少一个字段，塞进列表/会话里的用户就会缺字段，这里按 bson tag 对齐校验
func TestSummaryProjectionCoversSummaryFields(t *testing.T) {
	req := require.New(t)

	typ := reflect.TypeOf(UserSummary{})
	for i := 0; i < typ.NumField(); i++ {
		tag := strings.Split(typ.Field(i).Tag.Get("bson"), ",")[0]
		req.NotEmpty(tag, "UserSummary 字段 %s 缺 bson tag", typ.Field(i).Name)
		if tag == "_id" {
			continue // _id Mongo 默认返回，不用显式投影
		}
		req.Contains(SummaryProjection, tag, "投影缺字段 %s", tag)
	}
	// 反向：投影里不能出现 UserSummary 没有的字段
	for key := range SummaryProjection {
		found := false
		for i := 0; i < typ.NumField(); i++ {
			if strings.Split(typ.Field(i).Tag.Get("bson"), ",")[0] == key {
				found = true
				break
			}
		}
		req.True(found, "投影字段 %s 在 UserSummary 里不存在", key)
	}
}

func TestSummary(t *testing.T) {
	req := require.New(t)

	u := User{
		ID:       primitive.NewObjectID(),
		Username: "riley",
		Email:    "riley@example.com",
		Password: "hash",
		Avatar:   "a.png",
		Status:   StatusOnline,
	}
	s := u.Summary()
	req.Equal(u.ID, s.ID)
	req.Equal("riley", s.Username)
	req.Equal("riley@example.com", s.Email)
	req.Equal("a.png", s.Avatar)
	req.Equal(StatusOnline, s.Status)
}

func TestHasFriendAndRequest(t *testing.T) {
	req := require.New(t)

	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	u := User{Friends: []primitive.ObjectID{a}, FriendRequests: []primitive.ObjectID{b}}
	req.True(u.HasFriend(a))
	req.False(u.HasFriend(b))
	req.True(u.HasFriendRequest(b))
	req.False(u.HasFriendRequest(a))
}
