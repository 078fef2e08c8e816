package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"WChat/service/mgo"
)

// ===== 状态 =====

const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// ===== 模型 =====

// User 用户文档。username/email 唯一（email 入库前转小写），password 永远不出 JSON。
type User struct {
	ID             primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Username       string               `bson:"username" json:"username"`
	Email          string               `bson:"email" json:"email"`
	Password       string               `bson:"password" json:"-"`
	Avatar         string               `bson:"avatar,omitempty" json:"avatar,omitempty"`
	Status         string               `bson:"status" json:"status"`
	LastSeen       time.Time            `bson:"lastSeen,omitempty" json:"lastSeen,omitempty"`
	Friends        []primitive.ObjectID `bson:"friends,omitempty" json:"friends,omitempty"`
	FriendRequests []primitive.ObjectID `bson:"friendRequests,omitempty" json:"friendRequests,omitempty"`
	CreatedAt      time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time            `bson:"updatedAt" json:"updatedAt"`
}

func (User) GetTableName() string {
	return "user"
}

func (u User) Collection() *mongo.Collection {
	return mgo.GetDB().Collection(u.GetTableName())
}

// HasFriend 好友关系校验
func (u *User) HasFriend(id primitive.ObjectID) bool {
	for _, f := range u.Friends {
		if f == id {
			return true
		}
	}
	return false
}

// HasFriendRequest 是否已有该用户的好友申请
func (u *User) HasFriendRequest(id primitive.ObjectID) bool {
	for _, r := range u.FriendRequests {
		if r == id {
			return true
		}
	}
	return false
}

// UserSummary 列表/嵌套场景用的瘦身投影
type UserSummary struct {
	ID       primitive.ObjectID `bson:"_id" json:"_id"`
	Username string             `bson:"username" json:"username"`
	Email    string             `bson:"email,omitempty" json:"email,omitempty"`
	Avatar   string             `bson:"avatar,omitempty" json:"avatar,omitempty"`
	Status   string             `bson:"status,omitempty" json:"status,omitempty"`
}

// SummaryProjection 查 UserSummary 时统一用这份投影，字段名跟 bson tag 保持一致
var SummaryProjection = bson.M{"username": 1, "email": 1, "avatar": 1, "status": 1}

func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, Email: u.Email, Avatar: u.Avatar, Status: u.Status}
}

// ProfileView GET /users/:id 的出参：好友已填充
type ProfileView struct {
	ID        primitive.ObjectID `json:"_id"`
	Username  string             `json:"username"`
	Email     string             `json:"email"`
	Avatar    string             `json:"avatar,omitempty"`
	Status    string             `json:"status"`
	LastSeen  time.Time          `json:"lastSeen,omitempty"`
	Friends   []UserSummary      `json:"friends"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}
