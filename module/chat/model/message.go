package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"WChat/service/mgo"
	usermodel "WChat/module/user/model"
)

// Message 消息文档。readBy 记录已读的人，不含发送者。
type Message struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Sender    primitive.ObjectID   `bson:"sender" json:"sender"`
	Chat      primitive.ObjectID   `bson:"chat" json:"chat"`
	Content   string               `bson:"content" json:"content"`
	ReadBy    []primitive.ObjectID `bson:"readBy,omitempty" json:"readBy,omitempty"`
	CreatedAt time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time            `bson:"updatedAt" json:"updatedAt"`
}

func (Message) GetTableName() string {
	return "message"
}

func (m Message) Collection() *mongo.Collection {
	return mgo.GetDB().Collection(m.GetTableName())
}

// MessageView 出参形态：sender 和 chat 已填充
type MessageView struct {
	ID        primitive.ObjectID    `json:"_id"`
	Sender    usermodel.UserSummary `json:"sender"`
	Chat      *ChatView             `json:"chat,omitempty"`
	Content   string                `json:"content"`
	ReadBy    []primitive.ObjectID  `json:"readBy,omitempty"`
	CreatedAt time.Time             `json:"createdAt"`
	UpdatedAt time.Time             `json:"updatedAt"`
}
