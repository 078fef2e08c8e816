package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"WChat/service/mgo"
	usermodel "WChat/module/user/model"
)

// Chat 会话文档：单聊两人，群聊多人带群名和群主
type Chat struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Participants  []primitive.ObjectID `bson:"participants" json:"participants"`
	IsGroupChat   bool                 `bson:"isGroupChat" json:"isGroupChat"`
	GroupName     string               `bson:"groupName,omitempty" json:"groupName,omitempty"`
	GroupAdmin    primitive.ObjectID   `bson:"groupAdmin,omitempty" json:"groupAdmin,omitempty"`
	LatestMessage primitive.ObjectID   `bson:"latestMessage,omitempty" json:"latestMessage,omitempty"`
	CreatedAt     time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time            `bson:"updatedAt" json:"updatedAt"`
}

func (Chat) GetTableName() string {
	return "chat"
}

func (c Chat) Collection() *mongo.Collection {
	return mgo.GetDB().Collection(c.GetTableName())
}

// HasParticipant 调用方做参与者校验用
func (c *Chat) HasParticipant(userID primitive.ObjectID) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// ChatView 出参形态：participants/latestMessage 已填充
type ChatView struct {
	ID            primitive.ObjectID      `json:"_id"`
	Participants  []usermodel.UserSummary `json:"participants"`
	IsGroupChat   bool                    `json:"isGroupChat"`
	GroupName     string                  `json:"groupName,omitempty"`
	GroupAdmin    primitive.ObjectID      `json:"groupAdmin,omitempty"`
	LatestMessage *MessageView            `json:"latestMessage,omitempty"`
	CreatedAt     time.Time               `json:"createdAt"`
	UpdatedAt     time.Time               `json:"updatedAt"`
}
