package service

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	chatmodel "WChat/module/chat/model"
	"WChat/tools/errs"
)

// ===== 发送 =====

// SendMessage 落库并更新会话的 latestMessage。
// 返回填充好的视图（带 chat 和参与者），实时扇出直接用它的 JSON。
func SendMessage(ctx context.Context, selfID, chatID primitive.ObjectID, content string) (*chatmodel.MessageView, error) {
	chat, err := GetChat(ctx, chatID, selfID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	msg := chatmodel.Message{
		ID:        primitive.NewObjectID(),
		Sender:    selfID,
		Chat:      chatID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	msgColl := chatmodel.Message{}.Collection()
	if _, err := msgColl.InsertOne(ctx, msg); err != nil {
		return nil, errs.WrapMsg(err, "insert message")
	}

	chat.LatestMessage = msg.ID
	chat.UpdatedAt = now
	chatColl := chatmodel.Chat{}.Collection()
	if _, err := chatColl.UpdateByID(ctx, chatID, bson.M{
		"$set": bson.M{"latestMessage": msg.ID, "updatedAt": now},
	}); err != nil {
		return nil, errs.WrapMsg(err, "update latest message")
	}

	return populateMessage(ctx, &msg, chat)
}

// ===== 读取 =====

// ListParams 分页参数，page 从 1 开始
type ListParams struct {
	Page  int64
	Limit int64
}

func (p *ListParams) norm() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 || p.Limit > 100 {
		p.Limit = 50
	}
}

// MessagePage 分页出参：messages 按时间正序，翻页按最新往回翻
type MessagePage struct {
	Messages []*chatmodel.MessageView `json:"messages"`
	Total    int64                    `json:"total"`
	Page     int64                    `json:"page"`
	Pages    int64                    `json:"pages"`
}

// ListMessages 倒序取第 page 页（page=1 是最新的一页），返回前翻正
func ListMessages(ctx context.Context, selfID, chatID primitive.ObjectID, p ListParams) (*MessagePage, error) {
	p.norm()
	chat, err := GetChat(ctx, chatID, selfID)
	if err != nil {
		return nil, err
	}

	msgColl := chatmodel.Message{}.Collection()
	total, err := msgColl.CountDocuments(ctx, bson.M{"chat": chatID})
	if err != nil {
		return nil, errs.WrapMsg(err, "count messages")
	}

	cur, err := msgColl.Find(ctx,
		bson.M{"chat": chatID},
		options.Find().
			SetSort(bson.M{"createdAt": -1}).
			SetSkip((p.Page-1)*p.Limit).
			SetLimit(p.Limit))
	if err != nil {
		return nil, errs.WrapMsg(err, "find messages")
	}
	defer cur.Close(ctx)

	var msgs []chatmodel.Message
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, errs.WrapMsg(err, "decode messages")
	}
	// 翻正成时间正序
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}

	senderIDs := make([]primitive.ObjectID, 0, len(msgs))
	for _, m := range msgs {
		senderIDs = append(senderIDs, m.Sender)
	}
	users, err := loadUserMap(ctx, senderIDs)
	if err != nil {
		return nil, err
	}

	chatView, err := populateChat(ctx, chat)
	if err != nil {
		return nil, err
	}

	out := make([]*chatmodel.MessageView, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, &chatmodel.MessageView{
			ID:        m.ID,
			Sender:    users[m.Sender],
			Chat:      chatView,
			Content:   m.Content,
			ReadBy:    m.ReadBy,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		})
	}

	pages := (total + p.Limit - 1) / p.Limit
	return &MessagePage{Messages: out, Total: total, Page: p.Page, Pages: pages}, nil
}

// ===== 已读 =====

// MarkRead 把会话里别人发的消息都标记为我已读
func MarkRead(ctx context.Context, selfID, chatID primitive.ObjectID) (int64, error) {
	if _, err := GetChat(ctx, chatID, selfID); err != nil {
		return 0, err
	}

	res, err := chatmodel.Message{}.Collection().UpdateMany(ctx,
		bson.M{
			"chat":   chatID,
			"sender": bson.M{"$ne": selfID},
			"readBy": bson.M{"$ne": selfID},
		},
		bson.M{
			"$addToSet": bson.M{"readBy": selfID},
			"$set":      bson.M{"updatedAt": time.Now()},
		})
	if err != nil {
		return 0, errs.WrapMsg(err, "mark read")
	}
	return res.ModifiedCount, nil
}

// UnreadSummary 各会话未读条数加总数
type UnreadSummary struct {
	Counts map[string]int64 `json:"counts"`
	Total  int64            `json:"total"`
}

// UnreadCount 每个会话的未读条数（别人发的、readBy 不含我的）
func UnreadCount(ctx context.Context, selfID primitive.ObjectID) (*UnreadSummary, error) {
	chatColl := chatmodel.Chat{}.Collection()
	cur, err := chatColl.Find(ctx, bson.M{"participants": selfID},
		options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, errs.WrapMsg(err, "find my chats")
	}
	defer cur.Close(ctx)

	var chats []chatmodel.Chat
	if err := cur.All(ctx, &chats); err != nil {
		return nil, errs.WrapMsg(err, "decode my chats")
	}
	if len(chats) == 0 {
		return &UnreadSummary{Counts: map[string]int64{}}, nil
	}

	chatIDs := make([]primitive.ObjectID, 0, len(chats))
	for _, ch := range chats {
		chatIDs = append(chatIDs, ch.ID)
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"chat":   bson.M{"$in": chatIDs},
			"sender": bson.M{"$ne": selfID},
			"readBy": bson.M{"$ne": selfID},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$chat",
			"count": bson.M{"$sum": 1},
		}}},
	}
	agg, err := chatmodel.Message{}.Collection().Aggregate(ctx, pipeline)
	if err != nil {
		return nil, errs.WrapMsg(err, "aggregate unread")
	}
	defer agg.Close(ctx)

	var rows []struct {
		ID    primitive.ObjectID `bson:"_id"`
		Count int64              `bson:"count"`
	}
	if err := agg.All(ctx, &rows); err != nil {
		return nil, errs.WrapMsg(err, "decode unread")
	}

	sum := &UnreadSummary{Counts: map[string]int64{}}
	for _, r := range rows {
		sum.Counts[r.ID.Hex()] = r.Count
		sum.Total += r.Count
	}
	return sum, nil
}

// ===== 删除 =====

// DeleteMessage 只有发送者能删。删的刚好是 latestMessage 时回退到
// 剩余消息里最新的一条（没有就清掉）。
func DeleteMessage(ctx context.Context, selfID, messageID primitive.ObjectID) error {
	msgColl := chatmodel.Message{}.Collection()

	var msg chatmodel.Message
	err := msgColl.FindOne(ctx, bson.M{"_id": messageID}).Decode(&msg)
	if err == mongo.ErrNoDocuments {
		return errs.ErrMessageNotFound
	}
	if err != nil {
		return errs.WrapMsg(err, "find message")
	}
	if msg.Sender != selfID {
		return errs.ErrForbidden
	}

	if _, err := msgColl.DeleteOne(ctx, bson.M{"_id": messageID}); err != nil {
		return errs.WrapMsg(err, "delete message")
	}

	chatColl := chatmodel.Chat{}.Collection()
	var chat chatmodel.Chat
	if err := chatColl.FindOne(ctx, bson.M{"_id": msg.Chat}).Decode(&chat); err != nil {
		// 会话没了就没什么可修的
		return nil
	}
	if chat.LatestMessage != messageID {
		return nil
	}

	// latestMessage 修复
	var prev chatmodel.Message
	err = msgColl.FindOne(ctx, bson.M{"chat": msg.Chat},
		options.FindOne().SetSort(bson.M{"createdAt": -1})).Decode(&prev)
	update := bson.M{"$set": bson.M{"updatedAt": time.Now()}}
	if err == mongo.ErrNoDocuments {
		update["$unset"] = bson.M{"latestMessage": ""}
	} else if err != nil {
		return errs.WrapMsg(err, "find previous message")
	} else {
		update["$set"].(bson.M)["latestMessage"] = prev.ID
	}
	if _, err := chatColl.UpdateByID(ctx, chat.ID, update); err != nil {
		return errs.WrapMsg(err, "repair latest message")
	}
	return nil
}

// ===== 填充 =====

func populateMessage(ctx context.Context, msg *chatmodel.Message, chat *chatmodel.Chat) (*chatmodel.MessageView, error) {
	users, err := loadUserMap(ctx, append([]primitive.ObjectID{msg.Sender}, chat.Participants...))
	if err != nil {
		return nil, err
	}
	chatView, err := populateChat(ctx, chat)
	if err != nil {
		return nil, err
	}
	return &chatmodel.MessageView{
		ID:        msg.ID,
		Sender:    users[msg.Sender],
		Chat:      chatView,
		Content:   msg.Content,
		ReadBy:    msg.ReadBy,
		CreatedAt: msg.CreatedAt,
		UpdatedAt: msg.UpdatedAt,
	}, nil
}
