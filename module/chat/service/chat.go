package service

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	chatmodel "WChat/module/chat/model"
	usermodel "WChat/module/user/model"
	"WChat/tools/errs"
)

// ===== 会话 =====

// AccessChat 打开和某人的单聊：已有就返回，没有就建。
// 两个人之间最多一条单聊，参与者顺序无关。created 区分 200/201。
func AccessChat(ctx context.Context, selfID, otherID primitive.ObjectID) (view *chatmodel.ChatView, created bool, err error) {
	if selfID == otherID {
		return nil, false, errs.ErrBadRequest.WithDetail("不能和自己建会话")
	}
	userColl := usermodel.User{}.Collection()
	count, err := userColl.CountDocuments(ctx, bson.M{"_id": otherID})
	if err != nil {
		return nil, false, errs.WrapMsg(err, "check other user")
	}
	if count == 0 {
		return nil, false, errs.ErrUserNotFound
	}

	coll := chatmodel.Chat{}.Collection()
	filter := bson.M{
		"isGroupChat":  false,
		"participants": bson.M{"$all": []primitive.ObjectID{selfID, otherID}},
	}

	var chat chatmodel.Chat
	err = coll.FindOne(ctx, filter).Decode(&chat)
	if err == mongo.ErrNoDocuments {
		now := time.Now()
		chat = chatmodel.Chat{
			ID:           primitive.NewObjectID(),
			Participants: []primitive.ObjectID{selfID, otherID},
			IsGroupChat:  false,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if _, err := coll.InsertOne(ctx, chat); err != nil {
			return nil, false, errs.WrapMsg(err, "create chat")
		}
		created = true
	} else if err != nil {
		return nil, false, errs.WrapMsg(err, "find chat")
	}

	view, err = populateChat(ctx, &chat)
	return view, created, err
}

// FetchChats 我参与的全部会话，最近更新在前
func FetchChats(ctx context.Context, selfID primitive.ObjectID) ([]*chatmodel.ChatView, error) {
	coll := chatmodel.Chat{}.Collection()

	cur, err := coll.Find(ctx,
		bson.M{"participants": selfID},
		options.Find().SetSort(bson.M{"updatedAt": -1}))
	if err != nil {
		return nil, errs.WrapMsg(err, "find chats")
	}
	defer cur.Close(ctx)

	var chats []chatmodel.Chat
	if err := cur.All(ctx, &chats); err != nil {
		return nil, errs.WrapMsg(err, "decode chats")
	}
	return populateChats(ctx, chats)
}

// GetChat 带参与者校验的单条读取
func GetChat(ctx context.Context, chatID, selfID primitive.ObjectID) (*chatmodel.Chat, error) {
	var chat chatmodel.Chat
	err := chatmodel.Chat{}.Collection().FindOne(ctx, bson.M{"_id": chatID}).Decode(&chat)
	if err == mongo.ErrNoDocuments {
		return nil, errs.ErrChatNotFound
	}
	if err != nil {
		return nil, errs.WrapMsg(err, "find chat")
	}
	if !chat.HasParticipant(selfID) {
		return nil, errs.ErrNotParticipant
	}
	return &chat, nil
}

// ===== 群聊 =====

// CreateGroup 建群：除自己外至少两人，建群人是群主
func CreateGroup(ctx context.Context, selfID primitive.ObjectID, name string, userIDs []primitive.ObjectID) (*chatmodel.ChatView, error) {
	members := dedupeIDs(append(userIDs, selfID))
	if len(members) < 3 {
		return nil, errs.ErrBadRequest.WithDetail("群聊至少需要三名成员")
	}

	now := time.Now()
	chat := chatmodel.Chat{
		ID:           primitive.NewObjectID(),
		Participants: members,
		IsGroupChat:  true,
		GroupName:    name,
		GroupAdmin:   selfID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	coll := chatmodel.Chat{}.Collection()
	if _, err := coll.InsertOne(ctx, chat); err != nil {
		return nil, errs.WrapMsg(err, "create group")
	}
	return populateChat(ctx, &chat)
}

// RenameGroup 改群名，仅群主
func RenameGroup(ctx context.Context, chatID, selfID primitive.ObjectID, name string) (*chatmodel.ChatView, error) {
	chat, err := requireGroupAdmin(ctx, chatID, selfID)
	if err != nil {
		return nil, err
	}

	chat.GroupName = name
	chat.UpdatedAt = time.Now()
	_, err = chatmodel.Chat{}.Collection().UpdateByID(ctx, chatID, bson.M{
		"$set": bson.M{"groupName": name, "updatedAt": chat.UpdatedAt},
	})
	if err != nil {
		return nil, errs.WrapMsg(err, "rename group")
	}
	return populateChat(ctx, chat)
}

// AddToGroup 拉人进群，仅群主；重复拉人报错
func AddToGroup(ctx context.Context, chatID, selfID, userID primitive.ObjectID) (*chatmodel.ChatView, error) {
	chat, err := requireGroupAdmin(ctx, chatID, selfID)
	if err != nil {
		return nil, err
	}
	if chat.HasParticipant(userID) {
		return nil, errs.ErrBadRequest.WithDetail("该用户已在群里")
	}

	now := time.Now()
	_, err = chatmodel.Chat{}.Collection().UpdateByID(ctx, chatID, bson.M{
		"$addToSet": bson.M{"participants": userID},
		"$set":      bson.M{"updatedAt": now},
	})
	if err != nil {
		return nil, errs.WrapMsg(err, "add to group")
	}
	chat.Participants = append(chat.Participants, userID)
	chat.UpdatedAt = now
	return populateChat(ctx, chat)
}

// RemoveFromGroup 踢人或退群：群主能踢别人，普通成员只能移除自己；
// 群主不能把自己移出去（先转让 make-admin）
func RemoveFromGroup(ctx context.Context, chatID, selfID, userID primitive.ObjectID) (*chatmodel.ChatView, error) {
	chat, err := GetChat(ctx, chatID, selfID)
	if err != nil {
		return nil, err
	}
	if !chat.IsGroupChat {
		return nil, errs.ErrBadRequest.WithDetail("单聊不能移除成员")
	}
	if selfID != userID && chat.GroupAdmin != selfID {
		return nil, errs.ErrNotGroupAdmin
	}
	if chat.GroupAdmin == selfID && selfID == userID {
		return nil, errs.ErrBadRequest.WithDetail("群主需要先转让群再退出")
	}
	if !chat.HasParticipant(userID) {
		return nil, errs.ErrUserNotFound
	}

	now := time.Now()
	_, err = chatmodel.Chat{}.Collection().UpdateByID(ctx, chatID, bson.M{
		"$pull": bson.M{"participants": userID},
		"$set":  bson.M{"updatedAt": now},
	})
	if err != nil {
		return nil, errs.WrapMsg(err, "remove from group")
	}

	kept := chat.Participants[:0]
	for _, p := range chat.Participants {
		if p != userID {
			kept = append(kept, p)
		}
	}
	chat.Participants = kept
	chat.UpdatedAt = now
	return populateChat(ctx, chat)
}

// MakeAdmin 转让群主，新群主必须已是成员
func MakeAdmin(ctx context.Context, chatID, selfID, userID primitive.ObjectID) (*chatmodel.ChatView, error) {
	chat, err := requireGroupAdmin(ctx, chatID, selfID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(userID) {
		return nil, errs.ErrBadRequest.WithDetail("该用户不在群里")
	}

	now := time.Now()
	_, err = chatmodel.Chat{}.Collection().UpdateByID(ctx, chatID, bson.M{
		"$set": bson.M{"groupAdmin": userID, "updatedAt": now},
	})
	if err != nil {
		return nil, errs.WrapMsg(err, "make admin")
	}
	chat.GroupAdmin = userID
	chat.UpdatedAt = now
	return populateChat(ctx, chat)
}

func requireGroupAdmin(ctx context.Context, chatID, selfID primitive.ObjectID) (*chatmodel.Chat, error) {
	chat, err := GetChat(ctx, chatID, selfID)
	if err != nil {
		return nil, err
	}
	if !chat.IsGroupChat {
		return nil, errs.ErrBadRequest.WithDetail("不是群聊")
	}
	if chat.GroupAdmin != selfID {
		return nil, errs.ErrNotGroupAdmin
	}
	return chat, nil
}

// ===== 填充 =====

// populateChat 把 participants / latestMessage 的 ID 换成文档
func populateChat(ctx context.Context, chat *chatmodel.Chat) (*chatmodel.ChatView, error) {
	views, err := populateChats(ctx, []chatmodel.Chat{*chat})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

func populateChats(ctx context.Context, chats []chatmodel.Chat) ([]*chatmodel.ChatView, error) {
	userIDs := make([]primitive.ObjectID, 0)
	msgIDs := make([]primitive.ObjectID, 0)
	for _, ch := range chats {
		userIDs = append(userIDs, ch.Participants...)
		if !ch.LatestMessage.IsZero() {
			msgIDs = append(msgIDs, ch.LatestMessage)
		}
	}

	users, err := loadUserMap(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	msgs, err := loadMessageMap(ctx, msgIDs, users)
	if err != nil {
		return nil, err
	}

	out := make([]*chatmodel.ChatView, 0, len(chats))
	for _, ch := range chats {
		view := &chatmodel.ChatView{
			ID:          ch.ID,
			IsGroupChat: ch.IsGroupChat,
			GroupName:   ch.GroupName,
			GroupAdmin:  ch.GroupAdmin,
			CreatedAt:   ch.CreatedAt,
			UpdatedAt:   ch.UpdatedAt,
		}
		view.Participants = make([]usermodel.UserSummary, 0, len(ch.Participants))
		for _, pid := range ch.Participants {
			if u, ok := users[pid]; ok {
				view.Participants = append(view.Participants, u)
			}
		}
		if m, ok := msgs[ch.LatestMessage]; ok {
			view.LatestMessage = m
		}
		out = append(out, view)
	}
	return out, nil
}

func loadUserMap(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]usermodel.UserSummary, error) {
	out := map[primitive.ObjectID]usermodel.UserSummary{}
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := usermodel.User{}.Collection().Find(ctx,
		bson.M{"_id": bson.M{"$in": dedupeIDs(ids)}},
		options.Find().SetProjection(usermodel.SummaryProjection))
	if err != nil {
		return nil, errs.WrapMsg(err, "load participants")
	}
	defer cur.Close(ctx)

	var sums []usermodel.UserSummary
	if err := cur.All(ctx, &sums); err != nil {
		return nil, errs.WrapMsg(err, "decode participants")
	}
	for _, s := range sums {
		out[s.ID] = s
	}
	return out, nil
}

func loadMessageMap(ctx context.Context, ids []primitive.ObjectID, users map[primitive.ObjectID]usermodel.UserSummary) (map[primitive.ObjectID]*chatmodel.MessageView, error) {
	out := map[primitive.ObjectID]*chatmodel.MessageView{}
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := chatmodel.Message{}.Collection().Find(ctx, bson.M{"_id": bson.M{"$in": dedupeIDs(ids)}})
	if err != nil {
		return nil, errs.WrapMsg(err, "load latest messages")
	}
	defer cur.Close(ctx)

	var msgs []chatmodel.Message
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, errs.WrapMsg(err, "decode latest messages")
	}

	// latestMessage 的发送者可能不在参与者集合里（已被移出群），补一次查询
	missing := make([]primitive.ObjectID, 0)
	for _, m := range msgs {
		if _, ok := users[m.Sender]; !ok {
			missing = append(missing, m.Sender)
		}
	}
	if len(missing) > 0 {
		extra, err := loadUserMap(ctx, missing)
		if err != nil {
			return nil, err
		}
		for id, u := range extra {
			users[id] = u
		}
	}

	for _, m := range msgs {
		out[m.ID] = &chatmodel.MessageView{
			ID:        m.ID,
			Sender:    users[m.Sender],
			Content:   m.Content,
			ReadBy:    m.ReadBy,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		}
	}
	return out, nil
}

func dedupeIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	seen := map[primitive.ObjectID]struct{}{}
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
