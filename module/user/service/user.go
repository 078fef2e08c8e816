package service

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	usermodel "WChat/module/user/model"
	"WChat/tools/errs"
)

// Search 按用户名或邮箱模糊找人，排除自己，按用户名排序。keyword 为空返回空集。
func Search(ctx context.Context, keyword string, selfID primitive.ObjectID) ([]usermodel.UserSummary, error) {
	if keyword == "" {
		return []usermodel.UserSummary{}, nil
	}

	filter := bson.M{
		"_id": bson.M{"$ne": selfID},
		"$or": []bson.M{
			{"username": bson.M{"$regex": keyword, "$options": "i"}},
			{"email": bson.M{"$regex": keyword, "$options": "i"}},
		},
	}
	opts := options.Find().
		SetProjection(usermodel.SummaryProjection).
		SetSort(bson.M{"username": 1}).
		SetLimit(20)

	cur, err := usermodel.User{}.Collection().Find(ctx, filter, opts)
	if err != nil {
		return nil, errs.WrapMsg(err, "search users")
	}
	defer cur.Close(ctx)

	out := []usermodel.UserSummary{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.WrapMsg(err, "decode users")
	}
	return out, nil
}

// GetByID 按 ID 取用户
func GetByID(ctx context.Context, id primitive.ObjectID) (*usermodel.User, error) {
	var user usermodel.User
	err := usermodel.User{}.Collection().FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, errs.ErrUserNotFound
	}
	if err != nil {
		return nil, errs.WrapMsg(err, "find user")
	}
	return &user, nil
}

// GetProfile 带已填充好友列表的档案
func GetProfile(ctx context.Context, id primitive.ObjectID) (*usermodel.ProfileView, error) {
	user, err := GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	friends, err := loadSummaries(ctx, user.Friends)
	if err != nil {
		return nil, err
	}
	return &usermodel.ProfileView{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Avatar:    user.Avatar,
		Status:    user.Status,
		LastSeen:  user.LastSeen,
		Friends:   friends,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}, nil
}

// UpdateProfileParams 可改字段，零值跳过
type UpdateProfileParams struct {
	Username string
	Avatar   string
}

func UpdateProfile(ctx context.Context, id primitive.ObjectID, in UpdateProfileParams) (*usermodel.User, error) {
	coll := usermodel.User{}.Collection()

	set := bson.M{"updatedAt": time.Now()}
	if in.Username != "" {
		taken, err := coll.CountDocuments(ctx, bson.M{
			"username": in.Username,
			"_id":      bson.M{"$ne": id},
		})
		if err != nil {
			return nil, errs.WrapMsg(err, "check username")
		}
		if taken > 0 {
			return nil, errs.ErrDuplicateName
		}
		set["username"] = in.Username
	}
	if in.Avatar != "" {
		set["avatar"] = in.Avatar
	}

	var user usermodel.User
	err := coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).
		Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, errs.ErrUserNotFound
	}
	if err != nil {
		return nil, errs.WrapMsg(err, "update profile")
	}
	return &user, nil
}

// ===== 好友申请 =====

// RequestFriend 发好友申请：写到对方的 friendRequests
func RequestFriend(ctx context.Context, selfID, targetID primitive.ObjectID) error {
	if selfID == targetID {
		return errs.ErrBadRequest.WithDetail("不能加自己为好友")
	}

	target, err := GetByID(ctx, targetID)
	if err != nil {
		return err
	}
	if target.HasFriend(selfID) {
		return errs.ErrBadRequest.WithDetail("已经是好友")
	}
	if target.HasFriendRequest(selfID) {
		return errs.ErrBadRequest.WithDetail("申请已发送")
	}

	_, err = usermodel.User{}.Collection().UpdateByID(ctx, targetID, bson.M{
		"$addToSet": bson.M{"friendRequests": selfID},
		"$set":      bson.M{"updatedAt": time.Now()},
	})
	if err != nil {
		return errs.WrapMsg(err, "push friend request")
	}
	return nil
}

// AcceptFriend 接受申请：双向建立好友关系并移除申请
func AcceptFriend(ctx context.Context, selfID, requesterID primitive.ObjectID) error {
	self, err := GetByID(ctx, selfID)
	if err != nil {
		return err
	}
	if !self.HasFriendRequest(requesterID) {
		return errs.ErrBadRequest.WithDetail("没有该用户的好友申请")
	}

	coll := usermodel.User{}.Collection()
	now := time.Now()
	if _, err := coll.UpdateByID(ctx, selfID, bson.M{
		"$addToSet": bson.M{"friends": requesterID},
		"$pull":     bson.M{"friendRequests": requesterID},
		"$set":      bson.M{"updatedAt": now},
	}); err != nil {
		return errs.WrapMsg(err, "accept friend")
	}
	if _, err := coll.UpdateByID(ctx, requesterID, bson.M{
		"$addToSet": bson.M{"friends": selfID},
		"$set":      bson.M{"updatedAt": now},
	}); err != nil {
		return errs.WrapMsg(err, "accept friend reverse")
	}
	return nil
}

// RejectFriend 拒绝申请：只移除申请
func RejectFriend(ctx context.Context, selfID, requesterID primitive.ObjectID) error {
	self, err := GetByID(ctx, selfID)
	if err != nil {
		return err
	}
	if !self.HasFriendRequest(requesterID) {
		return errs.ErrBadRequest.WithDetail("没有该用户的好友申请")
	}

	_, err = usermodel.User{}.Collection().UpdateByID(ctx, selfID, bson.M{
		"$pull": bson.M{"friendRequests": requesterID},
		"$set":  bson.M{"updatedAt": time.Now()},
	})
	if err != nil {
		return errs.WrapMsg(err, "reject friend")
	}
	return nil
}

// ListFriendRequests 待处理申请（填充）
func ListFriendRequests(ctx context.Context, selfID primitive.ObjectID) ([]usermodel.UserSummary, error) {
	self, err := GetByID(ctx, selfID)
	if err != nil {
		return nil, err
	}
	return loadSummaries(ctx, self.FriendRequests)
}

// ===== 好友 =====

// RemoveFriend 双向解除
func RemoveFriend(ctx context.Context, selfID, friendID primitive.ObjectID) error {
	coll := usermodel.User{}.Collection()
	now := time.Now()

	if _, err := coll.UpdateByID(ctx, selfID, bson.M{
		"$pull": bson.M{"friends": friendID},
		"$set":  bson.M{"updatedAt": now},
	}); err != nil {
		return errs.WrapMsg(err, "remove friend")
	}
	if _, err := coll.UpdateByID(ctx, friendID, bson.M{
		"$pull": bson.M{"friends": selfID},
		"$set":  bson.M{"updatedAt": now},
	}); err != nil {
		return errs.WrapMsg(err, "remove friend reverse")
	}
	return nil
}

// ListFriends 好友列表（填充）
func ListFriends(ctx context.Context, selfID primitive.ObjectID) ([]usermodel.UserSummary, error) {
	self, err := GetByID(ctx, selfID)
	if err != nil {
		return nil, err
	}
	return loadSummaries(ctx, self.Friends)
}

func loadSummaries(ctx context.Context, ids []primitive.ObjectID) ([]usermodel.UserSummary, error) {
	if len(ids) == 0 {
		return []usermodel.UserSummary{}, nil
	}
	cur, err := usermodel.User{}.Collection().Find(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(usermodel.SummaryProjection).SetSort(bson.M{"username": 1}))
	if err != nil {
		return nil, errs.WrapMsg(err, "load users")
	}
	defer cur.Close(ctx)

	out := []usermodel.UserSummary{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.WrapMsg(err, "decode users")
	}
	return out, nil
}
