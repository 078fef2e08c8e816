package service

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"WChat/global/config"
	"WChat/logger"
	usermodel "WChat/module/user/model"
	"WChat/tools/errs"
	jwtlib "WChat/tools/security"
)

// SessionTTL 会话 cookie 和 JWT 的有效期
const SessionTTL = 30 * 24 * time.Hour

// RegisterParams 注册入参
type RegisterParams struct {
	Username string
	Email    string
	Password string
	Avatar   string
}

// Register 建号并签发会话令牌。邮箱、用户名都唯一，邮箱统一小写入库。
func Register(ctx context.Context, in RegisterParams) (*usermodel.User, string, error) {
	coll := usermodel.User{}.Collection()
	in.Email = strings.ToLower(in.Email)

	count, err := coll.CountDocuments(ctx, bson.M{"email": in.Email})
	if err != nil {
		return nil, "", errs.WrapMsg(err, "count by email")
	}
	if count > 0 {
		return nil, "", errs.ErrDuplicateEmail
	}
	count, err = coll.CountDocuments(ctx, bson.M{"username": in.Username})
	if err != nil {
		return nil, "", errs.WrapMsg(err, "count by username")
	}
	if count > 0 {
		return nil, "", errs.ErrDuplicateName
	}

	hashed, err := jwtlib.HashPassword(in.Password)
	if err != nil {
		return nil, "", errs.WrapMsg(err, "hash password")
	}

	now := time.Now()
	user := usermodel.User{
		ID:        primitive.NewObjectID(),
		Username:  in.Username,
		Email:     in.Email,
		Password:  hashed,
		Avatar:    in.Avatar,
		Status:    usermodel.StatusOnline,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := coll.InsertOne(ctx, user); err != nil {
		return nil, "", errs.WrapMsg(err, "insert user")
	}

	token, _, err := jwtlib.Generate(sessionOpts(), user.ID.Hex())
	if err != nil {
		return nil, "", errs.WrapMsg(err, "generate token")
	}
	logger.Infof("[Auth] register user=%s session=%s", user.ID.Hex(), jwtlib.HashToken(token))
	return &user, token, nil
}

// Login 校验密码并签发会话令牌，顺手把状态标成在线。
// 账号不存在和密码不对返回同一个错误，不给穷举的机会。
func Login(ctx context.Context, email, password string) (*usermodel.User, string, error) {
	coll := usermodel.User{}.Collection()

	var user usermodel.User
	err := coll.FindOne(ctx, bson.M{"email": strings.ToLower(email)}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, "", errs.ErrBadCredentials
	}
	if err != nil {
		return nil, "", errs.WrapMsg(err, "find by email")
	}
	if !jwtlib.ComparePassword(password, user.Password) {
		return nil, "", errs.ErrBadCredentials
	}

	now := time.Now()
	_, err = coll.UpdateByID(ctx, user.ID, bson.M{
		"$set": bson.M{"status": usermodel.StatusOnline, "updatedAt": now},
	})
	if err != nil {
		return nil, "", errs.WrapMsg(err, "mark online")
	}
	user.Status = usermodel.StatusOnline

	token, _, err := jwtlib.Generate(sessionOpts(), user.ID.Hex())
	if err != nil {
		return nil, "", errs.WrapMsg(err, "generate token")
	}
	logger.Infof("[Auth] login user=%s session=%s", user.ID.Hex(), jwtlib.HashToken(token))
	return &user, token, nil
}

// Logout 标记离线并记录最后在线时间
func Logout(ctx context.Context, userID primitive.ObjectID) error {
	now := time.Now()
	_, err := usermodel.User{}.Collection().UpdateByID(ctx, userID, bson.M{
		"$set": bson.M{"status": usermodel.StatusOffline, "lastSeen": now, "updatedAt": now},
	})
	if err != nil {
		return errs.WrapMsg(err, "mark offline")
	}
	return nil
}

func sessionOpts() jwtlib.Options {
	return jwtlib.Options{Secret: []byte(config.GetJwtSecret()), TTL: SessionTTL}
}
