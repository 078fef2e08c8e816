package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"WChat/middleware"
	midsec "WChat/middleware/security"
	"WChat/module/user/service"
	"WChat/tools/errs"
)

// HandlerSearch GET /api/users?search=xxx
func HandlerSearch(c *gin.Context) {
	me := midsec.CurrentUser(c)
	users, err := service.Search(c.Request.Context(), c.Query("search"), me.ID)
	if err != nil {
		middleware.FailWith(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// HandlerGetUser GET /api/users/:id 档案（好友已填充）
func HandlerGetUser(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		middleware.FailWith(c, errs.ErrUserNotFound)
		return
	}
	profile, err := service.GetProfile(c.Request.Context(), id)
	if err != nil {
		middleware.FailWith(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

type updateProfileReq struct {
	Username string `json:"username" binding:"omitempty,min=2,max=50"`
	Avatar   string `json:"avatar"`
}

// HandlerUpdateProfile PUT /api/users/profile
func HandlerUpdateProfile(c *gin.Context) {
	var req updateProfileReq
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.FailWith(c, errs.ErrBadRequest.WithDetail(err.Error()))
		return
	}
	me := midsec.CurrentUser(c)
	user, err := service.UpdateProfile(c.Request.Context(), me.ID,
		service.UpdateProfileParams{Username: req.Username, Avatar: req.Avatar})
	if err != nil {
		middleware.FailWith(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// ===== 好友 =====

// HandlerListFriends GET /api/users/friends
func HandlerListFriends(c *gin.Context) {
	me := midsec.CurrentUser(c)
	friends, err := service.ListFriends(c.Request.Context(), me.ID)
	if err != nil {
		middleware.FailWith(c, err)
		return
	}
	c.JSON(http.StatusOK, friends)
}

// HandlerListFriendRequests GET /api/users/friends/requests
func HandlerListFriendRequests(c *gin.Context) {
	me := midsec.CurrentUser(c)
	reqs, err := service.ListFriendRequests(c.Request.Context(), me.ID)
	if err != nil {
		middleware.FailWith(c, err)
		return
	}
	c.JSON(http.StatusOK, reqs)
}

// HandlerRequestFriend POST /api/users/friends/request/:id
func HandlerRequestFriend(c *gin.Context) {
	friendAction(c, service.RequestFriend, "好友申请已发送")
}

// HandlerAcceptFriend PUT /api/users/friends/accept/:id
func HandlerAcceptFriend(c *gin.Context) {
	friendAction(c, service.AcceptFriend, "已添加好友")
}

// HandlerRejectFriend PUT /api/users/friends/reject/:id
func HandlerRejectFriend(c *gin.Context) {
	friendAction(c, service.RejectFriend, "已拒绝申请")
}

// HandlerRemoveFriend DELETE /api/users/friends/:id
func HandlerRemoveFriend(c *gin.Context) {
	friendAction(c, service.RemoveFriend, "已删除好友")
}

func friendAction(c *gin.Context, fn func(ctx context.Context, self, other primitive.ObjectID) error, okMsg string) {
	otherID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		middleware.FailWith(c, errs.ErrUserNotFound)
		return
	}
	me := midsec.CurrentUser(c)
	if err := fn(c.Request.Context(), me.ID, otherID); err != nil {
		middleware.FailWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": okMsg})
}
