package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"WChat/middleware"
	midsec "WChat/middleware/security"
	chatmodel "WChat/module/chat/model"
	"WChat/module/chat/service"
	wschat "WChat/service/chat"
	"WChat/tools/errs"
)

// gateway 实时网关，消息落库后从这里扇出。main 启动时注入。
var gateway *wschat.Server

func SetGateway(s *wschat.Server) { gateway = s }

// ===== 会话 =====

type accessChatReq struct {
	UserID string `json:"userId" binding:"required,objectid"`
}

// HandlerAccessChat POST /api/chats 打开单聊；200 已有 / 201 新建
func HandlerAccessChat(c *gin.Context) {
	var req accessChatReq
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.FailWith(c, errs.ErrBadRequest.WithDetail(err.Error()))
		return
	}
	otherID, _ := primitive.ObjectIDFromHex(req.UserID)

	me := midsec.CurrentUser(c)
	view, created, err := service.AccessChat(c.Request.Context(), me.ID, otherID)
	if err != nil {
		middleware.FailWith(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, view)
}

// HandlerFetchChats GET /api/chats
func HandlerFetchChats(c *gin.Context) {
	me := midsec.CurrentUser(c)
	views, err := service.FetchChats(c.Request.Context(), me.ID)
	if err != nil {
		middleware.FailWith(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

// ===== 群聊 =====

type createGroupReq struct {
	GroupName    string   `json:"groupName" binding:"required,min=1,max=100"`
	Participants []string `json:"participants" binding:"required,min=2,dive,objectid"`
}

// HandlerCreateGroup POST /api/chats/group
func HandlerCreateGroup(c *gin.Context) {
	var req createGroupReq
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.FailWith(c, errs.ErrBadRequest.WithDetail(err.Error()))
		return
	}
	userIDs := make([]primitive.ObjectID, 0, len(req.Participants))
	for _, s := range req.Participants {
		id, _ := primitive.ObjectIDFromHex(s)
		userIDs = append(userIDs, id)
	}

	me := midsec.CurrentUser(c)
	view, err := service.CreateGroup(c.Request.Context(), me.ID, req.GroupName, userIDs)
	if err != nil {
		middleware.FailWith(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

type renameGroupReq struct {
	GroupName string `json:"groupName" binding:"required,min=1,max=100"`
}

// HandlerRenameGroup PUT /api/chats/group/:id
func HandlerRenameGroup(c *gin.Context) {
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}
	var req renameGroupReq
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.FailWith(c, errs.ErrBadRequest.WithDetail(err.Error()))
		return
	}

	me := midsec.CurrentUser(c)
	view, err := service.RenameGroup(c.Request.Context(), chatID, me.ID, req.GroupName)
	if err != nil {
		middleware.FailWith(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type groupMemberReq struct {
	UserID string `json:"userId" binding:"required,objectid"`
}

// HandlerAddToGroup PUT /api/chats/group/:id/add
func HandlerAddToGroup(c *gin.Context) {
	groupMemberAction(c, service.AddToGroup)
}

// HandlerRemoveFromGroup PUT /api/chats/group/:id/remove
func HandlerRemoveFromGroup(c *gin.Context) {
	groupMemberAction(c, service.RemoveFromGroup)
}

// HandlerMakeAdmin PUT /api/chats/group/:id/make-admin
func HandlerMakeAdmin(c *gin.Context) {
	groupMemberAction(c, service.MakeAdmin)
}

type groupMemberFn func(ctx context.Context, chatID, selfID, userID primitive.ObjectID) (*chatmodel.ChatView, error)

func groupMemberAction(c *gin.Context, fn groupMemberFn) {
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}
	var req groupMemberReq
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.FailWith(c, errs.ErrBadRequest.WithDetail(err.Error()))
		return
	}
	userID, _ := primitive.ObjectIDFromHex(req.UserID)

	me := midsec.CurrentUser(c)
	view, err := fn(c.Request.Context(), chatID, me.ID, userID)
	if err != nil {
		middleware.FailWith(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func chatIDParam(c *gin.Context) (primitive.ObjectID, bool) {
	chatID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		middleware.FailWith(c, errs.ErrChatNotFound)
		return primitive.NilObjectID, false
	}
	return chatID, true
}
