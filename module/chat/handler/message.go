package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"WChat/logger"
	"WChat/middleware"
	midsec "WChat/middleware/security"
	"WChat/module/chat/service"
	"WChat/tools/errs"
)

type sendMessageReq struct {
	ChatID  string `json:"chatId" binding:"required,objectid"`
	Content string `json:"content" binding:"required,min=1,max=4096"`
}

// HandlerSendMessage POST /api/messages
// 落库成功后把填充好的消息推给实时网关扇出；扇出失败不影响 HTTP 响应。
func HandlerSendMessage(c *gin.Context) {
	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.FailWith(c, errs.ErrBadRequest.WithDetail(err.Error()))
		return
	}
	chatID, _ := primitive.ObjectIDFromHex(req.ChatID)

	me := midsec.CurrentUser(c)
	view, err := service.SendMessage(c.Request.Context(), me.ID, chatID, req.Content)
	if err != nil {
		middleware.FailWith(c, err)
		return
	}

	if gateway != nil {
		raw, err := json.Marshal(view)
		if err != nil {
			logger.Errorf("[Message] marshal for fan-out: %v", err)
		} else {
			gateway.FanOutRaw(raw)
		}
	}

	c.JSON(http.StatusCreated, view)
}

// HandlerListMessages GET /api/messages/:chatId?page=&limit=
func HandlerListMessages(c *gin.Context) {
	chatID, err := primitive.ObjectIDFromHex(c.Param("chatId"))
	if err != nil {
		middleware.FailWith(c, errs.ErrChatNotFound)
		return
	}

	page, _ := strconv.ParseInt(c.DefaultQuery("page", "1"), 10, 64)
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)

	me := midsec.CurrentUser(c)
	result, err := service.ListMessages(c.Request.Context(), me.ID, chatID,
		service.ListParams{Page: page, Limit: limit})
	if err != nil {
		middleware.FailWith(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// HandlerMarkRead PUT /api/messages/read/:chatId
func HandlerMarkRead(c *gin.Context) {
	chatID, err := primitive.ObjectIDFromHex(c.Param("chatId"))
	if err != nil {
		middleware.FailWith(c, errs.ErrChatNotFound)
		return
	}

	me := midsec.CurrentUser(c)
	n, err := service.MarkRead(c.Request.Context(), me.ID, chatID)
	if err != nil {
		middleware.FailWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"modified": n})
}

// HandlerUnreadCount GET /api/messages/unread
func HandlerUnreadCount(c *gin.Context) {
	me := midsec.CurrentUser(c)
	sum, err := service.UnreadCount(c.Request.Context(), me.ID)
	if err != nil {
		middleware.FailWith(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// HandlerDeleteMessage DELETE /api/messages/:id
func HandlerDeleteMessage(c *gin.Context) {
	msgID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		middleware.FailWith(c, errs.ErrMessageNotFound)
		return
	}

	me := midsec.CurrentUser(c)
	if err := service.DeleteMessage(c.Request.Context(), me.ID, msgID); err != nil {
		middleware.FailWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "已删除"})
}
