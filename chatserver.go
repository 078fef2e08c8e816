package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"WChat/global/config"
	"WChat/logger"
	mid "WChat/middleware"
	authhandler "WChat/module/auth/handler"
	chathandler "WChat/module/chat/handler"
	userhandler "WChat/module/user/handler"
	wschat "WChat/service/chat"
	"WChat/service/mgo"
)

func main() {
	conf := config.Boot()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Mongo 异步起，起不来照样监听（就绪前 GetDB 会 panic，由 WaitReady 挡住）
	mgo.StartAsync(ctx, config.ConfigMgo())
	waitCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := mgo.WaitReady(waitCtx, mgo.Manager()); err != nil {
		logger.Errorf("[Boot] mongo not ready: %v", err)
		return
	}

	// 实时网关
	ws := wschat.NewServer(wschat.ServerConf{
		TypingTTL: conf.TypingTTL,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || origin == conf.ClientURL
		},
	})
	chathandler.SetGateway(ws)

	r := gin.Default()
	r.Use(mid.Origin(conf.ClientURL))
	registerRoutes(r, ws)

	logger.Infof("[Boot] listening on :%s", conf.Port)
	if err := r.Run(":" + conf.Port); err != nil {
		logger.Errorf("[Boot] server exited: %v", err)
	}
}

func registerRoutes(r *gin.Engine, ws *wschat.Server) {
	authed := mid.RouteOpt{IsAuth: true}
	open := mid.RouteOpt{}

	api := r.Group("/api")

	auth := api.Group("/auth")
	mid.POST(auth, "/register", authhandler.HandlerRegister, open)
	mid.POST(auth, "/login", authhandler.HandlerLogin, open)
	mid.POST(auth, "/logout", authhandler.HandlerLogout, authed)

	users := api.Group("/users")
	mid.GET(users, "", userhandler.HandlerSearch, authed)
	mid.PUT(users, "/profile", userhandler.HandlerUpdateProfile, authed)
	mid.GET(users, "/friends", userhandler.HandlerListFriends, authed)
	mid.GET(users, "/friends/requests", userhandler.HandlerListFriendRequests, authed)
	mid.POST(users, "/friends/request/:id", userhandler.HandlerRequestFriend, authed)
	mid.PUT(users, "/friends/accept/:id", userhandler.HandlerAcceptFriend, authed)
	mid.PUT(users, "/friends/reject/:id", userhandler.HandlerRejectFriend, authed)
	mid.DELETE(users, "/friends/:id", userhandler.HandlerRemoveFriend, authed)
	mid.GET(users, "/:id", userhandler.HandlerGetUser, authed)

	chats := api.Group("/chats")
	mid.POST(chats, "", chathandler.HandlerAccessChat, authed)
	mid.GET(chats, "", chathandler.HandlerFetchChats, authed)
	mid.POST(chats, "/group", chathandler.HandlerCreateGroup, authed)
	mid.PUT(chats, "/group/:id", chathandler.HandlerRenameGroup, authed)
	mid.PUT(chats, "/group/:id/add", chathandler.HandlerAddToGroup, authed)
	mid.PUT(chats, "/group/:id/remove", chathandler.HandlerRemoveFromGroup, authed)
	mid.PUT(chats, "/group/:id/make-admin", chathandler.HandlerMakeAdmin, authed)

	msgs := api.Group("/messages")
	mid.POST(msgs, "", chathandler.HandlerSendMessage, authed)
	mid.GET(msgs, "/unread", chathandler.HandlerUnreadCount, authed)
	mid.GET(msgs, "/:chatId", chathandler.HandlerListMessages, authed)
	mid.PUT(msgs, "/read/:chatId", chathandler.HandlerMarkRead, authed)
	mid.DELETE(msgs, "/:id", chathandler.HandlerDeleteMessage, authed)

	// websocket 连接不做 HTTP 鉴权，身份靠 setup 事件声明
	r.GET("/ws", ws.HandleWS)
}
