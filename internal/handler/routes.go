package handler

import (
	"reelforge-backend/internal/middleware"
	"reelforge-backend/internal/svc"

	"github.com/zeromicro/go-zero/rest"
)

func RegisterHandlers(server *rest.Server, serverCtx *svc.ServiceContext) {
	userHandler := NewUserHandler(serverCtx)
	videoHandler := NewVideoHandler(serverCtx)
	publishHandler := NewPublishHandler(serverCtx)
	webhookHandler := NewWebhookHandler(serverCtx)

	// 公开路由（无需认证）
	server.AddRoutes([]rest.Route{
		{
			Method:  "POST",
			Path:    "/api/auth/register",
			Handler: userHandler.Register,
		},
		{
			Method:  "POST",
			Path:    "/api/auth/login",
			Handler: userHandler.Login,
		},
	})

	// 系统回调路由（由记录ID定位，带外鉴权）
	server.AddRoutes([]rest.Route{
		{
			Method:  "POST",
			Path:    "/api/webhooks/compositor",
			Handler: middleware.WithCORS(webhookHandler.CompositorWebhook),
		},
		{
			Method:  "POST",
			Path:    "/api/webhooks/payment",
			Handler: middleware.WithCORS(webhookHandler.PaymentWebhook),
		},
	})

	// 需要认证的路由
	server.AddRoutes([]rest.Route{
		{
			Method:  "GET",
			Path:    "/api/user/profile",
			Handler: serverCtx.Auth.Handle(userHandler.GetProfile),
		},
		{
			Method:  "GET",
			Path:    "/api/user/credits",
			Handler: serverCtx.Auth.Handle(userHandler.GetCredits),
		},
		{
			Method:  "POST",
			Path:    "/api/videos",
			Handler: serverCtx.Auth.Handle(videoHandler.CreateVideo),
		},
		{
			Method:  "GET",
			Path:    "/api/videos",
			Handler: serverCtx.Auth.Handle(videoHandler.ListVideos),
		},
		{
			Method:  "GET",
			Path:    "/api/videos/detail",
			Handler: serverCtx.Auth.Handle(videoHandler.GetVideo),
		},
		{
			Method:  "GET",
			Path:    "/api/videos/content",
			Handler: serverCtx.Auth.Handle(videoHandler.GetContent),
		},
		{
			Method:  "DELETE",
			Path:    "/api/videos",
			Handler: serverCtx.Auth.Handle(videoHandler.DeleteVideo),
		},
		{
			Method:  "POST",
			Path:    "/api/videos/script",
			Handler: serverCtx.Auth.Handle(videoHandler.GenerateScript),
		},
		{
			Method:  "POST",
			Path:    "/api/videos/copies",
			Handler: serverCtx.Auth.Handle(videoHandler.GenerateCopies),
		},
		{
			Method:  "POST",
			Path:    "/api/videos/render",
			Handler: serverCtx.Auth.Handle(videoHandler.RequestRender),
		},
		{
			Method:  "POST",
			Path:    "/api/videos/composite",
			Handler: serverCtx.Auth.Handle(videoHandler.RequestComposite),
		},
		{
			Method:  "POST",
			Path:    "/api/videos/refresh-urls",
			Handler: serverCtx.Auth.Handle(videoHandler.RefreshAvatarURLs),
		},
		{
			Method:  "GET",
			Path:    "/api/videos/queue",
			Handler: serverCtx.Auth.Handle(videoHandler.GetQueueStatus),
		},
		{
			Method:  "POST",
			Path:    "/api/publish",
			Handler: serverCtx.Auth.Handle(publishHandler.CreatePublish),
		},
		{
			Method:  "GET",
			Path:    "/api/publish/detail",
			Handler: serverCtx.Auth.Handle(publishHandler.GetPublish),
		},
		{
			Method:  "POST",
			Path:    "/api/social/token",
			Handler: serverCtx.Auth.Handle(publishHandler.SaveToken),
		},
	})
}
