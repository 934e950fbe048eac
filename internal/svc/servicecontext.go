package svc

import (
	"reelforge-backend/internal/config"
	"reelforge-backend/internal/middleware"
	"reelforge-backend/internal/model"
	"reelforge-backend/internal/service"
)

type ServiceContext struct {
	Config           config.Config
	Auth             *middleware.AuthMiddleware
	UserService      *service.UserService
	CreditService    *service.CreditService
	PipelineService  *service.PipelineService
	PublishService   *service.PublishService
	ReconcileService *service.ReconcileQueueService
}

func NewServiceContext(c config.Config) *ServiceContext {
	// 初始化数据库连接
	db := model.InitDB(c.MySQL)

	// 初始化Redis连接
	redisClient := model.InitRedis(c.Redis)

	// 初始化服务
	userService := service.NewUserService(db)
	creditService := service.NewCreditService(db, c.Credit)
	notifyService := service.NewNotifyService(db)

	scriptService := service.NewScriptService(c.OpenAI)
	avatarService := service.NewAvatarService(c.Avatar)
	compositorService := service.NewCompositorService(c.Compositor)

	// 对账队列与流水线/发布服务互相依赖，先建队列再回注
	reconcileService := service.NewReconcileQueueService(db, redisClient, c.Reconcile)

	pipelineService := service.NewPipelineService(
		db,
		scriptService,
		avatarService,
		compositorService,
		creditService,
		notifyService,
		reconcileService,
		c.Compositor,
	)
	publishService := service.NewPublishService(db, c.Publisher, reconcileService)

	reconcileService.SetPipelineService(pipelineService)
	reconcileService.SetPublishService(publishService)

	// 初始化中间件
	auth := middleware.NewAuthMiddleware(userService, c.Auth)

	return &ServiceContext{
		Config:           c,
		Auth:             auth,
		UserService:      userService,
		CreditService:    creditService,
		PipelineService:  pipelineService,
		PublishService:   publishService,
		ReconcileService: reconcileService,
	}
}
