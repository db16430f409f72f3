package api

import (
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"github.com/rollcall-app/rollcall/docs"
	v1 "github.com/rollcall-app/rollcall/internal/api/handler/v1"
	"github.com/rollcall-app/rollcall/internal/api/middleware"
	"github.com/rollcall-app/rollcall/internal/config"
	"github.com/rollcall-app/rollcall/internal/repository"
	"github.com/rollcall-app/rollcall/internal/repository/dao"
	"github.com/rollcall-app/rollcall/internal/service"
	"github.com/rollcall-app/rollcall/internal/sync"
)

type Server struct {
	Config *config.AppConfig
	Router *gin.Engine
}

func NewServer(conf *config.AppConfig, db *gorm.DB) *Server {
	gin.SetMode(conf.Gin.Mode)
	engine := gin.New()

	s := &Server{
		Config: conf,
		Router: engine,
	}

	s.MountMiddlewares()

	svc := initEventService(db)
	eventHandler := v1.NewEventHandler(svc)
	syncHandler := s.initSyncHandler(svc)
	s.MountHandlers(eventHandler, syncHandler)

	return s
}

func initEventService(db *gorm.DB) *service.EventService {
	eventDAO := dao.NewEventDAO(db)
	repo := repository.NewEventRepository(eventDAO)
	svc := service.NewEventService(repo)

	return svc
}

func (s *Server) initSyncHandler(svc *service.EventService) *v1.SyncHandler {
	hub := sync.NewHub(svc)
	go hub.Run()

	return v1.NewSyncHandler(hub)
}

func (s *Server) MountMiddlewares() {
	// Logger and Recovery are needed unless we use gin.Default().
	s.Router.Use(gin.Logger())
	s.Router.Use(gin.Recovery())
	s.Router.Use(requestid.New())
	s.Router.Use(middleware.ConfigCORS(s.Config.API.AllowedCORSDomains))
}

func (s *Server) MountHandlers(eventHandler *v1.EventHandler, syncHandler *v1.SyncHandler) {
	const basePath = "/api/v1"

	events := s.Router.Group(basePath)
	{
		events.POST("/events", eventHandler.HandleRegisterEvent)
		events.GET("/events", eventHandler.HandleListEvents)
		events.GET("/events/:code", eventHandler.HandleGetEvent)
		events.POST("/events/:code/attendees", eventHandler.HandleImportAttendance)
		events.POST("/events/:code/today", eventHandler.HandleImportSameDay)
		events.GET("/events/:code/export", eventHandler.HandleExportEvent)

		// Joining a room happens in-protocol, so a single endpoint serves every event.
		events.GET("/sync", syncHandler.HandleSync)
	}

	s.Router.GET("/", v1.HandleHealthcheck)

	// Setup Swagger UI.
	docs.SwaggerInfo.Host = s.Config.API.BaseURL
	docs.SwaggerInfo.BasePath = basePath
	docs.SwaggerInfo.Title = "Rollcall API"
	docs.SwaggerInfo.Description = "Event attendance tracking with real-time sync."
	docs.SwaggerInfo.Version = "1.0"
	s.Router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))
}
