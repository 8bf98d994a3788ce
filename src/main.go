package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"regexp"
	"syscall"
	"time"

	"vpass/src/boot"
	"vpass/src/common"
	"vpass/src/config"
	"vpass/src/controllers"
	"vpass/src/events"
	"vpass/src/guard"
	"vpass/src/lib"
	"vpass/src/lib/mailer"
	"vpass/src/lifecycle"
	"vpass/src/middlewares"
	"vpass/src/notify"
	"vpass/src/store"
	"vpass/src/types"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const (
	apiPrefix   string = "/api/v1"
	serviceName string = "vpass-api"
)

type server struct {
	cfg      *config.Config
	engine   *lifecycle.Engine
	audit    store.AuditLog
	accounts *controllers.AccountsController
}

var visitDateValidatorFunc validator.Func = func(fl validator.FieldLevel) bool {
	date, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	datetime, err := time.Parse(config.TIME_PARSE_FORMAT, date)
	if err != nil {
		return false
	}
	return datetime.After(time.Now())
}

func registerValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("visitdate", visitDateValidatorFunc)
	}
}

func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	if cfg.APIEnv == "local" {
		return cors.Default()
	}
	cc := cors.DefaultConfig()
	cc.AllowMethods = append(cc.AllowMethods, "GET", "POST", "HEAD")
	cc.AllowHeaders = append(cc.AllowHeaders, "Origin", "Authorization")
	cc.AllowOriginFunc = func(origin string) bool {
		match, _ := regexp.MatchString("^"+regexp.QuoteMeta(cfg.AppHost)+"$", origin)
		return match
	}
	cc.AllowCredentials = true
	return cors.New(cc)
}

func setupRouter(s *server) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(corsMiddleware(s.cfg))
	router.Use(middlewares.MaintenanceMode(func() bool { return s.cfg.MaintenanceMode }))
	router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, "ok")
	})

	publicRoutes(router, s)

	authorized := router.Group(apiPrefix)
	authorized.Use(middlewares.AuthMiddleware([]byte(s.cfg.JWTSecret)))
	{
		authorized = passHandlers(authorized, s)
		authorized = userHandlers(authorized, s)
	}
	return router
}

// respondError maps err to its status. Internal failures are not echoed.
func respondError(ctx *gin.Context, err error) {
	status := types.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Printf("Error on %s %s: %s", ctx.Request.Method, ctx.FullPath(), err.Error())
		ctx.AbortWithStatusJSON(status, gin.H{"error": "internal error"})
		return
	}
	ctx.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	lib.InitLogger(cfg.LogDir, cfg.IsProd())
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}
	registerValidators()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := lib.SetupTracing(ctx, serviceName, cfg.OTELEndpoint)
	if err != nil {
		log.Fatalf("Error setting up tracing: %s", err.Error())
	}

	stores := boot.InitStores(cfg)
	broker, err := boot.InitBroker(ctx, cfg)
	if err != nil {
		log.Fatalf("Error connecting to broker: %s", err.Error())
	}
	transport, err := mailer.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Error configuring mailer: %s", err.Error())
	}

	publisher := events.NewPublisher(broker.Channel, stores.Outbox)
	engineOpts := []lifecycle.Option{lifecycle.WithTrail(stores.Trail)}
	if cfg.Pusher.AppID != "" {
		engineOpts = append(engineOpts, lifecycle.WithDashboard(lib.NewPusherNotifier(cfg.Pusher)))
	}
	engine := lifecycle.New(stores.Passes, stores.Users, publisher, guard.NewClaimsGuard(), engineOpts...)

	dispatcherOpts := []notify.Option{notify.WithSendTimeout(cfg.SendTimeout)}
	var tokens redis.Cmdable
	if cfg.RedisHost != "" {
		if rdb := lib.GetRedisClient(cfg.RedisHost); rdb != nil {
			tokens = rdb
			dispatcherOpts = append(dispatcherOpts, notify.WithDeduper(lib.NewRedisDeduper(rdb, cfg.DedupeTTL)))
		}
	}
	dispatcher := notify.NewDispatcher(stores.Audit, transport, dispatcherOpts...)

	republisher := events.NewRepublisher(broker.Channel, stores.Outbox)
	sched, err := boot.InitScheduler(cfg, engine, republisher)
	if err != nil {
		log.Fatalf("Error initializing scheduler: %s", err.Error())
	}
	go boot.RecoverParkedEvents(ctx, republisher)
	sched.Start()

	consumers := common.StartConsumers(ctx, broker.Subscriber, dispatcher.Handle, cfg.ConsumersPerQueue)

	s := &server{
		cfg:      cfg,
		engine:   engine,
		audit:    stores.Audit,
		accounts: controllers.NewAccountsController(stores.Users, publisher, tokens, cfg.AppHost, cfg.ResetTokenTTL),
	}
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: setupRouter(s),
	}
	go func() {
		log.Printf("Listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Error starting server: %s", err.Error())
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down server: %s", err.Error())
	}
	if err := sched.Shutdown(); err != nil {
		log.Printf("Error stopping scheduler: %s", err.Error())
	}
	consumers.Wait()
	broker.Close()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Printf("Error flushing traces: %s", err.Error())
	}
}
