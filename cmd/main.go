package main

import (
	"net/http"
	"os"
	"time"

	"badgeauth/api/handler"
	"badgeauth/api/routes"
	"badgeauth/config"
	"badgeauth/internal/entity"
	"badgeauth/internal/repository"
	"badgeauth/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("configuration error")
	}

	db, err := config.ConnectDB(cfg)
	if err != nil {
		logger.WithError(err).Fatal("database connection failed")
	}
	if err := db.AutoMigrate(&entity.Employee{}, &entity.AuditLog{}); err != nil {
		logger.WithError(err).Fatal("database migration failed")
	}

	employeeRepo := repository.NewEmployeeRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	identityProvider := service.NewHTTPIdentityProvider(
		cfg.IdentityProviderURL,
		[]byte(cfg.IdentityServiceSecret),
		cfg.IdentityIssuer,
	)
	broker := service.NewSessionBroker(identityProvider, logger)

	var notifier service.NotificationGateway
	if gateway := service.NewResendNotificationGateway(cfg.ResendAPIKey, cfg.NotifyFrom); gateway != nil {
		notifier = gateway
	} else {
		logger.Warn("notification gateway not configured, one-time codes will be logged only")
	}

	badgeAuthService := service.NewBadgeAuthService(
		employeeRepo,
		auditRepo,
		broker,
		notifier,
		service.RealClock{},
		service.AuthConfig{
			DefaultPIN:       cfg.DefaultPIN,
			OTPDigits:        cfg.OTPDigits,
			OTPTTL:           cfg.OTPTTL,
			LockoutThreshold: cfg.LockoutThreshold,
			LockoutWindow:    cfg.LockoutWindow,
		},
		logger,
	)

	badgeAuthHandler := handler.NewBadgeAuthHandler(badgeAuthService, validator.New())

	app := echo.New()
	app.HideBanner = true
	app.HidePort = true
	app.Use(echoMiddleware.Recover())
	app.Use(echoMiddleware.RequestLoggerWithConfig(echoMiddleware.RequestLoggerConfig{
		LogStatus:   true,
		LogMethod:   true,
		LogURI:      true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echoMiddleware.RequestLoggerValues) error {
			entry := logger.WithFields(logrus.Fields{
				"status": v.Status,
				"method": v.Method,
				"uri":    v.URI,
				"ip":     v.RemoteIP,
			})
			if v.Error != nil {
				entry.WithError(v.Error).Error("request")
				return nil
			}
			entry.Info("request")
			return nil
		},
	}))

	router := routes.NewRouter(app, badgeAuthHandler)
	router.RegisterRoutes()

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.WithField("addr", cfg.HTTPAddr).Info("server started")
	if err := app.StartServer(server); err != nil {
		logger.WithError(err).Fatal("server stopped")
	}
}
