package server

import (
	"time"

	"github.com/abduss/backoffice/internal/auth"
	"github.com/abduss/backoffice/internal/config"
	"github.com/abduss/backoffice/internal/customer"
	"github.com/abduss/backoffice/internal/employee"
	"github.com/abduss/backoffice/internal/file"
	"github.com/abduss/backoffice/internal/logger"
	"github.com/abduss/backoffice/internal/metrics"
	"github.com/abduss/backoffice/internal/objectstore"
	"github.com/abduss/backoffice/internal/organization"
	"github.com/abduss/backoffice/internal/product"
	"github.com/abduss/backoffice/internal/quotation"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Dependencies groups the services required by the HTTP router. Nil services
// leave their routes unmounted.
type Dependencies struct {
	Config              config.Config
	Logger              *zap.Logger
	DB                  pinger
	ObjectStore         objectstore.Store
	AuthService         *auth.Service
	OrganizationService *organization.Service
	FileService         *file.Service
	CustomerService     *customer.Service
	EmployeeService     *employee.Service
	ProductService      *product.Service
	QuotationService    *quotation.Service
}

// NewRouter builds a Gin engine with foundational middleware and routes.
func NewRouter(deps Dependencies) *gin.Engine {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.Middleware(log))
	router.Use(metrics.Middleware())

	registerHealthRoutes(router, deps)
	metrics.Register(router, deps.Config.Metrics.PrometheusPath)

	if deps.AuthService == nil {
		return router
	}
	optional := auth.OptionalAuth(deps.AuthService)

	if deps.FileService != nil {
		cacheMaxAge := deps.Config.Files.CacheMaxAge
		if cacheMaxAge <= 0 {
			cacheMaxAge = 24 * time.Hour
		}
		for _, prefix := range []string{"/files", "/api/file"} {
			group := router.Group(prefix)
			group.Use(optional)
			file.RegisterPublicRoutes(group, deps.FileService, cacheMaxAge, log)
		}
	}

	api := router.Group("/v1")

	if deps.FileService != nil {
		presign := api.Group("/")
		presign.Use(optional)
		file.RegisterRoutes(presign, deps.FileService, log)
	}

	protected := api.Group("/")
	protected.Use(auth.AuthMiddleware(deps.AuthService))

	auth.RegisterRoutes(api, protected, deps.AuthService)

	if deps.OrganizationService != nil {
		organization.RegisterRoutes(protected, deps.OrganizationService)
	}
	if deps.CustomerService != nil {
		customer.RegisterRoutes(protected, deps.CustomerService)
	}
	if deps.EmployeeService != nil {
		employee.RegisterRoutes(protected, deps.EmployeeService)
	}
	if deps.ProductService != nil {
		product.RegisterRoutes(protected, deps.ProductService)
	}
	if deps.QuotationService != nil {
		quotation.RegisterRoutes(protected, deps.QuotationService)
	}

	return router
}
