package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/skladsync/skladsync/internal/syncer"
)

// Server is the HTTP surface over the mirrored data: resource CRUD, manual
// sync triggers and the read-only sync-run listing.
type Server struct {
	log    zerolog.Logger
	db     *gorm.DB
	engine *syncer.Engine
	router *gin.Engine
}

func New(log zerolog.Logger, gdb *gorm.DB, engine *syncer.Engine) *Server {
	s := &Server{
		log:    log,
		db:     gdb,
		engine: engine,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.requestLog())
	r.Use(cors.Default())

	api := r.Group("/api")
	{
		api.GET("/health", s.health)

		api.GET("/products", s.listProducts)
		api.GET("/products/:id", s.getProduct)
		api.POST("/products", s.createProduct)
		api.PUT("/products/:id", s.updateProduct)
		api.DELETE("/products/:id", s.deleteProduct)

		api.GET("/categories", s.listCategories)
		api.GET("/categories/:id", s.getCategory)
		api.POST("/categories", s.createCategory)
		api.PUT("/categories/:id", s.updateCategory)
		api.DELETE("/categories/:id", s.deleteCategory)

		api.GET("/orders", s.listOrders)
		api.GET("/orders/:id", s.getOrder)
		api.POST("/orders", s.createOrder)
		api.PUT("/orders/:id", s.updateOrder)
		api.DELETE("/orders/:id", s.deleteOrder)

		api.GET("/sync-logs", s.listSyncRuns)

		sync := api.Group("/sync")
		sync.POST("/products", s.triggerSync("products"))
		sync.POST("/stock", s.triggerSync("stock"))
		sync.POST("/orders", s.triggerSync("orders"))
		sync.POST("/categories", s.triggerSync("categories"))
	}

	s.router = r
	return s
}

func (s *Server) Router() *gin.Engine { return s.router }

func (s *Server) Run(addr string) error {
	s.log.Info().Str("addr", addr).Msg("api: listening")
	return s.router.Run(addr)
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("request")
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":    "ok",
		"service":   "skladsync",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
