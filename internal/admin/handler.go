package admin

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	missingKeyMessage = "Must provide a key in the path"

	sizePath    = "/size"
	metricsPath = "/metrics"
)

func handlersInit(router *gin.Engine, src Source, m Metrics, version string) *gin.Engine {
	var metricsHandler gin.HandlerFunc
	if m != nil {
		metricsHandler = gin.WrapH(m.Handler())
	}

	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusBadRequest, missingKeyMessage)
	})
	router.GET(sizePath, size(src))
	router.GET("/stats", stats(src))
	router.GET("/healthz", healthcheck(version))
	if metricsHandler != nil {
		router.GET(metricsPath, metricsHandler)
	}
	router.NoRoute(fallback(size(src), metricsHandler))
	return router
}

// fallback matches /size and /metrics regardless of case. Any other GET gets
// an empty 200, every other method a 404.
func fallback(sizeHandler, metricsHandler gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Status(http.StatusNotFound)
			return
		}

		switch path := c.Request.URL.Path; {
		case strings.EqualFold(path, sizePath):
			sizeHandler(c)
		case strings.EqualFold(path, metricsPath) && metricsHandler != nil:
			metricsHandler(c)
		default:
			c.Status(http.StatusOK)
		}
	}
}

func size(src Source) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.String(http.StatusOK, strconv.Itoa(src.Len()))
	}
}

func stats(src Source) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"size":  src.Len(),
			"stats": src.Stats(),
		})
	}
}

// requestMethod is the histogram label for an admin request.
func requestMethod(method string) string {
	if method == http.MethodGet {
		return "get"
	}
	return "other"
}

// requestLogger logs every admin request at debug level and, when m is set,
// records its latency.
func requestLogger(logger *zap.Logger, m Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		if m != nil {
			m.ObserveRequest(requestMethod(c.Request.Method), latency)
		}
		logger.Debug("Admin request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
		)
	}
}
