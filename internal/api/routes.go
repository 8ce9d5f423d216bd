package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/axlrose023/fraud-checker/internal/config"
	"github.com/axlrose023/fraud-checker/internal/db"
	"github.com/axlrose023/fraud-checker/internal/fraud"
	"github.com/axlrose023/fraud-checker/pkg/models"
)

type APIHandler struct {
	cfg        config.Config
	service    *fraud.Service
	dbStore    *db.PostgresStore
	wsHub      *Hub
	ipResolver RequestIPResolver
}

func SetupRouter(cfg config.Config, service *fraud.Service, dbStore *db.PostgresStore, wsHub *Hub) *gin.Engine {
	// Telemetry payloads must not smuggle unknown fields past validation.
	gin.EnableJsonDecoderDisallowUnknownFields()

	r := gin.Default()

	// Enable CORS — configurable via APP__API__ALLOWED_HOSTS
	// Production: APP__API__ALLOWED_HOSTS=https://landing.example.com
	// Development: leave empty for *
	allowedOrigins := cfg.API.AllowedHosts
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			// Check if the request origin is in the allowed list
			for _, allowed := range allowedOrigins {
				if strings.TrimSpace(allowed) == origin {
					c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-API-Key, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	r.Use(APIKeyMiddleware(cfg.API.APIKey))

	handler := &APIHandler{
		cfg:        cfg,
		service:    service,
		dbStore:    dbStore,
		wsHub:      wsHub,
		ipResolver: NewRequestIPResolver(cfg.Fraud.TrustForwardedIP),
	}

	fraudGroup := r.Group("/fraud")
	{
		fraudGroup.POST("/check", handler.handleCheck)
		fraudGroup.POST("/captcha/verify", handler.handleVerifyCaptcha)
		fraudGroup.GET("/collector.js", handler.handleCollectorScript)
		fraudGroup.GET("/logs", handler.handleGetLogs)
		fraudGroup.GET("/health", handler.handleHealth)
		fraudGroup.GET("/stream", wsHub.Subscribe)
	}

	return r
}

// handleCheck evaluates one telemetry payload and returns the verdict.
func (h *APIHandler) handleCheck(c *gin.Context) {
	var payload models.FraudCheckRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}

	requestIP := h.ipResolver.Resolve(c)
	response := h.service.Check(
		c.Request.Context(),
		&payload,
		requestIP,
		requestHeaders(c),
		RequestOrigin(c),
	)
	c.JSON(http.StatusOK, response)
}

// handleVerifyCaptcha completes the two-step captcha flow.
func (h *APIHandler) handleVerifyCaptcha(c *gin.Context) {
	var payload models.CaptchaVerifyRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}

	requestIP := h.ipResolver.Resolve(c)
	response, verifyErr := h.service.VerifyCaptcha(
		c.Request.Context(),
		payload,
		requestIP,
		RequestOrigin(c),
	)
	if verifyErr != nil {
		c.JSON(verifyErr.Status, gin.H{"detail": verifyErr.Code})
		return
	}
	c.JSON(http.StatusOK, response)
}

// handleCollectorScript serves the browser collector. Public: landing pages
// load it with a plain script tag, no API key.
func (h *APIHandler) handleCollectorScript(c *gin.Context) {
	script := BuildCollectorScript(h.cfg.Fraud.TurnstileJSURL)
	c.Data(http.StatusOK, "application/javascript", []byte(script))
}

// handleGetLogs returns one page of the audit trail, newest first.
func (h *APIHandler) handleGetLogs(c *gin.Context) {
	if h.dbStore == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"detail": "Database not connected"})
		return
	}

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "page must be a positive integer"})
		return
	}
	pageSize, err := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	if err != nil || pageSize < 1 || pageSize > 100 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "page_size must be between 1 and 100"})
		return
	}

	items, total, err := h.dbStore.GetLogs(c.Request.Context(), page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to fetch fraud logs"})
		return
	}

	c.JSON(http.StatusOK, models.FraudCheckLogList{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

// handleHealth returns service status for monitoring and service discovery.
func (h *APIHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "operational",
		"service": h.cfg.API.Title,
		"version": h.cfg.API.Version,
		"capabilities": gin.H{
			"captcha_configured":   h.cfg.Fraud.TurnstileSiteKey != "" && h.cfg.Fraud.TurnstileSecretKey != "",
			"ip_geolocation":       h.cfg.Fraud.IPGeolocationEnabled,
			"trust_forwarded_ip":   h.cfg.Fraud.TrustForwardedIP,
			"behavior_similarity":  true,
			"fingerprint_velocity": true,
		},
		"dbConnected": h.dbStore != nil,
	})
}
