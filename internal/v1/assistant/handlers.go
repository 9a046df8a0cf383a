package assistant

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/euphorie/Euphorie/backend/go/internal/v1/logging"
	"github.com/euphorie/Euphorie/backend/go/internal/v1/metrics"
	"github.com/euphorie/Euphorie/backend/go/internal/v1/middleware"
	"github.com/euphorie/Euphorie/backend/go/internal/v1/news"
	"github.com/euphorie/Euphorie/backend/go/internal/v1/ratelimit"
	"github.com/euphorie/Euphorie/backend/go/internal/v1/vision"
)

// maxImageBytes caps uploaded vision frames at 8 MiB.
const maxImageBytes = 8 << 20

// allowedOrigins is the browser allow-list for the assistant API.
var allowedOrigins = []string{
	"https://localhost:5173",
	"https://127.0.0.1:5173",
	"http://localhost:5173",
}

// Service bundles the handlers and their upstream clients.
type Service struct {
	vision *vision.Client
	news   *news.Client
	now    func() time.Time
}

// NewService wires the assistant handlers to their upstreams.
func NewService(visionClient *vision.Client, newsClient *news.Client) *Service {
	return &Service{
		vision: visionClient,
		news:   newsClient,
		now:    time.Now,
	}
}

// Router builds the gin engine for the assistant service.
func (s *Service) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("euphorie-assistant"))
	router.Use(middleware.CorrelationID())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"*"},
		AllowCredentials: true,
	}))

	if limiter, err := ratelimit.NewHTTPMiddleware("60-M"); err == nil {
		router.Use(limiter)
	}

	router.GET("/", s.handleHealth)
	router.GET("/health", s.handleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.POST("/chat", s.handleChat)
		api.POST("/vision/analyze", s.handleVision)
		api.GET("/news/feed", s.handleNews)
	}

	return router
}

// handleHealth reports liveness in the shape clients already poll for.
func (s *Service) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "healthy",
		"service":       "euphorie-ai",
		"jarvis_status": "active",
		"timestamp":     s.now().Unix(),
	})
}

type chatRequest struct {
	Message  string `json:"message"`
	UserName string `json:"user_name"`
	UserID   string `json:"user_id"`
	RoomID   string `json:"room_id"`
}

func (s *Service) handleChat(c *gin.Context) {
	metrics.AssistantRequests.WithLabelValues("chat").Inc()

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	logging.Info(c.Request.Context(), "chat request",
		zap.String("user_name", req.UserName),
		zap.String("room_id", req.RoomID))

	c.JSON(http.StatusOK, gin.H{
		"response":   Respond(req.Message, req.UserName),
		"agent_name": AgentName,
		"confidence": responseConfidence,
		"timestamp":  s.now().Unix(),
	})
}

func (s *Service) handleVision(c *gin.Context) {
	metrics.AssistantRequests.WithLabelValues("vision").Inc()

	file, _, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image field is required"})
		return
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, maxImageBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read image"})
		return
	}
	userID := c.Request.FormValue("user_id")
	if userID == "" {
		userID = "unknown"
	}

	analysis, err := s.vision.Analyze(c.Request.Context(), image, userID)
	if err != nil {
		logging.Error(c.Request.Context(), "vision upstream failed",
			zap.String("user_id", userID), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "vision backend unavailable"})
		return
	}

	resp := gin.H{
		"insight":           analysis.Insight,
		"scene_description": analysis.SceneDescription,
		"objects_detected":  analysis.ObjectsDetected,
		"should_respond":    analysis.ShouldRespond,
		"confidence":        analysis.Confidence,
		"timestamp":         s.now().Unix(),
	}
	if len(analysis.Suggestions) > 0 {
		resp["suggestions"] = analysis.Suggestions
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Service) handleNews(c *gin.Context) {
	metrics.AssistantRequests.WithLabelValues("news").Inc()

	body, err := s.news.Fetch(c.Request.Context())
	if err != nil {
		if errors.Is(err, news.ErrNotConfigured) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "news feed not configured"})
			return
		}
		logging.Error(c.Request.Context(), "news upstream failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "news feed unavailable"})
		return
	}

	c.Data(http.StatusOK, "application/json", body)
}
