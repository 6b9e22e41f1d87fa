package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agenthands/showrunner/internal/config"
	"github.com/agenthands/showrunner/internal/core"
	"github.com/agenthands/showrunner/internal/core/model"
	"github.com/agenthands/showrunner/internal/core/plot"
	"github.com/agenthands/showrunner/internal/driver"
	"github.com/agenthands/showrunner/internal/llm"
)

type Server struct {
	Showrunner *core.Showrunner
}

func NewServer() *Server {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.toml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Printf("Could not load %s: %v. Using built-in defaults", cfgPath, err)
		cfg = config.Default()
	}

	// Env vars win over the config file.
	if envProvider := os.Getenv("LLM_PROVIDER"); envProvider != "" {
		cfg.LLM.Provider = envProvider
	}
	if envModel := os.Getenv("LLM_MODEL"); envModel != "" {
		cfg.LLM.Model = envModel
	}
	if envAPIKey := os.Getenv("LLM_API_KEY"); envAPIKey != "" {
		cfg.LLM.APIKey = envAPIKey
	}
	if envBaseURL := os.Getenv("LLM_BASE_URL"); envBaseURL != "" {
		cfg.LLM.BaseURL = envBaseURL
	}
	if envURI := os.Getenv("ARCHIVE_URI"); envURI != "" {
		cfg.Archive.Enabled = true
		cfg.Archive.URI = envURI
		cfg.Archive.User = os.Getenv("ARCHIVE_USER")
		cfg.Archive.Password = os.Getenv("ARCHIVE_PASSWORD")
	}

	// Default to Ollama if provider is empty
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "ollama"
		cfg.LLM.Model = "gpt-oss:latest"
		cfg.LLM.BaseURL = "http://localhost:11434"
	}

	client, err := llm.NewClient(context.Background(), cfg.LLM)
	if err != nil {
		log.Fatalf("Failed to initialize LLM client: %v", err)
	}

	var archive driver.Archive
	if cfg.Archive.Enabled {
		a, err := driver.NewGraphArchive(cfg.Archive.URI, cfg.Archive.User, cfg.Archive.Password)
		if err != nil {
			// Archiving is downstream of generation; run without it.
			log.Printf("Warning: episode archive unavailable: %v", err)
		} else {
			_ = a.BuildIndices(context.Background())
			archive = a
		}
	}

	return &Server{
		Showrunner: core.NewShowrunner(client, cfg, archive),
	}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.Default()

	r.POST("/episodes", s.GenerateEpisode)
	r.GET("/healthz", s.Health)

	return r
}

type EpisodeRequest struct {
	Title          string                  `json:"title" binding:"required"`
	Synopsis       string                  `json:"synopsis"`
	Themes         []string                `json:"themes"`
	Genre          string                  `json:"genre"`
	Tone           string                  `json:"tone"`
	Pattern        string                  `json:"pattern" binding:"required"`
	Characters     []model.Character       `json:"characters"`
	Storylines     []model.StorylineThread `json:"storylines"`
	SkipSimulation bool                    `json:"skip_simulation"`
	DurationMins   int                     `json:"duration_minutes"`
	StepMins       int                     `json:"step_minutes"`
	EpisodeLength  int                     `json:"episode_length"`
}

func (s *Server) GenerateEpisode(c *gin.Context) {
	var req EpisodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	genReq := core.GenerateRequest{
		Brief: model.Brief{
			Title:    req.Title,
			Synopsis: req.Synopsis,
			Themes:   req.Themes,
			Genre:    req.Genre,
			Tone:     req.Tone,
			Pattern:  req.Pattern,
		},
		Characters:     req.Characters,
		Storylines:     req.Storylines,
		SkipSimulation: req.SkipSimulation,
		Duration:       time.Duration(req.DurationMins) * time.Minute,
		Step:           time.Duration(req.StepMins) * time.Minute,
		EpisodeLength:  req.EpisodeLength,
	}

	episode, err := s.Showrunner.GenerateEpisode(c.Request.Context(), genReq)
	if err != nil {
		var patternErr *plot.InvalidPatternError
		if errors.As(err, &patternErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": patternErr.Error()})
			return
		}
		log.Printf("Failed to generate episode: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate episode"})
		return
	}

	c.JSON(http.StatusOK, episode)
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
