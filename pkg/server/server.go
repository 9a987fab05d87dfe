package server

import (
	"cmp"
	"context"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"marquee/pkg/agent"
	"marquee/pkg/flight"
	"marquee/pkg/inference"
	"marquee/pkg/schema"
	"marquee/pkg/utils"
)

// Persisted state, mirrored from the browser's settings and chat history.
const (
	settingsFile     = "Settings.json"
	conversationFile = "Conversation.json"
)

type Server struct {
	Echo *echo.Echo
	Ctx  context.Context

	Settings     schema.Settings
	Conversation schema.Conversation

	build  func(schema.Settings) inference.Inferencer
	agent  *agent.System
	models *flight.Cache[string, []inference.ModelInfo]

	// turnMu serializes turns and guards Settings, Conversation, and agent:
	// the state handlers take it too, so history is only read or replaced
	// between turns, never during one.
	turnMu sync.Mutex
	sink   *utils.SSEWriter // active turn's event stream, guarded by turnMu
}

// NewServer wires the HTTP API around a fresh orchestrator. build constructs
// the inference client for a given settings snapshot; it runs again whenever
// the settings change.
func NewServer(ctx context.Context, settings schema.Settings, build func(schema.Settings) inference.Inferencer) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Logger())
	e.Use(middleware.CORS())

	settings.Model = cmp.Or(settings.Model, schema.DefaultModel)

	s := &Server{
		Echo:         e,
		Ctx:          ctx,
		Settings:     settings,
		Conversation: schema.DefaultConversation(),
		build:        build,
	}
	s.models = flight.NewCache(10*time.Minute, func(key string) ([]inference.ModelInfo, error) {
		return inference.NewGeminiInferencer(key, s.Settings.Model).ListModels(context.Background())
	})
	s.rebuildAgent()

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.Echo.GET("/", s.handleGetRoot)

	api := s.Echo.Group("/api")
	api.POST("/chat", s.handlePostChat) // one dialogue turn, streamed as SSE

	api.GET("/messages", s.handleGetMessages)
	api.PUT("/messages", s.handlePutMessages)
	api.DELETE("/messages", s.handleDeleteMessages)

	api.GET("/settings", s.handleGetSettings)
	api.PUT("/settings", s.handlePutSettings)
	api.GET("/models", s.handleGetModels)
}

// SetConversation replaces the working history wholesale, e.g. after loading
// persisted messages at startup.
func (s *Server) SetConversation(conv schema.Conversation) {
	if len(conv.Messages) == 0 {
		conv = schema.DefaultConversation()
	}
	s.Conversation = conv
	s.agent.SetHistory(conv.Messages)
}

// rebuildAgent discards the orchestrator and starts a fresh one from the
// current settings, keeping the conversation history.
func (s *Server) rebuildAgent() {
	s.agent = agent.New(s.build(s.Settings), s.appendBatch, s.agentChanged)
	s.agent.SetHistory(s.Conversation.Messages)
}

// appendBatch receives each batch of messages the orchestrator emits.
func (s *Server) appendBatch(batch []schema.Message) {
	s.Conversation.Messages = append(s.Conversation.Messages, batch...)
	if s.sink != nil {
		_ = s.sink.Event("messages", batch)
	}
}

// agentChanged receives the display name of the agent about to run.
func (s *Server) agentChanged(name string) {
	if s.sink != nil {
		_ = s.sink.Event("agent", map[string]string{"name": name})
	}
}

func (s *Server) Start(addr string) error {
	s.Echo.Logger.Infof("server listening at %s", addr)
	return s.Echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.Echo.Logger.Info("shutting down server...")

	saveErr := utils.Save(settingsFile, s.Settings)
	_ = utils.Save(conversationFile, s.Conversation)
	if err := s.Echo.Shutdown(ctx); err != nil {
		return err
	}

	return saveErr
}
