package dashboard

import (
	"context"

	"github.com/labstack/echo"
	"shards.io/shards/pkg/coordinator"
)

const (
	version = "/v1"
)

// Cfg dashboard configuration
type Cfg struct {
	Addr     string
	UI       string
	UIPrefix string
}

// Dashboard an api dashboard server over one coordinator
type Dashboard struct {
	cfg    Cfg
	server *echo.Echo
	coord  *coordinator.Coordinator
}

// NewDashboard returns a dashboard server
func NewDashboard(cfg Cfg, coord *coordinator.Coordinator) *Dashboard {
	s := &Dashboard{
		cfg:    cfg,
		server: echo.New(),
		coord:  coord,
	}

	s.initRoute()
	return s
}

func (s *Dashboard) initRoute() {
	if s.cfg.UI != "" {
		s.server.Static(s.cfg.UIPrefix, s.cfg.UI)
	}

	versionGroup := s.server.Group(version)
	versionGroup.GET("/shards", s.shards())
	versionGroup.GET("/stats", s.stats())
	versionGroup.POST("/queries", s.executeQuery())
}

// Start start the dashboard
func (s *Dashboard) Start() error {
	return s.server.Start(s.cfg.Addr)
}

// Stop stop the dashboard
func (s *Dashboard) Stop() error {
	return s.server.Shutdown(context.TODO())
}
