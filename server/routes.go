// Package server - Introspektions-Router fuer die Kernel-Auswahl
// Beinhaltet: Server-Struct, Router-Registrierung, Middleware
package server

import (
	"net"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ollama/kselect/envconfig"
	"github.com/ollama/kselect/kernel"
	"github.com/ollama/kselect/ml"
	"github.com/ollama/kselect/version"
)

var mode string = gin.DebugMode

// Server beantwortet Auswahl-Anfragen gegen eine Registry
type Server struct {
	addr     net.Addr
	registry *kernel.Registry

	// device wird verwendet, wenn eine Anfrage kein Geraet mitbringt
	device ml.DeviceCaps
}

// New creates a server over r. Requests without a device select for device.
func New(r *kernel.Registry, device ml.DeviceCaps) *Server {
	return &Server{registry: r, device: device}
}

func init() {
	switch mode {
	case gin.DebugMode:
	case gin.ReleaseMode:
	case gin.TestMode:
	default:
		mode = gin.DebugMode
	}

	gin.SetMode(mode)
}

// GenerateRoutes erstellt und konfiguriert den HTTP-Router
func (s *Server) GenerateRoutes() http.Handler {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowWildcard = true
	corsConfig.AllowBrowserExtensions = true
	corsConfig.AllowHeaders = []string{
		"Authorization",
		"Content-Type",
		"User-Agent",
		"Accept",
		"X-Requested-With",
		requestIDHeader,
	}
	corsConfig.ExposeHeaders = []string{requestIDHeader}
	corsConfig.AllowOrigins = envconfig.AllowedOrigins()

	r := gin.Default()
	r.HandleMethodNotAllowed = true
	r.Use(
		cors.New(corsConfig),
		allowedHostsMiddleware(s.addr),
		requestIDMiddleware(),
	)

	// General
	r.HEAD("/", func(c *gin.Context) { c.String(http.StatusOK, "kselect is running") })
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "kselect is running") })
	r.HEAD("/api/version", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"version": version.Version}) })
	r.GET("/api/version", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"version": version.Version}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Katalog
	r.GET("/api/kinds", s.KindsHandler)
	r.GET("/api/kinds/:kind/implementations", s.ImplementationsHandler)
	r.GET("/api/tuning", s.TuningHandler)

	// Auswahl
	r.POST("/api/select", s.SelectHandler)
	r.POST("/api/select/batch", s.BatchHandler)
	r.POST("/api/explain", s.ExplainHandler)

	return r
}
