// routes_select.go - Handler fuer Katalog-Abfragen und Kernel-Auswahl
// Enthaelt: KindsHandler, ImplementationsHandler, SelectHandler, BatchHandler, ExplainHandler, TuningHandler

package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ollama/kselect/api"
	"github.com/ollama/kselect/kernel"
	"github.com/ollama/kselect/tuning"
)

// maxBatch begrenzt die Primitive pro Batch-Anfrage
const maxBatch = 4096

// statusFor bildet Auswahl-Fehler auf HTTP-Status ab
func statusFor(err error) int {
	switch {
	case errors.Is(err, kernel.ErrUnknownKind):
		return http.StatusNotFound
	case errors.Is(err, kernel.ErrInvalidParams), errors.Is(err, kernel.ErrKindMismatch):
		return http.StatusBadRequest
	case errors.Is(err, kernel.ErrNoApplicable), errors.Is(err, kernel.ErrAllBuildsFailed):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func abort(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("selection failed", "request_id", requestID(c), "error", err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

// ============================================================================
// Katalog
// ============================================================================

func (s *Server) KindsHandler(c *gin.Context) {
	var resp api.KindsResponse
	for _, kind := range s.registry.Kinds() {
		sel, err := s.registry.GetSelector(kind)
		if err != nil {
			abort(c, err)
			return
		}
		resp.Kinds = append(resp.Kinds, api.KindInfo{Kind: kind.String(), Implementations: len(sel.Implementations())})
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) ImplementationsHandler(c *gin.Context) {
	sel, err := s.registry.GetSelector(kernel.ParseKind(c.Param("kind")))
	if err != nil {
		abort(c, err)
		return
	}

	resp := api.ImplementationsResponse{Kind: sel.Kind().String()}
	for i, impl := range sel.Implementations() {
		info := api.ImplementationInfo{Name: impl.Name(), Position: i, Disabled: sel.Disabled(impl.Name())}
		if k, ok := impl.(kernel.KeyedImplementation); ok {
			info.Key = k.SupportedKey().String()
		}
		resp.Implementations = append(resp.Implementations, info)
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) TuningHandler(c *gin.Context) {
	resp := api.TuningResponse{Records: []tuning.Record{}}
	if all, ok := s.registry.Tuning().(interface{ All() []tuning.Record }); ok {
		resp.Records = all.All()
	}
	c.JSON(http.StatusOK, resp)
}

// ============================================================================
// Auswahl
// ============================================================================

func (s *Server) params(c *gin.Context, req *api.SelectRequest) (*kernel.Params, bool) {
	p, err := req.Params(s.device)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	return p, true
}

func (s *Server) SelectHandler(c *gin.Context) {
	var req api.SelectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, ok := s.params(c, &req)
	if !ok {
		return
	}

	plans, err := s.registry.GetBestKernels(p)
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, api.SelectResponse{
		ID:          requestID(c),
		Kind:        p.Kind().String(),
		Fingerprint: p.Fingerprint(),
		Plans:       plans,
	})
}

func (s *Server) BatchHandler(c *gin.Context) {
	var req api.BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Primitives) > maxBatch {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("batch too large: %d primitives, limit %d", len(req.Primitives), maxBatch)})
		return
	}

	ps := make([]*kernel.Params, len(req.Primitives))
	for i := range req.Primitives {
		p, err := req.Primitives[i].Params(s.device)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("primitive %d: %v", i, err)})
			return
		}
		ps[i] = p
	}

	results, err := s.registry.SelectAll(c.Request.Context(), ps)
	if err != nil {
		abort(c, err)
		return
	}

	resp := api.BatchResponse{ID: requestID(c), Results: make([]api.SelectResponse, len(ps))}
	for i, p := range ps {
		resp.Results[i] = api.SelectResponse{
			Kind:        p.Kind().String(),
			Fingerprint: p.Fingerprint(),
			Plans:       results[i],
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) ExplainHandler(c *gin.Context) {
	var req api.SelectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, ok := s.params(c, &req)
	if !ok {
		return
	}

	candidates, err := s.registry.Explain(p)
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, api.ExplainResponse{
		ID:          requestID(c),
		Kind:        p.Kind().String(),
		Fingerprint: p.Fingerprint(),
		Key:         p.Key().String(),
		Candidates:  candidates,
	})
}
