package server

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/bidwin/internal/document"
	"github.com/spigell/bidwin/internal/pipeline"
	"github.com/spigell/bidwin/internal/tender"
)

const downloadPrefix = "/api/agents/main/download/"

type chatRequest struct {
	Question string `json:"question" binding:"required"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listProducts(c *gin.Context) {
	products, err := s.catalog.ListProducts(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	if products == nil {
		products = []tender.Product{}
	}
	c.JSON(http.StatusOK, products)
}

func (s *Server) listRFPs(c *gin.Context) {
	rfps, err := s.catalog.ListRFPs(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	if rfps == nil {
		rfps = []*tender.RFP{}
	}
	c.JSON(http.StatusOK, rfps)
}

func (s *Server) upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if !document.Supported(file.Filename) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unsupported document type %q", filepath.Ext(file.Filename))})
		return
	}

	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		s.fail(c, fmt.Errorf("create upload dir: %w", err))
		return
	}

	name := fmt.Sprintf("manual_%s_%s", uuid.NewString(), strings.ReplaceAll(filepath.Base(file.Filename), " ", "_"))
	path := filepath.Join(s.cfg.UploadDir, name)
	if err := c.SaveUploadedFile(file, path); err != nil {
		s.fail(c, fmt.Errorf("save upload: %w", err))
		return
	}

	rfp, _, err := s.pipeline.Register(c.Request.Context(), pipeline.Registration{
		Path:       path,
		Title:      c.PostForm("title"),
		ClientName: c.PostForm("client"),
		Deadline:   c.PostForm("deadline"),
	})
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status":   "success",
		"message":  "RFP uploaded successfully",
		"rfp_id":   rfp.ID,
		"file_url": rfp.FileURL,
	})
}

func (s *Server) analyze(c *gin.Context) {
	id, ok := rfpID(c)
	if !ok {
		return
	}

	res, err := s.pipeline.Analyze(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":        "success",
		"rfp_id":        res.RFP.ID,
		"rfp_status":    res.RFP.Status,
		"items_found":   res.Step.Initial,
		"items_matched": res.Step.Matched,
		"data":          res.RFP.Data,
	})
}

func (s *Server) calculate(c *gin.Context) {
	id, ok := rfpID(c)
	if !ok {
		return
	}

	res, err := s.pipeline.Price(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "success",
		"rfp_id":     res.RFP.ID,
		"rfp_status": res.RFP.Status,
		"pricing":    res.RFP.Data.Commercial,
	})
}

func (s *Server) generateProposal(c *gin.Context) {
	id, ok := rfpID(c)
	if !ok {
		return
	}

	res, err := s.pipeline.Propose(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":             "success",
		"rfp_id":             res.RFP.ID,
		"rfp_status":         res.RFP.Status,
		"download_url":       downloadPrefix + res.Files.Proposal,
		"quote_download_url": downloadPrefix + res.Files.Quote,
	})
}

func (s *Server) download(c *gin.Context) {
	name := c.Param("filename")
	path, err := s.files.Path(name)
	if err != nil {
		if errors.Is(err, tender.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.FileAttachment(path, name)
}

func (s *Server) chat(c *gin.Context) {
	id, ok := rfpID(c)
	if !ok {
		return
	}

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question is required"})
		return
	}

	answer, err := s.pipeline.Ask(c.Request.Context(), id, req.Question)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"response": answer})
}

func rfpID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rfp id"})
		return 0, false
	}
	return id, true
}

// fail maps domain errors to HTTP statuses.
func (s *Server) fail(c *gin.Context, err error) {
	var (
		schemaErr     *tender.SchemaVersionError
		extractionErr *tender.ExtractionError
		capabilityErr *tender.CapabilityError
	)

	switch {
	case errors.Is(err, tender.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &schemaErr), errors.Is(err, tender.ErrNotReady):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &extractionErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "raw": extractionErr.Raw})
	case errors.Is(err, tender.ErrEmptyDocument):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, pipeline.ErrEmptyQuestion):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &capabilityErr):
		s.logger.Warn("reasoning capability failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		s.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
