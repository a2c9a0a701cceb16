package http

import (
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ivszhuravlev/rt-bioeval/internal/application/pipeline"
	"github.com/ivszhuravlev/rt-bioeval/internal/infrastructure/monitoring/logging"
	"github.com/ivszhuravlev/rt-bioeval/pkg/errors"
)

// errorResponse is the standard error body.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// respondError maps an application error onto its HTTP status.  Internal
// errors are masked; everything else carries the error code and message.
func (s *Server) respondError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := errors.HTTPStatusForCode(code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("internal error", logging.Err(err),
			logging.String("path", c.Request.URL.Path))
		c.JSON(status, errorResponse{Code: string(code), Message: "internal server error"})
		return
	}
	c.JSON(status, errorResponse{Code: string(code), Message: err.Error()})
}

func (s *Server) handleIndex(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "rt-bioeval",
		"endpoints": []string{
			"POST /api/v1/analyze",
			"GET /api/v1/results",
			"GET /api/v1/results/:name",
			"GET /healthz",
		},
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleAnalyze accepts a multipart upload of DVH export files under the
// "files[]" field, runs the full pipeline over them, writes the exports
// into the configured output directory and returns the run report.
func (s *Server) handleAnalyze(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		s.respondError(c, errors.Validation("multipart form expected").WithCause(err))
		return
	}
	files := form.File["files[]"]
	if len(files) == 0 {
		s.respondError(c, errors.Validation("no files uploaded"))
		return
	}

	uploadDir, err := os.MkdirTemp("", "rtbioeval-upload-*")
	if err != nil {
		s.respondError(c, errors.Internal("cannot create upload directory").WithCause(err))
		return
	}
	defer os.RemoveAll(uploadDir)

	saved := 0
	for _, file := range files {
		if !strings.HasSuffix(file.Filename, ".txt") {
			continue
		}
		if err := saveUpload(c, file, uploadDir); err != nil {
			s.respondError(c, err)
			return
		}
		saved++
	}
	if saved == 0 {
		s.respondError(c, errors.Validation("no DVH files (.txt) in upload"))
		return
	}

	runCfg := s.pipelineCfg
	runCfg.InputDir = uploadDir
	runCfg.Patients = nil
	runner, err := pipeline.NewRunner(runCfg, s.parser, s.analyzer, s.metrics, s.logger)
	if err != nil {
		s.respondError(c, err)
		return
	}

	report, err := runner.Run(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	if err := pipeline.Export(report, runCfg.OutputDir); err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

func saveUpload(c *gin.Context, file *multipart.FileHeader, dir string) error {
	name := filepath.Base(file.Filename)
	if name == "." || name == ".." {
		return errors.Validation("bad upload file name").WithDetail(file.Filename)
	}
	if err := c.SaveUploadedFile(file, filepath.Join(dir, name)); err != nil {
		return errors.Internal("cannot store uploaded file").
			WithDetail(name).WithCause(err)
	}
	return nil
}

type resultFile struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// handleListResults lists the export files of the last run.
func (s *Server) handleListResults(c *gin.Context) {
	entries, err := os.ReadDir(s.pipelineCfg.OutputDir)
	if err != nil {
		if os.IsNotExist(err) {
			c.JSON(http.StatusOK, gin.H{"files": []resultFile{}})
			return
		}
		s.respondError(c, errors.Internal("cannot read output directory").WithCause(err))
		return
	}

	files := make([]resultFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, resultFile{Name: entry.Name(), Size: info.Size()})
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}

// handleDownloadResult serves one export file as an attachment.
func (s *Server) handleDownloadResult(c *gin.Context) {
	name := c.Param("name")
	if name != filepath.Base(name) || name == "." || name == ".." {
		s.respondError(c, errors.Validation("bad result file name").WithDetail(name))
		return
	}

	path := filepath.Join(s.pipelineCfg.OutputDir, name)
	if _, err := os.Stat(path); err != nil {
		s.respondError(c, errors.NotFound("result file not found").WithDetail(name))
		return
	}
	c.FileAttachment(path, name)
}
