package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/cra-planner/internal/domain"
	"github.com/andresuchdata/cra-planner/internal/drive"
	"github.com/andresuchdata/cra-planner/internal/feed"
	"github.com/andresuchdata/cra-planner/internal/planning"
	"github.com/andresuchdata/cra-planner/internal/repository"
	"github.com/andresuchdata/cra-planner/internal/service"
	"github.com/andresuchdata/cra-planner/internal/storage"
)

// RunIDHeader carries the run id of a generated report.
const RunIDHeader = "X-Run-ID"

const maxUploadBytes = 20 << 20

// Planner is the part of the planning service the HTTP API exposes.
type Planner interface {
	ListWarehouses(ctx context.Context) ([]domain.WarehouseOption, error)
	GenerateReport(ctx context.Context, req domain.ReportRequest) (*domain.ReportResult, error)
	RefreshInventory(ctx context.Context) error
	ListRuns(ctx context.Context, warehouse string, limit int) ([]domain.ReportRun, error)
	GetRun(ctx context.Context, id string) (*domain.ReportRun, error)
	ListArchive(ctx context.Context, branch string) ([]storage.ObjectInfo, error)
	GetArchived(ctx context.Context, key string) ([]byte, error)
}

var _ Planner = (*service.PlanningService)(nil)

type ReportHandler struct {
	planner Planner
}

func NewReportHandler(planner Planner) *ReportHandler {
	return &ReportHandler{planner: planner}
}

// ListWarehouses returns the warehouse catalogue of the inventory snapshot.
func (h *ReportHandler) ListWarehouses(c *gin.Context) {
	options, err := h.planner.ListWarehouses(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"warehouses": options})
}

func (h *ReportHandler) RefreshInventory(c *gin.Context) {
	if err := h.planner.RefreshInventory(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "refreshed"})
}

// GenerateReport builds a report from a multipart form (warehouse, coverage,
// transfer_tag, transit_file, transfer_file) and streams the workbook back.
func (h *ReportHandler) GenerateReport(c *gin.Context) {
	req := domain.ReportRequest{
		Warehouse:   strings.TrimSpace(c.PostForm("warehouse")),
		TransferTag: strings.TrimSpace(c.PostForm("transfer_tag")),
	}
	if req.Warehouse == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "warehouse is required"})
		return
	}

	if raw := strings.TrimSpace(c.PostForm("coverage")); raw != "" {
		coverage, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid coverage %q", raw)})
			return
		}
		req.Coverage = coverage
	}

	var err error
	if req.TransitFile, req.TransitFileName, err = formFile(c, "transit_file"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.TransferFile, req.TransferFileName, err = formFile(c, "transfer_file"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.planner.GenerateReport(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header(RunIDHeader, result.Run.ID)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, result.FileName))
	c.Data(http.StatusOK, drive.XLSXMimeType, result.Content)
}

// formFile reads an optional uploaded file. A missing field is not an error.
func formFile(c *gin.Context, field string) ([]byte, string, error) {
	header, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("invalid %s: %w", field, err)
	}
	if header.Size > maxUploadBytes {
		return nil, "", fmt.Errorf("%s exceeds %d bytes", field, maxUploadBytes)
	}

	data, err := readUpload(header)
	if err != nil {
		return nil, "", fmt.Errorf("unable to read %s: %w", field, err)
	}
	return data, header.Filename, nil
}

func readUpload(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, maxUploadBytes))
}

func (h *ReportHandler) ListRuns(c *gin.Context) {
	limit := 50
	if l, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil && l > 0 {
		limit = l
	}

	runs, err := h.planner.ListRuns(c.Request.Context(), c.Query("warehouse"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (h *ReportHandler) GetRun(c *gin.Context) {
	run, err := h.planner.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

func (h *ReportHandler) ListArchive(c *gin.Context) {
	objects, err := h.planner.ListArchive(c.Request.Context(), c.Query("branch"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": objects})
}

func (h *ReportHandler) DownloadArchived(c *gin.Context) {
	key := strings.TrimSpace(c.Query("key"))
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key is required"})
		return
	}

	data, err := h.planner.GetArchived(c.Request.Context(), key)
	if err != nil {
		respondError(c, err)
		return
	}

	name := key[strings.LastIndex(key, "/")+1:]
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, drive.XLSXMimeType, data)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrWarehouseNotFound),
		errors.Is(err, repository.ErrRunNotFound),
		errors.Is(err, service.ErrArchiveDisabled):
		return http.StatusNotFound
	case errors.Is(err, feed.ErrInventoryUnavailable),
		errors.Is(err, drive.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, planning.ErrInvalidCoverage),
		errors.Is(err, feed.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
