package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"newsbrief/internal/export"
	"newsbrief/internal/search"
)

type ExportHandler struct {
	exporter *export.Exporter
	reports  *export.ReportGenerator
	log      *zap.Logger
}

func NewExportHandler(exporter *export.Exporter, reports *export.ReportGenerator, log *zap.Logger) *ExportHandler {
	return &ExportHandler{exporter: exporter, reports: reports, log: log}
}

// UserData downloads the current user's data as json, csv or xml
// @Summary Export user data
// @Produce json
// @Router /api/export/user-data [get]
func (h *ExportHandler) UserData(c *gin.Context) {
	userID := currentUserID(c)
	format := strings.ToLower(c.DefaultQuery("format", "json"))

	data, contentType, err := h.exporter.ExportUserData(userID, format)
	if err != nil {
		var unsupported export.ErrUnsupportedFormat
		if errors.As(err, &unsupported) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		h.log.Error("user export failed", zap.Uint("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Export failed"})
		return
	}

	filename := fmt.Sprintf("user_data_%d_%s.%s", userID, time.Now().Format("20060102"), format)
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, contentType, data)
}

// AnalyticsData downloads analytics for a period as json, csv or xml
// @Summary Export analytics
// @Produce json
// @Router /api/export/analytics [get]
func (h *ExportHandler) AnalyticsData(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))
	format := strings.ToLower(c.DefaultQuery("format", "json"))

	data, contentType, err := h.exporter.ExportAnalytics(days, format)
	if err != nil {
		var unsupported export.ErrUnsupportedFormat
		if errors.As(err, &unsupported) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		h.log.Error("analytics export failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Export failed"})
		return
	}

	filename := fmt.Sprintf("analytics_%ddays_%s.%s", days, time.Now().Format("20060102"), format)
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, contentType, data)
}

// Articles downloads indexed articles matching the filters
// @Summary Export articles
// @Produce json
// @Router /api/export/articles [get]
func (h *ExportHandler) Articles(c *gin.Context) {
	format := strings.ToLower(c.DefaultQuery("format", "json"))
	filters := search.ValidateFilters(search.Filters{
		Category: c.Query("category"),
		DateFrom: c.Query("date_from"),
		DateTo:   c.Query("date_to"),
	})

	data, contentType, err := h.exporter.ExportArticles(filters, format)
	if err != nil {
		var unsupported export.ErrUnsupportedFormat
		if errors.As(err, &unsupported) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		h.log.Error("articles export failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Export failed"})
		return
	}

	filename := fmt.Sprintf("articles_%s.%s", time.Now().Format("20060102"), format)
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, contentType, data)
}

// Backup downloads a full ZIP backup
// @Summary Full backup
// @Produce application/zip
// @Router /api/export/backup [get]
func (h *ExportHandler) Backup(c *gin.Context) {
	includeUsers := strings.EqualFold(c.DefaultQuery("include_users", "false"), "true")

	data, err := h.exporter.FullBackup(includeUsers)
	if err != nil {
		h.log.Error("backup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Backup failed"})
		return
	}

	filename := fmt.Sprintf("backup_%s.zip", time.Now().Format("20060102_150405"))
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/zip", data)
}

// UsageReport returns the generated usage report for a period
// @Summary Usage report
// @Produce json
// @Router /admin/api/reports/usage [get]
func (h *ExportHandler) UsageReport(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))

	report, err := h.reports.UsageReport(days)
	if err != nil {
		h.log.Error("usage report failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Report generation failed"})
		return
	}
	c.JSON(http.StatusOK, report)
}
