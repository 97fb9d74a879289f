package handlers

import (
	"fmt"
	"net/http"

	"learnverse/internal/observability"
	"learnverse/internal/services"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// ImportRequest is the body of POST /v1/import.
// An exported profile document has the same entries field and can be posted back unchanged.
type ImportRequest struct {
	Entries map[string]string `json:"entries" binding:"required"`
	Replace bool              `json:"replace"`
}

// TransferHandler serves profile export and import
type TransferHandler struct {
	transferService services.TransferServiceInterface
	logger          *observability.Logger
}

// NewTransferHandler creates a new TransferHandler instance
func NewTransferHandler(transferService services.TransferServiceInterface, logger *observability.Logger) *TransferHandler {
	return &TransferHandler{
		transferService: transferService,
		logger:          logger,
	}
}

// Export handles GET /v1/export
func (h *TransferHandler) Export(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "export_profile")
	defer observability.FinishSpan(span, nil)

	profileID, ok := requireProfileID(c, h.logger)
	if !ok {
		return
	}
	span.SetAttributes(observability.AttributeProfileID(profileID))

	doc, err := h.transferService.Export(ctx, profileID)
	if err != nil {
		h.logger.Error(ctx, "Failed to export profile", err, map[string]interface{}{"profile_id": profileID})
		HandleAppError(c, err)
		return
	}
	span.SetAttributes(attribute.Int("export.keys", len(doc.Entries)))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"learnverse-%s.json\"", profileID))
	c.JSON(http.StatusOK, doc)
}

// Import handles POST /v1/import
func (h *TransferHandler) Import(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "import_profile")
	defer observability.FinishSpan(span, nil)

	profileID, ok := requireProfileID(c, h.logger)
	if !ok {
		return
	}
	span.SetAttributes(observability.AttributeProfileID(profileID))

	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn(ctx, "Invalid import request format", map[string]interface{}{"error": err.Error()})
		HandleValidationError(c, "entries", "", err.Error())
		return
	}
	span.SetAttributes(attribute.Int("import.keys", len(req.Entries)), attribute.Bool("import.replace", req.Replace))

	result, err := h.transferService.Import(ctx, profileID, req.Entries, req.Replace)
	if err != nil {
		h.logger.Warn(ctx, "Profile import rejected", map[string]interface{}{
			"profile_id": profileID,
			"error":      err.Error(),
		})
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
