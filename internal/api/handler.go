package api

import (
	"net/http"
	"strconv"

	"grade-import-service/internal/config"
	"grade-import-service/internal/importer"
	"grade-import-service/internal/logger"
	"grade-import-service/internal/model"
	apperrors "grade-import-service/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type Handler struct {
	svc *importer.Service
	cfg *config.Config
	log zerolog.Logger
}

func NewHandler(svc *importer.Service, cfg *config.Config) *Handler {
	return &Handler{
		svc: svc,
		cfg: cfg,
		log: logger.Get(),
	}
}

// Upload accepts the scope descriptor plus the raw tabular file and opens a
// draft.
func (h *Handler) Upload(c *gin.Context) {
	scope, err := scopeFromForm(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if max := h.cfg.Import.MaxUploadBytes; max > 0 && fileHeader.Size > max {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file exceeds maximum upload size"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to open uploaded file"})
		return
	}
	defer file.Close()

	draft, err := h.svc.Submit(c.Request.Context(), scope, file)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, model.SubmitResponse{DraftID: draft.ID, Status: draft.Status})
}

// Preview validates the draft under the supplied column mapping.
func (h *Handler) Preview(c *gin.Context) {
	var req model.PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	result, err := h.svc.Preview(c.Request.Context(), c.Param("draft_id"), req.Mapping)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Confirm commits the draft's valid rows. Terminal.
func (h *Handler) Confirm(c *gin.Context) {
	result, err := h.svc.Confirm(c.Request.Context(), c.Param("draft_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetGrades returns the roster x evaluation matrix for a scope.
func (h *Handler) GetGrades(c *gin.Context) {
	scope, err := scopeFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	matrix, err := h.svc.ReadMatrix(c.Request.Context(), scope)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, matrix)
}

// PutGrades replaces grade values for a scope, last-write-wins.
func (h *Handler) PutGrades(c *gin.Context) {
	var req model.MatrixWriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := h.svc.WriteMatrix(c.Request.Context(), req.Scope, req.Grades); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Grades replaced"})
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": h.cfg.App.Name,
		"version": h.cfg.App.Version,
	})
}

func (h *Handler) respondError(c *gin.Context, err error) {
	code := apperrors.CodeOf(err)
	status := statusForCode(code)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
	} else {
		h.log.Warn().Err(err).Str("path", c.FullPath()).Msg("Request rejected")
	}

	body := gin.H{"error": err.Error()}
	if code != "" {
		body["code"] = string(code)
	}
	c.JSON(status, body)
}

func statusForCode(code apperrors.Code) int {
	switch code {
	case apperrors.CodeScopeIncomplete, apperrors.CodeMappingNotSet,
		apperrors.CodeInvalidRange, apperrors.CodeInvalidFormat:
		return http.StatusBadRequest
	case apperrors.CodeDraftNotFound:
		return http.StatusNotFound
	case apperrors.CodeDraftExpired:
		return http.StatusGone
	case apperrors.CodeAlreadyConfirmed, apperrors.CodeConflict:
		return http.StatusConflict
	case apperrors.CodeStorageError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func scopeFromForm(c *gin.Context) (model.Scope, error) {
	return buildScope(
		c.PostForm("period_id"), c.PostForm("subject_id"),
		c.PostForm("course_id"), c.PostForm("parallel_id"))
}

func scopeFromQuery(c *gin.Context) (model.Scope, error) {
	return buildScope(
		c.Query("period_id"), c.Query("subject_id"),
		c.Query("course_id"), c.Query("parallel_id"))
}

func buildScope(period, subject, course, parallel string) (model.Scope, error) {
	var scope model.Scope
	var err error

	parse := func(name, value string) int64 {
		if value == "" || err != nil {
			return 0
		}
		var id int64
		if id, err = strconv.ParseInt(value, 10, 64); err != nil {
			err = apperrors.Newf(apperrors.CodeScopeIncomplete, "%s is not a valid id", name)
		}
		return id
	}

	scope.PeriodID = parse("period_id", period)
	scope.SubjectID = parse("subject_id", subject)
	scope.CourseID = parse("course_id", course)
	if parallel != "" {
		id := parse("parallel_id", parallel)
		scope.ParallelID = &id
	}
	return scope, err
}
