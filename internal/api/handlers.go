package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"depression-risk-service/internal/artifacts"
	apperrors "depression-risk-service/internal/common/errors"
	"depression-risk-service/internal/common/logger"
	"depression-risk-service/internal/common/metrics"
	"depression-risk-service/internal/common/observability"
	"depression-risk-service/internal/common/validation"
	"depression-risk-service/internal/models"
	"depression-risk-service/internal/scoring"
)

// Scorer runs the scoring pipeline for one validated input.
type Scorer interface {
	Score(in models.DepressionAssessmentInput) (*models.PredictionResult, error)
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error     ErrorDetail `json:"error"`
	RequestID string      `json:"requestId,omitempty"`
}

type ErrorDetail struct {
	Code    apperrors.ErrorCode    `json:"code"`
	Message string                 `json:"message"`
	Details string                 `json:"details,omitempty"`
	Fields  []apperrors.FieldError `json:"fields,omitempty"`
}

// ModelInfo is returned by GET /model.
type ModelInfo struct {
	artifacts.Metadata
	FeatureColumns []string            `json:"featureColumns"`
	ScaledColumns  []string            `json:"scaledColumns"`
	Vocabulary     map[string][]string `json:"vocabulary"`
	RiskLevels     []scoring.RiskLevel `json:"riskLevels"`
}

type handler struct {
	store        *artifacts.Store
	scorer       Scorer
	validator    *validation.Validator
	obs          *observability.Observability
	logger       logger.Logger
	maxBodyBytes int64
	ready        func() bool
}

func (h *handler) predict(c *gin.Context) {
	start := time.Now()
	ctx, span := h.obs.StartSpan(c.Request.Context(), "predict",
		attribute.String("request.id", requestIDFrom(c)))
	defer span.End()

	result, err := h.score(c)
	elapsed := time.Since(start)
	metrics.PredictionDuration.WithLabelValues(metrics.TransportHTTP).Observe(elapsed.Seconds())

	if err != nil {
		se := apperrors.Normalize(err)
		metrics.PredictionsFailed.WithLabelValues(string(se.Code), metrics.TransportHTTP).Inc()
		h.obs.RecordPrediction(ctx, elapsed, metrics.TransportHTTP, string(se.Code))
		span.SetStatus(codes.Error, string(se.Code))
		span.SetAttributes(attribute.String("error.code", string(se.Code)))

		fields := map[string]interface{}{
			"code":      se.Code,
			"category":  apperrors.GetErrorCategory(se.Code),
			"details":   se.Details,
			"requestId": requestIDFrom(c),
		}
		if apperrors.IsClientError(se.Code) {
			h.logger.Info("prediction rejected", fields)
		} else {
			h.logger.Error("prediction failed", fields)
		}
		writeError(c, se)
		return
	}

	metrics.PredictionsTotal.WithLabelValues(result.RiskLevel, metrics.TransportHTTP).Inc()
	h.obs.RecordPrediction(ctx, elapsed, metrics.TransportHTTP, "ok")
	span.SetAttributes(
		attribute.String("risk.level", result.RiskLevel),
		attribute.Float64("risk.percentage", result.Percentage),
	)

	c.JSON(http.StatusOK, result)
}

func (h *handler) score(c *gin.Context) (*models.PredictionResult, error) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperrors.NewValidationError([]apperrors.FieldError{{
				Field:   "(root)",
				Message: fmt.Sprintf("request body exceeds %d bytes", h.maxBodyBytes),
				Code:    "BODY_TOO_LARGE",
			}})
		}
		return nil, apperrors.NewValidationError([]apperrors.FieldError{{
			Field:   "(root)",
			Message: "request body could not be read",
			Code:    "MALFORMED_JSON",
		}})
	}

	doc, err := validation.DecodeJSON(body)
	if err != nil {
		return nil, err
	}
	in, err := h.validator.DecodeAssessment(doc)
	if err != nil {
		return nil, err
	}

	result, err := h.scorer.Score(*in)
	if err != nil {
		return nil, scoring.ToStandardError(err)
	}
	return result, nil
}

func (h *handler) model(c *gin.Context) {
	c.JSON(http.StatusOK, ModelInfo{
		Metadata:       h.store.Metadata(),
		FeatureColumns: scoring.FeatureColumns[:],
		ScaledColumns:  scoring.ScaledColumns[:],
		Vocabulary:     h.store.Vocabulary(),
		RiskLevels:     scoring.RiskLevels,
	})
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (h *handler) readiness(c *gin.Context) {
	if h.store == nil || (h.ready != nil && !h.ready()) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "ready",
		"bundle":   h.store.Metadata().Bundle,
		"checksum": h.store.Metadata().Checksum,
	})
}

func writeError(c *gin.Context, se *apperrors.StandardError) {
	c.AbortWithStatusJSON(apperrors.HTTPStatus(se.Code), ErrorBody{
		Error: ErrorDetail{
			Code:    se.Code,
			Message: se.Message,
			Details: se.Details,
			Fields:  se.Fields,
		},
		RequestID: requestIDFrom(c),
	})
}
