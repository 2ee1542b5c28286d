package predictdepressionrisk

import (
	"context"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"depression-risk-service/internal/common/config"
	"depression-risk-service/internal/common/errors"
	"depression-risk-service/internal/common/logger"
	"depression-risk-service/internal/common/metrics"
	"depression-risk-service/internal/common/observability"
	"depression-risk-service/internal/common/validation"
	"depression-risk-service/internal/models"
	"depression-risk-service/internal/scoring"
)

const TaskType = "predict-depression-risk"

// Scorer is satisfied by *scoring.Pipeline.
type Scorer interface {
	Score(in models.DepressionAssessmentInput) (*models.PredictionResult, error)
}

type Handler struct {
	config       *Config
	logger       logger.Logger
	scorer       Scorer
	validator    *validation.Validator
	obs          *observability.Observability
	errorHandler *errors.ErrorHandler
}

type HandlerOptions struct {
	AppConfig    *config.Config
	Scorer       Scorer
	Validator    *validation.Validator
	Obs          *observability.Observability
	CustomConfig *Config
	Logger       logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	workerConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)

	if err := workerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if opts.Scorer == nil {
		return nil, fmt.Errorf("scorer is required for %s", TaskType)
	}

	var loggerInstance logger.Logger
	if opts.Logger != nil {
		loggerInstance = opts.Logger
	} else {
		loggerInstance = logger.NewStructured("info", "json")
	}

	validator := opts.Validator
	if validator == nil {
		v, err := validation.NewAssessmentValidator()
		if err != nil {
			return nil, err
		}
		validator = v
	}

	obs := opts.Obs
	if obs == nil {
		obs = observability.Noop()
	}

	return &Handler{
		config:       workerConfig,
		logger:       loggerInstance,
		scorer:       opts.Scorer,
		validator:    validator,
		obs:          obs,
		errorHandler: errors.NewErrorHandler(loggerInstance),
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	ctx, span := h.obs.StartSpan(ctx, "job."+TaskType,
		attribute.Int64("job.key", job.GetKey()),
		attribute.Int64("process.instance.key", job.GetProcessInstanceKey()))
	defer span.End()

	h.logger.Info("Processing risk prediction job", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
		"worker":             TaskType,
	})

	output, err := h.process(ctx, job)
	elapsed := time.Since(startTime)
	metrics.PredictionDuration.WithLabelValues(metrics.TransportJob).Observe(elapsed.Seconds())

	if err != nil {
		stdErr := errors.Normalize(err)
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
		metrics.PredictionsFailed.WithLabelValues(string(stdErr.Code), metrics.TransportJob).Inc()
		h.obs.RecordPrediction(ctx, elapsed, metrics.TransportJob, string(stdErr.Code))
		span.SetStatus(codes.Error, string(stdErr.Code))

		h.errorHandler.HandleJobError(ctx, client, job, stdErr)
		return
	}

	metrics.PredictionsTotal.WithLabelValues(output.RiskLevel, metrics.TransportJob).Inc()
	h.obs.RecordPrediction(ctx, elapsed, metrics.TransportJob, "ok")
	span.SetAttributes(attribute.String("risk.level", output.RiskLevel))

	if h.completeJob(ctx, client, job, output) {
		metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	}
}

func (h *Handler) process(ctx context.Context, job entities.Job) (*Output, error) {
	input, err := h.parseInput(job)
	if err != nil {
		return nil, err
	}
	return h.Execute(ctx, input)
}

// parseInput reads the ten fields either from the top level of the job
// variables or from an "assessment" object.
func (h *Handler) parseInput(job entities.Job) (*models.DepressionAssessmentInput, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, errors.NewValidationError([]errors.FieldError{{
			Field:   "(root)",
			Message: fmt.Sprintf("job variables could not be parsed: %v", err),
			Code:    "MALFORMED_JSON",
		}})
	}

	if nested, ok := variables[AssessmentVariable].(map[string]interface{}); ok {
		variables = nested
	}

	return h.validator.DecodeAssessment(variables)
}

// Execute scores one decoded input.
func (h *Handler) Execute(ctx context.Context, input *models.DepressionAssessmentInput) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewInternalError(err)
	}

	result, err := h.scorer.Score(*input)
	if err != nil {
		return nil, scoring.ToStandardError(err)
	}

	return &Output{
		RiskLevel:   result.RiskLevel,
		Percentage:  result.Percentage,
		Probability: result.Probability,
	}, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) bool {
	request, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromMap(output.toVariables())
	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
			"worker": TaskType,
		})
		return false
	}

	if _, err := request.Send(ctx); err != nil {
		h.logger.Error("Failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
			"worker": TaskType,
		})
		return false
	}

	h.logger.Info("Completed risk prediction job", map[string]interface{}{
		"jobKey":     job.GetKey(),
		"riskLevel":  output.RiskLevel,
		"percentage": output.Percentage,
		"worker":     TaskType,
	})
	return true
}

func (h *Handler) GetTaskType() string {
	return TaskType
}

func (h *Handler) IsEnabled() bool {
	return h.config.Enabled
}

func (h *Handler) GetConfig() *Config {
	return h.config
}

func createConfigFromAppConfig(appConfig *config.Config, customConfig *Config) *Config {
	if customConfig != nil {
		return customConfig
	}

	cfg := DefaultConfig()

	if appConfig != nil {
		workerCfg := config.GetWorkerConfig(appConfig, TaskType)
		cfg.Enabled = workerCfg.Enabled
		if workerCfg.MaxJobsActive > 0 {
			cfg.MaxJobsActive = workerCfg.MaxJobsActive
		}
		if workerCfg.Timeout > 0 {
			cfg.Timeout = config.GetDuration(workerCfg.Timeout)
		}
	}

	return cfg
}
