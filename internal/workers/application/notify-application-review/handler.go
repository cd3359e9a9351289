// internal/workers/application/notify-application-review/handler.go
package notifyapplicationreview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	awsutil "affiliate-portal/internal/common/aws"
	apperrors "affiliate-portal/internal/common/errors"
	"affiliate-portal/internal/common/logger"
	"affiliate-portal/internal/common/metrics"
	"affiliate-portal/internal/models"
	"affiliate-portal/internal/store"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "notify-application-review"

	// SNS subjects must be ASCII.
	reviewSubject = "New affiliate application"
)

var (
	ErrInvalidInput           = errors.New("APPLICATION_VALIDATION_FAILED")
	ErrApplicationNotFound    = errors.New("APPLICATION_NOT_FOUND")
	ErrQueryFailed            = errors.New("QUERY_EXECUTION_FAILED")
	ErrNotificationSendFailed = errors.New("NOTIFICATION_SEND_FAILED")
)

// ApplicationLoader is implemented by *store.Store.
type ApplicationLoader interface {
	GetApplication(ctx context.Context, id string) (*models.AffiliateApplication, error)
}

type Handler struct {
	config       *Config
	applications ApplicationLoader
	logger       logger.Logger
	snsClient    awsutil.SNSService
	errors       *apperrors.ErrorHandler
}

func NewHandler(config *Config, applications ApplicationLoader, snsClient awsutil.SNSService, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		applications: applications,
		logger:       log,
		snsClient:    snsClient,
		errors:       apperrors.NewErrorHandler(log),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, "PARSE_ERROR", fmt.Sprintf("parse input: %v", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		if stdErr := transientError(err); stdErr != nil {
			metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
			h.errors.HandleJobError(context.Background(), client, job, stdErr)
			return
		}
		h.failJob(client, job, errorCode(err), err.Error())
		return
	}

	h.completeJob(client, job, output)
}

// execute publishes the application summary. A publish failure fails the job.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if strings.TrimSpace(input.ApplicationID) == "" {
		return nil, fmt.Errorf("%w: applicationId is required", ErrInvalidInput)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if !h.config.Enabled {
		h.logger.Info("sns disabled, skipping review notification", map[string]interface{}{
			"applicationId": input.ApplicationID,
		})
		return &Output{Status: StatusDisabled, PublishedAt: now}, nil
	}

	app, err := h.applications.GetApplication(ctx, input.ApplicationID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrApplicationNotFound, input.ApplicationID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}

	body, err := json.Marshal(buildEvent(app))
	if err != nil {
		return nil, fmt.Errorf("%w: encode event: %v", ErrNotificationSendFailed, err)
	}

	messageID, err := awsutil.PublishToTopic(ctx, h.snsClient, h.config.TopicARN, reviewSubject, string(body), map[string]string{
		"eventType":  EventApplicationSubmitted,
		"experience": string(app.QuizData.Experience),
	})
	if err != nil {
		h.logger.Error("sns publish failed", map[string]interface{}{
			"error":         err,
			"applicationId": app.ID,
		})
		return nil, fmt.Errorf("%w: %v", ErrNotificationSendFailed, err)
	}

	return &Output{
		MessageID:   messageID,
		Status:      StatusPublished,
		PublishedAt: now,
	}, nil
}

func buildEvent(app *models.AffiliateApplication) ReviewEvent {
	event := ReviewEvent{
		EventType:     EventApplicationSubmitted,
		ApplicationID: app.ID,
		FullName:      app.FullName,
		Email:         app.Email,
		Experience:    string(app.QuizData.Experience),
		AudienceSize:  string(app.QuizData.AudienceSize),
		Channels:      make([]string, 0, len(app.QuizData.Channels)),
		Products:      make([]string, 0, len(app.QuizData.Products)),
		Motivation:    app.QuizData.Motivation,
		SubmittedAt:   app.CreatedAt,
	}
	if app.Phone != nil {
		event.Phone = *app.Phone
	}
	for _, c := range app.QuizData.Channels {
		event.Channels = append(event.Channels, string(c))
	}
	for _, p := range app.QuizData.Products {
		event.Products = append(event.Products, string(p))
	}
	return event
}

func errorCode(err error) string {
	for _, sentinel := range []error{ErrInvalidInput, ErrApplicationNotFound, ErrQueryFailed, ErrNotificationSendFailed} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return ErrNotificationSendFailed.Error()
}

// transientError classifies failures that are worth retrying by the engine.
func transientError(err error) *apperrors.StandardError {
	switch {
	case errors.Is(err, ErrNotificationSendFailed):
		return apperrors.NewNotificationSendFailedError("sns", err)
	case errors.Is(err, ErrQueryFailed):
		return apperrors.NewQueryExecutionFailedError("get_application", err)
	default:
		return nil
	}
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, errorCode, errorMessage string) {
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":       job.Key,
		"errorCode":    errorCode,
		"errorMessage": errorMessage,
	})
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, errorCode).Inc()

	_, err := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(errorCode).
		ErrorMessage(errorMessage).
		Send(context.Background())
	if err != nil {
		h.logger.Error("failed to throw error", map[string]interface{}{
			"error": err,
		})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
