// internal/workers/application/send-application-confirmation/handler.go
package sendapplicationconfirmation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"regexp"
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
	"github.com/google/uuid"
)

const (
	TaskType = "send-application-confirmation"
)

var (
	ErrInvalidInput        = errors.New("APPLICATION_VALIDATION_FAILED")
	ErrApplicationNotFound = errors.New("APPLICATION_NOT_FOUND")
	ErrQueryFailed         = errors.New("QUERY_EXECUTION_FAILED")
)

const (
	confirmationSubject = "Получихме заявката ти за партньорската програма"
	confirmationBody    = "Здравей, {{fullName}}!\n\n" +
		"Благодарим ти за интереса към партньорската програма на Testograph. " +
		"Заявката ти е получена и ще бъде прегледана от нашия екип. " +
		"Ще получиш отговор на {{email}}.\n\n" +
		"Номер на заявката: {{applicationId}}\n\n" +
		"Екипът на Testograph"
)

// ApplicationLoader is implemented by *store.Store.
type ApplicationLoader interface {
	GetApplication(ctx context.Context, id string) (*models.AffiliateApplication, error)
}

type Handler struct {
	config       *Config
	applications ApplicationLoader
	logger       logger.Logger
	sesClient    awsutil.SESService
	errors       *apperrors.ErrorHandler
}

func NewHandler(config *Config, applications ApplicationLoader, sesClient awsutil.SESService, log logger.Logger) *Handler {
	return &Handler{
		config:       config,
		applications: applications,
		logger:       log.WithFields(map[string]interface{}{"taskType": TaskType}),
		sesClient:    sesClient,
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

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if strings.TrimSpace(input.ApplicationID) == "" {
		return nil, fmt.Errorf("%w: applicationId is required", ErrInvalidInput)
	}

	app, err := h.applications.GetApplication(ctx, input.ApplicationID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrApplicationNotFound, input.ApplicationID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}

	sentAt := time.Now().UTC().Format(time.RFC3339)
	notificationID := uuid.New().String()

	if !h.config.EmailEnabled {
		h.logger.Info("email disabled, skipping confirmation", map[string]interface{}{"applicationId": app.ID})
		return &Output{NotificationID: notificationID, Status: StatusDisabled, SentAt: sentAt}, nil
	}

	data := map[string]interface{}{
		"fullName":      app.FullName,
		"email":         app.Email,
		"applicationId": app.ID,
	}
	text := renderTemplate(confirmationBody, data)

	messageID, err := awsutil.SendEmail(ctx, h.sesClient, awsutil.Email{
		From:    h.config.FromEmail,
		To:      app.Email,
		Subject: renderTemplate(confirmationSubject, data),
		Text:    text,
		HTML:    "<p>" + strings.ReplaceAll(html.EscapeString(text), "\n", "<br>") + "</p>",
	})
	if err != nil {
		h.logger.Error("email send failed", map[string]interface{}{
			"error":         err,
			"applicationId": app.ID,
		})
		return &Output{NotificationID: notificationID, Status: StatusFailed, SentAt: sentAt}, nil
	}
	if messageID != "" {
		notificationID = messageID
	}

	return &Output{
		NotificationID: notificationID,
		Status:         StatusSent,
		SentAt:         sentAt,
	}, nil
}

// errorCode returns the BPMN error code carried by err's sentinel.
func errorCode(err error) string {
	for _, sentinel := range []error{ErrInvalidInput, ErrApplicationNotFound, ErrQueryFailed} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "NOTIFICATION_SEND_FAILED"
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
	_, err = cmd.Send(context.Background())
	if err != nil {
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

var placeholderPattern = regexp.MustCompile(`\{\{([^{}]*)\}\}`)

// renderTemplate substitutes {{key}} placeholders in a single pass, so
// substituted values are never expanded again. Unknown placeholders render empty.
func renderTemplate(tmpl string, data map[string]interface{}) string {
	return placeholderPattern.ReplaceAllStringFunc(tmpl, func(m string) string {
		v, ok := data[m[2:len(m)-2]]
		if !ok || v == nil {
			return ""
		}
		return fmt.Sprintf("%v", v)
	})
}

// transientError marks a failed application lookup as retryable by the engine.
func transientError(err error) *apperrors.StandardError {
	if errors.Is(err, ErrQueryFailed) {
		return apperrors.NewQueryExecutionFailedError("get_application", err)
	}
	return nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
