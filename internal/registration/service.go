package registration

import (
	"context"
	stderrors "errors"
	"time"

	"affiliate-portal/internal/common/errors"
	"affiliate-portal/internal/common/logger"
	"affiliate-portal/internal/common/metrics"
	"affiliate-portal/internal/models"
	"affiliate-portal/internal/store"

	"github.com/google/uuid"
)

const (
	MsgSubmitted = "Заявката е подадена успешно"

	DefaultReviewProcess = "affiliate-application-review"
)

// ApplicationStore is the slice of the data layer registration needs.
type ApplicationStore interface {
	ApplicationExistsByEmail(ctx context.Context, email string) (bool, error)
	CreateApplication(ctx context.Context, app *models.AffiliateApplication) error
}

// ProcessStarter starts a workflow instance; *camunda.Client satisfies it.
type ProcessStarter interface {
	StartProcess(ctx context.Context, processID string, variables interface{}) (int64, error)
}

type ServiceConfig struct {
	ReviewProcess  string
	ProcessTimeout time.Duration
}

type Service struct {
	validator *Validator
	store     ApplicationStore
	starter   ProcessStarter
	config    ServiceConfig
	logger    logger.Logger
	now       func() time.Time
}

// NewService builds the registration service. starter may be nil, in which
// case no review process is started.
func NewService(s ApplicationStore, starter ProcessStarter, cfg ServiceConfig, log logger.Logger) *Service {
	if cfg.ReviewProcess == "" {
		cfg.ReviewProcess = DefaultReviewProcess
	}
	if cfg.ProcessTimeout <= 0 {
		cfg.ProcessTimeout = 5 * time.Second
	}
	return &Service{
		validator: NewValidator(),
		store:     s,
		starter:   starter,
		config:    cfg,
		logger:    log.WithFields(map[string]interface{}{"component": "registration"}),
		now:       time.Now,
	}
}

// Submit validates req and stores it as a pending application. Nothing is
// written when validation or the duplicate check fails.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*models.AffiliateApplication, error) {
	app, err := s.validator.Validate(req)
	if err != nil {
		metrics.Registrations.WithLabelValues("invalid").Inc()
		return nil, err
	}

	exists, err := s.store.ApplicationExistsByEmail(ctx, app.Email)
	if err != nil {
		metrics.Registrations.WithLabelValues("error").Inc()
		s.logger.Error("duplicate check failed", map[string]interface{}{"email": app.Email, "error": err})
		return nil, errors.NewDatabaseInsertFailedError(err)
	}
	if exists {
		metrics.Registrations.WithLabelValues("duplicate").Inc()
		return nil, errors.NewDuplicateApplicationError(app.Email, nil)
	}

	now := s.now().UTC()
	app.ID = uuid.New().String()
	app.CreatedAt = now
	app.UpdatedAt = now

	if err := s.store.CreateApplication(ctx, app); err != nil {
		// the unique index on lower(email) catches concurrent submissions
		if stderrors.Is(err, store.ErrConflict) {
			metrics.Registrations.WithLabelValues("duplicate").Inc()
			return nil, errors.NewDuplicateApplicationError(app.Email, err)
		}
		metrics.Registrations.WithLabelValues("error").Inc()
		s.logger.Error("failed to create application", map[string]interface{}{"email": app.Email, "error": err})
		return nil, errors.NewDatabaseInsertFailedError(err)
	}

	metrics.Registrations.WithLabelValues("accepted").Inc()
	s.logger.Info("application submitted", map[string]interface{}{"applicationId": app.ID})

	s.startReview(ctx, app)
	return app, nil
}

func (s *Service) startReview(ctx context.Context, app *models.AffiliateApplication) {
	if s.starter == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.ProcessTimeout)
	defer cancel()

	key, err := s.starter.StartProcess(ctx, s.config.ReviewProcess, map[string]interface{}{
		"applicationId": app.ID,
		"email":         app.Email,
		"fullName":      app.FullName,
	})
	if err != nil {
		s.logger.Warn("failed to start review process", map[string]interface{}{
			"applicationId": app.ID,
			"process":       s.config.ReviewProcess,
			"error":         err,
		})
		return
	}
	s.logger.Debug("review process started", map[string]interface{}{"applicationId": app.ID, "processInstanceKey": key})
}
