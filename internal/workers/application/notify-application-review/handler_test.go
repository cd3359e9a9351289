// internal/workers/application/notify-application-review/handler_test.go
package notifyapplicationreview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"affiliate-portal/internal/common/config"
	apperrors "affiliate-portal/internal/common/errors"
	"affiliate-portal/internal/common/logger"
	"affiliate-portal/internal/models"
	"affiliate-portal/internal/store"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Implementations
// ==========================

type MockSNSService struct {
	PublishFunc func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

func (m *MockSNSService) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	return m.PublishFunc(ctx, params, optFns...)
}

type mockApplications struct {
	apps map[string]*models.AffiliateApplication
	err  error
}

func (m *mockApplications) GetApplication(ctx context.Context, id string) (*models.AffiliateApplication, error) {
	if m.err != nil {
		return nil, m.err
	}
	app, ok := m.apps[id]
	if !ok {
		return nil, fmt.Errorf("%w: get application", store.ErrNotFound)
	}
	return app, nil
}

// ==========================
// Test Helper Functions
// ==========================

const testTopic = "arn:aws:sns:eu-central-1:123456789012:affiliate-applications"

func createTestConfig() *Config {
	return &Config{
		Enabled:  true,
		TopicARN: testTopic,
		Timeout:  30 * time.Second,
	}
}

func createTestApplications() *mockApplications {
	phone := "+359888123456"
	return &mockApplications{apps: map[string]*models.AffiliateApplication{
		"app-001": {
			ID:       "app-001",
			FullName: "Ivan Ivanov",
			Email:    "ivan@example.com",
			Phone:    &phone,
			QuizData: models.QuizAnswers{
				Experience:   models.ExperienceHobby,
				Channels:     []models.PromotionChannel{models.ChannelInstagram, models.ChannelTikTok},
				AudienceSize: models.AudienceMedium,
				Products:     []models.ProductInterest{models.ProductTestoUp},
				Motivation:   "Искам да помагам на мъжете да се чувстват по-добре.",
			},
			Status:    models.ApplicationStatusPending,
			CreatedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		},
	}}
}

func newHandler(t *testing.T, cfg *Config, apps ApplicationLoader, svc *MockSNSService) *Handler {
	return NewHandler(cfg, apps, svc, logger.NewNoOpLogger())
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	var published *sns.PublishInput
	mockSNS := &MockSNSService{
		PublishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
			published = params
			return &sns.PublishOutput{MessageId: aws.String("sns-msg-1")}, nil
		},
	}

	handler := newHandler(t, createTestConfig(), createTestApplications(), mockSNS)
	output, err := handler.Execute(context.Background(), &Input{ApplicationID: "app-001"})

	require.NoError(t, err)
	assert.Equal(t, StatusPublished, output.Status)
	assert.Equal(t, "sns-msg-1", output.MessageID)

	require.NotNil(t, published)
	assert.Equal(t, testTopic, *published.TopicArn)
	assert.Equal(t, reviewSubject, *published.Subject)
	assert.Equal(t, EventApplicationSubmitted, *published.MessageAttributes["eventType"].StringValue)

	var event ReviewEvent
	require.NoError(t, json.Unmarshal([]byte(*published.Message), &event))
	assert.Equal(t, "app-001", event.ApplicationID)
	assert.Equal(t, "+359888123456", event.Phone)
	assert.Equal(t, []string{"instagram", "tiktok"}, event.Channels)
	assert.Equal(t, []string{"testoup"}, event.Products)
	assert.Equal(t, "hobby", event.Experience)
}

func TestHandler_Execute_Disabled(t *testing.T) {
	cfg := createTestConfig()
	cfg.Enabled = false

	mockSNS := &MockSNSService{
		PublishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
			t.Fatal("SNS must not be called when disabled")
			return nil, nil
		},
	}

	output, err := newHandler(t, cfg, createTestApplications(), mockSNS).
		Execute(context.Background(), &Input{ApplicationID: "app-001"})

	require.NoError(t, err)
	assert.Equal(t, StatusDisabled, output.Status)
}

func TestHandler_Execute_Errors(t *testing.T) {
	failingSNS := &MockSNSService{
		PublishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
			return nil, errors.New("AuthorizationError")
		},
	}

	tests := []struct {
		name         string
		input        *Input
		applications *mockApplications
		wantErr      error
	}{
		{"missing application id", &Input{ApplicationID: " "}, createTestApplications(), ErrInvalidInput},
		{"unknown application", &Input{ApplicationID: "app-404"}, createTestApplications(), ErrApplicationNotFound},
		{"database failure", &Input{ApplicationID: "app-001"}, &mockApplications{err: fmt.Errorf("%w: timeout", store.ErrTimeout)}, ErrQueryFailed},
		{"publish failure", &Input{ApplicationID: "app-001"}, createTestApplications(), ErrNotificationSendFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := newHandler(t, createTestConfig(), tt.applications, failingSNS).
				Execute(context.Background(), tt.input)

			assert.Nil(t, output)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantErr.Error(), errorCode(err))
		})
	}
}

func TestTransientError(t *testing.T) {
	stdErr := transientError(fmt.Errorf("%w: throttled", ErrNotificationSendFailed))
	require.NotNil(t, stdErr)
	assert.Equal(t, apperrors.ErrCodeNotificationSendFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)

	stdErr = transientError(fmt.Errorf("%w: timeout", ErrQueryFailed))
	require.NotNil(t, stdErr)
	assert.Equal(t, apperrors.ErrCodeQueryExecutionFailed, stdErr.Code)

	assert.Nil(t, transientError(fmt.Errorf("%w: app-404", ErrApplicationNotFound)))
	assert.Nil(t, transientError(ErrInvalidInput))
}

func TestLoadConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Integrations.AWS.SNS.Enabled = true

	// enabled without a topic is treated as disabled
	assert.False(t, LoadConfig(cfg).Enabled)

	cfg.Integrations.AWS.SNS.TopicARN = testTopic
	c := LoadConfig(cfg)
	assert.True(t, c.Enabled)
	assert.Equal(t, 30*time.Second, c.Timeout)
}
