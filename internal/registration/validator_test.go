package registration

import (
	"encoding/json"
	"testing"

	"affiliate-portal/internal/common/errors"
	"affiliate-portal/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validQuiz = `{
	"experience": "hobby",
	"channels": ["instagram", "tiktok"],
	"audienceSize": "medium",
	"products": ["testoup"],
	"motivation": "Искам да помагам на мъжете да се чувстват по-добре."
}`

func ivan() SubmitRequest {
	return SubmitRequest{
		FullName: "Ivan Ivanov",
		Email:    "ivan@example.com",
		Phone:    "+359 888 123 456",
		QuizData: json.RawMessage(validQuiz),
	}
}

func assertValidationMessage(t *testing.T, err error, msg string) {
	t.Helper()
	require.Error(t, err)
	stdErr := errors.From(err)
	assert.Equal(t, errors.ErrCodeValidationFailed, stdErr.Code)
	assert.Equal(t, msg, stdErr.Message)
	assert.Equal(t, 400, errors.HTTPStatus(stdErr.Code))
}

func TestValidate_AcceptsValidSubmission(t *testing.T) {
	app, err := NewValidator().Validate(ivan())
	require.NoError(t, err)

	assert.Equal(t, "Ivan Ivanov", app.FullName)
	assert.Equal(t, "ivan@example.com", app.Email)
	require.NotNil(t, app.Phone)
	assert.Equal(t, "+359 888 123 456", *app.Phone)
	assert.Equal(t, models.ApplicationStatusPending, app.Status)
	assert.Equal(t, models.ExperienceHobby, app.QuizData.Experience)
	assert.Equal(t, []models.PromotionChannel{models.ChannelInstagram, models.ChannelTikTok}, app.QuizData.Channels)
	assert.Equal(t, models.AudienceMedium, app.QuizData.AudienceSize)
}

func TestValidate_NormalizesInput(t *testing.T) {
	req := ivan()
	req.FullName = "  Ivan Ivanov "
	req.Email = " Ivan@Example.COM "
	req.Phone = "   "
	req.QuizData = json.RawMessage(`{
		"experience": "professional",
		"channels": ["youtube", "blog", "youtube"],
		"audienceSize": "large",
		"products": ["all", "testoup", "all"],
		"motivation": "   Имам голяма аудитория във YouTube.   "
	}`)

	app, err := NewValidator().Validate(req)
	require.NoError(t, err)

	assert.Equal(t, "Ivan Ivanov", app.FullName)
	assert.Equal(t, "ivan@example.com", app.Email)
	assert.Nil(t, app.Phone)
	assert.Equal(t, []models.PromotionChannel{models.ChannelYouTube, models.ChannelBlog}, app.QuizData.Channels)
	assert.Equal(t, []models.ProductInterest{models.ProductAll, models.ProductTestoUp}, app.QuizData.Products)
	assert.Equal(t, "Имам голяма аудитория във YouTube.", app.QuizData.Motivation)
}

func TestValidate_RequiredFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SubmitRequest)
	}{
		{"missing full name", func(r *SubmitRequest) { r.FullName = "" }},
		{"blank full name", func(r *SubmitRequest) { r.FullName = "   " }},
		{"missing email", func(r *SubmitRequest) { r.Email = "" }},
		{"missing quiz", func(r *SubmitRequest) { r.QuizData = nil }},
		{"null quiz", func(r *SubmitRequest) { r.QuizData = json.RawMessage("null") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := ivan()
			tt.mutate(&req)
			_, err := NewValidator().Validate(req)
			assertValidationMessage(t, err, MsgRequiredFields)
		})
	}
}

func TestValidate_InvalidEmail(t *testing.T) {
	for _, email := range []string{"ivan", "ivan@example", "ivan @example.com", "@example.com"} {
		req := ivan()
		req.Email = email
		_, err := NewValidator().Validate(req)
		assertValidationMessage(t, err, MsgInvalidEmail)
	}
}

func TestValidate_InvalidPhone(t *testing.T) {
	req := ivan()
	req.Phone = "call me"
	_, err := NewValidator().Validate(req)
	assertValidationMessage(t, err, MsgInvalidPhone)
}

func TestValidate_QuizSchema(t *testing.T) {
	tests := []struct {
		name string
		quiz string
	}{
		{"not an object", `"hobby"`},
		{"malformed json", `{"experience": `},
		{"unknown experience", `{"experience":"guru","channels":["blog"],"audienceSize":"small","products":["all"],"motivation":"Искам да продавам добри продукти."}`},
		{"empty channels", `{"experience":"hobby","channels":[],"audienceSize":"small","products":["all"],"motivation":"Искам да продавам добри продукти."}`},
		{"unknown channel", `{"experience":"hobby","channels":["myspace"],"audienceSize":"small","products":["all"],"motivation":"Искам да продавам добри продукти."}`},
		{"unknown audience", `{"experience":"hobby","channels":["blog"],"audienceSize":"huge","products":["all"],"motivation":"Искам да продавам добри продукти."}`},
		{"empty products", `{"experience":"hobby","channels":["blog"],"audienceSize":"small","products":[],"motivation":"Искам да продавам добри продукти."}`},
		{"missing motivation", `{"experience":"hobby","channels":["blog"],"audienceSize":"small","products":["all"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := ivan()
			req.QuizData = json.RawMessage(tt.quiz)
			_, err := NewValidator().Validate(req)
			assertValidationMessage(t, err, MsgInvalidQuiz)
		})
	}
}

func TestValidate_MotivationLength(t *testing.T) {
	quiz := func(motivation string) json.RawMessage {
		raw, _ := json.Marshal(map[string]interface{}{
			"experience":   "beginner",
			"channels":     []string{"facebook"},
			"audienceSize": "small",
			"products":     []string{"bundles"},
			"motivation":   motivation,
		})
		return raw
	}

	req := ivan()
	req.QuizData = quiz("too short")
	_, err := NewValidator().Validate(req)
	assertValidationMessage(t, err, MsgShortMotivation)

	// padding does not count
	req.QuizData = quiz("   Кратък текст.          ")
	_, err = NewValidator().Validate(req)
	assertValidationMessage(t, err, MsgShortMotivation)

	// 20 Cyrillic runes is 40 bytes but still exactly the minimum
	req.QuizData = quiz("абвгдежзийклмнопрсту")
	_, err = NewValidator().Validate(req)
	assert.NoError(t, err)
}
