// Package registration validates and stores affiliate applications.
package registration

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"affiliate-portal/internal/common/errors"
	"affiliate-portal/internal/common/validation"
	"affiliate-portal/internal/models"
)

const (
	MsgRequiredFields  = "Моля попълни всички задължителни полета"
	MsgInvalidEmail    = "Невалиден email адрес"
	MsgInvalidPhone    = "Невалиден телефонен номер"
	MsgInvalidQuiz     = "Моля отговори на всички въпроси"
	MsgShortMotivation = "Мотивацията трябва да е поне 20 символа"

	MinMotivationLength = 20
)

var quizSchema = validation.MustCompileSchema(`{
	"type": "object",
	"required": ["experience", "channels", "audienceSize", "products", "motivation"],
	"properties": {
		"experience": {"type": "string", "enum": ["professional", "hobby", "beginner"]},
		"channels": {
			"type": "array",
			"minItems": 1,
			"items": {"type": "string", "enum": ["instagram", "facebook", "tiktok", "youtube", "blog", "email", "telegram", "other"]}
		},
		"audienceSize": {"type": "string", "enum": ["small", "medium", "large"]},
		"products": {
			"type": "array",
			"minItems": 1,
			"items": {"type": "string", "enum": ["testoup", "bundles", "all"]}
		},
		"motivation": {"type": "string"}
	}
}`)

// SubmitRequest is the public registration payload.
type SubmitRequest struct {
	FullName string          `json:"full_name"`
	Email    string          `json:"email"`
	Phone    string          `json:"phone,omitempty"`
	QuizData json.RawMessage `json:"quiz_data"`
}

// Validator turns a SubmitRequest into a normalized pending application.
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks req and returns the normalized application. ID and
// timestamps are left for the caller to assign.
func (v *Validator) Validate(req SubmitRequest) (*models.AffiliateApplication, error) {
	fullName := strings.TrimSpace(req.FullName)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	quizRaw := bytes.TrimSpace(req.QuizData)

	if fullName == "" || email == "" || len(quizRaw) == 0 || bytes.Equal(quizRaw, []byte("null")) {
		return nil, errors.NewValidationError(MsgRequiredFields, "full_name, email and quiz_data are required")
	}

	if !validation.ValidateEmail(email) {
		return nil, errors.NewValidationError(MsgInvalidEmail, "email: "+email)
	}

	var phone *string
	if p := strings.TrimSpace(req.Phone); p != "" {
		if !validation.ValidatePhone(p) {
			return nil, errors.NewValidationError(MsgInvalidPhone, "phone: "+p)
		}
		phone = &p
	}

	quiz, err := validateQuiz(quizRaw)
	if err != nil {
		return nil, err
	}

	return &models.AffiliateApplication{
		FullName: fullName,
		Email:    email,
		Phone:    phone,
		QuizData: *quiz,
		Status:   models.ApplicationStatusPending,
	}, nil
}

func validateQuiz(raw []byte) (*models.QuizAnswers, error) {
	result, err := quizSchema.ValidateRaw(raw)
	if err != nil {
		// not parseable as JSON at all
		return nil, errors.NewValidationError(MsgInvalidQuiz, err.Error())
	}
	if !result.Valid {
		return nil, errors.NewValidationError(MsgInvalidQuiz, strings.Join(result.GetErrorMessages(), "; "))
	}

	var quiz models.QuizAnswers
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return nil, errors.NewValidationError(MsgInvalidQuiz, err.Error())
	}

	quiz.Motivation = strings.TrimSpace(quiz.Motivation)
	if utf8.RuneCountInString(quiz.Motivation) < MinMotivationLength {
		return nil, errors.NewValidationError(MsgShortMotivation, "motivation too short")
	}

	quiz.Channels = dedupe(quiz.Channels)
	quiz.Products = dedupe(quiz.Products)
	return &quiz, nil
}

// dedupe drops repeated values, keeping first occurrences in order.
func dedupe[T comparable](in []T) []T {
	seen := make(map[T]struct{}, len(in))
	out := make([]T, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
