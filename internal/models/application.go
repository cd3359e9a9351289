package models

import "time"

type ExperienceLevel string

const (
	ExperienceProfessional ExperienceLevel = "professional"
	ExperienceHobby        ExperienceLevel = "hobby"
	ExperienceBeginner     ExperienceLevel = "beginner"
)

type AudienceSize string

const (
	AudienceSmall  AudienceSize = "small"
	AudienceMedium AudienceSize = "medium"
	AudienceLarge  AudienceSize = "large"
)

type PromotionChannel string

const (
	ChannelInstagram PromotionChannel = "instagram"
	ChannelFacebook  PromotionChannel = "facebook"
	ChannelTikTok    PromotionChannel = "tiktok"
	ChannelYouTube   PromotionChannel = "youtube"
	ChannelBlog      PromotionChannel = "blog"
	ChannelEmail     PromotionChannel = "email"
	ChannelTelegram  PromotionChannel = "telegram"
	ChannelOther     PromotionChannel = "other"
)

type ProductInterest string

const (
	ProductTestoUp ProductInterest = "testoup"
	ProductBundles ProductInterest = "bundles"
	ProductAll     ProductInterest = "all"
)

type ApplicationStatus string

const (
	ApplicationStatusPending  ApplicationStatus = "pending"
	ApplicationStatusApproved ApplicationStatus = "approved"
	ApplicationStatusRejected ApplicationStatus = "rejected"
)

// QuizAnswers is the closed set of answers collected by the registration quiz.
type QuizAnswers struct {
	Experience   ExperienceLevel    `json:"experience"`
	Channels     []PromotionChannel `json:"channels"`
	AudienceSize AudienceSize       `json:"audienceSize"`
	Products     []ProductInterest  `json:"products"`
	Motivation   string             `json:"motivation"`
}

// AffiliateApplication is a registration awaiting admin review.
type AffiliateApplication struct {
	ID              string            `json:"id" db:"id"`
	FullName        string            `json:"full_name" db:"full_name"`
	Email           string            `json:"email" db:"email"`
	Phone           *string           `json:"phone" db:"phone"`
	QuizData        QuizAnswers       `json:"quiz_data" db:"quiz_data"`
	Status          ApplicationStatus `json:"status" db:"status"`
	RejectionReason *string           `json:"rejection_reason,omitempty" db:"rejection_reason"`
	AdminNotes      *string           `json:"admin_notes,omitempty" db:"admin_notes"`
	ReviewedBy      *string           `json:"reviewed_by,omitempty" db:"reviewed_by"`
	ReviewedAt      *time.Time        `json:"reviewed_at,omitempty" db:"reviewed_at"`
	CreatedAt       time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at" db:"updated_at"`
}
