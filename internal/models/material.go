package models

import "time"

type MaterialType string

const (
	MaterialImage      MaterialType = "image"
	MaterialVideo      MaterialType = "video"
	MaterialText       MaterialType = "text"
	MaterialGuide      MaterialType = "guide"
	MaterialSocialPost MaterialType = "social_post"
)

// ViewType maps the stored type to the vocabulary the materials page groups by.
func (t MaterialType) ViewType() string {
	switch t {
	case MaterialImage:
		return "banner"
	case MaterialSocialPost, MaterialText:
		return "social-post"
	case MaterialGuide:
		return "sales-guide"
	case MaterialVideo:
		return "video"
	default:
		return string(t)
	}
}

// Valid reports whether t is one of the known material types.
func (t MaterialType) Valid() bool {
	switch t {
	case MaterialImage, MaterialVideo, MaterialText, MaterialGuide, MaterialSocialPost:
		return true
	}
	return false
}

type AffiliateMaterial struct {
	ID             string       `json:"id" db:"id"`
	Title          string       `json:"title" db:"title"`
	Description    *string      `json:"description,omitempty" db:"description"`
	Type           MaterialType `json:"type" db:"type"`
	ViewType       string       `json:"view_type" db:"-"`
	Category       *string      `json:"category,omitempty" db:"category"`
	Content        *string      `json:"content,omitempty" db:"content"`
	FileURL        *string      `json:"file_url,omitempty" db:"file_url"`
	ThumbnailURL   *string      `json:"thumbnail_url,omitempty" db:"thumbnail_url"`
	ProductTags    []string     `json:"product_tags" db:"product_tags"`
	SocialPlatform *string      `json:"social_platform,omitempty" db:"social_platform"`
	DownloadCount  int64        `json:"download_count" db:"download_count"`
	IsActive       bool         `json:"is_active" db:"is_active"`
	CreatedAt      time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at" db:"updated_at"`
}
