package models

import (
	"time"

	"github.com/google/uuid"
)

// ResourceType classifies learning resources
type ResourceType string

const (
	ResourceTypeFile  ResourceType = "file"
	ResourceTypeLink  ResourceType = "link"
	ResourceTypeVideo ResourceType = "video"
	ResourceTypeImage ResourceType = "image"
)

// Valid reports whether t is a known resource type
func (t ResourceType) Valid() bool {
	switch t {
	case ResourceTypeFile, ResourceTypeLink, ResourceTypeVideo, ResourceTypeImage:
		return true
	}
	return false
}

// Resource is a learning material shared by a professor
type Resource struct {
	ID          uuid.UUID    `json:"id" db:"id"`
	Title       string       `json:"title" db:"title"`
	Description string       `json:"description" db:"description"`
	URL         string       `json:"url" db:"url"`
	Type        ResourceType `json:"type" db:"type"`
	CourseID    *uuid.UUID   `json:"course_id,omitempty" db:"course_id"`
	UploadedBy  uuid.UUID    `json:"uploaded_by" db:"uploaded_by"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Resource model
func (Resource) TableName() string {
	return "resources"
}

// NewResource creates a new Resource instance
func NewResource(title, url string, resourceType ResourceType, uploadedBy uuid.UUID) *Resource {
	now := time.Now().UTC()
	return &Resource{
		ID:         uuid.New(),
		Title:      title,
		URL:        url,
		Type:       resourceType,
		UploadedBy: uploadedBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
