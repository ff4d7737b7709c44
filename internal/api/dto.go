package api

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/nodepad/internal/models"
	"github.com/starford/nodepad/internal/pageservice"
	"github.com/starford/nodepad/internal/storage"
	"github.com/starford/nodepad/internal/tags"
)

func entityType(value any) error {
	if s, _ := value.(string); storage.EntityType(s) == "" {
		return errors.New("must be file or folder")
	}
	return nil
}

// SavePageRequest is the JSON body for saving a page. Tags replace the current
// tags when present and are left untouched when omitted.
type SavePageRequest struct {
	Content string    `json:"content" example:"# Hello\nWorld"`
	Tags    *[]string `json:"tags,omitempty" example:"go,notes"`
}

// CreateRequest is the body for creating a page or folder.
type CreateRequest struct {
	Path string `json:"path" example:"docs/readme.md" validate:"required"`
	Type string `json:"type" example:"file" validate:"required"`
}

// Validate validates the create request.
func (r *CreateRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Path, validation.Required),
		validation.Field(&r.Type, validation.Required, validation.By(entityType)),
	)
}

// MoveRequest is the body for moving an entity. An empty destination is the root.
type MoveRequest struct {
	Path        string `json:"path" example:"docs/intro.md" validate:"required"`
	Destination string `json:"destination" example:"archive"`
}

// Validate validates the move request.
func (r *MoveRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Path, validation.Required),
	)
}

// RenameRequest is the body for renaming an entity.
type RenameRequest struct {
	Path    string `json:"path" example:"docs/readme.md" validate:"required"`
	NewName string `json:"newName" example:"intro.md" validate:"required"`
}

// Validate validates the rename request.
func (r *RenameRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Path, validation.Required),
		validation.Field(&r.NewName, validation.Required),
	)
}

// PageDetail is the page response type (aliased from the domain layer).
type PageDetail = pageservice.PageDetail

// MoveResult is the move/rename response type (aliased from the storage layer).
type MoveResult = storage.MoveResult

// NameValidation is the validate-name response type (aliased from the storage layer).
type NameValidation = storage.NameValidation

// ContentResponse is the content of a page with its surroundings.
type ContentResponse struct {
	Content     string              `json:"content"`
	Breadcrumbs []models.Breadcrumb `json:"breadcrumbs"`
	Tags        []string            `json:"tags"`
	Checksum    string              `json:"checksum"`
}

// TagMetaResponse carries both tag forms of a page.
type TagMetaResponse struct {
	Display    []string `json:"display"`
	Normalized []string `json:"normalized"`
}

// StructureResponse wraps the page tree.
type StructureResponse struct {
	Nodes      []models.Node `json:"nodes" validate:"required"`
	TotalFiles int           `json:"totalFiles" example:"42"`
}

// CreateResponse is returned after creating an entity.
type CreateResponse struct {
	Path string `json:"path" example:"docs/readme.md"`
	Type string `json:"type" example:"file"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []models.SearchResult `json:"results" validate:"required"`
}

// PageListResponse wraps recent and untagged listings.
type PageListResponse struct {
	Pages []models.PageSummary `json:"pages" validate:"required"`
}

// TagsResponse wraps tag counts.
type TagsResponse struct {
	Tags []tags.Count `json:"tags" validate:"required"`
}

// SuggestResponse wraps tag suggestions.
type SuggestResponse struct {
	Tags []string `json:"tags" validate:"required"`
}

// RenderResponse carries rendered HTML.
type RenderResponse struct {
	Path string `json:"path"`
	HTML string `json:"html"`
}

// UploadResponse is returned after a successful image upload.
type UploadResponse struct {
	URL string `json:"url" example:"/pages/docs/diagram.png" validate:"required"`
}

// Settings is the effective runtime configuration shown to the UI.
type Settings struct {
	PagesDirectory  string   `json:"pagesDirectory"`
	BackupDirectory string   `json:"backupDirectory,omitempty"`
	BackupsEnabled  bool     `json:"backupsEnabled"`
	AllowedOrigins  []string `json:"allowedOrigins"`
	MaxUploadBytes  int64    `json:"maxUploadBytes"`
}
