package usecase

import (
	"time"

	"blog-cms/internal/cms/domain/model"
)

// Shared request shapes

type IDRequest struct {
	ID string `json:"id" validate:"notblank"`
}

type PageRequest struct {
	Limit  int `json:"limit,omitempty" validate:"gte=0,lte=1000"`
	Offset int `json:"offset,omitempty" validate:"gte=0"`
}

type ExportRequest struct {
	Format string `json:"format,omitempty" validate:"omitempty,oneof=csv xlsx CSV XLSX"`
	// Filter is an optional CEL boolean expression over the exported record.
	Filter string `json:"filter,omitempty"`
}

// ExportFile is a generated spreadsheet. Data is base64 encoded in JSON.
type ExportFile struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Count       int    `json:"count"`
	Data        []byte `json:"data"`
}

// Posts

type PostIDRequest struct {
	PostID string `json:"postId" validate:"notblank"`
}

type CreatePostRequest struct {
	Title         string `json:"title,omitempty" validate:"max=300"`
	BoilerplateID string `json:"boilerplateId,omitempty"`
}

type ListPostsRequest struct {
	Published *bool `json:"published,omitempty"`
	PageRequest
}

type UpdatePostRequest struct {
	Post *model.Post `json:"post" validate:"required"`
}

type SchedulePostRequest struct {
	PostID                        string    `json:"postId" validate:"notblank"`
	ScheduledAutopublishTimestamp time.Time `json:"scheduledAutopublishTimestamp" validate:"required"`
}

type SyncResult struct {
	Posts     int `json:"posts"`
	IndexRefs int `json:"indexRefs"`
	Removed   int `json:"removed"`
}

type SweepResult struct {
	Published []string          `json:"published"`
	Failed    map[string]string `json:"failed"`
}

// Boilerplates

type SaveBoilerplateRequest struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name" validate:"notblank,max=200"`
	Content string `json:"content"`
}

// Images

type UploadImageRequest struct {
	PostID      string `json:"postId" validate:"notblank"`
	FileName    string `json:"fileName" validate:"notblank"`
	ContentType string `json:"contentType,omitempty"`
	HeroImage   bool   `json:"heroImage,omitempty"`
	Data        []byte `json:"-"`
}

type ResizeImageRequest struct {
	Path string `json:"path" validate:"notblank"`
}

type DeleteImagesResult struct {
	Deleted int `json:"deleted"`
}

// Public users

type UpdatePublicUserRequest struct {
	ID             string  `json:"id" validate:"notblank"`
	DisplayName    *string `json:"displayName,omitempty" validate:"omitempty,max=200"`
	AvatarURL      *string `json:"avatarUrl,omitempty" validate:"omitempty,url"`
	OptInConfirmed *bool   `json:"optInConfirmed,omitempty"`
}

// Subscribers

type ListSubscribersRequest struct {
	OptInConfirmed *bool `json:"optInConfirmed,omitempty"`
	PageRequest
}

type SubscribeRequest struct {
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"firstName,omitempty" validate:"max=100"`
	Source    string `json:"source,omitempty" validate:"max=50"`
}

type ImportRequest struct {
	FileName string `json:"fileName" validate:"notblank"`
	Data     []byte `json:"-"`
}

type SkippedRow struct {
	Row    int    `json:"row"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

type ImportResult struct {
	Written int          `json:"written"`
	Created int          `json:"created"`
	Updated int          `json:"updated"`
	Skipped []SkippedRow `json:"skipped"`
}

// Contact forms

type ListContactFormsRequest struct {
	Read *bool `json:"read,omitempty"`
	PageRequest
}

type MarkContactFormReadRequest struct {
	ID   string `json:"id" validate:"notblank"`
	Read *bool  `json:"read,omitempty"`
}

type SubmitContactFormRequest struct {
	Name            string `json:"name" validate:"notblank,max=200"`
	Email           string `json:"email" validate:"required,email"`
	Message         string `json:"message" validate:"notblank,max=5000"`
	OptInSubscriber bool   `json:"optInSubscriber,omitempty"`
}

// Commerce

type ListOrdersRequest struct {
	Status string `json:"status,omitempty" validate:"omitempty,oneof=pending paid refunded failed"`
	PageRequest
}

type ListProductsRequest struct {
	Active *bool `json:"active,omitempty"`
	PageRequest
}

type SetProductActiveRequest struct {
	ProductID string `json:"productId" validate:"notblank"`
	Active    bool   `json:"active"`
}

// Maintenance

type BackupResult struct {
	Collection string `json:"collection"`
	Count      int    `json:"count"`
}

type MigrationResult struct {
	Scanned int `json:"scanned"`
	Updated int `json:"updated"`
}
