package model

import "time"

// Project names the document database a collection lives in.
type Project string

const (
	ProjectAdmin  Project = "admin"
	ProjectPublic Project = "public"
)

// Collection names
const (
	CollectionPosts        = "posts"
	CollectionBoilerplates = "post_boilerplates"
	CollectionAdminUsers   = "admin_users"
	CollectionSessions     = "sessions"

	CollectionBlogIndex    = "blog_index"
	CollectionPublicUsers  = "public_users"
	CollectionSubscribers  = "subscribers"
	CollectionContactForms = "contact_forms"
	CollectionOrders       = "orders"
	CollectionProducts     = "products"

	backupCollectionPrefix = "posts_backup_"
	backupTimestampLayout  = "20060102-150405"
)

// BackupCollectionName is the admin collection a post backup taken at t is written to.
func BackupCollectionName(t time.Time) string {
	return backupCollectionPrefix + t.UTC().Format(backupTimestampLayout)
}

// Field names used in queries and partial updates
const (
	FieldID                            = "_id"
	FieldPublished                     = "published"
	FieldPublishedTimestamp            = "publishedTimestamp"
	FieldScheduledAutopublishTimestamp = "scheduledAutopublishTimestamp"
	FieldLastModifiedTimestamp         = "lastModifiedTimestamp"
	FieldLastModifiedUserID            = "lastModifiedUserId"
	FieldCreatedTimestamp              = "createdTimestamp"
	FieldHeroImageProps                = "heroImageProps"
	FieldImageFilePathList             = "imageFilePathList"
	FieldImageSizesList                = "imageSizesList"
	FieldImagesUpdated                 = "imagesUpdated"
	FieldSlug                          = "slug"
	FieldKeywords                      = "keywords"
	FieldOptInConfirmed                = "optInConfirmed"
	FieldSendgridContactID             = "sendgridContactId"
	FieldRead                          = "read"
	FieldActive                        = "active"
	FieldStatus                        = "status"
	FieldName                          = "name"
	FieldDisplayName                   = "displayName"
	FieldAvatarURL                     = "avatarUrl"
	FieldOptInTimestamp                = "optInTimestamp"
	FieldUnsubscribed                  = "unsubscribed"
)
