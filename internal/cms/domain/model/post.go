package model

import (
	"strings"
	"time"

	"github.com/gosimple/slug"
)

// ImageProps describes a responsive image stored in object storage.
type ImageProps struct {
	Src      string `json:"src" bson:"src"`
	Srcset   string `json:"srcset" bson:"srcset"`
	Sizes    string `json:"sizes" bson:"sizes"`
	Width    int    `json:"width" bson:"width"`
	FileName string `json:"fileName" bson:"fileName"`
}

// Post is a blog post. The admin store holds every post; the public store holds a
// copy of each published one.
type Post struct {
	ID                            string      `json:"id" bson:"_id"`
	Title                         string      `json:"title" bson:"title" validate:"max=300"`
	Slug                          string      `json:"slug" bson:"slug"`
	Description                   string      `json:"description" bson:"description" validate:"max=1000"`
	Keywords                      []string    `json:"keywords" bson:"keywords"`
	Content                       string      `json:"content" bson:"content"`
	VideoURL                      string      `json:"videoUrl,omitempty" bson:"videoUrl,omitempty" validate:"omitempty,url"`
	PodcastEpisodeURL             string      `json:"podcastEpisodeUrl,omitempty" bson:"podcastEpisodeUrl,omitempty" validate:"omitempty,url"`
	AuthorID                      string      `json:"authorId" bson:"authorId"`
	HeroImageProps                *ImageProps `json:"heroImageProps,omitempty" bson:"heroImageProps,omitempty"`
	ImageFilePathList             []string    `json:"imageFilePathList" bson:"imageFilePathList"`
	ImageSizesList                []int       `json:"imageSizesList" bson:"imageSizesList"`
	ImagesUpdated                 *time.Time  `json:"imagesUpdated,omitempty" bson:"imagesUpdated,omitempty"`
	Published                     bool        `json:"published" bson:"published"`
	ReadyToPublish                bool        `json:"readyToPublish" bson:"readyToPublish"`
	PublishedTimestamp            *time.Time  `json:"publishedTimestamp,omitempty" bson:"publishedTimestamp,omitempty"`
	ScheduledAutopublishTimestamp *time.Time  `json:"scheduledAutopublishTimestamp,omitempty" bson:"scheduledAutopublishTimestamp,omitempty"`
	CreatedTimestamp              time.Time   `json:"createdTimestamp" bson:"createdTimestamp"`
	LastModifiedTimestamp         time.Time   `json:"lastModifiedTimestamp" bson:"lastModifiedTimestamp"`
	LastModifiedUserID            string      `json:"lastModifiedUserId" bson:"lastModifiedUserId"`
}

// BlogIndexRef is the summary of a published post used by listing pages.
type BlogIndexRef struct {
	ID                    string      `json:"id" bson:"_id"`
	Title                 string      `json:"title" bson:"title"`
	Slug                  string      `json:"slug" bson:"slug"`
	Description           string      `json:"description" bson:"description"`
	HeroImageProps        *ImageProps `json:"heroImageProps,omitempty" bson:"heroImageProps,omitempty"`
	Published             bool        `json:"published" bson:"published"`
	PublishedTimestamp    *time.Time  `json:"publishedTimestamp,omitempty" bson:"publishedTimestamp,omitempty"`
	LastModifiedTimestamp time.Time   `json:"lastModifiedTimestamp" bson:"lastModifiedTimestamp"`
}

// IndexRef builds the BlogIndexRef mirroring p.
func (p *Post) IndexRef() *BlogIndexRef {
	return &BlogIndexRef{
		ID:                    p.ID,
		Title:                 p.Title,
		Slug:                  p.Slug,
		Description:           p.Description,
		HeroImageProps:        p.HeroImageProps,
		Published:             p.Published,
		PublishedTimestamp:    p.PublishedTimestamp,
		LastModifiedTimestamp: p.LastModifiedTimestamp,
	}
}

// Clone returns a copy of p that shares no slices or pointers with it.
func (p *Post) Clone() *Post {
	c := *p
	c.Keywords = append([]string(nil), p.Keywords...)
	c.ImageFilePathList = append([]string(nil), p.ImageFilePathList...)
	c.ImageSizesList = append([]int(nil), p.ImageSizesList...)
	if p.HeroImageProps != nil {
		hero := *p.HeroImageProps
		c.HeroImageProps = &hero
	}
	c.ImagesUpdated = copyTime(p.ImagesUpdated)
	c.PublishedTimestamp = copyTime(p.PublishedTimestamp)
	c.ScheduledAutopublishTimestamp = copyTime(p.ScheduledAutopublishTimestamp)
	return &c
}

// IsScheduledBefore reports whether p is an unpublished post due at or before t.
func (p *Post) IsScheduledBefore(t time.Time) bool {
	return !p.Published && p.ScheduledAutopublishTimestamp != nil && !p.ScheduledAutopublishTimestamp.After(t)
}

// MakeSlug derives a URL slug from a title.
func MakeSlug(title string) string {
	return slug.Make(title)
}

// NormalizeKeywords trims, lower-cases and de-duplicates keywords, keeping first-seen order.
func NormalizeKeywords(keywords []string) []string {
	seen := make(map[string]struct{}, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// PostBoilerplate is reusable starting content for new posts.
type PostBoilerplate struct {
	ID                    string    `json:"id" bson:"_id"`
	Name                  string    `json:"name" bson:"name" validate:"notblank,max=200"`
	Content               string    `json:"content" bson:"content"`
	CreatedTimestamp      time.Time `json:"createdTimestamp" bson:"createdTimestamp"`
	LastModifiedTimestamp time.Time `json:"lastModifiedTimestamp" bson:"lastModifiedTimestamp"`
	LastModifiedUserID    string    `json:"lastModifiedUserId" bson:"lastModifiedUserId"`
}
