package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPost_IndexRef(t *testing.T) {
	published := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	p := &Post{
		ID:                 "p1",
		Title:              "Hello World",
		Slug:               "hello-world",
		Description:        "desc",
		Content:            "<p>body</p>",
		HeroImageProps:     &ImageProps{Src: "https://cdn/x.jpg", Width: 1800},
		Published:          true,
		PublishedTimestamp: &published,
	}

	ref := p.IndexRef()
	assert.Equal(t, "p1", ref.ID)
	assert.Equal(t, "hello-world", ref.Slug)
	assert.Equal(t, p.HeroImageProps, ref.HeroImageProps)
	assert.True(t, ref.Published)
	assert.Equal(t, &published, ref.PublishedTimestamp)
}

func TestPost_Clone(t *testing.T) {
	sched := time.Now()
	p := &Post{ID: "p1", Keywords: []string{"go"}, HeroImageProps: &ImageProps{Src: "a"}, ScheduledAutopublishTimestamp: &sched}
	c := p.Clone()
	c.Keywords[0] = "rust"
	c.HeroImageProps.Src = "b"
	*c.ScheduledAutopublishTimestamp = sched.Add(time.Hour)

	assert.Equal(t, "go", p.Keywords[0])
	assert.Equal(t, "a", p.HeroImageProps.Src)
	assert.Equal(t, sched, *p.ScheduledAutopublishTimestamp)
}

func TestPost_IsScheduledBefore(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	assert.True(t, (&Post{ScheduledAutopublishTimestamp: &past}).IsScheduledBefore(now))
	assert.True(t, (&Post{ScheduledAutopublishTimestamp: &now}).IsScheduledBefore(now))
	assert.False(t, (&Post{ScheduledAutopublishTimestamp: &future}).IsScheduledBefore(now))
	assert.False(t, (&Post{Published: true, ScheduledAutopublishTimestamp: &past}).IsScheduledBefore(now))
	assert.False(t, (&Post{}).IsScheduledBefore(now))
}

func TestMakeSlug(t *testing.T) {
	assert.Equal(t, "learning-go-in-2024", MakeSlug("  Learning Go in 2024! "))
}

func TestNormalizeKeywords(t *testing.T) {
	got := NormalizeKeywords([]string{" Go ", "go", "", "Concurrency", "  "})
	assert.Equal(t, []string{"go", "concurrency"}, got)
}

func TestBackupCollectionName(t *testing.T) {
	ts := time.Date(2024, 3, 9, 7, 5, 1, 0, time.UTC)
	assert.Equal(t, "posts_backup_20240309-070501", BackupCollectionName(ts))
}

func TestQueryBuilderDoesNotAlias(t *testing.T) {
	base := NewQuery().Where(FieldPublished, OperatorEqual, false)
	a := base.Where("title", OperatorEqual, "a")
	b := base.Where("title", OperatorEqual, "b").OrderBy(FieldLastModifiedTimestamp, Descending).WithLimit(10).WithOffset(5)

	assert.Len(t, base.Filters, 1)
	assert.Equal(t, "a", a.Filters[1].Value)
	assert.Equal(t, "b", b.Filters[1].Value)
	assert.Equal(t, 10, b.Limit)
	assert.Equal(t, 5, b.Offset)
	assert.Empty(t, a.Orders)
}

func TestOperatorIsValid(t *testing.T) {
	assert.True(t, OperatorArrayContains.IsValid())
	assert.False(t, Operator("like").IsValid())
}

func TestBatchOps(t *testing.T) {
	set := SetOp("a", &Post{ID: "a"})
	assert.Equal(t, BatchOperationTypeSet, set.Type)
	upd := UpdateOp[Post]("a", map[string]interface{}{FieldSlug: DeleteField})
	assert.True(t, IsDeleteField(upd.Fields[FieldSlug]))
	assert.False(t, IsDeleteField(nil))
	assert.Equal(t, BatchOperationTypeDelete, DeleteOp[Post]("a").Type)
}

func TestEmailSubscriber_AddSource(t *testing.T) {
	s := &EmailSubscriber{}
	s.AddSource(SubSourceBlog)
	s.AddSource(SubSourceContactForm)
	s.AddSource(SubSourceBlog)
	assert.Equal(t, []string{SubSourceBlog, SubSourceContactForm}, s.SubscriptionSources)
	assert.Equal(t, SubSourceBlog, s.LastSubSource)
	assert.Equal(t, "reader@example.com", SubscriberID("  Reader@Example.com "))
}
