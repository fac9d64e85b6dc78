package usecase

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"regexp"
	"strings"

	"blog-cms/internal/cms/domain/model"
	apperrors "blog-cms/internal/shared/errors"
	"blog-cms/internal/shared/logger"
	"blog-cms/internal/shared/validation"

	"github.com/gosimple/slug"
)

const originalBaseName = "original"

var variantName = regexp.MustCompile(`-\d+\.jpg$`)

// ImageUsecaseInterface stores post images and their resized variants.
type ImageUsecaseInterface interface {
	UploadPostImage(ctx context.Context, req UploadImageRequest) (*model.ImageProps, error)
	ResizeImage(ctx context.Context, req ResizeImageRequest) (*model.ImageProps, error)
	DeletePostImages(ctx context.Context, postID string) (*DeleteImagesResult, error)
}

// ImageUsecase lays images out as posts/<postId>/<name>/original.<ext> with
// variants posts/<postId>/<name>/<name>-<width>.jpg next to it.
type ImageUsecase struct {
	deps  Dependencies
	posts *PostUsecase
	log   logger.Logger
}

var _ ImageUsecaseInterface = (*ImageUsecase)(nil)

func NewImageUsecase(deps Dependencies, posts *PostUsecase) *ImageUsecase {
	deps = deps.withDefaults()
	return &ImageUsecase{deps: deps, posts: posts, log: deps.Logger.WithComponent("image_usecase")}
}

// UploadPostImage stores an uploaded image, renders its variants and records
// them on the admin post, either as the hero image or in the image lists. A
// published post is mirrored to the public store first.
func (uc *ImageUsecase) UploadPostImage(ctx context.Context, req UploadImageRequest) (*model.ImageProps, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if len(req.Data) == 0 {
		return nil, apperrors.NewValidationError("image is empty")
	}
	if len(req.Data) > uc.deps.Settings.MaxUploadBytes {
		return nil, apperrors.NewValidationError(fmt.Sprintf("image exceeds %d bytes", uc.deps.Settings.MaxUploadBytes))
	}
	contentType := http.DetectContentType(req.Data)
	if !strings.HasPrefix(contentType, "image/") {
		return nil, apperrors.NewValidationError("file is not an image").WithDetail("contentType", contentType)
	}

	post, err := uc.posts.getPost(ctx, req.PostID)
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(path.Ext(req.FileName))
	name := slug.Make(strings.TrimSuffix(path.Base(req.FileName), path.Ext(req.FileName)))
	if name == "" {
		name = "image"
	}
	folder := path.Join("posts", post.ID, name)
	if err := uc.deps.Storage.Upload(ctx, folder+"/"+originalBaseName+ext, req.Data, contentType); err != nil {
		return nil, apperrors.NewInfrastructureError("failed to store image").WithCause(err)
	}

	props, paths, widths, err := uc.renderVariants(ctx, folder, name, req.Data)
	if err != nil {
		return nil, err
	}

	now := uc.deps.now()
	post.ImagesUpdated = &now
	post.LastModifiedTimestamp = now
	post.LastModifiedUserID = actor(ctx)
	fields := map[string]interface{}{
		model.FieldImagesUpdated:         now,
		model.FieldLastModifiedTimestamp: now,
		model.FieldLastModifiedUserID:    post.LastModifiedUserID,
	}
	if req.HeroImage {
		post.HeroImageProps = props
		fields[model.FieldHeroImageProps] = props
	} else {
		post.ImageFilePathList = mergePaths(post.ImageFilePathList, paths)
		post.ImageSizesList = widths
		fields[model.FieldImageFilePathList] = post.ImageFilePathList
		fields[model.FieldImageSizesList] = widths
	}
	if post.Published {
		if err := uc.posts.writePublic(ctx, post); err != nil {
			return nil, err
		}
	}
	if err := uc.deps.Stores.AdminPosts.Update(ctx, post.ID, fields); err != nil {
		return nil, apperrors.WrapError(err, "failed to record post image")
	}

	uc.log.WithContext(ctx).WithFields(map[string]interface{}{
		"post_id":  post.ID,
		"image":    name,
		"variants": len(paths),
		"hero":     req.HeroImage,
	}).Info("Post image uploaded")
	return props, nil
}

// ResizeImage renders variants for an object already in storage. The object is
// either an original inside an image folder or a loose file, whose variants
// then go to a folder named after it.
func (uc *ImageUsecase) ResizeImage(ctx context.Context, req ResizeImageRequest) (*model.ImageProps, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	objectPath := strings.TrimLeft(path.Clean(req.Path), "/")
	if !strings.HasPrefix(objectPath, "posts/") {
		return nil, apperrors.NewValidationError("path must be under posts/")
	}

	dir, base := path.Split(objectPath)
	dir = strings.TrimSuffix(dir, "/")
	stem := strings.TrimSuffix(base, path.Ext(base))
	var folder, name string
	if stem == originalBaseName {
		folder, name = dir, path.Base(dir)
	} else {
		name = slug.Make(stem)
		if name == "" {
			name = "image"
		}
		folder = path.Join(dir, name)
	}
	if variantName.MatchString(base) && strings.HasPrefix(base, path.Base(dir)+"-") {
		return nil, apperrors.NewPreconditionError("path is already a resized variant")
	}

	data, err := uc.deps.Storage.Download(ctx, objectPath)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFoundError("image").WithCause(err)
		}
		return nil, apperrors.NewInfrastructureError("failed to read image").WithCause(err)
	}

	props, _, _, err := uc.renderVariants(ctx, folder, name, data)
	if err != nil {
		return nil, err
	}
	return props, nil
}

// DeletePostImages removes every object stored for a post.
func (uc *ImageUsecase) DeletePostImages(ctx context.Context, postID string) (*DeleteImagesResult, error) {
	if strings.TrimSpace(postID) == "" || strings.Contains(postID, "/") {
		return nil, apperrors.NewValidationError("invalid postId")
	}
	n, err := uc.deps.Storage.DeletePrefix(ctx, postFolder(postID))
	if err != nil {
		return nil, apperrors.NewInfrastructureError("failed to delete post images").WithCause(err)
	}
	uc.log.WithContext(ctx).WithFields(map[string]interface{}{"post_id": postID, "deleted": n}).Info("Post images deleted")
	return &DeleteImagesResult{Deleted: n}, nil
}

func (uc *ImageUsecase) renderVariants(ctx context.Context, folder, name string, data []byte) (*model.ImageProps, []string, []int, error) {
	variants, err := uc.deps.Resizer.Resize(data)
	if err != nil {
		return nil, nil, nil, apperrors.NewValidationError("image could not be decoded").WithCause(err)
	}

	paths := make([]string, 0, len(variants))
	widths := make([]int, 0, len(variants))
	srcset := make([]string, 0, len(variants))
	for _, v := range variants {
		p := fmt.Sprintf("%s/%s-%d.jpg", folder, name, v.Width)
		if err := uc.deps.Storage.Upload(ctx, p, v.Data, "image/jpeg"); err != nil {
			return nil, nil, nil, apperrors.NewInfrastructureError("failed to store image variant").WithCause(err)
		}
		paths = append(paths, p)
		widths = append(widths, v.Width)
		srcset = append(srcset, fmt.Sprintf("%s %dw", uc.deps.Storage.PublicURL(p), v.Width))
	}

	largest := variants[len(variants)-1].Width
	props := &model.ImageProps{
		Src:      uc.deps.Storage.PublicURL(paths[len(paths)-1]),
		Srcset:   strings.Join(srcset, ", "),
		Sizes:    fmt.Sprintf("(max-width: %dpx) 100vw, %dpx", largest, largest),
		Width:    largest,
		FileName: name,
	}
	return props, paths, widths, nil
}

func mergePaths(existing, added []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(added))
	out := make([]string, 0, len(existing)+len(added))
	for _, p := range append(append([]string(nil), existing...), added...) {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
