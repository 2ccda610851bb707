package capability

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const listImagesLimit = 25

// ImageStore wraps an S3-compatible bucket used by the image capabilities.
type ImageStore struct {
	api    *minio.Client
	bucket string
}

// NewImageStore creates a client for the configured bucket.
func NewImageStore(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*ImageStore, error) {
	api, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create image storage client: %w", err)
	}

	return &ImageStore{api: api, bucket: bucket}, nil
}

// ImageUpload implements the uploadImage capability. The image bytes come
// from the invocation context (the user's original attachment), not from
// the model-issued arguments.
type ImageUpload struct {
	store *ImageStore
}

// NewImageUpload creates the upload capability.
func NewImageUpload(store *ImageStore) *ImageUpload {
	return &ImageUpload{store: store}
}

// Invoke implements Invoker.
// Arguments: folder (string, optional), public_id (string, optional).
func (u *ImageUpload) Invoke(ctx context.Context, args map[string]any, inv Invocation) (Result, error) {
	if inv.MediaData == "" {
		return nil, errors.New("no image is attached to this message")
	}

	raw, err := base64.StdEncoding.DecodeString(inv.MediaData)
	if err != nil {
		return nil, fmt.Errorf("decode attached image: %w", err)
	}

	name, _ := args["public_id"].(string)
	name = strings.TrimSpace(name)
	if name == "" {
		name = uuid.NewString()
	}
	key := name
	if folder, _ := args["folder"].(string); strings.TrimSpace(folder) != "" {
		key = strings.Trim(folder, "/") + "/" + name
	}

	contentType := inv.MediaMIME
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	info, err := u.store.api.PutObject(ctx, u.store.bucket, key, bytes.NewReader(raw), int64(len(raw)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return nil, fmt.Errorf("upload image %q: %w", key, err)
	}

	return Result{
		"uploaded":   true,
		"public_id":  name,
		"key":        info.Key,
		"size_bytes": info.Size,
	}, nil
}

// ImageList implements the listImages capability.
type ImageList struct {
	store *ImageStore
}

// NewImageList creates the listing capability.
func NewImageList(store *ImageStore) *ImageList {
	return &ImageList{store: store}
}

// Invoke implements Invoker.
// Arguments: folder (string, optional).
func (l *ImageList) Invoke(ctx context.Context, args map[string]any, _ Invocation) (Result, error) {
	prefix, _ := args["folder"].(string)
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}

	var images []map[string]any
	opts := minio.ListObjectsOptions{Prefix: prefix, Recursive: true}
	for obj := range l.store.api.ListObjects(ctx, l.store.bucket, opts) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list images under %q: %w", prefix, obj.Err)
		}
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}
		images = append(images, map[string]any{
			"key":           obj.Key,
			"size_bytes":    obj.Size,
			"last_modified": obj.LastModified.Format("2006-01-02 15:04:05"),
		})
		if len(images) >= listImagesLimit {
			break
		}
	}

	return Result{
		"folder": strings.TrimSuffix(prefix, "/"),
		"images": images,
		"count":  len(images),
	}, nil
}
