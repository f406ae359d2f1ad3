package utils

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/cppla/yatube/config"
)

const (
	ThumbnailWidth  = 960
	ThumbnailHeight = 339

	// MaxImagePixels bounds width*height before an upload is decoded.
	MaxImagePixels = 40_000_000
)

var (
	ErrNotAnImage    = errors.New("upload a valid image: the file is either not an image or corrupted")
	ErrImageTooLarge = errors.New("image file is too large")
)

// MediaStorage persists uploaded files and returns their public URL.
type MediaStorage interface {
	Save(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// NewMediaStorage builds the backend named by cfg.MediaBackend.
func NewMediaStorage(ctx context.Context, cfg config.AppConfig) (MediaStorage, error) {
	switch cfg.MediaBackend {
	case "s3":
		return NewS3Storage(ctx, cfg)
	case "local", "":
		return &LocalStorage{Dir: cfg.MediaDir, BaseURL: cfg.MediaURL}, nil
	default:
		return nil, errors.Errorf("unsupported media backend %q", cfg.MediaBackend)
	}
}

// ValidateImage checks size, sniffed MIME type, pixel count and that the bytes decode as an image.
func ValidateImage(data []byte, maxBytes int64) (image.Image, string, error) {
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, "", ErrImageTooLarge
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, "", ErrNotAnImage
	}
	// the decoder allocates from the header's dimensions, so check them first
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, "", ErrNotAnImage
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxImagePixels {
		return nil, "", ErrNotAnImage
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", ErrNotAnImage
	}
	return img, mt.String(), nil
}

// Thumbnail crops img around its center to the post card size, upscaling small images.
func Thumbnail(img image.Image) ([]byte, error) {
	thumb := imaging.Fill(img, ThumbnailWidth, ThumbnailHeight, imaging.Center, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, errors.Wrap(err, "encode thumbnail")
	}
	return buf.Bytes(), nil
}

// StorePostImage saves the thumbnail of an uploaded image under posts/YYYY/MM/DD and returns its URL.
func StorePostImage(ctx context.Context, store MediaStorage, img image.Image, now time.Time) (string, error) {
	data, err := Thumbnail(img)
	if err != nil {
		return "", err
	}
	key := path.Join("posts", now.Format("2006/01/02"), uuid.NewString()+".jpg")
	url, err := store.Save(ctx, key, data, "image/jpeg")
	if err != nil {
		return "", errors.Wrapf(err, "store %s", key)
	}
	return url, nil
}

// LocalStorage writes files under Dir, served from BaseURL.
type LocalStorage struct {
	Dir     string
	BaseURL string
}

func (l *LocalStorage) Save(_ context.Context, key string, data []byte, _ string) (string, error) {
	dest := filepath.Join(l.Dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", errors.Wrap(err, "create media dir")
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return "", errors.Wrap(err, "write media file")
	}
	return strings.TrimSuffix(l.BaseURL, "/") + "/" + key, nil
}

// S3Storage uploads files to a bucket with public-read ACL.
type S3Storage struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

// NewS3Storage builds an S3 client from static credentials; S3Endpoint switches to path-style addressing.
func NewS3Storage(ctx context.Context, cfg config.AppConfig) (*S3Storage, error) {
	if cfg.S3Bucket == "" {
		return nil, errors.New("S3_BUCKET must be set for the s3 media backend")
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.S3Region)}
	if cfg.S3AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})

	baseURL := fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.S3Bucket, cfg.S3Region)
	if cfg.S3Endpoint != "" {
		baseURL = strings.TrimSuffix(cfg.S3Endpoint, "/") + "/" + cfg.S3Bucket
	}
	return &S3Storage{client: client, bucket: cfg.S3Bucket, baseURL: baseURL}, nil
}

func (s *S3Storage) Save(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		ACL:         types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", errors.Wrap(err, "s3 put object")
	}
	return s.baseURL + "/" + key, nil
}
