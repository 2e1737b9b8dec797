package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ObjectAPI is the part of the S3 client the archive needs.
type ObjectAPI interface {
	manager.UploadAPIClient
	s3.ListObjectsV2APIClient
}

type presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Archive stores exports in Amazon S3 (or compatible APIs) under
// <prefix>/<owner>/.
type S3Archive struct {
	api       ObjectAPI
	uploader  *manager.Uploader
	presign   presigner
	bucket    string
	keyPrefix string
	urlTTL    time.Duration
	logger    *logrus.Logger
	now       func() time.Time
}

type S3Config struct {
	Bucket    string
	KeyPrefix string
	URLTTL    time.Duration
	Logger    *logrus.Logger
}

func NewS3Archive(client *s3.Client, cfg S3Config) (*S3Archive, error) {
	a, err := newS3Archive(client, cfg)
	if err != nil {
		return nil, err
	}
	a.presign = s3.NewPresignClient(client)
	return a, nil
}

func newS3Archive(api ObjectAPI, cfg S3Config) (*S3Archive, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}
	if cfg.URLTTL <= 0 {
		cfg.URLTTL = 15 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &S3Archive{
		api:       api,
		uploader:  manager.NewUploader(api),
		bucket:    cfg.Bucket,
		keyPrefix: strings.Trim(cfg.KeyPrefix, "/"),
		urlTTL:    cfg.URLTTL,
		logger:    cfg.Logger,
		now:       time.Now,
	}, nil
}

func (s *S3Archive) ownerPrefix(owner string) string {
	owner = strings.Trim(strings.ReplaceAll(owner, "/", "_"), ". ")
	if owner == "" {
		owner = "anonymous"
	}
	if s.keyPrefix == "" {
		return owner + "/"
	}
	return s.keyPrefix + "/" + owner + "/"
}

func (s *S3Archive) Put(ctx context.Context, body []byte, opts PutOptions) (ObjectInfo, error) {
	name := path.Base("/" + opts.Filename)
	if name == "/" || name == "." {
		return ObjectInfo{}, fmt.Errorf("filename is required")
	}

	now := s.now().UTC()
	key := fmt.Sprintf("%s%s-%s-%s", s.ownerPrefix(opts.Owner), now.Format("20060102T150405Z"), uuid.NewString()[:8], name)

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body),
		ACL:    types.ObjectCannedACLPrivate,
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return ObjectInfo{}, fmt.Errorf("upload %s: %w", key, err)
	}

	s.logger.WithFields(logrus.Fields{
		"bucket": s.bucket,
		"key":    key,
		"size":   len(body),
	}).Info("export archived")

	return ObjectInfo{
		Key:          key,
		Name:         name,
		Size:         int64(len(body)),
		LastModified: &now,
	}, nil
}

// List returns the owner's archived exports, newest first.
func (s *S3Archive) List(ctx context.Context, owner string) ([]ObjectInfo, error) {
	prefix := s.ownerPrefix(owner)
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	}

	var objects []ObjectInfo
	for {
		output, err := s.api.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}

		for _, obj := range output.Contents {
			key := aws.ToString(obj.Key)
			info := ObjectInfo{
				Key:          key,
				Name:         displayName(strings.TrimPrefix(key, prefix)),
				Size:         aws.ToInt64(obj.Size),
				LastModified: obj.LastModified,
			}
			if s.presign != nil {
				req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
					Bucket: aws.String(s.bucket),
					Key:    aws.String(key),
				}, s3.WithPresignExpires(s.urlTTL))
				if err != nil {
					s.logger.WithField("key", key).Warnf("presign export: %v", err)
				} else {
					info.URL = req.URL
				}
			}
			objects = append(objects, info)
		}

		if !aws.ToBool(output.IsTruncated) || output.NextContinuationToken == nil {
			break
		}
		input.ContinuationToken = output.NextContinuationToken
	}

	// keys start with a UTC timestamp
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key > objects[j].Key })
	return objects, nil
}

// displayName strips the "<timestamp>-<id>-" part of an archived object name.
func displayName(rel string) string {
	parts := strings.SplitN(rel, "-", 3)
	if len(parts) != 3 {
		return rel
	}
	return parts[2]
}

var _ Archive = (*S3Archive)(nil)
