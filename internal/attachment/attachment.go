// Package attachment hands out presigned S3 PUT URLs for checklist
// file uploads. The service never proxies file bytes; clients upload
// directly to S3 and then register the attachment metadata against the
// checklist item.
package attachment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// UploadExpiry bounds how long a presigned upload URL stays valid.
const UploadExpiry = time.Hour

// ErrMissingFileName is returned when an upload request has no file name.
var ErrMissingFileName = errors.New("attachment file name is required")

// Presigner generates presigned S3 requests. *s3.PresignClient
// implements it.
type Presigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Upload describes a granted upload slot.
type Upload struct {
	AttachmentID string
	Key          string
	URL          string
	ExpiresAt    time.Time
}

// Service issues upload URLs for one bucket.
type Service struct {
	presigner Presigner
	bucket    string
	newID     func() string
	now       func() time.Time
}

// NewService creates a Service.
func NewService(presigner Presigner, bucket string) *Service {
	return &Service{
		presigner: presigner,
		bucket:    bucket,
		newID:     func() string { return uuid.New().String() },
		now:       time.Now,
	}
}

// ObjectKey builds the S3 key for an attachment. Item-level
// attachments nest under an items/ segment; itemID may be empty for
// checklist-level files.
func ObjectKey(orgID, checklistID, itemID, attachmentID, fileName string) string {
	if itemID != "" {
		return fmt.Sprintf("%s/%s/items/%s/%s/%s", orgID, checklistID, itemID, attachmentID, fileName)
	}
	return fmt.Sprintf("%s/%s/%s/%s", orgID, checklistID, attachmentID, fileName)
}

// GrantUpload allocates an attachment id and returns a presigned PUT
// URL for it.
func (s *Service) GrantUpload(ctx context.Context, orgID, checklistID, itemID, fileName, mimeType string) (*Upload, error) {
	if fileName == "" {
		return nil, ErrMissingFileName
	}
	attachmentID := s.newID()
	key := ObjectKey(orgID, checklistID, itemID, attachmentID, fileName)

	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(mimeType),
	}, func(o *s3.PresignOptions) {
		o.Expires = UploadExpiry
	})
	if err != nil {
		return nil, fmt.Errorf("presign upload: %w", err)
	}

	return &Upload{
		AttachmentID: attachmentID,
		Key:          key,
		URL:          req.URL,
		ExpiresAt:    s.now().UTC().Add(UploadExpiry),
	}, nil
}
