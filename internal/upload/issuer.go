// Package upload issues short-lived, narrowly scoped credentials for direct
// client-to-S3 uploads. The issuer keeps no state of its own; the caller
// records the resulting object key.
package upload

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gosimple/slug"
)

var (
	ErrContentType = errors.New("content type not allowed")
	ErrFileSize    = errors.New("file size out of range")
)

const maxKeyBaseLen = 100

// PostPresigner is the slice of the S3 presign client the issuer needs.
type PostPresigner interface {
	PresignPostObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignPostOptions)) (*s3.PresignedPostRequest, error)
}

type Request struct {
	MeetingUUID string
	UserID      uint64
	ContentType string
	FileName    string
	FileSize    int64
}

// Grant is what the client needs to POST the file straight to storage. Every
// field in Fields must be sent back verbatim as multipart form data.
type Grant struct {
	URL              string            `json:"url"`
	Fields           map[string]string `json:"fields"`
	Key              string            `json:"key"`
	ExpiresInSeconds int64             `json:"expiresInSeconds"`
	MaxBytes         int64             `json:"maxBytes"`
	Allowed          []string          `json:"allowed"`
}

type Issuer struct {
	Presigner PostPresigner
	Bucket    string
	Expires   time.Duration
	MaxBytes  int64
}

// Issue validates the request and produces a presigned POST scoped to one
// object key, one content type, SSE-S3, and the size cap. The constraints
// are policy conditions on the credential, so the client cannot widen them.
func (i *Issuer) Issue(ctx context.Context, req Request) (*Grant, error) {
	if !allowedContentType(req.ContentType) {
		return nil, ErrContentType
	}
	if req.FileSize < 1 || req.FileSize > i.MaxBytes {
		return nil, ErrFileSize
	}

	key := i.objectKey(req)
	userID := strconv.FormatUint(req.UserID, 10)

	out, err := i.Presigner.PresignPostObject(ctx, &s3.PutObjectInput{
		Bucket:               aws.String(i.Bucket),
		Key:                  aws.String(key),
		ContentType:          aws.String(req.ContentType),
		ServerSideEncryption: types.ServerSideEncryptionAes256,
		Metadata:             map[string]string{"user-id": userID},
	}, func(opts *s3.PresignPostOptions) {
		opts.Expires = i.Expires
		// every form field in Grant.Fields needs a matching condition:
		// S3 rejects a POST carrying a field the policy does not mention
		opts.Conditions = []interface{}{
			[]interface{}{"eq", "$Content-Type", req.ContentType},
			[]interface{}{"eq", "$x-amz-meta-user-id", userID},
			[]interface{}{"eq", "$x-amz-server-side-encryption", "AES256"},
			[]interface{}{"eq", "$success_action_status", "201"},
			[]interface{}{"content-length-range", 1, i.MaxBytes},
		}
	})
	if err != nil {
		return nil, fmt.Errorf("presign post: %w", err)
	}

	fields := make(map[string]string, len(out.Values)+4)
	for k, v := range out.Values {
		fields[k] = v
	}
	fields["Content-Type"] = req.ContentType
	fields["x-amz-server-side-encryption"] = "AES256"
	fields["x-amz-meta-user-id"] = userID
	// S3 answers 201 with an XML body carrying key and ETag
	fields["success_action_status"] = "201"

	return &Grant{
		URL:              out.URL,
		Fields:           fields,
		Key:              key,
		ExpiresInSeconds: int64(i.Expires / time.Second),
		MaxBytes:         i.MaxBytes,
		Allowed:          AllowedAudioTypes,
	}, nil
}

// objectKey namespaces the object under the meeting uuid and appends a
// timestamp so repeated uploads of identically named files cannot collide.
func (i *Issuer) objectKey(req Request) string {
	base := strings.TrimSuffix(req.FileName, path.Ext(req.FileName))
	safe := slug.Make(base)
	if len(safe) > maxKeyBaseLen {
		safe = safe[:maxKeyBaseLen]
	}
	ext := extByMIME[req.ContentType]
	return fmt.Sprintf("%s/%s%d.%s", req.MeetingUUID, safe, time.Now().UnixMilli(), ext)
}
