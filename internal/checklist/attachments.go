package checklist

import (
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// MarshalAttachments converts an item's attachment list to a DynamoDB
// list attribute, for use in sparse updates.
func MarshalAttachments(attachments []Attachment) types.AttributeValue {
	list := make([]types.AttributeValue, len(attachments))
	for i, a := range attachments {
		entry := map[string]types.AttributeValue{
			AttrAttachmentID: &types.AttributeValueMemberS{Value: a.AttachmentID},
			AttrFileName:     &types.AttributeValueMemberS{Value: a.FileName},
			AttrFileSize:     &types.AttributeValueMemberN{Value: strconv.FormatInt(a.FileSize, 10)},
			AttrMimeType:     &types.AttributeValueMemberS{Value: a.MimeType},
			AttrS3Key:        &types.AttributeValueMemberS{Value: a.S3Key},
			AttrUploadedBy:   &types.AttributeValueMemberS{Value: a.UploadedBy},
			AttrUploadedAt:   &types.AttributeValueMemberS{Value: a.UploadedAt.UTC().Format(time.RFC3339)},
		}
		list[i] = &types.AttributeValueMemberM{Value: entry}
	}
	return &types.AttributeValueMemberL{Value: list}
}

func unmarshalAttachments(list []types.AttributeValue) []Attachment {
	attachments := make([]Attachment, 0, len(list))
	for _, entry := range list {
		m, ok := entry.(*types.AttributeValueMemberM)
		if !ok {
			continue
		}
		a := Attachment{
			AttachmentID: getS(m.Value, AttrAttachmentID),
			FileName:     getS(m.Value, AttrFileName),
			MimeType:     getS(m.Value, AttrMimeType),
			S3Key:        getS(m.Value, AttrS3Key),
			UploadedBy:   getS(m.Value, AttrUploadedBy),
			UploadedAt:   getTime(m.Value, AttrUploadedAt),
		}
		if v, ok := m.Value[AttrFileSize].(*types.AttributeValueMemberN); ok {
			if n, err := strconv.ParseInt(v.Value, 10, 64); err == nil {
				a.FileSize = n
			}
		}
		attachments = append(attachments, a)
	}
	return attachments
}
