// Package main implements the attachment Lambda handler: presigned
// upload grants and registration of uploaded files on checklist items.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-lambda-go/otellambda"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-lambda-go/otellambda/xrayconfig"
	"go.opentelemetry.io/otel"

	"github.com/checklists-vnext/checklist-service/internal/attachment"
	"github.com/checklists-vnext/checklist-service/internal/checklist"
	"github.com/checklists-vnext/checklist-service/internal/identity"
	"github.com/checklists-vnext/checklist-service/internal/invoke"
	"github.com/checklists-vnext/checklist-service/internal/store"
	"github.com/checklists-vnext/checklist-service/internal/template"
)

var logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
	Level: slog.LevelInfo,
}))

// UploadGranter issues presigned upload slots.
type UploadGranter interface {
	GrantUpload(ctx context.Context, orgID, checklistID, itemID, fileName, mimeType string) (*attachment.Upload, error)
}

// AttachmentRegistrar records uploaded files on checklist items.
type AttachmentRegistrar interface {
	RegisterAttachment(ctx context.Context, caller identity.Caller, checklistID, itemID string, a checklist.Attachment) (*checklist.ChecklistItem, error)
}

// handler implements the attachment logic.
type handler struct {
	granter   UploadGranter
	registrar AttachmentRegistrar
	now       func() time.Time
}

func newHandler(granter UploadGranter, registrar AttachmentRegistrar) *handler {
	return &handler{granter: granter, registrar: registrar, now: time.Now}
}

// handle processes one attachment request.
func (h *handler) handle(ctx context.Context, request invoke.Request) (invoke.Response, error) {
	tracer := otel.Tracer("attachment-set")
	ctx, span := tracer.Start(ctx, "AttachmentSetHandler")
	defer span.End()

	caller := request.Caller
	args := request.Args

	switch request.Op {
	case "attachment.grantUpload":
		upload, err := h.granter.GrantUpload(ctx, caller.OrgID,
			invoke.String(args, "checklistId"), invoke.String(args, "itemId"),
			invoke.String(args, "fileName"), invoke.String(args, "mimeType"))
		if err != nil {
			return h.fail(ctx, request.Op, err), nil
		}
		return invoke.OK(map[string]any{
			"attachmentId": upload.AttachmentID,
			"s3Key":        upload.Key,
			"uploadUrl":    upload.URL,
			"expiresAt":    upload.ExpiresAt.Format(time.RFC3339),
		}), nil

	case "attachment.register":
		a := checklist.Attachment{
			AttachmentID: invoke.String(args, "attachmentId"),
			FileName:     invoke.String(args, "fileName"),
			MimeType:     invoke.String(args, "mimeType"),
			S3Key:        invoke.String(args, "s3Key"),
			UploadedBy:   caller.UserID,
			UploadedAt:   h.now().UTC(),
		}
		if size, ok := args["fileSize"].(float64); ok {
			a.FileSize = int64(size)
		}
		item, err := h.registrar.RegisterAttachment(ctx, caller,
			invoke.String(args, "checklistId"), invoke.String(args, "itemId"), a)
		if err != nil {
			return h.fail(ctx, request.Op, err), nil
		}
		return invoke.OK(map[string]any{
			"itemId":          item.ItemID,
			"attachmentCount": len(item.Attachments),
		}), nil
	}

	return invoke.Fail(invoke.CodeUnknownOperation, "unsupported operation: "+request.Op), nil
}

// fail translates errors to coded responses.
func (h *handler) fail(ctx context.Context, op string, err error) invoke.Response {
	switch {
	case errors.Is(err, checklist.ErrChecklistNotFound),
		errors.Is(err, checklist.ErrItemNotFound):
		return invoke.Fail(invoke.CodeNotFound, err.Error())
	case errors.Is(err, attachment.ErrMissingFileName):
		return invoke.Fail(invoke.CodeInvalidArguments, err.Error())
	}
	logger.ErrorContext(ctx, "Attachment operation failed",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
	return invoke.Fail(invoke.CodeStorageError, err.Error())
}

func main() {
	ctx := context.Background()

	tp, err := xrayconfig.NewTracerProvider(ctx)
	if err != nil {
		logger.Error("FATAL: Failed to initialize tracer provider", slog.String("error", err.Error()))
		panic(err)
	}
	otel.SetTracerProvider(tp)

	tableName := os.Getenv("CHECKLIST_TABLE_NAME")
	bucket := os.Getenv("ATTACHMENTS_BUCKET")

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		logger.Error("FATAL: Failed to load AWS config", slog.String("error", err.Error()))
		panic(err)
	}

	dynamoClient := dynamodb.NewFromConfig(cfg)
	storeClient := store.NewClient(dynamoClient, tableName)
	repo := checklist.NewRepository(storeClient)
	templates := template.NewRepository(storeClient)
	workflow := checklist.NewWorkflow(repo, templates)

	presigner := s3.NewPresignClient(s3.NewFromConfig(cfg))
	granter := attachment.NewService(presigner, bucket)

	h := newHandler(granter, workflow)
	lambda.Start(otellambda.InstrumentHandler(h.handle, xrayconfig.WithRecommendedOptions(tp)...))
}
