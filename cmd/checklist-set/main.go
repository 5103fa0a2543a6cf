// Package main implements the checklist mutation Lambda handler.
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
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-lambda-go/otellambda"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-lambda-go/otellambda/xrayconfig"
	"go.opentelemetry.io/otel"

	"github.com/checklists-vnext/checklist-service/internal/checklist"
	"github.com/checklists-vnext/checklist-service/internal/identity"
	"github.com/checklists-vnext/checklist-service/internal/invoke"
	"github.com/checklists-vnext/checklist-service/internal/store"
	"github.com/checklists-vnext/checklist-service/internal/template"
)

var logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
	Level: slog.LevelInfo,
}))

// ChecklistWorkflow defines the mutations this handler drives.
type ChecklistWorkflow interface {
	Create(ctx context.Context, caller identity.Caller, p checklist.CreateParams) (*checklist.Checklist, error)
	Update(ctx context.Context, caller identity.Caller, checklistID string, p checklist.UpdateParams) (*checklist.Checklist, error)
	AddItem(ctx context.Context, caller identity.Caller, checklistID string, p checklist.ItemParams) (*checklist.ChecklistItem, error)
	UpdateItem(ctx context.Context, caller identity.Caller, checklistID, itemID string, p checklist.ItemUpdateParams) (*checklist.ChecklistItem, error)
	AttachMedia(ctx context.Context, caller identity.Caller, checklistID, itemID, mediaURL, mediaType string) error
	Complete(ctx context.Context, caller identity.Caller, checklistID string) (*checklist.Checklist, error)
	Delete(ctx context.Context, caller identity.Caller, checklistID string) error
}

// handler implements the checklist mutation logic.
type handler struct {
	workflow ChecklistWorkflow
}

func newHandler(workflow ChecklistWorkflow) *handler {
	return &handler{workflow: workflow}
}

// handle processes one checklist mutation request.
func (h *handler) handle(ctx context.Context, request invoke.Request) (invoke.Response, error) {
	tracer := otel.Tracer("checklist-set")
	ctx, span := tracer.Start(ctx, "ChecklistSetHandler")
	defer span.End()

	caller := request.Caller
	args := request.Args

	switch request.Op {
	case "checklist.create":
		c, err := h.workflow.Create(ctx, caller, checklist.CreateParams{
			TemplateID:  invoke.String(args, "templateId"),
			CategoryID:  invoke.String(args, "categoryId"),
			Title:       invoke.String(args, "title"),
			Description: invoke.String(args, "description"),
			AssigneeID:  invoke.String(args, "assigneeId"),
			OwnerIDs:    invoke.StringSlice(args, "ownerIds"),
			TeamID:      invoke.String(args, "teamId"),
			StartDate:   invoke.String(args, "startDate"),
			EndDate:     invoke.String(args, "endDate"),
			DueDate:     invoke.String(args, "dueDate"),
			Recurrence:  invoke.String(args, "recurrence"),
		})
		if err != nil {
			return h.fail(ctx, request.Op, err), nil
		}
		return invoke.OK(checklistToMap(c)), nil

	case "checklist.update":
		p := checklist.UpdateParams{}
		p.Title, _ = invoke.OptionalString(args, "title")
		p.Description, _ = invoke.OptionalString(args, "description")
		p.Status, _ = invoke.OptionalString(args, "status")
		p.CategoryID, _ = invoke.OptionalString(args, "categoryId")
		p.AssigneeID, _ = invoke.OptionalString(args, "assigneeId")
		p.TeamID, _ = invoke.OptionalString(args, "teamId")
		p.StartDate, _ = invoke.OptionalString(args, "startDate")
		p.EndDate, _ = invoke.OptionalString(args, "endDate")
		p.DueDate, _ = invoke.OptionalString(args, "dueDate")
		p.Recurrence, _ = invoke.OptionalString(args, "recurrence")
		p.NextRecurrenceDate, _ = invoke.OptionalString(args, "nextRecurrenceDate")
		if _, present := args["ownerIds"]; present {
			owners := invoke.StringSlice(args, "ownerIds")
			p.OwnerIDs = &owners
		}
		c, err := h.workflow.Update(ctx, caller, invoke.String(args, "checklistId"), p)
		if err != nil {
			return h.fail(ctx, request.Op, err), nil
		}
		return invoke.OK(checklistToMap(c)), nil

	case "checklist.addItem":
		item, err := h.workflow.AddItem(ctx, caller, invoke.String(args, "checklistId"), checklist.ItemParams{
			Title:       invoke.String(args, "title"),
			Description: invoke.String(args, "description"),
			Required:    invoke.Bool(args, "required"),
			MediaURL:    invoke.String(args, "mediaUrl"),
			MediaType:   invoke.String(args, "mediaType"),
		})
		if err != nil {
			return h.fail(ctx, request.Op, err), nil
		}
		return invoke.OK(itemToMap(item)), nil

	case "checklist.updateItem":
		p := checklist.ItemUpdateParams{}
		p.Title, _ = invoke.OptionalString(args, "title")
		p.Description, _ = invoke.OptionalString(args, "description")
		p.Status, _ = invoke.OptionalString(args, "status")
		p.DeviationNote, _ = invoke.OptionalString(args, "deviationNote")
		p.HasDeviation, _ = invoke.OptionalBool(args, "hasDeviation")
		item, err := h.workflow.UpdateItem(ctx, caller,
			invoke.String(args, "checklistId"), invoke.String(args, "itemId"), p)
		if err != nil {
			return h.fail(ctx, request.Op, err), nil
		}
		return invoke.OK(itemToMap(item)), nil

	case "checklist.attachMedia":
		err := h.workflow.AttachMedia(ctx, caller,
			invoke.String(args, "checklistId"), invoke.String(args, "itemId"),
			invoke.String(args, "mediaUrl"), invoke.String(args, "mediaType"))
		if err != nil {
			return h.fail(ctx, request.Op, err), nil
		}
		return invoke.OK(map[string]any{"ok": true}), nil

	case "checklist.complete":
		c, err := h.workflow.Complete(ctx, caller, invoke.String(args, "checklistId"))
		if err != nil {
			return h.fail(ctx, request.Op, err), nil
		}
		return invoke.OK(checklistToMap(c)), nil

	case "checklist.delete":
		if err := h.workflow.Delete(ctx, caller, invoke.String(args, "checklistId")); err != nil {
			return h.fail(ctx, request.Op, err), nil
		}
		logger.InfoContext(ctx, "Checklist deleted",
			slog.String("org_id", caller.OrgID),
			slog.String("checklist_id", invoke.String(args, "checklistId")),
		)
		return invoke.OK(map[string]any{"deleted": true}), nil
	}

	return invoke.Fail(invoke.CodeUnknownOperation, "unsupported operation: "+request.Op), nil
}

// fail translates workflow errors to coded responses.
func (h *handler) fail(ctx context.Context, op string, err error) invoke.Response {
	switch {
	case errors.Is(err, checklist.ErrChecklistNotFound),
		errors.Is(err, checklist.ErrItemNotFound),
		errors.Is(err, template.ErrTemplateNotFound):
		return invoke.Fail(invoke.CodeNotFound, err.Error())
	case errors.Is(err, checklist.ErrNoApprovers):
		return invoke.Fail(invoke.CodeInvalidArguments, err.Error())
	case errors.Is(err, store.ErrBadCursor):
		return invoke.Fail(invoke.CodeBadCursor, err.Error())
	}
	logger.ErrorContext(ctx, "Checklist mutation failed",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
	return invoke.Fail(invoke.CodeStorageError, err.Error())
}

func checklistToMap(c *checklist.Checklist) map[string]any {
	m := map[string]any{
		"checklistId": c.ChecklistID,
		"orgId":       c.OrgID,
		"title":       c.Title,
		"status":      c.Status,
		"createdBy":   c.CreatedBy,
		"createdAt":   c.CreatedAt.UTC().Format(time.RFC3339),
		"updatedAt":   c.UpdatedAt.UTC().Format(time.RFC3339),
	}
	putNonEmpty(m, "templateId", c.TemplateID)
	putNonEmpty(m, "categoryId", c.CategoryID)
	putNonEmpty(m, "description", c.Description)
	putNonEmpty(m, "assigneeId", c.AssigneeID)
	putNonEmpty(m, "teamId", c.TeamID)
	putNonEmpty(m, "startDate", c.StartDate)
	putNonEmpty(m, "endDate", c.EndDate)
	putNonEmpty(m, "dueDate", c.DueDate)
	putNonEmpty(m, "recurrence", c.Recurrence)
	putNonEmpty(m, "nextRecurrenceDate", c.NextRecurrenceDate)
	if len(c.OwnerIDs) > 0 {
		m["ownerIds"] = c.OwnerIDs
	}
	if !c.CompletedAt.IsZero() {
		m["completedAt"] = c.CompletedAt.UTC().Format(time.RFC3339)
	}
	return m
}

func itemToMap(i *checklist.ChecklistItem) map[string]any {
	m := map[string]any{
		"itemId":       i.ItemID,
		"checklistId":  i.ChecklistID,
		"title":        i.Title,
		"status":       i.Status,
		"sortOrder":    i.SortOrder,
		"required":     i.Required,
		"hasDeviation": i.HasDeviation,
	}
	putNonEmpty(m, "description", i.Description)
	putNonEmpty(m, "deviationNote", i.DeviationNote)
	putNonEmpty(m, "mediaUrl", i.MediaURL)
	putNonEmpty(m, "mediaType", i.MediaType)
	putNonEmpty(m, "completedBy", i.CompletedBy)
	if !i.CompletedAt.IsZero() {
		m["completedAt"] = i.CompletedAt.UTC().Format(time.RFC3339)
	}
	return m
}

func putNonEmpty(m map[string]any, key, value string) {
	if value != "" {
		m[key] = value
	}
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

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		logger.Error("FATAL: Failed to load AWS config", slog.String("error", err.Error()))
		panic(err)
	}

	dynamoClient := dynamodb.NewFromConfig(cfg)
	storeClient := store.NewClient(dynamoClient, tableName)
	repo := checklist.NewRepository(storeClient)
	templates := template.NewRepository(storeClient)

	h := newHandler(checklist.NewWorkflow(repo, templates))
	lambda.Start(otellambda.InstrumentHandler(h.handle, xrayconfig.WithRecommendedOptions(tp)...))
}
