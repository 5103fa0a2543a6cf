// Package main implements the checklist query Lambda handler.
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
	"github.com/checklists-vnext/checklist-service/internal/invoke"
	"github.com/checklists-vnext/checklist-service/internal/store"
)

var logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
	Level: slog.LevelInfo,
}))

const defaultPageSize = 50

// ChecklistRepository defines the reads this handler performs.
type ChecklistRepository interface {
	GetChecklist(ctx context.Context, orgID, checklistID string) (*checklist.Checklist, error)
	ListByOrg(ctx context.Context, orgID string, limit int32, cursor string) ([]*checklist.Checklist, string, error)
	ListByAssignee(ctx context.Context, assigneeID string, limit int32, cursor string) ([]*checklist.Checklist, string, error)
	ListByStatus(ctx context.Context, orgID, status string, limit int32, cursor string) ([]*checklist.Checklist, string, error)
	ListItems(ctx context.Context, checklistID string) ([]*checklist.ChecklistItem, error)
	ListApprovals(ctx context.Context, checklistID string) ([]*checklist.ApprovalItem, error)
}

// handler implements the checklist query logic.
type handler struct {
	repo ChecklistRepository
}

func newHandler(repo ChecklistRepository) *handler {
	return &handler{repo: repo}
}

// handle processes one checklist query request.
func (h *handler) handle(ctx context.Context, request invoke.Request) (invoke.Response, error) {
	tracer := otel.Tracer("checklist-query")
	ctx, span := tracer.Start(ctx, "ChecklistQueryHandler")
	defer span.End()

	switch request.Op {
	case "checklist.get":
		return h.get(ctx, request)
	case "checklist.list":
		return h.list(ctx, request)
	}
	return invoke.Fail(invoke.CodeUnknownOperation, "unsupported operation: "+request.Op), nil
}

// get returns one checklist with its items and approvals.
func (h *handler) get(ctx context.Context, request invoke.Request) (invoke.Response, error) {
	orgID := request.Caller.OrgID
	checklistID := invoke.String(request.Args, "checklistId")

	c, err := h.repo.GetChecklist(ctx, orgID, checklistID)
	if err != nil {
		return h.fail(ctx, request.Op, err), nil
	}
	items, err := h.repo.ListItems(ctx, checklistID)
	if err != nil {
		return h.fail(ctx, request.Op, err), nil
	}
	approvals, err := h.repo.ListApprovals(ctx, checklistID)
	if err != nil {
		return h.fail(ctx, request.Op, err), nil
	}

	detail := checklistToMap(c)
	itemList := make([]any, len(items))
	for i, item := range items {
		itemList[i] = itemToMap(item)
	}
	approvalList := make([]any, len(approvals))
	for i, a := range approvals {
		approvalList[i] = approvalToMap(a)
	}
	detail["items"] = itemList
	detail["approvals"] = approvalList
	return invoke.OK(detail), nil
}

// list pages through checklists, picking the index from the arguments
// and applying the remaining filters to the fetched page. Filters
// narrow within a page; they never trigger further fetches, so a
// heavily filtered page may come back short with a cursor still set.
func (h *handler) list(ctx context.Context, request invoke.Request) (invoke.Response, error) {
	orgID := request.Caller.OrgID
	args := request.Args
	limit := invoke.Limit(args, "limit", defaultPageSize)
	cursor := invoke.String(args, "cursor")

	assigneeID := invoke.String(args, "assigneeId")
	status := invoke.String(args, "status")

	var (
		checklists []*checklist.Checklist
		nextCursor string
		err        error
	)
	switch {
	case assigneeID != "":
		checklists, nextCursor, err = h.repo.ListByAssignee(ctx, assigneeID, limit, cursor)
	case status != "":
		checklists, nextCursor, err = h.repo.ListByStatus(ctx, orgID, status, limit, cursor)
		status = "" // satisfied by the index
	default:
		checklists, nextCursor, err = h.repo.ListByOrg(ctx, orgID, limit, cursor)
	}
	if err != nil {
		return h.fail(ctx, request.Op, err), nil
	}

	filtered := filterChecklists(checklists, filters{
		orgID:      orgID,
		status:     status,
		teamID:     invoke.String(args, "teamId"),
		categoryID: invoke.String(args, "categoryId"),
		fromDate:   invoke.String(args, "fromDate"),
		toDate:     invoke.String(args, "toDate"),
	})

	list := make([]any, len(filtered))
	for i, c := range filtered {
		list[i] = checklistToMap(c)
	}
	return invoke.OK(map[string]any{
		"checklists": list,
		"nextCursor": nextCursor,
	}), nil
}

type filters struct {
	orgID      string
	status     string
	teamID     string
	categoryID string
	fromDate   string
	toDate     string
}

// filterChecklists narrows a fetched page. The org check guards the
// assignee index, which spans organizations.
func filterChecklists(checklists []*checklist.Checklist, f filters) []*checklist.Checklist {
	kept := make([]*checklist.Checklist, 0, len(checklists))
	for _, c := range checklists {
		if c.OrgID != f.orgID {
			continue
		}
		if f.status != "" && c.Status != f.status {
			continue
		}
		if f.teamID != "" && c.TeamID != f.teamID {
			continue
		}
		if f.categoryID != "" && c.CategoryID != f.categoryID {
			continue
		}
		if f.fromDate != "" || f.toDate != "" {
			date := c.DueDate
			if date == "" {
				date = c.EndDate
			}
			if f.fromDate != "" && date < f.fromDate {
				continue
			}
			if f.toDate != "" && date > f.toDate {
				continue
			}
		}
		kept = append(kept, c)
	}
	return kept
}

// fail translates repository errors to coded responses.
func (h *handler) fail(ctx context.Context, op string, err error) invoke.Response {
	switch {
	case errors.Is(err, checklist.ErrChecklistNotFound):
		return invoke.Fail(invoke.CodeNotFound, err.Error())
	case errors.Is(err, store.ErrBadCursor):
		return invoke.Fail(invoke.CodeBadCursor, err.Error())
	}
	logger.ErrorContext(ctx, "Checklist query failed",
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
	if len(i.Attachments) > 0 {
		attachments := make([]any, len(i.Attachments))
		for n, a := range i.Attachments {
			attachments[n] = map[string]any{
				"attachmentId": a.AttachmentID,
				"fileName":     a.FileName,
				"fileSize":     a.FileSize,
				"mimeType":     a.MimeType,
				"s3Key":        a.S3Key,
				"uploadedBy":   a.UploadedBy,
				"uploadedAt":   a.UploadedAt.UTC().Format(time.RFC3339),
			}
		}
		m["attachments"] = attachments
	}
	return m
}

func approvalToMap(a *checklist.ApprovalItem) map[string]any {
	m := map[string]any{
		"approvalId":  a.ApprovalID,
		"checklistId": a.ChecklistID,
		"approverId":  a.ApproverID,
		"decision":    a.Decision,
		"createdAt":   a.CreatedAt.UTC().Format(time.RFC3339),
	}
	putNonEmpty(m, "comment", a.Comment)
	if !a.DecidedAt.IsZero() {
		m["decidedAt"] = a.DecidedAt.UTC().Format(time.RFC3339)
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

	h := newHandler(repo)
	lambda.Start(otellambda.InstrumentHandler(h.handle, xrayconfig.WithRecommendedOptions(tp)...))
}
