// Package main implements the approval workflow Lambda handler.
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

// ApprovalWorkflow defines the approval operations this handler drives.
type ApprovalWorkflow interface {
	Submit(ctx context.Context, caller identity.Caller, checklistID string, approverIDs []string) (*checklist.Checklist, error)
	Decide(ctx context.Context, caller identity.Caller, checklistID, decision, comment string) (*checklist.Checklist, error)
}

// handler implements the approval logic.
type handler struct {
	workflow ApprovalWorkflow
}

func newHandler(workflow ApprovalWorkflow) *handler {
	return &handler{workflow: workflow}
}

// handle processes one approval request.
func (h *handler) handle(ctx context.Context, request invoke.Request) (invoke.Response, error) {
	tracer := otel.Tracer("approval-set")
	ctx, span := tracer.Start(ctx, "ApprovalSetHandler")
	defer span.End()

	caller := request.Caller
	args := request.Args
	checklistID := invoke.String(args, "checklistId")

	switch request.Op {
	case "approval.submit":
		c, err := h.workflow.Submit(ctx, caller, checklistID, invoke.StringSlice(args, "approverIds"))
		if err != nil {
			return h.fail(ctx, request.Op, err), nil
		}
		logger.InfoContext(ctx, "Checklist submitted for approval",
			slog.String("org_id", caller.OrgID),
			slog.String("checklist_id", checklistID),
		)
		return invoke.OK(summarize(c)), nil

	case "approval.decide":
		c, err := h.workflow.Decide(ctx, caller, checklistID,
			invoke.String(args, "decision"), invoke.String(args, "comment"))
		if err != nil {
			return h.fail(ctx, request.Op, err), nil
		}
		logger.InfoContext(ctx, "Approval decision recorded",
			slog.String("org_id", caller.OrgID),
			slog.String("checklist_id", checklistID),
			slog.String("approver_id", caller.UserID),
			slog.String("status", c.Status),
		)
		return invoke.OK(summarize(c)), nil
	}

	return invoke.Fail(invoke.CodeUnknownOperation, "unsupported operation: "+request.Op), nil
}

// fail translates workflow errors to coded responses.
func (h *handler) fail(ctx context.Context, op string, err error) invoke.Response {
	switch {
	case errors.Is(err, checklist.ErrNotApprover):
		return invoke.Fail(invoke.CodeForbidden, err.Error())
	case errors.Is(err, checklist.ErrChecklistNotFound):
		return invoke.Fail(invoke.CodeNotFound, err.Error())
	case errors.Is(err, checklist.ErrNoApprovers):
		return invoke.Fail(invoke.CodeInvalidArguments, err.Error())
	case errors.Is(err, store.ErrBadCursor):
		return invoke.Fail(invoke.CodeBadCursor, err.Error())
	}
	logger.ErrorContext(ctx, "Approval operation failed",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
	return invoke.Fail(invoke.CodeStorageError, err.Error())
}

func summarize(c *checklist.Checklist) map[string]any {
	m := map[string]any{
		"checklistId": c.ChecklistID,
		"orgId":       c.OrgID,
		"title":       c.Title,
		"status":      c.Status,
		"updatedAt":   c.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if c.DueDate != "" {
		m["dueDate"] = c.DueDate
	}
	return m
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
