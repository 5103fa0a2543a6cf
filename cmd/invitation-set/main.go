// Package main implements the invitation Lambda handler.
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
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-lambda-go/otellambda"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-lambda-go/otellambda/xrayconfig"
	"go.opentelemetry.io/otel"

	"github.com/checklists-vnext/checklist-service/internal/invitation"
	"github.com/checklists-vnext/checklist-service/internal/invoke"
	"github.com/checklists-vnext/checklist-service/internal/store"
)

var logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
	Level: slog.LevelInfo,
}))

const defaultPageSize = 50

// InvitationService defines the invitation creation operations.
type InvitationService interface {
	Create(ctx context.Context, orgID, invitedBy string, req invitation.Request) (*invitation.InvitationItem, error)
	CreateBulk(ctx context.Context, orgID, invitedBy string, reqs []invitation.Request) ([]*invitation.InvitationItem, error)
}

// InvitationRepository defines the read and lifecycle operations.
type InvitationRepository interface {
	Get(ctx context.Context, orgID, invitationID string) (*invitation.InvitationItem, error)
	List(ctx context.Context, orgID string, limit int32, cursor string) ([]*invitation.InvitationItem, string, error)
	ListByEmail(ctx context.Context, email string) ([]*invitation.InvitationItem, error)
	Revoke(ctx context.Context, orgID, invitationID string) error
	Delete(ctx context.Context, orgID, invitationID string) error
}

// handler implements the invitation logic.
type handler struct {
	service InvitationService
	repo    InvitationRepository
}

func newHandler(service InvitationService, repo InvitationRepository) *handler {
	return &handler{service: service, repo: repo}
}

// handle processes one invitation request.
func (h *handler) handle(ctx context.Context, request invoke.Request) (invoke.Response, error) {
	tracer := otel.Tracer("invitation-set")
	ctx, span := tracer.Start(ctx, "InvitationSetHandler")
	defer span.End()

	caller := request.Caller
	args := request.Args

	switch request.Op {
	case "invitation.create":
		inv, err := h.service.Create(ctx, caller.OrgID, caller.UserID, invitation.Request{
			Email:       invoke.String(args, "email"),
			Role:        invoke.String(args, "role"),
			ScheduledAt: invoke.String(args, "scheduledAt"),
		})
		if err != nil {
			return h.fail(ctx, request.Op, err), nil
		}
		return invoke.OK(invitationToMap(inv)), nil

	case "invitation.createBulk":
		reqs := parseBulk(args["invitations"])
		invs, err := h.service.CreateBulk(ctx, caller.OrgID, caller.UserID, reqs)
		if err != nil {
			return h.fail(ctx, request.Op, err), nil
		}
		logger.InfoContext(ctx, "Bulk invitations created",
			slog.String("org_id", caller.OrgID),
			slog.Int("count", len(invs)),
		)
		list := make([]any, len(invs))
		for i, inv := range invs {
			list[i] = invitationToMap(inv)
		}
		return invoke.OK(map[string]any{"invitations": list}), nil

	case "invitation.get":
		inv, err := h.repo.Get(ctx, caller.OrgID, invoke.String(args, "invitationId"))
		if err != nil {
			return h.fail(ctx, request.Op, err), nil
		}
		return invoke.OK(invitationToMap(inv)), nil

	case "invitation.list":
		invs, next, err := h.repo.List(ctx, caller.OrgID,
			invoke.Limit(args, "limit", defaultPageSize), invoke.String(args, "cursor"))
		if err != nil {
			return h.fail(ctx, request.Op, err), nil
		}
		list := make([]any, len(invs))
		for i, inv := range invs {
			list[i] = invitationToMap(inv)
		}
		return invoke.OK(map[string]any{"invitations": list, "nextCursor": next}), nil

	case "invitation.listByEmail":
		email := invoke.String(args, "email")
		if email == "" {
			email = caller.Email
		}
		invs, err := h.repo.ListByEmail(ctx, email)
		if err != nil {
			return h.fail(ctx, request.Op, err), nil
		}
		list := make([]any, len(invs))
		for i, inv := range invs {
			list[i] = invitationToMap(inv)
		}
		return invoke.OK(map[string]any{"invitations": list}), nil

	case "invitation.revoke":
		if err := h.repo.Revoke(ctx, caller.OrgID, invoke.String(args, "invitationId")); err != nil {
			return h.fail(ctx, request.Op, err), nil
		}
		return invoke.OK(map[string]any{"revoked": true}), nil

	case "invitation.delete":
		if err := h.repo.Delete(ctx, caller.OrgID, invoke.String(args, "invitationId")); err != nil {
			return h.fail(ctx, request.Op, err), nil
		}
		return invoke.OK(map[string]any{"deleted": true}), nil
	}

	return invoke.Fail(invoke.CodeUnknownOperation, "unsupported operation: "+request.Op), nil
}

// fail translates repository errors to coded responses.
func (h *handler) fail(ctx context.Context, op string, err error) invoke.Response {
	switch {
	case errors.Is(err, invitation.ErrInvitationNotFound):
		return invoke.Fail(invoke.CodeNotFound, err.Error())
	case errors.Is(err, store.ErrBadCursor):
		return invoke.Fail(invoke.CodeBadCursor, err.Error())
	}
	logger.ErrorContext(ctx, "Invitation operation failed",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
	return invoke.Fail(invoke.CodeStorageError, err.Error())
}

func parseBulk(raw any) []invitation.Request {
	entries, ok := raw.([]any)
	if !ok {
		return nil
	}
	reqs := make([]invitation.Request, 0, len(entries))
	for _, entry := range entries {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		reqs = append(reqs, invitation.Request{
			Email:       invoke.String(m, "email"),
			Role:        invoke.String(m, "role"),
			ScheduledAt: invoke.String(m, "scheduledAt"),
		})
	}
	return reqs
}

func invitationToMap(inv *invitation.InvitationItem) map[string]any {
	m := map[string]any{
		"invitationId": inv.InvitationID,
		"orgId":        inv.OrgID,
		"email":        inv.Email,
		"role":         inv.Role,
		"status":       inv.Status,
		"invitedBy":    inv.InvitedBy,
		"expiresAt":    inv.ExpiresAt.UTC().Format(time.RFC3339),
		"createdAt":    inv.CreatedAt.UTC().Format(time.RFC3339),
	}
	if inv.ScheduledAt != "" {
		m["scheduledAt"] = inv.ScheduledAt
	}
	if inv.AcceptedAt != "" {
		m["acceptedAt"] = inv.AcceptedAt
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
	queueURL := os.Getenv("INVITE_QUEUE_URL")

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		logger.Error("FATAL: Failed to load AWS config", slog.String("error", err.Error()))
		panic(err)
	}

	dynamoClient := dynamodb.NewFromConfig(cfg)
	storeClient := store.NewClient(dynamoClient, tableName)
	repo := invitation.NewRepository(storeClient)

	var publisher invitation.MailPublisher
	if queueURL != "" {
		publisher = invitation.NewSQSPublisher(sqs.NewFromConfig(cfg), queueURL)
	}

	h := newHandler(invitation.NewService(repo, publisher), repo)
	lambda.Start(otellambda.InstrumentHandler(h.handle, xrayconfig.WithRecommendedOptions(tp)...))
}
