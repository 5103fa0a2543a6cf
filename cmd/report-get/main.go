// Package main implements the analytics Lambda handler.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-lambda-go/otellambda"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-lambda-go/otellambda/xrayconfig"
	"go.opentelemetry.io/otel"

	"github.com/checklists-vnext/checklist-service/internal/analytics"
	"github.com/checklists-vnext/checklist-service/internal/checklist"
	"github.com/checklists-vnext/checklist-service/internal/identity"
	"github.com/checklists-vnext/checklist-service/internal/invoke"
	"github.com/checklists-vnext/checklist-service/internal/store"
)

var logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
	Level: slog.LevelInfo,
}))

// ReportService defines the analytics computations.
type ReportService interface {
	Overview(ctx context.Context, orgID, period string, filter analytics.OverviewFilter) (*analytics.Overview, error)
	Performance(ctx context.Context, orgID, period string) (*analytics.Performance, error)
}

// handler implements the analytics logic.
type handler struct {
	reports ReportService
}

func newHandler(reports ReportService) *handler {
	return &handler{reports: reports}
}

// handle processes one analytics request. Reports are restricted to
// admins and managers.
func (h *handler) handle(ctx context.Context, request invoke.Request) (invoke.Response, error) {
	tracer := otel.Tracer("report-get")
	ctx, span := tracer.Start(ctx, "ReportGetHandler")
	defer span.End()

	if !request.Caller.HasRole(identity.RoleAdmin, identity.RoleManager) {
		return invoke.Fail(invoke.CodeForbidden, "analytics requires admin or manager role"), nil
	}

	orgID := request.Caller.OrgID
	period := invoke.String(request.Args, "period")

	switch request.Op {
	case "report.overview":
		overview, err := h.reports.Overview(ctx, orgID, period, analytics.OverviewFilter{
			UserID: invoke.String(request.Args, "userId"),
			TeamID: invoke.String(request.Args, "teamId"),
		})
		if err != nil {
			return h.fail(ctx, request.Op, err), nil
		}
		return invoke.OK(overview), nil

	case "report.performance":
		performance, err := h.reports.Performance(ctx, orgID, period)
		if err != nil {
			return h.fail(ctx, request.Op, err), nil
		}
		return invoke.OK(performance), nil
	}

	return invoke.Fail(invoke.CodeUnknownOperation, "unsupported operation: "+request.Op), nil
}

// fail translates errors to coded responses.
func (h *handler) fail(ctx context.Context, op string, err error) invoke.Response {
	logger.ErrorContext(ctx, "Report computation failed",
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

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		logger.Error("FATAL: Failed to load AWS config", slog.String("error", err.Error()))
		panic(err)
	}

	dynamoClient := dynamodb.NewFromConfig(cfg)
	storeClient := store.NewClient(dynamoClient, tableName)
	repo := checklist.NewRepository(storeClient)

	h := newHandler(analytics.NewService(repo))
	lambda.Start(otellambda.InstrumentHandler(h.handle, xrayconfig.WithRecommendedOptions(tp)...))
}
