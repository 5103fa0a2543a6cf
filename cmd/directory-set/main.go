// Package main implements the directory Lambda handler: organization
// members, teams, categories, and checklist templates.
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
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-lambda-go/otellambda"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-lambda-go/otellambda/xrayconfig"
	"go.opentelemetry.io/otel"

	"github.com/checklists-vnext/checklist-service/internal/category"
	"github.com/checklists-vnext/checklist-service/internal/invoke"
	"github.com/checklists-vnext/checklist-service/internal/member"
	"github.com/checklists-vnext/checklist-service/internal/store"
	"github.com/checklists-vnext/checklist-service/internal/team"
	"github.com/checklists-vnext/checklist-service/internal/template"
)

var logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
	Level: slog.LevelInfo,
}))

const defaultPageSize = 50

// handler implements the directory logic.
type handler struct {
	members    *member.Repository
	syncer     *member.StatusSyncer
	teams      *team.Repository
	categories *category.Repository
	templates  *template.Repository
	newID      func() string
	now        func() time.Time
}

func newHandler(members *member.Repository, syncer *member.StatusSyncer, teams *team.Repository, categories *category.Repository, templates *template.Repository) *handler {
	return &handler{
		members:    members,
		syncer:     syncer,
		teams:      teams,
		categories: categories,
		templates:  templates,
		newID:      func() string { return uuid.New().String() },
		now:        time.Now,
	}
}

// handle dispatches one directory request.
func (h *handler) handle(ctx context.Context, request invoke.Request) (invoke.Response, error) {
	tracer := otel.Tracer("directory-set")
	ctx, span := tracer.Start(ctx, "DirectorySetHandler")
	defer span.End()

	switch request.Op {
	case "member.create":
		return h.memberCreate(ctx, request)
	case "member.get":
		return h.memberGet(ctx, request)
	case "member.list":
		return h.memberList(ctx, request)
	case "member.listOrgs":
		return h.memberListOrgs(ctx, request)
	case "member.update":
		return h.memberUpdate(ctx, request)
	case "member.delete":
		return h.memberDelete(ctx, request)
	case "member.sync":
		return h.memberSync(ctx, request)
	case "team.create":
		return h.teamCreate(ctx, request)
	case "team.get":
		return h.teamGet(ctx, request)
	case "team.list":
		return h.teamList(ctx, request)
	case "team.update":
		return h.teamUpdate(ctx, request)
	case "team.delete":
		return h.teamDelete(ctx, request)
	case "category.create":
		return h.categoryCreate(ctx, request)
	case "category.get":
		return h.categoryGet(ctx, request)
	case "category.list":
		return h.categoryList(ctx, request)
	case "category.update":
		return h.categoryUpdate(ctx, request)
	case "category.delete":
		return h.categoryDelete(ctx, request)
	case "template.create":
		return h.templateCreate(ctx, request)
	case "template.get":
		return h.templateGet(ctx, request)
	case "template.list":
		return h.templateList(ctx, request)
	case "template.update":
		return h.templateUpdate(ctx, request)
	case "template.delete":
		return h.templateDelete(ctx, request)
	}
	return invoke.Fail(invoke.CodeUnknownOperation, "unsupported operation: "+request.Op), nil
}

// fail translates repository errors to coded responses.
func (h *handler) fail(ctx context.Context, op string, err error) invoke.Response {
	switch {
	case errors.Is(err, member.ErrMemberNotFound),
		errors.Is(err, team.ErrTeamNotFound),
		errors.Is(err, category.ErrCategoryNotFound),
		errors.Is(err, template.ErrTemplateNotFound):
		return invoke.Fail(invoke.CodeNotFound, err.Error())
	case errors.Is(err, store.ErrBadCursor):
		return invoke.Fail(invoke.CodeBadCursor, err.Error())
	}
	logger.ErrorContext(ctx, "Directory operation failed",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
	return invoke.Fail(invoke.CodeStorageError, err.Error())
}

// --- members ---

func (h *handler) memberCreate(ctx context.Context, request invoke.Request) (invoke.Response, error) {
	args := request.Args
	now := h.now().UTC()
	userID := invoke.String(args, "userId")
	if userID == "" {
		userID = h.newID()
	}
	status := invoke.String(args, "status")
	if status == "" {
		status = member.StatusPending
	}
	m := &member.MemberItem{
		UserID:            userID,
		OrgID:             request.Caller.OrgID,
		Email:             invoke.String(args, "email"),
		DisplayName:       invoke.String(args, "displayName"),
		Role:              invoke.String(args, "role"),
		Status:            status,
		TeamIDs:           invoke.StringSlice(args, "teamIds"),
		AccessPeriodStart: invoke.String(args, "accessPeriodStart"),
		AccessPeriodEnd:   invoke.String(args, "accessPeriodEnd"),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := h.members.Create(ctx, m); err != nil {
		return h.fail(ctx, request.Op, err), nil
	}
	return invoke.OK(memberToMap(m)), nil
}

func (h *handler) memberGet(ctx context.Context, request invoke.Request) (invoke.Response, error) {
	m, err := h.members.Get(ctx, request.Caller.OrgID, invoke.String(request.Args, "userId"))
	if err != nil {
		return h.fail(ctx, request.Op, err), nil
	}
	return invoke.OK(memberToMap(m)), nil
}

func (h *handler) memberList(ctx context.Context, request invoke.Request) (invoke.Response, error) {
	members, next, err := h.members.List(ctx, request.Caller.OrgID,
		invoke.Limit(request.Args, "limit", defaultPageSize), invoke.String(request.Args, "cursor"))
	if err != nil {
		return h.fail(ctx, request.Op, err), nil
	}
	list := make([]any, len(members))
	for i, m := range members {
		list[i] = memberToMap(m)
	}
	return invoke.OK(map[string]any{"members": list, "nextCursor": next}), nil
}

func (h *handler) memberListOrgs(ctx context.Context, request invoke.Request) (invoke.Response, error) {
	userID := invoke.String(request.Args, "userId")
	if userID == "" {
		userID = request.Caller.UserID
	}
	memberships, err := h.members.ListOrgsByUser(ctx, userID)
	if err != nil {
		return h.fail(ctx, request.Op, err), nil
	}
	list := make([]any, len(memberships))
	for i, m := range memberships {
		list[i] = memberToMap(m)
	}
	return invoke.OK(map[string]any{"memberships": list}), nil
}

func (h *handler) memberUpdate(ctx context.Context, request invoke.Request) (invoke.Response, error) {
	args := request.Args
	userID := invoke.String(args, "userId")
	fields := store.Item{}
	sparse(fields, args, "displayName", member.AttrDisplayName)
	sparse(fields, args, "role", member.AttrRole)
	sparse(fields, args, "status", member.AttrStatus)
	sparse(fields, args, "accessPeriodStart", member.AttrAccessPeriodStart)
	sparse(fields, args, "accessPeriodEnd", member.AttrAccessPeriodEnd)
	sparse(fields, args, "lastSessionAt", member.AttrLastSessionAt)
	if _, present := args["teamIds"]; present {
		fields[member.AttrTeamIDs] = store.StringList(invoke.StringSlice(args, "teamIds"))
	}
	if err := h.members.UpdateFields(ctx, request.Caller.OrgID, userID, fields); err != nil {
		return h.fail(ctx, request.Op, err), nil
	}
	m, err := h.members.Get(ctx, request.Caller.OrgID, userID)
	if err != nil {
		return h.fail(ctx, request.Op, err), nil
	}
	return invoke.OK(memberToMap(m)), nil
}

func (h *handler) memberDelete(ctx context.Context, request invoke.Request) (invoke.Response, error) {
	if err := h.members.Delete(ctx, request.Caller.OrgID, invoke.String(request.Args, "userId")); err != nil {
		return h.fail(ctx, request.Op, err), nil
	}
	return invoke.OK(map[string]any{"deleted": true}), nil
}

func (h *handler) memberSync(ctx context.Context, request invoke.Request) (invoke.Response, error) {
	err := h.syncer.SyncActive(ctx, request.Caller.OrgID, request.Caller.Email)
	if err != nil {
		return h.fail(ctx, request.Op, err), nil
	}
	return invoke.OK(map[string]any{"synced": true}), nil
}

// --- teams ---

func (h *handler) teamCreate(ctx context.Context, request invoke.Request) (invoke.Response, error) {
	args := request.Args
	now := h.now().UTC()
	visibility := invoke.String(args, "visibility")
	if visibility == "" {
		visibility = team.VisibilityPublic
	}
	t := &team.TeamItem{
		TeamID:      h.newID(),
		OrgID:       request.Caller.OrgID,
		Name:        invoke.String(args, "name"),
		Description: invoke.String(args, "description"),
		Visibility:  visibility,
		ManagerID:   invoke.String(args, "managerId"),
		MemberIDs:   invoke.StringSlice(args, "memberIds"),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.teams.Create(ctx, t); err != nil {
		return h.fail(ctx, request.Op, err), nil
	}
	return invoke.OK(teamToMap(t)), nil
}

func (h *handler) teamGet(ctx context.Context, request invoke.Request) (invoke.Response, error) {
	t, err := h.teams.Get(ctx, request.Caller.OrgID, invoke.String(request.Args, "teamId"))
	if err != nil {
		return h.fail(ctx, request.Op, err), nil
	}
	return invoke.OK(teamToMap(t)), nil
}

func (h *handler) teamList(ctx context.Context, request invoke.Request) (invoke.Response, error) {
	teams, next, err := h.teams.List(ctx, request.Caller.OrgID,
		invoke.Limit(request.Args, "limit", defaultPageSize), invoke.String(request.Args, "cursor"))
	if err != nil {
		return h.fail(ctx, request.Op, err), nil
	}
	list := make([]any, len(teams))
	for i, t := range teams {
		list[i] = teamToMap(t)
	}
	return invoke.OK(map[string]any{"teams": list, "nextCursor": next}), nil
}

func (h *handler) teamUpdate(ctx context.Context, request invoke.Request) (invoke.Response, error) {
	args := request.Args
	teamID := invoke.String(args, "teamId")
	fields := store.Item{}
	sparse(fields, args, "name", team.AttrName)
	sparse(fields, args, "description", team.AttrDescription)
	sparse(fields, args, "visibility", team.AttrVisibility)
	sparse(fields, args, "managerId", team.AttrManagerID)
	if _, present := args["memberIds"]; present {
		fields[team.AttrMemberIDs] = store.StringList(invoke.StringSlice(args, "memberIds"))
	}
	if err := h.teams.UpdateFields(ctx, request.Caller.OrgID, teamID, fields); err != nil {
		return h.fail(ctx, request.Op, err), nil
	}
	t, err := h.teams.Get(ctx, request.Caller.OrgID, teamID)
	if err != nil {
		return h.fail(ctx, request.Op, err), nil
	}
	return invoke.OK(teamToMap(t)), nil
}

func (h *handler) teamDelete(ctx context.Context, request invoke.Request) (invoke.Response, error) {
	if err := h.teams.Delete(ctx, request.Caller.OrgID, invoke.String(request.Args, "teamId")); err != nil {
		return h.fail(ctx, request.Op, err), nil
	}
	return invoke.OK(map[string]any{"deleted": true}), nil
}

// --- categories ---

func (h *handler) categoryCreate(ctx context.Context, request invoke.Request) (invoke.Response, error) {
	c := &category.CategoryItem{
		CategoryID:  h.newID(),
		OrgID:       request.Caller.OrgID,
		Name:        invoke.String(request.Args, "name"),
		Description: invoke.String(request.Args, "description"),
		CreatedAt:   h.now().UTC(),
	}
	if err := h.categories.Create(ctx, c); err != nil {
		return h.fail(ctx, request.Op, err), nil
	}
	return invoke.OK(categoryToMap(c)), nil
}

func (h *handler) categoryGet(ctx context.Context, request invoke.Request) (invoke.Response, error) {
	c, err := h.categories.Get(ctx, request.Caller.OrgID, invoke.String(request.Args, "categoryId"))
	if err != nil {
		return h.fail(ctx, request.Op, err), nil
	}
	return invoke.OK(categoryToMap(c)), nil
}

func (h *handler) categoryList(ctx context.Context, request invoke.Request) (invoke.Response, error) {
	categories, next, err := h.categories.List(ctx, request.Caller.OrgID,
		invoke.Limit(request.Args, "limit", defaultPageSize), invoke.String(request.Args, "cursor"))
	if err != nil {
		return h.fail(ctx, request.Op, err), nil
	}
	list := make([]any, len(categories))
	for i, c := range categories {
		list[i] = categoryToMap(c)
	}
	return invoke.OK(map[string]any{"categories": list, "nextCursor": next}), nil
}

func (h *handler) categoryUpdate(ctx context.Context, request invoke.Request) (invoke.Response, error) {
	args := request.Args
	categoryID := invoke.String(args, "categoryId")
	fields := store.Item{}
	sparse(fields, args, "name", category.AttrName)
	sparse(fields, args, "description", category.AttrDescription)
	if err := h.categories.UpdateFields(ctx, request.Caller.OrgID, categoryID, fields); err != nil {
		return h.fail(ctx, request.Op, err), nil
	}
	c, err := h.categories.Get(ctx, request.Caller.OrgID, categoryID)
	if err != nil {
		return h.fail(ctx, request.Op, err), nil
	}
	return invoke.OK(categoryToMap(c)), nil
}

func (h *handler) categoryDelete(ctx context.Context, request invoke.Request) (invoke.Response, error) {
	if err := h.categories.Delete(ctx, request.Caller.OrgID, invoke.String(request.Args, "categoryId")); err != nil {
		return h.fail(ctx, request.Op, err), nil
	}
	return invoke.OK(map[string]any{"deleted": true}), nil
}

// --- templates ---

func (h *handler) templateCreate(ctx context.Context, request invoke.Request) (invoke.Response, error) {
	args := request.Args
	now := h.now().UTC()
	recurrence := invoke.String(args, "recurrence")
	if recurrence == "" {
		recurrence = template.RecurrenceNone
	}
	t := &template.TemplateItem{
		TemplateID:  h.newID(),
		OrgID:       request.Caller.OrgID,
		Title:       invoke.String(args, "title"),
		Description: invoke.String(args, "description"),
		Items:       template.BuildItems(parseTemplateItems(args["items"]), h.newID),
		Recurrence:  recurrence,
		CreatedBy:   request.Caller.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.templates.Create(ctx, t); err != nil {
		return h.fail(ctx, request.Op, err), nil
	}
	return invoke.OK(templateToMap(t)), nil
}

func (h *handler) templateGet(ctx context.Context, request invoke.Request) (invoke.Response, error) {
	t, err := h.templates.Get(ctx, request.Caller.OrgID, invoke.String(request.Args, "templateId"))
	if err != nil {
		return h.fail(ctx, request.Op, err), nil
	}
	return invoke.OK(templateToMap(t)), nil
}

func (h *handler) templateList(ctx context.Context, request invoke.Request) (invoke.Response, error) {
	templates, next, err := h.templates.List(ctx, request.Caller.OrgID,
		invoke.Limit(request.Args, "limit", defaultPageSize), invoke.String(request.Args, "cursor"))
	if err != nil {
		return h.fail(ctx, request.Op, err), nil
	}
	list := make([]any, len(templates))
	for i, t := range templates {
		list[i] = templateToMap(t)
	}
	return invoke.OK(map[string]any{"templates": list, "nextCursor": next}), nil
}

func (h *handler) templateUpdate(ctx context.Context, request invoke.Request) (invoke.Response, error) {
	args := request.Args
	templateID := invoke.String(args, "templateId")
	fields := store.Item{}
	sparse(fields, args, "title", template.AttrTitle)
	sparse(fields, args, "description", template.AttrDescription)
	sparse(fields, args, "recurrence", template.AttrRecurrence)
	// Item lists are replaced wholesale, with ids and sort orders
	// regenerated.
	if _, present := args["items"]; present {
		fields[template.AttrItems] = template.MarshalItems(
			template.BuildItems(parseTemplateItems(args["items"]), h.newID))
	}
	if err := h.templates.UpdateFields(ctx, request.Caller.OrgID, templateID, fields); err != nil {
		return h.fail(ctx, request.Op, err), nil
	}
	t, err := h.templates.Get(ctx, request.Caller.OrgID, templateID)
	if err != nil {
		return h.fail(ctx, request.Op, err), nil
	}
	return invoke.OK(templateToMap(t)), nil
}

func (h *handler) templateDelete(ctx context.Context, request invoke.Request) (invoke.Response, error) {
	if err := h.templates.Delete(ctx, request.Caller.OrgID, invoke.String(request.Args, "templateId")); err != nil {
		return h.fail(ctx, request.Op, err), nil
	}
	return invoke.OK(map[string]any{"deleted": true}), nil
}

// sparse copies one optional argument into a sparse update map.
func sparse(fields store.Item, args map[string]any, key, attr string) {
	v, present := invoke.OptionalString(args, key)
	if !present || v == nil {
		return
	}
	if *v == "" {
		fields[attr] = store.Null()
		return
	}
	fields[attr] = store.S(*v)
}

func parseTemplateItems(raw any) []template.Item {
	entries, ok := raw.([]any)
	if !ok {
		return nil
	}
	drafts := make([]template.Item, 0, len(entries))
	for _, entry := range entries {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		drafts = append(drafts, template.Item{
			Title:       invoke.String(m, "title"),
			Description: invoke.String(m, "description"),
			Required:    invoke.Bool(m, "required"),
			MediaURL:    invoke.String(m, "mediaUrl"),
			MediaType:   invoke.String(m, "mediaType"),
		})
	}
	return drafts
}

func memberToMap(m *member.MemberItem) map[string]any {
	out := map[string]any{
		"userId":      m.UserID,
		"orgId":       m.OrgID,
		"email":       m.Email,
		"displayName": m.DisplayName,
		"role":        m.Role,
		"status":      m.Status,
		"teamIds":     m.TeamIDs,
		"createdAt":   m.CreatedAt.UTC().Format(time.RFC3339),
		"updatedAt":   m.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if m.AccessPeriodStart != "" {
		out["accessPeriodStart"] = m.AccessPeriodStart
	}
	if m.AccessPeriodEnd != "" {
		out["accessPeriodEnd"] = m.AccessPeriodEnd
	}
	if m.LastSessionAt != "" {
		out["lastSessionAt"] = m.LastSessionAt
	}
	return out
}

func teamToMap(t *team.TeamItem) map[string]any {
	out := map[string]any{
		"teamId":     t.TeamID,
		"orgId":      t.OrgID,
		"name":       t.Name,
		"visibility": t.Visibility,
		"memberIds":  t.MemberIDs,
		"createdAt":  t.CreatedAt.UTC().Format(time.RFC3339),
		"updatedAt":  t.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if t.Description != "" {
		out["description"] = t.Description
	}
	if t.ManagerID != "" {
		out["managerId"] = t.ManagerID
	}
	return out
}

func categoryToMap(c *category.CategoryItem) map[string]any {
	out := map[string]any{
		"categoryId": c.CategoryID,
		"orgId":      c.OrgID,
		"name":       c.Name,
		"createdAt":  c.CreatedAt.UTC().Format(time.RFC3339),
	}
	if c.Description != "" {
		out["description"] = c.Description
	}
	return out
}

func templateToMap(t *template.TemplateItem) map[string]any {
	items := make([]any, len(t.Items))
	for i, it := range t.Items {
		entry := map[string]any{
			"itemId":    it.ItemID,
			"title":     it.Title,
			"sortOrder": it.SortOrder,
			"required":  it.Required,
		}
		if it.Description != "" {
			entry["description"] = it.Description
		}
		if it.MediaURL != "" {
			entry["mediaUrl"] = it.MediaURL
		}
		if it.MediaType != "" {
			entry["mediaType"] = it.MediaType
		}
		items[i] = entry
	}
	out := map[string]any{
		"templateId": t.TemplateID,
		"orgId":      t.OrgID,
		"title":      t.Title,
		"items":      items,
		"recurrence": t.Recurrence,
		"createdBy":  t.CreatedBy,
		"createdAt":  t.CreatedAt.UTC().Format(time.RFC3339),
		"updatedAt":  t.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if t.Description != "" {
		out["description"] = t.Description
	}
	return out
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
	members := member.NewRepository(storeClient)

	h := newHandler(
		members,
		member.NewStatusSyncer(members, member.NewMapCache()),
		team.NewRepository(storeClient),
		category.NewRepository(storeClient),
		template.NewRepository(storeClient),
	)
	lambda.Start(otellambda.InstrumentHandler(h.handle, xrayconfig.WithRecommendedOptions(tp)...))
}
