package main

import (
	"context"
	"testing"
	"time"

	"github.com/checklists-vnext/checklist-service/internal/checklist"
	"github.com/checklists-vnext/checklist-service/internal/identity"
	"github.com/checklists-vnext/checklist-service/internal/invoke"
	"github.com/checklists-vnext/checklist-service/internal/store"
)

// mockRepository implements ChecklistRepository with function fields.
type mockRepository struct {
	GetChecklistFunc   func(ctx context.Context, orgID, checklistID string) (*checklist.Checklist, error)
	ListByOrgFunc      func(ctx context.Context, orgID string, limit int32, cursor string) ([]*checklist.Checklist, string, error)
	ListByAssigneeFunc func(ctx context.Context, assigneeID string, limit int32, cursor string) ([]*checklist.Checklist, string, error)
	ListByStatusFunc   func(ctx context.Context, orgID, status string, limit int32, cursor string) ([]*checklist.Checklist, string, error)
	ListItemsFunc      func(ctx context.Context, checklistID string) ([]*checklist.ChecklistItem, error)
	ListApprovalsFunc  func(ctx context.Context, checklistID string) ([]*checklist.ApprovalItem, error)
}

func (m *mockRepository) GetChecklist(ctx context.Context, orgID, checklistID string) (*checklist.Checklist, error) {
	return m.GetChecklistFunc(ctx, orgID, checklistID)
}

func (m *mockRepository) ListByOrg(ctx context.Context, orgID string, limit int32, cursor string) ([]*checklist.Checklist, string, error) {
	return m.ListByOrgFunc(ctx, orgID, limit, cursor)
}

func (m *mockRepository) ListByAssignee(ctx context.Context, assigneeID string, limit int32, cursor string) ([]*checklist.Checklist, string, error) {
	return m.ListByAssigneeFunc(ctx, assigneeID, limit, cursor)
}

func (m *mockRepository) ListByStatus(ctx context.Context, orgID, status string, limit int32, cursor string) ([]*checklist.Checklist, string, error) {
	return m.ListByStatusFunc(ctx, orgID, status, limit, cursor)
}

func (m *mockRepository) ListItems(ctx context.Context, checklistID string) ([]*checklist.ChecklistItem, error) {
	if m.ListItemsFunc != nil {
		return m.ListItemsFunc(ctx, checklistID)
	}
	return nil, nil
}

func (m *mockRepository) ListApprovals(ctx context.Context, checklistID string) ([]*checklist.ApprovalItem, error) {
	if m.ListApprovalsFunc != nil {
		return m.ListApprovalsFunc(ctx, checklistID)
	}
	return nil, nil
}

var testCaller = identity.Caller{UserID: "u1", OrgID: "o1", Role: identity.RoleUser}

func cl(id, orgID, status string) *checklist.Checklist {
	return &checklist.Checklist{
		ChecklistID: id,
		OrgID:       orgID,
		Title:       "Checklist " + id,
		Status:      status,
		CreatedBy:   "u1",
		CreatedAt:   time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:   time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestHandle_GetReturnsDetail(t *testing.T) {
	mock := &mockRepository{
		GetChecklistFunc: func(ctx context.Context, orgID, checklistID string) (*checklist.Checklist, error) {
			if orgID != "o1" || checklistID != "c1" {
				t.Errorf("unexpected lookup %s/%s", orgID, checklistID)
			}
			return cl("c1", "o1", checklist.StatusSubmitted), nil
		},
		ListItemsFunc: func(ctx context.Context, checklistID string) ([]*checklist.ChecklistItem, error) {
			return []*checklist.ChecklistItem{{ItemID: "i1", ChecklistID: "c1", Title: "step", Status: checklist.ItemStatusPending}}, nil
		},
		ListApprovalsFunc: func(ctx context.Context, checklistID string) ([]*checklist.ApprovalItem, error) {
			return []*checklist.ApprovalItem{{ApprovalID: "a1", ChecklistID: "c1", ApproverID: "boss", Decision: checklist.DecisionPending}}, nil
		},
	}
	h := newHandler(mock)

	resp, err := h.handle(context.Background(), invoke.Request{
		Op:     "checklist.get",
		Caller: testCaller,
		Args:   map[string]any{"checklistId": "c1"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Error != nil {
		t.Fatalf("unexpected response error: %+v", resp.Error)
	}

	data := resp.Data.(map[string]any)
	if data["checklistId"] != "c1" || data["status"] != checklist.StatusSubmitted {
		t.Errorf("unexpected detail: %v", data)
	}
	if len(data["items"].([]any)) != 1 || len(data["approvals"].([]any)) != 1 {
		t.Errorf("expected children embedded, got %v", data)
	}
}

func TestHandle_GetNotFound(t *testing.T) {
	mock := &mockRepository{
		GetChecklistFunc: func(ctx context.Context, orgID, checklistID string) (*checklist.Checklist, error) {
			return nil, checklist.ErrChecklistNotFound
		},
	}
	h := newHandler(mock)

	resp, err := h.handle(context.Background(), invoke.Request{
		Op:     "checklist.get",
		Caller: testCaller,
		Args:   map[string]any{"checklistId": "missing"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != invoke.CodeNotFound {
		t.Errorf("expected NOT_FOUND, got %+v", resp.Error)
	}
}

func TestHandle_ListPicksAssigneeIndex(t *testing.T) {
	mock := &mockRepository{
		ListByAssigneeFunc: func(ctx context.Context, assigneeID string, limit int32, cursor string) ([]*checklist.Checklist, string, error) {
			if assigneeID != "u2" {
				t.Errorf("unexpected assignee %s", assigneeID)
			}
			return []*checklist.Checklist{
				cl("c1", "o1", checklist.StatusActive),
				cl("c2", "other-org", checklist.StatusActive),
			}, "next-token", nil
		},
	}
	h := newHandler(mock)

	resp, err := h.handle(context.Background(), invoke.Request{
		Op:     "checklist.list",
		Caller: testCaller,
		Args:   map[string]any{"assigneeId": "u2"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data := resp.Data.(map[string]any)
	// The assignee index spans organizations; the foreign row is dropped.
	if got := data["checklists"].([]any); len(got) != 1 {
		t.Errorf("expected cross-org row filtered, got %d rows", len(got))
	}
	if data["nextCursor"] != "next-token" {
		t.Errorf("expected cursor passed through, got %v", data["nextCursor"])
	}
}

func TestHandle_ListPicksStatusIndex(t *testing.T) {
	called := false
	mock := &mockRepository{
		ListByStatusFunc: func(ctx context.Context, orgID, status string, limit int32, cursor string) ([]*checklist.Checklist, string, error) {
			called = true
			if status != checklist.StatusSubmitted {
				t.Errorf("unexpected status %s", status)
			}
			return []*checklist.Checklist{cl("c1", "o1", checklist.StatusSubmitted)}, "", nil
		},
	}
	h := newHandler(mock)

	resp, err := h.handle(context.Background(), invoke.Request{
		Op:     "checklist.list",
		Caller: testCaller,
		Args:   map[string]any{"status": checklist.StatusSubmitted},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Fatal("expected the status index query")
	}
	if got := resp.Data.(map[string]any)["checklists"].([]any); len(got) != 1 {
		t.Errorf("expected 1 row, got %d", len(got))
	}
}

func TestHandle_ListBadCursor(t *testing.T) {
	mock := &mockRepository{
		ListByOrgFunc: func(ctx context.Context, orgID string, limit int32, cursor string) ([]*checklist.Checklist, string, error) {
			return nil, "", store.ErrBadCursor
		},
	}
	h := newHandler(mock)

	resp, err := h.handle(context.Background(), invoke.Request{
		Op:     "checklist.list",
		Caller: testCaller,
		Args:   map[string]any{"cursor": "garbage"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != invoke.CodeBadCursor {
		t.Errorf("expected BAD_CURSOR, got %+v", resp.Error)
	}
}

func TestHandle_UnknownOperation(t *testing.T) {
	h := newHandler(&mockRepository{})

	resp, err := h.handle(context.Background(), invoke.Request{Op: "checklist.frobnicate", Caller: testCaller})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != invoke.CodeUnknownOperation {
		t.Errorf("expected UNKNOWN_OPERATION, got %+v", resp.Error)
	}
}

func TestFilterChecklists(t *testing.T) {
	a := cl("a", "o1", checklist.StatusActive)
	a.TeamID = "t1"
	a.CategoryID = "cat1"
	a.DueDate = "2026-08-10"

	b := cl("b", "o1", checklist.StatusDraft)
	b.TeamID = "t2"
	b.EndDate = "2026-09-01"

	foreign := cl("x", "o2", checklist.StatusActive)

	all := []*checklist.Checklist{a, b, foreign}

	got := filterChecklists(all, filters{orgID: "o1"})
	if len(got) != 2 {
		t.Errorf("org filter: expected 2, got %d", len(got))
	}

	got = filterChecklists(all, filters{orgID: "o1", status: checklist.StatusActive})
	if len(got) != 1 || got[0].ChecklistID != "a" {
		t.Errorf("status filter: unexpected result %v", got)
	}

	got = filterChecklists(all, filters{orgID: "o1", teamID: "t2"})
	if len(got) != 1 || got[0].ChecklistID != "b" {
		t.Errorf("team filter: unexpected result %v", got)
	}

	got = filterChecklists(all, filters{orgID: "o1", categoryID: "cat1"})
	if len(got) != 1 || got[0].ChecklistID != "a" {
		t.Errorf("category filter: unexpected result %v", got)
	}

	// The date window reads dueDate, falling back to endDate.
	got = filterChecklists(all, filters{orgID: "o1", fromDate: "2026-08-15"})
	if len(got) != 1 || got[0].ChecklistID != "b" {
		t.Errorf("fromDate filter: unexpected result %v", got)
	}
	got = filterChecklists(all, filters{orgID: "o1", toDate: "2026-08-15"})
	if len(got) != 1 || got[0].ChecklistID != "a" {
		t.Errorf("toDate filter: unexpected result %v", got)
	}
}
