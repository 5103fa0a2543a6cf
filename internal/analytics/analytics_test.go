package analytics

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/checklists-vnext/checklist-service/internal/checklist"
	"github.com/checklists-vnext/checklist-service/internal/dynamo"
	"github.com/checklists-vnext/checklist-service/internal/store"
)

var reportTime = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

// fixture holds canned query results keyed by partition.
type fixture struct {
	checklists []map[string]types.AttributeValue
	items      map[string][]map[string]types.AttributeValue
}

func (f *fixture) GetItem(ctx context.Context, input *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return &dynamodb.GetItemOutput{}, nil
}

func (f *fixture) PutItem(ctx context.Context, input *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fixture) DeleteItem(ctx context.Context, input *dynamodb.DeleteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fixture) UpdateItem(ctx context.Context, input *dynamodb.UpdateItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	return &dynamodb.UpdateItemOutput{}, nil
}

func (f *fixture) Query(ctx context.Context, input *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	pk := input.ExpressionAttributeValues[":pk"].(*types.AttributeValueMemberS).Value
	if strings.HasPrefix(pk, dynamo.PrefixOrg) {
		return &dynamodb.QueryOutput{Items: f.checklists}, nil
	}
	id := strings.TrimPrefix(pk, dynamo.PrefixChecklist)
	return &dynamodb.QueryOutput{Items: f.items[id]}, nil
}

type clSpec struct {
	id       string
	status   string
	assignee string
	team     string
	owners   []string
	age      time.Duration
}

func clRow(spec clSpec) map[string]types.AttributeValue {
	owners := make([]types.AttributeValue, len(spec.owners))
	for i, o := range spec.owners {
		owners[i] = &types.AttributeValueMemberS{Value: o}
	}
	row := map[string]types.AttributeValue{
		checklist.AttrChecklistID: &types.AttributeValueMemberS{Value: spec.id},
		checklist.AttrOrgID:       &types.AttributeValueMemberS{Value: "o1"},
		checklist.AttrTitle:       &types.AttributeValueMemberS{Value: "Checklist " + spec.id},
		checklist.AttrStatus:      &types.AttributeValueMemberS{Value: spec.status},
		checklist.AttrCreatedBy:   &types.AttributeValueMemberS{Value: "creator-1"},
		checklist.AttrOwnerIDs:    &types.AttributeValueMemberL{Value: owners},
		dynamo.AttrCreatedAt:      &types.AttributeValueMemberS{Value: reportTime.Add(-spec.age).Format(time.RFC3339)},
	}
	if spec.assignee != "" {
		row[checklist.AttrAssigneeID] = &types.AttributeValueMemberS{Value: spec.assignee}
	}
	if spec.team != "" {
		row[checklist.AttrTeamID] = &types.AttributeValueMemberS{Value: spec.team}
	}
	return row
}

func itemRow(sortOrder int, hasDeviation bool) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		checklist.AttrItemID:       &types.AttributeValueMemberS{Value: "item"},
		checklist.AttrTitle:        &types.AttributeValueMemberS{Value: "step"},
		checklist.AttrStatus:       &types.AttributeValueMemberS{Value: checklist.ItemStatusPending},
		checklist.AttrHasDeviation: &types.AttributeValueMemberBOOL{Value: hasDeviation},
	}
}

func testService(f *fixture) *Service {
	s := NewService(checklist.NewRepository(store.NewClient(f, "test-table")))
	s.now = func() time.Time { return reportTime }
	return s
}

func TestOverview_CountsStatusesAndAttribution(t *testing.T) {
	f := &fixture{checklists: []map[string]types.AttributeValue{
		clRow(clSpec{id: "c1", status: checklist.StatusCompleted, assignee: "u1", team: "t1", age: time.Hour}),
		clRow(clSpec{id: "c2", status: checklist.StatusInProgress, assignee: "u1", team: "t1", age: time.Hour}),
		clRow(clSpec{id: "c3", status: checklist.StatusDraft, age: time.Hour}),
	}}
	s := testService(f)

	o, err := s.Overview(context.Background(), "o1", Period30d, OverviewFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if o.Total != 3 {
		t.Errorf("expected total 3, got %d", o.Total)
	}
	if o.ByStatus[checklist.StatusCompleted] != 1 || o.ByStatus[checklist.StatusInProgress] != 1 || o.ByStatus[checklist.StatusDraft] != 1 {
		t.Errorf("unexpected byStatus: %v", o.ByStatus)
	}
	// 1 of 3 completed rounds to 33 percent.
	if o.CompletionRate != 33 {
		t.Errorf("expected completionRate 33, got %d", o.CompletionRate)
	}

	if got := o.PerUser["u1"]; got.Total != 2 || got.Completed != 1 {
		t.Errorf("unexpected score for u1: %+v", got)
	}
	// Unassigned checklists count against their creator.
	if got := o.PerUser["creator-1"]; got.Total != 1 || got.Completed != 0 {
		t.Errorf("unexpected score for creator-1: %+v", got)
	}
	if got := o.PerTeam["t1"]; got.Total != 2 || got.Completed != 1 {
		t.Errorf("unexpected score for t1: %+v", got)
	}
}

func TestOverview_PeriodExcludesOldChecklists(t *testing.T) {
	f := &fixture{checklists: []map[string]types.AttributeValue{
		clRow(clSpec{id: "recent", status: checklist.StatusCompleted, age: 2 * 24 * time.Hour}),
		clRow(clSpec{id: "stale", status: checklist.StatusCompleted, age: 20 * 24 * time.Hour}),
	}}
	s := testService(f)

	o, err := s.Overview(context.Background(), "o1", Period7d, OverviewFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.Total != 1 {
		t.Errorf("expected only the recent checklist, got total %d", o.Total)
	}
}

func TestOverview_DefaultPeriod(t *testing.T) {
	s := testService(&fixture{})

	o, err := s.Overview(context.Background(), "o1", "", OverviewFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.Period != Period30d {
		t.Errorf("expected default period %s, got %s", Period30d, o.Period)
	}
	if o.CompletionRate != 0 {
		t.Errorf("expected zero rate on empty sample, got %d", o.CompletionRate)
	}
}

func TestOverview_UserFilterMatchesAssigneeOrOwner(t *testing.T) {
	f := &fixture{checklists: []map[string]types.AttributeValue{
		clRow(clSpec{id: "c1", status: checklist.StatusCompleted, assignee: "u1", age: time.Hour}),
		clRow(clSpec{id: "c2", status: checklist.StatusDraft, assignee: "u2", owners: []string{"u1"}, age: time.Hour}),
		clRow(clSpec{id: "c3", status: checklist.StatusDraft, assignee: "u3", age: time.Hour}),
	}}
	s := testService(f)

	o, err := s.Overview(context.Background(), "o1", Period30d, OverviewFilter{UserID: "u1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.Total != 2 {
		t.Errorf("expected assignee and owner matches, got total %d", o.Total)
	}
}

func TestOverview_TeamFilter(t *testing.T) {
	f := &fixture{checklists: []map[string]types.AttributeValue{
		clRow(clSpec{id: "c1", status: checklist.StatusCompleted, team: "t1", age: time.Hour}),
		clRow(clSpec{id: "c2", status: checklist.StatusDraft, team: "t2", age: time.Hour}),
	}}
	s := testService(f)

	o, err := s.Overview(context.Background(), "o1", Period30d, OverviewFilter{TeamID: "t2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.Total != 1 || o.ByStatus[checklist.StatusDraft] != 1 {
		t.Errorf("unexpected filtered overview: %+v", o)
	}
}

func TestPerformance_RanksAndCountsDeviations(t *testing.T) {
	f := &fixture{
		checklists: []map[string]types.AttributeValue{
			clRow(clSpec{id: "c1", status: checklist.StatusCompleted, assignee: "u1", team: "t1", age: time.Hour}),
			clRow(clSpec{id: "c2", status: checklist.StatusCompleted, assignee: "u1", team: "t1", age: time.Hour}),
			clRow(clSpec{id: "c3", status: checklist.StatusCompleted, assignee: "u2", team: "t2", age: time.Hour}),
			clRow(clSpec{id: "c4", status: checklist.StatusDraft, assignee: "u3", age: time.Hour}),
		},
		items: map[string][]map[string]types.AttributeValue{
			"c1": {itemRow(0, true), itemRow(1, false)},
			"c3": {itemRow(0, true)},
		},
	}
	s := testService(f)

	p, err := s.Performance(context.Background(), "o1", Period30d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(p.TopUsers) != 3 {
		t.Fatalf("expected 3 ranked users, got %d", len(p.TopUsers))
	}
	if p.TopUsers[0].ID != "u1" || p.TopUsers[0].Completed != 2 || p.TopUsers[0].Rate != 100 {
		t.Errorf("unexpected leader: %+v", p.TopUsers[0])
	}
	if p.TopUsers[1].ID != "u2" {
		t.Errorf("expected u2 second, got %+v", p.TopUsers[1])
	}

	if len(p.TopTeams) != 2 || p.TopTeams[0].ID != "t1" {
		t.Errorf("unexpected team ranking: %+v", p.TopTeams)
	}
	if p.TotalDeviations != 2 {
		t.Errorf("expected 2 deviations, got %d", p.TotalDeviations)
	}
}

func TestPerformance_TieBreaksOnID(t *testing.T) {
	f := &fixture{checklists: []map[string]types.AttributeValue{
		clRow(clSpec{id: "c1", status: checklist.StatusCompleted, assignee: "zed", age: time.Hour}),
		clRow(clSpec{id: "c2", status: checklist.StatusCompleted, assignee: "abe", age: time.Hour}),
	}}
	s := testService(f)

	p, err := s.Performance(context.Background(), "o1", Period30d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.TopUsers[0].ID != "abe" || p.TopUsers[1].ID != "zed" {
		t.Errorf("expected stable id tie-break, got %+v", p.TopUsers)
	}
}

func TestRate_Rounding(t *testing.T) {
	if got := rate(2, 3); got != 67 {
		t.Errorf("expected 67, got %d", got)
	}
	if got := rate(1, 3); got != 33 {
		t.Errorf("expected 33, got %d", got)
	}
	if got := rate(0, 0); got != 0 {
		t.Errorf("expected 0 on empty, got %d", got)
	}
	if got := rate(3, 3); got != 100 {
		t.Errorf("expected 100, got %d", got)
	}
}
