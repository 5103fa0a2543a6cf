package checklist

import "fmt"

// Checklist statuses.
const (
	StatusDraft      = "draft"
	StatusActive     = "active"
	StatusInProgress = "in_progress"
	StatusSubmitted  = "submitted"
	StatusApproved   = "approved"
	StatusRejected   = "rejected"
	StatusCompleted  = "completed"
	StatusArchived   = "archived"
)

// Checklist item statuses.
const (
	ItemStatusPending       = "pending"
	ItemStatusCompleted     = "completed"
	ItemStatusDeviation     = "deviation"
	ItemStatusSkipped       = "skipped"
	ItemStatusNotApplicable = "not_applicable"
)

// Approval decisions.
const (
	DecisionPending  = "pending"
	DecisionApproved = "approved"
	DecisionRejected = "rejected"
)

// Attribute names for DynamoDB items.
const (
	AttrChecklistID        = "checklistId"
	AttrOrgID              = "orgId"
	AttrTemplateID         = "templateId"
	AttrCategoryID         = "categoryId"
	AttrTitle              = "title"
	AttrDescription        = "description"
	AttrStatus             = "status"
	AttrAssigneeID         = "assigneeId"
	AttrOwnerIDs           = "ownerIds"
	AttrTeamID             = "teamId"
	AttrStartDate          = "startDate"
	AttrEndDate            = "endDate"
	AttrDueDate            = "dueDate"
	AttrRecurrence         = "recurrence"
	AttrNextRecurrenceDate = "nextRecurrenceDate"
	AttrCompletedAt        = "completedAt"
	AttrCreatedBy          = "createdBy"

	AttrItemID        = "itemId"
	AttrSortOrder     = "sortOrder"
	AttrRequired      = "required"
	AttrHasDeviation  = "hasDeviation"
	AttrDeviationNote = "deviationNote"
	AttrMediaURL      = "mediaUrl"
	AttrMediaType     = "mediaType"
	AttrCompletedBy   = "completedBy"
	AttrAttachments   = "attachments"

	AttrAttachmentID = "attachmentId"
	AttrFileName     = "fileName"
	AttrFileSize     = "fileSize"
	AttrMimeType     = "mimeType"
	AttrS3Key        = "s3Key"
	AttrUploadedBy   = "uploadedBy"
	AttrUploadedAt   = "uploadedAt"

	AttrApprovalID = "approvalId"
	AttrApproverID = "approverId"
	AttrDecision   = "decision"
	AttrComment    = "comment"
	AttrDecidedAt  = "decidedAt"
)

// Entity type discriminators in the shared table.
const (
	EntityTypeChecklist = "Checklist"
	EntityTypeItem      = "ChecklistItem"
	EntityTypeApproval  = "Approval"
)

// ItemSortKey formats an item sort key from its sort order. Five digits
// of zero padding keep lexicographic and numeric order aligned up to
// 100,000 items per checklist.
func ItemSortKey(sortOrder int) string {
	return fmt.Sprintf("ITEM#%05d", sortOrder)
}
