package template

// Recurrence patterns shared by templates and the checklists they spawn.
const (
	RecurrenceNone      = "none"
	RecurrenceDaily     = "daily"
	RecurrenceWeekly    = "weekly"
	RecurrenceBiweekly  = "biweekly"
	RecurrenceMonthly   = "monthly"
	RecurrenceQuarterly = "quarterly"
	RecurrenceYearly    = "yearly"
)

// Attribute names for DynamoDB items.
const (
	AttrTemplateID  = "templateId"
	AttrOrgID       = "orgId"
	AttrTitle       = "title"
	AttrDescription = "description"
	AttrItems       = "items"
	AttrRecurrence  = "recurrence"
	AttrCreatedBy   = "createdBy"

	// Embedded item attribute names.
	AttrItemID    = "itemId"
	AttrSortOrder = "sortOrder"
	AttrRequired  = "required"
	AttrMediaURL  = "mediaUrl"
	AttrMediaType = "mediaType"
)

// EntityType identifies template items in the shared table.
const EntityType = "ChecklistTemplate"
