// Package dynamo provides shared DynamoDB constants for the checklist table.
package dynamo

const (
	// Primary key attributes.
	AttrPK = "PK"
	AttrSK = "SK"

	// GSI key attributes.
	AttrGSI1PK = "GSI1PK"
	AttrGSI1SK = "GSI1SK"
	AttrGSI2PK = "GSI2PK"
	AttrGSI2SK = "GSI2SK"

	// Index names.
	IndexGSI1 = "GSI1"
	IndexGSI2 = "GSI2"

	// Key prefixes.
	PrefixOrg       = "ORG#"
	PrefixUser      = "USER#"
	PrefixTeam      = "TEAM#"
	PrefixInvite    = "INVITE#"
	PrefixEmail     = "EMAIL#"
	PrefixCategory  = "CAT#"
	PrefixTemplate  = "TMPL#"
	PrefixChecklist = "CL#"
	PrefixItem      = "ITEM#"
	PrefixApproval  = "APPROVAL#"
	PrefixAssignee  = "ASSIGN#"

	// SuffixStatus completes a checklist GSI2 partition key (ORG#{id}#STATUS).
	SuffixStatus = "#STATUS"

	// NoDueDate sorts checklists without a due date after every real date
	// in the GSI2 sort key.
	NoDueDate = "9999-12-31"

	// Shared attribute names.
	AttrEntityType = "entityType"
	AttrCreatedAt  = "createdAt"
	AttrUpdatedAt  = "updatedAt"
)
