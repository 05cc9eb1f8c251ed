package store

import "github.com/hal9000y/mailthread/internal/extract"

// Search table columns written by the build pipeline. The query layer reads
// whichever of them are present.
const (
	ColRow        = "row"
	ColMessageID  = "message_id"
	ColThreadID   = "thread_id"
	ColSender     = "sender"
	ColRecipients = "recipients"
	ColTimestamp  = "timestamp"
	ColSubject    = "subject"
	ColBody       = "body"
	ColPO         = extract.FieldPO
	ColPhases     = extract.FieldPhase
	ColSites      = extract.FieldSite
)

// Edge table columns.
const (
	ColParentRow = "parent_row"
	ColChildRow  = "child_row"
)

// SearchColumns is the column order of the search table.
var SearchColumns = []string{
	ColRow, ColMessageID, ColThreadID, ColSender, ColRecipients, ColTimestamp,
	ColSubject, ColBody, ColPO, ColPhases, ColSites,
}

// EdgeColumns is the column order of the edges table.
var EdgeColumns = []string{ColThreadID, ColParentRow, ColChildRow}

// Separators used inside search table cells.
const (
	TokenSep     = ";"
	RecipientSep = ", "
)
