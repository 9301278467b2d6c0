package lifecycle

import (
	"fmt"
	"strings"

	"github.com/m3rciful/telecopter/internal/domain"
)

const (
	accountApprovedText = "Your account has been approved! You can now use the bot. Try /start"
	accountDeniedText   = "Your account access request has been reviewed and was not approved at this time. You will not be able to use this bot."
	noteSegment         = "\n\nAdmin's note: "
)

// NotificationText renders the message sent to the submitter for a status
// change. A non-empty note switches media and problem wording to the
// "by the admin" variant and is appended as its own segment. It returns ""
// when the pair has no template.
func NotificationText(t domain.RequestType, target domain.RequestStatus, title string, note *string) string {
	withNote := note != nil && strings.TrimSpace(*note) != ""
	var body string
	switch {
	case t == domain.TypeUserApproval:
		switch target {
		case domain.StatusApproved, domain.StatusCompleted:
			body = accountApprovedText
		case domain.StatusDenied:
			body = accountDeniedText
		}
	case t == domain.TypeProblem:
		switch target {
		case domain.StatusAcknowledged:
			body = fmt.Sprintf("Update: Your problem report \"%s\" has been acknowledged by the admin.", title)
		case domain.StatusCompleted:
			if withNote {
				body = fmt.Sprintf("Update: Your problem report \"%s\" has been marked as resolved by the admin.", title)
			} else {
				body = fmt.Sprintf("Update: Your problem report \"%s\" has been marked as resolved.", title)
			}
		}
	case t.IsMedia():
		switch target {
		case domain.StatusApproved:
			if withNote {
				body = fmt.Sprintf("Great news! Your request for \"%s\" has been approved by the admin.", title)
			} else {
				body = fmt.Sprintf("Great news! Your request for \"%s\" has been approved.", title)
			}
		case domain.StatusDenied:
			body = fmt.Sprintf("Regarding your request for \"%s\", the admin has denied it.", title)
		case domain.StatusCompleted:
			if withNote {
				body = fmt.Sprintf("Update: Your request for \"%s\" has been completed by the admin.", title)
			} else {
				body = fmt.Sprintf("Update: Your request for \"%s\" is now completed and available!", title)
			}
		}
	}
	if body == "" {
		return ""
	}
	if withNote {
		body += noteSegment + strings.TrimSpace(*note)
	}
	return body
}

// AdminSummary is the one-line result shown to the acting admin.
func AdminSummary(o Outcome) string {
	if o.AlreadyProcessed {
		return fmt.Sprintf("This task (ID: %d) was already completed with status: %s.", o.RequestID, o.NewStatus)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Request ID %d status set to %s", o.RequestID, o.NewStatus)
	if o.WithNote {
		b.WriteString(" with note")
	}
	switch {
	case o.UserNotified:
		b.WriteString(". User notified.")
	case !o.SubmitterFound && o.NotifyError == nil:
		b.WriteString(" (User chat_id not found)")
	default:
		b.WriteString(" (User notification failed)")
	}
	return b.String()
}

// NotFoundText is shown to an admin acting on a missing request.
func NotFoundText(id int64) string {
	return fmt.Sprintf("❗Error: Request ID %d not found.", id)
}
