package notifications

import (
	"fmt"
	"strings"
	"time"

	"emsys/internal/domain/approval"
)

// SubmittedMessage is posted to the approvers' channel with one-click decision links.
func SubmittedMessage(p approval.LeavePayload, approveURL, rejectURL string, validity time.Duration, loc *time.Location) string {
	var b strings.Builder
	b.WriteString("📋 **Leave request - awaiting approval**\n\n")
	fmt.Fprintf(&b, "Employee: %s\n", p.Nickname)
	fmt.Fprintf(&b, "Leave type: %s\n", p.LeaveType)
	fmt.Fprintf(&b, "Dates: %s\n", p.Dates.String())
	fmt.Fprintf(&b, "Period: %s\n", p.PeriodLabel())
	if total, err := p.TotalDays(); err == nil {
		fmt.Fprintf(&b, "Days: %s\n", total.String())
	}
	fmt.Fprintf(&b, "Reason: %s\n", p.Reason)
	fmt.Fprintf(&b, "Submitted: %s\n", approval.FormatSubmitTime(p.SubmitTime, loc))
	b.WriteString("\n---\n")
	fmt.Fprintf(&b, "<%s|✅ Approve>    <%s|❌ Reject>\n\n", approveURL, rejectURL)
	fmt.Fprintf(&b, "⚠️ Links stop working %d minutes after the request or its first decision.\n", int(validity.Minutes()))
	b.WriteString("Do not forward these links.")
	return b.String()
}

func ApprovedMessage(p approval.LeavePayload) string {
	return fmt.Sprintf("✅ Leave request approved\n\n%s's %s leave on %s has been approved.",
		p.Nickname, p.LeaveType, p.Dates.String())
}

func RejectedMessage(p approval.LeavePayload, reason string) string {
	return fmt.Sprintf("❌ Leave request rejected\n\n%s's %s leave on %s has been rejected.\nReason: %s",
		p.Nickname, p.LeaveType, p.Dates.String(), reason)
}

// DecisionMessage picks the message for a recorded decision.
func DecisionMessage(rec approval.Record) (string, string) {
	if rec.Action == approval.ActionRejected {
		reason := ""
		if rec.ReviewReason != nil {
			reason = *rec.ReviewReason
		}
		return TypeLeaveRejected, RejectedMessage(rec.Payload, reason)
	}
	return TypeLeaveApproved, ApprovedMessage(rec.Payload)
}
