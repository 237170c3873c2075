package enums

import "strings"

type ReportReason string

const (
	ReportReasonSpam    ReportReason = "spam"
	ReportReasonExpired ReportReason = "expired"
	ReportReasonWrong   ReportReason = "wrong_price"
	ReportReasonAbusive ReportReason = "abusive"
	ReportReasonOther   ReportReason = "other"
)

func ParseReportReason(raw string) (ReportReason, bool) {
	switch r := ReportReason(strings.ToLower(strings.TrimSpace(raw))); r {
	case ReportReasonSpam, ReportReasonExpired, ReportReasonWrong, ReportReasonAbusive, ReportReasonOther:
		return r, true
	default:
		return "", false
	}
}
