package moderation

import (
	"sort"
	"strings"
)

type RejectReasonItem struct {
	ReasonCode string `json:"reason_code"`
	Label      string `json:"label"`
	ReasonText string `json:"reason_text"`
}

type rejectReasonTemplate struct {
	Label      string
	ReasonText string
}

// Moderators may send one of these codes instead of free text.
var rejectReasonTemplates = map[string]rejectReasonTemplate{
	"DUPLICATE": {
		Label:      "Duplicate",
		ReasonText: "This deal has already been posted.",
	},
	"EXPIRED_DEAL": {
		Label:      "Deal expired",
		ReasonText: "The price or promotion is no longer available.",
	},
	"WRONG_PRICE": {
		Label:      "Wrong price",
		ReasonText: "The listed price does not match the store.",
	},
	"NOT_A_DEAL": {
		Label:      "Not a deal",
		ReasonText: "The price is not meaningfully lower than usual.",
	},
	"REFERRAL_LINK": {
		Label:      "Referral or affiliate link",
		ReasonText: "Referral and affiliate links are not allowed.",
	},
	"SPAM": {
		Label:      "Spam",
		ReasonText: "The submission looks like spam or advertising.",
	},
	"OTHER": {
		Label:      "Other",
		ReasonText: "The submission does not follow the posting rules.",
	},
}

func ListRejectReasons() []RejectReasonItem {
	codes := make([]string, 0, len(rejectReasonTemplates))
	for code := range rejectReasonTemplates {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	items := make([]RejectReasonItem, 0, len(codes))
	for _, code := range codes {
		template := rejectReasonTemplates[code]
		items = append(items, RejectReasonItem{
			ReasonCode: code,
			Label:      template.Label,
			ReasonText: template.ReasonText,
		})
	}

	return items
}

// ResolveRejectReason expands a known reason code to its text and returns
// any other input trimmed.
func ResolveRejectReason(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if template, ok := rejectReasonTemplates[strings.ToUpper(trimmed)]; ok {
		return template.ReasonText
	}
	return trimmed
}
