package domain

import "strings"

const (
	TagPendingPayment  = "pending_payment"
	TagAwaitingPayment = "awaiting_payment"
	TagPaid            = "paid"
	TagPack            = "pack_foltz"
)

func PendingTags(hasPack bool) []string {
	tags := []string{"dlocal", "foltz", TagPendingPayment, TagAwaitingPayment}
	if hasPack {
		tags = append(tags, TagPack)
	}
	return tags
}

// PaidTags drops the pending markers from a comma separated tag list and adds
// the paid marker once.
func PaidTags(current string) string {
	out := make([]string, 0, 8)
	seen := map[string]bool{}
	for _, t := range strings.Split(current, ",") {
		t = strings.TrimSpace(t)
		if t == "" || t == TagPendingPayment || t == TagAwaitingPayment || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	if !seen[TagPaid] {
		out = append(out, TagPaid)
	}
	return strings.Join(out, ", ")
}

// HasTag reports whether a comma separated tag list carries tag.
func HasTag(list, tag string) bool {
	for _, t := range strings.Split(list, ",") {
		if strings.TrimSpace(t) == tag {
			return true
		}
	}
	return false
}
