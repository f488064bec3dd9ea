package output

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"toprepos/internal/model"
)

// SummarizeContributors lists as many leading logins as fit in maxWidth runes,
// noting how many were left out: "a, b and 3 more". When not even one login
// fits it falls back to "N contributors". maxWidth <= 0 means unlimited.
func SummarizeContributors(list []model.Contributor, maxWidth int) string {
	if len(list) == 0 {
		return ""
	}

	shown := 0
	for n := 1; n <= len(list); n++ {
		if maxWidth > 0 && utf8.RuneCountInString(joinContributors(list, n)) > maxWidth {
			break
		}
		shown = n
	}
	if shown == 0 {
		return countContributors(len(list))
	}
	return joinContributors(list, shown)
}

func joinContributors(list []model.Contributor, n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(list[i].Login)
	}
	if n < len(list) {
		fmt.Fprintf(&b, " and %d more", len(list)-n)
	}
	return b.String()
}

func countContributors(n int) string {
	if n == 1 {
		return "1 contributor"
	}
	return fmt.Sprintf("%d contributors", n)
}
