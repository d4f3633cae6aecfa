package pricing

import (
	"strings"
	"time"

	"github.com/raine/catalog-feed-import/internal/feed"
)

// ActionFlagCode is the code of the flag that marks a running promotion.
const ActionFlagCode = "action"

// ResolvedFlag is a flag with its active state decided at a reference instant.
type ResolvedFlag struct {
	Code      string `json:"code"`
	Title     string `json:"title,omitempty"`
	Active    bool   `json:"active"`
	ValidFrom string `json:"valid_from,omitempty"`
	ValidTo   string `json:"valid_to,omitempty"`
}

// ResolveFlags decides every flag's active state at instant at. The action
// flag is forced on while discounted is true and is added when the source
// lacks it. Other flags use their explicit marker, then their own window,
// and are inactive otherwise.
func ResolveFlags(flags []feed.Flag, discounted bool, at time.Time) []ResolvedFlag {
	out := make([]ResolvedFlag, 0, len(flags)+1)
	sawAction := false
	for _, f := range flags {
		rf := ResolvedFlag{
			Code:      f.Code,
			Title:     f.Title,
			ValidFrom: f.ValidFrom,
			ValidTo:   f.ValidTo,
		}
		isAction := strings.EqualFold(f.Code, ActionFlagCode)
		switch {
		case isAction && discounted:
			rf.Active = true
		case f.Active != nil:
			rf.Active = *f.Active
		default:
			window := ParseWindow(f.ValidFrom, f.ValidTo)
			rf.Active = window.Declared() && window.Contains(at)
		}
		if isAction {
			sawAction = true
		}
		out = append(out, rf)
	}
	if discounted && !sawAction {
		out = append(out, ResolvedFlag{Code: ActionFlagCode, Active: true})
	}
	return out
}
