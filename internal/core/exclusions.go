package core

import (
	"gwi.com/secret-santa-bot/internal/store"
	"gwi.com/secret-santa-bot/internal/utils"
)

// ExclusionRule names two people, by display name or @handle, who must never
// be matched in either direction.
type ExclusionRule struct {
	A string
	B string
}

// ResolveExclusions turns rules into user id pairs against the current
// participants. Rules where either side matches nobody are returned as
// unresolved and do not block the round. A name matching several
// participants forbids all of them.
func ResolveExclusions(rules []ExclusionRule, participants []store.Participant) (ForbiddenSet, []ExclusionRule) {
	forbidden := make(ForbiddenSet)
	var unresolved []ExclusionRule

	for _, rule := range rules {
		left := matchingUserIDs(rule.A, participants)
		right := matchingUserIDs(rule.B, participants)
		if len(left) == 0 || len(right) == 0 {
			unresolved = append(unresolved, rule)
			continue
		}
		for _, a := range left {
			for _, b := range right {
				if a != b {
					forbidden.ForbidBoth(a, b)
				}
			}
		}
	}
	return forbidden, unresolved
}

func matchingUserIDs(ref string, participants []store.Participant) []string {
	var ids []string
	for _, p := range participants {
		if utils.MatchesParticipant(ref, p.DisplayName, p.Handle) {
			ids = append(ids, p.UserID)
		}
	}
	return ids
}
