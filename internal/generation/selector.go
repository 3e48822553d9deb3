package generation

import (
	"emailgenius/internal/types"
)

// SelectVariant deterministically picks the exported final variant and
// the row's aggregate status. Variants arrive in stable id order.
//
// The recommended id wins when it passed the copy guard; otherwise the
// first passing variant does. When nothing passes, the recommendation
// (or the first produced id) is still selected but the row is blocked.
// One variant's failure never poisons an otherwise-OK row: row flags
// come from the selected variant only, with failed_copy_guard dropped
// when the row passes.
func SelectVariant(variants []types.DraftEmailVariant, recommendedID string, dossierSourceCount int) (selectedID, status string, rowFlags []string) {
	if len(variants) == 0 {
		return "", types.StatusFailedCopyGuard, []string{FlagFailedCopyGuard}
	}

	var passing []types.DraftEmailVariant
	produced := make(map[string]types.DraftEmailVariant, len(variants))
	for _, v := range variants {
		produced[v.Variant] = v
		if !hasFlag(v.RiskFlags, FlagFailedCopyGuard) {
			passing = append(passing, v)
		}
	}

	var selected types.DraftEmailVariant
	switch {
	case len(passing) > 0:
		selected = passing[0]
		for _, v := range passing {
			if v.Variant == recommendedID {
				selected = v
				break
			}
		}
		status = types.StatusOK
	default:
		if v, ok := produced[recommendedID]; ok {
			selected = v
		} else {
			selected = variants[0]
		}
		status = types.StatusFailedCopyGuard
	}

	flags := make([]string, 0, len(selected.RiskFlags)+1)
	for _, f := range selected.RiskFlags {
		if status == types.StatusOK && f == FlagFailedCopyGuard {
			continue
		}
		flags = append(flags, f)
	}
	if dossierSourceCount == 0 {
		flags = append(flags, FlagLimitedSources)
	}

	return selected.Variant, status, dedupeSorted(flags)
}

func hasFlag(flags []string, want string) bool {
	for _, f := range flags {
		if f == want {
			return true
		}
	}
	return false
}
