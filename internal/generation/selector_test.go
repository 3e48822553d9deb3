package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"emailgenius/internal/types"
)

func variant(id string, flags ...string) types.DraftEmailVariant {
	return types.DraftEmailVariant{Variant: id, Subject: "s", Body: "b", RiskFlags: flags}
}

func TestSelectVariantRecommendedPassing(t *testing.T) {
	variants := []types.DraftEmailVariant{variant("A"), variant("B"), variant("C")}
	selected, status, flags := SelectVariant(variants, "B", 2)
	assert.Equal(t, "B", selected)
	assert.Equal(t, types.StatusOK, status)
	assert.Empty(t, flags)
}

func TestSelectVariantRecommendedFailedFallsToFirstPassing(t *testing.T) {
	variants := []types.DraftEmailVariant{
		variant("A"),
		variant("B", FlagFailedCopyGuard, "spam_caps"),
		variant("C"),
	}
	selected, status, flags := SelectVariant(variants, "B", 2)
	assert.Equal(t, "A", selected)
	assert.Equal(t, types.StatusOK, status)
	assert.Empty(t, flags)
}

func TestSelectVariantNonePassing(t *testing.T) {
	variants := []types.DraftEmailVariant{
		variant("A", FlagFailedCopyGuard, "spam_caps"),
		variant("B", FlagFailedCopyGuard, "subject_too_long"),
	}
	selected, status, flags := SelectVariant(variants, "B", 1)
	assert.Equal(t, "B", selected)
	assert.Equal(t, types.StatusFailedCopyGuard, status)
	assert.Contains(t, flags, FlagFailedCopyGuard)
	assert.Contains(t, flags, "subject_too_long")
}

func TestSelectVariantOnePassingMeansOK(t *testing.T) {
	// Property: as long as one variant lacks failed_copy_guard the row
	// status is OK, whatever the others look like.
	variants := []types.DraftEmailVariant{
		variant("A", FlagFailedCopyGuard),
		variant("B", FlagFailedCopyGuard),
		variant("C", "rewrite_under_target"),
	}
	selected, status, flags := SelectVariant(variants, "A", 3)
	assert.Equal(t, "C", selected)
	assert.Equal(t, types.StatusOK, status)
	assert.NotContains(t, flags, FlagFailedCopyGuard)
	assert.Contains(t, flags, "rewrite_under_target")
}

func TestSelectVariantFailedVariantDoesNotPoisonRow(t *testing.T) {
	variants := []types.DraftEmailVariant{
		variant("A"),
		variant("B", FlagFailedCopyGuard, "spam_clickbait_subject"),
	}
	_, status, flags := SelectVariant(variants, "A", 1)
	assert.Equal(t, types.StatusOK, status)
	assert.NotContains(t, flags, "spam_clickbait_subject")
	assert.NotContains(t, flags, FlagFailedCopyGuard)
}

func TestSelectVariantLimitedSources(t *testing.T) {
	variants := []types.DraftEmailVariant{variant("A")}
	_, _, flags := SelectVariant(variants, "A", 0)
	assert.Contains(t, flags, FlagLimitedSources)

	_, _, flags = SelectVariant(variants, "A", 3)
	assert.NotContains(t, flags, FlagLimitedSources)
}

func TestSelectVariantUnknownRecommendedNonePassing(t *testing.T) {
	variants := []types.DraftEmailVariant{
		variant("A", FlagFailedCopyGuard),
	}
	selected, status, _ := SelectVariant(variants, "Z", 1)
	assert.Equal(t, "A", selected)
	assert.Equal(t, types.StatusFailedCopyGuard, status)
}

func TestSelectVariantEmpty(t *testing.T) {
	selected, status, flags := SelectVariant(nil, "A", 1)
	assert.Equal(t, "", selected)
	assert.Equal(t, types.StatusFailedCopyGuard, status)
	assert.Contains(t, flags, FlagFailedCopyGuard)
}
