package campaign

import (
	"emailgenius/internal/store"
	"emailgenius/internal/types"
)

// Status is a finalized run's summary plus record-level counters.
type Status struct {
	Summary            types.CampaignSummary
	RecordsTotal       int
	RecordStatusCounts map[string]int
}

// GetStatus loads the summary of a finalized campaign and counts its
// persisted records by generation status.
func GetStatus(localStore *store.LocalStore, campaignID string) (*Status, error) {
	summary, err := localStore.GetCampaignSummary(campaignID)
	if err != nil {
		return nil, err
	}

	counts, err := localStore.CountCampaignRecordStatuses(campaignID)
	if err != nil {
		return nil, err
	}
	total := 0
	for _, n := range counts {
		total += n
	}

	return &Status{
		Summary:            *summary,
		RecordsTotal:       total,
		RecordStatusCounts: counts,
	}, nil
}
