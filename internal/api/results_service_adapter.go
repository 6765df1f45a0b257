package api

import "github.com/uxlens/uxlens/internal/services"

// resultStoreAdapter serves the read side shared by results and export.
type resultStoreAdapter struct {
	store Store
}

func newResultStoreAdapter(store Store) services.ResultStore {
	return &resultStoreAdapter{store: store}
}

func (a *resultStoreAdapter) GetStudy(id string) (*services.Study, error) {
	return convertAPIStudy(a.store.GetStudy(id)), nil
}

func (a *resultStoreAdapter) GetStudyContent(studyID string) (*services.StudyContent, error) {
	return convertAPIContent(
		a.store.ListCards(studyID),
		a.store.ListCategories(studyID),
		a.store.ListTreeNodes(studyID),
		a.store.ListTasks(studyID),
	), nil
}

func (a *resultStoreAdapter) GetCompletedParticipants(studyID string) ([]*services.ParticipantResults, error) {
	var out []*services.ParticipantResults
	for _, p := range a.store.ListParticipants(studyID) {
		if p.CompletedAt == nil {
			continue
		}
		pr := &services.ParticipantResults{Participant: convertAPIParticipant(p)}
		for _, r := range a.store.ListCardSortResults(p.ID) {
			pr.CardSorts = append(pr.CardSorts, convertAPICardSort(r))
		}
		for _, r := range a.store.ListTreeTestResults(p.ID) {
			pr.TreeTests = append(pr.TreeTests, convertAPITreeTest(r))
		}
		for _, r := range a.store.ListClickResults(p.ID) {
			pr.Clicks = append(pr.Clicks, convertAPIClick(r))
		}
		out = append(out, pr)
	}
	return out, nil
}

var _ services.ResultStore = (*resultStoreAdapter)(nil)
