package api

import (
	"time"

	"github.com/uxlens/uxlens/internal/services"
)

type submissionStoreAdapter struct {
	store Store
}

func newSubmissionStoreAdapter(store Store) services.SubmissionStore {
	return &submissionStoreAdapter{store: store}
}

func (a *submissionStoreAdapter) GetStudy(id string) (*services.Study, error) {
	return convertAPIStudy(a.store.GetStudy(id)), nil
}

func (a *submissionStoreAdapter) GetStudyContent(studyID string) (*services.StudyContent, error) {
	return convertAPIContent(
		a.store.ListCards(studyID),
		a.store.ListCategories(studyID),
		a.store.ListTreeNodes(studyID),
		a.store.ListTasks(studyID),
	), nil
}

func (a *submissionStoreAdapter) GetParticipant(id string) (*services.Participant, error) {
	return convertAPIParticipant(a.store.GetParticipant(id)), nil
}

func (a *submissionStoreAdapter) ReplaceCardSortResults(pid string, rows []*services.CardSortResult) error {
	out := make([]*CardSortResult, 0, len(rows))
	for _, r := range rows {
		out = append(out, convertServiceCardSort(r))
	}
	a.store.ReplaceCardSortResults(pid, out)
	return nil
}

func (a *submissionStoreAdapter) ReplaceTreeTestResults(pid string, rows []*services.TreeTestResult) error {
	out := make([]*TreeTestResult, 0, len(rows))
	for _, r := range rows {
		out = append(out, convertServiceTreeTest(r))
	}
	a.store.ReplaceTreeTestResults(pid, out)
	return nil
}

func (a *submissionStoreAdapter) ReplaceClickResults(pid string, rows []*services.ClickResult) error {
	out := make([]*ClickResult, 0, len(rows))
	for _, r := range rows {
		out = append(out, convertServiceClick(r))
	}
	a.store.ReplaceClickResults(pid, out)
	return nil
}

func (a *submissionStoreAdapter) CompleteParticipant(pid string, at time.Time) error {
	if !a.store.CompleteParticipant(pid, at) {
		return services.NewNotFoundError("participant not found")
	}
	return nil
}

var _ services.SubmissionStore = (*submissionStoreAdapter)(nil)
