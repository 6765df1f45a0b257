package services

import (
	"testing"
	"time"
)

type submissionStubStore struct {
	study        *Study
	content      *StudyContent
	participants map[string]*Participant

	cardSorts map[string][]*CardSortResult
	treeTests map[string][]*TreeTestResult
	clicks    map[string][]*ClickResult
}

func newSubmissionStubStore(study *Study, content *StudyContent) *submissionStubStore {
	return &submissionStubStore{
		study:        study,
		content:      content,
		participants: map[string]*Participant{},
		cardSorts:    map[string][]*CardSortResult{},
		treeTests:    map[string][]*TreeTestResult{},
		clicks:       map[string][]*ClickResult{},
	}
}

func (s *submissionStubStore) GetStudy(id string) (*Study, error) {
	if s.study != nil && s.study.ID == id {
		return s.study, nil
	}
	return nil, nil
}

func (s *submissionStubStore) GetStudyContent(studyID string) (*StudyContent, error) {
	return s.content, nil
}

func (s *submissionStubStore) GetParticipant(id string) (*Participant, error) {
	return s.participants[id], nil
}

func (s *submissionStubStore) ReplaceCardSortResults(pid string, rows []*CardSortResult) error {
	s.cardSorts[pid] = rows
	return nil
}

func (s *submissionStubStore) ReplaceTreeTestResults(pid string, rows []*TreeTestResult) error {
	s.treeTests[pid] = rows
	return nil
}

func (s *submissionStubStore) ReplaceClickResults(pid string, rows []*ClickResult) error {
	s.clicks[pid] = rows
	return nil
}

func (s *submissionStubStore) CompleteParticipant(pid string, at time.Time) error {
	s.participants[pid].CompletedAt = &at
	return nil
}

func cardSortSubmissionStore() *submissionStubStore {
	store := newSubmissionStubStore(
		&Study{ID: "S1", Type: StudyCardSorting, SortingType: SortHybrid, Status: StatusActive},
		&StudyContent{
			Cards: []*Card{
				{ID: "c1", StudyID: "S1", Label: "Apple"},
				{ID: "c2", StudyID: "S1", Label: "Carrot"},
			},
			Categories: []*Category{
				{ID: "g1", StudyID: "S1", Name: "Fruits"},
				{ID: "g2", StudyID: "S1", Name: "Vegetables", Order: 1},
			},
		},
	)
	store.participants["P1"] = &Participant{ID: "P1", StudyID: "S1", StartedAt: time.Now()}
	return store
}

func TestSubmitCardSort(t *testing.T) {
	store := cardSortSubmissionStore()
	svc := NewResponseService(store)
	res, err := svc.Submit(SubmitRequest{
		StudyID:       "S1",
		ParticipantID: "P1",
		Cards: []CardPlacementInput{
			{CardID: "c1", CategoryID: "g1"},
			{CardID: "c2", CategoryName: "Food"},
		},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.ResultCount != 2 {
		t.Fatalf("result count = %d", res.ResultCount)
	}
	if store.participants["P1"].CompletedAt == nil {
		t.Fatalf("participant not marked complete")
	}
	rows := store.cardSorts["P1"]
	if rows[0].CategoryName != "Fruits" || rows[0].OriginalCategoryName != "Fruits" {
		t.Fatalf("predefined placement = %+v", rows[0])
	}
	if rows[1].CategoryName != "Food" || rows[1].OriginalCategoryName != "" {
		t.Fatalf("free-text placement = %+v", rows[1])
	}
}

func TestSubmitCardSortValidation(t *testing.T) {
	store := cardSortSubmissionStore()
	svc := NewResponseService(store)
	if _, err := svc.Submit(SubmitRequest{StudyID: "S1", ParticipantID: "P1",
		Cards: []CardPlacementInput{{CardID: "ghost", CategoryID: "g1"}}}); err == nil {
		t.Fatalf("unknown card accepted")
	}
	if _, err := svc.Submit(SubmitRequest{StudyID: "S1", ParticipantID: "P1",
		Cards: []CardPlacementInput{{CardID: "c1", CategoryID: "g1"}, {CardID: "c1", CategoryID: "g2"}}}); err == nil {
		t.Fatalf("duplicate placement accepted")
	}
	store.study.SortingType = SortClosed
	if _, err := svc.Submit(SubmitRequest{StudyID: "S1", ParticipantID: "P1",
		Cards: []CardPlacementInput{{CardID: "c1", CategoryName: "Food"}}}); err == nil {
		t.Fatalf("closed sort accepted a free-text category")
	}
}

func TestSubmitRejectsInactiveStudy(t *testing.T) {
	store := cardSortSubmissionStore()
	store.study.Status = StatusDraft
	svc := NewResponseService(store)
	_, err := svc.Submit(SubmitRequest{StudyID: "S1", ParticipantID: "P1",
		Cards: []CardPlacementInput{{CardID: "c1", CategoryID: "g1"}}})
	if err != ErrStudyNotActive {
		t.Fatalf("err = %v, want ErrStudyNotActive", err)
	}
}

func TestSubmitRejectsCompletedParticipant(t *testing.T) {
	store := cardSortSubmissionStore()
	svc := NewResponseService(store)
	req := SubmitRequest{StudyID: "S1", ParticipantID: "P1",
		Cards: []CardPlacementInput{{CardID: "c1", CategoryID: "g1"}}}
	if _, err := svc.Submit(req); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if _, err := svc.Submit(req); err != ErrAlreadyCompleted {
		t.Fatalf("second submit err = %v, want ErrAlreadyCompleted", err)
	}
}

func TestSubmitReplacesPreviousRows(t *testing.T) {
	store := cardSortSubmissionStore()
	// Rows left over from an interrupted earlier attempt.
	store.cardSorts["P1"] = []*CardSortResult{
		{ParticipantID: "P1", CardID: "c1", CategoryName: "Stale"},
		{ParticipantID: "P1", CardID: "c2", CategoryName: "Stale"},
	}
	svc := NewResponseService(store)
	if _, err := svc.Submit(SubmitRequest{StudyID: "S1", ParticipantID: "P1",
		Cards: []CardPlacementInput{{CardID: "c1", CategoryID: "g1"}}}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	rows := store.cardSorts["P1"]
	if len(rows) != 1 || rows[0].CategoryName != "Fruits" {
		t.Fatalf("stale rows survived: %+v", rows)
	}
}

func TestSubmitTreeTestScoresOnServer(t *testing.T) {
	store := newSubmissionStubStore(
		&Study{ID: "S2", Type: StudyTreeTesting, Status: StatusActive},
		&StudyContent{
			TreeNodes: testTree(),
			Tasks:     []*Task{{ID: "T1", StudyID: "S2", Question: "Find laptops", CorrectNodeID: "N3"}},
		},
	)
	store.participants["P1"] = &Participant{ID: "P1", StudyID: "S2"}
	svc := NewResponseService(store)
	if _, err := svc.Submit(SubmitRequest{StudyID: "S2", ParticipantID: "P1",
		TreeAnswers: []TreeAnswerInput{
			{TaskID: "T1", SelectedPath: []string{"N1", "N2", "N3"}, SelectedNodeID: "N3", TimeSpentMs: 4200},
		}}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	rows := store.treeTests["P1"]
	if len(rows) != 1 || !rows[0].IsCorrect {
		t.Fatalf("rows = %+v", rows)
	}
	if _, err := svc.Submit(SubmitRequest{StudyID: "S2", ParticipantID: "P1",
		TreeAnswers: []TreeAnswerInput{{TaskID: "ghost", SelectedNodeID: "N3"}}}); err != ErrAlreadyCompleted {
		t.Fatalf("completed participant resubmitted: %v", err)
	}
}

func TestSubmitFirstClickClampsAndSynthesizesTimeout(t *testing.T) {
	store := newSubmissionStubStore(
		&Study{ID: "S3", Type: StudyFirstClick, Status: StatusActive},
		&StudyContent{Tasks: []*Task{{ID: "T1", StudyID: "S3", DisplayTimeSeconds: 5}}},
	)
	store.participants["P1"] = &Participant{ID: "P1", StudyID: "S3"}
	svc := NewResponseService(store)
	if _, err := svc.Submit(SubmitRequest{StudyID: "S3", ParticipantID: "P1",
		Clicks: []ClickInput{
			{TaskID: "T1", X: 130, Y: -4, TimeToClickMs: 900},
		}}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	rows := store.clicks["P1"]
	if rows[0].X != 100 || rows[0].Y != 0 {
		t.Fatalf("coords not clamped: %+v", rows[0])
	}

	store.participants["P2"] = &Participant{ID: "P2", StudyID: "S3"}
	if _, err := svc.Submit(SubmitRequest{StudyID: "S3", ParticipantID: "P2",
		Clicks: []ClickInput{{TaskID: "T1", Timeout: true}}}); err != nil {
		t.Fatalf("Submit timeout: %v", err)
	}
	row := store.clicks["P2"][0]
	if row.X != 50 || row.Y != 50 || row.TimeToClickMs != 5000 || !row.Timeout {
		t.Fatalf("timeout row = %+v", row)
	}
}

func TestSubmitTypeMismatch(t *testing.T) {
	store := cardSortSubmissionStore()
	svc := NewResponseService(store)
	if _, err := svc.Submit(SubmitRequest{StudyID: "S1", ParticipantID: "P1", Type: StudyTreeTesting,
		Cards: []CardPlacementInput{{CardID: "c1", CategoryID: "g1"}}}); err == nil {
		t.Fatalf("type mismatch accepted")
	}
}

func TestSubmitParticipantMustBelongToStudy(t *testing.T) {
	store := cardSortSubmissionStore()
	store.participants["PX"] = &Participant{ID: "PX", StudyID: "other"}
	svc := NewResponseService(store)
	if _, err := svc.Submit(SubmitRequest{StudyID: "S1", ParticipantID: "PX",
		Cards: []CardPlacementInput{{CardID: "c1", CategoryID: "g1"}}}); err == nil {
		t.Fatalf("foreign participant accepted")
	}
}
