package services

// ResultsService builds the researcher-facing aggregated views. It owns no
// state beyond the store; every view is recomputed from the snapshot on
// demand, so re-reading results is always idempotent.
type ResultsService struct {
	store ResultStore
}

func NewResultsService(store ResultStore) *ResultsService {
	return &ResultsService{store: store}
}

// Snapshot loads a study with its content and completed-participant results,
// enforcing ownership. Pass an empty ownerID to skip the ownership check, e.g.
// for internal callers.
func (s *ResultsService) Snapshot(studyID, ownerID string) (*StudySnapshot, error) {
	if studyID == "" {
		return nil, NewInvalidError("study_id required")
	}
	study, err := s.store.GetStudy(studyID)
	if err != nil {
		return nil, err
	}
	if study == nil {
		return nil, NewNotFoundError("study not found")
	}
	if ownerID != "" && study.OwnerID != ownerID {
		return nil, NewForbiddenError("not your study")
	}
	content, err := s.store.GetStudyContent(studyID)
	if err != nil {
		return nil, err
	}
	participants, err := s.store.GetCompletedParticipants(studyID)
	if err != nil {
		return nil, err
	}
	return &StudySnapshot{Study: study, Content: content, Participants: participants}, nil
}

// ParticipantRef identifies a completed participant in the views' filter
// dropdown; Number matches the ordinals used everywhere else.
type ParticipantRef struct {
	ID     string `json:"id"`
	Number int    `json:"number"`
}

func participantRefs(snap *StudySnapshot) []ParticipantRef {
	refs := make([]ParticipantRef, 0, len(snap.Participants))
	for i, pr := range snap.Participants {
		refs = append(refs, ParticipantRef{ID: pr.Participant.ID, Number: i + 1})
	}
	return refs
}

// CardSortView is the aggregated card-sort results page: category groups with
// color-coded cards, optionally filtered by participant and category kind.
type CardSortView struct {
	StudyID      string           `json:"study_id"`
	Title        string           `json:"title"`
	Participants []ParticipantRef `json:"participants"`
	Groups       []*CategoryGroup `json:"groups"`
}

func (s *ResultsService) CardSortView(studyID, ownerID, participantID, kind string) (*CardSortView, error) {
	snap, err := s.Snapshot(studyID, ownerID)
	if err != nil {
		return nil, err
	}
	if snap.Study.Type != StudyCardSorting {
		return nil, NewInvalidError("not a card sorting study")
	}
	groups := GroupByCategory(snap)
	groups = FilterGroupsByParticipant(groups, participantID)
	groups = FilterGroupsByKind(groups, kind)
	return &CardSortView{
		StudyID:      snap.Study.ID,
		Title:        snap.Study.Title,
		Participants: participantRefs(snap),
		Groups:       groups,
	}, nil
}

// TreeTestRow is one participant's answer to one task, resolved to labels for
// display.
type TreeTestRow struct {
	TaskID        string  `json:"task_id"`
	ParticipantID string  `json:"participant_id"`
	Ordinal       int     `json:"ordinal"`
	SelectedLabel string  `json:"selected_label"`
	PathText      string  `json:"path_text"`
	IsCorrect     bool    `json:"is_correct"`
	TimeSeconds   float64 `json:"time_seconds"`
}

// TreeTestView is the aggregated tree-test results page: per-task stats plus
// the underlying detail rows.
type TreeTestView struct {
	StudyID      string           `json:"study_id"`
	Title        string           `json:"title"`
	Participants []ParticipantRef `json:"participants"`
	Stats        []*TaskStats     `json:"stats"`
	Rows         []*TreeTestRow   `json:"rows"`
}

func (s *ResultsService) TreeTestView(studyID, ownerID, participantID string) (*TreeTestView, error) {
	snap, err := s.Snapshot(studyID, ownerID)
	if err != nil {
		return nil, err
	}
	if snap.Study.Type != StudyTreeTesting {
		return nil, NewInvalidError("not a tree testing study")
	}
	ix := NewNodeIndex(snap.Content.TreeNodes)
	var rows []*TreeTestRow
	for _, task := range snap.Content.Tasks {
		for i, pr := range snap.Participants {
			if participantID != "" && participantID != "all" && pr.Participant.ID != participantID {
				continue
			}
			for _, r := range pr.TreeTests {
				if r.TaskID != task.ID {
					continue
				}
				rows = append(rows, &TreeTestRow{
					TaskID:        task.ID,
					ParticipantID: pr.Participant.ID,
					Ordinal:       i + 1,
					SelectedLabel: ix.Label(r.SelectedNodeID),
					PathText:      ix.PathLabels(r.SelectedPath),
					IsCorrect:     r.IsCorrect,
					TimeSeconds:   float64(r.TimeSpentMs) / 1000,
				})
			}
		}
	}
	return &TreeTestView{
		StudyID:      snap.Study.ID,
		Title:        snap.Study.Title,
		Participants: participantRefs(snap),
		Stats:        PerTaskStats(snap),
		Rows:         rows,
	}, nil
}

// FirstClickView is the aggregated first-click results page: the click points
// feeding the heatmap plus summary timing.
type FirstClickView struct {
	StudyID      string           `json:"study_id"`
	Title        string           `json:"title"`
	ImageURL     string           `json:"image_url,omitempty"`
	Participants []ParticipantRef `json:"participants"`
	Clicks       []ClickPoint     `json:"clicks"`
	AvgSeconds   float64          `json:"avg_seconds"`
}

func (s *ResultsService) FirstClickView(studyID, ownerID, taskID, participantID string) (*FirstClickView, error) {
	snap, err := s.Snapshot(studyID, ownerID)
	if err != nil {
		return nil, err
	}
	if snap.Study.Type != StudyFirstClick {
		return nil, NewInvalidError("not a first click study")
	}
	clicks := CollectClicks(snap, taskID, participantID)
	imageURL := snap.Study.ImageURL
	if taskID != "" {
		for _, t := range snap.Content.Tasks {
			if t.ID == taskID && t.ImageURL != "" {
				imageURL = t.ImageURL
			}
		}
	}
	return &FirstClickView{
		StudyID:      snap.Study.ID,
		Title:        snap.Study.Title,
		ImageURL:     imageURL,
		Participants: participantRefs(snap),
		Clicks:       clicks,
		AvgSeconds:   AverageClickSeconds(clicks),
	}, nil
}
