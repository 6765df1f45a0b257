package services

import (
	"errors"
	"time"
)

// SubmissionStore abstracts persistence for the participant submission
// workflow. The Replace methods swap a participant's previous rows for the new
// set atomically, which is what makes resubmission safe.
type SubmissionStore interface {
	GetStudy(id string) (*Study, error)
	GetStudyContent(studyID string) (*StudyContent, error)
	GetParticipant(id string) (*Participant, error)
	ReplaceCardSortResults(participantID string, rows []*CardSortResult) error
	ReplaceTreeTestResults(participantID string, rows []*TreeTestResult) error
	ReplaceClickResults(participantID string, rows []*ClickResult) error
	CompleteParticipant(participantID string, at time.Time) error
}

var (
	// ErrStudyNotActive is returned when a submission targets a study that is
	// not accepting responses.
	ErrStudyNotActive = errors.New("study is not active")
	// ErrAlreadyCompleted is returned when a completed participant submits
	// again.
	ErrAlreadyCompleted = errors.New("participant already completed")
)

// CardPlacementInput is one card placed during a sorting session. CategoryID
// references a predefined category; CategoryName carries the free-text name
// for user-created or renamed categories.
type CardPlacementInput struct {
	CardID       string `json:"card_id"`
	CategoryID   string `json:"category_id,omitempty"`
	CategoryName string `json:"category_name,omitempty"`
}

// TreeAnswerInput is one finished tree-test task. Correctness is never taken
// from the client; the service rescored it against study content.
type TreeAnswerInput struct {
	TaskID         string   `json:"task_id"`
	SelectedPath   []string `json:"selected_path"`
	SelectedNodeID string   `json:"selected_node_id"`
	TimeSpentMs    int64    `json:"time_spent_ms"`
}

// ClickInput is one first-click answer. Timeout submissions may omit the
// coordinates; the service synthesizes the sentinel record.
type ClickInput struct {
	TaskID        string  `json:"task_id,omitempty"`
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	TimeToClickMs int64   `json:"time_to_click_ms"`
	Timeout       bool    `json:"timeout,omitempty"`
}

// SubmitRequest transports the sanitized handler input into the service layer.
type SubmitRequest struct {
	StudyID       string
	ParticipantID string
	Type          StudyType
	Cards         []CardPlacementInput
	TreeAnswers   []TreeAnswerInput
	Clicks        []ClickInput
}

// SubmitResult reports what was written.
type SubmitResult struct {
	ParticipantID string
	ResultCount   int
	CompletedAt   time.Time
}

/// ResponseService hosts the participant submission workflow: validate, score
// on the server, replace previous rows, mark the participant complete.
type ResponseService struct {
	store SubmissionStore
	now   func() time.Time
}

func NewResponseService(store SubmissionStore) *ResponseService {
	return &ResponseService{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// Submit processes one participant's full submission. Resubmission before
// completion replaces everything written so far; after completion it is
// rejected, because aggregation treats completion as the point of no return.
func (s *ResponseService) Submit(req SubmitRequest) (*SubmitResult, error) {
	if req.StudyID == "" || req.ParticipantID == "" {
		return nil, NewInvalidError("study_id and participant_id required")
	}
	study, err := s.store.GetStudy(req.StudyID)
	if err != nil {
		return nil, err
	}
	if study == nil {
		return nil, NewNotFoundError("study not found")
	}
	if study.Status != StatusActive {
		return nil, ErrStudyNotActive
	}
	if req.Type != "" && req.Type != study.Type {
		return nil, NewInvalidError("submission type does not match study type")
	}
	p, err := s.store.GetParticipant(req.ParticipantID)
	if err != nil {
		return nil, err
	}
	if p == nil || p.StudyID != req.StudyID {
		return nil, NewNotFoundError("participant not found")
	}
	if p.CompletedAt != nil {
		return nil, ErrAlreadyCompleted
	}
	content, err := s.store.GetStudyContent(req.StudyID)
	if err != nil {
		return nil, err
	}

	var count int
	switch study.Type {
	case StudyCardSorting:
		rows, err := s.buildCardSorts(req, study, content)
		if err != nil {
			return nil, err
		}
		if err := s.store.ReplaceCardSortResults(req.ParticipantID, rows); err != nil {
			return nil, err
		}
		count = len(rows)
	case StudyTreeTesting:
		rows, err := s.buildTreeTests(req, content)
		if err != nil {
			return nil, err
		}
		if err := s.store.ReplaceTreeTestResults(req.ParticipantID, rows); err != nil {
			return nil, err
		}
		count = len(rows)
	case StudyFirstClick:
		rows, err := s.buildClicks(req, content)
		if err != nil {
			return nil, err
		}
		if err := s.store.ReplaceClickResults(req.ParticipantID, rows); err != nil {
			return nil, err
		}
		count = len(rows)
	default:
		return nil, NewInvalidError("unknown study type")
	}

	completedAt := s.now()
	if err := s.store.CompleteParticipant(req.ParticipantID, completedAt); err != nil {
		return nil, err
	}
	return &SubmitResult{ParticipantID: req.ParticipantID, ResultCount: count, CompletedAt: completedAt}, nil
}

func (s *ResponseService) buildCardSorts(req SubmitRequest, study *Study, content *StudyContent) ([]*CardSortResult, error) {
	if len(req.Cards) == 0 {
		return nil, NewInvalidError("no cards placed")
	}
	cardsByID := make(map[string]*Card, len(content.Cards))
	for _, c := range content.Cards {
		cardsByID[c.ID] = c
	}
	categoriesByID := make(map[string]*Category, len(content.Categories))
	for _, c := range content.Categories {
		categoriesByID[c.ID] = c
	}
	seen := make(map[string]bool, len(req.Cards))
	rows := make([]*CardSortResult, 0, len(req.Cards))
	for _, in := range req.Cards {
		if cardsByID[in.CardID] == nil {
			return nil, NewInvalidError("unknown card: " + in.CardID)
		}
		if seen[in.CardID] {
			return nil, NewInvalidError("card placed twice: " + in.CardID)
		}
		seen[in.CardID] = true

		row := &CardSortResult{
			ParticipantID: req.ParticipantID,
			CardID:        in.CardID,
			CategoryID:    in.CategoryID,
			CategoryName:  in.CategoryName,
		}
		if in.CategoryID != "" {
			cat := categoriesByID[in.CategoryID]
			if cat == nil {
				return nil, NewInvalidError("unknown category: " + in.CategoryID)
			}
			// Dragging a predefined category in unmodified: the original name
			// is recorded so later renames are detectable.
			if !cat.IsUserCreated {
				row.OriginalCategoryName = cat.Name
			}
			if row.CategoryName == "" {
				row.CategoryName = cat.Name
			}
		} else if study.SortingType == SortClosed {
			return nil, NewInvalidError("closed sort requires a predefined category")
		}
		if row.CategoryName == "" {
			return nil, NewInvalidError("placement needs a category")
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *ResponseService) buildTreeTests(req SubmitRequest, content *StudyContent) ([]*TreeTestResult, error) {
	if len(req.TreeAnswers) == 0 {
		return nil, NewInvalidError("no answers submitted")
	}
	tasksByID := make(map[string]*Task, len(content.Tasks))
	for _, t := range content.Tasks {
		tasksByID[t.ID] = t
	}
	nodesByID := make(map[string]*TreeNode, len(content.TreeNodes))
	for _, n := range content.TreeNodes {
		nodesByID[n.ID] = n
	}
	rows := make([]*TreeTestResult, 0, len(req.TreeAnswers))
	for _, in := range req.TreeAnswers {
		task := tasksByID[in.TaskID]
		if task == nil {
			return nil, NewInvalidError("unknown task: " + in.TaskID)
		}
		if in.SelectedNodeID != "" && nodesByID[in.SelectedNodeID] == nil {
			return nil, NewInvalidError("unknown node: " + in.SelectedNodeID)
		}
		if in.TimeSpentMs < 0 {
			in.TimeSpentMs = 0
		}
		rows = append(rows, &TreeTestResult{
			ParticipantID:  req.ParticipantID,
			TaskID:         in.TaskID,
			SelectedPath:   in.SelectedPath,
			SelectedNodeID: in.SelectedNodeID,
			IsCorrect:      ScoreSelection(in.SelectedNodeID, task.CorrectNodeID),
			TimeSpentMs:    in.TimeSpentMs,
		})
	}
	return rows, nil
}

func (s *ResponseService) buildClicks(req SubmitRequest, content *StudyContent) ([]*ClickResult, error) {
	if len(req.Clicks) == 0 {
		return nil, NewInvalidError("no clicks submitted")
	}
	tasksByID := make(map[string]*Task, len(content.Tasks))
	for _, t := range content.Tasks {
		tasksByID[t.ID] = t
	}
	rows := make([]*ClickResult, 0, len(req.Clicks))
	for _, in := range req.Clicks {
		task := tasksByID[in.TaskID]
		if in.TaskID != "" && task == nil {
			return nil, NewInvalidError("unknown task: " + in.TaskID)
		}
		if in.Timeout {
			if task == nil && len(content.Tasks) > 0 {
				task = content.Tasks[0]
			}
			if task == nil {
				return nil, NewInvalidError("timeout click without a task")
			}
			rows = append(rows, TimeoutClick(req.ParticipantID, task))
			continue
		}
		if in.TimeToClickMs < 0 {
			in.TimeToClickMs = 0
		}
		rows = append(rows, &ClickResult{
			ParticipantID: req.ParticipantID,
			TaskID:        in.TaskID,
			X:             ClampPercent(in.X),
			Y:             ClampPercent(in.Y),
			TimeToClickMs: in.TimeToClickMs,
		})
	}
	return rows, nil
}
