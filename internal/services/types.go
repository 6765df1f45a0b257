package services

import "time"

type StudyType string

const (
	StudyCardSorting StudyType = "CARD_SORTING"
	StudyTreeTesting StudyType = "TREE_TESTING"
	StudyFirstClick  StudyType = "FIRST_CLICK"
)

type StudyStatus string

const (
	StatusDraft  StudyStatus = "DRAFT"
	StatusActive StudyStatus = "ACTIVE"
	StatusClosed StudyStatus = "CLOSED"
)

// SortingType controls what participants may do with categories during a card
// sort: CLOSED forbids new categories, OPEN requires participants to create
// their own, HYBRID allows renaming the predefined set.
type SortingType string

const (
	SortOpen   SortingType = "OPEN"
	SortClosed SortingType = "CLOSED"
	SortHybrid SortingType = "HYBRID"
)

type Study struct {
	ID          string
	OwnerID     string
	Title       string
	Description string
	Type        StudyType
	Status      StudyStatus
	SortingType SortingType // card sorting only
	ImageURL    string
	CreatedAt   time.Time
}

type Card struct {
	ID      string
	StudyID string
	Label   string
	Order   int
}

// Category is a researcher-authored grouping target. Categories a participant
// introduces during an OPEN/HYBRID sort are never written back here; they live
// only as free-text names on that participant's CardSortResult rows.
type Category struct {
	ID            string
	StudyID       string
	Name          string
	IsUserCreated bool
	Order         int
}

// TreeNode is one entry in the navigation hierarchy. An empty ParentID marks a
// root; Order is dense per sibling group.
type TreeNode struct {
	ID       string
	StudyID  string
	Label    string
	ParentID string
	Order    int
}

// Task is shared by tree testing (Question + CorrectNodeID) and first-click
// testing (Question + ImageURL + DisplayTimeSeconds). An empty CorrectNodeID
// means the task has no scorable answer.
type Task struct {
	ID                 string
	StudyID            string
	Question           string
	CorrectNodeID      string
	ImageURL           string
	DisplayTimeSeconds int
	Order              int
}

// Participant is an anonymous respondent. CompletedAt is the sole gate for
// inclusion in aggregated results.
type Participant struct {
	ID          string
	StudyID     string
	StartedAt   time.Time
	CompletedAt *time.Time
}

// CardSortResult records one card placement. CategoryID is set only when the
// placement used one of the study's predefined categories; CategoryName is the
// display name actually used; OriginalCategoryName is what a predefined
// category was called before a HYBRID participant possibly renamed it.
type CardSortResult struct {
	ParticipantID        string
	CardID               string
	CategoryID           string
	CategoryName         string
	OriginalCategoryName string
}

// TreeTestResult is written once at submission. IsCorrect is computed at that
// moment and stored, so later edits to the task's answer key never rescore
// historical responses.
type TreeTestResult struct {
	ParticipantID  string
	TaskID         string
	SelectedPath   []string
	SelectedNodeID string
	IsCorrect      bool
	TimeSpentMs    int64
}

// ClickResult stores coordinates as percentages of the image dimensions so the
// data survives re-renders at other sizes. Timeout marks the synthesized
// center-point record written when a task auto-advanced without a real click.
type ClickResult struct {
	ParticipantID string
	TaskID        string
	X             float64
	Y             float64
	TimeToClickMs int64
	Timeout       bool
}

// StudyContent is the researcher-authored side of a study.
type StudyContent struct {
	Cards      []*Card
	Categories []*Category
	TreeNodes  []*TreeNode
	Tasks      []*Task
}

// ParticipantResults bundles one completed participant with their raw result
// rows of every kind; only the slice matching the study type is populated.
type ParticipantResults struct {
	Participant *Participant
	CardSorts   []*CardSortResult
	TreeTests   []*TreeTestResult
	Clicks      []*ClickResult
}

// StudySnapshot is the immutable input to every aggregation: the study, its
// content, and its completed participants in fetch order. Aggregators never
// reach back into a store, so re-running them on the same snapshot yields
// identical output.
type StudySnapshot struct {
	Study        *Study
	Content      *StudyContent
	Participants []*ParticipantResults
}

type AuditEntry struct {
	Time   time.Time
	Actor  string
	Action string
	Target string
	Note   string
}
