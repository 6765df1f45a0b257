package services

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ErrorCode string

const (
	ErrorInvalid      ErrorCode = "invalid"
	ErrorForbidden    ErrorCode = "forbidden"
	ErrorNotFound     ErrorCode = "not_found"
	ErrorConflict     ErrorCode = "conflict"
	ErrorUnauthorized ErrorCode = "unauthorized"
	ErrorLocked       ErrorCode = "locked"
)

type ServiceError struct {
	Code    ErrorCode
	Message string
}

func (e *ServiceError) Error() string { return e.Message }

func NewInvalidError(msg string) error   { return &ServiceError{Code: ErrorInvalid, Message: msg} }
func NewForbiddenError(msg string) error { return &ServiceError{Code: ErrorForbidden, Message: msg} }
func NewNotFoundError(msg string) error  { return &ServiceError{Code: ErrorNotFound, Message: msg} }
func NewConflictError(msg string) error  { return &ServiceError{Code: ErrorConflict, Message: msg} }
func NewUnauthorizedError(msg string) error {
	return &ServiceError{Code: ErrorUnauthorized, Message: msg}
}
func NewLockedError(msg string) error { return &ServiceError{Code: ErrorLocked, Message: msg} }

func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// StudyStore abstracts persistence operations required by StudyService.
type StudyStore interface {
	InsertStudy(st *Study) error
	GetStudy(id string) (*Study, error)
	UpdateStudy(st *Study) error
	DeleteStudy(id string) error
	ListStudiesByOwner(ownerID string) ([]*Study, error)
	CountCompletedParticipants(studyID string) (int, error)

	InsertCard(c *Card) error
	UpdateCard(c *Card) error
	DeleteCard(id string) error
	ListCards(studyID string) ([]*Card, error)
	ReorderCards(studyID string, order []string) (bool, error)

	InsertCategory(c *Category) error
	UpdateCategory(c *Category) error
	DeleteCategory(id string) error
	ListCategories(studyID string) ([]*Category, error)

	InsertTreeNode(n *TreeNode) error
	UpdateTreeNode(n *TreeNode) error
	DeleteTreeNode(id string) error
	ListTreeNodes(studyID string) ([]*TreeNode, error)
	ReorderTreeNodes(studyID string, order []string) (bool, error)

	InsertTask(t *Task) error
	UpdateTask(t *Task) error
	DeleteTask(id string) error
	ListTasks(studyID string) ([]*Task, error)
	ReorderTasks(studyID string, order []string) (bool, error)

	AddAudit(entry AuditEntry)
}

type StudyService struct {
	store StudyStore
	now   func() time.Time
}

func NewStudyService(store StudyStore) *StudyService {
	return &StudyService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func shortID(n int) string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:n]
}

func (s *StudyService) CreateStudy(ownerID string, st *Study) (*Study, error) {
	if ownerID == "" {
		return nil, NewUnauthorizedError("unauthorized")
	}
	if st == nil || strings.TrimSpace(st.Title) == "" {
		return nil, NewInvalidError("title required")
	}
	switch st.Type {
	case StudyCardSorting, StudyTreeTesting, StudyFirstClick:
	default:
		return nil, NewInvalidError("unknown study type")
	}
	if st.Type == StudyCardSorting {
		switch st.SortingType {
		case SortOpen, SortClosed, SortHybrid:
		case "":
			st.SortingType = SortClosed
		default:
			return nil, NewInvalidError("unknown sorting type")
		}
	} else {
		st.SortingType = ""
	}
	if st.ID == "" {
		st.ID = shortID(8)
	}
	st.OwnerID = ownerID
	st.Status = StatusDraft
	st.CreatedAt = s.now()
	if err := s.store.InsertStudy(st); err != nil {
		return nil, err
	}
	s.store.AddAudit(AuditEntry{Time: s.now(), Actor: ownerID, Action: "create_study", Target: st.ID})
	return st, nil
}

func (s *StudyService) GetStudy(id string) (*Study, error) {
	st, err := s.store.GetStudy(id)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, NewNotFoundError("study not found")
	}
	return st, nil
}

func (s *StudyService) ListStudies(ownerID string) ([]*Study, error) {
	if ownerID == "" {
		return nil, NewUnauthorizedError("unauthorized")
	}
	return s.store.ListStudiesByOwner(ownerID)
}

// ownedStudy loads a study and checks researcher ownership.
func (s *StudyService) ownedStudy(ownerID, studyID string) (*Study, error) {
	st, err := s.store.GetStudy(studyID)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, NewNotFoundError("study not found")
	}
	if st.OwnerID != ownerID {
		return nil, NewForbiddenError("forbidden")
	}
	return st, nil
}

// editableStudy additionally enforces the content-integrity lock: structure is
// frozen while the study is ACTIVE, and stays frozen once a CLOSED study has
// at least one completed response, so stored results are never scored against
// a since-changed card/category/tree/task set.
func (s *StudyService) editableStudy(ownerID, studyID string) (*Study, error) {
	st, err := s.ownedStudy(ownerID, studyID)
	if err != nil {
		return nil, err
	}
	switch st.Status {
	case StatusActive:
		return nil, NewLockedError("study is active; content is locked")
	case StatusClosed:
		n, err := s.store.CountCompletedParticipants(studyID)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			return nil, NewLockedError("study has completed responses; content is locked")
		}
	}
	return st, nil
}

func (s *StudyService) UpdateStudy(ownerID, studyID string, title, description, imageURL *string) (*Study, error) {
	st, err := s.ownedStudy(ownerID, studyID)
	if err != nil {
		return nil, err
	}
	if title != nil {
		if strings.TrimSpace(*title) == "" {
			return nil, NewInvalidError("title required")
		}
		st.Title = *title
	}
	if description != nil {
		st.Description = *description
	}
	if imageURL != nil {
		st.ImageURL = *imageURL
	}
	if err := s.store.UpdateStudy(st); err != nil {
		return nil, err
	}
	return st, nil
}

// SetStatus moves a study through DRAFT -> ACTIVE -> CLOSED. Reopening a
// CLOSED study is allowed; going back to DRAFT is not once it has launched.
func (s *StudyService) SetStatus(ownerID, studyID string, status StudyStatus) (*Study, error) {
	st, err := s.ownedStudy(ownerID, studyID)
	if err != nil {
		return nil, err
	}
	switch status {
	case StatusActive, StatusClosed:
	default:
		return nil, NewInvalidError("invalid status transition")
	}
	if st.Status == status {
		return st, nil
	}
	st.Status = status
	if err := s.store.UpdateStudy(st); err != nil {
		return nil, err
	}
	s.store.AddAudit(AuditEntry{Time: s.now(), Actor: ownerID, Action: "set_status", Target: studyID, Note: string(status)})
	return st, nil
}

func (s *StudyService) DeleteStudy(ownerID, studyID string) error {
	if _, err := s.ownedStudy(ownerID, studyID); err != nil {
		return err
	}
	if err := s.store.DeleteStudy(studyID); err != nil {
		return err
	}
	s.store.AddAudit(AuditEntry{Time: s.now(), Actor: ownerID, Action: "delete_study", Target: studyID})
	return nil
}

func (s *StudyService) Content(studyID string) (*StudyContent, error) {
	cards, err := s.store.ListCards(studyID)
	if err != nil {
		return nil, err
	}
	categories, err := s.store.ListCategories(studyID)
	if err != nil {
		return nil, err
	}
	nodes, err := s.store.ListTreeNodes(studyID)
	if err != nil {
		return nil, err
	}
	tasks, err := s.store.ListTasks(studyID)
	if err != nil {
		return nil, err
	}
	return &StudyContent{Cards: cards, Categories: categories, TreeNodes: nodes, Tasks: tasks}, nil
}

func (s *StudyService) AddCard(ownerID, studyID, label string) (*Card, error) {
	if _, err := s.editableStudy(ownerID, studyID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(label) == "" {
		return nil, NewInvalidError("label required")
	}
	existing, err := s.store.ListCards(studyID)
	if err != nil {
		return nil, err
	}
	c := &Card{ID: shortID(8), StudyID: studyID, Label: label, Order: len(existing)}
	if err := s.store.InsertCard(c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *StudyService) UpdateCard(ownerID, studyID string, card *Card) error {
	if _, err := s.editableStudy(ownerID, studyID); err != nil {
		return err
	}
	if card == nil || card.ID == "" || strings.TrimSpace(card.Label) == "" {
		return NewInvalidError("card id and label required")
	}
	card.StudyID = studyID
	return s.store.UpdateCard(card)
}

func (s *StudyService) DeleteCard(ownerID, studyID, cardID string) error {
	if _, err := s.editableStudy(ownerID, studyID); err != nil {
		return err
	}
	return s.store.DeleteCard(cardID)
}

// ReorderCards persists a full new card order in one batch call. The store is
// not required to apply it atomically; a partial failure leaves order values
// inconsistent until the next successful reorder.
func (s *StudyService) ReorderCards(ownerID, studyID string, order []string) (int, error) {
	if _, err := s.editableStudy(ownerID, studyID); err != nil {
		return 0, err
	}
	if len(order) == 0 {
		return 0, NewInvalidError("order required")
	}
	ok, err := s.store.ReorderCards(studyID, order)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, NewInvalidError("reorder failed")
	}
	return len(order), nil
}

func (s *StudyService) AddCategory(ownerID, studyID, name string) (*Category, error) {
	if _, err := s.editableStudy(ownerID, studyID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, NewInvalidError("name required")
	}
	existing, err := s.store.ListCategories(studyID)
	if err != nil {
		return nil, err
	}
	for _, c := range existing {
		if c.Name == name {
			return nil, NewConflictError("category name exists")
		}
	}
	c := &Category{ID: shortID(8), StudyID: studyID, Name: name, Order: len(existing)}
	if err := s.store.InsertCategory(c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *StudyService) UpdateCategory(ownerID, studyID string, category *Category) error {
	if _, err := s.editableStudy(ownerID, studyID); err != nil {
		return err
	}
	if category == nil || category.ID == "" || strings.TrimSpace(category.Name) == "" {
		return NewInvalidError("category id and name required")
	}
	category.StudyID = studyID
	return s.store.UpdateCategory(category)
}

func (s *StudyService) DeleteCategory(ownerID, studyID, categoryID string) error {
	if _, err := s.editableStudy(ownerID, studyID); err != nil {
		return err
	}
	return s.store.DeleteCategory(categoryID)
}

func (s *StudyService) AddTreeNode(ownerID, studyID, label, parentID string) (*TreeNode, error) {
	if _, err := s.editableStudy(ownerID, studyID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(label) == "" {
		return nil, NewInvalidError("label required")
	}
	nodes, err := s.store.ListTreeNodes(studyID)
	if err != nil {
		return nil, err
	}
	if parentID != "" && findNode(nodes, parentID) == nil {
		return nil, NewInvalidError("parent node not found")
	}
	n := &TreeNode{ID: shortID(8), StudyID: studyID, Label: label, ParentID: parentID, Order: countSiblings(nodes, parentID)}
	if err := s.store.InsertTreeNode(n); err != nil {
		return nil, err
	}
	return n, nil
}

// UpdateTreeNode may relabel or reparent a node. Reparenting is rejected when
// the new parent is the node itself or one of its descendants, which keeps the
// forest acyclic by construction.
func (s *StudyService) UpdateTreeNode(ownerID, studyID string, node *TreeNode) error {
	if _, err := s.editableStudy(ownerID, studyID); err != nil {
		return err
	}
	if node == nil || node.ID == "" || strings.TrimSpace(node.Label) == "" {
		return NewInvalidError("node id and label required")
	}
	nodes, err := s.store.ListTreeNodes(studyID)
	if err != nil {
		return err
	}
	if node.ParentID != "" {
		if node.ParentID == node.ID {
			return NewInvalidError("node cannot be its own parent")
		}
		parent := findNode(nodes, node.ParentID)
		if parent == nil {
			return NewInvalidError("parent node not found")
		}
		// Walk up from the new parent; hitting the node means a cycle.
		for anc := parent; anc != nil; anc = findNode(nodes, anc.ParentID) {
			if anc.ID == node.ID {
				return NewInvalidError("reparenting would create a cycle")
			}
		}
	}
	node.StudyID = studyID
	return s.store.UpdateTreeNode(node)
}

func (s *StudyService) DeleteTreeNode(ownerID, studyID, nodeID string) error {
	if _, err := s.editableStudy(ownerID, studyID); err != nil {
		return err
	}
	return s.store.DeleteTreeNode(nodeID)
}

func (s *StudyService) ReorderTreeNodes(ownerID, studyID string, order []string) (int, error) {
	if _, err := s.editableStudy(ownerID, studyID); err != nil {
		return 0, err
	}
	if len(order) == 0 {
		return 0, NewInvalidError("order required")
	}
	ok, err := s.store.ReorderTreeNodes(studyID, order)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, NewInvalidError("reorder failed")
	}
	return len(order), nil
}

const (
	minDisplayTimeSeconds = 3
	maxDisplayTimeSeconds = 12
)

func (s *StudyService) AddTask(ownerID, studyID string, task *Task) (*Task, error) {
	st, err := s.editableStudy(ownerID, studyID)
	if err != nil {
		return nil, err
	}
	if task == nil || strings.TrimSpace(task.Question) == "" {
		return nil, NewInvalidError("question required")
	}
	if err := validateTask(st, task, s.store); err != nil {
		return nil, err
	}
	existing, err := s.store.ListTasks(studyID)
	if err != nil {
		return nil, err
	}
	task.ID = shortID(8)
	task.StudyID = studyID
	task.Order = len(existing)
	if err := s.store.InsertTask(task); err != nil {
		return nil, err
	}
	return task, nil
}

// UpdateTask edits a task in place. Changing CorrectNodeID after responses
// exist is only possible while the content lock allows edits at all; stored
// results keep the correctness they were scored with.
func (s *StudyService) UpdateTask(ownerID, studyID string, task *Task) error {
	st, err := s.editableStudy(ownerID, studyID)
	if err != nil {
		return err
	}
	if task == nil || task.ID == "" || strings.TrimSpace(task.Question) == "" {
		return NewInvalidError("task id and question required")
	}
	if err := validateTask(st, task, s.store); err != nil {
		return err
	}
	task.StudyID = studyID
	return s.store.UpdateTask(task)
}

func (s *StudyService) DeleteTask(ownerID, studyID, taskID string) error {
	if _, err := s.editableStudy(ownerID, studyID); err != nil {
		return err
	}
	return s.store.DeleteTask(taskID)
}

func (s *StudyService) ReorderTasks(ownerID, studyID string, order []string) (int, error) {
	if _, err := s.editableStudy(ownerID, studyID); err != nil {
		return 0, err
	}
	if len(order) == 0 {
		return 0, NewInvalidError("order required")
	}
	ok, err := s.store.ReorderTasks(studyID, order)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, NewInvalidError("reorder failed")
	}
	return len(order), nil
}

func validateTask(st *Study, task *Task, store StudyStore) error {
	switch st.Type {
	case StudyTreeTesting:
		if task.CorrectNodeID != "" {
			nodes, err := store.ListTreeNodes(st.ID)
			if err != nil {
				return err
			}
			if findNode(nodes, task.CorrectNodeID) == nil {
				return NewInvalidError("correct node not found")
			}
		}
	case StudyFirstClick:
		if task.DisplayTimeSeconds == 0 {
			task.DisplayTimeSeconds = 5
		}
		if task.DisplayTimeSeconds < minDisplayTimeSeconds || task.DisplayTimeSeconds > maxDisplayTimeSeconds {
			return NewInvalidError("display time must be between " +
				strconv.Itoa(minDisplayTimeSeconds) + " and " + strconv.Itoa(maxDisplayTimeSeconds) + " seconds")
		}
	}
	return nil
}

func findNode(nodes []*TreeNode, id string) *TreeNode {
	if id == "" {
		return nil
	}
	for _, n := range nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

func countSiblings(nodes []*TreeNode, parentID string) int {
	n := 0
	for _, node := range nodes {
		if node.ParentID == parentID {
			n++
		}
	}
	return n
}
