package services

import (
	"testing"
)

type studyStubStore struct {
	studies    map[string]*Study
	cards      map[string][]*Card
	categories map[string][]*Category
	nodes      map[string][]*TreeNode
	tasks      map[string][]*Task
	completed  int
	audits     []AuditEntry
	reorders   [][]string
}

func newStudyStubStore() *studyStubStore {
	return &studyStubStore{
		studies:    map[string]*Study{},
		cards:      map[string][]*Card{},
		categories: map[string][]*Category{},
		nodes:      map[string][]*TreeNode{},
		tasks:      map[string][]*Task{},
	}
}

func (s *studyStubStore) InsertStudy(st *Study) error { s.studies[st.ID] = st; return nil }
func (s *studyStubStore) GetStudy(id string) (*Study, error) {
	return s.studies[id], nil
}
func (s *studyStubStore) UpdateStudy(st *Study) error { s.studies[st.ID] = st; return nil }
func (s *studyStubStore) DeleteStudy(id string) error { delete(s.studies, id); return nil }
func (s *studyStubStore) ListStudiesByOwner(ownerID string) ([]*Study, error) {
	out := []*Study{}
	for _, st := range s.studies {
		if st.OwnerID == ownerID {
			out = append(out, st)
		}
	}
	return out, nil
}
func (s *studyStubStore) CountCompletedParticipants(studyID string) (int, error) {
	return s.completed, nil
}

func (s *studyStubStore) InsertCard(c *Card) error {
	s.cards[c.StudyID] = append(s.cards[c.StudyID], c)
	return nil
}
func (s *studyStubStore) UpdateCard(c *Card) error { return nil }
func (s *studyStubStore) DeleteCard(id string) error {
	for sid, cs := range s.cards {
		for i, c := range cs {
			if c.ID == id {
				s.cards[sid] = append(cs[:i], cs[i+1:]...)
				return nil
			}
		}
	}
	return nil
}
func (s *studyStubStore) ListCards(studyID string) ([]*Card, error) { return s.cards[studyID], nil }
func (s *studyStubStore) ReorderCards(studyID string, order []string) (bool, error) {
	s.reorders = append(s.reorders, order)
	return len(order) == len(s.cards[studyID]), nil
}

func (s *studyStubStore) InsertCategory(c *Category) error {
	s.categories[c.StudyID] = append(s.categories[c.StudyID], c)
	return nil
}
func (s *studyStubStore) UpdateCategory(c *Category) error { return nil }
func (s *studyStubStore) DeleteCategory(id string) error   { return nil }
func (s *studyStubStore) ListCategories(studyID string) ([]*Category, error) {
	return s.categories[studyID], nil
}

func (s *studyStubStore) InsertTreeNode(n *TreeNode) error {
	s.nodes[n.StudyID] = append(s.nodes[n.StudyID], n)
	return nil
}
func (s *studyStubStore) UpdateTreeNode(n *TreeNode) error { return nil }
func (s *studyStubStore) DeleteTreeNode(id string) error   { return nil }
func (s *studyStubStore) ListTreeNodes(studyID string) ([]*TreeNode, error) {
	return s.nodes[studyID], nil
}
func (s *studyStubStore) ReorderTreeNodes(studyID string, order []string) (bool, error) {
	return true, nil
}

func (s *studyStubStore) InsertTask(t *Task) error {
	s.tasks[t.StudyID] = append(s.tasks[t.StudyID], t)
	return nil
}
func (s *studyStubStore) UpdateTask(t *Task) error { return nil }
func (s *studyStubStore) DeleteTask(id string) error {
	return nil
}
func (s *studyStubStore) ListTasks(studyID string) ([]*Task, error) { return s.tasks[studyID], nil }
func (s *studyStubStore) ReorderTasks(studyID string, order []string) (bool, error) {
	return true, nil
}

func (s *studyStubStore) AddAudit(entry AuditEntry) { s.audits = append(s.audits, entry) }

func TestCreateStudyDefaults(t *testing.T) {
	store := newStudyStubStore()
	svc := NewStudyService(store)
	st, err := svc.CreateStudy("u1", &Study{Title: "Groceries", Type: StudyCardSorting})
	if err != nil {
		t.Fatalf("CreateStudy: %v", err)
	}
	if st.Status != StatusDraft {
		t.Fatalf("status = %q, want DRAFT", st.Status)
	}
	if st.SortingType != SortClosed {
		t.Fatalf("sorting type = %q, want CLOSED default", st.SortingType)
	}
	if len(st.ID) != 8 {
		t.Fatalf("id = %q", st.ID)
	}
	if len(store.audits) != 1 || store.audits[0].Action != "create_study" {
		t.Fatalf("audits = %+v", store.audits)
	}
}

func TestCreateStudyValidation(t *testing.T) {
	svc := NewStudyService(newStudyStubStore())
	if _, err := svc.CreateStudy("u1", &Study{Title: "x", Type: "SURVEY"}); err == nil {
		t.Fatalf("unknown type accepted")
	}
	if _, err := svc.CreateStudy("u1", &Study{Type: StudyCardSorting}); err == nil {
		t.Fatalf("empty title accepted")
	}
	if _, err := svc.CreateStudy("", &Study{Title: "x", Type: StudyCardSorting}); err == nil {
		t.Fatalf("anonymous create accepted")
	}
	st, err := svc.CreateStudy("u1", &Study{Title: "Nav", Type: StudyTreeTesting, SortingType: SortOpen})
	if err != nil {
		t.Fatalf("CreateStudy: %v", err)
	}
	if st.SortingType != "" {
		t.Fatalf("non-card-sort study kept a sorting type: %q", st.SortingType)
	}
}

func TestContentLockWhileActive(t *testing.T) {
	store := newStudyStubStore()
	svc := NewStudyService(store)
	st, err := svc.CreateStudy("u1", &Study{Title: "Groceries", Type: StudyCardSorting})
	if err != nil {
		t.Fatalf("CreateStudy: %v", err)
	}
	if _, err := svc.AddCard("u1", st.ID, "Apple"); err != nil {
		t.Fatalf("AddCard on draft: %v", err)
	}
	if _, err := svc.SetStatus("u1", st.ID, StatusActive); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	_, err = svc.AddCard("u1", st.ID, "Carrot")
	if err == nil {
		t.Fatalf("content edit allowed while active")
	}
	if se, ok := AsServiceError(err); !ok || se.Code != ErrorLocked {
		t.Fatalf("error = %v, want locked", err)
	}
	// Metadata edits stay allowed.
	title := "Groceries v2"
	if _, err := svc.UpdateStudy("u1", st.ID, &title, nil, nil); err != nil {
		t.Fatalf("UpdateStudy while active: %v", err)
	}
}

func TestContentLockAfterCompletedResponses(t *testing.T) {
	store := newStudyStubStore()
	svc := NewStudyService(store)
	st, _ := svc.CreateStudy("u1", &Study{Title: "Groceries", Type: StudyCardSorting})
	svc.SetStatus("u1", st.ID, StatusActive)
	svc.SetStatus("u1", st.ID, StatusClosed)

	store.completed = 0
	if _, err := svc.AddCard("u1", st.ID, "Apple"); err != nil {
		t.Fatalf("closed study with no responses should be editable: %v", err)
	}
	store.completed = 3
	if _, err := svc.AddCard("u1", st.ID, "Carrot"); err == nil {
		t.Fatalf("content edit allowed with completed responses")
	}
}

func TestStudyOwnership(t *testing.T) {
	store := newStudyStubStore()
	svc := NewStudyService(store)
	st, _ := svc.CreateStudy("u1", &Study{Title: "Groceries", Type: StudyCardSorting})
	if _, err := svc.AddCard("u2", st.ID, "Apple"); err == nil {
		t.Fatalf("foreign owner allowed to edit")
	}
	if err := svc.DeleteStudy("u2", st.ID); err == nil {
		t.Fatalf("foreign owner allowed to delete")
	}
}

func TestAddCategoryRejectsDuplicateName(t *testing.T) {
	store := newStudyStubStore()
	svc := NewStudyService(store)
	st, _ := svc.CreateStudy("u1", &Study{Title: "Groceries", Type: StudyCardSorting})
	if _, err := svc.AddCategory("u1", st.ID, "Fruits"); err != nil {
		t.Fatalf("AddCategory: %v", err)
	}
	_, err := svc.AddCategory("u1", st.ID, "Fruits")
	if se, ok := AsServiceError(err); !ok || se.Code != ErrorConflict {
		t.Fatalf("duplicate category err = %v, want conflict", err)
	}
}

func TestAddTreeNodeParentAndOrder(t *testing.T) {
	store := newStudyStubStore()
	svc := NewStudyService(store)
	st, _ := svc.CreateStudy("u1", &Study{Title: "Nav", Type: StudyTreeTesting})
	root, err := svc.AddTreeNode("u1", st.ID, "Home", "")
	if err != nil {
		t.Fatalf("AddTreeNode: %v", err)
	}
	a, _ := svc.AddTreeNode("u1", st.ID, "Products", root.ID)
	b, _ := svc.AddTreeNode("u1", st.ID, "Support", root.ID)
	if a.Order != 0 || b.Order != 1 {
		t.Fatalf("sibling orders = %d,%d", a.Order, b.Order)
	}
	if _, err := svc.AddTreeNode("u1", st.ID, "Orphan", "ghost"); err == nil {
		t.Fatalf("missing parent accepted")
	}
}

func TestUpdateTreeNodeRejectsCycles(t *testing.T) {
	store := newStudyStubStore()
	svc := NewStudyService(store)
	st, _ := svc.CreateStudy("u1", &Study{Title: "Nav", Type: StudyTreeTesting})
	root, _ := svc.AddTreeNode("u1", st.ID, "Home", "")
	child, _ := svc.AddTreeNode("u1", st.ID, "Products", root.ID)
	grand, _ := svc.AddTreeNode("u1", st.ID, "Laptops", child.ID)

	if err := svc.UpdateTreeNode("u1", st.ID, &TreeNode{ID: root.ID, Label: "Home", ParentID: grand.ID}); err == nil {
		t.Fatalf("reparenting under own descendant accepted")
	}
	if err := svc.UpdateTreeNode("u1", st.ID, &TreeNode{ID: child.ID, Label: "Products", ParentID: child.ID}); err == nil {
		t.Fatalf("self-parenting accepted")
	}
	if err := svc.UpdateTreeNode("u1", st.ID, &TreeNode{ID: grand.ID, Label: "Laptops", ParentID: root.ID}); err != nil {
		t.Fatalf("legal reparent rejected: %v", err)
	}
}

func TestTaskDisplayTimeValidation(t *testing.T) {
	store := newStudyStubStore()
	svc := NewStudyService(store)
	st, _ := svc.CreateStudy("u1", &Study{Title: "Landing", Type: StudyFirstClick})
	task, err := svc.AddTask("u1", st.ID, &Task{Question: "Where?"})
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	if task.DisplayTimeSeconds != 5 {
		t.Fatalf("display time default = %d, want 5", task.DisplayTimeSeconds)
	}
	if _, err := svc.AddTask("u1", st.ID, &Task{Question: "Where?", DisplayTimeSeconds: 2}); err == nil {
		t.Fatalf("display time 2 accepted")
	}
	if _, err := svc.AddTask("u1", st.ID, &Task{Question: "Where?", DisplayTimeSeconds: 13}); err == nil {
		t.Fatalf("display time 13 accepted")
	}
}

func TestTaskCorrectNodeMustExist(t *testing.T) {
	store := newStudyStubStore()
	svc := NewStudyService(store)
	st, _ := svc.CreateStudy("u1", &Study{Title: "Nav", Type: StudyTreeTesting})
	node, _ := svc.AddTreeNode("u1", st.ID, "Home", "")
	if _, err := svc.AddTask("u1", st.ID, &Task{Question: "Find it", CorrectNodeID: "ghost"}); err == nil {
		t.Fatalf("missing correct node accepted")
	}
	if _, err := svc.AddTask("u1", st.ID, &Task{Question: "Find it", CorrectNodeID: node.ID}); err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	// Unscored tasks are fine.
	if _, err := svc.AddTask("u1", st.ID, &Task{Question: "Explore"}); err != nil {
		t.Fatalf("AddTask without answer key: %v", err)
	}
}

func TestReorderCards(t *testing.T) {
	store := newStudyStubStore()
	svc := NewStudyService(store)
	st, _ := svc.CreateStudy("u1", &Study{Title: "Groceries", Type: StudyCardSorting})
	a, _ := svc.AddCard("u1", st.ID, "Apple")
	b, _ := svc.AddCard("u1", st.ID, "Carrot")
	n, err := svc.ReorderCards("u1", st.ID, []string{b.ID, a.ID})
	if err != nil {
		t.Fatalf("ReorderCards: %v", err)
	}
	if n != 2 {
		t.Fatalf("reordered = %d", n)
	}
	if _, err := svc.ReorderCards("u1", st.ID, []string{a.ID}); err == nil {
		t.Fatalf("partial order accepted")
	}
	if _, err := svc.ReorderCards("u1", st.ID, nil); err == nil {
		t.Fatalf("empty order accepted")
	}
}

func TestSetStatusTransitions(t *testing.T) {
	store := newStudyStubStore()
	svc := NewStudyService(store)
	st, _ := svc.CreateStudy("u1", &Study{Title: "Groceries", Type: StudyCardSorting})
	if _, err := svc.SetStatus("u1", st.ID, StatusDraft); err == nil {
		t.Fatalf("transition back to draft accepted")
	}
	if _, err := svc.SetStatus("u1", st.ID, StatusActive); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if _, err := svc.SetStatus("u1", st.ID, StatusClosed); err != nil {
		t.Fatalf("close: %v", err)
	}
	// Reopening is allowed.
	if _, err := svc.SetStatus("u1", st.ID, StatusActive); err != nil {
		t.Fatalf("reopen: %v", err)
	}
}
