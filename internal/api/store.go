package api

import (
	"sort"
	"sync"
	"time"
)

type Study struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Type        string    `json:"type"`
	Status      string    `json:"status"`
	SortingType string    `json:"sorting_type,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type Card struct {
	ID      string `json:"id"`
	StudyID string `json:"study_id"`
	Label   string `json:"label"`
	Order   int    `json:"order"`
}

type Category struct {
	ID            string `json:"id"`
	StudyID       string `json:"study_id"`
	Name          string `json:"name"`
	IsUserCreated bool   `json:"is_user_created,omitempty"`
	Order         int    `json:"order"`
}

type TreeNode struct {
	ID       string `json:"id"`
	StudyID  string `json:"study_id"`
	Label    string `json:"label"`
	ParentID string `json:"parent_id,omitempty"`
	Order    int    `json:"order"`
}

type Task struct {
	ID                 string `json:"id"`
	StudyID            string `json:"study_id"`
	Question           string `json:"question"`
	CorrectNodeID      string `json:"correct_node_id,omitempty"`
	ImageURL           string `json:"image_url,omitempty"`
	DisplayTimeSeconds int    `json:"display_time_seconds,omitempty"`
	Order              int    `json:"order"`
}

type Participant struct {
	ID          string     `json:"id"`
	StudyID     string     `json:"study_id"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type CardSortResult struct {
	ParticipantID        string `json:"participant_id"`
	CardID               string `json:"card_id"`
	CategoryID           string `json:"category_id,omitempty"`
	CategoryName         string `json:"category_name"`
	OriginalCategoryName string `json:"original_category_name,omitempty"`
}

type TreeTestResult struct {
	ParticipantID  string   `json:"participant_id"`
	TaskID         string   `json:"task_id"`
	SelectedPath   []string `json:"selected_path,omitempty"`
	SelectedNodeID string   `json:"selected_node_id,omitempty"`
	IsCorrect      bool     `json:"is_correct"`
	TimeSpentMs    int64    `json:"time_spent_ms"`
}

type ClickResult struct {
	ParticipantID string  `json:"participant_id"`
	TaskID        string  `json:"task_id,omitempty"`
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	TimeToClickMs int64   `json:"time_to_click_ms"`
	Timeout       bool    `json:"timeout,omitempty"`
}

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	PassHash  []byte    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

type AuditEntry struct {
	Time   time.Time `json:"time"`
	Actor  string    `json:"actor"`
	Action string    `json:"action"`
	Target string    `json:"target"`
	Note   string    `json:"note,omitempty"`
}

type memoryStore struct {
	mu            sync.RWMutex
	studies       map[string]*Study
	cards         map[string][]*Card
	categories    map[string][]*Category
	treeNodes     map[string][]*TreeNode
	tasks         map[string][]*Task
	participants  map[string]*Participant
	participantsB map[string][]string // study -> participant ids, insertion order
	cardSorts     map[string][]*CardSortResult
	treeTests     map[string][]*TreeTestResult
	clicks        map[string][]*ClickResult
	usersByEmail  map[string]*User
	audit         []AuditEntry
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		studies:       map[string]*Study{},
		cards:         map[string][]*Card{},
		categories:    map[string][]*Category{},
		treeNodes:     map[string][]*TreeNode{},
		tasks:         map[string][]*Task{},
		participants:  map[string]*Participant{},
		participantsB: map[string][]string{},
		cardSorts:     map[string][]*CardSortResult{},
		treeTests:     map[string][]*TreeTestResult{},
		clicks:        map[string][]*ClickResult{},
		usersByEmail:  map[string]*User{},
	}
}

func (s *memoryStore) AddStudy(st *Study) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.studies[st.ID] = st
}

func (s *memoryStore) UpdateStudy(st *Study) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.studies[st.ID]; !ok {
		return false
	}
	s.studies[st.ID] = st
	return true
}

func (s *memoryStore) DeleteStudy(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.studies[id]; !ok {
		return false
	}
	delete(s.studies, id)
	delete(s.cards, id)
	delete(s.categories, id)
	delete(s.treeNodes, id)
	delete(s.tasks, id)
	for _, pid := range s.participantsB[id] {
		delete(s.participants, pid)
		delete(s.cardSorts, pid)
		delete(s.treeTests, pid)
		delete(s.clicks, pid)
	}
	delete(s.participantsB, id)
	return true
}

func (s *memoryStore) GetStudy(id string) *Study {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.studies[id]
}

func (s *memoryStore) ListStudiesByOwner(ownerID string) []*Study {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*Study{}
	for _, st := range s.studies {
		if st.OwnerID == ownerID {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *memoryStore) AddCard(c *Card) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cards[c.StudyID] = append(s.cards[c.StudyID], c)
}

func (s *memoryStore) UpdateCard(c *Card) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, old := range s.cards[c.StudyID] {
		if old.ID == c.ID {
			c.Order = old.Order
			s.cards[c.StudyID][i] = c
			return true
		}
	}
	return false
}

func (s *memoryStore) DeleteCard(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sid, cs := range s.cards {
		for i, c := range cs {
			if c.ID == id {
				s.cards[sid] = append(cs[:i], cs[i+1:]...)
				return true
			}
		}
	}
	return false
}

func (s *memoryStore) ListCards(studyID string) []*Card {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]*Card(nil), s.cards[studyID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

func (s *memoryStore) ReorderCards(studyID string, order []string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cs := s.cards[studyID]
	if len(order) != len(cs) {
		return false
	}
	byID := make(map[string]*Card, len(cs))
	for _, c := range cs {
		byID[c.ID] = c
	}
	for i, id := range order {
		c, ok := byID[id]
		if !ok {
			return false
		}
		c.Order = i
	}
	return true
}

func (s *memoryStore) AddCategory(c *Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[c.StudyID] = append(s.categories[c.StudyID], c)
}

func (s *memoryStore) UpdateCategory(c *Category) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, old := range s.categories[c.StudyID] {
		if old.ID == c.ID {
			c.Order = old.Order
			s.categories[c.StudyID][i] = c
			return true
		}
	}
	return false
}

func (s *memoryStore) DeleteCategory(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sid, cs := range s.categories {
		for i, c := range cs {
			if c.ID == id {
				s.categories[sid] = append(cs[:i], cs[i+1:]...)
				return true
			}
		}
	}
	return false
}

func (s *memoryStore) ListCategories(studyID string) []*Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]*Category(nil), s.categories[studyID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

func (s *memoryStore) AddTreeNode(n *TreeNode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.treeNodes[n.StudyID] = append(s.treeNodes[n.StudyID], n)
}

func (s *memoryStore) UpdateTreeNode(n *TreeNode) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, old := range s.treeNodes[n.StudyID] {
		if old.ID == n.ID {
			n.Order = old.Order
			s.treeNodes[n.StudyID][i] = n
			return true
		}
	}
	return false
}

func (s *memoryStore) DeleteTreeNode(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sid, ns := range s.treeNodes {
		for i, n := range ns {
			if n.ID == id {
				s.treeNodes[sid] = append(ns[:i], ns[i+1:]...)
				// Orphaned children become roots rather than dangling.
				for _, child := range s.treeNodes[sid] {
					if child.ParentID == id {
						child.ParentID = ""
					}
				}
				return true
			}
		}
	}
	return false
}

func (s *memoryStore) ListTreeNodes(studyID string) []*TreeNode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]*TreeNode(nil), s.treeNodes[studyID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

func (s *memoryStore) ReorderTreeNodes(studyID string, order []string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	byID := make(map[string]*TreeNode, len(s.treeNodes[studyID]))
	for _, n := range s.treeNodes[studyID] {
		byID[n.ID] = n
	}
	for i, id := range order {
		n, ok := byID[id]
		if !ok {
			return false
		}
		n.Order = i
	}
	return true
}

func (s *memoryStore) AddTask(t *Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.StudyID] = append(s.tasks[t.StudyID], t)
}

func (s *memoryStore) UpdateTask(t *Task) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, old := range s.tasks[t.StudyID] {
		if old.ID == t.ID {
			t.Order = old.Order
			s.tasks[t.StudyID][i] = t
			return true
		}
	}
	return false
}

func (s *memoryStore) DeleteTask(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sid, ts := range s.tasks {
		for i, t := range ts {
			if t.ID == id {
				s.tasks[sid] = append(ts[:i], ts[i+1:]...)
				return true
			}
		}
	}
	return false
}

func (s *memoryStore) ListTasks(studyID string) []*Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]*Task(nil), s.tasks[studyID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

func (s *memoryStore) ReorderTasks(studyID string, order []string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	byID := make(map[string]*Task, len(s.tasks[studyID]))
	for _, t := range s.tasks[studyID] {
		byID[t.ID] = t
	}
	for i, id := range order {
		t, ok := byID[id]
		if !ok {
			return false
		}
		t.Order = i
	}
	return true
}

func (s *memoryStore) AddParticipant(p *Participant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.participants[p.ID] = p
	s.participantsB[p.StudyID] = append(s.participantsB[p.StudyID], p.ID)
}

func (s *memoryStore) GetParticipant(id string) *Participant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.participants[id]
}

func (s *memoryStore) ListParticipants(studyID string) []*Participant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Participant, 0, len(s.participantsB[studyID]))
	for _, pid := range s.participantsB[studyID] {
		if p := s.participants[pid]; p != nil {
			out = append(out, p)
		}
	}
	return out
}

func (s *memoryStore) DeleteParticipant(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[id]
	if !ok {
		return false
	}
	delete(s.participants, id)
	delete(s.cardSorts, id)
	delete(s.treeTests, id)
	delete(s.clicks, id)
	ids := s.participantsB[p.StudyID]
	for i, pid := range ids {
		if pid == id {
			s.participantsB[p.StudyID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return true
}

func (s *memoryStore) CompleteParticipant(id string, at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[id]
	if !ok {
		return false
	}
	p.CompletedAt = &at
	return true
}

func (s *memoryStore) CountCompletedParticipants(studyID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, pid := range s.participantsB[studyID] {
		if p := s.participants[pid]; p != nil && p.CompletedAt != nil {
			n++
		}
	}
	return n
}

func (s *memoryStore) ReplaceCardSortResults(pid string, rows []*CardSortResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cardSorts[pid] = rows
}

func (s *memoryStore) ReplaceTreeTestResults(pid string, rows []*TreeTestResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.treeTests[pid] = rows
}

func (s *memoryStore) ReplaceClickResults(pid string, rows []*ClickResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clicks[pid] = rows
}

func (s *memoryStore) ListCardSortResults(pid string) []*CardSortResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*CardSortResult(nil), s.cardSorts[pid]...)
}

func (s *memoryStore) ListTreeTestResults(pid string) []*TreeTestResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*TreeTestResult(nil), s.treeTests[pid]...)
}

func (s *memoryStore) ListClickResults(pid string) []*ClickResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*ClickResult(nil), s.clicks[pid]...)
}

func (s *memoryStore) AddUser(u *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usersByEmail[u.Email] = u
}

func (s *memoryStore) FindUserByEmail(email string) *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.usersByEmail[email]
}

func (s *memoryStore) AddAudit(e AuditEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, e)
}

func (s *memoryStore) ListAudit() []AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]AuditEntry(nil), s.audit...)
}
