package api

import "time"

// Store is the persistence surface the router and service adapters sit on.
// Implementations are the in-memory store below and the SQLite store in
// internal/db.
type Store interface {
	AddStudy(st *Study)
	UpdateStudy(st *Study) bool
	DeleteStudy(id string) bool
	GetStudy(id string) *Study
	ListStudiesByOwner(ownerID string) []*Study

	AddCard(c *Card)
	UpdateCard(c *Card) bool
	DeleteCard(id string) bool
	ListCards(studyID string) []*Card
	ReorderCards(studyID string, order []string) bool

	AddCategory(c *Category)
	UpdateCategory(c *Category) bool
	DeleteCategory(id string) bool
	ListCategories(studyID string) []*Category

	AddTreeNode(n *TreeNode)
	UpdateTreeNode(n *TreeNode) bool
	DeleteTreeNode(id string) bool
	ListTreeNodes(studyID string) []*TreeNode
	ReorderTreeNodes(studyID string, order []string) bool

	AddTask(t *Task)
	UpdateTask(t *Task) bool
	DeleteTask(id string) bool
	ListTasks(studyID string) []*Task
	ReorderTasks(studyID string, order []string) bool

	AddParticipant(p *Participant)
	GetParticipant(id string) *Participant
	ListParticipants(studyID string) []*Participant
	DeleteParticipant(id string) bool
	CompleteParticipant(id string, at time.Time) bool
	CountCompletedParticipants(studyID string) int

	ReplaceCardSortResults(pid string, rows []*CardSortResult)
	ReplaceTreeTestResults(pid string, rows []*TreeTestResult)
	ReplaceClickResults(pid string, rows []*ClickResult)
	ListCardSortResults(pid string) []*CardSortResult
	ListTreeTestResults(pid string) []*TreeTestResult
	ListClickResults(pid string) []*ClickResult

	AddUser(u *User)
	FindUserByEmail(email string) *User

	AddAudit(e AuditEntry)
	ListAudit() []AuditEntry
}

var _ Store = (*memoryStore)(nil)
