package api

import "github.com/uxlens/uxlens/internal/services"

type studyStoreAdapter struct {
	store Store
}

func newStudyStoreAdapter(store Store) services.StudyStore {
	return &studyStoreAdapter{store: store}
}

func (a *studyStoreAdapter) InsertStudy(st *services.Study) error {
	a.store.AddStudy(convertServiceStudy(st))
	return nil
}

func (a *studyStoreAdapter) GetStudy(id string) (*services.Study, error) {
	return convertAPIStudy(a.store.GetStudy(id)), nil
}

func (a *studyStoreAdapter) UpdateStudy(st *services.Study) error {
	if !a.store.UpdateStudy(convertServiceStudy(st)) {
		return services.NewNotFoundError("study not found")
	}
	return nil
}

func (a *studyStoreAdapter) DeleteStudy(id string) error {
	if !a.store.DeleteStudy(id) {
		return services.NewNotFoundError("study not found")
	}
	return nil
}

func (a *studyStoreAdapter) ListStudiesByOwner(ownerID string) ([]*services.Study, error) {
	studies := a.store.ListStudiesByOwner(ownerID)
	out := make([]*services.Study, 0, len(studies))
	for _, st := range studies {
		out = append(out, convertAPIStudy(st))
	}
	return out, nil
}

func (a *studyStoreAdapter) CountCompletedParticipants(studyID string) (int, error) {
	return a.store.CountCompletedParticipants(studyID), nil
}

func (a *studyStoreAdapter) InsertCard(c *services.Card) error {
	a.store.AddCard(convertServiceCard(c))
	return nil
}

func (a *studyStoreAdapter) UpdateCard(c *services.Card) error {
	if !a.store.UpdateCard(convertServiceCard(c)) {
		return services.NewNotFoundError("card not found")
	}
	return nil
}

func (a *studyStoreAdapter) DeleteCard(id string) error {
	if !a.store.DeleteCard(id) {
		return services.NewNotFoundError("card not found")
	}
	return nil
}

func (a *studyStoreAdapter) ListCards(studyID string) ([]*services.Card, error) {
	cards := a.store.ListCards(studyID)
	out := make([]*services.Card, 0, len(cards))
	for _, c := range cards {
		out = append(out, convertAPICard(c))
	}
	return out, nil
}

func (a *studyStoreAdapter) ReorderCards(studyID string, order []string) (bool, error) {
	return a.store.ReorderCards(studyID, order), nil
}

func (a *studyStoreAdapter) InsertCategory(c *services.Category) error {
	a.store.AddCategory(convertServiceCategory(c))
	return nil
}

func (a *studyStoreAdapter) UpdateCategory(c *services.Category) error {
	if !a.store.UpdateCategory(convertServiceCategory(c)) {
		return services.NewNotFoundError("category not found")
	}
	return nil
}

func (a *studyStoreAdapter) DeleteCategory(id string) error {
	if !a.store.DeleteCategory(id) {
		return services.NewNotFoundError("category not found")
	}
	return nil
}

func (a *studyStoreAdapter) ListCategories(studyID string) ([]*services.Category, error) {
	categories := a.store.ListCategories(studyID)
	out := make([]*services.Category, 0, len(categories))
	for _, c := range categories {
		out = append(out, convertAPICategory(c))
	}
	return out, nil
}

func (a *studyStoreAdapter) InsertTreeNode(n *services.TreeNode) error {
	a.store.AddTreeNode(convertServiceTreeNode(n))
	return nil
}

func (a *studyStoreAdapter) UpdateTreeNode(n *services.TreeNode) error {
	if !a.store.UpdateTreeNode(convertServiceTreeNode(n)) {
		return services.NewNotFoundError("node not found")
	}
	return nil
}

func (a *studyStoreAdapter) DeleteTreeNode(id string) error {
	if !a.store.DeleteTreeNode(id) {
		return services.NewNotFoundError("node not found")
	}
	return nil
}

func (a *studyStoreAdapter) ListTreeNodes(studyID string) ([]*services.TreeNode, error) {
	nodes := a.store.ListTreeNodes(studyID)
	out := make([]*services.TreeNode, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, convertAPITreeNode(n))
	}
	return out, nil
}

func (a *studyStoreAdapter) ReorderTreeNodes(studyID string, order []string) (bool, error) {
	return a.store.ReorderTreeNodes(studyID, order), nil
}

func (a *studyStoreAdapter) InsertTask(t *services.Task) error {
	a.store.AddTask(convertServiceTask(t))
	return nil
}

func (a *studyStoreAdapter) UpdateTask(t *services.Task) error {
	if !a.store.UpdateTask(convertServiceTask(t)) {
		return services.NewNotFoundError("task not found")
	}
	return nil
}

func (a *studyStoreAdapter) DeleteTask(id string) error {
	if !a.store.DeleteTask(id) {
		return services.NewNotFoundError("task not found")
	}
	return nil
}

func (a *studyStoreAdapter) ListTasks(studyID string) ([]*services.Task, error) {
	tasks := a.store.ListTasks(studyID)
	out := make([]*services.Task, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, convertAPITask(t))
	}
	return out, nil
}

func (a *studyStoreAdapter) ReorderTasks(studyID string, order []string) (bool, error) {
	return a.store.ReorderTasks(studyID, order), nil
}

func (a *studyStoreAdapter) AddAudit(entry services.AuditEntry) {
	a.store.AddAudit(convertServiceAudit(entry))
}

var _ services.StudyStore = (*studyStoreAdapter)(nil)
