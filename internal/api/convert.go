package api

import "github.com/uxlens/uxlens/internal/services"

func convertAPIStudy(st *Study) *services.Study {
	if st == nil {
		return nil
	}
	return &services.Study{
		ID:          st.ID,
		OwnerID:     st.OwnerID,
		Title:       st.Title,
		Description: st.Description,
		Type:        services.StudyType(st.Type),
		Status:      services.StudyStatus(st.Status),
		SortingType: services.SortingType(st.SortingType),
		ImageURL:    st.ImageURL,
		CreatedAt:   st.CreatedAt,
	}
}

func convertServiceStudy(st *services.Study) *Study {
	if st == nil {
		return nil
	}
	return &Study{
		ID:          st.ID,
		OwnerID:     st.OwnerID,
		Title:       st.Title,
		Description: st.Description,
		Type:        string(st.Type),
		Status:      string(st.Status),
		SortingType: string(st.SortingType),
		ImageURL:    st.ImageURL,
		CreatedAt:   st.CreatedAt,
	}
}

func convertAPICard(c *Card) *services.Card {
	if c == nil {
		return nil
	}
	return &services.Card{ID: c.ID, StudyID: c.StudyID, Label: c.Label, Order: c.Order}
}

func convertServiceCard(c *services.Card) *Card {
	if c == nil {
		return nil
	}
	return &Card{ID: c.ID, StudyID: c.StudyID, Label: c.Label, Order: c.Order}
}

func convertAPICategory(c *Category) *services.Category {
	if c == nil {
		return nil
	}
	return &services.Category{ID: c.ID, StudyID: c.StudyID, Name: c.Name, IsUserCreated: c.IsUserCreated, Order: c.Order}
}

func convertServiceCategory(c *services.Category) *Category {
	if c == nil {
		return nil
	}
	return &Category{ID: c.ID, StudyID: c.StudyID, Name: c.Name, IsUserCreated: c.IsUserCreated, Order: c.Order}
}

func convertAPITreeNode(n *TreeNode) *services.TreeNode {
	if n == nil {
		return nil
	}
	return &services.TreeNode{ID: n.ID, StudyID: n.StudyID, Label: n.Label, ParentID: n.ParentID, Order: n.Order}
}

func convertServiceTreeNode(n *services.TreeNode) *TreeNode {
	if n == nil {
		return nil
	}
	return &TreeNode{ID: n.ID, StudyID: n.StudyID, Label: n.Label, ParentID: n.ParentID, Order: n.Order}
}

func convertAPITask(t *Task) *services.Task {
	if t == nil {
		return nil
	}
	return &services.Task{
		ID:                 t.ID,
		StudyID:            t.StudyID,
		Question:           t.Question,
		CorrectNodeID:      t.CorrectNodeID,
		ImageURL:           t.ImageURL,
		DisplayTimeSeconds: t.DisplayTimeSeconds,
		Order:              t.Order,
	}
}

func convertServiceTask(t *services.Task) *Task {
	if t == nil {
		return nil
	}
	return &Task{
		ID:                 t.ID,
		StudyID:            t.StudyID,
		Question:           t.Question,
		CorrectNodeID:      t.CorrectNodeID,
		ImageURL:           t.ImageURL,
		DisplayTimeSeconds: t.DisplayTimeSeconds,
		Order:              t.Order,
	}
}

func convertAPIParticipant(p *Participant) *services.Participant {
	if p == nil {
		return nil
	}
	return &services.Participant{ID: p.ID, StudyID: p.StudyID, StartedAt: p.StartedAt, CompletedAt: p.CompletedAt}
}

func convertServiceParticipant(p *services.Participant) *Participant {
	if p == nil {
		return nil
	}
	return &Participant{ID: p.ID, StudyID: p.StudyID, StartedAt: p.StartedAt, CompletedAt: p.CompletedAt}
}

func convertAPIContent(cards []*Card, categories []*Category, nodes []*TreeNode, tasks []*Task) *services.StudyContent {
	content := &services.StudyContent{}
	for _, c := range cards {
		content.Cards = append(content.Cards, convertAPICard(c))
	}
	for _, c := range categories {
		content.Categories = append(content.Categories, convertAPICategory(c))
	}
	for _, n := range nodes {
		content.TreeNodes = append(content.TreeNodes, convertAPITreeNode(n))
	}
	for _, t := range tasks {
		content.Tasks = append(content.Tasks, convertAPITask(t))
	}
	return content
}

func convertAPICardSort(r *CardSortResult) *services.CardSortResult {
	return &services.CardSortResult{
		ParticipantID:        r.ParticipantID,
		CardID:               r.CardID,
		CategoryID:           r.CategoryID,
		CategoryName:         r.CategoryName,
		OriginalCategoryName: r.OriginalCategoryName,
	}
}

func convertServiceCardSort(r *services.CardSortResult) *CardSortResult {
	return &CardSortResult{
		ParticipantID:        r.ParticipantID,
		CardID:               r.CardID,
		CategoryID:           r.CategoryID,
		CategoryName:         r.CategoryName,
		OriginalCategoryName: r.OriginalCategoryName,
	}
}

func convertAPITreeTest(r *TreeTestResult) *services.TreeTestResult {
	return &services.TreeTestResult{
		ParticipantID:  r.ParticipantID,
		TaskID:         r.TaskID,
		SelectedPath:   r.SelectedPath,
		SelectedNodeID: r.SelectedNodeID,
		IsCorrect:      r.IsCorrect,
		TimeSpentMs:    r.TimeSpentMs,
	}
}

func convertServiceTreeTest(r *services.TreeTestResult) *TreeTestResult {
	return &TreeTestResult{
		ParticipantID:  r.ParticipantID,
		TaskID:         r.TaskID,
		SelectedPath:   r.SelectedPath,
		SelectedNodeID: r.SelectedNodeID,
		IsCorrect:      r.IsCorrect,
		TimeSpentMs:    r.TimeSpentMs,
	}
}

func convertAPIClick(r *ClickResult) *services.ClickResult {
	return &services.ClickResult{
		ParticipantID: r.ParticipantID,
		TaskID:        r.TaskID,
		X:             r.X,
		Y:             r.Y,
		TimeToClickMs: r.TimeToClickMs,
		Timeout:       r.Timeout,
	}
}

func convertServiceClick(r *services.ClickResult) *ClickResult {
	return &ClickResult{
		ParticipantID: r.ParticipantID,
		TaskID:        r.TaskID,
		X:             r.X,
		Y:             r.Y,
		TimeToClickMs: r.TimeToClickMs,
		Timeout:       r.Timeout,
	}
}

func convertAPIAudit(e AuditEntry) services.AuditEntry {
	return services.AuditEntry{Time: e.Time, Actor: e.Actor, Action: e.Action, Target: e.Target, Note: e.Note}
}

func convertServiceAudit(e services.AuditEntry) AuditEntry {
	return AuditEntry{Time: e.Time, Actor: e.Actor, Action: e.Action, Target: e.Target, Note: e.Note}
}
