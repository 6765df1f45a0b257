package db

import (
	"database/sql"
	"encoding/json"
	"log"
	"time"

	"github.com/uxlens/uxlens/internal/api"
)

// SQLiteStore implements api.Store on a single SQLite database. The Store
// interface reports failures as absent rows or false, so write errors are
// logged here rather than bubbled up.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, err
		}
	}
	return &SQLiteStore{db: db}, nil
}

func NewStore(db *sql.DB) (api.Store, error) {
	return NewSQLiteStore(db)
}

func (s *SQLiteStore) logErr(prefix string, err error) {
	if err != nil {
		log.Printf("sqlite: %s: %v", prefix, err)
	}
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func encodePath(path []string) string {
	if len(path) == 0 {
		return "[]"
	}
	b, err := json.Marshal(path)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func decodePath(raw string) []string {
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}

func (s *SQLiteStore) AddStudy(st *api.Study) {
	_, err := s.db.Exec(
		`INSERT INTO studies (id, owner_id, title, description, type, status, sorting_type, image_url, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		st.ID, st.OwnerID, st.Title, st.Description, st.Type, st.Status, st.SortingType, st.ImageURL, st.CreatedAt)
	s.logErr("AddStudy", err)
}

func (s *SQLiteStore) UpdateStudy(st *api.Study) bool {
	res, err := s.db.Exec(
		`UPDATE studies SET title = ?, description = ?, status = ?, sorting_type = ?, image_url = ? WHERE id = ?`,
		st.Title, st.Description, st.Status, st.SortingType, st.ImageURL, st.ID)
	if err != nil {
		s.logErr("UpdateStudy", err)
		return false
	}
	n, _ := res.RowsAffected()
	return n > 0
}

func (s *SQLiteStore) DeleteStudy(id string) bool {
	res, err := s.db.Exec(`DELETE FROM studies WHERE id = ?`, id)
	if err != nil {
		s.logErr("DeleteStudy", err)
		return false
	}
	n, _ := res.RowsAffected()
	return n > 0
}

func (s *SQLiteStore) scanStudy(row *sql.Row) *api.Study {
	var st api.Study
	err := row.Scan(&st.ID, &st.OwnerID, &st.Title, &st.Description, &st.Type, &st.Status, &st.SortingType, &st.ImageURL, &st.CreatedAt)
	if err != nil {
		if err != sql.ErrNoRows {
			s.logErr("scanStudy", err)
		}
		return nil
	}
	return &st
}

func (s *SQLiteStore) GetStudy(id string) *api.Study {
	row := s.db.QueryRow(
		`SELECT id, owner_id, title, description, type, status, sorting_type, image_url, created_at
		 FROM studies WHERE id = ?`, id)
	return s.scanStudy(row)
}

func (s *SQLiteStore) ListStudiesByOwner(ownerID string) []*api.Study {
	rows, err := s.db.Query(
		`SELECT id, owner_id, title, description, type, status, sorting_type, image_url, created_at
		 FROM studies WHERE owner_id = ? ORDER BY created_at`, ownerID)
	if err != nil {
		s.logErr("ListStudiesByOwner", err)
		return nil
	}
	defer rows.Close()
	var out []*api.Study
	for rows.Next() {
		var st api.Study
		if err := rows.Scan(&st.ID, &st.OwnerID, &st.Title, &st.Description, &st.Type, &st.Status, &st.SortingType, &st.ImageURL, &st.CreatedAt); err != nil {
			s.logErr("ListStudiesByOwner scan", err)
			continue
		}
		out = append(out, &st)
	}
	s.logErr("ListStudiesByOwner rows", rows.Err())
	return out
}

func (s *SQLiteStore) AddCard(c *api.Card) {
	_, err := s.db.Exec(
		`INSERT INTO cards (id, study_id, label, position) VALUES (?, ?, ?, ?)`,
		c.ID, c.StudyID, c.Label, c.Order)
	s.logErr("AddCard", err)
}

func (s *SQLiteStore) UpdateCard(c *api.Card) bool {
	res, err := s.db.Exec(`UPDATE cards SET label = ? WHERE id = ?`, c.Label, c.ID)
	if err != nil {
		s.logErr("UpdateCard", err)
		return false
	}
	n, _ := res.RowsAffected()
	return n > 0
}

func (s *SQLiteStore) DeleteCard(id string) bool {
	res, err := s.db.Exec(`DELETE FROM cards WHERE id = ?`, id)
	if err != nil {
		s.logErr("DeleteCard", err)
		return false
	}
	n, _ := res.RowsAffected()
	return n > 0
}

func (s *SQLiteStore) ListCards(studyID string) []*api.Card {
	rows, err := s.db.Query(
		`SELECT id, study_id, label, position FROM cards WHERE study_id = ? ORDER BY position`, studyID)
	if err != nil {
		s.logErr("ListCards", err)
		return nil
	}
	defer rows.Close()
	var out []*api.Card
	for rows.Next() {
		var c api.Card
		if err := rows.Scan(&c.ID, &c.StudyID, &c.Label, &c.Order); err != nil {
			s.logErr("ListCards scan", err)
			continue
		}
		out = append(out, &c)
	}
	s.logErr("ListCards rows", rows.Err())
	return out
}

// reorderTable rewrites the position column for one study in a transaction;
// any unknown id rolls the whole batch back.
func (s *SQLiteStore) reorderTable(table, studyID string, order []string) bool {
	tx, err := s.db.Begin()
	if err != nil {
		s.logErr("reorder begin", err)
		return false
	}
	defer func() { _ = tx.Rollback() }()
	var count int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM `+table+` WHERE study_id = ?`, studyID).Scan(&count); err != nil {
		s.logErr("reorder count", err)
		return false
	}
	if count != len(order) {
		return false
	}
	for i, id := range order {
		res, err := tx.Exec(`UPDATE `+table+` SET position = ? WHERE id = ? AND study_id = ?`, i, id, studyID)
		if err != nil {
			s.logErr("reorder update", err)
			return false
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return false
		}
	}
	if err := tx.Commit(); err != nil {
		s.logErr("reorder commit", err)
		return false
	}
	return true
}

func (s *SQLiteStore) ReorderCards(studyID string, order []string) bool {
	return s.reorderTable("cards", studyID, order)
}

func (s *SQLiteStore) AddCategory(c *api.Category) {
	_, err := s.db.Exec(
		`INSERT INTO categories (id, study_id, name, is_user_created, position) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.StudyID, c.Name, boolToInt(c.IsUserCreated), c.Order)
	s.logErr("AddCategory", err)
}

func (s *SQLiteStore) UpdateCategory(c *api.Category) bool {
	res, err := s.db.Exec(`UPDATE categories SET name = ? WHERE id = ?`, c.Name, c.ID)
	if err != nil {
		s.logErr("UpdateCategory", err)
		return false
	}
	n, _ := res.RowsAffected()
	return n > 0
}

func (s *SQLiteStore) DeleteCategory(id string) bool {
	res, err := s.db.Exec(`DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		s.logErr("DeleteCategory", err)
		return false
	}
	n, _ := res.RowsAffected()
	return n > 0
}

func (s *SQLiteStore) ListCategories(studyID string) []*api.Category {
	rows, err := s.db.Query(
		`SELECT id, study_id, name, is_user_created, position FROM categories WHERE study_id = ? ORDER BY position`, studyID)
	if err != nil {
		s.logErr("ListCategories", err)
		return nil
	}
	defer rows.Close()
	var out []*api.Category
	for rows.Next() {
		var c api.Category
		var userCreated int
		if err := rows.Scan(&c.ID, &c.StudyID, &c.Name, &userCreated, &c.Order); err != nil {
			s.logErr("ListCategories scan", err)
			continue
		}
		c.IsUserCreated = userCreated != 0
		out = append(out, &c)
	}
	s.logErr("ListCategories rows", rows.Err())
	return out
}

func (s *SQLiteStore) AddTreeNode(n *api.TreeNode) {
	_, err := s.db.Exec(
		`INSERT INTO tree_nodes (id, study_id, label, parent_id, position) VALUES (?, ?, ?, ?, ?)`,
		n.ID, n.StudyID, n.Label, n.ParentID, n.Order)
	s.logErr("AddTreeNode", err)
}

func (s *SQLiteStore) UpdateTreeNode(n *api.TreeNode) bool {
	res, err := s.db.Exec(`UPDATE tree_nodes SET label = ?, parent_id = ? WHERE id = ?`, n.Label, n.ParentID, n.ID)
	if err != nil {
		s.logErr("UpdateTreeNode", err)
		return false
	}
	affected, _ := res.RowsAffected()
	return affected > 0
}

func (s *SQLiteStore) DeleteTreeNode(id string) bool {
	tx, err := s.db.Begin()
	if err != nil {
		s.logErr("DeleteTreeNode begin", err)
		return false
	}
	defer func() { _ = tx.Rollback() }()
	res, err := tx.Exec(`DELETE FROM tree_nodes WHERE id = ?`, id)
	if err != nil {
		s.logErr("DeleteTreeNode", err)
		return false
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return false
	}
	// Orphaned children become roots rather than dangling.
	if _, err := tx.Exec(`UPDATE tree_nodes SET parent_id = '' WHERE parent_id = ?`, id); err != nil {
		s.logErr("DeleteTreeNode reparent", err)
		return false
	}
	if err := tx.Commit(); err != nil {
		s.logErr("DeleteTreeNode commit", err)
		return false
	}
	return true
}

func (s *SQLiteStore) ListTreeNodes(studyID string) []*api.TreeNode {
	rows, err := s.db.Query(
		`SELECT id, study_id, label, parent_id, position FROM tree_nodes WHERE study_id = ? ORDER BY position`, studyID)
	if err != nil {
		s.logErr("ListTreeNodes", err)
		return nil
	}
	defer rows.Close()
	var out []*api.TreeNode
	for rows.Next() {
		var n api.TreeNode
		if err := rows.Scan(&n.ID, &n.StudyID, &n.Label, &n.ParentID, &n.Order); err != nil {
			s.logErr("ListTreeNodes scan", err)
			continue
		}
		out = append(out, &n)
	}
	s.logErr("ListTreeNodes rows", rows.Err())
	return out
}

func (s *SQLiteStore) ReorderTreeNodes(studyID string, order []string) bool {
	return s.reorderTable("tree_nodes", studyID, order)
}

func (s *SQLiteStore) AddTask(t *api.Task) {
	_, err := s.db.Exec(
		`INSERT INTO tasks (id, study_id, question, correct_node_id, image_url, display_time_seconds, position)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.StudyID, t.Question, t.CorrectNodeID, t.ImageURL, t.DisplayTimeSeconds, t.Order)
	s.logErr("AddTask", err)
}

func (s *SQLiteStore) UpdateTask(t *api.Task) bool {
	res, err := s.db.Exec(
		`UPDATE tasks SET question = ?, correct_node_id = ?, image_url = ?, display_time_seconds = ? WHERE id = ?`,
		t.Question, t.CorrectNodeID, t.ImageURL, t.DisplayTimeSeconds, t.ID)
	if err != nil {
		s.logErr("UpdateTask", err)
		return false
	}
	n, _ := res.RowsAffected()
	return n > 0
}

func (s *SQLiteStore) DeleteTask(id string) bool {
	res, err := s.db.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		s.logErr("DeleteTask", err)
		return false
	}
	n, _ := res.RowsAffected()
	return n > 0
}

func (s *SQLiteStore) ListTasks(studyID string) []*api.Task {
	rows, err := s.db.Query(
		`SELECT id, study_id, question, correct_node_id, image_url, display_time_seconds, position
		 FROM tasks WHERE study_id = ? ORDER BY position`, studyID)
	if err != nil {
		s.logErr("ListTasks", err)
		return nil
	}
	defer rows.Close()
	var out []*api.Task
	for rows.Next() {
		var t api.Task
		if err := rows.Scan(&t.ID, &t.StudyID, &t.Question, &t.CorrectNodeID, &t.ImageURL, &t.DisplayTimeSeconds, &t.Order); err != nil {
			s.logErr("ListTasks scan", err)
			continue
		}
		out = append(out, &t)
	}
	s.logErr("ListTasks rows", rows.Err())
	return out
}

func (s *SQLiteStore) ReorderTasks(studyID string, order []string) bool {
	return s.reorderTable("tasks", studyID, order)
}

func (s *SQLiteStore) AddParticipant(p *api.Participant) {
	_, err := s.db.Exec(
		`INSERT INTO participants (id, study_id, started_at, completed_at) VALUES (?, ?, ?, ?)`,
		p.ID, p.StudyID, p.StartedAt, p.CompletedAt)
	s.logErr("AddParticipant", err)
}

func (s *SQLiteStore) GetParticipant(id string) *api.Participant {
	var p api.Participant
	var completed sql.NullTime
	err := s.db.QueryRow(
		`SELECT id, study_id, started_at, completed_at FROM participants WHERE id = ?`, id).
		Scan(&p.ID, &p.StudyID, &p.StartedAt, &completed)
	if err != nil {
		if err != sql.ErrNoRows {
			s.logErr("GetParticipant", err)
		}
		return nil
	}
	if completed.Valid {
		t := completed.Time
		p.CompletedAt = &t
	}
	return &p
}

// ListParticipants returns study participants in arrival order; the rowid
// tiebreak keeps the ordinal assignment stable when two sessions start within
// the same timestamp granularity.
func (s *SQLiteStore) ListParticipants(studyID string) []*api.Participant {
	rows, err := s.db.Query(
		`SELECT id, study_id, started_at, completed_at FROM participants
		 WHERE study_id = ? ORDER BY started_at, rowid`, studyID)
	if err != nil {
		s.logErr("ListParticipants", err)
		return nil
	}
	defer rows.Close()
	var out []*api.Participant
	for rows.Next() {
		var p api.Participant
		var completed sql.NullTime
		if err := rows.Scan(&p.ID, &p.StudyID, &p.StartedAt, &completed); err != nil {
			s.logErr("ListParticipants scan", err)
			continue
		}
		if completed.Valid {
			t := completed.Time
			p.CompletedAt = &t
		}
		out = append(out, &p)
	}
	s.logErr("ListParticipants rows", rows.Err())
	return out
}

func (s *SQLiteStore) DeleteParticipant(id string) bool {
	res, err := s.db.Exec(`DELETE FROM participants WHERE id = ?`, id)
	if err != nil {
		s.logErr("DeleteParticipant", err)
		return false
	}
	n, _ := res.RowsAffected()
	return n > 0
}

func (s *SQLiteStore) CompleteParticipant(id string, at time.Time) bool {
	res, err := s.db.Exec(`UPDATE participants SET completed_at = ? WHERE id = ?`, at, id)
	if err != nil {
		s.logErr("CompleteParticipant", err)
		return false
	}
	n, _ := res.RowsAffected()
	return n > 0
}

func (s *SQLiteStore) CountCompletedParticipants(studyID string) int {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM participants WHERE study_id = ? AND completed_at IS NOT NULL`, studyID).Scan(&n)
	s.logErr("CountCompletedParticipants", err)
	return n
}

func (s *SQLiteStore) ReplaceCardSortResults(pid string, results []*api.CardSortResult) {
	tx, err := s.db.Begin()
	if err != nil {
		s.logErr("ReplaceCardSortResults begin", err)
		return
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.Exec(`DELETE FROM card_sort_results WHERE participant_id = ?`, pid); err != nil {
		s.logErr("ReplaceCardSortResults delete", err)
		return
	}
	for _, r := range results {
		if _, err := tx.Exec(
			`INSERT INTO card_sort_results (participant_id, card_id, category_id, category_name, original_category_name)
			 VALUES (?, ?, ?, ?, ?)`,
			pid, r.CardID, r.CategoryID, r.CategoryName, r.OriginalCategoryName); err != nil {
			s.logErr("ReplaceCardSortResults insert", err)
			return
		}
	}
	s.logErr("ReplaceCardSortResults commit", tx.Commit())
}

func (s *SQLiteStore) ReplaceTreeTestResults(pid string, results []*api.TreeTestResult) {
	tx, err := s.db.Begin()
	if err != nil {
		s.logErr("ReplaceTreeTestResults begin", err)
		return
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.Exec(`DELETE FROM tree_test_results WHERE participant_id = ?`, pid); err != nil {
		s.logErr("ReplaceTreeTestResults delete", err)
		return
	}
	for _, r := range results {
		if _, err := tx.Exec(
			`INSERT INTO tree_test_results (participant_id, task_id, selected_path, selected_node_id, is_correct, time_spent_ms)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			pid, r.TaskID, encodePath(r.SelectedPath), r.SelectedNodeID, boolToInt(r.IsCorrect), r.TimeSpentMs); err != nil {
			s.logErr("ReplaceTreeTestResults insert", err)
			return
		}
	}
	s.logErr("ReplaceTreeTestResults commit", tx.Commit())
}

func (s *SQLiteStore) ReplaceClickResults(pid string, results []*api.ClickResult) {
	tx, err := s.db.Begin()
	if err != nil {
		s.logErr("ReplaceClickResults begin", err)
		return
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.Exec(`DELETE FROM click_results WHERE participant_id = ?`, pid); err != nil {
		s.logErr("ReplaceClickResults delete", err)
		return
	}
	for _, r := range results {
		if _, err := tx.Exec(
			`INSERT INTO click_results (participant_id, task_id, x, y, time_to_click_ms, timeout)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			pid, r.TaskID, r.X, r.Y, r.TimeToClickMs, boolToInt(r.Timeout)); err != nil {
			s.logErr("ReplaceClickResults insert", err)
			return
		}
	}
	s.logErr("ReplaceClickResults commit", tx.Commit())
}

func (s *SQLiteStore) ListCardSortResults(pid string) []*api.CardSortResult {
	rows, err := s.db.Query(
		`SELECT participant_id, card_id, category_id, category_name, original_category_name
		 FROM card_sort_results WHERE participant_id = ? ORDER BY rowid`, pid)
	if err != nil {
		s.logErr("ListCardSortResults", err)
		return nil
	}
	defer rows.Close()
	var out []*api.CardSortResult
	for rows.Next() {
		var r api.CardSortResult
		if err := rows.Scan(&r.ParticipantID, &r.CardID, &r.CategoryID, &r.CategoryName, &r.OriginalCategoryName); err != nil {
			s.logErr("ListCardSortResults scan", err)
			continue
		}
		out = append(out, &r)
	}
	s.logErr("ListCardSortResults rows", rows.Err())
	return out
}

func (s *SQLiteStore) ListTreeTestResults(pid string) []*api.TreeTestResult {
	rows, err := s.db.Query(
		`SELECT participant_id, task_id, selected_path, selected_node_id, is_correct, time_spent_ms
		 FROM tree_test_results WHERE participant_id = ? ORDER BY rowid`, pid)
	if err != nil {
		s.logErr("ListTreeTestResults", err)
		return nil
	}
	defer rows.Close()
	var out []*api.TreeTestResult
	for rows.Next() {
		var r api.TreeTestResult
		var path string
		var correct int
		if err := rows.Scan(&r.ParticipantID, &r.TaskID, &path, &r.SelectedNodeID, &correct, &r.TimeSpentMs); err != nil {
			s.logErr("ListTreeTestResults scan", err)
			continue
		}
		r.SelectedPath = decodePath(path)
		r.IsCorrect = correct != 0
		out = append(out, &r)
	}
	s.logErr("ListTreeTestResults rows", rows.Err())
	return out
}

func (s *SQLiteStore) ListClickResults(pid string) []*api.ClickResult {
	rows, err := s.db.Query(
		`SELECT participant_id, task_id, x, y, time_to_click_ms, timeout
		 FROM click_results WHERE participant_id = ? ORDER BY rowid`, pid)
	if err != nil {
		s.logErr("ListClickResults", err)
		return nil
	}
	defer rows.Close()
	var out []*api.ClickResult
	for rows.Next() {
		var r api.ClickResult
		var timeout int
		if err := rows.Scan(&r.ParticipantID, &r.TaskID, &r.X, &r.Y, &r.TimeToClickMs, &timeout); err != nil {
			s.logErr("ListClickResults scan", err)
			continue
		}
		r.Timeout = timeout != 0
		out = append(out, &r)
	}
	s.logErr("ListClickResults rows", rows.Err())
	return out
}

func (s *SQLiteStore) AddUser(u *api.User) {
	_, err := s.db.Exec(
		`INSERT INTO users (id, email, pass_hash, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.Email, u.PassHash, u.CreatedAt)
	s.logErr("AddUser", err)
}

func (s *SQLiteStore) FindUserByEmail(email string) *api.User {
	var u api.User
	err := s.db.QueryRow(
		`SELECT id, email, pass_hash, created_at FROM users WHERE email = ?`, email).
		Scan(&u.ID, &u.Email, &u.PassHash, &u.CreatedAt)
	if err != nil {
		if err != sql.ErrNoRows {
			s.logErr("FindUserByEmail", err)
		}
		return nil
	}
	return &u
}

func (s *SQLiteStore) AddAudit(e api.AuditEntry) {
	_, err := s.db.Exec(
		`INSERT INTO audit_log (time, actor, action, target, note) VALUES (?, ?, ?, ?, ?)`,
		e.Time, e.Actor, e.Action, e.Target, e.Note)
	s.logErr("AddAudit", err)
}

func (s *SQLiteStore) ListAudit() []api.AuditEntry {
	rows, err := s.db.Query(`SELECT time, actor, action, target, note FROM audit_log ORDER BY rowid`)
	if err != nil {
		s.logErr("ListAudit", err)
		return nil
	}
	defer rows.Close()
	var out []api.AuditEntry
	for rows.Next() {
		var e api.AuditEntry
		if err := rows.Scan(&e.Time, &e.Actor, &e.Action, &e.Target, &e.Note); err != nil {
			s.logErr("ListAudit scan", err)
			continue
		}
		out = append(out, e)
	}
	s.logErr("ListAudit rows", rows.Err())
	return out
}

var _ api.Store = (*SQLiteStore)(nil)
