package services

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"
)

// ExportCardSortCSV writes one row per card in study order, one column per
// completed participant, each cell holding the category name that participant
// filed the card under. Cards a participant never placed render as "-".
func ExportCardSortCSV(snap *StudySnapshot) ([]byte, error) {
	header := []string{"Card"}
	for i := range snap.Participants {
		header = append(header, fmt.Sprintf("Participant %d", i+1))
	}

	categoriesByID := make(map[string]*Category, len(snap.Content.Categories))
	for _, c := range snap.Content.Categories {
		categoriesByID[c.ID] = c
	}
	// card id -> participant index -> cell
	placements := make(map[string]map[int]string)
	for i, pr := range snap.Participants {
		for _, r := range pr.CardSorts {
			cells := placements[r.CardID]
			if cells == nil {
				cells = make(map[int]string)
				placements[r.CardID] = cells
			}
			cells[i] = placementName(r, categoriesByID)
		}
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, card := range snap.Content.Cards {
		row := []string{card.Label}
		for i := range snap.Participants {
			cell := placements[card.ID][i]
			if cell == "" {
				cell = "-"
			}
			row = append(row, cell)
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportTreeTestCSV writes one row per answered task per participant, tasks in
// study order, participants in fetch order. Node ids are resolved to labels;
// labels of since-deleted nodes fall back to the raw id.
func ExportTreeTestCSV(snap *StudySnapshot) ([]byte, error) {
	ix := NewNodeIndex(snap.Content.TreeNodes)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := []string{"Task", "Participant", "Selected Answer", "Correct Answer", "Path Taken", "Is Correct", "Time (seconds)"}
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, task := range snap.Content.Tasks {
		for i, pr := range snap.Participants {
			for _, r := range pr.TreeTests {
				if r.TaskID != task.ID {
					continue
				}
				correct := "No"
				if r.IsCorrect {
					correct = "Yes"
				}
				row := []string{
					task.Question,
					fmt.Sprintf("Participant %d", i+1),
					ix.Label(r.SelectedNodeID),
					ix.Label(task.CorrectNodeID),
					ix.PathLabels(r.SelectedPath),
					correct,
					fmt.Sprintf("%.1f", float64(r.TimeSpentMs)/1000),
				}
				if err := w.Write(row); err != nil {
					return nil, err
				}
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportFirstClickCSV writes one row per click in participant fetch order,
// coordinates as percentages of the image.
func ExportFirstClickCSV(snap *StudySnapshot) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"Participant", "X (%)", "Y (%)", "Time (ms)"}); err != nil {
		return nil, err
	}
	for i, pr := range snap.Participants {
		for _, r := range pr.Clicks {
			row := []string{
				fmt.Sprintf("Participant %d", i+1),
				fmt.Sprintf("%.2f", r.X),
				fmt.Sprintf("%.2f", r.Y),
				fmt.Sprintf("%d", r.TimeToClickMs),
			}
			if err := w.Write(row); err != nil {
				return nil, err
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// StudyExport is the machine-readable export: raw ids alongside resolved
// labels, so downstream analysis never has to re-join against study content.
type StudyExport struct {
	StudyID      string               `json:"study_id"`
	Title        string               `json:"title"`
	Type         StudyType            `json:"type"`
	ExportedAt   time.Time            `json:"exported_at"`
	Participants []*ParticipantExport `json:"participants"`
}

type ParticipantExport struct {
	ParticipantID     string              `json:"participant_id"`
	ParticipantNumber int                 `json:"participant_number"`
	StartedAt         time.Time           `json:"started_at"`
	CompletedAt       *time.Time          `json:"completed_at,omitempty"`
	CardSorts         []*CardSortExport   `json:"card_sorts,omitempty"`
	TreeTests         []*TreeTestExport   `json:"tree_tests,omitempty"`
	Clicks            []*FirstClickExport `json:"clicks,omitempty"`
}

type CardSortExport struct {
	CardID       string       `json:"card_id"`
	CardLabel    string       `json:"card_label"`
	CategoryName string       `json:"category_name"`
	CategoryKind CategoryKind `json:"category_kind"`
}

type TreeTestExport struct {
	TaskID        string   `json:"task_id"`
	Question      string   `json:"question"`
	SelectedPath  []string `json:"selected_path"`
	SelectedLabel string   `json:"selected_label"`
	CorrectLabel  string   `json:"correct_label,omitempty"`
	IsCorrect     bool     `json:"is_correct"`
	TimeSpentMs   int64    `json:"time_spent_ms"`
}

type FirstClickExport struct {
	TaskID        string  `json:"task_id,omitempty"`
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	TimeToClickMs int64   `json:"time_to_click_ms"`
	Timeout       bool    `json:"timeout,omitempty"`
}

// BuildStudyExport assembles the JSON export for a snapshot. Only completed
// participants appear, matching the CSV exports and the results views.
func BuildStudyExport(snap *StudySnapshot, exportedAt time.Time) *StudyExport {
	cardsByID := make(map[string]*Card, len(snap.Content.Cards))
	for _, c := range snap.Content.Cards {
		cardsByID[c.ID] = c
	}
	categoriesByID := make(map[string]*Category, len(snap.Content.Categories))
	for _, c := range snap.Content.Categories {
		categoriesByID[c.ID] = c
	}
	tasksByID := make(map[string]*Task, len(snap.Content.Tasks))
	for _, t := range snap.Content.Tasks {
		tasksByID[t.ID] = t
	}
	predefined := PredefinedNames(snap.Content.Categories)
	ix := NewNodeIndex(snap.Content.TreeNodes)

	out := &StudyExport{
		StudyID:    snap.Study.ID,
		Title:      snap.Study.Title,
		Type:       snap.Study.Type,
		ExportedAt: exportedAt,
	}
	for i, pr := range snap.Participants {
		pe := &ParticipantExport{
			ParticipantID:     pr.Participant.ID,
			ParticipantNumber: i + 1,
			StartedAt:         pr.Participant.StartedAt,
			CompletedAt:       pr.Participant.CompletedAt,
		}
		for _, r := range pr.CardSorts {
			label := r.CardID
			if card := cardsByID[r.CardID]; card != nil {
				label = card.Label
			}
			pe.CardSorts = append(pe.CardSorts, &CardSortExport{
				CardID:       r.CardID,
				CardLabel:    label,
				CategoryName: placementName(r, categoriesByID),
				CategoryKind: ClassifyPlacement(r, predefined),
			})
		}
		for _, r := range pr.TreeTests {
			correctLabel := ""
			if task := tasksByID[r.TaskID]; task != nil && task.CorrectNodeID != "" {
				correctLabel = ix.Label(task.CorrectNodeID)
			}
			question := ""
			if task := tasksByID[r.TaskID]; task != nil {
				question = task.Question
			}
			pe.TreeTests = append(pe.TreeTests, &TreeTestExport{
				TaskID:        r.TaskID,
				Question:      question,
				SelectedPath:  r.SelectedPath,
				SelectedLabel: ix.Label(r.SelectedNodeID),
				CorrectLabel:  correctLabel,
				IsCorrect:     r.IsCorrect,
				TimeSpentMs:   r.TimeSpentMs,
			})
		}
		for _, r := range pr.Clicks {
			pe.Clicks = append(pe.Clicks, &FirstClickExport{
				TaskID:        r.TaskID,
				X:             r.X,
				Y:             r.Y,
				TimeToClickMs: r.TimeToClickMs,
				Timeout:       r.Timeout,
			})
		}
		out.Participants = append(out.Participants, pe)
	}
	return out
}
