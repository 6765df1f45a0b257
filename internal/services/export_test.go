package services

import (
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestExportCardSortCSV(t *testing.T) {
	snap := cardSortSnapshot()
	// Third participant who never placed the second card.
	done := completedAt(time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC))
	snap.Participants = append(snap.Participants, &ParticipantResults{
		Participant: &Participant{ID: "P3", StudyID: "S1", CompletedAt: done},
		CardSorts: []*CardSortResult{
			{ParticipantID: "P3", CardID: "c1", CategoryID: "g1", CategoryName: "Fruits", OriginalCategoryName: "Fruits"},
		},
	})

	b, err := ExportCardSortCSV(snap)
	if err != nil {
		t.Fatalf("ExportCardSortCSV: %v", err)
	}
	records, err := csv.NewReader(strings.NewReader(string(b))).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 3 { // header + one row per card
		t.Fatalf("records len = %d", len(records))
	}
	wantHeader := []string{"Card", "Participant 1", "Participant 2", "Participant 3"}
	for i, h := range wantHeader {
		if records[0][i] != h {
			t.Fatalf("header = %v", records[0])
		}
	}
	if records[1][0] != "Apple" || records[2][0] != "Carrot" {
		t.Fatalf("card order = %q,%q", records[1][0], records[2][0])
	}
	if records[1][1] != "Fruits" || records[1][2] != "Food" || records[1][3] != "Fruits" {
		t.Fatalf("Apple row = %v", records[1])
	}
	if records[2][3] != "-" {
		t.Fatalf("unplaced cell = %q, want -", records[2][3])
	}
}

func TestExportTreeTestCSV(t *testing.T) {
	b, err := ExportTreeTestCSV(treeTestSnapshot())
	if err != nil {
		t.Fatalf("ExportTreeTestCSV: %v", err)
	}
	records, err := csv.NewReader(strings.NewReader(string(b))).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 5 { // header + 3 answers for T1 + 1 for T2
		t.Fatalf("records len = %d", len(records))
	}
	want := []string{"Task", "Participant", "Selected Answer", "Correct Answer", "Path Taken", "Is Correct", "Time (seconds)"}
	for i, h := range want {
		if records[0][i] != h {
			t.Fatalf("header = %v", records[0])
		}
	}
	if records[1][2] != "Laptops" || records[1][5] != "Yes" || records[1][6] != "4.0" {
		t.Fatalf("first row = %v", records[1])
	}
	if records[3][2] != "No selection" || records[3][5] != "No" {
		t.Fatalf("timeout row = %v", records[3])
	}
}

func TestExportFirstClickCSV(t *testing.T) {
	b, err := ExportFirstClickCSV(firstClickSnapshot())
	if err != nil {
		t.Fatalf("ExportFirstClickCSV: %v", err)
	}
	records, err := csv.NewReader(strings.NewReader(string(b))).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("records len = %d", len(records))
	}
	if records[1][1] != "10.00" || records[1][2] != "10.00" || records[1][3] != "1500" {
		t.Fatalf("first row = %v", records[1])
	}
	if records[2][0] != "Participant 2" {
		t.Fatalf("participant column = %q", records[2][0])
	}
}

func TestBuildStudyExportRoundTrip(t *testing.T) {
	snap := treeTestSnapshot()
	exportedAt := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	out := BuildStudyExport(snap, exportedAt)
	if out.StudyID != "S2" || out.Type != StudyTreeTesting {
		t.Fatalf("export envelope = %+v", out)
	}
	if len(out.Participants) != 3 || out.Participants[2].ParticipantNumber != 3 {
		t.Fatalf("participants = %d", len(out.Participants))
	}
	tt := out.Participants[0].TreeTests[0]
	if tt.SelectedLabel != "Laptops" || tt.CorrectLabel != "Laptops" || !tt.IsCorrect {
		t.Fatalf("tree export = %+v", tt)
	}

	b, err := json.Marshal(out)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back StudyExport
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.StudyID != out.StudyID || len(back.Participants) != len(out.Participants) {
		t.Fatalf("round trip lost data: %+v", back)
	}
}
