package services

import (
	"testing"
	"time"
)

func testTree() []*TreeNode {
	return []*TreeNode{
		{ID: "N1", Label: "Home", Order: 0},
		{ID: "N2", Label: "Products", ParentID: "N1", Order: 0},
		{ID: "N3", Label: "Laptops", ParentID: "N2", Order: 0},
		{ID: "N4", Label: "Support", ParentID: "N1", Order: 1},
		{ID: "N5", Label: "Contact", ParentID: "N4", Order: 0},
	}
}

func TestScoreSelection(t *testing.T) {
	if !ScoreSelection("N3", "N3") {
		t.Fatalf("matching selection scored incorrect")
	}
	if ScoreSelection("N5", "N3") {
		t.Fatalf("mismatched selection scored correct")
	}
	if ScoreSelection("", "N3") {
		t.Fatalf("empty selection scored correct")
	}
	if ScoreSelection("N3", "") {
		t.Fatalf("unscored task produced a correct result")
	}
}

func TestTaskRunConfirm(t *testing.T) {
	run := NewTaskRun(&Task{ID: "T1", CorrectNodeID: "N3"})
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	run.started = base
	run.now = func() time.Time { return base.Add(4200 * time.Millisecond) }

	if err := run.Expand("N1"); err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if err := run.Expand("N2"); err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if err := run.Select("N5"); err != nil {
		t.Fatalf("Select: %v", err)
	}
	// Changed their mind before confirming.
	if err := run.Select("N3"); err != nil {
		t.Fatalf("Select: %v", err)
	}
	res, err := run.Confirm()
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if !res.IsCorrect {
		t.Fatalf("selection N3 against answer N3 scored incorrect")
	}
	if res.TimeSpentMs != 4200 {
		t.Fatalf("TimeSpentMs = %d, want 4200", res.TimeSpentMs)
	}
	want := []string{"N1", "N2", "N5", "N3"}
	if len(res.SelectedPath) != len(want) {
		t.Fatalf("path = %v, want %v", res.SelectedPath, want)
	}
	for i := range want {
		if res.SelectedPath[i] != want[i] {
			t.Fatalf("path = %v, want %v", res.SelectedPath, want)
		}
	}
}

func TestTaskRunPathRecordsFirstVisitOnce(t *testing.T) {
	run := NewTaskRun(&Task{ID: "T1"})
	run.Expand("N1")
	run.Expand("N2")
	run.Expand("N1") // collapse/re-expand must not duplicate
	if p := run.Path(); len(p) != 2 {
		t.Fatalf("path = %v, want 2 entries", p)
	}
}

func TestTaskRunConfirmRequiresSelection(t *testing.T) {
	run := NewTaskRun(&Task{ID: "T1", CorrectNodeID: "N3"})
	run.Expand("N1")
	if _, err := run.Confirm(); err != ErrNoSelection {
		t.Fatalf("Confirm without selection: %v", err)
	}
}

func TestTaskRunSubmittedIsFinal(t *testing.T) {
	run := NewTaskRun(&Task{ID: "T1", CorrectNodeID: "N3"})
	if _, err := run.SelectAndConfirm("N3"); err != nil {
		t.Fatalf("SelectAndConfirm: %v", err)
	}
	if err := run.Select("N5"); err != ErrRunSubmitted {
		t.Fatalf("Select after submit: %v", err)
	}
	if _, err := run.Confirm(); err != ErrRunSubmitted {
		t.Fatalf("Confirm after submit: %v", err)
	}
}

func TestTaskRunAbandon(t *testing.T) {
	run := NewTaskRun(&Task{ID: "T1", CorrectNodeID: "N3"})
	run.Expand("N1")
	res, err := run.Abandon()
	if err != nil {
		t.Fatalf("Abandon: %v", err)
	}
	if res.SelectedNodeID != "" || res.IsCorrect {
		t.Fatalf("abandoned run = %+v, want empty incorrect selection", res)
	}
}

func TestNodeIndexLabels(t *testing.T) {
	ix := NewNodeIndex(testTree())
	if got := ix.Label("N3"); got != "Laptops" {
		t.Fatalf("Label = %q", got)
	}
	if got := ix.Label(""); got != "No selection" {
		t.Fatalf("empty label = %q", got)
	}
	if got := ix.Label("gone"); got != "gone" {
		t.Fatalf("deleted node label = %q, want raw id", got)
	}
	if got := ix.PathLabels([]string{"N1", "N2", "N3"}); got != "Home → Products → Laptops" {
		t.Fatalf("PathLabels = %q", got)
	}
	if d := ix.Depth("N3"); d != 2 {
		t.Fatalf("Depth(N3) = %d", d)
	}
	if ch := ix.Children("N1"); len(ch) != 2 || ch[0].ID != "N2" {
		t.Fatalf("Children(N1) = %v", ch)
	}
}

func treeTestSnapshot() *StudySnapshot {
	done := completedAt(time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC))
	return &StudySnapshot{
		Study: &Study{ID: "S2", Title: "Nav test", Type: StudyTreeTesting},
		Content: &StudyContent{
			TreeNodes: testTree(),
			Tasks: []*Task{
				{ID: "T1", StudyID: "S2", Question: "Find laptops", CorrectNodeID: "N3", Order: 0},
				{ID: "T2", StudyID: "S2", Question: "Explore freely", Order: 1}, // no answer key
			},
		},
		Participants: []*ParticipantResults{
			{
				Participant: &Participant{ID: "P1", StudyID: "S2", CompletedAt: done},
				TreeTests: []*TreeTestResult{
					{ParticipantID: "P1", TaskID: "T1", SelectedNodeID: "N3", IsCorrect: true, TimeSpentMs: 4000},
					{ParticipantID: "P1", TaskID: "T2", SelectedNodeID: "N5", TimeSpentMs: 2000},
				},
			},
			{
				Participant: &Participant{ID: "P2", StudyID: "S2", CompletedAt: done},
				TreeTests: []*TreeTestResult{
					{ParticipantID: "P2", TaskID: "T1", SelectedNodeID: "N5", TimeSpentMs: 8000},
				},
			},
			{
				Participant: &Participant{ID: "P3", StudyID: "S2", CompletedAt: done},
				TreeTests: []*TreeTestResult{
					// Timed out without selecting.
					{ParticipantID: "P3", TaskID: "T1", TimeSpentMs: 12000},
				},
			},
		},
	}
}

func TestPerTaskStats(t *testing.T) {
	stats := PerTaskStats(treeTestSnapshot())
	if len(stats) != 2 {
		t.Fatalf("stats len = %d", len(stats))
	}
	t1 := stats[0]
	if !t1.Scored || t1.Responses != 3 || t1.Correct != 1 {
		t.Fatalf("T1 stats = %+v", t1)
	}
	// The no-selection response stays in the denominator as incorrect.
	if t1.SuccessRate != 1.0/3.0 {
		t.Fatalf("T1 success rate = %v", t1.SuccessRate)
	}
	if t1.AvgSeconds != 8 {
		t.Fatalf("T1 avg seconds = %v", t1.AvgSeconds)
	}
	t2 := stats[1]
	if t2.Scored || t2.SuccessRate != 0 || t2.Responses != 1 {
		t.Fatalf("T2 stats = %+v", t2)
	}
	if t2.AvgSeconds != 2 {
		t.Fatalf("T2 avg seconds = %v", t2.AvgSeconds)
	}
}

func TestPerTaskStatsRescoringNeverRewritesHistory(t *testing.T) {
	snap := treeTestSnapshot()
	// Researcher later repoints the answer key; stored correctness stands.
	snap.Content.Tasks[0].CorrectNodeID = "N5"
	stats := PerTaskStats(snap)
	if stats[0].Correct != 1 {
		t.Fatalf("stored correctness changed after answer key edit: %+v", stats[0])
	}
}
