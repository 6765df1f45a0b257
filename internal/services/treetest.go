package services

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// RunState tracks a participant's progress through a single tree-test task.
type RunState int

const (
	RunBrowsing RunState = iota
	RunSelected
	RunSubmitted
)

var (
	// ErrNoSelection is returned by Confirm when nothing has been selected yet.
	ErrNoSelection = errors.New("no node selected")
	// ErrRunSubmitted is returned when a finished run receives further events.
	ErrRunSubmitted = errors.New("task already submitted")
)

// TaskRun is the interactive state machine behind one tree-test task. The
// timer starts the moment the run is created, which is when the task is shown;
// it resets per task, not per study. Expansion and selection events append
// each node to the traversal path once, in first-visit order.
type TaskRun struct {
	task     *Task
	state    RunState
	path     []string
	visited  map[string]bool
	selected string
	started  time.Time
	now      func() time.Time
}

func NewTaskRun(task *Task) *TaskRun {
	r := &TaskRun{
		task:    task,
		visited: map[string]bool{},
		now:     func() time.Time { return time.Now().UTC() },
	}
	r.started = r.now()
	return r
}

func (r *TaskRun) State() RunState { return r.state }

func (r *TaskRun) Path() []string {
	return append([]string(nil), r.path...)
}

func (r *TaskRun) appendPath(nodeID string) {
	if nodeID == "" || r.visited[nodeID] {
		return
	}
	r.visited[nodeID] = true
	r.path = append(r.path, nodeID)
}

// Expand records that the participant opened a branch. Whether children are
// shown or hidden is the renderer's concern; the scorer only tracks the path.
func (r *TaskRun) Expand(nodeID string) error {
	if r.state == RunSubmitted {
		return ErrRunSubmitted
	}
	r.appendPath(nodeID)
	return nil
}

// Select marks a tentative answer. The participant may still change it before
// confirming.
func (r *TaskRun) Select(nodeID string) error {
	if r.state == RunSubmitted {
		return ErrRunSubmitted
	}
	if nodeID == "" {
		return ErrNoSelection
	}
	r.appendPath(nodeID)
	r.selected = nodeID
	r.state = RunSelected
	return nil
}

// Confirm finalizes the run, freezing correctness and elapsed time into the
// result row. This is the confirm-gated variant; use SelectAndConfirm for the
// immediate-select variant.
func (r *TaskRun) Confirm() (*TreeTestResult, error) {
	if r.state == RunSubmitted {
		return nil, ErrRunSubmitted
	}
	if r.state != RunSelected || r.selected == "" {
		return nil, ErrNoSelection
	}
	r.state = RunSubmitted
	return &TreeTestResult{
		TaskID:         r.task.ID,
		SelectedPath:   r.Path(),
		SelectedNodeID: r.selected,
		IsCorrect:      ScoreSelection(r.selected, r.task.CorrectNodeID),
		TimeSpentMs:    r.now().Sub(r.started).Milliseconds(),
	}, nil
}

// SelectAndConfirm finalizes in one step.
func (r *TaskRun) SelectAndConfirm(nodeID string) (*TreeTestResult, error) {
	if err := r.Select(nodeID); err != nil {
		return nil, err
	}
	return r.Confirm()
}

// Abandon finalizes a run the participant never answered, e.g. a skip or
// timeout. The result carries an empty selection and is always incorrect.
func (r *TaskRun) Abandon() (*TreeTestResult, error) {
	if r.state == RunSubmitted {
		return nil, ErrRunSubmitted
	}
	r.state = RunSubmitted
	return &TreeTestResult{
		TaskID:       r.task.ID,
		SelectedPath: r.Path(),
		TimeSpentMs:  r.now().Sub(r.started).Milliseconds(),
	}, nil
}

// ScoreSelection is the single scoring rule: the selected node must equal the
// task's designated answer. A task with no designated answer can never be
// scored correct; such tasks are reported as unscored by PerTaskStats rather
// than counted as failures.
func ScoreSelection(selectedNodeID, correctNodeID string) bool {
	return correctNodeID != "" && selectedNodeID == correctNodeID
}

// NodeIndex is an arena over a study's tree nodes: flat id-indexed map with
// parent pointers, plus per-parent child lists sorted by sibling order.
type NodeIndex struct {
	nodes    map[string]*TreeNode
	children map[string][]*TreeNode
	roots    []*TreeNode
}

func NewNodeIndex(nodes []*TreeNode) *NodeIndex {
	ix := &NodeIndex{
		nodes:    make(map[string]*TreeNode, len(nodes)),
		children: map[string][]*TreeNode{},
	}
	for _, n := range nodes {
		ix.nodes[n.ID] = n
		if n.ParentID == "" {
			ix.roots = append(ix.roots, n)
		} else {
			ix.children[n.ParentID] = append(ix.children[n.ParentID], n)
		}
	}
	sort.SliceStable(ix.roots, func(i, j int) bool { return ix.roots[i].Order < ix.roots[j].Order })
	for _, cs := range ix.children {
		sort.SliceStable(cs, func(i, j int) bool { return cs[i].Order < cs[j].Order })
	}
	return ix
}

func (ix *NodeIndex) Node(id string) *TreeNode { return ix.nodes[id] }

func (ix *NodeIndex) Roots() []*TreeNode { return ix.roots }

func (ix *NodeIndex) Children(parentID string) []*TreeNode { return ix.children[parentID] }

// Depth returns how many ancestors a node has; unknown ids report 0.
func (ix *NodeIndex) Depth(id string) int {
	depth := 0
	for n := ix.nodes[id]; n != nil && n.ParentID != ""; n = ix.nodes[n.ParentID] {
		depth++
	}
	return depth
}

// Label resolves a node id for display. Deleted nodes render as the raw id so
// old results stay legible.
func (ix *NodeIndex) Label(id string) string {
	if id == "" {
		return "No selection"
	}
	if n := ix.nodes[id]; n != nil {
		return n.Label
	}
	return id
}

// PathLabels renders a traversal path as labels joined with a directional
// separator.
func (ix *NodeIndex) PathLabels(path []string) string {
	labels := make([]string, 0, len(path))
	for _, id := range path {
		labels = append(labels, ix.Label(id))
	}
	return strings.Join(labels, " → ")
}

// TaskStats aggregates one task's tree-test results over completed
// participants. Scored is false when the task has no designated answer; such
// tasks keep their response count and timing but are excluded from
// success-rate reporting instead of being counted as all-wrong.
type TaskStats struct {
	TaskID      string  `json:"task_id"`
	Question    string  `json:"question"`
	Scored      bool    `json:"scored"`
	Responses   int     `json:"responses"`
	Correct     int     `json:"correct"`
	SuccessRate float64 `json:"success_rate"`
	AvgSeconds  float64 `json:"avg_seconds"`
}

// PerTaskStats computes success rate, mean time and response count per task,
// in study task order. Results whose participant never completed are not in
// the snapshot by contract, so everything present counts. A result with no
// selection stays in the denominator as an incorrect response.
func PerTaskStats(snap *StudySnapshot) []*TaskStats {
	out := make([]*TaskStats, 0, len(snap.Content.Tasks))
	for _, task := range snap.Content.Tasks {
		st := &TaskStats{TaskID: task.ID, Question: task.Question, Scored: task.CorrectNodeID != ""}
		var totalMs int64
		for _, pr := range snap.Participants {
			for _, r := range pr.TreeTests {
				if r.TaskID != task.ID {
					continue
				}
				st.Responses++
				totalMs += r.TimeSpentMs
				if r.IsCorrect {
					st.Correct++
				}
			}
		}
		if st.Responses > 0 {
			if st.Scored {
				st.SuccessRate = float64(st.Correct) / float64(st.Responses)
			}
			st.AvgSeconds = float64(totalMs) / float64(st.Responses) / 1000
		}
		out = append(out, st)
	}
	return out
}
