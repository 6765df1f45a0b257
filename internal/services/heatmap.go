package services

import "math"

// ClickPoint is one click in the aggregated first-click view, tagged with the
// participant's 1-based ordinal for color-coding and the legend.
type ClickPoint struct {
	ParticipantID string  `json:"participant_id"`
	Ordinal       int     `json:"ordinal"`
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	TimeToClickMs int64   `json:"time_to_click_ms"`
	Timeout       bool    `json:"timeout,omitempty"`
}

// ClampPercent forces a coordinate into the stored 0-100 range. Non-finite
// values collapse to 0 rather than poisoning later arithmetic.
func ClampPercent(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// TimeoutClick synthesizes the record written when a first-click task
// auto-advances without a real click: image center, elapsed time equal to the
// task's display window, and the Timeout flag set so the sentinel never
// masquerades as a real center click.
func TimeoutClick(participantID string, task *Task) *ClickResult {
	return &ClickResult{
		ParticipantID: participantID,
		TaskID:        task.ID,
		X:             50,
		Y:             50,
		TimeToClickMs: int64(task.DisplayTimeSeconds) * 1000,
		Timeout:       true,
	}
}

// clickBelongsToTask matches a click to a task. Rows from before tasks had
// their own ids carry no TaskID and belong to the study's first task.
func clickBelongsToTask(r *ClickResult, taskID, firstTaskID string) bool {
	if r.TaskID != "" {
		return r.TaskID == taskID
	}
	return taskID == firstTaskID
}

// CollectClicks returns the click points for one task, optionally restricted
// to a single participant, in completed-participant fetch order.
func CollectClicks(snap *StudySnapshot, taskID, participantID string) []ClickPoint {
	firstTaskID := ""
	if len(snap.Content.Tasks) > 0 {
		firstTaskID = snap.Content.Tasks[0].ID
	}
	if taskID == "" {
		taskID = firstTaskID
	}
	var out []ClickPoint
	for i, pr := range snap.Participants {
		if participantID != "" && participantID != "all" && pr.Participant.ID != participantID {
			continue
		}
		for _, r := range pr.Clicks {
			if !clickBelongsToTask(r, taskID, firstTaskID) {
				continue
			}
			out = append(out, ClickPoint{
				ParticipantID: pr.Participant.ID,
				Ordinal:       i + 1,
				X:             r.X,
				Y:             r.Y,
				TimeToClickMs: r.TimeToClickMs,
				Timeout:       r.Timeout,
			})
		}
	}
	return out
}

// AverageClickSeconds is the mean time-to-click over the given points, in
// seconds. Timeout sentinels are included: the participant did spend the full
// display window on the task.
func AverageClickSeconds(points []ClickPoint) float64 {
	if len(points) == 0 {
		return 0
	}
	var total int64
	for _, p := range points {
		total += p.TimeToClickMs
	}
	return float64(total) / float64(len(points)) / 1000
}

// PixelPosition converts percentage coordinates to absolute pixels for a
// canvas of the given size. The mapping is linear, so it inverts cleanly when
// the canvas is resized.
func PixelPosition(x, y float64, width, height int) (float64, float64) {
	return x / 100 * float64(width), y / 100 * float64(height)
}
