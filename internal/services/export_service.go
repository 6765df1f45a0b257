package services

import (
	"encoding/json"
	"fmt"
	"time"
)

// ResultStore is the read side shared by the results and export services: a
// study, its content, and the results of every completed participant.
// Participants who started but never finished are filtered out by the store.
type ResultStore interface {
	GetStudy(id string) (*Study, error)
	GetStudyContent(studyID string) (*StudyContent, error)
	GetCompletedParticipants(studyID string) ([]*ParticipantResults, error)
}

type ExportParams struct {
	StudyID string
	OwnerID string
	Format  string
}

type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

type ExportService struct {
	store ResultStore
	now   func() time.Time
}

func NewExportService(store ResultStore) *ExportService {
	return &ExportService{store: store, now: func() time.Time { return time.Now().UTC() }}
}

func (s *ExportService) snapshot(studyID, ownerID string) (*StudySnapshot, error) {
	if studyID == "" {
		return nil, NewInvalidError("study_id required")
	}
	study, err := s.store.GetStudy(studyID)
	if err != nil {
		return nil, err
	}
	if study == nil {
		return nil, NewNotFoundError("study not found")
	}
	if ownerID != "" && study.OwnerID != ownerID {
		return nil, NewForbiddenError("not your study")
	}
	content, err := s.store.GetStudyContent(studyID)
	if err != nil {
		return nil, err
	}
	participants, err := s.store.GetCompletedParticipants(studyID)
	if err != nil {
		return nil, err
	}
	return &StudySnapshot{Study: study, Content: content, Participants: participants}, nil
}

// Export produces the study's results in the requested format. The CSV layout
// depends on the study type; the JSON export shares one envelope across types.
func (s *ExportService) Export(params ExportParams) (*ExportResult, error) {
	format := params.Format
	if format == "" {
		format = "csv"
	}
	snap, err := s.snapshot(params.StudyID, params.OwnerID)
	if err != nil {
		return nil, err
	}
	switch format {
	case "csv":
		var b []byte
		switch snap.Study.Type {
		case StudyCardSorting:
			b, err = ExportCardSortCSV(snap)
		case StudyTreeTesting:
			b, err = ExportTreeTestCSV(snap)
		case StudyFirstClick:
			b, err = ExportFirstClickCSV(snap)
		default:
			return nil, NewInvalidError("unknown study type")
		}
		if err != nil {
			return nil, err
		}
		return &ExportResult{
			Filename:    fmt.Sprintf("study-%s-results.csv", snap.Study.ID),
			ContentType: "text/csv; charset=utf-8",
			Data:        b,
		}, nil
	case "json":
		b, err := json.MarshalIndent(BuildStudyExport(snap, s.now()), "", "  ")
		if err != nil {
			return nil, err
		}
		return &ExportResult{
			Filename:    fmt.Sprintf("study-%s-results.json", snap.Study.ID),
			ContentType: "application/json; charset=utf-8",
			Data:        b,
		}, nil
	default:
		return nil, NewInvalidError("unsupported format")
	}
}
