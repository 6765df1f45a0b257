package services

import "time"

type ParticipantStore interface {
	GetStudy(id string) (*Study, error)
	GetParticipant(id string) (*Participant, error)
	InsertParticipant(p *Participant) error
	ListParticipants(studyID string) ([]*Participant, error)
	DeleteParticipant(id string) (bool, error)
	AddAudit(entry AuditEntry)
}

// ParticipantService manages anonymous participant sessions: the public start
// endpoint plus the researcher-side list and delete operations.
type ParticipantService struct {
	store       ParticipantStore
	now         func() time.Time
	idGenerator func() string
}

func NewParticipantService(store ParticipantStore) *ParticipantService {
	return &ParticipantService{
		store:       store,
		now:         func() time.Time { return time.Now().UTC() },
		idGenerator: func() string { return shortID(12) },
	}
}

// Start opens a session against an active study. No account, no email: the
// returned id is the participant's only handle for submitting results.
func (s *ParticipantService) Start(studyID string) (*Participant, error) {
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
	if study.Status != StatusActive {
		return nil, ErrStudyNotActive
	}
	p := &Participant{ID: s.idGenerator(), StudyID: studyID, StartedAt: s.now()}
	if err := s.store.InsertParticipant(p); err != nil {
		return nil, err
	}
	return p, nil
}

// List returns every participant of an owned study, started-but-abandoned ones
// included, so the researcher can see drop-off.
func (s *ParticipantService) List(studyID, ownerID string) ([]*Participant, error) {
	if err := s.checkOwner(studyID, ownerID); err != nil {
		return nil, err
	}
	return s.store.ListParticipants(studyID)
}

// Delete removes one participant and, through the store's cascade, all of
// their result rows.
func (s *ParticipantService) Delete(participantID, ownerID string) error {
	if participantID == "" {
		return NewInvalidError("participant_id required")
	}
	p, err := s.store.GetParticipant(participantID)
	if err != nil {
		return err
	}
	if p == nil {
		return NewNotFoundError("participant not found")
	}
	if err := s.checkOwner(p.StudyID, ownerID); err != nil {
		return err
	}
	ok, err := s.store.DeleteParticipant(participantID)
	if err != nil {
		return err
	}
	if !ok {
		return NewNotFoundError("participant not found")
	}
	s.store.AddAudit(AuditEntry{Time: s.now(), Actor: ownerID, Action: "participant_delete", Target: participantID})
	return nil
}

func (s *ParticipantService) checkOwner(studyID, ownerID string) error {
	study, err := s.store.GetStudy(studyID)
	if err != nil {
		return err
	}
	if study == nil {
		return NewNotFoundError("study not found")
	}
	if ownerID != "" && study.OwnerID != ownerID {
		return NewForbiddenError("not your study")
	}
	return nil
}
