package api

import "github.com/uxlens/uxlens/internal/services"

type participantStoreAdapter struct {
	store Store
}

func newParticipantStoreAdapter(store Store) services.ParticipantStore {
	return &participantStoreAdapter{store: store}
}

func (a *participantStoreAdapter) GetStudy(id string) (*services.Study, error) {
	return convertAPIStudy(a.store.GetStudy(id)), nil
}

func (a *participantStoreAdapter) GetParticipant(id string) (*services.Participant, error) {
	return convertAPIParticipant(a.store.GetParticipant(id)), nil
}

func (a *participantStoreAdapter) InsertParticipant(p *services.Participant) error {
	a.store.AddParticipant(convertServiceParticipant(p))
	return nil
}

func (a *participantStoreAdapter) ListParticipants(studyID string) ([]*services.Participant, error) {
	ps := a.store.ListParticipants(studyID)
	out := make([]*services.Participant, 0, len(ps))
	for _, p := range ps {
		out = append(out, convertAPIParticipant(p))
	}
	return out, nil
}

func (a *participantStoreAdapter) DeleteParticipant(id string) (bool, error) {
	return a.store.DeleteParticipant(id), nil
}

func (a *participantStoreAdapter) AddAudit(entry services.AuditEntry) {
	a.store.AddAudit(convertServiceAudit(entry))
}

var _ services.ParticipantStore = (*participantStoreAdapter)(nil)
