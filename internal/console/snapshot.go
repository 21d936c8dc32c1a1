package console

import (
	"orsi/internal/api"
	"orsi/internal/registry"
	"orsi/internal/upload"
)

// Snapshot is a consistent-enough view of a session for rendering. Each
// component is read under its own lock.
type Snapshot struct {
	SessionID        string            `json:"sessionId"`
	Revision         uint64            `json:"revision"`
	Alert            string            `json:"alert,omitempty"`
	Notice           string            `json:"notice,omitempty"`
	Uploading        bool              `json:"uploading"`
	Selected         *upload.Selection `json:"selected,omitempty"`
	Tracked          *api.UploadJob    `json:"tracked,omitempty"`
	Uploaded         []api.UploadJob   `json:"uploaded"`
	Processed        []string          `json:"processed"`
	LoadingProcessed bool              `json:"loadingProcessed"`
	Detail           *registry.Detail  `json:"detail,omitempty"`
}

// Snapshot collects the current state of every component.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		SessionID:        s.id,
		Revision:         s.coord.Revision(),
		Uploading:        s.uploads.Uploading(),
		Notice:           s.uploads.Notice(),
		Processed:        s.reg.Processed(),
		LoadingProcessed: s.reg.LoadingProcessed(),
	}
	if alert, ok := s.coord.Alert(); ok {
		snap.Alert = alert
	}
	if sel, ok := s.uploads.Selected(); ok {
		snap.Selected = &sel
	}
	if job, ok := s.uploads.Job(); ok {
		snap.Tracked = &job
	}
	if detail, ok := s.reg.Detail(); ok {
		snap.Detail = &detail
	}

	uploaded := s.coord.Uploaded()
	snap.Uploaded = make([]api.UploadJob, 0, len(uploaded))
	for _, name := range uploaded {
		job, ok := s.reg.Job(name)
		if !ok {
			job = api.UploadJob{Filename: name}
		}
		snap.Uploaded = append(snap.Uploaded, job)
	}
	return snap
}
