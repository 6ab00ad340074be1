package engine

import "time"

// CertificateFields carries everything the document renderer needs.
type CertificateFields struct {
	ParticipantName   string
	TrainingTitle     string
	DurationHours     int
	SessionDate       *time.Time
	Score             *int
	Accredited        bool
	CertificateNumber string
	IssuedAt          time.Time
}

// Renderer produces the certificate document bytes. Rendering is pure
// from the engine's viewpoint; only persisting the Certificate row
// mutates state.
type Renderer interface {
	Render(fields CertificateFields) ([]byte, error)
}
