package applications

import "time"

// AttachmentKind names a document slot on an application.
type AttachmentKind string

const (
	AttachmentMedicalDocument  AttachmentKind = "medicalDocument"
	AttachmentFlightTicket     AttachmentKind = "flightTicket"
	AttachmentContractDocument AttachmentKind = "contractDocument"
)

// Attachment is a stored document reference. The engine keeps only the URL;
// bytes live in the object store.
type Attachment struct {
	URL        string    `json:"url"`
	UploadedAt time.Time `json:"uploadedAt"`
	UploadedBy string    `json:"uploadedBy"`
}

// Application is the workflow subject. Stage is the single source of truth
// for lifecycle position; StageTimestamps is append-only and never
// overwritten.
type Application struct {
	ID              string                        `json:"id"`
	JobID           string                        `json:"jobId"`
	EmployeeID      string                        `json:"employeeId"`
	Stage           Stage                         `json:"stage"`
	StageTimestamps map[Stage]time.Time           `json:"stageTimestamps"`
	Attachments     map[AttachmentKind]Attachment `json:"attachments"`
	CreatedAt       time.Time                     `json:"createdAt"`
	UpdatedAt       time.Time                     `json:"updatedAt"`
}

// IsTerminal reports whether the application has exited the workflow.
func (a Application) IsTerminal() bool {
	return a.Stage.IsTerminal()
}
