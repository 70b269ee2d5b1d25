package applications

import "time"

// TransitionRequest is the body of a transition call. AttachmentURL carries
// the stored document reference for stages that gate on one.
type TransitionRequest struct {
	TargetStage   string `json:"targetStage" binding:"required"`
	AttachmentURL string `json:"attachmentUrl"`
}

// ApplicationResponse is the wire shape of an application.
type ApplicationResponse struct {
	ID              string                        `json:"id"`
	JobID           string                        `json:"jobId"`
	EmployeeID      string                        `json:"employeeId"`
	Stage           string                        `json:"stage"`
	IsTerminal      bool                          `json:"isTerminal"`
	StageTimestamps map[string]time.Time          `json:"stageTimestamps"`
	Attachments     map[AttachmentKind]Attachment `json:"attachments"`
	CreatedAt       time.Time                     `json:"createdAt"`
	UpdatedAt       time.Time                     `json:"updatedAt"`
}

func toResponse(app Application) ApplicationResponse {
	timestamps := make(map[string]time.Time, len(app.StageTimestamps))
	for stage, at := range app.StageTimestamps {
		timestamps[string(stage)] = at
	}
	return ApplicationResponse{
		ID:              app.ID,
		JobID:           app.JobID,
		EmployeeID:      app.EmployeeID,
		Stage:           string(app.Stage),
		IsTerminal:      app.IsTerminal(),
		StageTimestamps: timestamps,
		Attachments:     app.Attachments,
		CreatedAt:       app.CreatedAt,
		UpdatedAt:       app.UpdatedAt,
	}
}

func toResponses(apps []Application) []ApplicationResponse {
	out := make([]ApplicationResponse, 0, len(apps))
	for _, app := range apps {
		out = append(out, toResponse(app))
	}
	return out
}
