package model

type SubmitResponse struct {
	DraftID string      `json:"draft_id"`
	Status  DraftStatus `json:"status"`
}

type PreviewRequest struct {
	Mapping MappingConfig `json:"mapping"`
}

type MatrixWriteRequest struct {
	Scope  Scope   `json:"scope"`
	Grades []Grade `json:"grades"`
}
