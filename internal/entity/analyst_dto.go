package entity

import "time"

// SessionDTO is the API representation of an analyst session.
type SessionDTO struct {
	ID          string      `json:"id"`
	BackendKind BackendKind `json:"backend_kind"`
	FileLoaded  bool        `json:"file_loaded"`
	CreatedAt   time.Time   `json:"created_at"`
}

// IngestResultDTO is the API representation of an IngestResult. Tabular
// results expose their summary info rather than the full relation.
type IngestResultDTO struct {
	Type         ResultType    `json:"type"`
	TabularInfo  *TabularInfo  `json:"tabular_info,omitempty"`
	DocumentInfo *DocumentInfo `json:"document_info,omitempty"`
	TextPreview  string        `json:"text_preview,omitempty"`
	Failure      *Failure      `json:"failure,omitempty"`
}

// CreateSessionRequest starts a session with an optional backend selection.
type CreateSessionRequest struct {
	Backend *BackendConfig `json:"backend,omitempty"`
}

type AskRequest struct {
	Question string `json:"question"`
}

type AskResponse struct {
	Answer string `json:"answer"`
}

type ContextResponse struct {
	Context string `json:"context"`
}

type HistoryResponse struct {
	Entries []ConversationEntry `json:"entries"`
}

type HistorySummaryResponse struct {
	Summary string `json:"summary"`
}
