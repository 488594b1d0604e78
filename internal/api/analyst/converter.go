package analyst

import (
	"analyst-agent/internal/entity"
	"analyst-agent/internal/session"
)

const textPreviewLimit = 200

// toSessionDTO converts a registry session to its API representation.
// Callers must hold the session lock.
func toSessionDTO(s *session.Session) *entity.SessionDTO {
	return &entity.SessionDTO{
		ID:          s.ID,
		BackendKind: s.Agent.Backend().Kind(),
		FileLoaded:  s.Agent.Current() != nil,
		CreatedAt:   s.CreatedAt,
	}
}

// toResultDTO converts an IngestResult; document text is cut to a short
// preview, the full text stays server-side.
func toResultDTO(res *entity.IngestResult) *entity.IngestResultDTO {
	dto := &entity.IngestResultDTO{
		Type:         res.Type,
		TabularInfo:  res.TabularInfo,
		DocumentInfo: res.DocumentInfo,
		Failure:      res.Failure,
	}
	if res.Type == entity.ResultDocument {
		preview := []rune(res.Text)
		if len(preview) > textPreviewLimit {
			preview = preview[:textPreviewLimit]
		}
		dto.TextPreview = string(preview)
	}
	return dto
}
