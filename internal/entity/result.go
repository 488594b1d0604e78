package entity

// ResultType names the active branch of an IngestResult.
type ResultType string

const (
	ResultTabular  ResultType = "tabular"
	ResultDocument ResultType = "document"
	ResultFailure  ResultType = "failure"
)

// Failure describes a non-recoverable ingestion outcome. Remediation, when
// set, is a human-readable install or configuration hint.
type Failure struct {
	Kind        FailureKind `json:"kind"`
	Message     string      `json:"message"`
	Remediation string      `json:"remediation,omitempty"`
}

// ColumnSummary carries per-column metadata in the order columns appear in
// the source file.
type ColumnSummary struct {
	Name    string     `json:"name"`
	Type    ColumnType `json:"type"`
	Missing int        `json:"missing"`
}

// SheetInfo holds the shape of one spreadsheet sheet.
type SheetInfo struct {
	Name    string `json:"name"`
	Rows    int    `json:"rows"`
	Columns int    `json:"columns"`
}

// TabularInfo summarizes a parsed relation.
type TabularInfo struct {
	Rows         int             `json:"rows"`
	Columns      int             `json:"columns"`
	ByteEstimate int64           `json:"byte_estimate"`
	ColumnStats  []ColumnSummary `json:"column_stats"`
	// Sheets is populated for spreadsheet containers only; the first entry
	// corresponds to the relation returned as the primary result.
	Sheets []SheetInfo `json:"sheets,omitempty"`
}

// DocumentInfo summarizes extracted document or image text.
type DocumentInfo struct {
	WordCount int `json:"word_count"`
	CharCount int `json:"character_count"`

	// Document-format fields.
	Pages      int `json:"pages,omitempty"`
	Paragraphs int `json:"paragraphs,omitempty"`
	Tables     int `json:"tables,omitempty"`

	// Image-format fields. Width and Height are reported even when OCR
	// recognized no text.
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
	ColorMode    string `json:"color_mode,omitempty"`
	SourceFormat string `json:"source_format,omitempty"`

	Metadata map[string]string `json:"metadata,omitempty"`
}

// IngestResult is the normalized outcome of processing one file. Exactly one
// of the three branches is populated; Type names the active one.
type IngestResult struct {
	Type ResultType `json:"type"`

	Relation    *Relation    `json:"-"`
	TabularInfo *TabularInfo `json:"tabular_info,omitempty"`

	Text         string        `json:"text,omitempty"`
	DocumentInfo *DocumentInfo `json:"document_info,omitempty"`

	Failure *Failure `json:"failure,omitempty"`
}

func NewTabularResult(rel *Relation, info *TabularInfo) *IngestResult {
	return &IngestResult{Type: ResultTabular, Relation: rel, TabularInfo: info}
}

func NewDocumentResult(text string, info *DocumentInfo) *IngestResult {
	return &IngestResult{Type: ResultDocument, Text: text, DocumentInfo: info}
}

func NewFailureResult(kind FailureKind, message string) *IngestResult {
	return &IngestResult{Type: ResultFailure, Failure: &Failure{Kind: kind, Message: message}}
}

func NewFailureResultWithHint(kind FailureKind, message, remediation string) *IngestResult {
	return &IngestResult{
		Type:    ResultFailure,
		Failure: &Failure{Kind: kind, Message: message, Remediation: remediation},
	}
}

// IsFailure reports whether the failure branch is active.
func (r *IngestResult) IsFailure() bool {
	return r.Type == ResultFailure
}
