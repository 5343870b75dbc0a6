package models

// BackupFormatVersion is the only document version the importer accepts.
const BackupFormatVersion = "1.0"

// ConflictPolicy decides what an import does with a project id that already exists.
type ConflictPolicy string

const (
	ConflictRename    ConflictPolicy = "rename"
	ConflictSkip      ConflictPolicy = "skip"
	ConflictOverwrite ConflictPolicy = "overwrite"
)

// Valid reports whether p is a known policy.
func (p ConflictPolicy) Valid() bool {
	switch p {
	case ConflictRename, ConflictSkip, ConflictOverwrite:
		return true
	}
	return false
}

// BackupDocument is the portable export of all of a user's projects.
type BackupDocument struct {
	Version    string          `json:"version"`
	ExportedAt int64           `json:"exportedAt"`
	UserID     string          `json:"userId"`
	Projects   []BackupProject `json:"projects"`
}

// BackupProject is one exported project with its audit trail, newest entry first.
type BackupProject struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Code      string         `json:"code"`
	Nodes     []Node         `json:"nodes"`
	Edges     []Edge         `json:"edges"`
	UpdatedAt int64          `json:"updatedAt"`
	IsDeleted bool           `json:"isDeleted"`
	DeletedAt *int64         `json:"deletedAt,omitempty"`
	ShareID   *string        `json:"shareId,omitempty"`
	IsPublic  bool           `json:"isPublic,omitempty"`
	SharedBy  *string        `json:"sharedBy,omitempty"`
	SharedAt  *int64         `json:"sharedAt,omitempty"`
	History   []BackupRecord `json:"history"`
}

// BackupRecord is an exported history entry.
type BackupRecord struct {
	ID             string         `json:"id"`
	Action         HistoryAction  `json:"action"`
	ChangedBy      string         `json:"changedBy"`
	ChangedAt      int64          `json:"changedAt"`
	PreviousValues map[string]any `json:"previousValues,omitempty"`
}

// BackupMetadata summarises what an export would contain.
type BackupMetadata struct {
	ProjectCount int64 `json:"projectCount"`
	LastUpdated  int64 `json:"lastUpdated"`
}

// ImportResult reports the outcome of an import batch.
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors"`
}
