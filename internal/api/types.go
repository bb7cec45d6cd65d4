package api

// Envelope is the standard wrapper returned by every remote endpoint.
type Envelope[T any] struct {
	Data    T      `json:"data"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Envelope status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Organization is a tenant that owns datasets and dashboards.
type Organization struct {
	ID        string                `json:"id"`
	Name      string                `json:"name"`
	Plan      string                `json:"plan"` // free | pro | enterprise
	CreatedAt string                `json:"createdAt"`
	Domain    string                `json:"domain,omitempty"`
	Settings  *OrganizationSettings `json:"settings,omitempty"`
}

type OrganizationSettings struct {
	Branding *Branding        `json:"branding,omitempty"`
	Features *OrgFeatureFlags `json:"features,omitempty"`
}

type Branding struct {
	Logo           string `json:"logo,omitempty"`
	PrimaryColor   string `json:"primaryColor,omitempty"`
	SecondaryColor string `json:"secondaryColor,omitempty"`
}

type OrgFeatureFlags struct {
	Billing  bool `json:"billing,omitempty"`
	Audit    bool `json:"audit,omitempty"`
	Webhooks bool `json:"webhooks,omitempty"`
}

// Role grants a set of permissions inside an organization.
type Role struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"` // owner | admin | analyst | viewer
	Permissions []string `json:"permissions"`
}

type User struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Email       string           `json:"email"`
	Roles       []Role           `json:"roles"`
	OrgID       string           `json:"orgId"`
	Avatar      string           `json:"avatar,omitempty"`
	LastLogin   string           `json:"lastLogin,omitempty"`
	Preferences *UserPreferences `json:"preferences,omitempty"`
}

type UserPreferences struct {
	Theme    string `json:"theme"`
	Language string `json:"language"`
	Timezone string `json:"timezone,omitempty"`
}

// UserPatch carries the fields of a user create or update. Nil fields are
// not sent.
type UserPatch struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
	Roles []Role  `json:"roles,omitempty"`
	OrgID *string `json:"orgId,omitempty"`
}

type Dataset struct {
	ID             string   `json:"id"`
	OrgID          string   `json:"orgId"`
	Name           string   `json:"name"`
	SourceFileName string   `json:"sourceFileName"`
	Mime           string   `json:"mime"` // text/csv | application/json
	Rows           int      `json:"rows"`
	Columns        []string `json:"columns"`
	UploadedAt     string   `json:"uploadedAt"`
	UploadedBy     string   `json:"uploadedBy"`
	Size           int64    `json:"size"`
	Tags           []string `json:"tags,omitempty"`
	Description    string   `json:"description,omitempty"`
}

// DatasetDetail is the single-dataset payload: metadata plus a preview.
type DatasetDetail struct {
	Dataset Dataset     `json:"dataset"`
	Preview QueryResult `json:"preview"`
}

// QueryResult is a tabular result set.
type QueryResult struct {
	Columns   []string           `json:"columns"`
	Rows      []any              `json:"rows"`
	Stats     map[string]float64 `json:"stats,omitempty"`
	TotalRows int                `json:"totalRows,omitempty"`
}

type Dashboard struct {
	ID          string   `json:"id"`
	OrgID       string   `json:"orgId"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tiles       []Tile   `json:"tiles"`
	CreatedAt   string   `json:"createdAt"`
	CreatedBy   string   `json:"createdBy"`
	UpdatedAt   string   `json:"updatedAt,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	IsPublic    bool     `json:"isPublic,omitempty"`
	Favorites   int      `json:"favorites,omitempty"`
}

// DashboardPatch is a partial dashboard. Only non-nil fields are sent, so
// a PATCH never clears fields the caller did not mention.
type DashboardPatch struct {
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	Tiles       []Tile   `json:"tiles,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	IsPublic    *bool    `json:"isPublic,omitempty"`
}

type Tile struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"` // line | bar | pie | area | table | kpi
	Title    string       `json:"title"`
	QueryID  string       `json:"queryId,omitempty"`
	Config   TileConfig   `json:"config"`
	Position TilePosition `json:"position"`
}

type TileConfig struct {
	DatasetID   string         `json:"datasetId,omitempty"`
	XAxis       string         `json:"xAxis,omitempty"`
	YAxis       string         `json:"yAxis,omitempty"`
	GroupBy     string         `json:"groupBy,omitempty"`
	Aggregation string         `json:"aggregation,omitempty"`
	Filters     map[string]any `json:"filters,omitempty"`
	Colors      []string       `json:"colors,omitempty"`
}

type TilePosition struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// AnalysisJob status values.
const (
	JobQueued    = "queued"
	JobRunning   = "running"
	JobSucceeded = "succeeded"
	JobFailed    = "failed"
)

type AnalysisJob struct {
	ID         string   `json:"id"`
	OrgID      string   `json:"orgId"`
	DatasetID  string   `json:"datasetId"`
	Status     string   `json:"status"`
	StartedAt  string   `json:"startedAt"`
	FinishedAt string   `json:"finishedAt,omitempty"`
	Summary    string   `json:"summary,omitempty"`
	Progress   int      `json:"progress,omitempty"`
	Logs       []string `json:"logs,omitempty"`
	CreatedBy  string   `json:"createdBy"`
}

// Terminal reports whether the job will not change any more.
func (j AnalysisJob) Terminal() bool {
	return j.Status == JobSucceeded || j.Status == JobFailed
}

// AnalysisRef is returned when an analysis is queued.
type AnalysisRef struct {
	JobID string `json:"jobId"`
}

type AuditLog struct {
	ID          string         `json:"id"`
	OrgID       string         `json:"orgId"`
	ActorUserID string         `json:"actorUserId"`
	ActorName   string         `json:"actorName"`
	Action      string         `json:"action"`
	TargetType  string         `json:"targetType"` // dashboard | dataset | user | organization
	TargetID    string         `json:"targetId"`
	TargetName  string         `json:"targetName,omitempty"`
	CreatedAt   string         `json:"createdAt"`
	Meta        map[string]any `json:"meta,omitempty"`
	IPAddress   string         `json:"ipAddress,omitempty"`
	UserAgent   string         `json:"userAgent,omitempty"`
}

// UploadResult is the payload of a successful dataset upload.
type UploadResult struct {
	DatasetID string      `json:"datasetId"`
	Preview   QueryResult `json:"preview"`
}

// UploadProgress is one byte-level progress tick of an upload.
type UploadProgress struct {
	Loaded     int64 `json:"loaded"`
	Total      int64 `json:"total"`
	Percentage int   `json:"percentage"`
}
