package query

import "time"

// Default retry budget applied to reads whose Policy leaves Retry unset.
const (
	DefaultRetry      = 3
	DefaultRetryDelay = time.Second
)

// Policy configures how a read is cached, retried and polled.
type Policy struct {
	// StaleTime is how long a successful result stays fresh. Zero means
	// the result is stale as soon as it lands.
	StaleTime time.Duration

	// Retry is the number of retries after the first failed attempt.
	// Negative disables retries; zero uses the manager default.
	Retry      int
	RetryDelay time.Duration

	// PollInterval is used by Watch; zero means no polling.
	PollInterval time.Duration

	// Enabled gates the read. A nil func means always enabled.
	Enabled func() bool

	// RecoverEmpty makes a list read that exhausted its retries log one
	// warning and resolve to an empty list instead of an error. The
	// entry still records the error.
	RecoverEmpty bool
}

func (p Policy) enabled() bool {
	return p.Enabled == nil || p.Enabled()
}

// NonEmpty is an Enabled predicate for reads keyed by an id.
func NonEmpty(id string) func() bool {
	return func() bool { return id != "" }
}

// Per-resource policies.
var (
	UserPolicy          = Policy{StaleTime: 5 * time.Minute}
	OrganizationsPolicy = Policy{StaleTime: 10 * time.Minute}
	DatasetsPolicy      = Policy{StaleTime: 2 * time.Minute, RecoverEmpty: true}
	DashboardsPolicy    = Policy{StaleTime: 2 * time.Minute, Retry: 3, RetryDelay: time.Second, RecoverEmpty: true}
	UsersPolicy         = Policy{StaleTime: 5 * time.Minute}
	AuditLogsPolicy     = Policy{StaleTime: 2 * time.Minute}
	AnalysisPolicy      = Policy{PollInterval: 5 * time.Second}
	HistoryPolicy       = Policy{PollInterval: 10 * time.Second}
)
