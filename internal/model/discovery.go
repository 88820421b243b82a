package model

import "time"

// CompanyProfile describes the company running a discovery.
type CompanyProfile struct {
	Name             string `json:"company_name" yaml:"company_name" validate:"required"`
	Description      string `json:"company_description" yaml:"company_description" validate:"required"`
	Industry         string `json:"industry" yaml:"industry" validate:"required"`
	TargetCustomers  string `json:"target_customers,omitempty" yaml:"target_customers,omitempty"`
	ValueProposition string `json:"value_proposition,omitempty" yaml:"value_proposition,omitempty"`
	Size             string `json:"company_size,omitempty" yaml:"company_size,omitempty"`
	Stage            string `json:"company_stage,omitempty" yaml:"company_stage,omitempty"`
	Location         string `json:"location,omitempty" yaml:"location,omitempty"`
	BudgetRange      string `json:"budget_range,omitempty" yaml:"budget_range,omitempty"`
}

// Draft is a partially structured prospect pulled out of a research report.
// Fields hold raw text; turning them into a Profile is the profile package's job.
type Draft struct {
	Name          string `json:"name"`
	Type          string `json:"type,omitempty"`
	Website       string `json:"website,omitempty"`
	Business      string `json:"business,omitempty"`
	Need          string `json:"need,omitempty"`
	Challenge     string `json:"challenge,omitempty"`
	Opportunity   string `json:"opportunity,omitempty"`
	Signals       string `json:"signals,omitempty"`
	Activity      string `json:"activity,omitempty"`
	Location      string `json:"location,omitempty"`
	Founded       string `json:"founded,omitempty"`
	Contacts      string `json:"contacts,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Twitter       string `json:"twitter,omitempty"`
	Industry      string `json:"industry,omitempty"`
	Size          string `json:"size,omitempty"`
	Stage         string `json:"stage,omitempty"`
	SourceQuery   string `json:"source_query,omitempty"`
	SearchContext string `json:"search_context,omitempty"`

	Qualified bool              `json:"qualified,omitempty"`
	Insights  map[string]string `json:"insights,omitempty"`
	Alignment *GoalAlignment    `json:"goal_alignment,omitempty"`
}

// SessionStatus is the lifecycle state of a discovery session.
type SessionStatus string

const (
	SessionInitializing SessionStatus = "initializing"
	SessionRunning      SessionStatus = "running"
	SessionCompleted    SessionStatus = "completed"
	SessionError        SessionStatus = "error"
)

// Discovery stages reported on a session.
const (
	StageAnalyze = "analyze"
	StageSearch  = "search"
	StageExtract = "extract"
	StageQualify = "qualify"
	StageSave    = "save"
	StageDone    = "done"
)

// Session tracks one discovery run.
type Session struct {
	ID             string        `json:"session_id"`
	CompanyName    string        `json:"company_name"`
	Goal           string        `json:"goal"`
	TargetCount    int           `json:"target_count"`
	Status         SessionStatus `json:"status"`
	Stage          string        `json:"stage"`
	Progress       int           `json:"progress"`
	ProspectsFound int           `json:"prospects_found"`
	ProfileIDs     []string      `json:"profile_ids"`
	Error          string        `json:"error,omitempty"`
	StartedAt      time.Time     `json:"started_at"`
	CompletedAt    *time.Time    `json:"completed_at,omitempty"`
	Activity       []Activity    `json:"activity,omitempty"`
}

// Activity is one entry in a session's live log.
type Activity struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
}

// Analysis is the discovery strategy derived from the company and goal.
type Analysis struct {
	ProspectType     string   `json:"prospect_type"`
	TargetIndustry   string   `json:"target_industry"`
	SearchStrategy   string   `json:"search_strategy"`
	KeyCriteria      string   `json:"key_criteria"`
	SuggestedQueries []string `json:"suggested_queries,omitempty"`
}
