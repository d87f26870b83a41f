package models

import "time"

type Channel string

const (
	ChannelWeb         Channel = "web"
	ChannelMobile      Channel = "mobile"
	ChannelCallCenter  Channel = "call_center"
	ChannelProviderApp Channel = "provider_app"
	ChannelEmployee    Channel = "employee"
)

// Channels is the fixed channel enumeration; index order matters for the
// deterministic generator draws.
var Channels = []Channel{ChannelWeb, ChannelMobile, ChannelCallCenter, ChannelProviderApp, ChannelEmployee}

type Stage string

const (
	StageIntent        Stage = "intent"
	StageEligibility   Stage = "eligibility"
	StageCoverage      Stage = "coverage"
	StageAuthorization Stage = "authorization"
)

// Stages in funnel order, intent first.
var Stages = []Stage{StageIntent, StageEligibility, StageCoverage, StageAuthorization}

type Status string

const (
	StatusRequested Status = "requested"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
)

// ErrorTypes are the failure categories assigned to a subset of rejected events.
var ErrorTypes = []string{"Eligibility API", "Auth API", "LLM Timeout", "Data Mapping"}

// EventRow is one synthetic benefits interaction. Rows are immutable once
// generated; the whole set is regenerated when tenant, range, or seed changes.
type EventRow struct {
	TenantID   string    `json:"tenant_id"`
	Timestamp  time.Time `json:"timestamp"`
	Channel    Channel   `json:"channel"`
	Stage      Stage     `json:"stage"`
	Status     Status    `json:"status"`
	DurationMs int       `json:"duration_ms"`
	ErrorType  string    `json:"error_type,omitempty"`
	CSAT       int       `json:"csat"`
	AHTMs      int       `json:"aht_ms"`
}

// Tenant is a display-registry record; the pipeline itself treats the id as an
// opaque string key.
type Tenant struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Accent string `json:"accent"`
}

type KPISet struct {
	TotalRequests int `json:"totalRequests"`
	Approvals     int `json:"approvals"`
	ApprovalRate  int `json:"approvalRate"`
	FCR           int `json:"fcr"`
	AbandonRate   int `json:"abandonRate"`
	CSAT          int `json:"csat"`
	AHTMs         int `json:"aht"`
	ErrorRate     int `json:"errorRate"`
	Retries       int `json:"retries"`
	SuccessRate   int `json:"successRate"`
}

type UserKPIs struct {
	CSAT                   int `json:"csat"`
	NPS                    int `json:"nps"`
	FirstContactResolution int `json:"firstContactResolution"`
	AbandonRate            int `json:"abandonRate"`
}

type BusinessKPIs struct {
	ApprovalRate             int `json:"approvalRate"`
	CoverageConfirmationRate int `json:"coverageConfirmationRate"`
	AuthorizationConversion  int `json:"authorizationConversion"`
	CostToServe              int `json:"costToServe"`
}

type OperationalKPIs struct {
	QueueDepth            int `json:"queueDepth"`
	AverageHandlingTimeMs int `json:"averageHandlingTimeMs"`
	AgentUtilization      int `json:"agentUtilization"`
	SelfServeDeflection   int `json:"selfServeDeflection"`
}

type PerformanceKPIs struct {
	LatencyP50Ms int `json:"latencyP50Ms"`
	LatencyP95Ms int `json:"latencyP95Ms"`
	ErrorRate    int `json:"errorRate"`
	SuccessRate  int `json:"successRate"`
	RetryRate    int `json:"retryRate"`
	TimeoutRate  int `json:"timeoutRate"`
}

type CategoryKPIs struct {
	User        UserKPIs        `json:"user"`
	Business    BusinessKPIs    `json:"business"`
	Operational OperationalKPIs `json:"operational"`
	Performance PerformanceKPIs `json:"performance"`
}

type DailyVolume struct {
	Date      string `json:"date"`
	Requests  int    `json:"requests"`
	Approvals int    `json:"approvals"`
}

type DailyLatency struct {
	Date string `json:"date"`
	P50  int    `json:"p50"`
	P95  int    `json:"p95"`
}

type FunnelStageCount struct {
	Stage Stage `json:"stage"`
	Count int   `json:"count"`
}

type ChannelShare struct {
	Channel Channel `json:"channel"`
	Share   int     `json:"share"`
	CSAT    int     `json:"csat"`
}

type ErrorGroup struct {
	ErrorType     string         `json:"error_type"`
	Count         int            `json:"count"`
	ChannelImpact map[string]int `json:"channelImpact"`
}

type DailyErrors struct {
	Date   string `json:"date"`
	Errors int    `json:"errors"`
}

// HourlyErrors is one hour-of-day slot of the 24-hour incident view.
type HourlyErrors struct {
	Date           string `json:"date"`
	FailedRequests int    `json:"failedRequests"`
	ErrorType      string `json:"errorType,omitempty"`
}

type StatusTier string

const (
	StatusOperational       StatusTier = "operational"
	StatusMinorDelays       StatusTier = "minor-delays"
	StatusServiceDisruption StatusTier = "service-disruption"
)

type SystemStatus struct {
	Status       StatusTier `json:"status"`
	Uptime       float64    `json:"uptime"`
	ErrorRate    int        `json:"errorRate"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	UserGuidance string     `json:"userGuidance"`
}

// TimelinePoint is one plotted day of a generated KPI waveform.
type TimelinePoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// Trend compares a KPI value against a deterministically derived previous
// period.
type Trend struct {
	PreviousValue float64 `json:"previousValue"`
	ChangePercent float64 `json:"changePercent"`
}
