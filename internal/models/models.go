package models

import "time"

// Customer rows live in the unified customer store and are read-only here.
type Customer struct {
	ID             string     `json:"id"`
	OrganizationID string     `json:"organization_id"`
	Name           string     `json:"name"`
	MRR            float64    `json:"mrr"`
	StartingMRR    float64    `json:"starting_mrr"`
	LTV            float64    `json:"ltv"`
	TenureMonths   int        `json:"tenure_months"`
	SegmentID      *string    `json:"segment_id"`
	Status         string     `json:"status"`
	ChurnedAt      *time.Time `json:"churned_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

const (
	CustomerActive  = "active"
	CustomerChurned = "churned"
	CustomerAtRisk  = "at_risk"
)

type SegmentCriterion struct {
	Field string  `json:"field"`
	Op    string  `json:"op"`
	Value float64 `json:"value"`
}

type Segment struct {
	ID                string             `json:"id"`
	OrganizationID    string             `json:"organization_id"`
	Name              string             `json:"name"`
	Criteria          []SegmentCriterion `json:"criteria"`
	CustomerCount     int                `json:"customer_count"`
	TotalRevenue      float64            `json:"total_revenue"`
	RevenueShare      float64            `json:"revenue_share"`
	AvgMRR            float64            `json:"avg_mrr"`
	AvgLTV            float64            `json:"avg_ltv"`
	MedianLTV         float64            `json:"median_ltv"`
	RetentionRate     float64            `json:"retention_rate"`
	ChurnRate         float64            `json:"churn_rate"`
	ExpansionRate     float64            `json:"expansion_rate"`
	RetentionCurve    []float64          `json:"retention_curve"`
	ValueDrivers      []string           `json:"value_drivers"`
	IsSystemGenerated bool               `json:"is_system_generated"`
	IsActive          bool               `json:"is_active"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// UnlimitedMetric marks an uncapped value-metric limit on a tier.
const UnlimitedMetric = float64(-1)

type PricingTier struct {
	ID                string             `json:"id"`
	OrganizationID    string             `json:"organization_id"`
	Name              string             `json:"name"`
	PriceMonthly      float64            `json:"price_monthly"`
	PriceAnnual       float64            `json:"price_annual"`
	Position          int                `json:"position"`
	ValueMetricLimits map[string]float64 `json:"value_metric_limits"`
	CustomerCount     int                `json:"customer_count"`
	RevenueShare      float64            `json:"revenue_share"`
	IsActive          bool               `json:"is_active"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

type ValueMetric struct {
	ID                     string    `json:"id"`
	OrganizationID         string    `json:"organization_id"`
	Name                   string    `json:"name"`
	MetricType             string    `json:"metric_type"`
	CorrelationToExpansion float64   `json:"correlation_to_expansion"`
	MeasurementMethod      string    `json:"measurement_method"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

const (
	MetricPrimary   = "primary"
	MetricSecondary = "secondary"
)

const (
	PatternUpgradeTrigger    = "upgrade_trigger"
	PatternChurnSignal       = "churn_signal"
	PatternExpansionReady    = "expansion_ready"
	PatternSeasonal          = "seasonal"
	PatternDiscountSensitive = "discount_sensitive"
	PatternPriceAnchor       = "price_anchor"
)

type Pattern struct {
	ID                string    `json:"id"`
	OrganizationID    string    `json:"organization_id"`
	PatternType       string    `json:"pattern_type"`
	AffectedSegments  []string  `json:"affected_segments"`
	Confidence        float64   `json:"confidence"`
	Frequency         string    `json:"frequency"`
	RecommendedAction string    `json:"recommended_action"`
	IsActive          bool      `json:"is_active"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

const (
	RiskLow      = "low"
	RiskModerate = "moderate"
	RiskHigh     = "high"
	RiskCritical = "critical"
)

type SegmentSensitivity struct {
	SegmentID               string  `json:"segment_id"`
	SegmentName             string  `json:"segment_name"`
	Elasticity              float64 `json:"elasticity"`
	ChurnPerPercentIncrease float64 `json:"churn_per_percent_increase"`
}

type EconomicsSnapshot struct {
	ID                       string               `json:"id"`
	OrganizationID           string               `json:"organization_id"`
	TotalMRR                 float64              `json:"total_mrr"`
	TotalARR                 float64              `json:"total_arr"`
	TotalCustomers           int                  `json:"total_customers"`
	NetRevenueRetention      float64              `json:"net_revenue_retention"`
	GrossRevenueRetention    float64              `json:"gross_revenue_retention"`
	MRRGrowthRate            float64              `json:"mrr_growth_rate"`
	Top10PercentRevenueShare float64              `json:"top_10_percent_revenue_share"`
	TopCustomerRevenueShare  float64              `json:"top_customer_revenue_share"`
	HHIIndex                 float64              `json:"hhi_index"`
	RiskLevel                string               `json:"risk_level"`
	PriceSensitivity         []SegmentSensitivity `json:"price_sensitivity"`
	CreatedAt                time.Time            `json:"created_at"`
}

const (
	OptionPriceIncrease     = "price_increase"
	OptionNewTier           = "new_tier"
	OptionValueMetricChange = "value_metric_change"
	OptionRepackaging       = "repackaging"
	OptionMinimumFee        = "minimum_fee"
)

type PricingChange struct {
	Target string `json:"target"`
	From   string `json:"from"`
	To     string `json:"to"`
}

type ImpactModel struct {
	ExpectedARRChange      float64 `json:"expected_arr_change"`
	OptimisticARRChange    float64 `json:"optimistic_arr_change"`
	PessimisticARRChange   float64 `json:"pessimistic_arr_change"`
	ExpectedChurnIncrease  float64 `json:"expected_churn_increase"`
	TimeToFullImpactMonths int     `json:"time_to_full_impact_months"`
	Confidence             float64 `json:"confidence"`
}

type PricingOption struct {
	ID          string          `json:"id"`
	OptionType  string          `json:"option_type"`
	Description string          `json:"description"`
	Changes     []PricingChange `json:"changes"`
	Impact      ImpactModel     `json:"impact"`
	RiskProfile string          `json:"risk_profile"`
	Complexity  string          `json:"complexity"`
}

const (
	RecStronglySupport = "strongly_support"
	RecSupport         = "support"
	RecNeutral         = "neutral"
	RecOppose          = "oppose"
	RecStronglyOppose  = "strongly_oppose"
)

const (
	ConsensusStrong   = "strong"
	ConsensusModerate = "moderate"
	ConsensusWeak     = "weak"
	ConsensusDivided  = "divided"
)

const (
	PerspectiveFinance  = "finance"
	PerspectiveGrowth   = "growth"
	PerspectiveProduct  = "product"
	PerspectiveStrategy = "strategy"
)

type AgentView struct {
	Perspective    string   `json:"perspective"`
	Reasoning      string   `json:"reasoning"`
	KeyPoints      []string `json:"key_points"`
	Recommendation string   `json:"recommendation"`
	Confidence     float64  `json:"confidence"`
	Impact         string   `json:"impact"`
}

type CouncilRecommendation struct {
	Consensus      string   `json:"consensus"`
	ReasoningChain []string `json:"reasoning_chain"`
	TradeOffs      []string `json:"trade_offs"`
	Summary        string   `json:"summary"`
}

type CouncilEvaluation struct {
	OptionID       string                `json:"option_id"`
	Views          []AgentView           `json:"views"`
	Recommendation CouncilRecommendation `json:"recommendation"`
}

type Competitor struct {
	Name         string  `json:"name"`
	PricingModel string  `json:"pricing_model"`
	EntryPrice   float64 `json:"entry_price"`
}

type CompetitiveContext struct {
	Competitors []Competitor `json:"competitors"`
}

// OntologySnapshot captures the whole model as serialized JSON; never mutated.
type OntologySnapshot struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Version        int       `json:"version"`
	TriggeredBy    string    `json:"triggered_by"`
	Payload        []byte    `json:"payload"`
	CreatedAt      time.Time `json:"created_at"`
}

// SnapshotPayload is the serialized form stored in OntologySnapshot.Payload.
type SnapshotPayload struct {
	Segments     []Segment          `json:"segments"`
	Tiers        []PricingTier      `json:"tiers"`
	ValueMetrics []ValueMetric      `json:"value_metrics"`
	Patterns     []Pattern          `json:"patterns"`
	Economics    *EconomicsSnapshot `json:"economics,omitempty"`
}

const (
	ActionCreate  = "create"
	ActionUpdate  = "update"
	ActionDelete  = "delete"
	ActionArchive = "archive"
)

type OntologyAuditLog struct {
	ID               string    `json:"id"`
	OrganizationID   string    `json:"organization_id"`
	EntityType       string    `json:"entity_type"`
	EntityID         string    `json:"entity_id"`
	Action           string    `json:"action"`
	PreviousState    []byte    `json:"previous_state,omitempty"`
	NewState         []byte    `json:"new_state,omitempty"`
	ChangedFields    []string  `json:"changed_fields"`
	TriggeredBy      string    `json:"triggered_by"`
	DecisionRecordID *string   `json:"decision_record_id,omitempty"`
	Reason           *string   `json:"reason,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

type DecisionOutcome struct {
	ActualARRChange   float64   `json:"actual_arr_change"`
	ActualChurnChange float64   `json:"actual_churn_change"`
	AccuracyScore     float64   `json:"accuracy_score"`
	Learnings         string    `json:"learnings"`
	RecordedAt        time.Time `json:"recorded_at"`
}

type DecisionRecord struct {
	ID                 string           `json:"id"`
	OrganizationID     string           `json:"organization_id"`
	Question           string           `json:"question"`
	OptionsConsidered  []string         `json:"options_considered"`
	ChosenOptionID     string           `json:"chosen_option_id"`
	ChosenOption       *PricingOption   `json:"chosen_option,omitempty"`
	Reasoning          string           `json:"reasoning"`
	OntologySnapshotID string           `json:"ontology_snapshot_id"`
	Outcome            *DecisionOutcome `json:"outcome,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
}

type AnalysisRun struct {
	ID             string     `json:"id"`
	OrganizationID string     `json:"organization_id"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at"`
	Status         string     `json:"status"`
	Summary        []byte     `json:"summary"`
}
