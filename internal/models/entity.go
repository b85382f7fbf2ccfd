package models

// Entity names the capability set shared by every audited ontology kind:
// serializable (json tags), diffable (flat json object), keyed by org+id.
type Entity interface {
	EntityType() string
	EntityID() string
	EntityOrg() string
}

func (s Segment) EntityType() string { return "segment" }
func (s Segment) EntityID() string   { return s.ID }
func (s Segment) EntityOrg() string  { return s.OrganizationID }

func (t PricingTier) EntityType() string { return "pricing_tier" }
func (t PricingTier) EntityID() string   { return t.ID }
func (t PricingTier) EntityOrg() string  { return t.OrganizationID }

func (m ValueMetric) EntityType() string { return "value_metric" }
func (m ValueMetric) EntityID() string   { return m.ID }
func (m ValueMetric) EntityOrg() string  { return m.OrganizationID }

func (p Pattern) EntityType() string { return "pattern" }
func (p Pattern) EntityID() string   { return p.ID }
func (p Pattern) EntityOrg() string  { return p.OrganizationID }

func (e EconomicsSnapshot) EntityType() string { return "economics_snapshot" }
func (e EconomicsSnapshot) EntityID() string   { return e.ID }
func (e EconomicsSnapshot) EntityOrg() string  { return e.OrganizationID }
