package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pricelens/backend/internal/models"
)

type Store struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ---- customers (read-only; owned by the unified customer store) ----

func (s *Store) ListCustomers(ctx context.Context, orgID string) ([]models.Customer, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, organization_id, name, mrr, starting_mrr, ltv, tenure_months, segment_id, status, churned_at, created_at
		FROM customers WHERE organization_id = $1 ORDER BY mrr DESC, id ASC
	`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Customer
	for rows.Next() {
		var c models.Customer
		if err := rows.Scan(&c.ID, &c.OrganizationID, &c.Name, &c.MRR, &c.StartingMRR, &c.LTV, &c.TenureMonths, &c.SegmentID, &c.Status, &c.ChurnedAt, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) CountCustomersBySegment(ctx context.Context, orgID string) (map[string]int, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT segment_id, COUNT(*) FROM customers
		WHERE organization_id = $1 AND segment_id IS NOT NULL AND status != 'churned'
		GROUP BY segment_id
	`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		out[id] = n
	}
	return out, rows.Err()
}

// AssignCustomerSegment updates the denormalized segment pointer on a
// customer row during seeding.
func (s *Store) AssignCustomerSegment(ctx context.Context, orgID, customerID, segmentID string) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE customers SET segment_id = $1 WHERE organization_id = $2 AND id = $3
	`, segmentID, orgID, customerID)
	return err
}

// ---- segments ----

const segmentCols = `id, organization_id, name, criteria, customer_count, total_revenue, revenue_share,
	avg_mrr, avg_ltv, median_ltv, retention_rate, churn_rate, expansion_rate, retention_curve,
	value_drivers, is_system_generated, is_active, created_at, updated_at`

func scanSegment(row pgx.Row) (models.Segment, error) {
	var seg models.Segment
	var criteria, curve, drivers []byte
	err := row.Scan(&seg.ID, &seg.OrganizationID, &seg.Name, &criteria, &seg.CustomerCount, &seg.TotalRevenue,
		&seg.RevenueShare, &seg.AvgMRR, &seg.AvgLTV, &seg.MedianLTV, &seg.RetentionRate, &seg.ChurnRate,
		&seg.ExpansionRate, &curve, &drivers, &seg.IsSystemGenerated, &seg.IsActive, &seg.CreatedAt, &seg.UpdatedAt)
	if err != nil {
		return seg, err
	}
	if len(criteria) > 0 {
		_ = json.Unmarshal(criteria, &seg.Criteria)
	}
	if len(curve) > 0 {
		_ = json.Unmarshal(curve, &seg.RetentionCurve)
	}
	if len(drivers) > 0 {
		_ = json.Unmarshal(drivers, &seg.ValueDrivers)
	}
	return seg, nil
}

func (s *Store) ListSegments(ctx context.Context, orgID string, activeOnly bool) ([]models.Segment, error) {
	query := `SELECT ` + segmentCols + ` FROM segments WHERE organization_id = $1`
	if activeOnly {
		query += ` AND is_active = true`
	}
	query += ` ORDER BY total_revenue DESC, id ASC`

	rows, err := s.Pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Segment
	for rows.Next() {
		seg, err := scanSegment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, seg)
	}
	return out, rows.Err()
}

func (s *Store) GetSegment(ctx context.Context, orgID, id string) (models.Segment, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+segmentCols+` FROM segments WHERE organization_id = $1 AND id = $2`, orgID, id)
	return scanSegment(row)
}

func (s *Store) InsertSegment(ctx context.Context, seg models.Segment) error {
	criteria, _ := json.Marshal(seg.Criteria)
	curve, _ := json.Marshal(seg.RetentionCurve)
	drivers, _ := json.Marshal(seg.ValueDrivers)
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO segments (`+segmentCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
	`, seg.ID, seg.OrganizationID, seg.Name, criteria, seg.CustomerCount, seg.TotalRevenue, seg.RevenueShare,
		seg.AvgMRR, seg.AvgLTV, seg.MedianLTV, seg.RetentionRate, seg.ChurnRate, seg.ExpansionRate, curve,
		drivers, seg.IsSystemGenerated, seg.IsActive, seg.CreatedAt, seg.UpdatedAt)
	return err
}

func (s *Store) UpdateSegment(ctx context.Context, seg models.Segment) error {
	criteria, _ := json.Marshal(seg.Criteria)
	curve, _ := json.Marshal(seg.RetentionCurve)
	drivers, _ := json.Marshal(seg.ValueDrivers)
	tag, err := s.Pool.Exec(ctx, `
		UPDATE segments SET name = $3, criteria = $4, customer_count = $5, total_revenue = $6,
			revenue_share = $7, avg_mrr = $8, avg_ltv = $9, median_ltv = $10, retention_rate = $11,
			churn_rate = $12, expansion_rate = $13, retention_curve = $14, value_drivers = $15,
			is_system_generated = $16, is_active = $17, updated_at = $18
		WHERE organization_id = $1 AND id = $2
	`, seg.OrganizationID, seg.ID, seg.Name, criteria, seg.CustomerCount, seg.TotalRevenue, seg.RevenueShare,
		seg.AvgMRR, seg.AvgLTV, seg.MedianLTV, seg.RetentionRate, seg.ChurnRate, seg.ExpansionRate, curve,
		drivers, seg.IsSystemGenerated, seg.IsActive, seg.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ---- pricing tiers ----

const tierCols = `id, organization_id, name, price_monthly, price_annual, position, value_metric_limits,
	customer_count, revenue_share, is_active, created_at, updated_at`

func scanTier(row pgx.Row) (models.PricingTier, error) {
	var t models.PricingTier
	var limits []byte
	err := row.Scan(&t.ID, &t.OrganizationID, &t.Name, &t.PriceMonthly, &t.PriceAnnual, &t.Position,
		&limits, &t.CustomerCount, &t.RevenueShare, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return t, err
	}
	if len(limits) > 0 {
		_ = json.Unmarshal(limits, &t.ValueMetricLimits)
	}
	return t, nil
}

func (s *Store) ListTiers(ctx context.Context, orgID string, activeOnly bool) ([]models.PricingTier, error) {
	query := `SELECT ` + tierCols + ` FROM pricing_tiers WHERE organization_id = $1`
	if activeOnly {
		query += ` AND is_active = true`
	}
	query += ` ORDER BY position ASC, id ASC`

	rows, err := s.Pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.PricingTier
	for rows.Next() {
		t, err := scanTier(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) GetTier(ctx context.Context, orgID, id string) (models.PricingTier, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+tierCols+` FROM pricing_tiers WHERE organization_id = $1 AND id = $2`, orgID, id)
	return scanTier(row)
}

func (s *Store) InsertTier(ctx context.Context, t models.PricingTier) error {
	limits, _ := json.Marshal(t.ValueMetricLimits)
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO pricing_tiers (`+tierCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, t.ID, t.OrganizationID, t.Name, t.PriceMonthly, t.PriceAnnual, t.Position, limits,
		t.CustomerCount, t.RevenueShare, t.IsActive, t.CreatedAt, t.UpdatedAt)
	return err
}

func (s *Store) UpdateTier(ctx context.Context, t models.PricingTier) error {
	limits, _ := json.Marshal(t.ValueMetricLimits)
	tag, err := s.Pool.Exec(ctx, `
		UPDATE pricing_tiers SET name = $3, price_monthly = $4, price_annual = $5, position = $6,
			value_metric_limits = $7, customer_count = $8, revenue_share = $9, is_active = $10, updated_at = $11
		WHERE organization_id = $1 AND id = $2
	`, t.OrganizationID, t.ID, t.Name, t.PriceMonthly, t.PriceAnnual, t.Position, limits,
		t.CustomerCount, t.RevenueShare, t.IsActive, t.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ---- value metrics ----

const valueMetricCols = `id, organization_id, name, metric_type, correlation_to_expansion, measurement_method, created_at, updated_at`

func scanValueMetric(row pgx.Row) (models.ValueMetric, error) {
	var m models.ValueMetric
	err := row.Scan(&m.ID, &m.OrganizationID, &m.Name, &m.MetricType, &m.CorrelationToExpansion,
		&m.MeasurementMethod, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

func (s *Store) ListValueMetrics(ctx context.Context, orgID string) ([]models.ValueMetric, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+valueMetricCols+` FROM value_metrics WHERE organization_id = $1 ORDER BY metric_type ASC, name ASC`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ValueMetric
	for rows.Next() {
		m, err := scanValueMetric(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) GetValueMetric(ctx context.Context, orgID, id string) (models.ValueMetric, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+valueMetricCols+` FROM value_metrics WHERE organization_id = $1 AND id = $2`, orgID, id)
	return scanValueMetric(row)
}

func (s *Store) InsertValueMetric(ctx context.Context, m models.ValueMetric) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO value_metrics (`+valueMetricCols+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, m.ID, m.OrganizationID, m.Name, m.MetricType, m.CorrelationToExpansion, m.MeasurementMethod, m.CreatedAt, m.UpdatedAt)
	return err
}

func (s *Store) UpdateValueMetric(ctx context.Context, m models.ValueMetric) error {
	tag, err := s.Pool.Exec(ctx, `
		UPDATE value_metrics SET name = $3, metric_type = $4, correlation_to_expansion = $5,
			measurement_method = $6, updated_at = $7
		WHERE organization_id = $1 AND id = $2
	`, m.OrganizationID, m.ID, m.Name, m.MetricType, m.CorrelationToExpansion, m.MeasurementMethod, m.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ---- patterns ----

const patternCols = `id, organization_id, pattern_type, affected_segments, confidence, frequency,
	recommended_action, is_active, created_at, updated_at`

func scanPattern(row pgx.Row) (models.Pattern, error) {
	var p models.Pattern
	var affected []byte
	err := row.Scan(&p.ID, &p.OrganizationID, &p.PatternType, &affected, &p.Confidence, &p.Frequency,
		&p.RecommendedAction, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return p, err
	}
	if len(affected) > 0 {
		_ = json.Unmarshal(affected, &p.AffectedSegments)
	}
	return p, nil
}

func (s *Store) ListPatterns(ctx context.Context, orgID, patternType string) ([]models.Pattern, error) {
	query := `SELECT ` + patternCols + ` FROM patterns WHERE organization_id = $1 AND is_active = true`
	args := []any{orgID}
	if patternType != "" {
		args = append(args, patternType)
		query += fmt.Sprintf(" AND pattern_type = $%d", len(args))
	}
	query += ` ORDER BY confidence DESC, id ASC`

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Pattern
	for rows.Next() {
		p, err := scanPattern(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) GetPattern(ctx context.Context, orgID, id string) (models.Pattern, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+patternCols+` FROM patterns WHERE organization_id = $1 AND id = $2`, orgID, id)
	return scanPattern(row)
}

func (s *Store) InsertPattern(ctx context.Context, p models.Pattern) error {
	affected, _ := json.Marshal(p.AffectedSegments)
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO patterns (`+patternCols+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, p.ID, p.OrganizationID, p.PatternType, affected, p.Confidence, p.Frequency, p.RecommendedAction,
		p.IsActive, p.CreatedAt, p.UpdatedAt)
	return err
}

func (s *Store) UpdatePattern(ctx context.Context, p models.Pattern) error {
	affected, _ := json.Marshal(p.AffectedSegments)
	tag, err := s.Pool.Exec(ctx, `
		UPDATE patterns SET pattern_type = $3, affected_segments = $4, confidence = $5, frequency = $6,
			recommended_action = $7, is_active = $8, updated_at = $9
		WHERE organization_id = $1 AND id = $2
	`, p.OrganizationID, p.ID, p.PatternType, affected, p.Confidence, p.Frequency, p.RecommendedAction,
		p.IsActive, p.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ---- economics snapshots (immutable) ----

func (s *Store) InsertEconomicsSnapshot(ctx context.Context, e models.EconomicsSnapshot) error {
	sens, _ := json.Marshal(e.PriceSensitivity)
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO economics_snapshots (id, organization_id, total_mrr, total_arr, total_customers,
			net_revenue_retention, gross_revenue_retention, mrr_growth_rate, top_10_percent_revenue_share,
			top_customer_revenue_share, hhi_index, risk_level, price_sensitivity, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`, e.ID, e.OrganizationID, e.TotalMRR, e.TotalARR, e.TotalCustomers, e.NetRevenueRetention,
		e.GrossRevenueRetention, e.MRRGrowthRate, e.Top10PercentRevenueShare, e.TopCustomerRevenueShare,
		e.HHIIndex, e.RiskLevel, sens, e.CreatedAt)
	return err
}

func (s *Store) LatestEconomicsSnapshot(ctx context.Context, orgID string) (models.EconomicsSnapshot, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT id, organization_id, total_mrr, total_arr, total_customers, net_revenue_retention,
			gross_revenue_retention, mrr_growth_rate, top_10_percent_revenue_share,
			top_customer_revenue_share, hhi_index, risk_level, price_sensitivity, created_at
		FROM economics_snapshots WHERE organization_id = $1 ORDER BY created_at DESC LIMIT 1
	`, orgID)

	var e models.EconomicsSnapshot
	var sens []byte
	err := row.Scan(&e.ID, &e.OrganizationID, &e.TotalMRR, &e.TotalARR, &e.TotalCustomers,
		&e.NetRevenueRetention, &e.GrossRevenueRetention, &e.MRRGrowthRate, &e.Top10PercentRevenueShare,
		&e.TopCustomerRevenueShare, &e.HHIIndex, &e.RiskLevel, &sens, &e.CreatedAt)
	if err != nil {
		return e, err
	}
	if len(sens) > 0 {
		_ = json.Unmarshal(sens, &e.PriceSensitivity)
	}
	return e, nil
}

// ---- ontology snapshots ----

// CreateSnapshot assigns the next version inside a transaction. The UNIQUE
// (organization_id, version) constraint backs the monotonicity guarantee;
// a concurrent writer loses the insert and the caller retries once.
func (s *Store) CreateSnapshot(ctx context.Context, snap *models.OntologySnapshot) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		var version int
		if err := tx.QueryRow(ctx, `
			SELECT COALESCE(MAX(version), 0) + 1 FROM ontology_snapshots WHERE organization_id = $1
		`, snap.OrganizationID).Scan(&version); err != nil {
			return err
		}
		snap.Version = version
		_, err := tx.Exec(ctx, `
			INSERT INTO ontology_snapshots (id, organization_id, version, triggered_by, payload, created_at)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, snap.ID, snap.OrganizationID, snap.Version, snap.TriggeredBy, snap.Payload, snap.CreatedAt)
		return err
	})
}

// IsUniqueViolation reports whether err is a duplicate-key failure, used by
// the snapshot retry path.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *Store) GetSnapshot(ctx context.Context, orgID, id string) (models.OntologySnapshot, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT id, organization_id, version, triggered_by, payload, created_at
		FROM ontology_snapshots WHERE organization_id = $1 AND id = $2
	`, orgID, id)
	var snap models.OntologySnapshot
	err := row.Scan(&snap.ID, &snap.OrganizationID, &snap.Version, &snap.TriggeredBy, &snap.Payload, &snap.CreatedAt)
	return snap, err
}

func (s *Store) LatestSnapshotVersion(ctx context.Context, orgID string) (int, error) {
	var version int
	err := s.Pool.QueryRow(ctx, `
		SELECT COALESCE(MAX(version), 0) FROM ontology_snapshots WHERE organization_id = $1
	`, orgID).Scan(&version)
	return version, err
}

// ---- audit log (append-only) ----

const auditCols = `id, organization_id, entity_type, entity_id, action, previous_state, new_state,
	changed_fields, triggered_by, decision_record_id, reason, created_at`

func (s *Store) AppendAudit(ctx context.Context, a models.OntologyAuditLog) error {
	changed, _ := json.Marshal(a.ChangedFields)
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO ontology_audit_logs (`+auditCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, a.ID, a.OrganizationID, a.EntityType, a.EntityID, a.Action, a.PreviousState, a.NewState,
		changed, a.TriggeredBy, a.DecisionRecordID, a.Reason, a.CreatedAt)
	return err
}

func scanAudit(rows pgx.Rows) (models.OntologyAuditLog, error) {
	var a models.OntologyAuditLog
	var changed []byte
	err := rows.Scan(&a.ID, &a.OrganizationID, &a.EntityType, &a.EntityID, &a.Action, &a.PreviousState,
		&a.NewState, &changed, &a.TriggeredBy, &a.DecisionRecordID, &a.Reason, &a.CreatedAt)
	if err != nil {
		return a, err
	}
	if len(changed) > 0 {
		_ = json.Unmarshal(changed, &a.ChangedFields)
	}
	return a, nil
}

type AuditFilter struct {
	EntityType string
	EntityID   string
	Action     string
	From       *time.Time
	To         *time.Time
	Limit      int
}

func (s *Store) ListAudit(ctx context.Context, orgID string, f AuditFilter) ([]models.OntologyAuditLog, error) {
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}

	query := `SELECT ` + auditCols + ` FROM ontology_audit_logs`
	args := []any{orgID}
	wheres := []string{"organization_id = $1"}
	if f.EntityType != "" {
		args = append(args, f.EntityType)
		wheres = append(wheres, fmt.Sprintf("entity_type = $%d", len(args)))
	}
	if f.EntityID != "" {
		args = append(args, f.EntityID)
		wheres = append(wheres, fmt.Sprintf("entity_id = $%d", len(args)))
	}
	if f.Action != "" {
		args = append(args, f.Action)
		wheres = append(wheres, fmt.Sprintf("action = $%d", len(args)))
	}
	if f.From != nil {
		args = append(args, *f.From)
		wheres = append(wheres, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if f.To != nil {
		args = append(args, *f.To)
		wheres = append(wheres, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	query += " WHERE " + strings.Join(wheres, " AND ")
	args = append(args, f.Limit)
	query += fmt.Sprintf(" ORDER BY created_at ASC, id ASC LIMIT $%d", len(args))

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.OntologyAuditLog
	for rows.Next() {
		a, err := scanAudit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) EntityTimeline(ctx context.Context, orgID, entityType, entityID string) ([]models.OntologyAuditLog, error) {
	return s.ListAudit(ctx, orgID, AuditFilter{EntityType: entityType, EntityID: entityID, Limit: 500})
}

func (s *Store) DecisionTrail(ctx context.Context, orgID, decisionID string) ([]models.OntologyAuditLog, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+auditCols+` FROM ontology_audit_logs
		WHERE organization_id = $1 AND decision_record_id = $2
		ORDER BY created_at ASC, id ASC
	`, orgID, decisionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.OntologyAuditLog
	for rows.Next() {
		a, err := scanAudit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ---- decision records ----

func (s *Store) InsertDecision(ctx context.Context, d models.DecisionRecord) error {
	considered, _ := json.Marshal(d.OptionsConsidered)
	var chosen []byte
	if d.ChosenOption != nil {
		chosen, _ = json.Marshal(d.ChosenOption)
	}
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO decision_records (id, organization_id, question, options_considered, chosen_option_id,
			chosen_option, reasoning, ontology_snapshot_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, d.ID, d.OrganizationID, d.Question, considered, d.ChosenOptionID, chosen, d.Reasoning,
		d.OntologySnapshotID, d.CreatedAt)
	return err
}

const decisionCols = `id, organization_id, question, options_considered, chosen_option_id, chosen_option,
	reasoning, ontology_snapshot_id, actual_arr_change, actual_churn_change, accuracy_score, learnings,
	outcome_recorded_at, created_at`

func scanDecision(row pgx.Row) (models.DecisionRecord, error) {
	var d models.DecisionRecord
	var considered, chosen []byte
	var actualARR, actualChurn, accuracy *float64
	var learnings *string
	var recordedAt *time.Time
	err := row.Scan(&d.ID, &d.OrganizationID, &d.Question, &considered, &d.ChosenOptionID, &chosen,
		&d.Reasoning, &d.OntologySnapshotID, &actualARR, &actualChurn, &accuracy, &learnings, &recordedAt, &d.CreatedAt)
	if err != nil {
		return d, err
	}
	if len(considered) > 0 {
		_ = json.Unmarshal(considered, &d.OptionsConsidered)
	}
	if len(chosen) > 0 {
		var opt models.PricingOption
		if err := json.Unmarshal(chosen, &opt); err == nil {
			d.ChosenOption = &opt
		}
	}
	if recordedAt != nil {
		d.Outcome = &models.DecisionOutcome{
			ActualARRChange:   deref(actualARR),
			ActualChurnChange: deref(actualChurn),
			AccuracyScore:     deref(accuracy),
			Learnings:         derefString(learnings),
			RecordedAt:        *recordedAt,
		}
	}
	return d, nil
}

func (s *Store) GetDecision(ctx context.Context, orgID, id string) (models.DecisionRecord, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+decisionCols+` FROM decision_records WHERE organization_id = $1 AND id = $2`, orgID, id)
	return scanDecision(row)
}

func (s *Store) ListDecisions(ctx context.Context, orgID string) ([]models.DecisionRecord, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+decisionCols+` FROM decision_records WHERE organization_id = $1 ORDER BY created_at DESC`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.DecisionRecord
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// SetDecisionOutcome writes outcome fields exactly once; a second call
// matches no rows and reports pgx.ErrNoRows.
func (s *Store) SetDecisionOutcome(ctx context.Context, orgID, id string, o models.DecisionOutcome) error {
	tag, err := s.Pool.Exec(ctx, `
		UPDATE decision_records
		SET actual_arr_change = $3, actual_churn_change = $4, accuracy_score = $5, learnings = $6, outcome_recorded_at = $7
		WHERE organization_id = $1 AND id = $2 AND outcome_recorded_at IS NULL
	`, orgID, id, o.ActualARRChange, o.ActualChurnChange, o.AccuracyScore, o.Learnings, o.RecordedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ---- analysis runs ----

func (s *Store) CreateRun(ctx context.Context, orgID, status string) (string, error) {
	var id string
	err := s.Pool.QueryRow(ctx, `
		INSERT INTO analysis_runs (organization_id, status, started_at) VALUES ($1, $2, NOW()) RETURNING id
	`, orgID, status).Scan(&id)
	return id, err
}

func (s *Store) FinishRun(ctx context.Context, runID, status string, summary []byte) error {
	_, err := s.Pool.Exec(ctx, `UPDATE analysis_runs SET status = $1, summary = $2, finished_at = NOW() WHERE id = $3`, status, summary, runID)
	return err
}

func (s *Store) GetLatestRun(ctx context.Context, orgID string) (models.AnalysisRun, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT id, organization_id, started_at, finished_at, status, summary
		FROM analysis_runs WHERE organization_id = $1 ORDER BY started_at DESC LIMIT 1
	`, orgID)
	var r models.AnalysisRun
	err := row.Scan(&r.ID, &r.OrganizationID, &r.StartedAt, &r.FinishedAt, &r.Status, &r.Summary)
	return r, err
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
