// Package application persists landing applications with their notes and
// audit log in Postgres.
package application

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"mortgage-funnel/internal/common/logger"
	"mortgage-funnel/internal/models"
)

var (
	ErrNotFound     = errors.New("APPLICATION_NOT_FOUND")
	ErrInsertFailed = errors.New("DATABASE_INSERT_FAILED")
	ErrQueryFailed  = errors.New("QUERY_EXECUTION_FAILED")
)

const columns = `id, tracking_number, loan_type, is_uae_resident, residency_status,
	property_status, property_type, budget_range, down_payment, monthly_income, employment_status,
	refinance_reason, current_rate, remaining_balance, property_value,
	investment_goal, investor_experience, investment_budget, investment_horizon,
	investment_income_source, investment_financing_structure, investment_down_payment,
	full_name, email, phone_number, contact_method, best_time_to_call,
	status, priority, source, currency_displayed,
	ip_address, user_agent, session_id, referrer, data_processing_consent, marketing_consent,
	followup_date, submitted_at, created_at, updated_at`

const insertApplication = `INSERT INTO landing_applications (` + columns + `) VALUES (
	:id, :tracking_number, :loan_type, :is_uae_resident, :residency_status,
	:property_status, :property_type, :budget_range, :down_payment, :monthly_income, :employment_status,
	:refinance_reason, :current_rate, :remaining_balance, :property_value,
	:investment_goal, :investor_experience, :investment_budget, :investment_horizon,
	:investment_income_source, :investment_financing_structure, :investment_down_payment,
	:full_name, :email, :phone_number, :contact_method, :best_time_to_call,
	:status, :priority, :source, :currency_displayed,
	:ip_address, :user_agent, :session_id, :referrer, :data_processing_consent, :marketing_consent,
	:followup_date, :submitted_at, :created_at, :updated_at)`

// sortColumns whitelists the sortable API fields.
var sortColumns = map[string]string{
	"createdAt":   "created_at",
	"updatedAt":   "updated_at",
	"submittedAt": "submitted_at",
	"fullName":    "full_name",
	"email":       "email",
	"status":      "status",
	"loanType":    "loan_type",
	"priority":    "priority",
	"budgetRange": "budget_range",
}

// Filter selects applications for listing and export. "all" and empty
// values are ignored.
type Filter struct {
	Status    string
	LoanType  string
	Search    string
	IDs       []string
	SortBy    string
	SortOrder string
	Page      int
	Limit     int
}

func (f *Filter) normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 10
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
}

// where builds the WHERE clause and its arguments.
func (f Filter) where() (string, []interface{}) {
	var conds []string
	var args []interface{}
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Status != "" && f.Status != "all" {
		add("status = $%d", f.Status)
	}
	if f.LoanType != "" && f.LoanType != "all" {
		add("loan_type = $%d", f.LoanType)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+s+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(full_name ILIKE $%d OR email ILIKE $%d OR phone_number ILIKE $%d)", n, n, n))
	}
	if len(f.IDs) > 0 {
		add("id = ANY($%d)", pq.Array(f.IDs))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (f Filter) orderBy() string {
	col, ok := sortColumns[f.SortBy]
	if !ok {
		col = "created_at"
	}
	dir := "DESC"
	if strings.EqualFold(f.SortOrder, "asc") {
		dir = "ASC"
	}
	return fmt.Sprintf(" ORDER BY %s %s", col, dir)
}

// Page is one page of a listing.
type Page struct {
	Applications []models.Application
	Total        int
	Page         int
	Limit        int
}

// TotalPages rounds up.
func (p *Page) TotalPages() int {
	if p.Limit == 0 {
		return 0
	}
	return (p.Total + p.Limit - 1) / p.Limit
}

type Repository struct {
	db     *sqlx.DB
	logger logger.Logger
}

func NewRepository(db *sqlx.DB, log logger.Logger) *Repository {
	return &Repository{db: db, logger: logger.Component(log, "application-repository")}
}

// Create inserts the record and a created audit entry. The audit insert is
// best effort.
func (r *Repository) Create(ctx context.Context, app *models.Application) error {
	if _, err := r.db.NamedExecContext(ctx, insertApplication, app); err != nil {
		return fmt.Errorf("%w: insert failed: %v", ErrInsertFailed, err)
	}

	err := r.AppendAudit(ctx, app.ID, models.AuditEntry{
		Action: models.AuditCreated,
		Actor:  "system",
		Details: map[string]interface{}{
			"source":    app.Source,
			"ipAddress": app.IPAddress,
			"loanType":  app.LoanType,
		},
		Timestamp: app.CreatedAt,
	})
	if err != nil {
		r.logger.Warn("audit log insert failed", map[string]interface{}{
			"error":         err.Error(),
			"applicationId": app.ID,
		})
	}
	return nil
}

// AppendAudit adds one audit entry.
func (r *Repository) AppendAudit(ctx context.Context, id string, entry models.AuditEntry) error {
	details := entry.Details
	if details == nil {
		details = map[string]interface{}{}
	}
	raw, err := json.Marshal(details)
	if err != nil {
		raw = []byte("{}")
	}
	if entry.Actor == "" {
		entry.Actor = "system"
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO application_audit_log (application_id, action, actor, details, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		id, entry.Action, entry.Actor, raw, entry.Timestamp)
	if err != nil {
		return fmt.Errorf("%w: audit insert: %v", ErrInsertFailed, err)
	}
	return nil
}

// List returns one page of applications matching f.
func (r *Repository) List(ctx context.Context, f Filter) (*Page, error) {
	f.normalize()
	where, args := f.where()

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM landing_applications"+where, args...); err != nil {
		return nil, fmt.Errorf("%w: count: %v", ErrQueryFailed, err)
	}

	n := len(args)
	query := "SELECT " + columns + " FROM landing_applications" + where + f.orderBy() +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", n+1, n+2)
	args = append(args, f.Limit, (f.Page-1)*f.Limit)

	apps := []models.Application{}
	if err := r.db.SelectContext(ctx, &apps, query, args...); err != nil {
		return nil, fmt.Errorf("%w: list: %v", ErrQueryFailed, err)
	}

	return &Page{Applications: apps, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

// Export returns every application matching f, newest first.
func (r *Repository) Export(ctx context.Context, f Filter) ([]models.Application, error) {
	where, args := f.where()
	apps := []models.Application{}
	query := "SELECT " + columns + " FROM landing_applications" + where + " ORDER BY created_at DESC"
	if err := r.db.SelectContext(ctx, &apps, query, args...); err != nil {
		return nil, fmt.Errorf("%w: export: %v", ErrQueryFailed, err)
	}
	return apps, nil
}

// Get loads one application with its notes and audit log.
func (r *Repository) Get(ctx context.Context, id string) (*models.Application, error) {
	var app models.Application
	err := r.db.GetContext(ctx, &app, "SELECT "+columns+" FROM landing_applications WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get: %v", ErrQueryFailed, err)
	}

	notes := []models.Note{}
	if err := r.db.SelectContext(ctx, &notes,
		`SELECT id, application_id, content, added_by, created_at
		FROM application_notes WHERE application_id = $1 ORDER BY created_at`, id); err != nil {
		return nil, fmt.Errorf("%w: notes: %v", ErrQueryFailed, err)
	}
	app.Notes = notes

	audit, err := r.AuditLog(ctx, id)
	if err != nil {
		return nil, err
	}
	app.AuditLog = audit
	return &app, nil
}

type auditRow struct {
	ID            int64     `db:"id"`
	ApplicationID string    `db:"application_id"`
	Action        string    `db:"action"`
	Actor         string    `db:"actor"`
	Details       []byte    `db:"details"`
	CreatedAt     time.Time `db:"created_at"`
}

// AuditLog returns the audit entries of id, oldest first.
func (r *Repository) AuditLog(ctx context.Context, id string) ([]models.AuditEntry, error) {
	rows := []auditRow{}
	if err := r.db.SelectContext(ctx, &rows,
		`SELECT id, application_id, action, actor, details, created_at
		FROM application_audit_log WHERE application_id = $1 ORDER BY created_at, id`, id); err != nil {
		return nil, fmt.Errorf("%w: audit log: %v", ErrQueryFailed, err)
	}

	out := make([]models.AuditEntry, 0, len(rows))
	for _, row := range rows {
		entry := models.AuditEntry{
			ID:            row.ID,
			ApplicationID: row.ApplicationID,
			Action:        row.Action,
			Actor:         row.Actor,
			Timestamp:     row.CreatedAt,
		}
		if len(row.Details) > 0 {
			_ = json.Unmarshal(row.Details, &entry.Details)
		}
		out = append(out, entry)
	}
	return out, nil
}

// UpdateStatus moves id to status. Any status may follow any other. notes,
// when given, is stored as a note too.
func (r *Repository) UpdateStatus(ctx context.Context, id, status, notes, actor string) (*models.Application, error) {
	var oldStatus string
	err := r.db.GetContext(ctx, &oldStatus, "SELECT status FROM landing_applications WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: status lookup: %v", ErrQueryFailed, err)
	}

	now := time.Now().UTC()
	if _, err := r.db.ExecContext(ctx,
		"UPDATE landing_applications SET status = $1, updated_at = $2 WHERE id = $3",
		status, now, id); err != nil {
		return nil, fmt.Errorf("%w: status update: %v", ErrQueryFailed, err)
	}

	details := map[string]interface{}{"oldStatus": oldStatus, "newStatus": status}
	if notes != "" {
		details["notes"] = notes
		if _, err := r.AddNote(ctx, id, notes, actor); err != nil {
			return nil, err
		}
	}
	if err := r.AppendAudit(ctx, id, models.AuditEntry{
		Action: models.AuditStatusUpdate, Actor: actor, Details: details, Timestamp: now,
	}); err != nil {
		r.logger.Warn("audit log insert failed", map[string]interface{}{"error": err.Error(), "applicationId": id})
	}

	return r.Get(ctx, id)
}

// AddNote attaches a note and records it in the audit log.
func (r *Repository) AddNote(ctx context.Context, id, content, actor string) (*models.Note, error) {
	note := models.Note{ApplicationID: id, Content: content, AddedBy: actor, Timestamp: time.Now().UTC()}
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO application_notes (application_id, content, added_by, created_at)
		SELECT $1, $2, $3, $4 WHERE EXISTS (SELECT 1 FROM landing_applications WHERE id = $1)
		RETURNING id`,
		id, content, actor, note.Timestamp).Scan(&note.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: note insert: %v", ErrInsertFailed, err)
	}

	if err := r.AppendAudit(ctx, id, models.AuditEntry{
		Action: models.AuditNoteAdded, Actor: actor,
		Details: map[string]interface{}{"note": content}, Timestamp: note.Timestamp,
	}); err != nil {
		r.logger.Warn("audit log insert failed", map[string]interface{}{"error": err.Error(), "applicationId": id})
	}
	return &note, nil
}

// BulkUpdateStatus sets status on every id and returns how many rows moved.
func (r *Repository) BulkUpdateStatus(ctx context.Context, ids []string, status, notes, actor string) (int64, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		"UPDATE landing_applications SET status = $1, updated_at = $2 WHERE id = ANY($3)",
		status, now, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("%w: bulk update: %v", ErrQueryFailed, err)
	}
	n, _ := res.RowsAffected()

	details := map[string]interface{}{"newStatus": status}
	if notes != "" {
		details["notes"] = notes
	}
	for _, id := range ids {
		if err := r.AppendAudit(ctx, id, models.AuditEntry{
			Action: models.AuditBulkStatusUpdate, Actor: actor, Details: details, Timestamp: now,
		}); err != nil {
			r.logger.Warn("audit log insert failed", map[string]interface{}{"error": err.Error(), "applicationId": id})
		}
	}
	return n, nil
}

// BulkDelete removes the ids. Notes and audit entries cascade.
func (r *Repository) BulkDelete(ctx context.Context, ids []string) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM landing_applications WHERE id = ANY($1)", pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("%w: bulk delete: %v", ErrQueryFailed, err)
	}
	n, _ := res.RowsAffected()
	r.logger.Info("applications deleted", map[string]interface{}{"requested": len(ids), "deleted": n})
	return n, nil
}
