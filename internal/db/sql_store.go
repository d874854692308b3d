package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/casanoova/compass/internal/api"
	"github.com/casanoova/compass/internal/models"
	"github.com/casanoova/compass/internal/services"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// SQLStore implements api.Store on database/sql. Queries are written with
// `?` placeholders and rebound for postgres.
type SQLStore struct {
	db     *sql.DB
	driver string
}

var _ api.Store = (*SQLStore)(nil)

// Open connects to dsn with the given driver and verifies the connection.
func Open(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// one connection keeps the pragmas below in effect for every query
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	s, err := NewSQLStore(db, driver)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func NewSQLStore(db *sql.DB, driver string) (*SQLStore, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	switch driver {
	case DriverSQLite:
		pragmas := []string{
			"PRAGMA foreign_keys = ON",
			"PRAGMA journal_mode = WAL",
			"PRAGMA synchronous = NORMAL",
			"PRAGMA busy_timeout = 5000",
		}
		for _, stmt := range pragmas {
			if _, err := db.Exec(stmt); err != nil {
				return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
			}
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
	return &SQLStore{db: db, driver: driver}, nil
}

func (s *SQLStore) DB() *sql.DB { return s.db }

func (s *SQLStore) Close() error { return s.db.Close() }

// Migrate applies pending schema migrations.
func (s *SQLStore) Migrate(ctx context.Context, dir string) ([]string, error) {
	return RunMigrations(ctx, s.db, s.driver, dir)
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// rebind rewrites `?` placeholders to `$n` for postgres.
func rebind(driver, q string) string {
	if driver != DriverPostgres {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) exec(ctx context.Context, q querier, query string, args ...any) (sql.Result, error) {
	return q.ExecContext(ctx, rebind(s.driver, query), args...)
}

func (s *SQLStore) query(ctx context.Context, q querier, query string, args ...any) (*sql.Rows, error) {
	return q.QueryContext(ctx, rebind(s.driver, query), args...)
}

func (s *SQLStore) queryRow(ctx context.Context, q querier, query string, args ...any) *sql.Row {
	return q.QueryRowContext(ctx, rebind(s.driver, query), args...)
}

func (s *SQLStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pe *pq.Error
	if errors.As(err, &pe) {
		return pe.Code == "23505"
	}
	return false
}

func utc(t time.Time) time.Time { return t.UTC() }

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

func rowsAffected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// ---- catalog

const pairColumns = `id, positive_adjective, negative_adjective, positive_x, positive_y, negative_x, negative_y, quadrant, authority_focus, display_order`

func (s *SQLStore) ListPairs(ctx context.Context) ([]*models.AdjectivePair, error) {
	rows, err := s.query(ctx, s.db, `SELECT `+pairColumns+` FROM pairs ORDER BY display_order, id`)
	if err != nil {
		return nil, fmt.Errorf("list pairs: %w", err)
	}
	defer rows.Close()
	var out []*models.AdjectivePair
	for rows.Next() {
		p := &models.AdjectivePair{}
		if err := rows.Scan(&p.ID, &p.PositiveAdjective, &p.NegativeAdjective,
			&p.PositiveX, &p.PositiveY, &p.NegativeX, &p.NegativeY,
			&p.Quadrant, &p.AuthorityFocus, &p.DisplayOrder); err != nil {
			return nil, fmt.Errorf("scan pair: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLStore) ListPairTranslations(ctx context.Context, language string) ([]*models.PairTranslation, error) {
	rows, err := s.query(ctx, s.db,
		`SELECT pair_id, language, positive_adjective, negative_adjective FROM pair_translations WHERE language = ? ORDER BY pair_id`,
		language)
	if err != nil {
		return nil, fmt.Errorf("list translations: %w", err)
	}
	defer rows.Close()
	out := []*models.PairTranslation{}
	for rows.Next() {
		tr := &models.PairTranslation{}
		if err := rows.Scan(&tr.PairID, &tr.Language, &tr.PositiveAdjective, &tr.NegativeAdjective); err != nil {
			return nil, fmt.Errorf("scan translation: %w", err)
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}

func (s *SQLStore) UpsertPair(ctx context.Context, p *models.AdjectivePair) error {
	_, err := s.exec(ctx, s.db, `INSERT INTO pairs (`+pairColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    positive_adjective = excluded.positive_adjective,
    negative_adjective = excluded.negative_adjective,
    positive_x = excluded.positive_x,
    positive_y = excluded.positive_y,
    negative_x = excluded.negative_x,
    negative_y = excluded.negative_y,
    quadrant = excluded.quadrant,
    authority_focus = excluded.authority_focus,
    display_order = excluded.display_order`,
		p.ID, p.PositiveAdjective, p.NegativeAdjective, p.PositiveX, p.PositiveY,
		p.NegativeX, p.NegativeY, p.Quadrant, p.AuthorityFocus, p.DisplayOrder)
	if err != nil {
		return fmt.Errorf("upsert pair %s: %w", p.ID, err)
	}
	return nil
}

func (s *SQLStore) UpsertPairTranslation(ctx context.Context, tr *models.PairTranslation) error {
	_, err := s.exec(ctx, s.db, `INSERT INTO pair_translations (pair_id, language, positive_adjective, negative_adjective)
VALUES (?, ?, ?, ?)
ON CONFLICT (pair_id, language) DO UPDATE SET
    positive_adjective = excluded.positive_adjective,
    negative_adjective = excluded.negative_adjective`,
		tr.PairID, tr.Language, tr.PositiveAdjective, tr.NegativeAdjective)
	if err != nil {
		return fmt.Errorf("upsert translation %s/%s: %w", tr.PairID, tr.Language, err)
	}
	return nil
}

// ---- users

const userColumns = `id, email, name, pass_hash, role, locale, created_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	u := &models.User{}
	var hash, role string
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &hash, &role, &u.Locale, &u.CreatedAt); err != nil {
		return nil, err
	}
	if hash != "" {
		u.PassHash = []byte(hash)
	}
	u.Role = models.Role(role)
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}

func (s *SQLStore) AddUser(ctx context.Context, u *models.User) error {
	_, err := s.exec(ctx, s.db, `INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, string(u.PassHash), string(u.Role), u.Locale, utc(u.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return services.NewConflictError("email exists")
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *SQLStore) getUser(ctx context.Context, where string, arg any) (*models.User, error) {
	u, err := scanUser(s.queryRow(ctx, s.db, `SELECT `+userColumns+` FROM users WHERE `+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *SQLStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.getUser(ctx, `id = ?`, id)
}

func (s *SQLStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, `LOWER(email) = LOWER(?)`, email)
}

// ---- teams

const teamColumns = `id, name, owner_id, results_released_at, results_released_by, created_at, updated_at`

func scanTeam(row interface{ Scan(...any) error }) (*models.Team, error) {
	t := &models.Team{}
	var released sql.NullTime
	if err := row.Scan(&t.ID, &t.Name, &t.OwnerID, &released, &t.ResultsReleasedBy, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.ResultsReleasedAt = timePtr(released)
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return t, nil
}

func (s *SQLStore) listTeams(ctx context.Context, where string, args ...any) ([]*models.Team, error) {
	q := `SELECT ` + teamColumns + ` FROM teams`
	if where != "" {
		q += ` WHERE ` + where
	}
	rows, err := s.query(ctx, s.db, q+` ORDER BY created_at DESC, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	defer rows.Close()
	out := []*models.Team{}
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("scan team: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLStore) CreateTeam(ctx context.Context, team *models.Team, invites []*models.Invitation) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := s.exec(ctx, tx, `INSERT INTO teams (`+teamColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			team.ID, team.Name, team.OwnerID, nullTime(team.ResultsReleasedAt), team.ResultsReleasedBy,
			utc(team.CreatedAt), utc(team.UpdatedAt))
		if err != nil {
			if isUniqueViolation(err) {
				return services.NewConflictError("team exists")
			}
			return fmt.Errorf("insert team: %w", err)
		}
		for _, inv := range invites {
			if err := s.insertInvitation(ctx, tx, inv); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLStore) GetTeam(ctx context.Context, id string) (*models.Team, error) {
	t, err := scanTeam(s.queryRow(ctx, s.db, `SELECT `+teamColumns+` FROM teams WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get team: %w", err)
	}
	return t, nil
}

func (s *SQLStore) ListTeams(ctx context.Context) ([]*models.Team, error) {
	return s.listTeams(ctx, "")
}

func (s *SQLStore) ListTeamsForUser(ctx context.Context, userID string) ([]*models.Team, error) {
	return s.listTeams(ctx, `owner_id = ? OR id IN (SELECT team_id FROM invitations WHERE user_id = ?)`, userID, userID)
}

// ReleaseTeamResults stamps the release once; later calls report false.
func (s *SQLStore) ReleaseTeamResults(ctx context.Context, teamID, by string, at time.Time) (bool, error) {
	res, err := s.exec(ctx, s.db,
		`UPDATE teams SET results_released_at = ?, results_released_by = ?, updated_at = ? WHERE id = ? AND results_released_at IS NULL`,
		utc(at), by, utc(at), teamID)
	if err != nil {
		return false, fmt.Errorf("release team %s: %w", teamID, err)
	}
	return rowsAffected(res)
}

// DeleteTeam removes answers, then invitations, then the team.
func (s *SQLStore) DeleteTeam(ctx context.Context, teamID string) (bool, error) {
	var deleted bool
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.exec(ctx, tx, `DELETE FROM answers WHERE invitation_id IN (SELECT id FROM invitations WHERE team_id = ?)`, teamID); err != nil {
			return fmt.Errorf("delete answers: %w", err)
		}
		if _, err := s.exec(ctx, tx, `DELETE FROM invitations WHERE team_id = ?`, teamID); err != nil {
			return fmt.Errorf("delete invitations: %w", err)
		}
		res, err := s.exec(ctx, tx, `DELETE FROM teams WHERE id = ?`, teamID)
		if err != nil {
			return fmt.Errorf("delete team: %w", err)
		}
		deleted, err = rowsAffected(res)
		return err
	})
	return deleted, err
}

// ---- invitations

const invitationColumns = `id, invite_token, email, team_id, user_id, status, created_at, completed_at, last_reminder_sent_at`

func scanInvitation(row interface{ Scan(...any) error }) (*models.Invitation, error) {
	inv := &models.Invitation{}
	var status string
	var completed, reminded sql.NullTime
	if err := row.Scan(&inv.ID, &inv.InviteToken, &inv.Email, &inv.TeamID, &inv.UserID, &status,
		&inv.CreatedAt, &completed, &reminded); err != nil {
		return nil, err
	}
	inv.Status = models.InviteStatus(status)
	inv.CreatedAt = inv.CreatedAt.UTC()
	inv.CompletedAt = timePtr(completed)
	inv.LastReminderSentAt = timePtr(reminded)
	return inv, nil
}

func (s *SQLStore) insertInvitation(ctx context.Context, q querier, inv *models.Invitation) error {
	_, err := s.exec(ctx, q, `INSERT INTO invitations (`+invitationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.InviteToken, inv.Email, inv.TeamID, inv.UserID, string(inv.Status),
		utc(inv.CreatedAt), nullTime(inv.CompletedAt), nullTime(inv.LastReminderSentAt))
	if err != nil {
		if isUniqueViolation(err) {
			return services.NewConflictError("invitation exists")
		}
		return fmt.Errorf("insert invitation: %w", err)
	}
	return nil
}

func (s *SQLStore) listInvitations(ctx context.Context, where string, args ...any) ([]*models.Invitation, error) {
	rows, err := s.query(ctx, s.db, `SELECT `+invitationColumns+` FROM invitations WHERE `+where+` ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	defer rows.Close()
	out := []*models.Invitation{}
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invitation: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (s *SQLStore) AddInvitation(ctx context.Context, inv *models.Invitation) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var one int
		err := s.queryRow(ctx, tx, `SELECT 1 FROM teams WHERE id = ?`, inv.TeamID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return services.NewNotFoundError("team not found")
		}
		if err != nil {
			return fmt.Errorf("check team: %w", err)
		}
		return s.insertInvitation(ctx, tx, inv)
	})
}

func (s *SQLStore) GetInvitationByToken(ctx context.Context, token string) (*models.Invitation, error) {
	inv, err := scanInvitation(s.queryRow(ctx, s.db, `SELECT `+invitationColumns+` FROM invitations WHERE invite_token = ?`, token))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get invitation: %w", err)
	}
	return inv, nil
}

func (s *SQLStore) ListInvitationsByTeam(ctx context.Context, teamID string) ([]*models.Invitation, error) {
	return s.listInvitations(ctx, `team_id = ?`, teamID)
}

func (s *SQLStore) ListPendingInvitations(ctx context.Context, createdAfter time.Time) ([]*models.Invitation, error) {
	return s.listInvitations(ctx, `status = ? AND created_at > ?`, string(models.InvitePending), utc(createdAfter))
}

func (s *SQLStore) MarkReminderSent(ctx context.Context, invitationID string, at time.Time) error {
	if _, err := s.exec(ctx, s.db, `UPDATE invitations SET last_reminder_sent_at = ? WHERE id = ?`, utc(at), invitationID); err != nil {
		return fmt.Errorf("mark reminder %s: %w", invitationID, err)
	}
	return nil
}

// CompleteInvitation flips PENDING to COMPLETED and replaces the answers in
// one transaction. It reports false when the invitation was not PENDING, in
// which case nothing is written.
func (s *SQLStore) CompleteInvitation(ctx context.Context, invitationID string, answers []*models.Answer, at time.Time) (bool, error) {
	var won bool
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := s.exec(ctx, tx,
			`UPDATE invitations SET status = ?, completed_at = ? WHERE id = ? AND status = ?`,
			string(models.InviteCompleted), utc(at), invitationID, string(models.InvitePending))
		if err != nil {
			return fmt.Errorf("complete invitation: %w", err)
		}
		if won, err = rowsAffected(res); err != nil || !won {
			return err
		}
		if _, err := s.exec(ctx, tx, `DELETE FROM answers WHERE invitation_id = ?`, invitationID); err != nil {
			return fmt.Errorf("clear answers: %w", err)
		}
		for _, a := range answers {
			created := a.CreatedAt
			if created.IsZero() {
				created = at
			}
			if _, err := s.exec(ctx, tx,
				`INSERT INTO answers (invitation_id, pair_id, polarity, weight, created_at) VALUES (?, ?, ?, ?, ?)`,
				invitationID, a.PairID, string(a.Polarity), string(a.Weight), utc(created)); err != nil {
				return fmt.Errorf("insert answer %s: %w", a.PairID, err)
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return won, nil
}

// ---- answers

func (s *SQLStore) listAnswers(ctx context.Context, query string, arg any) ([]*models.Answer, error) {
	rows, err := s.query(ctx, s.db, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	defer rows.Close()
	out := []*models.Answer{}
	for rows.Next() {
		a := &models.Answer{}
		var polarity, weight string
		if err := rows.Scan(&a.InvitationID, &a.PairID, &polarity, &weight, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		a.Polarity = models.Polarity(polarity)
		a.Weight = models.Weight(weight)
		a.CreatedAt = a.CreatedAt.UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLStore) ListAnswers(ctx context.Context, invitationID string) ([]*models.Answer, error) {
	return s.listAnswers(ctx,
		`SELECT invitation_id, pair_id, polarity, weight, created_at FROM answers WHERE invitation_id = ? ORDER BY pair_id`,
		invitationID)
}

func (s *SQLStore) ListAnswersByTeam(ctx context.Context, teamID string) ([]*models.Answer, error) {
	return s.listAnswers(ctx, `SELECT a.invitation_id, a.pair_id, a.polarity, a.weight, a.created_at
FROM answers a JOIN invitations i ON i.id = a.invitation_id
WHERE i.team_id = ?
ORDER BY a.invitation_id, a.pair_id`, teamID)
}

// ---- audit

func (s *SQLStore) AddAudit(ctx context.Context, e models.AuditEntry) error {
	// v7 ids sort by creation time, which keeps ListAudit stable within a timestamp
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("audit id: %w", err)
	}
	if _, err := s.exec(ctx, s.db, `INSERT INTO audit_log (id, at, actor, action, target, note) VALUES (?, ?, ?, ?, ?, ?)`,
		id.String(), utc(e.Time), e.Actor, e.Action, e.Target, e.Note); err != nil {
		return fmt.Errorf("insert audit: %w", err)
	}
	return nil
}

// ListAudit returns the newest entries first; limit <= 0 means all.
func (s *SQLStore) ListAudit(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	q := `SELECT at, actor, action, target, note FROM audit_log ORDER BY at DESC, id DESC`
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.query(ctx, s.db, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	defer rows.Close()
	out := []models.AuditEntry{}
	for rows.Next() {
		var e models.AuditEntry
		if err := rows.Scan(&e.Time, &e.Actor, &e.Action, &e.Target, &e.Note); err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		e.Time = e.Time.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}
