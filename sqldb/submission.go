package sqldb

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/wansing/infodesk/core"
)

const (
	pendingColumns = "id, heading, description, image, submitted_by, submitted_at, status"
	activeColumns  = "id, pending_id, heading, description, image, submitted_by, approved_by, approved_at, created_at"
)

type SubmissionDB struct {
	*sql.DB
	getPending    *sql.Stmt
	insertActive  *sql.Stmt
	insertPending *sql.Stmt
	setStatus     *sql.Stmt
}

func NewSubmissionDB(db *sql.DB, dialect Dialect) *SubmissionDB {

	mustExec(db,
		`CREATE TABLE IF NOT EXISTS pending_info (
			id `+dialect.primaryKey()+`,
			heading varchar(200) NOT NULL,
			description TEXT NOT NULL,
			image varchar(255) NOT NULL DEFAULT '',
			submitted_by INTEGER NOT NULL,
			submitted_at BIGINT NOT NULL,
			status varchar(16) NOT NULL DEFAULT 'pending',
			FOREIGN KEY (submitted_by) REFERENCES usr (id) ON DELETE CASCADE
		)`+dialect.tableOptions(),
		`CREATE TABLE IF NOT EXISTS active_info (
			id `+dialect.primaryKey()+`,
			pending_id INTEGER NULL,
			heading varchar(200) NOT NULL,
			description TEXT NOT NULL,
			image varchar(255) NOT NULL DEFAULT '',
			submitted_by INTEGER NOT NULL,
			approved_by INTEGER NOT NULL,
			approved_at BIGINT NOT NULL,
			created_at BIGINT NOT NULL,
			UNIQUE (pending_id),
			FOREIGN KEY (pending_id) REFERENCES pending_info (id) ON DELETE CASCADE,
			FOREIGN KEY (submitted_by) REFERENCES usr (id) ON DELETE CASCADE,
			FOREIGN KEY (approved_by) REFERENCES usr (id) ON DELETE CASCADE
		)`+dialect.tableOptions())
	tryExec(db,
		dialect.createIndex("pending_info_status_idx", "pending_info", "status, submitted_at"),
		dialect.createIndex("pending_info_submitter_idx", "pending_info", "submitted_by"),
		dialect.createIndex("active_info_approved_idx", "active_info", "approved_at"),
		dialect.createIndex("active_info_submitter_idx", "active_info", "submitted_by"))

	var submissionDB = &SubmissionDB{}
	submissionDB.DB = db
	submissionDB.getPending = mustPrepare(db, "SELECT "+pendingColumns+" FROM pending_info WHERE id = ?")
	submissionDB.insertActive = mustPrepare(db, "INSERT INTO active_info (pending_id, heading, description, image, submitted_by, approved_by, approved_at, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)")
	submissionDB.insertPending = mustPrepare(db, "INSERT INTO pending_info (heading, description, image, submitted_by, submitted_at, status) VALUES (?, ?, ?, ?, ?, ?)")
	submissionDB.setStatus = mustPrepare(db, "UPDATE pending_info SET status = ? WHERE id = ? AND status = ?")
	return submissionDB
}

func scanPending(row scanner) (*core.PendingSubmission, error) {
	var p = &core.PendingSubmission{}
	var submittedAt int64
	var status string
	if err := row.Scan(&p.ID, &p.Heading, &p.Description, &p.Image, &p.SubmitterID, &submittedAt, &status); err != nil {
		return nil, err
	}
	var err error
	if p.Status, err = core.ParseStatus(status); err != nil {
		return nil, err
	}
	p.SubmittedAt = fromUnix(submittedAt)
	return p, nil
}

func scanActive(row scanner) (*core.ActiveSubmission, error) {
	var a = &core.ActiveSubmission{}
	var pendingID sql.NullInt64
	var approvedAt, createdAt int64
	if err := row.Scan(&a.ID, &pendingID, &a.Heading, &a.Description, &a.Image, &a.SubmitterID, &a.ApproverID, &approvedAt, &createdAt); err != nil {
		return nil, err
	}
	a.PendingID = int(pendingID.Int64)
	a.ApprovedAt = fromUnix(approvedAt)
	a.CreatedAt = fromUnix(createdAt)
	return a, nil
}

func nullID(id int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(id), Valid: id != 0}
}

func (db *SubmissionDB) InsertPending(ctx context.Context, p *core.PendingSubmission) error {
	result, err := db.insertPending.ExecContext(ctx, p.Heading, p.Description, p.Image, p.SubmitterID, toUnix(p.SubmittedAt), string(p.Status))
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = int(id)
	return nil
}

func insertActive(ctx context.Context, stmt *sql.Stmt, a *core.ActiveSubmission) error {
	result, err := stmt.ExecContext(ctx, nullID(a.PendingID), a.Heading, a.Description, a.Image, a.SubmitterID, a.ApproverID, toUnix(a.ApprovedAt), toUnix(a.CreatedAt))
	if err != nil {
		if isDuplicate(err) {
			return core.ErrDuplicate
		}
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = int(id)
	return nil
}

func (db *SubmissionDB) InsertActive(ctx context.Context, a *core.ActiveSubmission) error {
	return insertActive(ctx, db.insertActive, a)
}

func (db *SubmissionDB) GetPending(ctx context.Context, id int) (*core.PendingSubmission, error) {
	p, err := scanPending(db.getPending.QueryRowContext(ctx, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	return p, err
}

func (db *SubmissionDB) Transition(ctx context.Context, id int, to core.Status, active *core.ActiveSubmission) error {

	if !core.StatusPending.CanTransition(to) {
		return core.ErrNotFound
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	result, err := tx.StmtContext(ctx, db.setStatus).ExecContext(ctx, string(to), id, string(core.StatusPending))
	if err != nil {
		tx.Rollback()
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		tx.Rollback()
		return err
	}
	if affected == 0 {
		tx.Rollback()
		return core.ErrNotFound // missing or processed concurrently
	}

	if active != nil {
		if err := insertActive(ctx, tx.StmtContext(ctx, db.insertActive), active); err != nil {
			tx.Rollback()
			if errors.Is(err, core.ErrDuplicate) {
				return core.ErrNotFound
			}
			return err
		}
	}

	return tx.Commit()
}

func (db *SubmissionDB) query(ctx context.Context, builder sq.SelectBuilder, page core.Page) (*sql.Rows, error) {
	page = page.Normalize()
	query, args, err := builder.
		Limit(uint64(page.Limit)).
		Offset(uint64(page.Offset)).
		ToSql()
	if err != nil {
		return nil, err
	}
	return db.QueryContext(ctx, query, args...)
}

func (db *SubmissionDB) ListPending(ctx context.Context, filter core.SubmissionFilter) ([]*core.PendingSubmission, error) {

	var builder = sq.Select(pendingColumns).From("pending_info").OrderBy("submitted_at DESC", "id DESC")
	if filter.Status != "" {
		builder = builder.Where(sq.Eq{"status": string(filter.Status)})
	}
	if filter.SubmitterID != 0 {
		builder = builder.Where(sq.Eq{"submitted_by": filter.SubmitterID})
	}

	rows, err := db.query(ctx, builder, filter.Page)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var all = []*core.PendingSubmission{}
	for rows.Next() {
		p, err := scanPending(rows)
		if err != nil {
			return nil, err
		}
		all = append(all, p)
	}
	return all, rows.Err()
}

func (db *SubmissionDB) ListActive(ctx context.Context, filter core.SubmissionFilter) ([]*core.ActiveSubmission, error) {

	var builder = sq.Select(activeColumns).From("active_info").OrderBy("approved_at DESC", "id DESC")
	if filter.SubmitterID != 0 {
		builder = builder.Where(sq.Eq{"submitted_by": filter.SubmitterID})
	}

	rows, err := db.query(ctx, builder, filter.Page)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var all = []*core.ActiveSubmission{}
	for rows.Next() {
		a, err := scanActive(rows)
		if err != nil {
			return nil, err
		}
		all = append(all, a)
	}
	return all, rows.Err()
}
