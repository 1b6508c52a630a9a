package sqldb

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/wansing/infodesk/auth"
	"github.com/wansing/infodesk/core"
)

const accountColumns = "id, email, fullname, role, capabilities, password, approved_at, created_at, updated_at"

type AccountDB struct {
	*sql.DB
	get                *sql.Stmt
	getByEmail         *sql.Stmt
	insert             *sql.Stmt
	updateCapabilities *sql.Stmt
	updatePassword     *sql.Stmt
}

func NewAccountDB(db *sql.DB, dialect Dialect) *AccountDB {

	mustExec(db,
		`CREATE TABLE IF NOT EXISTS usr (
			id `+dialect.primaryKey()+`,
			email varchar(254) NOT NULL,
			fullname varchar(255) NOT NULL DEFAULT '',
			role varchar(100) NOT NULL DEFAULT '',
			capabilities INTEGER NOT NULL DEFAULT 0,
			password varchar(128) NOT NULL,
			approved_at BIGINT NULL,
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL,
			UNIQUE (email)
		)`+dialect.tableOptions())
	tryExec(db, dialect.createIndex("usr_created_idx", "usr", "created_at"))

	var accountDB = &AccountDB{}
	accountDB.DB = db
	accountDB.get = mustPrepare(db, "SELECT "+accountColumns+" FROM usr WHERE id = ?")
	accountDB.getByEmail = mustPrepare(db, "SELECT "+accountColumns+" FROM usr WHERE email = ?")
	accountDB.insert = mustPrepare(db, "INSERT INTO usr (email, fullname, role, capabilities, password, approved_at, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)")
	accountDB.updateCapabilities = mustPrepare(db, "UPDATE usr SET capabilities = ?, approved_at = ?, updated_at = ? WHERE id = ?")
	accountDB.updatePassword = mustPrepare(db, "UPDATE usr SET password = ?, updated_at = ? WHERE id = ?")
	return accountDB
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAccount(row scanner) (*core.Account, error) {
	var a = &core.Account{}
	var caps int64
	var approvedAt sql.NullInt64
	var createdAt, updatedAt int64
	if err := row.Scan(&a.ID, &a.Email, &a.DisplayName, &a.Role, &caps, &a.PasswordHash, &approvedAt, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if a.Capabilities, err = auth.ParseCapabilities(caps); err != nil {
		return nil, err
	}
	a.ApprovedAt = fromNullUnix(approvedAt)
	a.CreatedAt = fromUnix(createdAt)
	a.UpdatedAt = fromUnix(updatedAt)
	return a, nil
}

func (db *AccountDB) InsertAccount(ctx context.Context, a *core.Account) error {
	result, err := db.insert.ExecContext(ctx, a.Email, a.DisplayName, a.Role, a.Capabilities.Int64(), a.PasswordHash, toNullUnix(a.ApprovedAt), toUnix(a.CreatedAt), toUnix(a.UpdatedAt))
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

func (db *AccountDB) GetAccount(ctx context.Context, id int) (*core.Account, error) {
	a, err := scanAccount(db.get.QueryRowContext(ctx, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	return a, err
}

func (db *AccountDB) GetAccountByEmail(ctx context.Context, email string) (*core.Account, error) {
	a, err := scanAccount(db.getByEmail.QueryRowContext(ctx, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	return a, err
}

func (db *AccountDB) GetAccounts(ctx context.Context, ids []int) (map[int]*core.Account, error) {

	var result = make(map[int]*core.Account, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	query, args, err := sq.Select(accountColumns).From("usr").Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		result[a.ID] = a
	}
	return result, rows.Err()
}

// capabilityMask returns the stored bits which satisfy c.
func capabilityMask(c auth.Capability) int64 {
	if c == auth.CanApprove {
		return int64(auth.Approver | auth.Superuser)
	}
	return int64(c)
}

func (db *AccountDB) ListAccounts(ctx context.Context, filter core.AccountFilter) ([]*core.Account, error) {

	var page = filter.Page.Normalize()
	var builder = sq.Select(accountColumns).From("usr")
	if filter.With != auth.None {
		builder = builder.Where("capabilities & ? <> 0", capabilityMask(filter.With))
	}
	if filter.Without != auth.None {
		builder = builder.Where("capabilities & ? = 0", capabilityMask(filter.Without))
	}
	builder = builder.
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(page.Limit)).
		Offset(uint64(page.Offset))

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var all = []*core.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		all = append(all, a)
	}
	return all, rows.Err()
}

func (db *AccountDB) UpdateCapabilities(ctx context.Context, a *core.Account) error {
	_, err := db.updateCapabilities.ExecContext(ctx, a.Capabilities.Int64(), toNullUnix(a.ApprovedAt), toUnix(a.UpdatedAt), a.ID)
	return err
}

func (db *AccountDB) UpdatePasswordHash(ctx context.Context, a *core.Account) error {
	if a.ID == 0 {
		return errors.New("can't set password of account 0")
	}
	_, err := db.updatePassword.ExecContext(ctx, a.PasswordHash, toUnix(a.UpdatedAt), a.ID)
	return err
}
