package quote

import (
	"context"
	"database/sql"
	stdErrors "errors"
	"io/fs"
	"sort"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"CryptoChat-Agent/deploy/migrations"
	xerrors "CryptoChat-Agent/internal/errors"
)

// MySQLStore 使用 MySQL 记录行情审计流水。
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore 创建一个新的 MySQLStore。
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "MySQL DSN 不能为空")
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeAuditStorage, err, "连接 MySQL 失败")
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(10 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeAuditStorage, err, "无法连接到 MySQL")
	}

	store := &MySQLStore{db: db}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// initSchema 按文件名顺序执行内嵌的 SQL 迁移。
func (s *MySQLStore) initSchema() error {
	entries, err := fs.Glob(migrations.Files, "*.sql")
	if err != nil {
		return xerrors.Wrap(xerrors.CodeAuditStorage, err, "枚举迁移文件失败")
	}
	sort.Strings(entries)
	for _, name := range entries {
		content, err := fs.ReadFile(migrations.Files, name)
		if err != nil {
			return xerrors.Wrap(xerrors.CodeAuditStorage, err, "读取迁移文件失败: "+name)
		}
		for _, stmt := range strings.Split(string(content), ";") {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}
			if _, err := s.db.Exec(stmt); err != nil {
				return xerrors.Wrap(xerrors.CodeAuditStorage, err, "执行迁移失败: "+name)
			}
		}
	}
	return nil
}

// Create 插入一条新的审计记录。
func (s *MySQLStore) Create(ctx context.Context, record *Record) error {
	if record == nil || record.ID == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "审计记录缺少 ID")
	}
	if record.CreatedAt == 0 {
		record.CreatedAt = time.Now().Unix()
	}

	const stmt = `INSERT IGNORE INTO quote_records
        (id, session_id, asset, currency, preferred_source, source, status, price, error_code, last_error, elapsed_ms, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, stmt,
		record.ID,
		record.SessionID,
		record.Asset,
		record.Currency,
		record.PreferredSource,
		record.Source,
		record.Status,
		record.Price,
		record.ErrorCode,
		record.LastError,
		record.ElapsedMS,
		record.CreatedAt,
	)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeAuditStorage, err, "写入审计记录失败")
	}
	return nil
}

// Get 按 ID 查询审计记录。
func (s *MySQLStore) Get(ctx context.Context, id string) (*Record, error) {
	const stmt = `SELECT id, session_id, asset, currency, preferred_source, source, status, price, error_code, last_error, elapsed_ms, created_at
        FROM quote_records WHERE id = ?`

	record, err := scanRecord(s.db.QueryRowContext(ctx, stmt, id))
	if err != nil {
		if stdErrors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, xerrors.Wrap(xerrors.CodeAuditStorage, err, "查询审计记录失败")
	}
	return record, nil
}

// ListLatest 按创建时间倒序返回最近的记录。
func (s *MySQLStore) ListLatest(ctx context.Context, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 20
	}
	const stmt = `SELECT id, session_id, asset, currency, preferred_source, source, status, price, error_code, last_error, elapsed_ms, created_at
        FROM quote_records ORDER BY created_at DESC, id DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, stmt, limit)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeAuditStorage, err, "查询审计记录失败")
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, xerrors.Wrap(xerrors.CodeAuditStorage, err, "解析审计记录失败")
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeAuditStorage, err, "遍历审计记录失败")
	}
	return out, nil
}

// Close 释放数据库连接。
func (s *MySQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var record Record
	var lastError sql.NullString
	if err := row.Scan(
		&record.ID,
		&record.SessionID,
		&record.Asset,
		&record.Currency,
		&record.PreferredSource,
		&record.Source,
		&record.Status,
		&record.Price,
		&record.ErrorCode,
		&lastError,
		&record.ElapsedMS,
		&record.CreatedAt,
	); err != nil {
		return nil, err
	}
	record.LastError = lastError.String
	return &record, nil
}
