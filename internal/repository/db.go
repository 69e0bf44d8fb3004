package repository

import (
	"context"
	"database/sql"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// DB はX-Rayのサブセグメントを記録するsqlx.DBのラッパーです
type DB struct {
	*sqlx.DB
	log *logrus.Entry
}

// NewDB は接続済みのsqlx.DBをラップします
func NewDB(conn *sqlx.DB, log *logrus.Entry) *DB {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &DB{DB: conn, log: log}
}

func (db *DB) beginQuery(ctx context.Context, name, query string) (context.Context, *xray.Segment) {
	ctx, seg := xray.BeginSubsegment(ctx, name)
	if seg == nil {
		return ctx, nil
	}
	// クエリをメタデータとして追加
	if err := seg.AddMetadata("query", query); err != nil {
		db.log.WithError(err).Warn("failed to add query metadata")
	}
	return ctx, seg
}

func closeSegment(seg *xray.Segment, err error) {
	if seg != nil {
		seg.Close(err)
	}
}

// QueryxContext wraps sqlx.DB.QueryxContext with X-Ray tracing
func (db *DB) QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error) {
	ctx, seg := db.beginQuery(ctx, "DB.Queryx", query)
	rows, err := db.DB.QueryxContext(ctx, query, args...)
	closeSegment(seg, err)
	return rows, err
}

// QueryRowxContext wraps sqlx.DB.QueryRowxContext with X-Ray tracing
func (db *DB) QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row {
	ctx, seg := db.beginQuery(ctx, "DB.QueryRowx", query)
	row := db.DB.QueryRowxContext(ctx, query, args...)
	closeSegment(seg, row.Err())
	return row
}

// ExecContext wraps sqlx.DB.ExecContext with X-Ray tracing
func (db *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	ctx, seg := db.beginQuery(ctx, "DB.Exec", query)
	result, err := db.DB.ExecContext(ctx, query, args...)
	closeSegment(seg, err)
	return result, err
}
