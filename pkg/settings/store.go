//nolint:whitespace //can't make both the linter and editor happy :(
package settings

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Querier is satisfied by *sql.DB and *sql.Tx
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// StoredDocument is a Document as persisted
type StoredDocument struct {
	Document
	UpdatedAt time.Time
}

// Upsert stores doc, replacing a previous document of the same overlay
func Upsert(ctx context.Context, conn Querier, doc *Document, at time.Time) error {
	_, err := conn.ExecContext(ctx,
		`insert into overlay_settings (overlay, data, digest, updated_at) values (?,?,?,?)
		on conflict(overlay) do update set
		data=excluded.data, digest=excluded.digest, updated_at=excluded.updated_at`,
		doc.Overlay, string(doc.Data), doc.Digest, at.UnixMilli())
	return err
}

// LoadByOverlay returns sql.ErrNoRows if nothing is stored for overlay
func LoadByOverlay(
	ctx context.Context,
	conn Querier,
	overlay string,
) (*StoredDocument, error) {
	row := conn.QueryRowContext(ctx, selector+" where overlay=?", overlay)
	var item StoredDocument
	if err := scan(&item, row); err != nil {
		return nil, err
	}
	return &item, nil
}

func LoadAll(ctx context.Context, conn Querier) ([]*StoredDocument, error) {
	rows, err := conn.QueryContext(ctx, selector+" order by overlay")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ret := []*StoredDocument{}
	for rows.Next() {
		var item StoredDocument
		if err := scan(&item, rows); err != nil {
			return nil, err
		}
		ret = append(ret, &item)
	}
	return ret, rows.Err()
}

// DeleteByOverlay returns the number of rows deleted
func DeleteByOverlay(ctx context.Context, conn Querier, overlay string) (int, error) {
	res, err := conn.ExecContext(ctx, "delete from overlay_settings where overlay=?", overlay)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// little helper
const selector = `select overlay, data, digest, updated_at from overlay_settings`

type scanner interface {
	Scan(dest ...any) error
}

func scan(e *StoredDocument, row scanner) error {
	var data string
	var updated int64
	if err := row.Scan(&e.Overlay, &data, &e.Digest, &updated); err != nil {
		return err
	}
	e.Data = []byte(data)
	e.UpdatedAt = time.UnixMilli(updated)
	return nil
}
