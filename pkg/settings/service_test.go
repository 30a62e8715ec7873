//nolint:thelper,whitespace,lll,funlen // ok for tests
package settings

import (
	"context"
	"testing"
	"time"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/mpapenbr/iracehud-go/testsupport/testdb"
)

func TestService_GetPersistsDefaults(t *testing.T) {
	ctx := context.Background()
	db := testdb.InitTestDB(t)
	svc := NewService(db)

	doc, err := svc.Get(ctx, Standings)
	assert.NilError(t, err)
	assert.Equal(t, string(doc.Data), standingsDefault)

	stored, err := LoadByOverlay(ctx, db, Standings)
	assert.NilError(t, err)
	assert.Equal(t, stored.Digest, doc.Digest)

	_, err = svc.Get(ctx, "radar")
	assert.ErrorIs(t, err, ErrUnknownOverlay)
}

func TestService_Put(t *testing.T) {
	ctx := context.Background()
	db := testdb.InitTestDB(t)
	var changed []string
	svc := NewService(db, WithChangeListener(func(_ context.Context, doc *Document) {
		changed = append(changed, doc.Overlay)
	}))
	svc.now = func() time.Time { return time.UnixMilli(1700000000000) }

	before, err := svc.Get(ctx, Standings)
	assert.NilError(t, err)

	doc, err := svc.Put(ctx, Standings, []byte(`{"max_drivers":12,"top_drivers":4}`))
	assert.NilError(t, err)
	assert.Assert(t, doc.Digest != before.Digest)
	assert.DeepEqual(t, changed, []string{Standings})

	current, err := svc.Standings(ctx)
	assert.NilError(t, err)
	assert.Equal(t, current.MaxDrivers, 12)
	assert.Equal(t, current.TopDrivers, 4)

	stored, err := LoadByOverlay(ctx, db, Standings)
	assert.NilError(t, err)
	assert.Equal(t, stored.UpdatedAt.UnixMilli(), int64(1700000000000))

	_, err = svc.Put(ctx, Standings, []byte(`{"max_drivers":-1}`))
	assert.ErrorIs(t, err, ErrInvalidSettings)
	assert.Assert(t, is.Len(changed, 1), "rejected documents are not announced")
}

func TestService_Reset(t *testing.T) {
	ctx := context.Background()
	db := testdb.InitTestDB(t)
	svc := NewService(db)

	_, err := svc.Put(ctx, Standings, []byte(`{"max_drivers":7}`))
	assert.NilError(t, err)
	doc, err := svc.Reset(ctx, Standings)
	assert.NilError(t, err)
	assert.Equal(t, string(doc.Data), standingsDefault)

	_, err = svc.Reset(ctx, "radar")
	assert.ErrorIs(t, err, ErrUnknownOverlay)
}

func TestService_InvalidStoredDocument(t *testing.T) {
	ctx := context.Background()
	db := testdb.InitTestDB(t)
	_, err := db.ExecContext(ctx,
		`insert into overlay_settings (overlay, data, digest, updated_at) values ('relative','{"bogus":1}','x',0)`)
	assert.NilError(t, err)

	doc, err := NewService(db).Get(ctx, Relative)
	assert.NilError(t, err)
	want, err := DefaultDocument(Relative)
	assert.NilError(t, err)
	assert.DeepEqual(t, doc, want)
}

func TestLoadAll(t *testing.T) {
	ctx := context.Background()
	db := testdb.InitTestDB(t)
	for _, id := range []string{Timer, Relative} {
		doc, err := DefaultDocument(id)
		assert.NilError(t, err)
		assert.NilError(t, Upsert(ctx, db, doc, time.Now()))
	}
	all, err := LoadAll(ctx, db)
	assert.NilError(t, err)
	assert.Assert(t, is.Len(all, 2))
	assert.Equal(t, all[0].Overlay, Relative)
	assert.Equal(t, all[1].Overlay, Timer)

	n, err := DeleteByOverlay(ctx, db, Timer)
	assert.NilError(t, err)
	assert.Equal(t, n, 1)
}
