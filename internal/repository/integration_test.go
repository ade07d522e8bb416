package repository

// These tests exercise the repositories against a real MySQL instance and
// are skipped unless INTEGRATION_TESTS=1.  Connection settings come from
// the usual DB_* environment variables; the schema from schema.sql must be
// loaded beforehand.

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdrinv/inventory-api/internal/auth"
	"github.com/pdrinv/inventory-api/internal/config"
	"github.com/pdrinv/inventory-api/internal/database"
	"github.com/pdrinv/inventory-api/internal/model"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	if os.Getenv("INTEGRATION_TESTS") != "1" {
		t.Skip("set INTEGRATION_TESTS=1 to run repository tests")
	}
	db, err := database.Open(
		envOr("DB_USER", "root"),
		os.Getenv("DB_PASS"),
		envOr("DB_HOST", "127.0.0.1"),
		envOr("DB_PORT", "3306"),
		envOr("DB_NAME", "inventory_test"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func uniq(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

func seedUser(t *testing.T, db *sql.DB, role string) *model.User {
	t.Helper()
	u, err := NewUserRepo(db).Create(context.Background(), uniq("user"), "x", role, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = db.Exec(`DELETE FROM app_users WHERE id = ?`, u.ID)
	})
	return u
}

func principalFor(u *model.User) auth.Principal {
	kind, round := auth.ParseRole(u.Role)
	return auth.Principal{UserID: u.ID, Username: u.Username, Kind: kind, Round: round}
}

func seedArticle(t *testing.T, db *sql.DB, stock string) *model.Article {
	t.Helper()
	a, err := NewArticleRepo(db).Create(context.Background(), &model.Article{
		Numero:        uniq("ART"),
		StockQuantity: decimal.RequireFromString(stock),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = db.Exec(`DELETE FROM articles WHERE id = ?`, a.ID)
	})
	return a
}

func seedSession(t *testing.T, db *sql.DB, creator uint64) *model.Session {
	t.Helper()
	s, err := NewSessionRepo(db).Create(context.Background(), uniq("session"), "D01", creator, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = db.Exec(`DELETE FROM inventory_sessions WHERE id = ?`, s.ID)
	})
	return s
}

func historyFor(t *testing.T, db *sql.DB, sessionID, articleID uint64) []model.HistoryEntry {
	t.Helper()
	entries, _, err := NewHistoryRepo(db).List(context.Background(),
		HistoryFilter{SessionID: sessionID, ArticleID: articleID}, 0, 100)
	require.NoError(t, err)
	return entries
}

func TestSubmitCreatesAtVersionOne(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	admin := seedUser(t, db, auth.RoleAdmin)
	counter := seedUser(t, db, auth.CounterRole(1))
	article := seedArticle(t, db, "10")
	session := seedSession(t, db, admin.ID)

	counts := NewCountRepo(db, config.DuplicateModeCorrect)
	c, corrected, err := counts.Submit(ctx, SubmitParams{
		Principal: principalFor(counter),
		SessionID: session.ID,
		ArticleID: article.ID,
		Round:     1,
		Quantity:  decimal.RequireFromString("7"),
	})
	require.NoError(t, err)
	assert.False(t, corrected)
	assert.Equal(t, 1, c.Version)
	assert.True(t, c.Quantity.Equal(decimal.NewFromInt(7)))

	entries := historyFor(t, db, session.ID, article.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, model.HistoryCreated, entries[0].Action)
	assert.Nil(t, entries[0].PreviousQuantity)
	require.NotNil(t, entries[0].CountID)
	assert.Equal(t, c.ID, *entries[0].CountID)
}

func TestSubmitCorrectsInPlace(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	admin := seedUser(t, db, auth.RoleAdmin)
	counter := seedUser(t, db, auth.CounterRole(1))
	article := seedArticle(t, db, "10")
	session := seedSession(t, db, admin.ID)

	counts := NewCountRepo(db, config.DuplicateModeCorrect)
	params := SubmitParams{
		Principal: principalFor(counter),
		SessionID: session.ID,
		ArticleID: article.ID,
		Round:     1,
		Quantity:  decimal.RequireFromString("7"),
	}
	first, _, err := counts.Submit(ctx, params)
	require.NoError(t, err)

	params.Quantity = decimal.RequireFromString("9")
	second, corrected, err := counts.Submit(ctx, params)
	require.NoError(t, err)
	assert.True(t, corrected)
	assert.Equal(t, first.ID, second.ID, "same logical count row")
	assert.Equal(t, 2, second.Version)
	assert.True(t, second.Quantity.Equal(decimal.NewFromInt(9)))

	entries := historyFor(t, db, session.ID, article.ID)
	require.Len(t, entries, 2)
	// Newest first.
	assert.Equal(t, model.HistoryCorrected, entries[0].Action)
	require.NotNil(t, entries[0].PreviousQuantity)
	assert.True(t, entries[0].PreviousQuantity.Equal(decimal.NewFromInt(7)))
	require.NotNil(t, entries[0].CorrectionReason)
	assert.Equal(t, "Recount/Correction by same user", *entries[0].CorrectionReason)
	assert.Equal(t, model.HistoryCreated, entries[1].Action)
}

func TestSubmitRejectMode(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	admin := seedUser(t, db, auth.RoleAdmin)
	counter := seedUser(t, db, auth.CounterRole(1))
	article := seedArticle(t, db, "10")
	session := seedSession(t, db, admin.ID)

	counts := NewCountRepo(db, config.DuplicateModeReject)
	params := SubmitParams{
		Principal: principalFor(counter),
		SessionID: session.ID,
		ArticleID: article.ID,
		Round:     1,
		Quantity:  decimal.RequireFromString("7"),
	}
	_, _, err := counts.Submit(ctx, params)
	require.NoError(t, err)
	_, _, err = counts.Submit(ctx, params)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestSubmitCheckOrder(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	admin := seedUser(t, db, auth.RoleAdmin)
	counter := seedUser(t, db, auth.CounterRole(2))
	article := seedArticle(t, db, "10")
	session := seedSession(t, db, admin.ID)
	counts := NewCountRepo(db, config.DuplicateModeCorrect)

	base := SubmitParams{
		Principal: principalFor(counter),
		SessionID: session.ID,
		ArticleID: article.ID,
		Round:     2,
		Quantity:  decimal.NewFromInt(1),
	}

	missingSession := base
	missingSession.SessionID = 0xfffffff
	_, _, err := counts.Submit(ctx, missingSession)
	assert.ErrorIs(t, err, ErrNotFound)

	missingArticle := base
	missingArticle.ArticleID = 0xfffffff
	_, _, err = counts.Submit(ctx, missingArticle)
	assert.ErrorIs(t, err, ErrNotFound)

	wrongRound := base
	wrongRound.Round = 1
	_, _, err = counts.Submit(ctx, wrongRound)
	assert.ErrorIs(t, err, ErrForbidden)

	negative := base
	negative.Quantity = decimal.NewFromInt(-1)
	_, _, err = counts.Submit(ctx, negative)
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)

	// Closed session rejects all submissions, even from admins.
	_, err = NewSessionRepo(db).SetStatus(ctx, session.ID, model.SessionClosed)
	require.NoError(t, err)
	_, _, err = counts.Submit(ctx, base)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestApplyDeltaOwnership(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	admin := seedUser(t, db, auth.RoleAdmin)
	counter := seedUser(t, db, auth.CounterRole(1))
	other := seedUser(t, db, auth.CounterRole(1))
	article := seedArticle(t, db, "10")
	session := seedSession(t, db, admin.ID)
	counts := NewCountRepo(db, config.DuplicateModeCorrect)

	c, _, err := counts.Submit(ctx, SubmitParams{
		Principal: principalFor(counter),
		SessionID: session.ID,
		ArticleID: article.ID,
		Round:     1,
		Quantity:  decimal.NewFromInt(5),
	})
	require.NoError(t, err)

	// A different counter cannot touch it.
	_, err = counts.ApplyDelta(ctx, c.ID, decimal.NewFromInt(1), nil, other.ID, false)
	assert.ErrorIs(t, err, ErrForbidden)

	// The owner can; version bumps and history records the delta.
	got, err := counts.ApplyDelta(ctx, c.ID, decimal.NewFromInt(-2), nil, counter.ID, false)
	require.NoError(t, err)
	assert.True(t, got.Quantity.Equal(decimal.NewFromInt(3)))
	assert.Equal(t, 2, got.Version)

	// Going negative is refused.
	_, err = counts.ApplyDelta(ctx, c.ID, decimal.NewFromInt(-100), nil, counter.ID, false)
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)

	// An admin may adjust someone else's count.
	_, err = counts.ApplyDelta(ctx, c.ID, decimal.NewFromInt(1), nil, admin.ID, true)
	require.NoError(t, err)

	entries := historyFor(t, db, session.ID, article.ID)
	require.Len(t, entries, 3)
	assert.Equal(t, model.HistoryUpdatedByDelta, entries[0].Action)
	assert.Equal(t, model.HistoryUpdatedByDelta, entries[1].Action)
}

func TestDeleteEmitsHistory(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	admin := seedUser(t, db, auth.RoleAdmin)
	counter := seedUser(t, db, auth.CounterRole(1))
	article := seedArticle(t, db, "10")
	session := seedSession(t, db, admin.ID)
	counts := NewCountRepo(db, config.DuplicateModeCorrect)

	c, _, err := counts.Submit(ctx, SubmitParams{
		Principal: principalFor(counter),
		SessionID: session.ID,
		ArticleID: article.ID,
		Round:     1,
		Quantity:  decimal.NewFromInt(5),
	})
	require.NoError(t, err)

	require.NoError(t, counts.Delete(ctx, c.ID))
	_, err = counts.GetByID(ctx, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	entries := historyFor(t, db, session.ID, article.ID)
	require.Len(t, entries, 2)
	assert.Equal(t, model.HistoryDeleted, entries[0].Action)
}

func TestReconcileWriteOnce(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	admin := seedUser(t, db, auth.RoleAdmin)
	article := seedArticle(t, db, "10")
	session := seedSession(t, db, admin.ID)
	sessions := NewSessionRepo(db)
	results := NewResultRepo(db)

	// Reconciling an open session is refused.
	_, err := results.Reconcile(ctx, session.ID, article.ID, decimal.NewFromInt(8), false)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = sessions.SetStatus(ctx, session.ID, model.SessionClosed)
	require.NoError(t, err)

	res, err := results.Reconcile(ctx, session.ID, article.ID, decimal.NewFromInt(8), true)
	require.NoError(t, err)
	assert.True(t, res.Baseline.Equal(decimal.NewFromInt(10)))
	assert.True(t, res.Variance.Equal(decimal.NewFromInt(-2)))

	// Second reconcile for the same pair conflicts.
	_, err = results.Reconcile(ctx, session.ID, article.ID, decimal.NewFromInt(9), false)
	assert.ErrorIs(t, err, ErrConflict)

	// The baseline is frozen: a later catalog change does not leak into
	// the recomputed variance on update.
	_, err = db.Exec(`UPDATE articles SET quantite_en_stock = 99 WHERE id = ?`, article.ID)
	require.NoError(t, err)
	final := decimal.NewFromInt(11)
	updated, err := results.Update(ctx, res.ID, &final, nil)
	require.NoError(t, err)
	assert.True(t, updated.Baseline.Equal(decimal.NewFromInt(10)))
	assert.True(t, updated.Variance.Equal(decimal.NewFromInt(1)))
}

func TestSessionFinishedAtStampedOnce(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	admin := seedUser(t, db, auth.RoleAdmin)
	session := seedSession(t, db, admin.ID)
	sessions := NewSessionRepo(db)

	closed, err := sessions.SetStatus(ctx, session.ID, model.SessionClosed)
	require.NoError(t, err)
	require.NotNil(t, closed.FinishedAt)
	stamp := *closed.FinishedAt

	time.Sleep(1100 * time.Millisecond)
	finalized, err := sessions.SetStatus(ctx, session.ID, model.SessionFinalized)
	require.NoError(t, err)
	require.NotNil(t, finalized.FinishedAt)
	assert.True(t, finalized.FinishedAt.Equal(stamp), "finished_at never restamped")

	// Backwards is refused.
	_, err = sessions.SetStatus(ctx, session.ID, model.SessionOpen)
	assert.ErrorIs(t, err, ErrInvalidState)
}
