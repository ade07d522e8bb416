package handler

// DB-backed handler tests, skipped unless INTEGRATION_TESTS=1.  Connection
// settings come from the usual DB_* environment variables; the schema from
// schema.sql must be loaded beforehand.

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdrinv/inventory-api/internal/auth"
	"github.com/pdrinv/inventory-api/internal/database"
	"github.com/pdrinv/inventory-api/internal/model"
	"github.com/pdrinv/inventory-api/internal/repository"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	if os.Getenv("INTEGRATION_TESTS") != "1" {
		t.Skip("set INTEGRATION_TESTS=1 to run handler tests")
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

func getCtx(t *testing.T, sessionID uint64) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(strconv.FormatUint(sessionID, 10))
	return c, rec
}

func TestVarianceSummaryWithoutResults(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	admin, err := repository.NewUserRepo(db).Create(ctx, uniq("user"), "x", auth.RoleAdmin, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = db.Exec(`DELETE FROM app_users WHERE id = ?`, admin.ID) })

	article, err := repository.NewArticleRepo(db).Create(ctx, &model.Article{
		Numero:        uniq("ART"),
		StockQuantity: decimal.NewFromInt(10),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = db.Exec(`DELETE FROM articles WHERE id = ?`, article.ID) })

	sessions := repository.NewSessionRepo(db)
	session, err := sessions.Create(ctx, uniq("session"), "D01", admin.ID, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = db.Exec(`DELETE FROM inventory_sessions WHERE id = ?`, session.ID) })

	results := repository.NewResultRepo(db)
	h := NewResultHandler(results, sessions, repository.NewArticleAddLogRepo(db))

	// Nothing reconciled yet: the summary has no subject.
	c, rec := getCtx(t, session.ID)
	require.NoError(t, h.VarianceSummary(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_, err = sessions.SetStatus(ctx, session.ID, model.SessionClosed)
	require.NoError(t, err)
	_, err = results.Reconcile(ctx, session.ID, article.ID, decimal.NewFromInt(8), false)
	require.NoError(t, err)

	c, rec = getCtx(t, session.ID)
	require.NoError(t, h.VarianceSummary(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	// An unknown session stays a plain 404 too.
	c, rec = getCtx(t, session.ID+1000000)
	require.NoError(t, h.VarianceSummary(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
