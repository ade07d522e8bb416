package stats

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdrinv/inventory-api/internal/model"
)

func res(articleID uint64, variance string, adjusted bool) model.Result {
	return model.Result{
		ArticleID: articleID,
		Variance:  decimal.RequireFromString(variance),
		Adjusted:  adjusted,
	}
}

func TestSummarizeVarianceEmpty(t *testing.T) {
	s := SummarizeVariance(nil)
	assert.Equal(t, 0, s.TotalArticles)
	assert.Equal(t, 0, s.ArticlesWithVariance)
	assert.True(t, s.TotalVarianceValue.IsZero())
	assert.True(t, s.AverageVariance.IsZero())
	assert.Empty(t, s.MajorVariances)
}

func TestSummarizeVariance(t *testing.T) {
	s := SummarizeVariance([]model.Result{
		res(1, "5", false),
		res(2, "-3", true),
		res(3, "0", false),
		res(4, "0", false),
	})
	assert.Equal(t, 4, s.TotalArticles)
	assert.Equal(t, 2, s.ArticlesWithVariance)
	// |5| + |-3| = 8
	assert.True(t, s.TotalVarianceValue.Equal(decimal.NewFromInt(8)), "got %s", s.TotalVarianceValue)
	// 8 / 4 = 2
	assert.True(t, s.AverageVariance.Equal(decimal.NewFromInt(2)), "got %s", s.AverageVariance)
	require.Len(t, s.MajorVariances, 2)
	assert.Equal(t, uint64(1), s.MajorVariances[0].ArticleID)
	assert.Equal(t, uint64(2), s.MajorVariances[1].ArticleID)
}

func TestSummarizeVarianceTopTenAndTies(t *testing.T) {
	results := make([]model.Result, 0, 12)
	// Twelve articles with variance, two sharing the largest magnitude.
	results = append(results, res(7, "-50", false))
	results = append(results, res(3, "50", false))
	for i := uint64(10); i < 20; i++ {
		results = append(results, res(i, "1", false))
	}
	s := SummarizeVariance(results)
	require.Len(t, s.MajorVariances, MajorVarianceLimit)
	// Tie on |50| breaks toward the lower article id.
	assert.Equal(t, uint64(3), s.MajorVariances[0].ArticleID)
	assert.Equal(t, uint64(7), s.MajorVariances[1].ArticleID)
}

func TestSummarizeResultsEmpty(t *testing.T) {
	s := SummarizeResults(nil)
	assert.Equal(t, 0, s.TotalArticles)
	assert.True(t, s.AdjustmentRate.IsZero())
	assert.True(t, s.PositiveVariance.IsZero())
	assert.True(t, s.NegativeVariance.IsZero())
}

func TestSummarizeResults(t *testing.T) {
	s := SummarizeResults([]model.Result{
		res(1, "4", true),
		res(2, "-6", false),
		res(3, "2.5", true),
		res(4, "0", false),
	})
	assert.Equal(t, 4, s.TotalArticles)
	assert.Equal(t, 2, s.AdjustedArticles)
	assert.True(t, s.PositiveVariance.Equal(decimal.RequireFromString("6.5")), "got %s", s.PositiveVariance)
	// Shortfalls are reported as a magnitude: |-6| = 6.
	assert.True(t, s.NegativeVariance.Equal(decimal.NewFromInt(6)), "got %s", s.NegativeVariance)
	// 2 of 4 adjusted = 50%
	assert.True(t, s.AdjustmentRate.Equal(decimal.NewFromInt(50)), "got %s", s.AdjustmentRate)
}

func TestSummarizeResultsNegativeOnly(t *testing.T) {
	s := SummarizeResults([]model.Result{
		res(1, "-6", false),
		res(2, "-4", false),
	})
	assert.True(t, s.PositiveVariance.IsZero())
	assert.True(t, s.NegativeVariance.Equal(decimal.NewFromInt(10)), "got %s", s.NegativeVariance)
}

func TestLastPerUser(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	lc := func(countID, userID uint64, at time.Time) model.LastCounted {
		return model.LastCounted{CountID: countID, UserID: userID, CountedAt: at}
	}

	rows := []model.LastCounted{
		lc(1, 10, base),
		lc(2, 10, base.Add(time.Minute)), // newer, wins for user 10
		lc(5, 20, base.Add(2*time.Minute)),
		lc(3, 20, base.Add(2*time.Minute)), // same instant, lower id wins
		lc(9, 30, base.Add(-time.Hour)),
	}
	out := LastPerUser(rows)
	require.Len(t, out, 3)
	// Ordered most recent first.
	assert.Equal(t, uint64(3), out[0].CountID)
	assert.Equal(t, uint64(20), out[0].UserID)
	assert.Equal(t, uint64(2), out[1].CountID)
	assert.Equal(t, uint64(9), out[2].CountID)
}

func TestLastPerUserEmpty(t *testing.T) {
	assert.Empty(t, LastPerUser(nil))
}
