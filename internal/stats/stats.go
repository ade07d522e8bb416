// Package stats holds the pure aggregation logic behind the reporting
// endpoints.  Everything here works on already-loaded rows; no function
// touches the database.
package stats

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/pdrinv/inventory-api/internal/model"
)

// MajorVarianceLimit caps how many articles the variance summary names.
const MajorVarianceLimit = 10

// VarianceSummary reports how far a session's reconciled quantities drifted
// from their baselines.
type VarianceSummary struct {
	TotalArticles        int             `json:"total_articles"`
	ArticlesWithVariance int             `json:"articles_with_variance"`
	TotalVarianceValue   decimal.Decimal `json:"total_variance_value"`
	AverageVariance      decimal.Decimal `json:"average_variance"`
	MajorVariances       []model.Result  `json:"major_variances"`
}

// SummarizeVariance aggregates a session's results.  TotalVarianceValue is
// the sum of absolute variances and AverageVariance that sum divided by the
// article count.  MajorVariances lists the worst offenders, largest
// absolute variance first with the lower article id winning ties, capped at
// MajorVarianceLimit.
func SummarizeVariance(results []model.Result) VarianceSummary {
	s := VarianceSummary{
		TotalArticles:      len(results),
		TotalVarianceValue: decimal.Zero,
		AverageVariance:    decimal.Zero,
		MajorVariances:     []model.Result{},
	}
	if len(results) == 0 {
		return s
	}

	withVariance := make([]model.Result, 0, len(results))
	for _, r := range results {
		abs := r.Variance.Abs()
		s.TotalVarianceValue = s.TotalVarianceValue.Add(abs)
		if !r.Variance.IsZero() {
			s.ArticlesWithVariance++
			withVariance = append(withVariance, r)
		}
	}
	s.AverageVariance = s.TotalVarianceValue.DivRound(decimal.NewFromInt(int64(len(results))), 3)

	sort.Slice(withVariance, func(i, j int) bool {
		ai, aj := withVariance[i].Variance.Abs(), withVariance[j].Variance.Abs()
		if !ai.Equal(aj) {
			return ai.GreaterThan(aj)
		}
		return withVariance[i].ArticleID < withVariance[j].ArticleID
	})
	if len(withVariance) > MajorVarianceLimit {
		withVariance = withVariance[:MajorVarianceLimit]
	}
	s.MajorVariances = withVariance
	return s
}

// ResultsSummary totals a session's reconciliation outcomes.
type ResultsSummary struct {
	TotalArticles    int             `json:"total_articles"`
	AdjustedArticles int             `json:"adjusted_articles"`
	PositiveVariance decimal.Decimal `json:"positive_variance"`
	NegativeVariance decimal.Decimal `json:"negative_variance"`
	// AdjustmentRate is adjusted articles over total, as a percentage.
	AdjustmentRate decimal.Decimal `json:"adjustment_rate"`
}

// SummarizeResults totals positive and negative variances separately and
// computes the share of articles flagged as adjusted.  Both totals are
// magnitudes, so NegativeVariance is positive too.  An empty input yields
// all zeros.
func SummarizeResults(results []model.Result) ResultsSummary {
	s := ResultsSummary{
		TotalArticles:    len(results),
		PositiveVariance: decimal.Zero,
		NegativeVariance: decimal.Zero,
		AdjustmentRate:   decimal.Zero,
	}
	for _, r := range results {
		if r.Variance.IsPositive() {
			s.PositiveVariance = s.PositiveVariance.Add(r.Variance)
		} else if r.Variance.IsNegative() {
			s.NegativeVariance = s.NegativeVariance.Add(r.Variance.Abs())
		}
		if r.Adjusted {
			s.AdjustedArticles++
		}
	}
	if s.TotalArticles > 0 {
		s.AdjustmentRate = decimal.NewFromInt(int64(s.AdjustedArticles)).
			Mul(decimal.NewFromInt(100)).
			DivRound(decimal.NewFromInt(int64(s.TotalArticles)), 2)
	}
	return s
}

// LastPerUser reduces a session's counts to each user's most recent one.
// Among equal timestamps the lowest count id wins.  The input does not need
// to be pre-sorted; output is ordered most recent first.
func LastPerUser(rows []model.LastCounted) []model.LastCounted {
	best := make(map[uint64]model.LastCounted, 8)
	for _, row := range rows {
		cur, ok := best[row.UserID]
		if !ok {
			best[row.UserID] = row
			continue
		}
		if row.CountedAt.After(cur.CountedAt) ||
			(row.CountedAt.Equal(cur.CountedAt) && row.CountID < cur.CountID) {
			best[row.UserID] = row
		}
	}
	out := make([]model.LastCounted, 0, len(best))
	for _, v := range best {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CountedAt.Equal(out[j].CountedAt) {
			return out[i].CountedAt.After(out[j].CountedAt)
		}
		return out[i].CountID < out[j].CountID
	})
	return out
}
