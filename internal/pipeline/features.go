package pipeline

import (
	"math"

	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/domain"
)

// volumeTrend compares the recent average volume against the prior baseline
// and returns the fractional change: -0.5 means recent volume halved.
func volumeTrend(bars []domain.OHLCV, recentWindow, baselineWindow int) float64 {
	if len(bars) < recentWindow+baselineWindow || recentWindow <= 0 || baselineWindow <= 0 {
		return 0
	}

	recent := bars[len(bars)-recentWindow:]
	baseline := bars[len(bars)-recentWindow-baselineWindow : len(bars)-recentWindow]

	recentAvg := avgVolume(recent)
	baselineAvg := avgVolume(baseline)
	if baselineAvg <= 0 {
		return 0
	}
	return recentAvg/baselineAvg - 1.0
}

// realizedVolatility is the sample standard deviation of close-to-close
// returns, the pipeline's risk proxy.
func realizedVolatility(bars []domain.OHLCV) float64 {
	if len(bars) < 3 {
		return 0
	}

	returns := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		if bars[i-1].Close <= 0 || bars[i].Close <= 0 {
			continue
		}
		returns = append(returns, bars[i].Close/bars[i-1].Close-1.0)
	}
	if len(returns) < 2 {
		return 0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns) - 1)

	return math.Sqrt(variance)
}

func avgVolume(bars []domain.OHLCV) float64 {
	if len(bars) == 0 {
		return 0
	}
	total := 0.0
	for _, b := range bars {
		total += b.Volume
	}
	return total / float64(len(bars))
}
