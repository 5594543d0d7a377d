package domain

import "time"

// OHLCV is a single bar of market data.
type OHLCV struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// TechnicalSnapshot is the indicator set observed for one symbol at one instant.
type TechnicalSnapshot struct {
	RSI           float64   `json:"rsi"`
	MACDHistogram float64   `json:"macd_histogram"`
	SMA20         float64   `json:"sma20"`
	SMA50         float64   `json:"sma50"`
	Momentum      float64   `json:"momentum"`
	Timestamp     time.Time `json:"timestamp"`
}

// SentimentSnapshot is the black-box news/sentiment output for one symbol.
type SentimentSnapshot struct {
	Score        float64   `json:"score"`      // [-1, 1]
	Confidence   float64   `json:"confidence"` // [0, 1]
	ArticleCount int       `json:"article_count"`
	Timestamp    time.Time `json:"timestamp"`
}
