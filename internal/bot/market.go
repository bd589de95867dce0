package bot

import "time"

// Sentiment - грубая классификация рынка по изменению цены, объёму и спреду
type Sentiment string

const (
	SentimentStrongBearish Sentiment = "strong_bearish"
	SentimentBearish       Sentiment = "bearish"
	SentimentStrongBullish Sentiment = "strong_bullish"
	SentimentBullish       Sentiment = "bullish"
	SentimentLowLiquidity  Sentiment = "low_liquidity"
	SentimentNeutral       Sentiment = "neutral"
)

// Пороги классификации
const (
	strongMoveChangePct = 2.0
	moveChangePct       = 1.0
	strongMoveVolume    = 100000.0
	lowLiquiditySpread  = 1.0
	orderBookDepth      = 20
)

// MarketData - снимок рынка, на котором принимается решение цикла
type MarketData struct {
	Symbol             string    `json:"symbol"`
	CurrentPrice       float64   `json:"current_price"`
	PriceChangePercent float64   `json:"price_change_percent"`
	Volume             float64   `json:"volume"`
	BestBid            float64   `json:"best_bid"`
	BestAsk            float64   `json:"best_ask"`
	SpreadPercent      float64   `json:"spread_percent"`
	Sentiment          Sentiment `json:"market_sentiment"`
	Timestamp          time.Time `json:"timestamp"`
}

// ClassifySentiment применяет таблицу порогов, первое совпадение выигрывает
func ClassifySentiment(changePct, volume, spreadPct float64) Sentiment {
	switch {
	case changePct < -strongMoveChangePct && volume > strongMoveVolume:
		return SentimentStrongBearish
	case changePct < -moveChangePct:
		return SentimentBearish
	case changePct > strongMoveChangePct && volume > strongMoveVolume:
		return SentimentStrongBullish
	case changePct > moveChangePct:
		return SentimentBullish
	case spreadPct > lowLiquiditySpread:
		return SentimentLowLiquidity
	default:
		return SentimentNeutral
	}
}

// allowsAccumulation - рынок, на котором стратегия докупает базовый актив
func (s Sentiment) allowsAccumulation() bool {
	return s == SentimentBearish || s == SentimentStrongBearish || s == SentimentNeutral
}
