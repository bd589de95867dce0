package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifySentiment(t *testing.T) {
	tests := []struct {
		name   string
		change float64
		volume float64
		spread float64
		want   Sentiment
	}{
		{"strong drop with volume", -2.5, 150000, 0.1, SentimentStrongBearish},
		{"strong drop without volume", -2.1, 50000, 0.1, SentimentBearish},
		{"moderate drop", -1.5, 1000, 0.1, SentimentBearish},
		{"drop at boundary is not bearish", -1.0, 1000, 0.1, SentimentNeutral},
		{"strong rise with volume", 3.0, 200000, 0.1, SentimentStrongBullish},
		{"strong rise at volume boundary", 3.0, 100000, 0.1, SentimentBullish},
		{"moderate rise", 1.5, 1000, 0.1, SentimentBullish},
		{"wide spread", 0.2, 1000, 1.5, SentimentLowLiquidity},
		{"price move wins over spread", -1.5, 1000, 5.0, SentimentBearish},
		{"flat market", 0.3, 1000, 0.2, SentimentNeutral},
		{"spread at boundary", 0, 0, 1.0, SentimentNeutral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifySentiment(tt.change, tt.volume, tt.spread))
		})
	}
}

func TestSentimentAllowsAccumulation(t *testing.T) {
	allowed := map[Sentiment]bool{
		SentimentStrongBearish: true,
		SentimentBearish:       true,
		SentimentNeutral:       true,
		SentimentBullish:       false,
		SentimentStrongBullish: false,
		SentimentLowLiquidity:  false,
	}
	for s, want := range allowed {
		assert.Equal(t, want, s.allowsAccumulation(), string(s))
	}
}
