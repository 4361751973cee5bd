package ingest

import (
	"testing"

	"github.com/mkwei/folio/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestIdentify(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		want     domain.Broker
	}{
		{"tda marker", "TDA_Statement_2022-12.pdf", domain.BrokerTDA},
		{"tda full name", "TD Ameritrade December.pdf", domain.BrokerTDA},
		{"schwab statement", "Brokerage Statement_2025-05-31_123.pdf", domain.BrokerSchwab},
		{"schwab uppercase extension", "Brokerage Statement_2025-05-31_123.PDF", domain.BrokerSchwab},
		{"cathay csv", "cathay_trades_2024.csv", domain.BrokerCathay},
		{"schwab prefix without pdf", "Brokerage Statement_notes.txt", domain.BrokerUnknown},
		{"pdf without known prefix", "random_statement.pdf", domain.BrokerUnknown},
		{"full path is reduced to base name", "/data/statements/Brokerage Statement_2025-05-31_123.pdf", domain.BrokerSchwab},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Identify(tt.fileName))
		})
	}
}
