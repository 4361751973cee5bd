package ingest

import (
	"path/filepath"
	"strings"

	"github.com/mkwei/folio/internal/domain"
)

// schwabFilePrefix is the filename prefix of post-merger Schwab statements.
const schwabFilePrefix = "Brokerage Statement_"

// Identify classifies a statement file into a broker profile. It is a pure
// function of the file name and extension:
//
//   - name carries the legacy "TDA" marker → BrokerTDA
//   - modern statement prefix with a PDF extension → BrokerSchwab
//   - .csv extension → BrokerCathay
//   - anything else → BrokerUnknown (caller skips the file, non-fatal)
func Identify(fileName string) domain.Broker {
	base := filepath.Base(fileName)
	ext := strings.ToLower(filepath.Ext(base))

	switch {
	case strings.Contains(base, "TDA") || strings.Contains(base, "TD Ameritrade"):
		return domain.BrokerTDA
	case strings.HasPrefix(base, schwabFilePrefix) && ext == ".pdf":
		return domain.BrokerSchwab
	case ext == ".csv":
		return domain.BrokerCathay
	default:
		return domain.BrokerUnknown
	}
}
