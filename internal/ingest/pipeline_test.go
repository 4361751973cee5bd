package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mkwei/folio/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readFileExtractor reads statement files verbatim, standing in for the
// pdftotext step so fixtures can be plain text.
type readFileExtractor struct{}

func (readFileExtractor) ExtractText(_ context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func newTestPipeline() *Pipeline {
	return NewPipelineWithExtractor(readFileExtractor{}, zerolog.Nop())
}

func TestPipelineProcessFileUnknownBroker(t *testing.T) {
	p := newTestPipeline()

	out := p.ProcessFile(context.Background(), "mystery_document.txt")

	assert.Equal(t, StageFailed, out.Stage)
	assert.Equal(t, domain.BrokerUnknown, out.Broker)
	assert.Error(t, out.Err)
	assert.Nil(t, out.Statement)
}

func TestPipelineProcessFileCathay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cathay_trades.csv")
	require.NoError(t, os.WriteFile(path, []byte(cathayFixture), 0o644))

	p := newTestPipeline()
	out := p.ProcessFile(context.Background(), path)

	require.NoError(t, out.Err)
	assert.Equal(t, StageDone, out.Stage)
	assert.Equal(t, domain.BrokerCathay, out.Broker)
	assert.Equal(t, 2, out.TransactionCount)
	require.NotNil(t, out.Statement)
	assert.Equal(t, "2330", out.Statement.Transactions[0].Symbol)
}

func TestPipelineProcessDirBatchNeverAborts(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "Brokerage Statement_2025-05-31_1.pdf"),
		[]byte(schwabDetailedFixture), 0o644))
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "cathay_trades.csv"),
		[]byte(cathayFixture), 0o644))
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "unrelated_notes.txt"),
		[]byte("not a statement"), 0o644))

	p := newTestPipeline()
	outcomes, err := p.ProcessDir(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	// Stable name order: the Schwab statement, the CSV, then the stray file.
	assert.Equal(t, StageDone, outcomes[0].Stage)
	assert.Equal(t, domain.BrokerSchwab, outcomes[0].Broker)
	assert.Equal(t, 5, outcomes[0].TransactionCount)

	assert.Equal(t, StageDone, outcomes[1].Stage)
	assert.Equal(t, domain.BrokerCathay, outcomes[1].Broker)

	assert.Equal(t, StageFailed, outcomes[2].Stage)
	assert.Error(t, outcomes[2].Err)
}

func TestPipelineStandardizationIsIdempotentAcrossStages(t *testing.T) {
	// Parsers standardize per line and the pipeline standardizes again as its
	// final stage; the double application must not change any record.
	dir := t.TempDir()
	path := filepath.Join(dir, "cathay_trades.csv")
	require.NoError(t, os.WriteFile(path, []byte(cathayFixture), 0o644))

	p := newTestPipeline()
	out := p.ProcessFile(context.Background(), path)
	require.Equal(t, StageDone, out.Stage)

	std := newTestStandardizer()
	for _, tx := range out.Statement.Transactions {
		before := tx
		std.Standardize(&tx)
		assert.Equal(t, before, tx)
	}
}
