package ingest

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mkwei/folio/internal/domain"
	"github.com/rs/zerolog"
)

// Stage names the pipeline step a file is in or failed at.
type Stage string

const (
	StageIdentifying   Stage = "IDENTIFYING"
	StageExtracting    Stage = "EXTRACTING"
	StageParsing       Stage = "PARSING"
	StageMapping       Stage = "MAPPING"
	StageStandardizing Stage = "STANDARDIZING"
	StageDone          Stage = "DONE"
	StageFailed        Stage = "FAILED"
)

// Outcome records how one file moved through the pipeline. A failed file
// carries the stage it failed at and the error; the batch continues around it.
type Outcome struct {
	File             string
	Broker           domain.Broker
	Stage            Stage
	Statement        *domain.Statement
	TransactionCount int
	Err              error
}

// TextExtractor turns a statement file into parseable text.
type TextExtractor interface {
	ExtractText(ctx context.Context, path string) (string, error)
}

// PDFTextExtractor shells out to pdftotext with layout preservation, which
// keeps statement columns aligned the way the line parsers expect. Non-PDF
// files are read directly.
type PDFTextExtractor struct{}

// ExtractText converts path to text.
func (PDFTextExtractor) ExtractText(ctx context.Context, path string) (string, error) {
	if strings.ToLower(filepath.Ext(path)) != ".pdf" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", path, err)
		}
		return string(data), nil
	}

	out, err := exec.CommandContext(ctx, "pdftotext", "-layout", path, "-").Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext %s: %w", path, err)
	}
	return string(out), nil
}

// Pipeline runs statement files through identification, extraction, parsing,
// symbol mapping and amount standardization. One Pipeline serves all broker
// profiles.
type Pipeline struct {
	extractor TextExtractor
	std       *Standardizer
	symbols   *SymbolMapper
	schwab    *SchwabParser
	tda       *TDAParser
	cathay    *CathayParser
	log       zerolog.Logger
}

// NewPipeline wires the full pipeline with the default pdftotext extractor.
func NewPipeline(log zerolog.Logger) *Pipeline {
	return NewPipelineWithExtractor(PDFTextExtractor{}, log)
}

// NewPipelineWithExtractor wires the pipeline around a custom extractor,
// which is how tests feed fixture text without shelling out.
func NewPipelineWithExtractor(extractor TextExtractor, log zerolog.Logger) *Pipeline {
	plog := log.With().Str("component", "ingest").Logger()
	std := NewStandardizer(plog)
	symbols := NewSymbolMapper()
	return &Pipeline{
		extractor: extractor,
		std:       std,
		symbols:   symbols,
		schwab:    NewSchwabParser(std, plog),
		tda:       NewTDAParser(std, plog),
		cathay:    NewCathayParser(std, symbols, plog),
		log:       plog,
	}
}

// ProcessFile runs a single file through every stage and reports the outcome.
// It never panics a batch: any failure is captured in the Outcome.
func (p *Pipeline) ProcessFile(ctx context.Context, path string) Outcome {
	name := filepath.Base(path)
	out := Outcome{File: name, Stage: StageIdentifying}

	out.Broker = Identify(name)
	if out.Broker == domain.BrokerUnknown {
		p.log.Warn().Str("file", name).Msg("Unrecognized statement file, skipped")
		out.Stage = StageFailed
		out.Err = fmt.Errorf("unrecognized statement file %s", name)
		return out
	}

	out.Stage = StageExtracting
	text, err := p.extractor.ExtractText(ctx, path)
	if err != nil {
		out.Stage = StageFailed
		out.Err = err
		return out
	}

	out.Stage = StageParsing
	st, err := p.parse(out.Broker, text, name)
	if err != nil {
		out.Stage = StageFailed
		out.Err = err
		return out
	}

	// Mapping and standardization are idempotent, so re-running them over
	// the parsed statement is safe even where a parser already applied them
	// per line.
	out.Stage = StageMapping
	for i := range st.Transactions {
		tx := &st.Transactions[i]
		if tx.Symbol != "" && tx.LocalName == "" {
			tx.Symbol, tx.LocalName = p.symbols.Map(tx.Symbol, tx.Broker)
		}
	}

	out.Stage = StageStandardizing
	for i := range st.Transactions {
		p.std.Standardize(&st.Transactions[i])
	}

	out.Stage = StageDone
	out.Statement = st
	out.TransactionCount = len(st.Transactions)
	p.log.Info().Str("file", name).Str("broker", string(out.Broker)).
		Int("transactions", out.TransactionCount).Msg("Statement processed")
	return out
}

func (p *Pipeline) parse(broker domain.Broker, text, name string) (*domain.Statement, error) {
	switch broker {
	case domain.BrokerSchwab:
		return p.schwab.Parse(text, name)
	case domain.BrokerTDA:
		return p.tda.Parse(text, name)
	case domain.BrokerCathay:
		return p.cathay.Parse(text, name)
	default:
		return nil, fmt.Errorf("no parser for broker %s", broker)
	}
}

// ProcessDir runs every statement file in dir through the pipeline in stable
// name order. A failing file yields a FAILED outcome and the batch moves on.
func (p *Pipeline) ProcessDir(ctx context.Context, dir string) ([]Outcome, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading statements dir %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	outcomes := make([]Outcome, 0, len(names))
	for _, name := range names {
		outcomes = append(outcomes, p.ProcessFile(ctx, filepath.Join(dir, name)))
	}
	return outcomes, nil
}
