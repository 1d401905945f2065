// Package patch applies genotype calls onto a reference sequence to produce a
// personalized haploid sequence.
package patch

import (
	"go.uber.org/zap"

	"github.com/inodb/vibe-patch/internal/genotype"
)

// RecordSource yields genotype calls in file order.
// Next returns nil, nil when there are no more records.
type RecordSource interface {
	Next() (*genotype.Record, error)
}

// Stats summarizes a patch pass.
//
// Applied and Ignored are the headline counters. OutOfRange and Unchanged are
// diagnostics: a call outside the sequence or one that matches the current
// base changes nothing and counts toward neither headline counter.
type Stats struct {
	Records    int                   // calls consumed from the source
	Applied    int                   // substitutions written into the buffer
	Ignored    int                   // calls whose allele is not A, C, G or T
	OutOfRange int                   // calls positioned outside the sequence
	Unchanged  int                   // base calls equal to the current buffer value
	Rejected   map[genotype.Kind]int // Ignored broken down by allele kind
}

func (s *Stats) reject(k genotype.Kind) {
	s.Ignored++
	if s.Rejected == nil {
		s.Rejected = make(map[genotype.Kind]int)
	}
	s.Rejected[k]++
}

// Substitution is a single base change written into the buffer.
type Substitution struct {
	RecordID string
	Pos      int64 // 1-based
	From     byte
	To       byte
}

// Patcher folds genotype calls into a sequence buffer.
type Patcher struct {
	logger  *zap.Logger
	onApply func(Substitution)
}

// New creates a patcher.
func New() *Patcher {
	return &Patcher{
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger for per-call diagnostics.
func (p *Patcher) SetLogger(l *zap.Logger) {
	p.logger = l
}

// OnApply registers a callback invoked for every substitution, in order.
func (p *Patcher) OnApply(fn func(Substitution)) {
	p.onApply = fn
}

// Apply patches buf in place with every record from src, in order.
// The buffer length never changes. If two records target the same position
// the later one wins. An error is returned only if src fails; the buffer
// then holds the effect of every record read before the failure.
func (p *Patcher) Apply(buf []byte, src RecordSource) (Stats, error) {
	var stats Stats
	for {
		rec, err := src.Next()
		if err != nil {
			return stats, err
		}
		if rec == nil {
			return stats, nil
		}
		p.step(buf, rec, rec.Allele(), &stats)
	}
}

// step applies a single record whose allele has already been resolved.
func (p *Patcher) step(buf []byte, rec *genotype.Record, allele genotype.Allele, stats *Stats) {
	stats.Records++

	idx := rec.Pos - 1
	if idx < 0 || idx >= int64(len(buf)) {
		stats.OutOfRange++
		p.logger.Debug("call outside reference",
			zap.String("id", rec.ID),
			zap.Int64("pos", rec.Pos),
			zap.Int("length", len(buf)))
		return
	}

	switch allele.Kind {
	case genotype.KindBase:
		if buf[idx] == allele.Base {
			stats.Unchanged++
			return
		}
		if p.onApply != nil {
			p.onApply(Substitution{RecordID: rec.ID, Pos: rec.Pos, From: buf[idx], To: allele.Base})
		}
		buf[idx] = allele.Base
		stats.Applied++
	case genotype.KindIndel, genotype.KindNoCall, genotype.KindOther:
		stats.reject(allele.Kind)
	}
}

// Apply patches buf with a default patcher.
func Apply(buf []byte, src RecordSource) (Stats, error) {
	return New().Apply(buf, src)
}

// SliceSource adapts an in-memory slice of records to a RecordSource.
type SliceSource struct {
	records []*genotype.Record
	next    int
}

// NewSliceSource creates a source that yields records in slice order.
func NewSliceSource(records []*genotype.Record) *SliceSource {
	return &SliceSource{records: records}
}

// Next returns the next record, or nil, nil when exhausted.
func (s *SliceSource) Next() (*genotype.Record, error) {
	if s.next >= len(s.records) {
		return nil, nil
	}
	rec := s.records[s.next]
	s.next++
	return rec, nil
}
