package patch

import (
	"runtime"
	"sync"

	"github.com/inodb/vibe-patch/internal/genotype"
)

// WorkItem holds a parsed call ready for allele resolution.
type WorkItem struct {
	Seq    int
	Record *genotype.Record
}

// WorkResult holds a call and its resolved allele.
type WorkResult struct {
	Seq    int
	Record *genotype.Record
	Allele genotype.Allele
}

// ResolveParallel fans items out to a pool of workers that resolve each
// call's allele. Results arrive in completion order; OrderedCollect restores
// source order. workers <= 0 means runtime.NumCPU().
func ResolveParallel(items <-chan WorkItem, workers int) <-chan WorkResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	out := make(chan WorkResult, 2*workers)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for it := range items {
				out <- WorkResult{Seq: it.Seq, Record: it.Record, Allele: it.Record.Allele()}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}

// OrderedCollect passes results to fn in Seq order starting at 0, holding
// back any that arrive early. It returns when results is closed.
func OrderedCollect(results <-chan WorkResult, fn func(WorkResult)) {
	early := make(map[int]WorkResult)
	want := 0
	for r := range results {
		if r.Seq != want {
			early[r.Seq] = r
			continue
		}
		fn(r)
		want++
		for next, ok := early[want]; ok; next, ok = early[want] {
			delete(early, want)
			fn(next)
			want++
		}
	}
}

// ApplyParallel is Apply with allele resolution spread over workers.
// Substitutions are still applied strictly in source order, so the buffer
// and stats are identical to those of Apply, including last-write-wins for
// repeated positions.
func (p *Patcher) ApplyParallel(buf []byte, src RecordSource, workers int) (Stats, error) {
	if workers == 1 {
		return p.Apply(buf, src)
	}

	items := make(chan WorkItem, 1024)
	var readErr error
	go func() {
		defer close(items)
		for seq := 0; ; seq++ {
			rec, err := src.Next()
			if err != nil {
				readErr = err
				return
			}
			if rec == nil {
				return
			}
			items <- WorkItem{Seq: seq, Record: rec}
		}
	}()

	var stats Stats
	OrderedCollect(ResolveParallel(items, workers), func(r WorkResult) {
		p.step(buf, r.Record, r.Allele, &stats)
	})
	// Results close only after items does, so readErr is settled here.
	return stats, readErr
}
