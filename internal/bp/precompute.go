package bp

// precomputedMoves tabulates move gains for the (left, right) size pairs the
// recursion will visit, bounded by a degree limit. Splitting n documents
// always yields sides of floor(n/2) and ceil(n/2), so the reachable size
// pairs form a small set derivable from the corpus size alone.
type precomputedMoves struct {
	degreeLimit int32
	tables      map[sizePair][]float64
}

type sizePair struct {
	fromN int
	toN   int
}

func newPrecomputedMoves(n, degreeLimit int) *precomputedMoves {
	p := &precomputedMoves{
		degreeLimit: int32(degreeLimit),
		tables:      make(map[sizePair][]float64),
	}
	p.precompute(n)
	return p
}

func (p *precomputedMoves) precompute(n int) {
	if n < 2 {
		return
	}
	n1 := n / 2
	n2 := (n + 1) / 2
	if _, ok := p.tables[sizePair{n1, n2}]; !ok {
		p.tables[sizePair{n1, n2}] = p.buildTable(n1, n2)
		p.precompute(n1)
		p.precompute(n2)
	}
	if _, ok := p.tables[sizePair{n2, n1}]; !ok {
		p.tables[sizePair{n2, n1}] = p.buildTable(n2, n1)
	}
}

// buildTable tabulates moveGain for fromDeg in [1, limit) and toDeg in
// [0, limit). Row 0 stays zero: a document's own term always counts at least
// once on its side, so fromDeg 0 is unreachable.
func (p *precomputedMoves) buildTable(fromN, toN int) []float64 {
	limit := int(p.degreeLimit)
	logn1 := log2(fromN)
	logn2 := log2(toN)
	table := make([]float64, limit*limit)
	for i := 1; i < limit; i++ {
		for j := 0; j < limit; j++ {
			table[i*limit+j] = moveGain(logn1, logn2, int32(i), int32(j))
		}
	}
	return table
}

// precomputedGains serves gains from the lookup table, falling back to direct
// computation for degrees at or above the bound, and for side-size pairs the
// precomputation never visited. The tables are read-only after construction,
// so sharing one instance across concurrent sides is safe.
func precomputedGains(moves *precomputedMoves, workers int, parallel bool) GainFunc {
	direct := directGains(workers, parallel)
	return func(r Range, fromN, toN int, fromDeg, toDeg []int32) {
		table, ok := moves.tables[sizePair{fromN, toN}]
		if !ok {
			direct(r, fromN, toN, fromDeg, toDeg)
			return
		}
		limit := moves.degreeLimit
		logn1 := log2(fromN)
		logn2 := log2(toN)
		docGain := func(d uint32) {
			var gain float64
			for _, t := range r.terms(d) {
				df, dt := fromDeg[t], toDeg[t]
				if df < limit && dt < limit {
					gain += table[df*limit+dt]
				} else {
					gain += moveGain(logn1, logn2, df, dt)
				}
			}
			r.gains[d] = gain
		}
		if !parallel {
			for _, d := range r.ids {
				docGain(d)
			}
			return
		}
		forEachChunk(r.ids, workers, func(ids []uint32) {
			for _, d := range ids {
				docGain(d)
			}
		})
	}
}
