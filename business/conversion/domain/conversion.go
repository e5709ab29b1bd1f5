package domain

// Candidate is the outcome of evaluating one intermediary.
// OK is false when the path yielded no result.
type Candidate struct {
	Intermediary string
	Output       float64
	OK           bool
}

// NoResult returns a candidate that produced nothing.
func NoResult(intermediary string) Candidate {
	return Candidate{Intermediary: intermediary}
}

// Best is the winning (amount, intermediary) pair.
type Best struct {
	Output       float64
	Intermediary string
}

// SelectBest folds candidates in order, keeping the strictly greatest output.
// Ties keep the earlier candidate. found is false when no candidate is OK.
func SelectBest(candidates []Candidate) (best Best, found bool) {
	for _, c := range candidates {
		if !c.OK {
			continue
		}
		if !found || c.Output > best.Output {
			best = Best{Output: c.Output, Intermediary: c.Intermediary}
			found = true
		}
	}
	return best, found
}

// Result is a successful conversion.
type Result struct {
	FromCurrency string
	ToCurrency   string
	InputAmount  float64
	OutputAmount float64
	Intermediary string
}
