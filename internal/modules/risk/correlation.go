package risk

import (
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/ksfraser/WealthSystem-sub012/internal/core"
	"github.com/ksfraser/WealthSystem-sub012/pkg/formulas"
)

// BuildCorrelationMatrix computes the pairwise daily-return correlation
// matrix for the given bar series. The matrix is what checkMaxCorrelation
// consumes; callers (C8) rebuild it lazily, only when the correlation check
// is actually configured. Series are aligned on their trailing overlap: each
// symbol contributes its last n daily returns, where n is the shortest
// return series among the inputs. Symbols with fewer than two returns are
// dropped.
func BuildCorrelationMatrix(bars map[string][]core.Bar) *core.CorrelationMatrix {
	type series struct {
		symbol  string
		returns []float64
	}

	var eligible []series
	minLen := 0
	for sym, b := range bars {
		r := formulas.CalculateReturns(core.Closes(b))
		if len(r) < 2 {
			continue
		}
		eligible = append(eligible, series{symbol: sym, returns: r})
		if minLen == 0 || len(r) < minLen {
			minLen = len(r)
		}
	}
	sort.Slice(eligible, func(i, j int) bool { return eligible[i].symbol < eligible[j].symbol })

	m := &core.CorrelationMatrix{}
	if len(eligible) == 0 {
		return m
	}

	x := mat.NewDense(minLen, len(eligible), nil)
	for col, s := range eligible {
		tail := s.returns[len(s.returns)-minLen:]
		for row, v := range tail {
			x.Set(row, col, v)
		}
		m.Symbols = append(m.Symbols, s.symbol)
	}

	var dst mat.SymDense
	stat.CorrelationMatrix(&dst, x, nil)

	m.Values = make([][]float64, len(eligible))
	for i := range m.Values {
		m.Values[i] = make([]float64, len(eligible))
		for j := range m.Values[i] {
			m.Values[i][j] = dst.At(i, j)
		}
	}
	return m
}
