package domain

// Pair is a directed relation between two coins.
// A→B and B→A are distinct pairs.
type Pair struct {
	ID       int64
	FromCoin string
	ToCoin   string
	Ratio    *float64 // baseline ratio; nil until first computed
}

// HasRatio reports whether a baseline ratio has been set.
func (p *Pair) HasRatio() bool {
	return p.Ratio != nil
}

// PairKey identifies a pair by its endpoints.
type PairKey struct {
	FromCoin string
	ToCoin   string
}

// Key returns the pair's unique key.
func (p *Pair) Key() PairKey {
	return PairKey{FromCoin: p.FromCoin, ToCoin: p.ToCoin}
}

func (k PairKey) String() string {
	return k.FromCoin + "->" + k.ToCoin
}
