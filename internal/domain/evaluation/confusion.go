package evaluation

// Confusion counts threshold decisions against labels.
type Confusion struct {
	TP int `json:"tp"`
	FP int `json:"fp"`
	FN int `json:"fn"`
	TN int `json:"tn"`
}

// Add records a prediction p >= threshold against label y.
func (c *Confusion) Add(p, threshold float64, y int) {
	pred := p >= threshold
	switch {
	case pred && y == 1:
		c.TP++
	case pred:
		c.FP++
	case y == 1:
		c.FN++
	default:
		c.TN++
	}
}

// N is the number of decisions recorded.
func (c Confusion) N() int { return c.TP + c.FP + c.FN + c.TN }

// Accuracy is the exact-match rate.
func (c Confusion) Accuracy() (float64, error) {
	if c.N() == 0 {
		return 0, ErrEmptyDataset
	}
	return float64(c.TP+c.TN) / float64(c.N()), nil
}

// F1 is 2TP / (2TP + FP + FN), and 0 when there is nothing positive on
// either side.
func (c Confusion) F1() float64 {
	den := 2*c.TP + c.FP + c.FN
	if den == 0 {
		return 0
	}
	return float64(2*c.TP) / float64(den)
}
