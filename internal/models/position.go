package models

// Position is the state of a single ticker holding at a point in time,
// under the weighted-average cost method. Invested is always
// Quantity × PRU; the three are kept together so a replay step can update
// them atomically.
type Position struct {
	Quantity float64 `json:"quantity"`
	PRU      float64 `json:"pru"`
	Invested float64 `json:"invested"`
}

// Flat returns true when no units are held. A flat position carries no cost
// basis: PRU and Invested are both zero until the next buy.
func (p Position) Flat() bool {
	return p.Quantity <= 0
}
