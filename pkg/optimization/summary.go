// Package optimization holds the result type shared by the optimizer, the
// forecast result and the output formatters.
package optimization

// Summary is the outcome of one cash-floor search over a configuration field.
// Converged is false when neither bound held the floor; Value is then the
// bound that came closest.
type Summary struct {
	Name            string   `json:"name,omitempty"`
	Field           string   `json:"field"`
	Original        float64  `json:"original"`
	Value           float64  `json:"value"`
	Floor           float64  `json:"floor"`
	MinimumCash     float64  `json:"minimumCash"`
	Headroom        float64  `json:"headroom"`
	Iterations      int      `json:"iterations"`
	Converged       bool     `json:"converged"`
	Notes           []string `json:"notes,omitempty"`
	OriginalDisplay string   `json:"originalDisplay,omitempty"`
	ValueDisplay    string   `json:"valueDisplay,omitempty"`
}
