package types

// BatchResult is the ordered, deduplicated set of listings accumulated by one fetch run.
// Err holds the terminal error, if any; Listings are kept even when Err is set.
type BatchResult struct {
	RunID      string       `json:"run_id"`
	Listings   []JobListing `json:"listings"`
	Calls      int          `json:"calls"`   // provider calls issued, retries included
	Batches    int          `json:"batches"` // provider calls that returned successfully
	Duplicates int          `json:"duplicates"`
	Exhausted  bool         `json:"exhausted"`
	Err        error        `json:"-"`
}

// Len returns the number of accumulated listings.
func (r *BatchResult) Len() int {
	return len(r.Listings)
}

// Partial reports whether the run ended with an error but still produced listings.
func (r *BatchResult) Partial() bool {
	return r.Err != nil && len(r.Listings) > 0
}
