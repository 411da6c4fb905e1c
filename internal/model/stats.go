package model

import "strings"

// Stats tallies generated and failed rows in a dataset.
type Stats struct {
	Generated      int `json:"generated"`
	Errors         int `json:"errors"`
	TotalProcessed int `json:"total_processed"`
	TotalRows      int `json:"total_rows"`
}

// ComputeStats counts rows with a generated body and rows with an error body.
func ComputeStats(ds *Dataset) Stats {
	if ds == nil {
		return Stats{}
	}
	var s Stats
	s.TotalRows = len(ds.Rows)
	for _, r := range ds.Rows {
		switch {
		case IsErrorBody(r.EmailBody):
			s.Errors++
		case !strings.Contains(r.EmailBody, ErrorPrefix) && IsProcessedBody(r.EmailBody):
			s.Generated++
		}
	}
	s.TotalProcessed = s.Generated + s.Errors
	return s
}
