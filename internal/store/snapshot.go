package store

import (
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/model"
)

// snapshotRows flattens a dataset into run_rows records in snapshotColumns
// order. Extra columns are stored as a JSON object.
func snapshotRows(runID string, ds *model.Dataset) [][]any {
	out := make([][]any, len(ds.Rows))
	for i, r := range ds.Rows {
		extra := "{}"
		if len(r.Extra) > 0 {
			b, _ := json.Marshal(r.Extra) // map[string]string always marshals
			extra = string(b)
		}
		out[i] = []any{runID, r.Index, r.Company, r.Website, r.Industry, r.EmailBody, extra}
	}
	return out
}

func decodeExtra(raw string, r *model.Row) error {
	if raw == "" || raw == "{}" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), &r.Extra); err != nil {
		return eris.Wrapf(err, "store: unmarshal extra columns for row %d", r.Index)
	}
	return nil
}
