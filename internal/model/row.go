package model

// Column names the pipeline reads and writes.
const (
	ColumnCompany   = "Company"
	ColumnWebsite   = "Website"
	ColumnIndustry  = "Industry"
	ColumnEmailBody = "Email Body"
)

// RequiredColumns must be present in every input dataset.
var RequiredColumns = []string{ColumnCompany, ColumnWebsite, ColumnIndustry}

// Row is one company record from the input spreadsheet.
type Row struct {
	Index     int               `json:"index"`
	Company   string            `json:"company"`
	Website   string            `json:"website"`
	Industry  string            `json:"industry"`
	EmailBody string            `json:"email_body"`
	Extra     map[string]string `json:"extra,omitempty"` // columns the pipeline does not touch
}

// Get returns the value of a named column.
func (r *Row) Get(column string) string {
	switch column {
	case ColumnCompany:
		return r.Company
	case ColumnWebsite:
		return r.Website
	case ColumnIndustry:
		return r.Industry
	case ColumnEmailBody:
		return r.EmailBody
	default:
		return r.Extra[column]
	}
}

// Set assigns the value of a named column.
func (r *Row) Set(column, value string) {
	switch column {
	case ColumnCompany:
		r.Company = value
	case ColumnWebsite:
		r.Website = value
	case ColumnIndustry:
		r.Industry = value
	case ColumnEmailBody:
		r.EmailBody = value
	default:
		if r.Extra == nil {
			r.Extra = make(map[string]string)
		}
		r.Extra[column] = value
	}
}

// Clone returns a deep copy of the row.
func (r *Row) Clone() *Row {
	c := *r
	if r.Extra != nil {
		c.Extra = make(map[string]string, len(r.Extra))
		for k, v := range r.Extra {
			c.Extra[k] = v
		}
	}
	return &c
}

// Dataset is the ordered set of rows loaded from one input file. Rows are
// never reordered; a row's identity is its index.
type Dataset struct {
	Header []string `json:"header"`
	Rows   []*Row   `json:"rows"`
}

// NewDataset builds a Dataset from a header and records in header order.
// The Email Body column is appended to the header when absent.
func NewDataset(header []string, records [][]string) *Dataset {
	ds := &Dataset{Header: append([]string(nil), header...)}
	if !ds.HasColumn(ColumnEmailBody) {
		ds.Header = append(ds.Header, ColumnEmailBody)
	}

	for i, rec := range records {
		row := &Row{Index: i}
		for j, col := range header {
			if j < len(rec) {
				row.Set(col, rec[j])
			} else {
				row.Set(col, "")
			}
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds
}

// HasColumn reports whether the header contains the named column.
func (d *Dataset) HasColumn(name string) bool {
	for _, h := range d.Header {
		if h == name {
			return true
		}
	}
	return false
}

// MissingColumns returns the required columns absent from the header.
func (d *Dataset) MissingColumns() []string {
	var missing []string
	for _, c := range RequiredColumns {
		if !d.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	return missing
}

// Records returns the rows as string slices in header order.
func (d *Dataset) Records() [][]string {
	out := make([][]string, len(d.Rows))
	for i, row := range d.Rows {
		rec := make([]string, len(d.Header))
		for j, col := range d.Header {
			rec[j] = row.Get(col)
		}
		out[i] = rec
	}
	return out
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.Rows) }

// Clone returns a deep copy of the dataset.
func (d *Dataset) Clone() *Dataset {
	c := &Dataset{
		Header: append([]string(nil), d.Header...),
		Rows:   make([]*Row, len(d.Rows)),
	}
	for i, r := range d.Rows {
		c.Rows[i] = r.Clone()
	}
	return c
}
