package system

import (
	"errors"

	"github.com/hulubedeje/hms/internal/platform/docstore"
)

const maxErrLen = 100

// Diagnostic is the body of GET /test. Every field is always present.
type Diagnostic struct {
	Backend          string   `json:"backend"`
	Database         string   `json:"database"`
	DatabaseURL      string   `json:"database_url"`
	DatabaseName     string   `json:"database_name"`
	ConnectionStatus string   `json:"connection_status"`
	Collections      []string `json:"collections"`
}

// Diagnose renders a gateway status for humans.
func Diagnose(st docstore.Status) Diagnostic {
	d := Diagnostic{
		Backend:          "✅ Running",
		Database:         "❌ Not Available",
		DatabaseURL:      "❌ Not Set",
		DatabaseName:     "❌ Not Set",
		ConnectionStatus: "Not Connected",
		Collections:      []string{},
	}
	if st.URLSet {
		d.DatabaseURL = "✅ Set"
	}
	if st.Database != "" {
		d.DatabaseName = st.Database
	}

	switch {
	case !st.Configured:
		d.Database = "❌ Not Initialized"
	case st.Err == nil:
		d.Database = "✅ Connected & Working"
		d.ConnectionStatus = "Connected"
		if st.Collections != nil {
			d.Collections = st.Collections
		}
	case errors.Is(st.Err, docstore.ErrStoreUnavailable):
		d.Database = "❌ Error: " + truncate(st.Err.Error(), maxErrLen)
	default:
		d.Database = "⚠️ Connected but Error: " + truncate(st.Err.Error(), maxErrLen)
	}
	return d
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
