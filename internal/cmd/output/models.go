package output

import (
	"fmt"
	"strconv"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/agentstation/sevexport"
	"github.com/agentstation/sevexport/pkg/endpoints"
)

var titleCaser = cases.Title(language.English)

// EndpointsToTableData lists catalog descriptors in execution order.
func EndpointsToTableData(catalog *endpoints.Catalog) Data {
	data := Data{
		Headers:         []string{"#", "Model", "Relative URL", "Parameters", "Depends On"},
		ColumnAlignment: []Align{AlignRight, AlignLeft, AlignLeft, AlignLeft, AlignLeft},
	}
	for i, d := range catalog.Descriptors() {
		dependsOn := "-"
		if d.PathReplacement != nil {
			dependsOn = fmt.Sprintf("%s.%s → %s",
				d.PathReplacement.BaseModel,
				d.PathReplacement.ObjectProperty,
				d.PathReplacement.Placeholder())
		}
		params := d.ParametersString()
		if params == "" {
			params = "-"
		}
		data.Rows = append(data.Rows, []string{
			strconv.Itoa(i + 1),
			d.ModelName,
			d.RelativeURL,
			params,
			dependsOn,
		})
	}
	return data
}

// SummaryToTableData renders the per-model counts of an export run,
// followed by one row per written or skipped attachment.
func SummaryToTableData(s *sevexport.Summary) Data {
	data := Data{
		Headers:         []string{"Kind", "Name", "Count / Size", "Status"},
		ColumnAlignment: []Align{AlignLeft, AlignLeft, AlignRight, AlignLeft},
	}
	for _, m := range s.Models {
		data.Rows = append(data.Rows, []string{"Model", m.Model, strconv.Itoa(m.Count), "exported"})
	}
	for _, a := range s.Attachments {
		data.Rows = append(data.Rows, []string{titleCaser.String(a.Kind), a.FileName, formatBytes(a.Bytes), "saved"})
	}
	for _, sk := range s.Skipped {
		data.Rows = append(data.Rows, []string{titleCaser.String(sk.Kind), sk.DisplayName, "-", "skipped: " + sk.Reason})
	}
	for _, m := range s.Misses {
		data.Rows = append(data.Rows, []string{"Correlation", m.Source, "-", "missing: " + m.Reason})
	}
	data.Rows = append(data.Rows, []string{
		"Total",
		fmt.Sprintf("%s (%s)", s.Month, s.Duration().Round(time.Millisecond)),
		strconv.Itoa(s.Entities()),
		fmt.Sprintf("%d attachments", len(s.Attachments)),
	})
	return data
}

func formatBytes(n int) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := unit, 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGT"[exp])
}
