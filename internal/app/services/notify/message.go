package notify

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// ReportMessage renders the delivery message for a finalized report
// from its frozen snapshot. The snapshot is authoritative; live sample
// or customer rows may have changed since the report was generated.
func ReportMessage(orgName, reportNumber, publicURL string, snapshot []byte) (subject, body string) {
	sampleCode := gjson.GetBytes(snapshot, "sample_code").String()
	sampleName := gjson.GetBytes(snapshot, "sample_name").String()
	customer := gjson.GetBytes(snapshot, "customer_name").String()
	generated := gjson.GetBytes(snapshot, "generated_at").String()
	resultCount := len(gjson.GetBytes(snapshot, "values").Array())

	subject = fmt.Sprintf("Report %s for sample %s", reportNumber, sampleCode)

	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", customer)
	fmt.Fprintf(&b, "The analysis report %s for sample %s", reportNumber, sampleCode)
	if sampleName != "" {
		fmt.Fprintf(&b, " (%s)", sampleName)
	}
	fmt.Fprintf(&b, " has been finalized. It contains %d result(s)", resultCount)
	if generated != "" {
		fmt.Fprintf(&b, ", generated at %s", generated)
	}
	b.WriteString(".\n")

	deps := gjson.GetBytes(snapshot, "departments.#.department").Array()
	if len(deps) > 0 {
		names := make([]string, 0, len(deps))
		for _, d := range deps {
			names = append(names, d.String())
		}
		fmt.Fprintf(&b, "Departments: %s\n", strings.Join(names, ", "))
	}

	if publicURL != "" {
		fmt.Fprintf(&b, "\nView the report online:\n%s\n", publicURL)
	}
	if orgName != "" {
		fmt.Fprintf(&b, "\nRegards,\n%s\n", orgName)
	}
	return subject, b.String()
}
