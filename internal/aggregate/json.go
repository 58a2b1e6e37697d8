package aggregate

import (
	"encoding/json"
	"fmt"

	"github.com/fyrsmithlabs/qualgate/internal/tool"
)

// JSONReport aggregates the results and renders the machine-readable
// report. A result that cannot be encoded (a Details value holding a
// channel, a cyclic map, ...) is dropped from the report and a
// serialization-error message is appended to Errors. The call never
// fails for encoding reasons.
func JSONReport(results []tool.Result) ([]byte, *Report) {
	var serializable []tool.Result
	var serializationErrors []string

	for _, res := range results {
		if _, err := json.Marshal(res); err != nil {
			serializationErrors = append(serializationErrors,
				fmt.Sprintf("serialization error: result for tool %q dropped: %v", res.Tool, err))
			continue
		}
		serializable = append(serializable, res)
	}

	report := Aggregate(serializable)
	report.Errors = append(report.Errors, serializationErrors...)

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		// Every individual result already proved encodable, so this is
		// unreachable for result content; still, degrade instead of
		// failing the report.
		report.Results = nil
		report.Errors = append(report.Errors, fmt.Sprintf("serialization error: results omitted: %v", err))
		data, _ = json.MarshalIndent(report, "", "  ")
	}

	return data, report
}
