package main

import (
	"i4.energy/across/atlink/match"
	"i4.energy/across/atlink/sequence"
)

// StepView is the JSON form of a step result.
type StepView struct {
	Name        string            `json:"name"`
	Command     string            `json:"command,omitempty"`
	Outcome     string            `json:"outcome"`
	Reason      string            `json:"reason,omitempty"`
	Attempts    int               `json:"attempts"`
	ElapsedMS   int64             `json:"elapsed_ms"`
	Lines       []string          `json:"lines,omitempty"`
	Fields      map[string]string `json:"fields,omitempty"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`
}

// ReportView is the JSON form of a script report, served over HTTP and
// published over MQTT.
type ReportView struct {
	Script    string            `json:"script"`
	Succeeded bool              `json:"succeeded"`
	Halted    bool              `json:"halted"`
	Fields    map[string]string `json:"fields,omitempty"`
	Steps     []StepView        `json:"steps"`
	Error     string            `json:"error,omitempty"`
}

func outcomeFields(o match.Outcome) (outcome, reason string) {
	reason = o.Reason
	if o.Kind == match.KindTransportError && o.Cause != nil {
		reason = o.Cause.Error()
	}
	return o.Kind.String(), reason
}

// NewReportView converts report and the error of the run that produced it.
func NewReportView(report sequence.Report, runErr error) ReportView {
	view := ReportView{
		Script:    report.Script,
		Succeeded: runErr == nil && report.Succeeded(),
		Halted:    report.Halted,
		Steps:     make([]StepView, 0, len(report.Steps)),
	}
	if fields := report.Fields(); len(fields) > 0 {
		view.Fields = fields
	}
	if runErr != nil {
		view.Error = runErr.Error()
	}
	for _, st := range report.Steps {
		sv := StepView{
			Name:      st.Name,
			Command:   st.Command,
			Attempts:  st.Attempts,
			ElapsedMS: st.Elapsed.Milliseconds(),
			Lines:     st.Lines,
			Fields:    st.Fields,
		}
		sv.Outcome, sv.Reason = outcomeFields(st.Outcome)
		if len(st.FieldErrors) > 0 {
			sv.FieldErrors = make(map[string]string, len(st.FieldErrors))
			for name, err := range st.FieldErrors {
				sv.FieldErrors[name] = err.Error()
			}
		}
		view.Steps = append(view.Steps, sv)
	}
	return view
}
