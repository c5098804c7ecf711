package email

// Template names.
const (
	TemplateRunFailed = "run_failed"
	TemplateRunPassed = "run_passed"
)

// RunData is the payload of both run templates.
type RunData struct {
	RunID     string
	BaseURL   string
	Summary   string
	ReportURL string
	// Faults holds at most MaxListedFaults lines; MoreFaults counts the rest.
	Faults      []string
	MoreFaults  int
	Screenshots []string
}

// MaxListedFaults caps the fault lines carried in one notification.
const MaxListedFaults = 25

// NewRunData fills RunData, truncating faults to MaxListedFaults.
func NewRunData(runID, baseURL, summary, reportURL string, faults, screenshots []string) RunData {
	d := RunData{
		RunID:       runID,
		BaseURL:     baseURL,
		Summary:     summary,
		ReportURL:   reportURL,
		Screenshots: screenshots,
	}
	if len(faults) > MaxListedFaults {
		d.MoreFaults = len(faults) - MaxListedFaults
		faults = faults[:MaxListedFaults]
	}
	d.Faults = append([]string(nil), faults...)
	return d
}
