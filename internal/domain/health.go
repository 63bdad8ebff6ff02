package domain

// HealthStatus grades one doctor diagnostic.
type HealthStatus string

const (
	HealthOK    HealthStatus = "ok"
	HealthWarn  HealthStatus = "warn"
	HealthError HealthStatus = "error"
)

// HealthCheck is one doctor finding: the subsystem checked, how it fared,
// and a human-readable detail line.
type HealthCheck struct {
	Name    string
	Status  HealthStatus
	Details string
}

// HealthReport collects the doctor checks for rendering.
type HealthReport struct {
	Checks []HealthCheck
}
