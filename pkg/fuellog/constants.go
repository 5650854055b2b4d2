package fuellog

const (
	operationSubmit = "submit_fuel_entry"
	operationList   = "list_entries"

	operationStatusOK    = "ok"
	operationStatusError = "error"

	// Best-effort steps downstream of the primary insert. Each failure is
	// reported as a warning on the result, never as an error.
	WarningStepOdometerBump    = "odometer_bump"
	WarningStepRecalcEntry     = "recalculate_entry"
	WarningStepRecalcSuccessor = "recalculate_successor"
	WarningStepAverageMPG      = "average_mpg"
)
