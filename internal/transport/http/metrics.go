package httptransport

import "expvar"

var (
	stateQueryTotal       = expvar.NewInt("state_query_total")
	stateQueryErrorsTotal = expvar.NewInt("state_query_errors_total")
	stateQueryLastMS      = expvar.NewInt("state_query_last_ms")
	roundSubmitTotal      = expvar.NewInt("round_submit_total")
	roundSubmitErrors     = expvar.NewInt("round_submit_errors_total")
	eventAppendTotal      = expvar.NewInt("event_append_total")
)
