package sessionsync

import "expvar"

var (
	metricPollTotal       = expvar.NewInt("poll_total")
	metricPollDedupTotal  = expvar.NewInt("poll_dedup_total")
	metricPollFailedTotal = expvar.NewInt("poll_failed_total")
	metricCircuitOpen     = expvar.NewInt("poll_circuit_open_total")
	metricRoundSubmits    = expvar.NewInt("poll_round_submit_total")
)
