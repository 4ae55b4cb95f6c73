package metrics

const namespace = "registry_backend"

var SessionsCreated = NewCounter("sessions_created_total", "Upload sessions opened", []string{})
var SessionsRemoved = NewCounter("sessions_removed_total", "Upload sessions removed", []string{"op"})
var LayerLookups = NewCounter("layer_lookups_total", "Layer existence checks by outcome", []string{"result"})
var RequestDuration = NewHistogram("request_duration_seconds", "RPC handling latency", []string{"route", "status"})
