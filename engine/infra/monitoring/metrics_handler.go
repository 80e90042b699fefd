package monitoring

// MetricsHandler godoc
//
//	@Summary		Prometheus metrics endpoint
//	@Description	Exposes service metrics in Prometheus exposition format.
//	@Description
//	@Description	Available metrics include:
//	@Description	- HTTP request rates and latencies
//	@Description	- Schema compilation and validation outcomes
//	@Description	- Remote preset fetch latencies
//	@Description	- Build information and uptime
//	@Tags			Operations
//	@Produce		plain
//	@Success		200	{string}	string	"Metrics in Prometheus format"
//	@Failure		503	{string}	string	"Monitoring service unavailable"
//	@Router			/metrics [get]
func MetricsHandler() {
}
