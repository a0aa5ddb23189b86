package gateway

const (
	HealthCheckRoute = "/healthz"
	MetricsRoute     = "/metrics"

	AuthParent       = "/v1/auth/"
	LoginRoute       = AuthParent + "login/{wallet}"
	AuthoritiesRoute = AuthParent + "authorities"
	BoundWalletRoute = AuthParent + "wallet/bound/{wallet}"
)
