package domain

// ============================================================
// Health
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
}

// MetricsSnapshot is returned by GET /v1/admin/metrics.
type MetricsSnapshot struct {
	OrdersCreated       int64   `json:"ordersCreated"`
	OrdersAssigned      int64   `json:"ordersAssigned"`
	OrdersDelivered     int64   `json:"ordersDelivered"`
	StoreErrors         int64   `json:"storeErrors"`
	IdentityErrors      int64   `json:"identityErrors"`
	ProfileCacheHitRate float64 `json:"profileCacheHitRate"`
	Period              string  `json:"period"`
}
