package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_login_attempts_total",
			Help: "Total login attempts by result.",
		},
		[]string{"result"},
	)

	tokenRotations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auth_token_rotations_total",
			Help: "Total successful refresh-token rotations.",
		},
	)

	tokenReuseDetections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auth_token_reuse_detections_total",
			Help: "Total confirmed refresh-token reuse detections.",
		},
	)

	sessionsRevoked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_sessions_revoked_total",
			Help: "Total revoke-all operations by reason.",
		},
		[]string{"reason"},
	)
)

// Metric label values.
const (
	resultSuccess = "success"
	resultFailure = "failure"
)
