// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package reqresp

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of servers and sessions.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	RequestsReceived *prometheus.CounterVec
	ResponsesSent    *prometheus.CounterVec
	LoanFailures     *prometheus.CounterVec
	SendFailures     *prometheus.CounterVec
	Sessions         *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg uses the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		RequestsReceived: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reqresp_requests_received_total",
				Help: "Total number of requests received by servers",
			},
			[]string{"service"},
		),
		ResponsesSent: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reqresp_responses_sent_total",
				Help: "Total number of responses sent by servers",
			},
			[]string{"service"},
		),
		LoanFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reqresp_response_loan_failures_total",
				Help: "Total number of failed response loans",
			},
			[]string{"service"},
		),
		SendFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reqresp_response_send_failures_total",
				Help: "Total number of failed response sends",
			},
			[]string{"service"},
		),
		Sessions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reqresp_sessions_total",
				Help: "Total number of finished server sessions by final state and cause",
			},
			[]string{"service", "state", "cause"},
		),
	}
}

func (m *Metrics) requestReceived(service string) {
	if m != nil {
		m.RequestsReceived.WithLabelValues(service).Inc()
	}
}

func (m *Metrics) responseSent(service string) {
	if m != nil {
		m.ResponsesSent.WithLabelValues(service).Inc()
	}
}

func (m *Metrics) loanFailed(service string) {
	if m != nil {
		m.LoanFailures.WithLabelValues(service).Inc()
	}
}

func (m *Metrics) sendFailed(service string) {
	if m != nil {
		m.SendFailures.WithLabelValues(service).Inc()
	}
}

func (m *Metrics) sessionFinished(service string, state State, err error) {
	if m != nil {
		m.Sessions.WithLabelValues(service, state.String(), causeLabel(err)).Inc()
	}
}

// causeLabel maps a session error to a bounded label value.
func causeLabel(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrNodeShutdown):
		return "node_shutdown"
	case errors.Is(err, ErrClientDisconnected):
		return "client_disconnected"
	case errors.Is(err, ErrPayloadValidation):
		return "payload_validation"
	case errors.Is(err, ErrLoanFailed):
		return "loan_failed"
	case errors.Is(err, ErrSendFailed):
		return "send_failed"
	case errors.Is(err, ErrTransport):
		return "transport"
	}
	return "other"
}
