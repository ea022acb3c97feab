// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package componenttest holds the cross-process component tests of the
// request-response channel: payload types, request checks, response
// builders and a registry keyed by test name.
//
// Each test has a server side, run as a [reqresp.Session], and a client
// side that sends the expected requests and checks the responses.
package componenttest

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"code.hybscloud.com/reqresp"
)

// ServicePrefix prefixes the service name of every component test.
const ServicePrefix = "iox2-component-tests-"

// ServiceName returns the service name of the test called name.
func ServiceName(name string) string {
	return ServicePrefix + name
}

// Options configures a test run.
type Options struct {
	RefreshInterval time.Duration
	Service         []reqresp.ServiceOption
	Logger          *zap.Logger
	Metrics         *reqresp.Metrics
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// Test is a component test.
type Test interface {
	// Name returns the test name, which also selects its service.
	Name() string
	// Serve runs the server side until the session ends.
	Serve(node *reqresp.Node, opts Options) error
	// Request runs the client side: it sends the test requests and checks
	// the responses.
	Request(node *reqresp.Node, opts Options) error
}

var registry = []Test{
	containersTest{},
	containerMutationTest{},
}

// Tests returns all component tests in registration order.
func Tests() []Test {
	return append([]Test(nil), registry...)
}

// Lookup returns the test called name.
func Lookup(name string) (Test, bool) {
	for _, t := range registry {
		if t.Name() == name {
			return t, true
		}
	}
	return nil, false
}

// serve opens the test service, creates its server and runs one session.
func serve[Req, Resp any](node *reqresp.Node, name string, h reqresp.Handler[Req, Resp], opts Options) error {
	svc, err := reqresp.OpenOrCreate[Req, Resp](node, ServiceName(name), opts.Service...)
	if err != nil {
		return fmt.Errorf("open service for %s: %w", name, err)
	}
	defer svc.Close()
	server, err := svc.ServerBuilder().Logger(opts.logger()).Metrics(opts.Metrics).Create()
	if err != nil {
		return fmt.Errorf("create server for %s: %w", name, err)
	}
	defer server.Close()
	var sessOpts []reqresp.SessionOption
	if opts.RefreshInterval > 0 {
		sessOpts = append(sessOpts, reqresp.WithRefreshInterval(opts.RefreshInterval))
	}
	return reqresp.NewSession(node, svc, server, h, sessOpts...).Run()
}

// connect opens the test service and creates a client.
func connect[Req, Resp any](node *reqresp.Node, name string, opts Options) (*reqresp.Service[Req, Resp], *reqresp.Client[Req, Resp], error) {
	svc, err := reqresp.OpenOrCreate[Req, Resp](node, ServiceName(name), opts.Service...)
	if err != nil {
		return nil, nil, fmt.Errorf("open service for %s: %w", name, err)
	}
	client, err := svc.ClientBuilder().Create()
	if err != nil {
		_ = svc.Close()
		return nil, nil, fmt.Errorf("create client for %s: %w", name, err)
	}
	return svc, client, nil
}
