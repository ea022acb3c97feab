// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package reqresp

import "errors"

// Service creation errors.
var (
	ErrInvalidName        = errors.New("reqresp: invalid service name")
	ErrTypeMismatch       = errors.New("reqresp: payload types do not match the existing service")
	ErrAlreadyExists      = errors.New("reqresp: service already exists")
	ErrDoesNotExist       = errors.New("reqresp: service does not exist")
	ErrUnsupportedPayload = errors.New("reqresp: payload type is not self-contained")
	ErrExceedsMaxClients  = errors.New("reqresp: exceeds the maximum number of clients")
	ErrExceedsMaxServers  = errors.New("reqresp: exceeds the maximum number of servers")
)

// Port and transport errors.
var (
	ErrConnectionClosed = errors.New("reqresp: connection closed")
	ErrLoanFailed       = errors.New("reqresp: loan failed")
	ErrLoanConsumed     = errors.New("reqresp: loan already consumed")
	ErrSendFailed       = errors.New("reqresp: send failed")
	ErrNoResponse       = errors.New("reqresp: request dropped without response")
)

// Session failure causes.
var (
	ErrNodeShutdown       = errors.New("reqresp: node shutdown")
	ErrTransport          = errors.New("reqresp: transport error")
	ErrClientDisconnected = errors.New("reqresp: client disconnected")
	ErrPayloadValidation  = errors.New("reqresp: payload validation failed")
)
