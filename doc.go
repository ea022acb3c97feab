// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package reqresp provides a zero-copy request-response channel between
// clients and servers of a named service, and a server session state
// machine driving one conversation to completion.
//
// Payloads live in fixed slot pools owned by each connection. A client
// loans a request slot, writes it in place and sends its index; the server
// loans a response slot, writes it and sends the index back. Payloads must
// be self-contained: no pointers, slices, maps, strings or interfaces. Use
// the bounded containers of [code.hybscloud.com/reqresp/container] for
// variable-length data.
//
// # Architecture
//
//   - Transport: Lock-free bounded SPSC lanes via [code.hybscloud.com/lfq], three per connection.
//   - Non-blocking: Port operations never wait; effect dispatch returns [code.hybscloud.com/iox.ErrWouldBlock] while a response is pending.
//   - Services: [Node] scopes a [Domain] of named services. [OpenOrCreate], [Create] and [Open] check [TypeDetails] of both payload types.
//   - Sessions: [Session] walks AwaitingClients, Polling, then Completed or Failed. Failures carry a [SessionError] cause.
//
// # API Topologies
//
//   - Ports: [Client.LoanUninit], [RequestMut.Send], [PendingResponse.Receive]; [Server.Receive], [ActiveRequest.LoanUninit], [SendResponse].
//   - Effects: [Send], [Recv], [Close] dispatched on a [Client].
//   - Cont-world: [SendThen], [RecvBind], [CloseDone], [Call]. Expr-world: [ExprSendThen], [ExprRecvBind], [ExprCall], [ExprThenClose].
//   - Recursive: [Loop], [ExprLoop], [CallLoop] and [ExprCallLoop].
//
// # Integration
//
//   - Stepping: [Step] and [Advance] (or [StepError]/[AdvanceError]) evaluate a client protocol one effect at a time.
//   - Blocking: [Exec] (and Error/Expr variants) wait for responses using adaptive backoff.
//   - In process: [Loopback] interleaves a client protocol with a server on one goroutine.
//
// # Example
//
//	node := reqresp.NewNode()
//	svc, _ := reqresp.OpenOrCreate[Ping, Pong](node, "ping")
//	server, _ := svc.ServerBuilder().Create()
//	client, _ := svc.ClientBuilder().Create()
//	protocol := reqresp.ExprThenClose(reqresp.ExprCall[Ping, Pong](Ping{Seq: 1}))
//	pong, err := reqresp.Loopback(client, protocol, server, handler)
package reqresp
