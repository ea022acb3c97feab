// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package reqresp

import (
	"code.hybscloud.com/kont"
)

// SendThen sends a request and then continues with next.
// Fuses Perform(Send[T]{Value: v}) + Then.
func SendThen[T, B any](v T, next kont.Eff[B]) kont.Eff[B] {
	return kont.Then(kont.Perform(Send[T]{Value: v}), next)
}

// RecvBind receives the oldest outstanding response and passes it to f.
// Fuses Perform(Recv[T]{}) + Bind.
func RecvBind[T, B any](f func(T) kont.Eff[B]) kont.Eff[B] {
	return kont.Bind(kont.Perform(Recv[T]{}), f)
}

// CloseDone closes the client and returns a.
// Fuses Perform(Close{}) + Then + Pure.
func CloseDone[A any](a A) kont.Eff[A] {
	return kont.Then(kont.Perform(Close{}), kont.Pure(a))
}

// Call sends a request and passes its response to f.
// Fuses SendThen + RecvBind.
func Call[Req, Resp, B any](v Req, f func(Resp) kont.Eff[B]) kont.Eff[B] {
	return SendThen(v, RecvBind(f))
}

// Reify converts a Cont-world client protocol to Expr-world, for ExecExpr,
// Loopback, or stepping with Step and Advance.
func Reify[A any](m kont.Eff[A]) kont.Expr[A] {
	return kont.Reify(m)
}

// Reflect converts an Expr-world client protocol to Cont-world, for Exec.
func Reflect[A any](m kont.Expr[A]) kont.Eff[A] {
	return kont.Reflect(m)
}
