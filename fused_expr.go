// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package reqresp

import (
	"code.hybscloud.com/kont"
)

// Pre-allocated erased operation and frame to avoid boxing empty structs
// into any/kont.Frame on every Expr-world construction.
var (
	exprReturnFrame kont.Frame  = kont.ReturnFrame{}
	exprClose       kont.Erased = Close{}
)

// identityResume is the identity resume function for EffectFrame construction.
func identityResume(v kont.Erased) kont.Erased { return v }

// ExprSendThen sends a request and then continues with next.
// Fuses ExprPerform(Send[T]{Value: v}) + ExprThen.
func ExprSendThen[T, B any](v T, next kont.Expr[B]) kont.Expr[B] {
	tf := kont.AcquireThenFrame()
	tf.Second = kont.Expr[kont.Erased]{Value: kont.Erased(next.Value), Frame: next.Frame}
	tf.Next = exprReturnFrame
	ef := kont.AcquireEffectFrame()
	ef.Operation = Send[T]{Value: v}
	ef.Resume = identityResume
	ef.Next = tf
	return kont.ExprSuspend[B](ef)
}

func recvBindUnwind[T, B any](data, _, _ kont.Erased, current kont.Erased) (kont.Erased, kont.Frame) {
	f := data.(func(T) kont.Expr[B])
	result := f(current.(T))
	return kont.Erased(result.Value), result.Frame
}

// ExprRecvBind receives the oldest outstanding response and passes it to f.
// Fuses ExprPerform(Recv[T]{}) + ExprBind.
func ExprRecvBind[T, B any](f func(T) kont.Expr[B]) kont.Expr[B] {
	bf := kont.AcquireUnwindFrame()
	bf.Data1 = f
	bf.Unwind = recvBindUnwind[T, B]
	ef := kont.AcquireEffectFrame()
	ef.Operation = Recv[T]{}
	ef.Resume = identityResume
	ef.Next = bf
	return kont.ExprSuspend[B](ef)
}

// ExprCloseDone closes the client and returns a.
// Fuses ExprPerform(Close{}) + ExprThen + ExprReturn.
func ExprCloseDone[A any](a A) kont.Expr[A] {
	tf := kont.AcquireThenFrame()
	tf.Second = kont.Expr[kont.Erased]{Value: kont.Erased(a), Frame: exprReturnFrame}
	tf.Next = exprReturnFrame
	ef := kont.AcquireEffectFrame()
	ef.Operation = exprClose
	ef.Resume = identityResume
	ef.Next = tf
	return kont.ExprSuspend[A](ef)
}

// ExprCall sends a request and passes its response to f.
// Fuses ExprSendThen + ExprRecvBind.
func ExprCall[Req, Resp, B any](v Req, f func(Resp) kont.Expr[B]) kont.Expr[B] {
	return ExprSendThen(v, ExprRecvBind(f))
}

// ExprThenClose runs m, closes the client and returns m's result.
func ExprThenClose[A any](m kont.Expr[A]) kont.Expr[A] {
	if _, ok := m.Frame.(kont.ReturnFrame); ok {
		return ExprCloseDone(m.Value)
	}
	bf := kont.AcquireBindFrame()
	bf.F = func(a kont.Erased) kont.Expr[kont.Erased] {
		v, _ := a.(A)
		result := ExprCloseDone(v)
		return kont.Expr[kont.Erased]{Value: kont.Erased(result.Value), Frame: result.Frame}
	}
	bf.Next = exprReturnFrame
	var zero A
	return kont.Expr[A]{
		Value: zero,
		Frame: kont.ChainFrames(m.Frame, bf),
	}
}
