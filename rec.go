// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package reqresp

import (
	"code.hybscloud.com/kont"
)

// Loop runs a recursive client protocol (Cont-world), such as a request
// series whose next request depends on the previous response.
// step returns Left(nextState) to continue or Right(result) to finish.
func Loop[S, A any](initial S, step func(S) kont.Eff[kont.Either[S, A]]) kont.Eff[A] {
	return kont.Bind(step(initial), func(e kont.Either[S, A]) kont.Eff[A] {
		if left, ok := e.GetLeft(); ok {
			return Loop(left, step)
		}
		right, _ := e.GetRight()
		return kont.Pure(right)
	})
}

// ExprLoop runs a recursive client protocol (Expr-world).
// step returns Left(nextState) to continue or Right(result) to finish.
// Fuses ExprBind inline to avoid the type-erasing wrapper closure.
func ExprLoop[S, A any](initial S, step func(S) kont.Expr[kont.Either[S, A]]) kont.Expr[A] {
	m := step(initial)
	if _, ok := m.Frame.(kont.ReturnFrame); ok {
		if left, ok := m.Value.GetLeft(); ok {
			return ExprLoop(left, step)
		}
		right, _ := m.Value.GetRight()
		return kont.ExprReturn(right)
	}
	bf := kont.AcquireBindFrame()
	bf.F = func(a kont.Erased) kont.Expr[kont.Erased] {
		e := a.(kont.Either[S, A])
		if left, ok := e.GetLeft(); ok {
			result := ExprLoop(left, step)
			return kont.Expr[kont.Erased]{Value: kont.Erased(result.Value), Frame: result.Frame}
		}
		right, _ := e.GetRight()
		return kont.Expr[kont.Erased]{Value: kont.Erased(right), Frame: kont.ReturnFrame{}}
	}
	bf.Next = kont.ReturnFrame{}
	var zero A
	return kont.Expr[A]{
		Value: zero,
		Frame: kont.ChainFrames(m.Frame, bf),
	}
}

// CallLoop issues a series of requests starting with first. After each
// response, next returns Left(request) to continue or Right(result) to
// finish.
func CallLoop[Req, Resp, A any](first Req, next func(Resp) kont.Either[Req, A]) kont.Eff[A] {
	return Loop(first, func(req Req) kont.Eff[kont.Either[Req, A]] {
		return Call(req, func(resp Resp) kont.Eff[kont.Either[Req, A]] {
			return kont.Pure(next(resp))
		})
	})
}

// ExprCallLoop is the Expr-world CallLoop.
func ExprCallLoop[Req, Resp, A any](first Req, next func(Resp) kont.Either[Req, A]) kont.Expr[A] {
	return ExprLoop(first, func(req Req) kont.Expr[kont.Either[Req, A]] {
		return ExprCall(req, func(resp Resp) kont.Expr[kont.Either[Req, A]] {
			return kont.ExprReturn(next(resp))
		})
	})
}
