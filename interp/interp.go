// interp/interp.go
package interp

import "time"

// BlendFunc advances current toward target by one step and returns the
// new current value. It must be pure; the Value calls it on every
// Update.
type BlendFunc[T any] func(current, target T, step float64) T

// Value carries a current and a target value of any type, converging
// the current toward the target with an injected blend function. The
// interpolation strategy lives in the function, not in the type, so one
// Value works for floats, durations, vectors, or anything else.
type Value[T any] struct {
	current T
	target  T
	blend   BlendFunc[T]
}

// New builds a Value starting at v with both current and target set.
// A nil blend makes Update snap straight to the target.
func New[T any](v T, blend BlendFunc[T]) *Value[T] {
	return &Value[T]{current: v, target: v, blend: blend}
}

// Current returns the interpolated value as of the last Update.
func (v *Value[T]) Current() T { return v.current }

// Target returns the value being converged toward.
func (v *Value[T]) Target() T { return v.target }

// SetTarget changes the convergence target without touching current.
func (v *Value[T]) SetTarget(t T) { v.target = t }

// Snap jumps current straight to the target.
func (v *Value[T]) Snap() { v.current = v.target }

// Update advances current toward target by step and returns the new
// current value.
func (v *Value[T]) Update(step float64) T {
	if v.blend == nil {
		v.current = v.target
		return v.current
	}
	v.current = v.blend(v.current, v.target, step)
	return v.current
}

// Lerp is the stock linear blend for float64 values. A step of 1 or
// more lands exactly on the target.
func Lerp(current, target, step float64) float64 {
	if step >= 1 {
		return target
	}
	if step <= 0 {
		return current
	}
	return current + (target-current)*step
}

// LerpDuration is Lerp over time.Duration, useful for smoothing tick
// intervals and countdowns.
func LerpDuration(current, target time.Duration, step float64) time.Duration {
	return time.Duration(Lerp(float64(current), float64(target), step))
}
