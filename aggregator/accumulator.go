package aggregator

import (
	"math"
	"sync/atomic"
	"unsafe"

	"github.com/dravaio/drava/wire"
)

// Int64Accumulator implements a concurrent-safe summing accumulator for
// int64 values.
type Int64Accumulator struct {
	prevSum int64
	curSum  int64
}

// Type implements Aggregator.
func (a *Int64Accumulator) Type() string { return "Int64Accumulator" }

// Get returns the current value of the accumulator.
func (a *Int64Accumulator) Get() interface{} {
	return atomic.LoadInt64(&a.curSum)
}

// Set the current value of the accumulator.
func (a *Int64Accumulator) Set(v interface{}) {
	for v64 := v.(int64); ; {
		oldCur := a.curSum
		oldPrev := a.prevSum
		swappedCur := atomic.CompareAndSwapInt64(&a.curSum, oldCur, v64)
		swappedPrev := atomic.CompareAndSwapInt64(&a.prevSum, oldPrev, v64)
		if swappedCur && swappedPrev {
			return
		}
	}
}

// Aggregate adds an int64 value to the accumulator.
func (a *Int64Accumulator) Aggregate(v interface{}) {
	_ = atomic.AddInt64(&a.curSum, v.(int64))
}

// Delta returns the change in the accumulator value since the last time it
// was invoked or the last time that Set was invoked.
func (a *Int64Accumulator) Delta() interface{} {
	for {
		curSum := atomic.LoadInt64(&a.curSum)
		prevSum := atomic.LoadInt64(&a.prevSum)
		if atomic.CompareAndSwapInt64(&a.prevSum, prevSum, curSum) {
			return curSum - prevSum
		}
	}
}

// EncodeValue implements Aggregator.
func (a *Int64Accumulator) EncodeValue(w *wire.Writer, val interface{}) error {
	return w.WriteVarint(val.(int64))
}

// DecodeValue implements Aggregator.
func (a *Int64Accumulator) DecodeValue(r *wire.Reader) (interface{}, error) {
	return r.ReadVarint()
}

// Float64Accumulator implements a concurrent-safe summing accumulator for
// float64 values.
type Float64Accumulator struct {
	prevSum float64
	curSum  float64
}

// Type implements Aggregator.
func (a *Float64Accumulator) Type() string { return "Float64Accumulator" }

// Get returns the current value of the accumulator.
func (a *Float64Accumulator) Get() interface{} {
	return loadFloat64(&a.curSum)
}

// Set the current value of the accumulator.
func (a *Float64Accumulator) Set(v interface{}) {
	for v64 := v.(float64); ; {
		oldCur := loadFloat64(&a.curSum)
		oldPrev := loadFloat64(&a.prevSum)
		swappedCur := atomic.CompareAndSwapUint64(
			(*uint64)(unsafe.Pointer(&a.curSum)),
			math.Float64bits(oldCur),
			math.Float64bits(v64),
		)
		swappedPrev := atomic.CompareAndSwapUint64(
			(*uint64)(unsafe.Pointer(&a.prevSum)),
			math.Float64bits(oldPrev),
			math.Float64bits(v64),
		)
		if swappedCur && swappedPrev {
			return
		}
	}
}

// Aggregate adds a float64 value to the accumulator.
func (a *Float64Accumulator) Aggregate(v interface{}) {
	for v64 := v.(float64); ; {
		oldV := loadFloat64(&a.curSum)
		newV := oldV + v64
		if atomic.CompareAndSwapUint64(
			(*uint64)(unsafe.Pointer(&a.curSum)),
			math.Float64bits(oldV),
			math.Float64bits(newV),
		) {
			return
		}
	}
}

// Delta returns the change in the accumulator value since the last time it
// was invoked or the last time that Set was invoked.
func (a *Float64Accumulator) Delta() interface{} {
	for {
		curSum := loadFloat64(&a.curSum)
		prevSum := loadFloat64(&a.prevSum)
		if atomic.CompareAndSwapUint64(
			(*uint64)(unsafe.Pointer(&a.prevSum)),
			math.Float64bits(prevSum),
			math.Float64bits(curSum),
		) {
			return curSum - prevSum
		}
	}
}

// EncodeValue implements Aggregator.
func (a *Float64Accumulator) EncodeValue(w *wire.Writer, val interface{}) error {
	return w.WriteFloat64(val.(float64))
}

// DecodeValue implements Aggregator.
func (a *Float64Accumulator) DecodeValue(r *wire.Reader) (interface{}, error) {
	return r.ReadFloat64()
}

func loadFloat64(v *float64) float64 {
	return math.Float64frombits(
		atomic.LoadUint64((*uint64)(unsafe.Pointer(v))),
	)
}

// Int64Min implements a concurrent-safe minimum tracker for int64 values.
// Minimum is idempotent under merging so Delta simply reports the current
// local minimum.
type Int64Min struct {
	cur int64
}

// NewInt64Min creates an Int64Min initialized to the maximum int64 value.
func NewInt64Min() *Int64Min {
	return &Int64Min{cur: math.MaxInt64}
}

// Type implements Aggregator.
func (a *Int64Min) Type() string { return "Int64Min" }

// Get returns the current minimum.
func (a *Int64Min) Get() interface{} { return atomic.LoadInt64(&a.cur) }

// Set the current minimum.
func (a *Int64Min) Set(v interface{}) { atomic.StoreInt64(&a.cur, v.(int64)) }

// Aggregate lowers the tracked minimum if v is smaller.
func (a *Int64Min) Aggregate(v interface{}) {
	for v64 := v.(int64); ; {
		cur := atomic.LoadInt64(&a.cur)
		if v64 >= cur || atomic.CompareAndSwapInt64(&a.cur, cur, v64) {
			return
		}
	}
}

// Delta implements Aggregator.
func (a *Int64Min) Delta() interface{} { return a.Get() }

// EncodeValue implements Aggregator.
func (a *Int64Min) EncodeValue(w *wire.Writer, val interface{}) error {
	return w.WriteVarint(val.(int64))
}

// DecodeValue implements Aggregator.
func (a *Int64Min) DecodeValue(r *wire.Reader) (interface{}, error) {
	return r.ReadVarint()
}

// Int64Max implements a concurrent-safe maximum tracker for int64 values.
type Int64Max struct {
	cur int64
}

// NewInt64Max creates an Int64Max initialized to the minimum int64 value.
func NewInt64Max() *Int64Max {
	return &Int64Max{cur: math.MinInt64}
}

// Type implements Aggregator.
func (a *Int64Max) Type() string { return "Int64Max" }

// Get returns the current maximum.
func (a *Int64Max) Get() interface{} { return atomic.LoadInt64(&a.cur) }

// Set the current maximum.
func (a *Int64Max) Set(v interface{}) { atomic.StoreInt64(&a.cur, v.(int64)) }

// Aggregate raises the tracked maximum if v is larger.
func (a *Int64Max) Aggregate(v interface{}) {
	for v64 := v.(int64); ; {
		cur := atomic.LoadInt64(&a.cur)
		if v64 <= cur || atomic.CompareAndSwapInt64(&a.cur, cur, v64) {
			return
		}
	}
}

// Delta implements Aggregator.
func (a *Int64Max) Delta() interface{} { return a.Get() }

// EncodeValue implements Aggregator.
func (a *Int64Max) EncodeValue(w *wire.Writer, val interface{}) error {
	return w.WriteVarint(val.(int64))
}

// DecodeValue implements Aggregator.
func (a *Int64Max) DecodeValue(r *wire.Reader) (interface{}, error) {
	return r.ReadVarint()
}

// BoolAnd implements a concurrent-safe logical-and reducer for bool values.
type BoolAnd struct {
	cur int32
}

// NewBoolAnd creates a BoolAnd initialized to true.
func NewBoolAnd() *BoolAnd {
	return &BoolAnd{cur: 1}
}

// Type implements Aggregator.
func (a *BoolAnd) Type() string { return "BoolAnd" }

// Get returns the current value.
func (a *BoolAnd) Get() interface{} { return atomic.LoadInt32(&a.cur) == 1 }

// Set the current value.
func (a *BoolAnd) Set(v interface{}) {
	var bit int32
	if v.(bool) {
		bit = 1
	}
	atomic.StoreInt32(&a.cur, bit)
}

// Aggregate combines v into the tracked value with logical and.
func (a *BoolAnd) Aggregate(v interface{}) {
	if !v.(bool) {
		atomic.StoreInt32(&a.cur, 0)
	}
}

// Delta implements Aggregator.
func (a *BoolAnd) Delta() interface{} { return a.Get() }

// EncodeValue implements Aggregator.
func (a *BoolAnd) EncodeValue(w *wire.Writer, val interface{}) error {
	return w.WriteBool(val.(bool))
}

// DecodeValue implements Aggregator.
func (a *BoolAnd) DecodeValue(r *wire.Reader) (interface{}, error) {
	return r.ReadBool()
}
