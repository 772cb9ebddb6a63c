package service

import (
	"context"
	"math"
	"testing"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	. "github.com/smartystreets/goconvey/convey"
)

func str(s string) *string { return &s }

type outcomeCounter struct {
	outcomes map[string]float64
	label    string
}

func (c *outcomeCounter) With(labelValues ...string) metrics.Counter {
	return &outcomeCounter{outcomes: c.outcomes, label: labelValues[1]}
}

func (c *outcomeCounter) Add(delta float64) {
	c.outcomes[c.label] += delta
}

func TestSum(t *testing.T) {
	ctx := context.Background()

	Convey("Given a lenient service", t, func() {
		svc := New(log.NewNopLogger(), discard.NewCounter(), false)

		Convey("numeric operands are added", func() {
			cases := []struct {
				a, b string
				want float64
			}{
				{"2", "3", 5},
				{"-1", "1", 0},
				{"2.5", "0.5", 3},
				{"", "4", 4},
			}
			for _, c := range cases {
				rs, err := svc.Sum(ctx, str(c.a), str(c.b))
				So(err, ShouldBeNil)
				So(rs, ShouldEqual, c.want)
			}
		})

		Convey("a malformed operand yields NaN without an error", func() {
			rs, err := svc.Sum(ctx, str("foo"), str("3"))
			So(err, ShouldBeNil)
			So(math.IsNaN(rs), ShouldBeTrue)
		})

		Convey("a missing operand yields NaN without an error", func() {
			rs, err := svc.Sum(ctx, nil, str("3"))
			So(err, ShouldBeNil)
			So(math.IsNaN(rs), ShouldBeTrue)
		})
	})

	Convey("Given a strict service", t, func() {
		svc := New(log.NewNopLogger(), discard.NewCounter(), true)

		Convey("numeric operands are added", func() {
			rs, err := svc.Sum(ctx, str("2"), str("3"))
			So(err, ShouldBeNil)
			So(rs, ShouldEqual, 5)
		})

		Convey("a malformed operand is an error", func() {
			_, err := svc.Sum(ctx, str("2"), str("foo"))
			So(err, ShouldEqual, ErrInvalidOperand)
		})

		Convey("a missing operand is an error", func() {
			_, err := svc.Sum(ctx, nil, nil)
			So(err, ShouldEqual, ErrMissingOperand)
		})

		Convey("an infinite sum is not an error", func() {
			rs, err := svc.Sum(ctx, str("Infinity"), str("1"))
			So(err, ShouldBeNil)
			So(math.IsInf(rs, 1), ShouldBeTrue)
		})
	})
}

func TestInstrumentingMiddleware(t *testing.T) {
	Convey("Sums are counted by outcome", t, func() {
		counter := &outcomeCounter{outcomes: map[string]float64{}}
		ctx := context.Background()

		lenient := New(log.NewNopLogger(), counter, false)
		lenient.Sum(ctx, str("1"), str("2"))
		lenient.Sum(ctx, str("1"), str("x"))

		strict := New(log.NewNopLogger(), counter, true)
		strict.Sum(ctx, str("1"), nil)

		So(counter.outcomes["ok"], ShouldEqual, 1)
		So(counter.outcomes["nan"], ShouldEqual, 1)
		So(counter.outcomes["error"], ShouldEqual, 1)
	})
}
