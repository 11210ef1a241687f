package utils

import (
	"math"
	"testing"

	"go.viam.com/test"
)

func TestRadToDeg(t *testing.T) {
	test.That(t, RadToDeg(math.Pi), test.ShouldAlmostEqual, 180.)
	test.That(t, RadToDeg(math.Pi/2), test.ShouldAlmostEqual, 90.)
	test.That(t, RadToDeg(0), test.ShouldEqual, 0.)
}

func TestIsFinite(t *testing.T) {
	test.That(t, IsFinite(1), test.ShouldBeTrue)
	test.That(t, IsFinite(math.NaN()), test.ShouldBeFalse)
	test.That(t, IsFinite(math.Inf(1)), test.ShouldBeFalse)
	test.That(t, IsFinite(math.Inf(-1)), test.ShouldBeFalse)
}
