package movementsensor

import (
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestNoErrors(t *testing.T) {
	le := NewLastError(1, 1)
	test.That(t, le.Get(), test.ShouldBeNil)
}

func TestOneError(t *testing.T) {
	le := NewLastError(1, 1)

	le.Set(errors.New("it's a test error"))
	test.That(t, le.Get(), test.ShouldNotBeNil)
	// We got the error, so it shouldn't be in here any more.
	test.That(t, le.Get(), test.ShouldBeNil)
}

func TestTwoErrors(t *testing.T) {
	le := NewLastError(2, 1)

	le.Set(errors.New("first"))
	le.Set(errors.New("second"))

	err := le.Get()
	test.That(t, err.Error(), test.ShouldEqual, "second")
}

func TestThreshold(t *testing.T) {
	le := NewLastError(4, 2)

	le.Set(errors.New("transient"))
	le.Set(nil)
	// One error in the window is below the threshold.
	test.That(t, le.Get(), test.ShouldBeNil)

	le.Set(errors.New("again"))
	le.Set(nil)
	err := le.Get()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldEqual, "again")
}

func TestOldErrorsAgeOut(t *testing.T) {
	le := NewLastError(2, 1)

	le.Set(errors.New("old"))
	le.Set(nil)
	le.Set(nil)
	test.That(t, le.Get(), test.ShouldBeNil)
}
