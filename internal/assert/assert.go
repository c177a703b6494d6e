// Package assert panics when an invariant on a value the program generated
// itself does not hold. Never use it on user input.
package assert

import (
	"fmt"
)

// Length panics unless value has exactly expected bytes
func Length(name, value string, expected int) {
	if len(value) != expected {
		panic(fmt.Sprintf("assert.Length(%s) expected %d actual %d", name, expected, len(value)))
	}
}
