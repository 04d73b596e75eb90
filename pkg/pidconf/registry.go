// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package pidconf

import (
	"fmt"
	"math"
	"strings"
)

// ValidatorKind selects the extra acceptance rule applied after the bounds check.
type ValidatorKind int

// Validator kinds
const (
	Always ValidatorKind = iota
	IsInteger
	IsOddInteger
)

// String returns the validator name
func (k ValidatorKind) String() string {
	switch k {
	case Always:
		return "any"
	case IsInteger:
		return "integer"
	case IsOddInteger:
		return "odd integer"
	default:
		return fmt.Sprintf("ValidatorKind(%d)", int(k))
	}
}

// Accepts reports whether v satisfies the rule.
func (k ValidatorKind) Accepts(v float64) bool {
	switch k {
	case Always:
		return true
	case IsInteger:
		return math.Floor(v) == v
	case IsOddInteger:
		return math.Floor(v) == v && int64(v)%2 == 1
	default:
		return false
	}
}

// Parameter describes one tunable controller parameter.
// ID doubles as the read opcode.
type Parameter struct {
	Name      string
	ID        byte
	Width     int
	Scale     float64
	Min       float64
	Max       float64
	Validator ValidatorKind
}

// ReadOpcode returns the opcode that reads this parameter
func (p Parameter) ReadOpcode() byte {
	return p.ID
}

// WriteOpcode returns the opcode that writes this parameter
func (p Parameter) WriteOpcode() byte {
	return p.ID | WriteOffset
}

// Validate reports whether value is within bounds and accepted by the
// parameter's validator. NaN is always rejected.
func (p Parameter) Validate(value float64) bool {
	return value >= p.Min && value <= p.Max && p.Validator.Accepts(value)
}

// Check is Validate returning an ErrOutOfRange error that names the rule.
func (p Parameter) Check(value float64) error {
	if p.Validate(value) {
		return nil
	}
	if p.Validator == Always {
		return fmt.Errorf("%w: %s=%g (allowed %g..%g)", ErrOutOfRange, p.Name, value, p.Min, p.Max)
	}
	return fmt.Errorf("%w: %s=%g (allowed %s in %g..%g)", ErrOutOfRange, p.Name, value, p.Validator, p.Min, p.Max)
}

// parameters is the controller's parameter table. Never mutated.
var parameters = []Parameter{
	{Name: "kp", ID: 0, Width: 2, Scale: 256, Min: 0, Max: 256, Validator: Always},
	{Name: "ki", ID: 1, Width: 2, Scale: 256, Min: 0, Max: 256, Validator: Always},
	{Name: "kd", ID: 2, Width: 2, Scale: 256, Min: 0, Max: 256, Validator: Always},
	{Name: "pid-blend", ID: 3, Width: 1, Scale: 255, Min: 0, Max: 1, Validator: Always},
	{Name: "enc-frames", ID: 4, Width: 1, Scale: 1, Min: 0, Max: 32, Validator: IsInteger},
	{Name: "recv-samples", ID: 5, Width: 1, Scale: 1, Min: 0, Max: 31, Validator: IsOddInteger},
	{Name: "right-board", ID: 6, Width: 1, Scale: 1, Min: 0, Max: 1, Validator: IsInteger},
}

var parametersByName, parametersByID = indexParameters()

func indexParameters() (map[string]Parameter, map[byte]Parameter) {
	byName := make(map[string]Parameter, len(parameters))
	byID := make(map[byte]Parameter, len(parameters))
	for _, p := range parameters {
		byName[p.Name] = p
		byID[p.ID] = p
	}
	return byName, byID
}

// Lookup finds a parameter by name, ignoring case.
func Lookup(name string) (Parameter, error) {
	p, ok := parametersByName[strings.ToLower(name)]
	if !ok {
		return Parameter{}, fmt.Errorf("%w: %q", ErrUnknownParameter, name)
	}
	return p, nil
}

// LookupID finds a parameter by its id.
func LookupID(id byte) (Parameter, bool) {
	p, ok := parametersByID[id]
	return p, ok
}

// Parameters returns a copy of the parameter table in id order.
func Parameters() []Parameter {
	out := make([]Parameter, len(parameters))
	copy(out, parameters)
	return out
}

// Validate is the free-function form of Parameter.Validate.
func Validate(p Parameter, value float64) bool {
	return p.Validate(value)
}
