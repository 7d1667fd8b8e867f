// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package flags

import (
	"strconv"
	"time"
)

// StringValue is a string flag that remembers whether it was set, so that
// Merge only overrides values given on the command line.
type StringValue struct {
	v *string
}

// Set implements the flag.Value interface.
func (s *StringValue) Set(v string) error {
	if s.v == nil {
		s.v = new(string)
	}
	*(s.v) = v
	return nil
}

// String implements the flag.Value interface.
func (s *StringValue) String() string {
	var current string
	if s.v != nil {
		current = *(s.v)
	}
	return current
}

// Merge will overlay this value if it has been set.
func (s *StringValue) Merge(onto *string) {
	if s.v != nil {
		*onto = *(s.v)
	}
}

// BoolValue provides a flag value that's aware if it has been set.
type BoolValue struct {
	v *bool
}

// IsBoolFlag allows -flag without a value.
func (b *BoolValue) IsBoolFlag() bool {
	return true
}

// Set implements the flag.Value interface.
func (b *BoolValue) Set(v string) error {
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return err
	}
	if b.v == nil {
		b.v = new(bool)
	}
	*(b.v) = parsed
	return nil
}

// String implements the flag.Value interface.
func (b *BoolValue) String() string {
	var current bool
	if b.v != nil {
		current = *(b.v)
	}
	return strconv.FormatBool(current)
}

// Merge will overlay this value if it has been set.
func (b *BoolValue) Merge(onto *bool) {
	if b.v != nil {
		*onto = *(b.v)
	}
}

// IntValue provides a flag value that's aware if it has been set.
type IntValue struct {
	v *int
}

// Set implements the flag.Value interface.
func (i *IntValue) Set(v string) error {
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return err
	}
	if i.v == nil {
		i.v = new(int)
	}
	*(i.v) = parsed
	return nil
}

// String implements the flag.Value interface.
func (i *IntValue) String() string {
	var current int
	if i.v != nil {
		current = *(i.v)
	}
	return strconv.Itoa(current)
}

// Merge will overlay this value if it has been set.
func (i *IntValue) Merge(onto *int) {
	if i.v != nil {
		*onto = *(i.v)
	}
}

// DurationValue provides a flag value that's aware if it has been set.
type DurationValue struct {
	v *time.Duration
}

// Set implements the flag.Value interface.
func (d *DurationValue) Set(v string) error {
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return err
	}
	if d.v == nil {
		d.v = new(time.Duration)
	}
	*(d.v) = parsed
	return nil
}

// String implements the flag.Value interface.
func (d *DurationValue) String() string {
	var current time.Duration
	if d.v != nil {
		current = *(d.v)
	}
	return current.String()
}

// Merge will overlay this value if it has been set.
func (d *DurationValue) Merge(onto *time.Duration) {
	if d.v != nil {
		*onto = *(d.v)
	}
}
