package config

import (
	"strconv"
	"time"
)

// Flag values remember whether they were set on the command line, so that
// lower priority sources only fill what the user did not pass explicitly.

type strFlag struct {
	v   string
	set bool
}

func (f *strFlag) String() string     { return f.v }
func (f *strFlag) Set(s string) error { f.v, f.set = s, true; return nil }

type intFlag struct {
	v   int
	set bool
}

func (f *intFlag) String() string { return strconv.Itoa(f.v) }
func (f *intFlag) Set(s string) error {
	i, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	f.v, f.set = i, true
	return nil
}

type durationFlag struct {
	v   time.Duration
	set bool
}

func (f *durationFlag) String() string { return f.v.String() }
func (f *durationFlag) Set(s string) error {
	d, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	f.v, f.set = d, true
	return nil
}
