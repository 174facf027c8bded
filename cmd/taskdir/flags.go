package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/stefanpenner/taskdir/pkg/store"
)

func hasChangedFlags(cmd *cobra.Command, flags ...string) bool {
	for _, flag := range flags {
		if cmd.Flags().Changed(flag) {
			return true
		}
	}
	return false
}

var flagAliases = map[string]string{
	"per_page":  "per-page",
	"context":   "body",
	"desc":      "body",
	"clear_due": "clear-due",
}

func setFlagAliases(flags *pflag.FlagSet, aliases map[string]string) {
	if len(aliases) == 0 {
		return
	}

	normalize := flags.GetNormalizeFunc()
	flags.SetNormalizeFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		if alias, ok := aliases[name]; ok {
			name = alias
		}
		return normalize(f, name)
	})
}

// priorityValue is a pflag.Value accepting 0-3 or P0-P3.
type priorityValue struct {
	p   store.Priority
	set bool
}

func (v *priorityValue) String() string {
	if !v.set {
		return ""
	}
	return v.p.String()
}

func (v *priorityValue) Set(s string) error {
	p, err := store.ParsePriority(s)
	if err != nil {
		return err
	}
	v.p, v.set = p, true
	return nil
}

func (v *priorityValue) Type() string { return "priority" }

// ptr returns the parsed priority, or nil when the flag wasn't given.
func (v *priorityValue) ptr() *store.Priority {
	if !v.set {
		return nil
	}
	p := v.p
	return &p
}

// priorityListValue collects a comma separated or repeated priority flag.
type priorityListValue struct {
	list []store.Priority
}

func (v *priorityListValue) String() string {
	parts := make([]string, len(v.list))
	for i, p := range v.list {
		parts[i] = p.String()
	}
	return strings.Join(parts, ",")
}

func (v *priorityListValue) Set(s string) error {
	for _, part := range strings.Split(s, ",") {
		p, err := store.ParsePriority(part)
		if err != nil {
			return err
		}
		v.list = append(v.list, p)
	}
	return nil
}

func (v *priorityListValue) Type() string { return "priorities" }

// dateValue is a pflag.Value for YYYY-MM-DD dates.
type dateValue struct {
	d *store.Date
}

func (v *dateValue) String() string {
	if v.d == nil {
		return ""
	}
	return v.d.String()
}

func (v *dateValue) Set(s string) error {
	d, err := store.ParseDate(s)
	if err != nil {
		return err
	}
	v.d = &d
	return nil
}

func (v *dateValue) Type() string { return "date" }

// parseStatuses reads a --status value. "all" removes the constraint.
func parseStatuses(s string) ([]store.Status, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "all") {
		return nil, nil
	}
	var out []store.Status
	for _, part := range strings.Split(s, ",") {
		st, err := store.ParseStatus(part)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}
