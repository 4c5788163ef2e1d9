package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/kokistudios/atlas/internal/filter"
)

// scoreFlag accepts all, 1, 2 or 3 for one score dimension.
type scoreFlag struct {
	value *int
}

var _ pflag.Value = (*scoreFlag)(nil)

func (f *scoreFlag) String() string {
	if f.value == nil {
		return "all"
	}
	return strconv.Itoa(*f.value)
}

func (f *scoreFlag) Set(s string) error {
	v, err := filter.ParseScore(s)
	if err != nil {
		return err
	}
	f.value = v
	return nil
}

func (f *scoreFlag) Type() string { return "score" }

// filterFlags binds the filter dimensions to a command's flags.
type filterFlags struct {
	sectors      []string
	capabilities []string
	search       string
	significance scoreFlag
	complexity   scoreFlag
	readiness    scoreFlag
}

func (f *filterFlags) register(fs *pflag.FlagSet) {
	fs.StringArrayVar(&f.sectors, "sector", nil, "Sector term, matched as a case-insensitive substring (repeatable)")
	fs.StringArrayVar(&f.capabilities, "capability", nil, "Capability id (repeatable)")
	fs.StringVarP(&f.search, "search", "s", "", "Text to find in titles and descriptions")
	fs.Var(&f.significance, "significance", "Significance score: all, 1, 2 or 3")
	fs.Var(&f.complexity, "complexity", "Complexity score: all, 1, 2 or 3")
	fs.Var(&f.readiness, "readiness", "Readiness score: all, 1, 2 or 3")
}

func (f *filterFlags) state() filter.State {
	return filter.State{}.
		WithSectors(f.sectors).
		WithCapabilities(f.capabilities).
		WithSearchText(f.search).
		WithScore(filter.Significance, f.significance.value).
		WithScore(filter.Complexity, f.complexity.value).
		WithScore(filter.Readiness, f.readiness.value)
}

// formatFlag restricts --format to the known renderers.
type formatFlag struct {
	value   string
	allowed []string
}

var _ pflag.Value = (*formatFlag)(nil)

func (f *formatFlag) String() string { return f.value }

func (f *formatFlag) Set(s string) error {
	for _, a := range f.allowed {
		if s == a {
			f.value = s
			return nil
		}
	}
	return fmt.Errorf("must be one of %v", f.allowed)
}

func (f *formatFlag) Type() string { return "format" }
