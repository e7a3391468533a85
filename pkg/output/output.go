// Package output renders task results for humans.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/AlexanderGrooff/hostrun/pkg"
)

const lineWidth = 80

// Options control what PrintResult shows.
type Options struct {
	// Threshold hides results below this severity. Zero means info.
	Threshold pkg.Severity
	// NoColor disables ANSI colors regardless of the terminal.
	NoColor bool
}

type printer struct {
	w    io.Writer
	opts Options

	title   *color.Color
	host    *color.Color
	ok      *color.Color
	changed *color.Color
	failed  *color.Color
}

func newPrinter(w io.Writer, opts Options) *printer {
	if opts.Threshold == 0 {
		opts.Threshold = pkg.SeverityInfo
	}
	p := &printer{
		w:       w,
		opts:    opts,
		title:   color.New(color.FgCyan, color.Bold),
		host:    color.New(color.FgBlue, color.Bold),
		ok:      color.New(color.FgGreen),
		changed: color.New(color.FgYellow),
		failed:  color.New(color.FgRed),
	}
	if opts.NoColor {
		for _, c := range []*color.Color{p.title, p.host, p.ok, p.changed, p.failed} {
			c.DisableColor()
		}
	}
	return p
}

// PrintResult writes an *AggregatedResult, *MultiResult or *Result to w.
func PrintResult(w io.Writer, v interface{}, opts Options) error {
	p := newPrinter(w, opts)
	switch r := v.(type) {
	case *pkg.AggregatedResult:
		return p.aggregated(r)
	case *pkg.MultiResult:
		return p.multi(r)
	case *pkg.Result:
		return p.result(r)
	}
	return fmt.Errorf("cannot print %T", v)
}

func pad(s string, fill string) string {
	if len(s) >= lineWidth {
		return s
	}
	return s + strings.Repeat(fill, lineWidth-len(s))
}

func (p *printer) aggregated(a *pkg.AggregatedResult) error {
	p.title.Fprintln(p.w, pad(a.Name, "*"))
	for _, host := range a.Keys() {
		mr, err := a.Get(host)
		if err != nil {
			return err
		}
		p.statusColor(mr.Failed(), mr.Changed()).Fprintln(p.w,
			pad(fmt.Sprintf("* %s ** changed : %t ", host, mr.Changed()), "*"))
		if err := p.multi(mr); err != nil {
			return err
		}
	}
	return nil
}

func (p *printer) multi(mr *pkg.MultiResult) error {
	var err error
	mr.Visit(p.opts.Threshold, func(r *pkg.Result) {
		if err == nil {
			err = p.result(r)
		}
	})
	if err != nil {
		return err
	}
	if mr.Len() > 0 && mr.At(0).Severity >= p.opts.Threshold {
		p.title.Fprintln(p.w, pad(fmt.Sprintf("^^^^ END %s ", mr.Name), "^"))
	}
	return nil
}

func (p *printer) result(r *pkg.Result) error {
	if r.Severity != 0 && r.Severity < p.opts.Threshold {
		return nil
	}
	header := fmt.Sprintf("vvvv %s ** changed : %t ", r.Name, r.Changed)
	p.statusColor(r.Failed, r.Changed).Fprintln(p.w, pad(header, "v")+" "+r.Severity.String())

	switch {
	case r.Exception != nil:
		p.failed.Fprintln(p.w, r.Exception.Error())
	case r.Result != nil:
		body, err := format(r.Result)
		if err != nil {
			return err
		}
		fmt.Fprintln(p.w, body)
	}
	if r.Diff != "" {
		fmt.Fprint(p.w, r.Diff)
	}
	return nil
}

func (p *printer) statusColor(failed, changed bool) *color.Color {
	switch {
	case failed:
		return p.failed
	case changed:
		return p.changed
	}
	return p.ok
}

func format(v interface{}) (string, error) {
	if s, ok := v.(string); ok {
		return strings.TrimRight(s, "\n"), nil
	}
	out, err := yaml.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to format result: %w", err)
	}
	return strings.TrimRight(string(out), "\n"), nil
}
