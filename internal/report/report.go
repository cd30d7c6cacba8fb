package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/engine"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/primitive"
)

// #region levels
type level struct {
	min  float64
	text string
}

// levels lists descending score bands per primitive.
var levels = map[primitive.Kind][]level{
	primitive.Dopamine: {
		{0.7, "High (good for focus/work)"},
		{0.5, "Moderate"},
		{0.3, "Low (may affect motivation)"},
		{0, "Very low (impaired motivation/focus)"},
	},
	primitive.Serotonin: {
		{0.7, "High (stable mood)"},
		{0.5, "Moderate"},
		{0.3, "Low (may affect mood)"},
		{0, "Very low (mood instability risk)"},
	},
	primitive.Norepinephrine: {
		{0.7, "High (alert and focused)"},
		{0.5, "Moderate"},
		{0.3, "Low (reduced alertness)"},
		{0, "Very low (drowsy)"},
	},
	primitive.Adenosine: {
		{0.7, "High pressure (need sleep)"},
		{0.5, "Moderate pressure (building)"},
		{0.3, "Low pressure (alert)"},
		{0, "Very low pressure (recently rested)"},
	},
	primitive.Cortisol: {
		{0.7, "High (stressed/activated)"},
		{0.5, "Moderate (normal stress response)"},
		{0.3, "Low (relaxed)"},
		{0, "Very low (calm/depleted)"},
	},
	primitive.Glucose: {
		{0.7, "High (good energy availability)"},
		{0.5, "Moderate"},
		{0.3, "Low (may need food)"},
		{0, "Very low (depleted)"},
	},
	primitive.CircadianPhase: {
		{0.6, "Delayed (night-owl shift)"},
		{0.4, "Aligned"},
		{0, "Advanced (early shift)"},
	},
}

// Level describes a score in words.
func Level(k primitive.Kind, score float64) string {
	for _, l := range levels[k] {
		if score >= l.min {
			return l.text
		}
	}
	return fmt.Sprintf("%.3f", score)
}

// SleepStatus describes the combined sleep drive.
func SleepStatus(drive float64) string {
	switch {
	case drive >= 0.75:
		return "VERY HIGH - strong urge to sleep"
	case drive >= 0.6:
		return "HIGH - significant sleep pressure"
	case drive >= 0.4:
		return "MODERATE - building sleep pressure"
	default:
		return "LOW - alert and wakeful"
	}
}

// #endregion levels

// #region write
// Options controls how much detail Write prints.
type Options struct {
	Contributors int  // per primitive; 0 hides them
	Adjustments  bool // print per-primitive adjustment notes
}

// DefaultOptions shows three contributors and the adjustment notes.
func DefaultOptions() Options {
	return Options{Contributors: 3, Adjustments: true}
}

// Write renders res as a plain-text report.
func Write(w io.Writer, userID string, res engine.Result, opts Options) error {
	p := &printer{w: w}
	p.section("PRIMITIVE ESTIMATES")
	if userID != "" {
		p.line("User:      %s", userID)
	}
	p.line("Timestamp: %s", res.At.UTC().Format(time.RFC3339))
	p.line("")

	for _, e := range res.Estimates {
		marker := ""
		switch {
		case e.Confidence < 0.6:
			marker = " (low confidence)"
		case e.Confidence > 0.9:
			marker = " (high confidence)"
		}
		p.line("%s%s", strings.ToUpper(e.Kind.String()), marker)
		p.line("  Score: %.3f (confidence %.1f%%)", e.Score, e.Confidence*100)
		if e.Acute != nil && e.Chronic != nil {
			p.line("  Acute: %.3f | Chronic: %.3f", *e.Acute, *e.Chronic)
		}
		if e.Effective != nil {
			p.line("  Effective (after inhibition): %.3f", *e.Effective)
		}
		p.line("  Description: %s", Level(e.Kind, e.Score))
		if n := min(opts.Contributors, len(e.Contributors)); n > 0 {
			p.line("  Top contributors:")
			for i, c := range e.Contributors[:n] {
				p.line("    %d. %s %s (%.1fh ago): %+.3f", i+1, c.EventType, c.EventID, c.HoursAgo, c.Decayed)
			}
		}
		if opts.Adjustments {
			for _, a := range e.Adjustments {
				p.line("  * %s", a)
			}
		}
		p.line("")
	}

	if len(res.Physio) > 0 {
		p.section("PHYSIOLOGICAL VALIDATION")
		for _, a := range res.Physio {
			p.line("%s -> %s (%s)", a.Metric, a.Primitive, a.Kind)
			p.line("  Score: %.3f -> %.3f", a.Original, a.Adjusted)
			if a.Confidence != 0 {
				p.line("  Confidence: %.2f", a.Confidence)
			}
			p.line("  Reason: %s", a.Reason)
		}
		p.line("")
	}

	if len(res.Skipped) > 0 || len(res.Flags) > 0 {
		p.section("DATA QUALITY")
		for _, s := range res.Skipped {
			p.line("skipped %s (%s): %s %s", s.EventID, s.EventType, s.Property, s.Reason)
		}
		for _, f := range res.Flags {
			p.line("clamped %s.%s: %.4g -> %.4g", f.EventID, f.Property, f.Original, f.Clamped)
		}
		p.line("")
	}

	p.section("SLEEP DRIVE")
	p.line("Homeostatic %.3f | Circadian %.3f", res.Drive.Homeostatic, res.Drive.Circadian)
	p.line("Overall: %.3f (%s)", res.Drive.Combined, SleepStatus(res.Drive.Combined))
	p.line("")

	p.section("INTERPRETATION")
	cls := res.Balance
	p.line("Functional state: %s", cls.State)
	if cls.Description != "" {
		p.line("%s", cls.Description)
	}
	if len(cls.Recommendations) > 0 {
		p.line("")
		p.line("Recommendations:")
		for i, r := range cls.Recommendations {
			p.line("  %d. %s", i+1, r)
		}
	}
	if !res.Eval.Passed {
		p.line("")
		p.line("WARNING: %s", res.Eval.Reason)
	}
	return p.err
}

type printer struct {
	w   io.Writer
	err error
}

func (p *printer) line(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *printer) section(title string) {
	p.line("== %s ==", title)
}

// #endregion write
