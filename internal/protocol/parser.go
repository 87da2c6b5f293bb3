// Package protocol parses the line-oriented command protocol the scheduling
// assistant emits. One operation per line, fields separated by "|":
//
//	date|action|event_id|start_time|end_time|title[|description]
//
// Assistant responses routinely mix prose with command lines, so anything
// that does not match the grammar is skipped, never an error.
package protocol

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/samber/mo"
)

const (
	Separator = "|"

	minFields        = 6
	descriptionIndex = 6

	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// Operation is one typed calendar mutation decoded from a protocol line.
type Operation interface {
	isOperation()
}

// Add creates a new event. Date, StartTime, EndTime and Title are required by
// the grammar; Description may be absent. Colour is assigned by the parser's
// colour picker.
type Add struct {
	Date        time.Time
	StartTime   string
	EndTime     string
	Title       string
	Description mo.Option[string]
	Colour      string
}

// Edit updates an existing event. Every field except EventID is an optional
// override; an absent field means "leave unchanged", which is distinct from
// an explicit empty value.
type Edit struct {
	EventID     int64
	Date        mo.Option[time.Time]
	StartTime   mo.Option[string]
	EndTime     mo.Option[string]
	Title       mo.Option[string]
	Description mo.Option[string]
}

// Delete removes an event. A present Date means "delete only the occurrence
// on this date" for recurring series.
type Delete struct {
	EventID int64
	Date    mo.Option[time.Time]
}

func (Add) isOperation()    {}
func (Edit) isOperation()   {}
func (Delete) isOperation() {}

// Result is the outcome of parsing a single input line. Exactly one of Op and
// SkipReason is set: skipped lines are represented explicitly rather than
// silently dropped so callers and tests can tell "nothing to do" from
// "something was tolerated".
type Result struct {
	Line       int // 1-based input line number
	Op         Operation
	SkipReason string
}

// Skipped reports whether this line produced no operation.
func (r Result) Skipped() bool { return r.Op == nil }

// Parser decodes assistant output into operations. The colour picker is
// injectable so tests can make Add colours deterministic.
type Parser struct {
	pickColour ColourPicker
}

// NewParser returns a Parser using pick for Add colours, or the random
// palette pick when pick is nil.
func NewParser(pick ColourPicker) *Parser {
	if pick == nil {
		pick = RandomColour
	}
	return &Parser{pickColour: pick}
}

// Parse decodes text into one Result per input line that contains the field
// separator. It never fails: malformed lines become Skipped results, and
// empty or fully unparseable input yields operations-free results. Output
// order follows input order.
func (p *Parser) Parse(text string) []Result {
	var results []Result
	for i, line := range strings.Split(text, "\n") {
		if !strings.Contains(line, Separator) {
			continue // prose, not a protocol line
		}
		results = append(results, p.parseLine(i+1, line))
	}
	return results
}

// Operations filters a result stream down to the typed operations, in order.
func Operations(results []Result) []Operation {
	var ops []Operation
	for _, r := range results {
		if r.Op != nil {
			ops = append(ops, r.Op)
		}
	}
	return ops
}

func (p *Parser) parseLine(n int, line string) Result {
	parts := strings.Split(line, Separator)
	if len(parts) < minFields {
		return Result{Line: n, SkipReason: fmt.Sprintf("expected at least %d fields, got %d", minFields, len(parts))}
	}

	f := fields{
		date:      parts[0],
		eventID:   parts[2],
		startTime: parts[3],
		endTime:   parts[4],
		title:     parts[5],
	}
	if len(parts) > descriptionIndex {
		f.description = parts[descriptionIndex]
	}

	switch parts[1] {
	case "add":
		return p.parseAdd(n, f)
	case "edit":
		return parseEdit(n, f)
	case "delete":
		return parseDelete(n, f)
	default:
		// Unrecognized actions are tolerated, same as prose.
		return Result{Line: n, SkipReason: fmt.Sprintf("unknown action %q", parts[1])}
	}
}

// fields holds the raw per-line field values. An empty string means the field
// was absent.
type fields struct {
	date        string
	eventID     string
	startTime   string
	endTime     string
	title       string
	description string
}

func (p *Parser) parseAdd(n int, f fields) Result {
	if f.date == "" || f.startTime == "" || f.endTime == "" || f.title == "" {
		return Result{Line: n, SkipReason: "add requires date, start_time, end_time and title"}
	}

	date, err := time.Parse(dateLayout, f.date)
	if err != nil {
		return Result{Line: n, SkipReason: fmt.Sprintf("bad date %q", f.date)}
	}
	start, err := parseTimeOfDay(f.startTime)
	if err != nil {
		return Result{Line: n, SkipReason: err.Error()}
	}
	end, err := parseTimeOfDay(f.endTime)
	if err != nil {
		return Result{Line: n, SkipReason: err.Error()}
	}

	return Result{Line: n, Op: Add{
		Date:        date,
		StartTime:   start,
		EndTime:     end,
		Title:       f.title,
		Description: optional(f.description),
		Colour:      p.pickColour(),
	}}
}

func parseEdit(n int, f fields) Result {
	id, ok := parseEventID(f.eventID)
	if !ok {
		return Result{Line: n, SkipReason: "edit requires a numeric event_id"}
	}

	op := Edit{
		EventID:     id,
		Title:       optional(f.title),
		Description: optional(f.description),
	}
	if f.date != "" {
		date, err := time.Parse(dateLayout, f.date)
		if err != nil {
			return Result{Line: n, SkipReason: fmt.Sprintf("bad date %q", f.date)}
		}
		op.Date = mo.Some(date)
	}
	// Edit is all-or-nothing: one bad time drops the entire line.
	if f.startTime != "" {
		start, err := parseTimeOfDay(f.startTime)
		if err != nil {
			return Result{Line: n, SkipReason: err.Error()}
		}
		op.StartTime = mo.Some(start)
	}
	if f.endTime != "" {
		end, err := parseTimeOfDay(f.endTime)
		if err != nil {
			return Result{Line: n, SkipReason: err.Error()}
		}
		op.EndTime = mo.Some(end)
	}
	return Result{Line: n, Op: op}
}

func parseDelete(n int, f fields) Result {
	id, ok := parseEventID(f.eventID)
	if !ok {
		return Result{Line: n, SkipReason: "delete requires a numeric event_id"}
	}

	op := Delete{EventID: id}
	if f.date != "" {
		date, err := time.Parse(dateLayout, f.date)
		if err != nil {
			return Result{Line: n, SkipReason: fmt.Sprintf("bad date %q", f.date)}
		}
		op.Date = mo.Some(date)
	}
	return Result{Line: n, Op: op}
}

func parseEventID(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// parseTimeOfDay validates an "HH:MM" value against the half-hour grid.
func parseTimeOfDay(s string) (string, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return "", fmt.Errorf("bad time %q", s)
	}
	if m := t.Minute(); m != 0 && m != 30 {
		return "", fmt.Errorf("time %q not on the half-hour", s)
	}
	return t.Format(timeLayout), nil
}

func optional(s string) mo.Option[string] {
	if s == "" {
		return mo.None[string]()
	}
	return mo.Some(s)
}
