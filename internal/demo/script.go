package demo

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/vango-dev/extstore/internal/errors"
	"github.com/vango-dev/extstore/pkg/reactive"
	"github.com/vango-dev/extstore/pkg/store"
)

// Step is one scripted change.
//
//	first=Ada      type into the first-name input
//	last=Lovelace  type into the last-name input
//	count=+2       press increment twice (count=-1 presses decrement)
//	count=10       set the count directly
//	age=36         set the age directly
//	json={"first":"Grace","age":85}
//	               merge a JSON patch
type Step struct {
	Key   string
	Value string
}

// String returns the step in script form.
func (s Step) String() string {
	return s.Key + "=" + s.Value
}

// ParseStep parses "key=value".
func ParseStep(line string) (Step, error) {
	key, value, ok := strings.Cut(line, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return Step{}, errors.New("E140").
			WithDetailf("step %q is not key=value", line).
			WithExample("first=Ada")
	}
	step := Step{Key: key, Value: value}

	switch key {
	case string(FieldFirst), string(FieldLast), "json":
		return step, nil
	case "age":
		if _, err := strconv.Atoi(value); err != nil {
			return Step{}, errors.New("E140").WithDetailf("age %q is not a number", value)
		}
		return step, nil
	case "count":
		if _, err := strconv.Atoi(strings.TrimPrefix(value, "+")); err != nil {
			return Step{}, errors.New("E140").
				WithDetailf("count %q is not a number", value).
				WithExample("count=+1")
		}
		return step, nil
	default:
		return Step{}, errors.New("E140").
			WithDetailf("unknown key %q", key).
			WithSuggestion("Use first, last, age, count or json")
	}
}

// ParseScript reads one step per line. Blank lines and lines starting
// with # are skipped.
func ParseScript(r io.Reader) ([]Step, error) {
	var steps []Step
	scanner := bufio.NewScanner(r)
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		step, err := ParseStep(line)
		if err != nil {
			if e, ok := err.(*errors.Error); ok {
				return nil, e.WithDetailf("line %d: %s", n, e.Detail)
			}
			return nil, err
		}
		steps = append(steps, step)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.New("E140").Wrap(err)
	}
	return steps, nil
}

// Runner drives a headless demo session and reports which components each
// step re-rendered.
type Runner struct {
	out      io.Writer
	root     *reactive.Root
	data     *store.Data[State]
	rendered []string
}

// NewRunner mounts a demo session writing its report to out. opts are
// applied to the session's store.
func NewRunner(out io.Writer, initial State, opts ...store.Option) (*Runner, error) {
	r := &Runner{out: out}
	r.root = NewRoot(initial,
		reactive.WithSetup(func(o *reactive.Owner) {
			store.ProvideDefaults(o, opts...)
		}),
		reactive.WithRenderHook(func(inst *reactive.Instance) {
			r.rendered = append(r.rendered, inst.Name()+" "+inst.InstanceID())
		}),
	)

	if err := r.root.Mount(); err != nil {
		return nil, err
	}
	data, err := Data(r.root)
	if err != nil {
		r.root.Dispose()
		return nil, err
	}
	r.data = data

	fmt.Fprintf(out, "mounted %d components\n", r.root.Instances())
	r.rendered = nil
	r.printState()
	return r, nil
}

// Run applies every step in order, stopping at the first error.
func (r *Runner) Run(steps []Step) error {
	for _, step := range steps {
		if err := r.Apply(step); err != nil {
			return err
		}
	}
	return nil
}

// Apply applies one step and flushes the re-renders it caused.
func (r *Runner) Apply(step Step) error {
	fmt.Fprintf(r.out, "> %s\n", step)
	r.rendered = nil

	if err := r.apply(step); err != nil {
		return err
	}
	patches, err := r.root.Flush()
	if err != nil {
		return err
	}

	if len(r.rendered) == 0 {
		fmt.Fprintln(r.out, "  rendered: none")
	} else {
		fmt.Fprintf(r.out, "  rendered: %s\n", strings.Join(r.rendered, ", "))
	}
	fmt.Fprintf(r.out, "  patches: %d\n", len(patches))
	r.printState()
	return nil
}

func (r *Runner) apply(step Step) error {
	switch step.Key {
	case string(FieldFirst), string(FieldLast):
		return r.dispatch("TextInput:"+step.Key, 0, step.Value)

	case "count":
		if strings.HasPrefix(step.Value, "+") || strings.HasPrefix(step.Value, "-") {
			n, _ := strconv.Atoi(strings.TrimPrefix(step.Value, "+"))
			button := 1
			if n < 0 {
				button, n = 0, -n
			}
			for i := 0; i < n; i++ {
				if err := r.dispatch("Counter", button, ""); err != nil {
					return err
				}
			}
			return nil
		}
		n, _ := strconv.Atoi(step.Value)
		return r.patch(`{"count":` + strconv.Itoa(n) + `}`)

	case "age":
		n, _ := strconv.Atoi(step.Value)
		return r.patch(`{"age":` + strconv.Itoa(n) + `}`)

	case "json":
		return r.patch(step.Value)
	}
	return errors.New("E140").WithDetailf("unknown key %q", step.Key)
}

// dispatch runs the index-th handler of the named component.
func (r *Runner) dispatch(name string, index int, value string) error {
	found := r.root.Find(name)
	if len(found) == 0 {
		return errors.New("E005").WithDetailf("component %q is not mounted", name)
	}
	handlers := found[0].Handlers()
	if index >= len(handlers) {
		return errors.New("E005").WithDetailf("component %q has %d handlers", name, len(handlers))
	}
	return r.root.Dispatch(handlers[index], value)
}

func (r *Runner) patch(raw string) error {
	p, err := store.PatchJSON[State]([]byte(raw))
	if err != nil {
		return err
	}
	r.data.Set(p)
	return nil
}

func (r *Runner) printState() {
	b, _ := json.Marshal(r.data.Get())
	fmt.Fprintf(r.out, "  state: %s\n", b)
}

// State returns the current record.
func (r *Runner) State() State {
	return r.data.Get()
}

// HTML renders the current page.
func (r *Runner) HTML() string {
	return r.root.HTML()
}

// Close disposes the session.
func (r *Runner) Close() {
	r.root.Dispose()
}
