package main

import (
	"errors"
	"fmt"
	"sort"

	compose "github.com/pumped-fn/pumped-compose"
)

// Scenario is a scripted sequence of container operations.
type Scenario struct {
	Name       string          `json:"name" yaml:"name" toml:"name"`
	Containers []ContainerSpec `json:"containers" yaml:"containers" toml:"containers"`
	Emitters   []string        `json:"emitters" yaml:"emitters" toml:"emitters"`
	Steps      []Step          `json:"steps" yaml:"steps" toml:"steps"`
}

// ContainerSpec declares a top-level container.
type ContainerSpec struct {
	Name          string `json:"name" yaml:"name" toml:"name"`
	Mode          string `json:"mode" yaml:"mode" toml:"mode"`
	ReplacePolicy string `json:"replace_policy" yaml:"replace_policy" toml:"replace_policy"`
}

// Step is one operation. Op is one of create, destroy, destroy_all, send,
// close, flush, appear, disappear.
type Step struct {
	Op        string   `json:"op" yaml:"op" toml:"op"`
	Container string   `json:"container" yaml:"container" toml:"container"`
	Ref       string   `json:"ref" yaml:"ref" toml:"ref"`
	Emitter   string   `json:"emitter" yaml:"emitter" toml:"emitter"`
	Subscribe []string `json:"subscribe" yaml:"subscribe" toml:"subscribe"`
}

// node is the component scenarios create. The runner counts the signals each
// node observes under its label.
type node struct {
	compose.Base
	ref string
}

// Report summarizes a scenario run.
type Report struct {
	Steps    int
	Received map[string]int
	Live     map[string]int
}

type runner struct {
	rt        *compose.Runtime
	singles   map[string]*compose.DynamicComponent[*node]
	instances map[string]*compose.InstanceComponent[*node]
	emitters  map[string]*compose.SignalEmitter
	refs      map[string]compose.ID
	received  map[string]int
	buildErr  error
}

func newRunner(rt *compose.Runtime, sc Scenario) (*runner, error) {
	r := &runner{
		rt:        rt,
		singles:   make(map[string]*compose.DynamicComponent[*node]),
		instances: make(map[string]*compose.InstanceComponent[*node]),
		emitters:  make(map[string]*compose.SignalEmitter),
		refs:      make(map[string]compose.ID),
		received:  make(map[string]int),
	}

	for _, name := range sc.Emitters {
		if _, dup := r.emitters[name]; dup {
			return nil, fmt.Errorf("duplicate emitter %q", name)
		}
		r.emitters[name] = compose.NewSignalEmitter(rt)
	}

	for _, spec := range sc.Containers {
		if r.exists(spec.Name) {
			return nil, fmt.Errorf("duplicate container %q", spec.Name)
		}
		opts := []compose.ContainerOption{compose.WithName(spec.Name)}
		switch spec.Mode {
		case "", "single":
			if spec.ReplacePolicy != "" {
				p, err := compose.ParseReplacePolicy(spec.ReplacePolicy)
				if err != nil {
					return nil, fmt.Errorf("container %q: %w", spec.Name, err)
				}
				opts = append(opts, compose.WithReplacePolicy(p))
			}
			r.singles[spec.Name] = compose.NewDynamic[*node](rt, opts...)
		case "instance":
			r.instances[spec.Name] = compose.NewInstance[*node](rt, opts...)
		default:
			return nil, fmt.Errorf("container %q: unknown mode %q", spec.Name, spec.Mode)
		}
	}

	return r, nil
}

func (r *runner) exists(name string) bool {
	_, single := r.singles[name]
	_, instance := r.instances[name]
	return single || instance
}

// factory builds nodes subscribed to the step's emitters. A failed subscribe
// is kept in r.buildErr for the caller of Create to collect.
func (r *runner) factory(step Step) (compose.Factory[*node], error) {
	for _, name := range step.Subscribe {
		if _, ok := r.emitters[name]; !ok {
			return nil, fmt.Errorf("unknown emitter %q", name)
		}
	}

	ref := step.Ref
	return func(ctx *compose.BuildCtx) *node {
		n := &node{Base: compose.NewBase(ctx), ref: ref}
		for _, name := range step.Subscribe {
			if _, err := r.emitters[name].Subscribe(func() { r.received[n.label()]++ }); err != nil {
				r.buildErr = errors.Join(r.buildErr, fmt.Errorf("subscribe %q: %w", name, err))
			}
		}
		return n
	}, nil
}

func (r *runner) takeBuildErr() error {
	err := r.buildErr
	r.buildErr = nil
	return err
}

func (n *node) label() string {
	if n.ref != "" {
		return n.ref
	}
	return n.ID().String()
}

func (r *runner) step(s Step) error {
	switch s.Op {
	case "create":
		f, err := r.factory(s)
		if err != nil {
			return err
		}
		if d, ok := r.singles[s.Container]; ok {
			id, err := d.Create(f)
			if err != nil {
				return err
			}
			if err := r.takeBuildErr(); err != nil {
				d.Destroy()
				return fmt.Errorf("create %q: %w", s.Ref, err)
			}
			r.remember(s.Ref, id)
			return nil
		}
		if c, ok := r.instances[s.Container]; ok {
			id := c.Create(f)
			if err := r.takeBuildErr(); err != nil {
				c.Destroy(id)
				return fmt.Errorf("create %q: %w", s.Ref, err)
			}
			r.remember(s.Ref, id)
			return nil
		}
		return fmt.Errorf("unknown container %q", s.Container)

	case "destroy":
		if d, ok := r.singles[s.Container]; ok {
			d.Destroy()
			return nil
		}
		if c, ok := r.instances[s.Container]; ok {
			id, ok := r.refs[s.Ref]
			if !ok {
				return fmt.Errorf("unknown ref %q", s.Ref)
			}
			c.Destroy(id)
			return nil
		}
		return fmt.Errorf("unknown container %q", s.Container)

	case "destroy_all":
		if c, ok := r.instances[s.Container]; ok {
			c.DestroyAll()
			return nil
		}
		return fmt.Errorf("destroy_all needs an instance container, got %q", s.Container)

	case "send":
		e, ok := r.emitters[s.Emitter]
		if !ok {
			return fmt.Errorf("unknown emitter %q", s.Emitter)
		}
		e.Send()
		return nil

	case "close":
		e, ok := r.emitters[s.Emitter]
		if !ok {
			return fmt.Errorf("unknown emitter %q", s.Emitter)
		}
		e.Close()
		return nil

	case "flush":
		r.rt.Flush()
		return nil

	case "appear":
		if d, ok := r.singles[s.Container]; ok {
			d.Appeared()
			return nil
		}
		if c, ok := r.instances[s.Container]; ok {
			c.Appeared()
			return nil
		}
		return fmt.Errorf("unknown container %q", s.Container)

	case "disappear":
		if d, ok := r.singles[s.Container]; ok {
			d.Disappeared()
			return nil
		}
		if c, ok := r.instances[s.Container]; ok {
			id, ok := r.refs[s.Ref]
			if !ok {
				return fmt.Errorf("unknown ref %q", s.Ref)
			}
			c.Disappeared(id)
			return nil
		}
		return fmt.Errorf("unknown container %q", s.Container)

	default:
		return fmt.Errorf("unknown op %q", s.Op)
	}
}

func (r *runner) remember(ref string, id compose.ID) {
	if ref != "" {
		r.refs[ref] = id
	}
}

func (r *runner) report(steps int) Report {
	rep := Report{Steps: steps, Received: make(map[string]int), Live: make(map[string]int)}
	for k, v := range r.received {
		rep.Received[k] = v
	}
	for name, d := range r.singles {
		if d.IsCreated() {
			rep.Live[name] = 1
		} else {
			rep.Live[name] = 0
		}
	}
	for name, c := range r.instances {
		rep.Live[name] = c.Len()
	}
	return rep
}

// RunScenario executes sc on rt. Pending disposals are flushed after the
// last step.
func RunScenario(rt *compose.Runtime, sc Scenario) (Report, error) {
	r, err := newRunner(rt, sc)
	if err != nil {
		return Report{}, err
	}
	for i, s := range sc.Steps {
		if err := r.step(s); err != nil {
			return r.report(i), fmt.Errorf("step %d (%s): %w", i+1, s.Op, err)
		}
	}
	rt.Flush()
	return r.report(len(sc.Steps)), nil
}

// LoadScenario reads a scenario file (.yaml, .yml, .json or .toml).
func LoadScenario(path string) (Scenario, error) {
	var sc Scenario
	if err := compose.DecodeFile(path, &sc); err != nil {
		return sc, err
	}
	if len(sc.Steps) == 0 {
		return sc, fmt.Errorf("scenario %s has no steps", path)
	}
	return sc, nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
