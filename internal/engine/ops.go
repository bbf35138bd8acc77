package engine

// Trigger decides whether an operation fires on a given timestep.
type Trigger interface {
	Triggers(step uint64) bool
}

// Periodic fires every Period steps, offset by Phase.
type Periodic struct {
	Period uint64
	Phase  uint64
}

func (p Periodic) Triggers(step uint64) bool {
	if p.Period == 0 || step < p.Phase {
		return false
	}
	return (step-p.Phase)%p.Period == 0
}

// Updater mutates simulation state between integrator steps.
type Updater interface {
	Update(st *State)
}

// Writer emits output for the current state.
type Writer interface {
	Write(st *State) error
}

type scheduledUpdater struct {
	trigger Trigger
	updater Updater
}

type scheduledWriter struct {
	trigger Trigger
	writer  Writer
}

// Operations holds the registered updaters and writers with their
// triggers. Updaters run before writers on every step that fires them.
type Operations struct {
	updaters []scheduledUpdater
	writers  []scheduledWriter
}

func (o *Operations) AddUpdater(trigger Trigger, up Updater) {
	o.updaters = append(o.updaters, scheduledUpdater{trigger, up})
}

// RemoveUpdater detaches an updater by identity. Unknown updaters are
// ignored.
func (o *Operations) RemoveUpdater(up Updater) {
	kept := o.updaters[:0]
	for _, s := range o.updaters {
		if s.updater != up {
			kept = append(kept, s)
		}
	}
	o.updaters = kept
}

func (o *Operations) AddWriter(trigger Trigger, w Writer) {
	o.writers = append(o.writers, scheduledWriter{trigger, w})
}

func (o *Operations) RemoveWriter(w Writer) {
	kept := o.writers[:0]
	for _, s := range o.writers {
		if s.writer != w {
			kept = append(kept, s)
		}
	}
	o.writers = kept
}

// Fire runs every updater and writer whose trigger matches the state's
// current step. It reports whether any updater mutated the state, so the
// caller can invalidate cached forces; the first writer error is returned
// after all operations have run.
func (o *Operations) Fire(st *State) (bool, error) {
	updated := false
	for _, s := range o.updaters {
		if s.trigger.Triggers(st.Step) {
			s.updater.Update(st)
			updated = true
		}
	}
	var firstErr error
	for _, s := range o.writers {
		if s.trigger.Triggers(st.Step) {
			if err := s.writer.Write(st); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return updated, firstErr
}

// BoxResize interpolates the box between Box1 and Box2 according to the
// variant's value at the current step (clamped to [0, 1]), rescaling
// particle positions affinely.
type BoxResize struct {
	Box1    Box
	Box2    Box
	Variant Variant
}

func (b *BoxResize) Update(st *State) {
	f := b.Variant.Value(st.Step)
	if f < 0 {
		f = 0
	} else if f > 1 {
		f = 1
	}
	st.ScaleTo(Box{
		Lx: b.Box1.Lx + f*(b.Box2.Lx-b.Box1.Lx),
		Ly: b.Box1.Ly + f*(b.Box2.Ly-b.Box1.Ly),
		Lz: b.Box1.Lz + f*(b.Box2.Lz-b.Box1.Lz),
	})
}
