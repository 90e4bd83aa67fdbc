package migrator

type ActionConfigurator func(a *Action)

type Action struct {
	step  bool
	force bool
}

// WithStep gives every migrated migration its own batch so each one can be
// rolled back individually.
func WithStep() ActionConfigurator {
	return func(a *Action) {
		a.step = true
	}
}

// WithForce skips the confirmer for this call.
func WithForce() ActionConfigurator {
	return func(a *Action) {
		a.force = true
	}
}

func CreateConfigurators(step, force bool) []ActionConfigurator {
	var configurators []ActionConfigurator
	if step {
		configurators = append(configurators, WithStep())
	}

	if force {
		configurators = append(configurators, WithForce())
	}

	return configurators
}

func newAction(cfs []ActionConfigurator) *Action {
	act := new(Action)
	for _, f := range cfs {
		f(act)
	}
	return act
}
