package stage

// Health reports whether a stage can process events right now. Detail names
// the missing credential or dependency when Ready is false, and may list the
// active targets when it is true.
type Health struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// ReadyWith is Healthy with a detail line, e.g. the enabled platforms.
func ReadyWith(name, detail string) Health {
	return Health{Name: name, Ready: true, Detail: detail}
}

func Unhealthy(name, detail string) Health {
	return Health{Name: name, Detail: detail}
}

func (h Health) String() string {
	state := "ready"
	if !h.Ready {
		state = "not ready"
	}
	if h.Detail == "" {
		return h.Name + ": " + state
	}
	return h.Name + ": " + state + " (" + h.Detail + ")"
}
