package scheduler

import (
	"fmt"
	"sync"

	"github.com/gonggit/spring-batch-quartz/batch"
)

type registration struct {
	name     string
	binding  *batch.TriggerBinding
	schedule CronSchedule
}

type jobEntry struct {
	def      *batch.JobDefinition
	triggers int
}

// registry tracks registered trigger bindings and the definitions they
// reference. A definition stays resident while any trigger references it;
// once the last trigger of a non-durable definition is removed, the
// definition is dropped. Durable definitions stay until explicitly
// re-registered over.
type registry struct {
	mu       sync.Mutex
	triggers map[string]*registration
	jobs     map[string]*jobEntry
}

func newRegistry() *registry {
	return &registry{
		triggers: make(map[string]*registration),
		jobs:     make(map[string]*jobEntry),
	}
}

func (r *registry) add(name string, binding *batch.TriggerBinding, schedule CronSchedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.triggers[name]; exists {
		return fmt.Errorf("trigger %q already registered", name)
	}
	r.triggers[name] = &registration{name: name, binding: binding, schedule: schedule}

	def := binding.JobDefinition()
	entry, ok := r.jobs[def.Name()]
	if !ok {
		entry = &jobEntry{def: def}
		r.jobs[def.Name()] = entry
	}
	entry.triggers++
	return nil
}

func (r *registry) remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.triggers[name]
	if !ok {
		return false
	}
	delete(r.triggers, name)

	jobName := reg.binding.JobDefinition().Name()
	entry, ok := r.jobs[jobName]
	if !ok {
		return true
	}
	entry.triggers--
	if entry.triggers <= 0 && !entry.def.Durable() {
		delete(r.jobs, jobName)
	}
	return true
}

func (r *registry) definition(jobName string) (*batch.JobDefinition, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.jobs[jobName]
	if !ok {
		return nil, false
	}
	return entry.def, true
}

// snapshot returns the current registrations for one tick's iteration.
func (r *registry) snapshot() []*registration {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*registration, 0, len(r.triggers))
	for _, reg := range r.triggers {
		out = append(out, reg)
	}
	return out
}
