package scheduler

import "sync"

// Registry is the ordered set of jobs the scheduler evaluates.
// Insertion order is the firing order of jobs due in the same tick.
type Registry struct {
	mu     sync.RWMutex
	jobs   []*Job
	byName map[string]*Job
}

func NewRegistry() *Registry {
	return &Registry{byName: map[string]*Job{}}
}

// Add appends j. Nil jobs, the same job twice and duplicate names are rejected.
func (r *Registry) Add(j *Job) error {
	if j == nil {
		return invalid("job", nil, "nil job")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byName == nil {
		r.byName = map[string]*Job{}
	}
	if prev, ok := r.byName[j.name]; ok {
		if prev == j {
			return invalid("job", j.name, "already registered")
		}
		return invalid("name", j.name, "duplicate job name")
	}
	r.jobs = append(r.jobs, j)
	r.byName[j.name] = j
	return nil
}

// All returns the jobs in insertion order. The slice is a copy.
func (r *Registry) All() []*Job {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Job, len(r.jobs))
	copy(out, r.jobs)
	return out
}

func (r *Registry) Get(name string) (*Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.byName[name]
	return j, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// Remove deletes the named job, keeping the order of the rest.
func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[name]; !ok {
		return false
	}
	delete(r.byName, name)
	for i, j := range r.jobs {
		if j.name == name {
			r.jobs = append(r.jobs[:i:i], r.jobs[i+1:]...)
			break
		}
	}
	return true
}
