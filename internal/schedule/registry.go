package schedule

import "voccal/internal/model"

// Registry owns the resources of one assembly pass. Each id maps to exactly
// one *model.Resource for the registry's lifetime.
type Registry struct {
	byID  map[string]*model.Resource
	order []*model.Resource
}

// NewRegistry returns a registry that already knows the Unassigned resource.
func NewRegistry() *Registry {
	r := &Registry{byID: make(map[string]*model.Resource)}
	r.Ensure(model.UnassignedID)
	return r
}

// Ensure returns the resource for id, creating it on first use.
func (r *Registry) Ensure(id string) *model.Resource {
	if res, ok := r.byID[id]; ok {
		return res
	}
	res := &model.Resource{ID: id}
	r.byID[id] = res
	r.order = append(r.order, res)
	return res
}

// EnsureAll registers every id.
func (r *Registry) EnsureAll(ids ...string) {
	for _, id := range ids {
		r.Ensure(id)
	}
}

// Resolve maps ids to resources, registering unknown ones.
func (r *Registry) Resolve(ids []string) []*model.Resource {
	out := make([]*model.Resource, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.Ensure(id))
	}
	return out
}

// Lookup returns the resource for id without creating it.
func (r *Registry) Lookup(id string) (*model.Resource, bool) {
	res, ok := r.byID[id]
	return res, ok
}

// Unassigned returns the fallback resource.
func (r *Registry) Unassigned() *model.Resource {
	return r.byID[model.UnassignedID]
}

func (r *Registry) Len() int {
	return len(r.order)
}

// Resources returns all resources in registration order.
func (r *Registry) Resources() []*model.Resource {
	out := make([]*model.Resource, len(r.order))
	copy(out, r.order)
	return out
}

// IDs returns all resource ids in registration order.
func (r *Registry) IDs() []string {
	out := make([]string, 0, len(r.order))
	for _, res := range r.order {
		out = append(out, res.ID)
	}
	return out
}
