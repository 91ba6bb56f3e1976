package provider

import (
	"sort"
	"sync"

	"social-gateway/domain/apperror"
)

// Registry holds the installed providers and the per-tenant service name
// remapping. Tenants may expose a provider under an alias, e.g. a white-label
// client addressing "photos" instead of "instaframe".
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	aliases   map[string]map[string]string // client -> external name -> provider name
}

func NewRegistry() *Registry {
	return &Registry{
		providers: map[string]Provider{},
		aliases:   map[string]map[string]string{},
	}
}

func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Alias maps an external service name to a provider name for one tenant.
func (r *Registry) Alias(clientName, externalName, providerName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.aliases[clientName] == nil {
		r.aliases[clientName] = map[string]string{}
	}
	r.aliases[clientName][externalName] = providerName
}

// Resolve returns the provider a tenant addresses by name, applying the
// tenant's alias table first.
func (r *Registry) Resolve(clientName, serviceName string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name := serviceName
	if m, ok := r.aliases[clientName]; ok {
		if mapped, ok := m[serviceName]; ok {
			name = mapped
		}
	}
	p, ok := r.providers[name]
	if !ok {
		return nil, apperror.Newf(apperror.NotFound, "unknown service %s", serviceName)
	}
	return p, nil
}

// Names lists the installed provider names in stable order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NamesFor lists the provider names as one tenant addresses them: an aliased
// provider appears under the tenant's external name instead of its own.
func (r *Registry) NamesFor(clientName string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reverse := map[string]string{}
	for external, providerName := range r.aliases[clientName] {
		reverse[providerName] = external
	}
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		if external, ok := reverse[name]; ok {
			name = external
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns the installed providers keyed by name.
func (r *Registry) All() map[string]Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Provider, len(r.providers))
	for name, p := range r.providers {
		out[name] = p
	}
	return out
}
