package transport

import (
	"errors"
	"net"
	"strconv"
	"sync"

	"github.com/hashicorp/consul/api"
)

var (
	// ErrUnknownService is returned for services the proxy does not forward.
	ErrUnknownService = errors.New("unknown service")
	// ErrNoInstances is returned when Consul has no passing instance.
	ErrNoInstances = errors.New("no passing instances")
)

// HealthService lists the instances of a service. *api.Health implements it.
type HealthService interface {
	Service(service, tag string, passingOnly bool, q *api.QueryOptions) ([]*api.ServiceEntry, *api.QueryMeta, error)
}

// TargetResolver picks the gRPC address the proxy forwards a service to.
// Only services named in fixed are forwarded. A non-empty fixed address is
// used as is; otherwise the passing Consul instances are taken in turn.
type TargetResolver struct {
	fixed  map[string]string
	health HealthService

	mtx  sync.Mutex
	next map[string]int
}

// NewTargetResolver returns a resolver. health may be nil when Consul is not
// configured.
func NewTargetResolver(fixed map[string]string, health HealthService) *TargetResolver {
	return &TargetResolver{
		fixed:  fixed,
		health: health,
		next:   map[string]int{},
	}
}

// Resolve returns a host:port for service.
func (r *TargetResolver) Resolve(service string) (string, error) {
	target, ok := r.fixed[service]
	if !ok {
		return "", ErrUnknownService
	}
	if target != "" {
		return target, nil
	}
	if r.health == nil {
		return "", ErrUnknownService
	}

	entries, _, err := r.health.Service(service, "", true, nil)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", ErrNoInstances
	}

	r.mtx.Lock()
	i := r.next[service] % len(entries)
	r.next[service]++
	r.mtx.Unlock()

	e := entries[i]
	addr := e.Service.Address
	if addr == "" && e.Node != nil {
		addr = e.Node.Address
	}
	return net.JoinHostPort(addr, strconv.Itoa(e.Service.Port)), nil
}
