package consul

import (
	"fmt"
	"strconv"

	consulapi "github.com/hashicorp/consul/api"
)

// Registration describes this instance in the Consul catalog.
type Registration struct {
	Name string
	Host string
	Port int
}

func (r Registration) ID() string {
	return r.Name + "-" + r.Host + "-" + strconv.Itoa(r.Port)
}

func NewClient(address string) (*consulapi.Client, error) {
	cfg := consulapi.DefaultConfig()
	if address != "" {
		cfg.Address = address
	}
	client, err := consulapi.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create consul client: %w", err)
	}
	return client, nil
}

// Register adds the service with an HTTP check against /ping.
func Register(client *consulapi.Client, r Registration) error {
	reg := &consulapi.AgentServiceRegistration{
		ID:      r.ID(),
		Name:    r.Name,
		Address: r.Host,
		Port:    r.Port,
		Check: &consulapi.AgentServiceCheck{
			HTTP:                           fmt.Sprintf("http://%s:%d/ping", r.Host, r.Port),
			Interval:                       "10s",
			Timeout:                        "2s",
			DeregisterCriticalServiceAfter: "1m",
		},
	}
	if err := client.Agent().ServiceRegister(reg); err != nil {
		return fmt.Errorf("failed to register %s with consul: %w", r.Name, err)
	}
	return nil
}

func Deregister(client *consulapi.Client, r Registration) error {
	return client.Agent().ServiceDeregister(r.ID())
}
