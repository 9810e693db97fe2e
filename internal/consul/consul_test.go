package consul

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	consulapi "github.com/hashicorp/consul/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndDeregister(t *testing.T) {
	var (
		registered   consulapi.AgentServiceRegistration
		deregistered string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/v1/agent/service/register":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&registered))
		case len(r.URL.Path) > len("/v1/agent/service/deregister/"):
			deregistered = r.URL.Path[len("/v1/agent/service/deregister/"):]
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client, err := NewClient(srv.Listener.Addr().String())
	require.NoError(t, err)

	reg := Registration{Name: "storefront-service", Host: "10.0.0.5", Port: 8080}
	require.NoError(t, Register(client, reg))
	assert.Equal(t, "storefront-service-10.0.0.5-8080", registered.ID)
	assert.Equal(t, 8080, registered.Port)
	require.NotNil(t, registered.Check)
	assert.Equal(t, "http://10.0.0.5:8080/ping", registered.Check.HTTP)

	require.NoError(t, Deregister(client, reg))
	assert.Equal(t, reg.ID(), deregistered)
}
