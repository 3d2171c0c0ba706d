package util

import (
	"encoding/json"
	"fmt"
	"sort"
)

// VCAP_SERVICES holds the service bindings of a Cloud Foundry app.
const VCAP_SERVICES = "VCAP_SERVICES"

// SMAP_DB_SERVICE names the bound Postgres service; DefaultDBService otherwise.
const SMAP_DB_SERVICE = "SMAP_DB_SERVICE"

// DefaultDBService is the binding searched when SMAP_DB_SERVICE is unset.
const DefaultDBService = "smap-postgres"

// serviceBindings is the parsed VCAP_SERVICES document, keyed by offering.
type serviceBindings map[string][]serviceBinding

type serviceBinding struct {
	Name        string                 `json:"name"`
	Credentials map[string]interface{} `json:"credentials"`
}

func (s serviceBindings) find(name string) (serviceBinding, bool) {
	for _, bindings := range s {
		for _, binding := range bindings {
			if binding.Name == name {
				return binding, true
			}
		}
	}
	return serviceBinding{}, false
}

func (s serviceBindings) names() []string {
	var names []string
	for _, bindings := range s {
		for _, binding := range bindings {
			names = append(names, binding.Name)
		}
	}
	sort.Strings(names)
	return names
}

// databaseURLFromServices returns the "uri" credential of the named binding.
func databaseURLFromServices(raw, name string) (string, error) {
	services := serviceBindings{}
	if err := json.Unmarshal([]byte(raw), &services); err != nil {
		return "", fmt.Errorf("parse %s: %w", VCAP_SERVICES, err)
	}
	binding, ok := services.find(name)
	if !ok {
		return "", fmt.Errorf("service %q not found in %s; available services: %v", name, VCAP_SERVICES, services.names())
	}
	uri, ok := binding.Credentials["uri"].(string)
	if !ok || uri == "" {
		return "", fmt.Errorf("service %q has no uri credential", name)
	}
	return uri, nil
}
