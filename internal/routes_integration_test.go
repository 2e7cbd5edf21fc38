package internal

import (
	"reflect"
	"runtime"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge/testsupport"
	"github.com/stretchr/testify/require"
)

func findRoute(routes []fiber.Route, method, path string) *fiber.Route {
	for idx := range routes {
		if routes[idx].Method == method && routes[idx].Path == path {
			return &routes[idx]
		}
	}
	return nil
}

func handlerNames(route *fiber.Route) []string {
	var names []string
	for _, handler := range route.Handlers {
		names = append(names, runtime.FuncForPC(reflect.ValueOf(handler).Pointer()).Name())
	}
	return names
}

func TestCalculateRouteRateLimited(t *testing.T) {
	srv := testsupport.NewTestServer(t, testsupport.TestServerOptions{
		RouteMountFunc: MountAppRoutes,
	})

	route := findRoute(srv.App.GetRoutes(true), fiber.MethodPost, "/api/v1/metrics/calculate")
	require.NotNil(t, route, "expected calculate route to be registered")

	// The limiter is wrapped in a conditional function that only applies
	// in production; the wrapper is still registered here.
	names := handlerNames(route)
	hasRateLimiter := false
	for _, name := range names {
		if strings.Contains(name, "middleware/limiter") || strings.Contains(name, "mountRoutes.func") {
			hasRateLimiter = true
			break
		}
	}

	require.Truef(t, hasRateLimiter, "expected rate limiter middleware for calculate route, handlers: %v", names)
}

func TestOwnerRoutesRegistered(t *testing.T) {
	srv := testsupport.NewTestServer(t, testsupport.TestServerOptions{
		RouteMountFunc: MountAppRoutes,
	})
	routes := srv.App.GetRoutes(true)

	expected := []struct {
		method string
		path   string
	}{
		{fiber.MethodGet, "/api/v1/analyses"},
		{fiber.MethodPost, "/api/v1/analyses"},
		{fiber.MethodGet, "/api/v1/analyses/last"},
		{fiber.MethodPost, "/api/v1/analyses/draft"},
		{fiber.MethodDelete, "/api/v1/analyses/:id"},
		{fiber.MethodGet, "/api/v1/history/baseline"},
		{fiber.MethodGet, "/api/v1/dashboard"},
	}

	for _, e := range expected {
		route := findRoute(routes, e.method, e.path)
		require.NotNilf(t, route, "expected %s %s to be registered", e.method, e.path)

		names := handlerNames(route)
		hasOwnerScope := false
		for _, name := range names {
			if strings.Contains(name, "OwnerScope") {
				hasOwnerScope = true
				break
			}
		}
		require.Truef(t, hasOwnerScope, "expected owner scope on %s %s, handlers: %v", e.method, e.path, names)
	}
}

func TestOperationalRoutesRegistered(t *testing.T) {
	srv := testsupport.NewTestServer(t, testsupport.TestServerOptions{
		RouteMountFunc: MountAppRoutes,
	})
	routes := srv.App.GetRoutes(true)

	require.NotNil(t, findRoute(routes, fiber.MethodGet, "/_health"))
	require.NotNil(t, findRoute(routes, fiber.MethodHead, "/_health"))
	require.NotNil(t, findRoute(routes, fiber.MethodGet, "/metrics"))
}
