// Package api exposes the marketplace over an HTTP JSON surface.
//
// Handlers are a thin translation layer: they decode JSON, call the market
// service, and map domain errors to status codes. All authorization happens
// in the market service; the API only enforces authentication (JWT bearer
// tokens) and the admin gate on identity management routes.
package api
