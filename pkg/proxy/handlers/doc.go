// Package handlers contains the HTTP handlers for the gateway's public
// surface: the two chat endpoints, the model list, and health.
package handlers
