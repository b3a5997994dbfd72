// Package httpapi exposes the taskmanager services as a JSON HTTP API.
//
// Every response body is an envelope with success and message fields plus
// endpoint specific data. Folder and task routes require an identity resolved
// by the identity package; handlers pass the caller id to the services
// explicitly.
package httpapi
