// Package httpapi exposes the engine over HTTP:
//
//	POST /v1/operations        submit a batch, returns 202 + queued snapshot
//	GET  /v1/operations/{id}   poll one operation (paginated results)
//	GET  /v1/operations        list recent operations (paginated summaries)
//	GET  /healthz              liveness
//
// Handlers never touch the model; they talk to the engine, which
// serializes all mutation onto its single writer.
package httpapi
