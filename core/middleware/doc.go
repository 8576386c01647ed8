// Package middleware groups the fiber middleware of the status API.
//
//   - auth: rejects requests without the configured API key.
//   - rayid: tags every request with an ID echoed in X-Ray-ID and picked up
//     by logger.WithRayID.
//
// rayid is registered first so that every log line of a request carries it.
package middleware
