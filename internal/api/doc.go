// Package api hosts the HTTP server and middleware for the preview gateway.
// Routes:
//   - GET /api/story?slug=... (and the /api/story-meta alias) answers with a
//     rendered Open Graph document for link-preview crawlers or a 302 to the
//     canonical story URL for browsers.
//   - GET /healthz and /readyz for probes; readyz pings the story store.
//   - GET /metrics for Prometheus scraping.
package api
