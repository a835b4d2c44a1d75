// Package cmd defines the CLI for the story preview gateway.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes /api/story (and the /api/story-meta alias), health probes, and
//     /metrics. Each preview request is classified by user agent, resolved against the story store, and answered
//     with a rendered Open Graph document (crawlers) or a 302 to the canonical story URL (browsers).
//   - Resolver: internal/preview.Resolver validates the slug, finds the approved story, counts the view on a
//     context detached from the client, and renders through html/template. View-counter failures are logged and
//     counted but never change the response.
//   - Stores: memory (optionally seeded from YAML), Postgres, Redis, or Elasticsearch, selected by store.backend.
//     Clients are built once in internal/server.Build and shared by every request.
//   - View events: when pubsub.topic_name is set each counted view is published to Pub/Sub, or kept in memory when
//     no project is configured.
//   - Configuration & plumbing: Viper populates config from env/files; zap provides structured logging; Prometheus
//     metrics are exported via the metrics middleware and /metrics handler; OpenTelemetry spans wrap resolution and
//     store calls when telemetry is enabled.
//
// Quick checklist:
//   - Configure env vars: PREVIEW_SERVER_PORT or PORT, PREVIEW_SITE_BASE_URL, PREVIEW_STORE_BACKEND and the matching
//     PREVIEW_DB_*, PREVIEW_REDIS_* or PREVIEW_ELASTICSEARCH_* settings, PREVIEW_PUBSUB_* for view events.
//   - Run locally: go run . serve --config config.yaml
//   - Check a user agent: go run . classify "facebookexternalhit/1.1"
package cmd
