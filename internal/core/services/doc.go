// Package services implements the driving port interfaces.
// Services contain the core business logic: ingestion, the dual-collection
// course index, the tools offered to the model, the bounded generation loop
// and query orchestration. They reach infrastructure only through driven ports.
package services
