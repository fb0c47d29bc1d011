// Package domain defines the core business types for the mail-dispatch
// service.
//
// Types in this package are pure value objects with no behavior, no
// network dependencies, and no HTTP concerns. They are the shared
// language between the gateway, the dispatcher, and the SMTP session
// layer.
//
// Rules for this package:
//   - No imports from other internal/ packages
//   - No net.Conn, no http.Request, no context.Context in struct fields
//   - JSON tags are allowed (they're metadata, not behavior)
//   - Constants and enums belong here
package domain
