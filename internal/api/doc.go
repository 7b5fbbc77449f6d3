// Package api exposes the local-only diagnostics HTTP surface: health,
// task slot states, and send queue pressure. It is read-only; all
// mutation goes through the service layer on the polling thread.
package api
