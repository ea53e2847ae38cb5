// Package imagehost defines the client surface the upload engine drives and
// the concrete imx.to and turboimagehost.com implementations.
//
// Every host implements Client. Optional abilities (name sanitizing, derived
// thumbnail URLs, batch result pages, gallery renames) are separate
// interfaces discovered by type assertion, so the engine degrades gracefully
// on hosts that lack them.
package imagehost
