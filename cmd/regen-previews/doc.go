// Command regen-previews generates movie previews outside the server.
//
// It opens the catalog and blob store named by the server configuration,
// runs the preview pipeline until its queue is empty and exits.
//
// Usage:
//
//	regen-previews [-config file] [-yes] <command>
//
// Commands:
//
//	status   Count entries, entries with media, entries with a preview
//	         and entries that have media but no preview.
//
//	missing  Generate a preview for every entry that has media but no
//	         preview. This is the reconciliation the server runs at
//	         startup.
//
//	all      Regenerate every preview, for example after changing
//	         preview.max_width. Existing previews are overwritten, so the
//	         command asks for confirmation on a terminal and otherwise
//	         requires -yes.
//
// The exit status is 1 when any preview failed.
//
// The sqlite backend is opened by a single process; stop the server before
// running this command against it.
package main
