// Package catalog answers the library-system lookups the circulation engine
// needs (items, patrons, documents, locations) from a YAML snapshot.
//
// A snapshot looks like:
//
//	locations:
//	  - pid: main
//	    pickup: true
//	  - pid: branch
//	    pickup: true
//	documents: [D1]
//	items:
//	  - pid: I1
//	    document: D1
//	    location: main
//	patrons: [P1]
//	users: [librarian]
//
// Load reads the file once; Reload re-reads it when its modification time
// changes, so an exporter can refresh item locations without restarting the
// host. Validators joins the catalog with a loan store into a complete
// circulation.Validators bundle.
package catalog
