// Package catalog holds the authoritative, read-only diagnosis question list.
//
// The landing page and the wizard both read question 1 from here, so the two
// surfaces cannot drift apart. Option IDs are opaque: they are compared for
// equality and matched by the result rules, and never parsed. Labels are for
// display only.
package catalog
