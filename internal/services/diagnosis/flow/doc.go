// Package flow runs diagnosis sessions: it loads a browser's wizard from the
// session store, applies one transition, and saves it back.
//
// Every mutation for a session ID is serialized, so two racing requests from
// the same browser see each other's writes.
package flow
