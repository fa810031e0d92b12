// Package session holds the console's state orchestration: registry sync,
// candidate selection, the upload lifecycle and the aggregation builder.
//
// Every type here is owned by a single event loop. Network work happens in
// functions handed back to the caller to run elsewhere; results come back
// through Apply/Finish on the loop, so nothing in this package takes a lock.
package session
