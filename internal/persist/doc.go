// Package persist decides whether, and for how long, a value set through the
// measure runtime is written to storage.
//
// Two TTL sources compete for every set event:
//
//  1. An explicit TTL supplied on the set call itself.
//  2. A computed TTL returned by the processor's PersistTime hook, consulted
//     only when no explicit TTL was given.
//
// The effective TTL maps onto a Decision:
//
//	0          -> Skip (neither Save nor Load is called)
//	-1         -> PersistDefault (Save without a TTL argument)
//	> 0, +Inf  -> PersistWithTTL (Save with the TTL)
//
// An explicit 0 always wins, even over a processor that would persist forever.
// PersistTime is never called when an explicit TTL is present.
package persist
