// Package domain contains the core messaging entities and their
// lifecycle rules, independent of any storage, transport, or delivery
// mechanism. Its central type is Message, whose delivery status machine
// guarantees exactly-once resolution of each send attempt.
package domain
