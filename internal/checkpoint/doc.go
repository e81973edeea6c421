// Package checkpoint persists conversation checkpoints to a key-value
// backend with a fixed expiration window. One session owns exactly one
// "latest" record; every save overwrites it wholesale and resets its
// expiration clock.
package checkpoint
